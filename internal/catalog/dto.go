package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/merakiwear/meraki-backend/pkg/db/models"
)

// ListFilters narrows the public product listing.
type ListFilters struct {
	Category string
	Query    string
	// IncludeInactive is only honored for admin listings.
	IncludeInactive bool
}

// ProductSummary is one row of the product listing.
type ProductSummary struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Category    string          `json:"category"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	IsActive    bool            `json:"isActive"`
	HasDiscount bool            `json:"hasDiscount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ListResult pairs a page of summaries with the cursor for the next page.
type ListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// VariantDTO is the public shape of a product variant.
type VariantDTO struct {
	ID              uuid.UUID       `json:"id"`
	Size            string          `json:"size"`
	Color           string          `json:"color"`
	PriceAdjustment decimal.Decimal `json:"priceAdjustment"`
	StockQuantity   int             `json:"stockQuantity"`
}

// ProductDetail is the full product payload with its variants.
type ProductDetail struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Category    string          `json:"category"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	IsActive    bool            `json:"isActive"`
	Variants    []VariantDTO    `json:"variants"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CreateVariantRequest describes a variant on product create/update.
type CreateVariantRequest struct {
	Size            string          `json:"size" validate:"required,max=30"`
	Color           string          `json:"color" validate:"required,max=50"`
	PriceAdjustment decimal.Decimal `json:"priceAdjustment"`
	StockQuantity   int             `json:"stockQuantity" validate:"gte=0"`
}

// CreateProductRequest is the admin payload for a new product.
type CreateProductRequest struct {
	Name        string                 `json:"name" validate:"required,max=200"`
	Description *string                `json:"description,omitempty"`
	BasePrice   decimal.Decimal        `json:"basePrice" validate:"required"`
	Category    string                 `json:"category" validate:"required,max=100"`
	ImageURL    *string                `json:"imageUrl,omitempty" validate:"omitempty,url"`
	IsActive    *bool                  `json:"isActive,omitempty"`
	Variants    []CreateVariantRequest `json:"variants" validate:"dive"`
}

// UpdateProductRequest carries partial product updates.
type UpdateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string          `json:"description,omitempty"`
	BasePrice   *decimal.Decimal `json:"basePrice,omitempty"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	ImageURL    *string          `json:"imageUrl,omitempty" validate:"omitempty,url"`
	IsActive    *bool            `json:"isActive,omitempty"`
}

// UpdateVariantRequest carries partial variant updates.
type UpdateVariantRequest struct {
	Size            *string          `json:"size,omitempty" validate:"omitempty,max=30"`
	Color           *string          `json:"color,omitempty" validate:"omitempty,max=50"`
	PriceAdjustment *decimal.Decimal `json:"priceAdjustment,omitempty"`
	StockQuantity   *int             `json:"stockQuantity,omitempty" validate:"omitempty,gte=0"`
}

func variantFromModel(v models.ProductVariant) VariantDTO {
	return VariantDTO{
		ID:              v.ID,
		Size:            v.Size,
		Color:           v.Color,
		PriceAdjustment: v.PriceAdjustment,
		StockQuantity:   v.StockQuantity,
	}
}

func detailFromModel(p *models.Product) *ProductDetail {
	if p == nil {
		return nil
	}
	variants := make([]VariantDTO, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, variantFromModel(v))
	}
	return &ProductDetail{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		BasePrice:   p.BasePrice,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		IsActive:    p.IsActive,
		Variants:    variants,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

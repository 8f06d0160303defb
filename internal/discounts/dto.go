package discounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/merakiwear/meraki-backend/pkg/db/models"
)

// DiscountDTO is the admin-facing shape of a discount.
type DiscountDTO struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Active     bool            `json:"active"`
	StartsAt   *time.Time      `json:"startsAt,omitempty"`
	EndsAt     *time.Time      `json:"endsAt,omitempty"`
	ProductIDs []uuid.UUID     `json:"productIds"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// CreateDiscountRequest is the admin payload for a new discount.
type CreateDiscountRequest struct {
	Name       string          `json:"name" validate:"required,max=200"`
	Percentage decimal.Decimal `json:"percentage" validate:"required"`
	Active     *bool           `json:"active,omitempty"`
	StartsAt   *time.Time      `json:"startsAt,omitempty"`
	EndsAt     *time.Time      `json:"endsAt,omitempty"`
	ProductIDs []uuid.UUID     `json:"productIds,omitempty"`
}

// UpdateDiscountRequest carries partial discount updates. A null window bound
// clears that side of the window.
type UpdateDiscountRequest struct {
	Name       *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Active     *bool            `json:"active,omitempty"`
	StartsAt   *time.Time       `json:"startsAt,omitempty"`
	ClearStart bool             `json:"clearStartsAt,omitempty"`
	EndsAt     *time.Time       `json:"endsAt,omitempty"`
	ClearEnd   bool             `json:"clearEndsAt,omitempty"`
}

// AssignRequest names the products to link or unlink.
type AssignRequest struct {
	ProductIDs []uuid.UUID `json:"productIds" validate:"required,min=1"`
}

// QueryRequest asks for the effective percentage per product.
type QueryRequest struct {
	ProductIDs []uuid.UUID `json:"productIds" validate:"required,min=1,max=100"`
}

// QueryResponse maps product id to its effective discount percentage.
// Unresolvable ids come back as zero, never as an error.
type QueryResponse struct {
	Percents map[uuid.UUID]decimal.Decimal `json:"percents"`
}

func fromModel(d *models.Discount, productIDs []uuid.UUID) DiscountDTO {
	if productIDs == nil {
		productIDs = []uuid.UUID{}
	}
	return DiscountDTO{
		ID:         d.ID,
		Name:       d.Name,
		Percentage: d.Percentage,
		Active:     d.Active,
		StartsAt:   d.StartsAt,
		EndsAt:     d.EndsAt,
		ProductIDs: productIDs,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

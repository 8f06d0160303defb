package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/merakiwear/meraki-backend/pkg/db/models"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/pagination"
)

// Service exposes the storefront and admin product operations.
type Service interface {
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ListResult, error)
	GetDetail(ctx context.Context, id uuid.UUID, includeInactive bool) (*ProductDetail, error)
	Create(ctx context.Context, req CreateProductRequest) (*ProductDetail, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDetail, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddVariant(ctx context.Context, productID uuid.UUID, req CreateVariantRequest) (*VariantDTO, error)
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, req UpdateVariantRequest) (*VariantDTO, error)
	RemoveVariant(ctx context.Context, productID, variantID uuid.UUID) error
}

type service struct {
	repo *Repository
}

// ServiceParams bundles catalog service dependencies.
type ServiceParams struct {
	Repo *Repository
}

// NewService constructs a catalog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ListResult, error) {
	result, err := s.repo.ListSummaries(ctx, listQuery{Pagination: params, Filters: filters})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return result, nil
}

func (s *service) GetDetail(ctx context.Context, id uuid.UUID, includeInactive bool) (*ProductDetail, error) {
	product, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive && !includeInactive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return detailFromModel(product), nil
}

func (s *service) Create(ctx context.Context, req CreateProductRequest) (*ProductDetail, error) {
	if req.BasePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	product := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		BasePrice:   req.BasePrice,
		Category:    strings.TrimSpace(req.Category),
		ImageURL:    req.ImageURL,
		IsActive:    active,
	}
	for _, v := range req.Variants {
		product.Variants = append(product.Variants, models.ProductVariant{
			Size:            strings.TrimSpace(v.Size),
			Color:           strings.TrimSpace(v.Color),
			PriceAdjustment: v.PriceAdjustment,
			StockQuantity:   v.StockQuantity,
		})
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return detailFromModel(created), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDetail, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.BasePrice != nil {
		if req.BasePrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
		}
		product.BasePrice = *req.BasePrice
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.ImageURL != nil {
		product.ImageURL = req.ImageURL
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if _, err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	return s.GetDetail(ctx, id, true)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	return nil
}

func (s *service) AddVariant(ctx context.Context, productID uuid.UUID, req CreateVariantRequest) (*VariantDTO, error) {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	variant := &models.ProductVariant{
		ProductID:       productID,
		Size:            strings.TrimSpace(req.Size),
		Color:           strings.TrimSpace(req.Color),
		PriceAdjustment: req.PriceAdjustment,
		StockQuantity:   req.StockQuantity,
	}
	created, err := s.repo.CreateVariant(ctx, variant)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create variant")
	}
	dto := variantFromModel(*created)
	return &dto, nil
}

func (s *service) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, req UpdateVariantRequest) (*VariantDTO, error) {
	variant, err := s.loadVariantForProduct(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}

	if req.Size != nil {
		variant.Size = strings.TrimSpace(*req.Size)
	}
	if req.Color != nil {
		variant.Color = strings.TrimSpace(*req.Color)
	}
	if req.PriceAdjustment != nil {
		variant.PriceAdjustment = *req.PriceAdjustment
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
		}
		variant.StockQuantity = *req.StockQuantity
	}

	updated, err := s.repo.UpdateVariant(ctx, variant)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update variant")
	}
	dto := variantFromModel(*updated)
	return &dto, nil
}

func (s *service) RemoveVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	if _, err := s.loadVariantForProduct(ctx, productID, variantID); err != nil {
		return err
	}
	if err := s.repo.DeleteVariant(ctx, variantID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete variant")
	}
	return nil
}

func (s *service) loadVariantForProduct(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	variant, err := s.repo.FindVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}
	if variant.ProductID != productID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return variant, nil
}

package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/merakiwear/meraki-backend/pkg/db/models"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
)

const maxLineQuantity = 50

// LineDTO is one cart entry joined with its product and variant.
type LineDTO struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"productId"`
	ProductName   string          `json:"productName"`
	VariantID     uuid.UUID       `json:"variantId"`
	Size          string          `json:"size"`
	Color         string          `json:"color"`
	Quantity      int             `json:"quantity"`
	UnitBasePrice decimal.Decimal `json:"unitBasePrice"`
	InStock       bool            `json:"inStock"`
}

// CartDTO is the full cart payload.
type CartDTO struct {
	Items []LineDTO `json:"items"`
}

// AddRequest adds a variant to the cart.
type AddRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	VariantID uuid.UUID `json:"variantId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1,lte=50"`
}

// UpdateRequest overwrites a line quantity.
type UpdateRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=50"`
}

// Service exposes cart operations for the authenticated storefront.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	Add(ctx context.Context, userID uuid.UUID, req AddRequest) (*CartDTO, error)
	UpdateLine(ctx context.Context, userID, itemID uuid.UUID, req UpdateRequest) (*CartDTO, error)
	RemoveLine(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type catalogReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error)
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type service struct {
	repo    *Repository
	catalog catalogReader
}

// ServiceParams bundles cart service dependencies.
type ServiceParams struct {
	Repo    *Repository
	Catalog catalogReader
}

// NewService constructs the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader is required")
	}
	return &service{repo: params.Repo, catalog: params.Catalog}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	return s.hydrate(ctx, rows)
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, req AddRequest) (*CartDTO, error) {
	product, err := s.catalog.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	variant, err := s.catalog.FindVariant(ctx, req.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}
	if variant.ProductID != product.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart line")
	}
	return s.Get(ctx, userID)
}

func (s *service) UpdateLine(ctx context.Context, userID, itemID uuid.UUID, req UpdateRequest) (*CartDTO, error) {
	if req.Quantity < 1 || req.Quantity > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}
	if _, err := s.loadLine(ctx, userID, itemID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateQuantity(ctx, itemID, req.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveLine(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	if _, err := s.loadLine(ctx, userID, itemID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteLine(ctx, userID, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *service) loadLine(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := s.repo.FindLine(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}
	return item, nil
}

func (s *service) hydrate(ctx context.Context, rows []models.CartItem) (*CartDTO, error) {
	productIDs := make([]uuid.UUID, 0, len(rows))
	variantIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		productIDs = append(productIDs, row.ProductID)
		variantIDs = append(variantIDs, row.VariantID)
	}

	products, err := s.catalog.FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart products")
	}
	variants, err := s.catalog.FindVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart variants")
	}

	items := make([]LineDTO, 0, len(rows))
	for _, row := range rows {
		product, haveProduct := products[row.ProductID]
		variant, haveVariant := variants[row.VariantID]
		if !haveProduct || !haveVariant {
			// Product removed since it was carted; the line is stale.
			continue
		}
		items = append(items, LineDTO{
			ID:            row.ID,
			ProductID:     row.ProductID,
			ProductName:   product.Name,
			VariantID:     row.VariantID,
			Size:          variant.Size,
			Color:         variant.Color,
			Quantity:      row.Quantity,
			UnitBasePrice: product.BasePrice.Add(variant.PriceAdjustment),
			InStock:       variant.StockQuantity >= row.Quantity,
		})
	}
	return &CartDTO{Items: items}, nil
}

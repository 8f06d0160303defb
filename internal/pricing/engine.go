package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/merakiwear/meraki-backend/pkg/config"
	"github.com/merakiwear/meraki-backend/pkg/db/models"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// QuoteItem is one requested line, prior to pricing.
type QuoteItem struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	Quantity  int
}

// QuotedLine is a priced line with its frozen unit price.
type QuotedLine struct {
	ProductID       uuid.UUID
	VariantID       uuid.UUID
	ProductName     string
	Size            string
	Color           string
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	LineTotal       decimal.Decimal
}

// Quote is a fully priced order candidate.
type Quote struct {
	Lines    []QuotedLine
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

type catalogReader interface {
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error)
}

type discountResolver interface {
	ResolveForProducts(ctx context.Context, productIDs []uuid.UUID, now time.Time) map[uuid.UUID]decimal.Decimal
}

// Engine prices order candidates. All arithmetic stays in decimal major
// units; rounding to two places happens once per unit price.
type Engine struct {
	catalog   catalogReader
	discounts discountResolver
	shipping  config.ShippingConfig
	now       func() time.Time
}

// EngineParams bundles the pricing dependencies.
type EngineParams struct {
	Catalog   catalogReader
	Discounts discountResolver
	Shipping  config.ShippingConfig
	Now       func() time.Time
}

// NewEngine constructs a pricing engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Catalog == nil {
		return nil, errors.New("catalog reader is required")
	}
	if params.Discounts == nil {
		return nil, errors.New("discount resolver is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		catalog:   params.Catalog,
		discounts: params.Discounts,
		shipping:  params.Shipping,
		now:       now,
	}, nil
}

// PriceOrder prices the requested lines. It validates that each variant
// exists, belongs to its product, and that the product is active.
func (e *Engine) PriceOrder(ctx context.Context, items []QuoteItem) (*Quote, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	productIDs := make([]uuid.UUID, 0, len(items))
	variantIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		productIDs = append(productIDs, item.ProductID)
		variantIDs = append(variantIDs, item.VariantID)
	}

	products, err := e.catalog.FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	variants, err := e.catalog.FindVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variants")
	}

	// One resolver pass covers every line, so a product repeated across
	// lines prices consistently within the quote.
	percents := e.discounts.ResolveForProducts(ctx, productIDs, e.now())

	quote := &Quote{Subtotal: decimal.Zero}
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product %s", item.ProductID))
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is not available", item.ProductID))
		}
		variant, ok := variants[item.VariantID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown variant %s", item.VariantID))
		}
		if variant.ProductID != product.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
		}

		pct := percents[item.ProductID]
		unit := UnitPrice(product.BasePrice, variant.PriceAdjustment, pct)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(item.Quantity)))

		quote.Lines = append(quote.Lines, QuotedLine{
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			ProductName:     product.Name,
			Size:            variant.Size,
			Color:           variant.Color,
			Quantity:        item.Quantity,
			UnitPrice:       unit,
			DiscountPercent: pct,
			LineTotal:       lineTotal,
		})
		quote.Subtotal = quote.Subtotal.Add(lineTotal)
	}

	quote.Shipping = ShippingFee(e.shipping, quote.Subtotal)
	quote.Total = quote.Subtotal.Add(quote.Shipping)
	return quote, nil
}

// UnitPrice computes the discounted price of one unit, floored at zero and
// rounded to two decimal places.
func UnitPrice(base, adjustment, discountPercent decimal.Decimal) decimal.Decimal {
	gross := base.Add(adjustment)
	if gross.IsNegative() {
		gross = decimal.Zero
	}
	factor := hundred.Sub(discountPercent).Div(hundred)
	unit := gross.Mul(factor).Round(2)
	if unit.IsNegative() {
		return decimal.Zero
	}
	return unit
}

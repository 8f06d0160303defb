package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merakiwear/meraki-backend/pkg/config"
	"github.com/merakiwear/meraki-backend/pkg/db/models"
)

type stubCatalog struct {
	products map[uuid.UUID]models.Product
	variants map[uuid.UUID]models.ProductVariant
}

func (s *stubCatalog) FindProductsByIDs(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return s.products, nil
}

func (s *stubCatalog) FindVariantsByIDs(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error) {
	return s.variants, nil
}

type stubResolver struct {
	percents map[uuid.UUID]decimal.Decimal
}

func (s *stubResolver) ResolveForProducts(_ context.Context, productIDs []uuid.UUID, _ time.Time) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(productIDs))
	for _, id := range productIDs {
		out[id] = s.percents[id]
	}
	return out
}

func thresholdShipping() config.ShippingConfig {
	return config.ShippingConfig{
		Policy:        config.ShippingPolicyThreshold,
		FlatFee:       decimal.NewFromInt(50),
		FreeThreshold: decimal.NewFromInt(500),
	}
}

func newTestEngine(t *testing.T, catalog *stubCatalog, resolver *stubResolver, shipping config.ShippingConfig) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineParams{
		Catalog:   catalog,
		Discounts: resolver,
		Shipping:  shipping,
		Now:       func() time.Time { return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return engine
}

func fixtureLine() (models.Product, models.ProductVariant) {
	productID := uuid.New()
	product := models.Product{
		ID:        productID,
		Name:      "Oversized Hoodie",
		BasePrice: decimal.NewFromInt(1000),
		IsActive:  true,
	}
	variant := models.ProductVariant{
		ID:              uuid.New(),
		ProductID:       productID,
		Size:            "M",
		Color:           "White",
		PriceAdjustment: decimal.NewFromInt(50),
	}
	return product, variant
}

func TestPriceOrderDiscountedLineEarnsFreeShipping(t *testing.T) {
	product, variant := fixtureLine()
	catalog := &stubCatalog{
		products: map[uuid.UUID]models.Product{product.ID: product},
		variants: map[uuid.UUID]models.ProductVariant{variant.ID: variant},
	}
	resolver := &stubResolver{percents: map[uuid.UUID]decimal.Decimal{
		product.ID: decimal.NewFromInt(20),
	}}
	engine := newTestEngine(t, catalog, resolver, thresholdShipping())

	quote, err := engine.PriceOrder(context.Background(), []QuoteItem{
		{ProductID: product.ID, VariantID: variant.ID, Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, quote.Lines, 1)
	line := quote.Lines[0]
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromInt(840)), "unit price %s", line.UnitPrice)
	assert.True(t, line.DiscountPercent.Equal(decimal.NewFromInt(20)))
	assert.True(t, quote.Subtotal.Equal(decimal.NewFromInt(840)))
	assert.True(t, quote.Shipping.IsZero(), "840 clears the 500 threshold")
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(840)))
}

func TestPriceOrderBelowThresholdPaysFlatFee(t *testing.T) {
	product, variant := fixtureLine()
	product.BasePrice = decimal.NewFromInt(300)
	variant.PriceAdjustment = decimal.Zero
	catalog := &stubCatalog{
		products: map[uuid.UUID]models.Product{product.ID: product},
		variants: map[uuid.UUID]models.ProductVariant{variant.ID: variant},
	}
	engine := newTestEngine(t, catalog, &stubResolver{}, thresholdShipping())

	quote, err := engine.PriceOrder(context.Background(), []QuoteItem{
		{ProductID: product.ID, VariantID: variant.ID, Quantity: 1},
	})
	require.NoError(t, err)

	assert.True(t, quote.Subtotal.Equal(decimal.NewFromInt(300)))
	assert.True(t, quote.Shipping.Equal(decimal.NewFromInt(50)))
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(350)))
}

func TestPriceOrderMultiplesAndRounding(t *testing.T) {
	product, variant := fixtureLine()
	product.BasePrice = decimal.RequireFromString("99.99")
	variant.PriceAdjustment = decimal.Zero
	catalog := &stubCatalog{
		products: map[uuid.UUID]models.Product{product.ID: product},
		variants: map[uuid.UUID]models.ProductVariant{variant.ID: variant},
	}
	resolver := &stubResolver{percents: map[uuid.UUID]decimal.Decimal{
		product.ID: decimal.NewFromInt(15),
	}}
	engine := newTestEngine(t, catalog, resolver, thresholdShipping())

	quote, err := engine.PriceOrder(context.Background(), []QuoteItem{
		{ProductID: product.ID, VariantID: variant.ID, Quantity: 3},
	})
	require.NoError(t, err)

	// 99.99 * 0.85 = 84.9915, rounds to 84.99 per unit before multiplying.
	line := quote.Lines[0]
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("84.99")), "unit price %s", line.UnitPrice)
	assert.True(t, line.LineTotal.Equal(decimal.RequireFromString("254.97")))
	assert.True(t, quote.Subtotal.Equal(decimal.RequireFromString("254.97")))
}

func TestPriceOrderRejectsInactiveProduct(t *testing.T) {
	product, variant := fixtureLine()
	product.IsActive = false
	catalog := &stubCatalog{
		products: map[uuid.UUID]models.Product{product.ID: product},
		variants: map[uuid.UUID]models.ProductVariant{variant.ID: variant},
	}
	engine := newTestEngine(t, catalog, &stubResolver{}, thresholdShipping())

	_, err := engine.PriceOrder(context.Background(), []QuoteItem{
		{ProductID: product.ID, VariantID: variant.ID, Quantity: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available")
}

func TestPriceOrderRejectsMismatchedVariant(t *testing.T) {
	product, variant := fixtureLine()
	variant.ProductID = uuid.New()
	catalog := &stubCatalog{
		products: map[uuid.UUID]models.Product{product.ID: product},
		variants: map[uuid.UUID]models.ProductVariant{variant.ID: variant},
	}
	engine := newTestEngine(t, catalog, &stubResolver{}, thresholdShipping())

	_, err := engine.PriceOrder(context.Background(), []QuoteItem{
		{ProductID: product.ID, VariantID: variant.ID, Quantity: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variant does not belong")
}

func TestPriceOrderRejectsEmptyAndNonPositive(t *testing.T) {
	engine := newTestEngine(t, &stubCatalog{}, &stubResolver{}, thresholdShipping())

	_, err := engine.PriceOrder(context.Background(), nil)
	require.Error(t, err)

	_, err = engine.PriceOrder(context.Background(), []QuoteItem{
		{ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 0},
	})
	require.Error(t, err)
}

func TestUnitPriceClampsNegativeAdjustment(t *testing.T) {
	unit := UnitPrice(decimal.NewFromInt(10), decimal.NewFromInt(-25), decimal.Zero)
	assert.True(t, unit.IsZero(), "negative gross clamps to zero, got %s", unit)

	unit = UnitPrice(decimal.NewFromInt(100), decimal.Zero, decimal.NewFromInt(100))
	assert.True(t, unit.IsZero(), "full discount prices at zero, got %s", unit)
}

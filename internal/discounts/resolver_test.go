package discounts

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/merakiwear/meraki-backend/pkg/db/models"
	"github.com/merakiwear/meraki-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:discounts_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Discount{},
		&models.DiscountProduct{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "discounts-test", Output: io.Discard})
}

func seedProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:      name,
		BasePrice: decimal.RequireFromString("1000"),
		Category:  "shirts",
		IsActive:  true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedDiscount(t *testing.T, db *gorm.DB, pct string, active bool, startsAt, endsAt *time.Time, productIDs ...uuid.UUID) *models.Discount {
	t.Helper()
	discount := &models.Discount{
		Name:       "promo " + pct,
		Percentage: decimal.RequireFromString(pct),
		Active:     active,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
	}
	if err := db.Create(discount).Error; err != nil {
		t.Fatalf("seed discount: %v", err)
	}
	for _, pid := range productIDs {
		link := &models.DiscountProduct{DiscountID: discount.ID, ProductID: pid}
		if err := db.Create(link).Error; err != nil {
			t.Fatalf("seed link: %v", err)
		}
	}
	return discount
}

func timePtr(v time.Time) *time.Time { return &v }

func newTestResolver(t *testing.T, db *gorm.DB) *Resolver {
	t.Helper()
	resolver, err := NewResolver(NewRepository(db), testLogger())
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver
}

func TestResolverPicksHighestNotSum(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	resolver := newTestResolver(t, db)
	now := time.Now().UTC()

	product := seedProduct(t, db, "Stacked Shirt")
	seedDiscount(t, db, "10", true, nil, nil, product.ID)
	seedDiscount(t, db, "25", true, nil, nil, product.ID)
	seedDiscount(t, db, "15", true, nil, nil, product.ID)

	resolved := resolver.ResolveForProducts(context.Background(), []uuid.UUID{product.ID}, now)
	if got := resolved[product.ID]; !got.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("expected 25, got %s", got)
	}
}

func TestResolverWindowBounds(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	resolver := newTestResolver(t, db)
	now := time.Now().UTC()

	future := seedProduct(t, db, "Future")
	past := seedProduct(t, db, "Past")
	open := seedProduct(t, db, "Open")
	inactive := seedProduct(t, db, "Inactive")

	seedDiscount(t, db, "20", true, timePtr(now.Add(time.Hour)), nil, future.ID)
	seedDiscount(t, db, "20", true, nil, timePtr(now.Add(-time.Hour)), past.ID)
	seedDiscount(t, db, "20", true, nil, nil, open.ID)
	seedDiscount(t, db, "20", false, nil, nil, inactive.ID)

	ids := []uuid.UUID{future.ID, past.ID, open.ID, inactive.ID}
	resolved := resolver.ResolveForProducts(context.Background(), ids, now)

	if !resolved[future.ID].IsZero() {
		t.Errorf("not-yet-started discount should not apply")
	}
	if !resolved[past.ID].IsZero() {
		t.Errorf("ended discount should not apply")
	}
	if !resolved[open.ID].Equal(decimal.RequireFromString("20")) {
		t.Errorf("unbounded discount should apply, got %s", resolved[open.ID])
	}
	if !resolved[inactive.ID].IsZero() {
		t.Errorf("inactive discount should not apply")
	}
}

func TestResolverFailsOpenOnStorageError(t *testing.T) {
	t.Parallel()

	resolver, err := NewResolver(failingReader{}, testLogger())
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	id := uuid.New()
	resolved := resolver.ResolveForProducts(context.Background(), []uuid.UUID{id}, time.Now().UTC())
	if got, ok := resolved[id]; !ok || !got.IsZero() {
		t.Fatalf("expected fail-open zero percent, got %v (present=%v)", got, ok)
	}
}

func TestResolverUnknownProductResolvesToZero(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	resolver := newTestResolver(t, db)

	id := uuid.New()
	resolved := resolver.ResolveForProducts(context.Background(), []uuid.UUID{id}, time.Now().UTC())
	if got := resolved[id]; !got.IsZero() {
		t.Fatalf("expected zero for unknown product, got %s", got)
	}
}

type failingReader struct{}

func (failingReader) ActiveForProducts(context.Context, []uuid.UUID, time.Time) ([]ActiveRow, error) {
	return nil, context.DeadlineExceeded
}

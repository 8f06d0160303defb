package discounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/merakiwear/meraki-backend/pkg/logger"
)

// Resolver computes the effective discount percentage per product. Lookups
// fail open: any storage error resolves to zero percent so a broken discount
// table can never block a sale.
type Resolver struct {
	repo discountReader
	logg *logger.Logger
}

type discountReader interface {
	ActiveForProducts(ctx context.Context, productIDs []uuid.UUID, now time.Time) ([]ActiveRow, error)
}

// NewResolver builds a resolver over the discounts repository.
func NewResolver(repo discountReader, logg *logger.Logger) (*Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Resolver{repo: repo, logg: logg}, nil
}

// ResolveForProducts returns the best percentage per product id. Products
// without an applicable discount map to zero. Overlapping discounts resolve
// to the single highest percentage, never a sum.
func (r *Resolver) ResolveForProducts(ctx context.Context, productIDs []uuid.UUID, now time.Time) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(productIDs))
	for _, id := range productIDs {
		out[id] = decimal.Zero
	}
	if len(productIDs) == 0 {
		return out
	}

	rows, err := r.repo.ActiveForProducts(ctx, productIDs, now)
	if err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "discount lookup failed, pricing at full price")
		return out
	}

	for _, row := range rows {
		if row.Percentage.IsNegative() {
			continue
		}
		if row.Percentage.GreaterThan(out[row.ProductID]) {
			out[row.ProductID] = row.Percentage
		}
	}
	return out
}

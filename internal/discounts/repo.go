package discounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/merakiwear/meraki-backend/pkg/db/models"
)

// assignAllBatchSize bounds each insert when linking the whole catalog.
const assignAllBatchSize = 500

// Repository exposes discount persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a discounts repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a discount row.
func (r *Repository) Create(ctx context.Context, discount *models.Discount) (*models.Discount, error) {
	if err := r.db.WithContext(ctx).Create(discount).Error; err != nil {
		return nil, err
	}
	return discount, nil
}

// Update saves the discount row.
func (r *Repository) Update(ctx context.Context, discount *models.Discount) (*models.Discount, error) {
	if err := r.db.WithContext(ctx).Save(discount).Error; err != nil {
		return nil, err
	}
	return discount, nil
}

// Delete removes the discount. Product links cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Discount{}).Error
}

// FindByID loads a discount row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	var discount models.Discount
	if err := r.db.WithContext(ctx).First(&discount, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}

// List returns all discounts newest first.
func (r *Repository) List(ctx context.Context) ([]models.Discount, error) {
	var rows []models.Discount
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListProductIDs returns the products linked to a discount.
func (r *Repository) ListProductIDs(ctx context.Context, discountID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.DiscountProduct{}).
		Where("discount_id = ?", discountID).
		Pluck("product_id", &ids).Error
	return ids, err
}

// Assign links the products to the discount, skipping existing pairs.
func (r *Repository) Assign(ctx context.Context, discountID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	links := make([]models.DiscountProduct, 0, len(productIDs))
	for _, pid := range productIDs {
		links = append(links, models.DiscountProduct{DiscountID: discountID, ProductID: pid})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&links).Error
}

// Remove unlinks the products from the discount.
func (r *Repository) Remove(ctx context.Context, discountID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("discount_id = ? AND product_id IN ?", discountID, productIDs).
		Delete(&models.DiscountProduct{}).Error
}

// RemoveAll unlinks every product from the discount.
func (r *Repository) RemoveAll(ctx context.Context, discountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("discount_id = ?", discountID).
		Delete(&models.DiscountProduct{}).Error
}

// AssignAll links every product in the catalog to the discount, walking the
// products table in batches so huge catalogs do not blow a single insert.
func (r *Repository) AssignAll(ctx context.Context, discountID uuid.UUID) error {
	var lastID *uuid.UUID
	for {
		qb := r.db.WithContext(ctx).
			Model(&models.Product{}).
			Order("id ASC").
			Limit(assignAllBatchSize)
		if lastID != nil {
			qb = qb.Where("id > ?", *lastID)
		}

		var ids []uuid.UUID
		if err := qb.Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := r.Assign(ctx, discountID, ids); err != nil {
			return err
		}

		last := ids[len(ids)-1]
		lastID = &last
		if len(ids) < assignAllBatchSize {
			return nil
		}
	}
}

// ActiveRow pairs a linked product with a candidate discount percentage.
type ActiveRow struct {
	ProductID  uuid.UUID
	Percentage decimal.Decimal
}

// ActiveForProducts returns every active, in-window discount percentage for
// the given products. Open window bounds match any instant.
func (r *Repository) ActiveForProducts(ctx context.Context, productIDs []uuid.UUID, now time.Time) ([]ActiveRow, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var rows []ActiveRow
	err := r.db.WithContext(ctx).
		Table("discount_products").
		Select("discount_products.product_id, discounts.percentage").
		Joins("JOIN discounts ON discounts.id = discount_products.discount_id").
		Where("discount_products.product_id IN ?", productIDs).
		Where("discounts.active = ?", true).
		Where("discounts.starts_at IS NULL OR discounts.starts_at <= ?", now).
		Where("discounts.ends_at IS NULL OR discounts.ends_at >= ?", now).
		Scan(&rows).Error
	return rows, err
}

// ExpireLapsed flips active off for discounts whose window has ended. It
// returns how many rows were corrected.
func (r *Repository) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Discount{}).
		Where("active = ? AND ends_at IS NOT NULL AND ends_at < ?", true, now).
		UpdateColumns(map[string]any{
			"active":     false,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

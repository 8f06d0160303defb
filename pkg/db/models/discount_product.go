package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DiscountProduct links a discount to a product. The pair is unique so that
// re-assigning is idempotent at the database level.
type DiscountProduct struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	DiscountID uuid.UUID `gorm:"column:discount_id;type:uuid;not null;uniqueIndex:uq_discount_products_pair"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uq_discount_products_pair;index"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (dp *DiscountProduct) BeforeCreate(*gorm.DB) error {
	if dp.ID == uuid.Nil {
		dp.ID = uuid.New()
	}
	return nil
}

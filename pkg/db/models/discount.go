package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Discount is a percentage promotion applied to associated products. A
// discount only contributes to pricing while Active and inside its
// [StartsAt, EndsAt] window; nil bounds leave that side open.
type Discount struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name       string          `gorm:"column:name;not null"`
	Percentage decimal.Decimal `gorm:"column:percentage;type:numeric(5,2);not null"`
	Active     bool            `gorm:"column:active;not null;default:true"`
	StartsAt   *time.Time      `gorm:"column:starts_at"`
	EndsAt     *time.Time      `gorm:"column:ends_at"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Discount) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// InWindow reports whether the discount window contains the given instant.
func (d *Discount) InWindow(now time.Time) bool {
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return false
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return false
	}
	return true
}

// Lapsed reports whether the discount is still flagged active but its end
// bound has already passed.
func (d *Discount) Lapsed(now time.Time) bool {
	return d.Active && d.EndsAt != nil && now.After(*d.EndsAt)
}

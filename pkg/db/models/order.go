package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/merakiwear/meraki-backend/pkg/enums"
	"github.com/merakiwear/meraki-backend/pkg/types"
)

// Order is the durable record of a checkout. UserID is nil for guest orders;
// GuestEmail carries the contact address in that case. PaymobOrderID and
// PaymobPaymentToken stay nil until the gateway handshake succeeds.
type Order struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID             *uuid.UUID            `gorm:"column:user_id;type:uuid;index"`
	GuestEmail         *string               `gorm:"column:guest_email"`
	TotalAmount        decimal.Decimal       `gorm:"column:total_amount;type:numeric(10,2);not null"`
	ShippingAmount     decimal.Decimal       `gorm:"column:shipping_amount;type:numeric(10,2);not null"`
	Status             enums.OrderStatus     `gorm:"column:status;not null;default:'pending';index"`
	PaymentMethod      enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	ShippingAddress    types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymobOrderID      *string               `gorm:"column:paymob_order_id;index"`
	PaymobPaymentToken *string               `gorm:"column:paymob_payment_token"`
	Items              []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

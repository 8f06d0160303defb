package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/merakiwear/meraki-backend/pkg/db/models"
	"github.com/merakiwear/meraki-backend/pkg/enums"
	"github.com/merakiwear/meraki-backend/pkg/types"
)

// LineDTO is one order line with the price frozen at purchase time.
type LineDTO struct {
	ProductID       uuid.UUID       `json:"productId"`
	VariantID       uuid.UUID       `json:"variantId"`
	ProductName     string          `json:"productName"`
	Size            string          `json:"size"`
	Color           string          `json:"color"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	UserID          *uuid.UUID            `json:"userId,omitempty"`
	GuestEmail      *string               `json:"guestEmail,omitempty"`
	TotalAmount     decimal.Decimal       `json:"totalAmount"`
	ShippingAmount  decimal.Decimal       `json:"shippingAmount"`
	Status          enums.OrderStatus     `json:"status"`
	PaymentMethod   enums.PaymentMethod   `json:"paymentMethod"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	Items           []LineDTO             `json:"items"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// ListResult pages orders newest first.
type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ListFilters narrows the admin order listing.
type ListFilters struct {
	Status enums.OrderStatus
}

// UpdateStatusRequest is the admin fulfillment transition.
type UpdateStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

func fromModel(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		GuestEmail:      order.GuestEmail,
		TotalAmount:     order.TotalAmount,
		ShippingAmount:  order.ShippingAmount,
		Status:          order.Status,
		PaymentMethod:   order.PaymentMethod,
		ShippingAddress: order.ShippingAddress,
		Items:           make([]LineDTO, 0, len(order.Items)),
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, LineDTO{
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			ProductName:     item.ProductName,
			Size:            item.VariantSize,
			Color:           item.VariantColor,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}
	return dto
}

package checkout

import (
	"github.com/google/uuid"

	"github.com/merakiwear/meraki-backend/pkg/enums"
	"github.com/merakiwear/meraki-backend/pkg/types"
)

// ItemRequest is one untrusted cart line from the client. Prices never
// travel in the request; the engine recomputes them from the catalog.
type ItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=50"`
}

// Request is the checkout submission. Field casing matches the storefront
// client: camelCase envelope, snake_case cart line ids.
type Request struct {
	Items           []ItemRequest         `json:"cartItems" validate:"required,min=1,max=50,dive"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress" validate:"required"`
	PaymentMethod   enums.PaymentMethod   `json:"paymentMethod" validate:"required"`
}

// Response carries the order id, plus redirect material for online payments.
type Response struct {
	OrderID      uuid.UUID `json:"orderId"`
	PaymentToken string    `json:"paymentToken,omitempty"`
	IframeURL    string    `json:"iframeUrl,omitempty"`
}

package paymob

import "github.com/shopspring/decimal"

// OrderItemParams describes one line forwarded to the gateway order.
type OrderItemParams struct {
	Name        string
	AmountCents int64
	Description string
	Quantity    int
}

// BillingData carries the customer fields Paymob requires on payment keys.
// Fields the storefront does not collect are sent as "NA" per gateway rules.
type BillingData struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phone_number"`
	Street         string `json:"street"`
	City           string `json:"city"`
	State          string `json:"state"`
	PostalCode     string `json:"postal_code"`
	Country        string `json:"country"`
	Apartment      string `json:"apartment"`
	Floor          string `json:"floor"`
	Building       string `json:"building"`
	ShippingMethod string `json:"shipping_method"`
}

const billingNA = "NA"

// Normalize fills required-but-unknown billing fields with the NA sentinel.
func (b BillingData) Normalize() BillingData {
	fill := func(v string) string {
		if v == "" {
			return billingNA
		}
		return v
	}
	b.FirstName = fill(b.FirstName)
	b.LastName = fill(b.LastName)
	b.Email = fill(b.Email)
	b.PhoneNumber = fill(b.PhoneNumber)
	b.Street = fill(b.Street)
	b.City = fill(b.City)
	b.State = fill(b.State)
	b.PostalCode = fill(b.PostalCode)
	b.Country = fill(b.Country)
	b.Apartment = fill(b.Apartment)
	b.Floor = fill(b.Floor)
	b.Building = fill(b.Building)
	b.ShippingMethod = fill(b.ShippingMethod)
	return b
}

// CreatePaymentParams drives the full auth/order/payment-key handshake.
type CreatePaymentParams struct {
	MerchantOrderID string
	AmountCents     int64
	Items           []OrderItemParams
	Billing         BillingData
}

// PaymentSession is the result of a completed handshake.
type PaymentSession struct {
	GatewayOrderID int64
	PaymentToken   string
	IframeURL      string
}

// ToCents converts a major-unit decimal amount to integer cents.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

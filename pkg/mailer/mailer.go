package mailer

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderLine is one item summarized in a notification email.
type OrderLine struct {
	ProductName string
	Size        string
	Color       string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// OrderNotification carries everything the templates need.
type OrderNotification struct {
	OrderID       string
	CustomerName  string
	CustomerEmail string
	PaymentMethod string
	TotalAmount   decimal.Decimal
	Lines         []OrderLine
}

// Sender delivers transactional mail. Implementations must be safe for
// concurrent use.
type Sender interface {
	SendOrderPlaced(ctx context.Context, n OrderNotification) error
}

package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/merakiwear/meraki-backend/internal/cart"
	"github.com/merakiwear/meraki-backend/internal/orders"
	"github.com/merakiwear/meraki-backend/pkg/db/models"
	"github.com/merakiwear/meraki-backend/pkg/enums"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/logger"
	"github.com/merakiwear/meraki-backend/pkg/mailer"
	"github.com/merakiwear/meraki-backend/pkg/metrics"
)

// Outcome labels reported on the webhook counter.
const (
	outcomeCompleted = "completed"
	outcomeCancelled = "cancelled"
	outcomeIgnored   = "ignored"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
)

// PaymobPayload is the subset of the gateway callback the reconciler needs.
// OrderID is the merchant correlation id (our order id); GatewayOrderID is
// Paymob's own order reference, used as a fallback lookup.
type PaymobPayload struct {
	OrderID        string `json:"order_id"`
	GatewayOrderID int64  `json:"paymob_order_id"`
	Status         string `json:"status"`
	AmountCents    int64  `json:"amount_cents"`
}

type signatureVerifier interface {
	VerifySignature(rawBody []byte, signature string) bool
}

// PaymobReconciler applies asynchronous payment results to orders.
type PaymobReconciler struct {
	verifier signatureVerifier
	orders   *orders.Repository
	cart     *cart.Repository
	mail     mailer.Sender
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// PaymobReconcilerParams bundles the reconciler dependencies. Metrics may
// be nil.
type PaymobReconcilerParams struct {
	Verifier signatureVerifier
	Orders   *orders.Repository
	Cart     *cart.Repository
	Mailer   mailer.Sender
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
}

func NewPaymobReconciler(params PaymobReconcilerParams) (*PaymobReconciler, error) {
	if params.Verifier == nil {
		return nil, errors.New("signature verifier is required")
	}
	if params.Orders == nil {
		return nil, errors.New("order repository is required")
	}
	if params.Cart == nil {
		return nil, errors.New("cart repository is required")
	}
	if params.Mailer == nil {
		params.Mailer = mailer.Noop{}
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &PaymobReconciler{
		verifier: params.Verifier,
		orders:   params.Orders,
		cart:     params.Cart,
		mail:     params.Mailer,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Process verifies and applies one webhook delivery. The raw body must be
// the exact bytes the gateway signed.
func (r *PaymobReconciler) Process(ctx context.Context, rawBody []byte, signature string) error {
	if signature == "" || !r.verifier.VerifySignature(rawBody, signature) {
		r.metrics.IncWebhook(outcomeRejected)
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}

	var payload PaymobPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		r.metrics.IncWebhook(outcomeRejected)
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	if payload.OrderID == "" && payload.GatewayOrderID == 0 {
		r.metrics.IncWebhook(outcomeRejected)
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing order reference")
	}

	order, err := r.findOrder(ctx, payload)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.metrics.IncWebhook(outcomeRejected)
			return pkgerrors.New(pkgerrors.CodeValidation, "webhook references unknown order")
		}
		r.metrics.IncWebhook(outcomeRejected)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}

	orderCtx := r.logg.WithOrderID(ctx, order.ID.String())

	// Replays of a settled result must not rewrite status or re-run the
	// completion side effects.
	if order.Status.IsTerminal() {
		r.metrics.IncWebhook(outcomeDuplicate)
		r.logg.Info(orderCtx, "webhook replay for settled order ignored")
		return nil
	}

	next, ok := mapGatewayStatus(payload.Status)
	if !ok {
		r.metrics.IncWebhook(outcomeIgnored)
		r.logg.Info(r.logg.WithField(orderCtx, "gateway_status", payload.Status), "webhook status leaves order pending")
		return nil
	}

	if err := r.orders.UpdateStatus(ctx, order.ID, next); err != nil {
		r.metrics.IncWebhook(outcomeRejected)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}

	if next == enums.OrderStatusCompleted {
		r.metrics.IncWebhook(outcomeCompleted)
		r.completeOrder(orderCtx, order)
	} else {
		r.metrics.IncWebhook(outcomeCancelled)
	}

	r.logg.Info(r.logg.WithField(orderCtx, "status", string(next)), "webhook reconciled order")
	return nil
}

func (r *PaymobReconciler) findOrder(ctx context.Context, payload PaymobPayload) (*models.Order, error) {
	if payload.OrderID != "" {
		if id, err := uuid.Parse(payload.OrderID); err == nil {
			return r.orders.FindByID(ctx, id)
		}
		// Some gateway events carry their own order id in this field.
		return r.orders.FindByPaymobOrderID(ctx, payload.OrderID)
	}
	return r.orders.FindByPaymobOrderID(ctx, strconv.FormatInt(payload.GatewayOrderID, 10))
}

// completeOrder runs the best-effort side effects of a successful payment.
// Failures are logged, never surfaced to the gateway.
func (r *PaymobReconciler) completeOrder(ctx context.Context, order *models.Order) {
	var errs error
	if order.UserID != nil {
		errs = multierr.Append(errs, r.cart.Clear(ctx, *order.UserID))
	}
	errs = multierr.Append(errs, r.mail.SendOrderPlaced(ctx, notificationFor(order)))
	if errs != nil {
		r.logg.Error(ctx, "post-payment side effects incomplete", errs)
	}
}

func notificationFor(order *models.Order) mailer.OrderNotification {
	n := mailer.OrderNotification{
		OrderID:       order.ID.String(),
		CustomerName:  strings.TrimSpace(order.ShippingAddress.FirstName + " " + order.ShippingAddress.LastName),
		CustomerEmail: order.ShippingAddress.Email,
		PaymentMethod: string(order.PaymentMethod),
		TotalAmount:   order.TotalAmount,
	}
	for _, item := range order.Items {
		n.Lines = append(n.Lines, mailer.OrderLine{
			ProductName: item.ProductName,
			Size:        item.VariantSize,
			Color:       item.VariantColor,
			Quantity:    item.Quantity,
			UnitPrice:   item.PriceAtPurchase,
		})
	}
	return n
}

func mapGatewayStatus(status string) (enums.OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "paid":
		return enums.OrderStatusCompleted, true
	case "failed", "cancelled", "canceled", "declined":
		return enums.OrderStatusCancelled, true
	default:
		return "", false
	}
}

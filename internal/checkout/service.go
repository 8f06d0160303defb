package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/merakiwear/meraki-backend/internal/cart"
	"github.com/merakiwear/meraki-backend/internal/catalog"
	"github.com/merakiwear/meraki-backend/internal/orders"
	"github.com/merakiwear/meraki-backend/internal/pricing"
	"github.com/merakiwear/meraki-backend/pkg/db/models"
	"github.com/merakiwear/meraki-backend/pkg/enums"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/logger"
	"github.com/merakiwear/meraki-backend/pkg/mailer"
	"github.com/merakiwear/meraki-backend/pkg/metrics"
	"github.com/merakiwear/meraki-backend/pkg/paymob"
	"github.com/merakiwear/meraki-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type quoter interface {
	PriceOrder(ctx context.Context, items []pricing.QuoteItem) (*pricing.Quote, error)
}

type paymentGateway interface {
	CreatePayment(ctx context.Context, params paymob.CreatePaymentParams) (*paymob.PaymentSession, error)
}

// Service runs the checkout pipeline end to end.
type Service interface {
	Checkout(ctx context.Context, userID *uuid.UUID, req Request) (*Response, error)
}

type service struct {
	tx      txRunner
	engine  quoter
	catalog *catalog.Repository
	orders  *orders.Repository
	cart    *cart.Repository
	gateway paymentGateway
	mail    mailer.Sender
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// ServiceParams bundles the checkout dependencies. Metrics may be nil.
type ServiceParams struct {
	Tx      txRunner
	Engine  quoter
	Catalog *catalog.Repository
	Orders  *orders.Repository
	Cart    *cart.Repository
	Gateway paymentGateway
	Mailer  mailer.Sender
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

// NewService constructs the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if params.Engine == nil {
		return nil, errors.New("pricing engine is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog repository is required")
	}
	if params.Orders == nil {
		return nil, errors.New("order repository is required")
	}
	if params.Cart == nil {
		return nil, errors.New("cart repository is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("payment gateway is required")
	}
	if params.Mailer == nil {
		params.Mailer = mailer.Noop{}
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:      params.Tx,
		engine:  params.Engine,
		catalog: params.Catalog,
		orders:  params.Orders,
		cart:    params.Cart,
		gateway: params.Gateway,
		mail:    params.Mailer,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) Checkout(ctx context.Context, userID *uuid.UUID, req Request) (*Response, error) {
	started := s.now()
	resp, err := s.checkout(ctx, userID, req)
	method := string(req.PaymentMethod)
	s.metrics.ObserveDuration(method, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(failureReason(err))
		return nil, err
	}
	s.metrics.IncOrder(method)
	return resp, nil
}

func (s *service) checkout(ctx context.Context, userID *uuid.UUID, req Request) (*Response, error) {
	if !req.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", req.PaymentMethod))
	}

	quoteItems := make([]pricing.QuoteItem, 0, len(req.Items))
	for _, item := range req.Items {
		quoteItems = append(quoteItems, pricing.QuoteItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}

	// The quote is the only price source from here on. Anything the client
	// sent beyond ids and quantities has already been discarded.
	quote, err := s.engine.PriceOrder(ctx, quoteItems)
	if err != nil {
		return nil, err
	}

	order := buildOrder(userID, req, quote)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogTx := s.catalog.WithTx(tx)
		for _, line := range quote.Lines {
			ok, reserveErr := catalogTx.ReserveStock(ctx, line.VariantID, line.Quantity)
			if reserveErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, reserveErr, "reserve stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("insufficient stock for %s (%s/%s)", line.ProductName, line.Size, line.Color))
			}
		}
		if createErr := s.orders.WithTx(tx).Create(ctx, order); createErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, createErr, "persist order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	orderCtx := s.logg.WithOrderID(ctx, order.ID.String())

	if req.PaymentMethod == enums.PaymentMethodCOD {
		s.clearCart(orderCtx, userID)
		s.notify(orderCtx, order, quote)
		s.logg.Info(orderCtx, "cash order placed")
		return &Response{OrderID: order.ID}, nil
	}

	session, err := s.gateway.CreatePayment(ctx, paymentParams(order, quote, req.ShippingAddress))
	if err != nil {
		// No payment was taken. The order stays pending with empty gateway
		// fields and its stock reservation intact.
		s.logg.Error(orderCtx, "payment handshake failed, order left pending", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable, please retry")
	}

	gatewayOrderID := strconv.FormatInt(session.GatewayOrderID, 10)
	if err := s.orders.UpdateGatewayFields(ctx, order.ID, gatewayOrderID, session.PaymentToken); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record gateway fields")
	}

	s.logg.Info(orderCtx, "online order awaiting payment")
	return &Response{
		OrderID:      order.ID,
		PaymentToken: session.PaymentToken,
		IframeURL:    session.IframeURL,
	}, nil
}

func buildOrder(userID *uuid.UUID, req Request, quote *pricing.Quote) *models.Order {
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		TotalAmount:     quote.Total,
		ShippingAmount:  quote.Shipping,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
	}
	if userID == nil {
		email := strings.TrimSpace(strings.ToLower(req.ShippingAddress.Email))
		order.GuestEmail = &email
	}
	for _, line := range quote.Lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:       line.ProductID,
			VariantID:       line.VariantID,
			ProductName:     line.ProductName,
			VariantSize:     line.Size,
			VariantColor:    line.Color,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.UnitPrice,
		})
	}
	return order
}

func paymentParams(order *models.Order, quote *pricing.Quote, addr types.ShippingAddress) paymob.CreatePaymentParams {
	items := make([]paymob.OrderItemParams, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		items = append(items, paymob.OrderItemParams{
			Name:        line.ProductName,
			AmountCents: paymob.ToCents(line.UnitPrice),
			Description: fmt.Sprintf("%s / %s", line.Size, line.Color),
			Quantity:    line.Quantity,
		})
	}
	return paymob.CreatePaymentParams{
		MerchantOrderID: order.ID.String(),
		AmountCents:     paymob.ToCents(quote.Total),
		Items:           items,
		Billing: paymob.BillingData{
			FirstName:   addr.FirstName,
			LastName:    addr.LastName,
			Email:       addr.Email,
			PhoneNumber: addr.Phone,
			Street:      addr.Address,
			City:        addr.City,
			State:       addr.State,
			PostalCode:  addr.ZipCode,
			Country:     addr.CountryOrDefault(),
		},
	}
}

func (s *service) clearCart(ctx context.Context, userID *uuid.UUID) {
	if userID == nil {
		return
	}
	if err := s.cart.Clear(ctx, *userID); err != nil {
		s.logg.Error(ctx, "cart clear after checkout failed", err)
	}
}

func (s *service) notify(ctx context.Context, order *models.Order, quote *pricing.Quote) {
	n := mailer.OrderNotification{
		OrderID:       order.ID.String(),
		CustomerName:  strings.TrimSpace(order.ShippingAddress.FirstName + " " + order.ShippingAddress.LastName),
		CustomerEmail: order.ShippingAddress.Email,
		PaymentMethod: string(order.PaymentMethod),
		TotalAmount:   quote.Total,
	}
	for _, line := range quote.Lines {
		n.Lines = append(n.Lines, mailer.OrderLine{
			ProductName: line.ProductName,
			Size:        line.Size,
			Color:       line.Color,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	if err := s.mail.SendOrderPlaced(ctx, n); err != nil {
		s.logg.Error(ctx, "order notification failed", err)
	}
}

func failureReason(err error) string {
	if domainErr := pkgerrors.As(err); domainErr != nil {
		return string(domainErr.Code())
	}
	return "internal"
}

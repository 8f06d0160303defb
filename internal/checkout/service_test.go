package checkout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/merakiwear/meraki-backend/internal/cart"
	"github.com/merakiwear/meraki-backend/internal/catalog"
	"github.com/merakiwear/meraki-backend/internal/discounts"
	"github.com/merakiwear/meraki-backend/internal/orders"
	"github.com/merakiwear/meraki-backend/internal/pricing"
	"github.com/merakiwear/meraki-backend/pkg/config"
	"github.com/merakiwear/meraki-backend/pkg/db/models"
	"github.com/merakiwear/meraki-backend/pkg/enums"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/logger"
	"github.com/merakiwear/meraki-backend/pkg/mailer"
	"github.com/merakiwear/meraki-backend/pkg/paymob"
	"github.com/merakiwear/meraki-backend/pkg/types"
)

type gormTx struct {
	db *gorm.DB
}

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type stubGateway struct {
	session *paymob.PaymentSession
	err     error
	calls   int
	params  paymob.CreatePaymentParams
}

func (s *stubGateway) CreatePayment(_ context.Context, params paymob.CreatePaymentParams) (*paymob.PaymentSession, error) {
	s.calls++
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

type recordingMailer struct {
	sent []mailer.OrderNotification
}

func (m *recordingMailer) SendOrderPlaced(_ context.Context, n mailer.OrderNotification) error {
	m.sent = append(m.sent, n)
	return nil
}

type fixture struct {
	db      *gorm.DB
	svc     Service
	gateway *stubGateway
	mail    *recordingMailer
	orders  *orders.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.ProductVariant{},
		&models.Discount{},
		&models.DiscountProduct{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))

	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
	catalogRepo := catalog.NewRepository(db)
	discountRepo := discounts.NewRepository(db)

	resolver, err := discounts.NewResolver(discountRepo, logg)
	require.NoError(t, err)

	engine, err := pricing.NewEngine(pricing.EngineParams{
		Catalog:   catalogRepo,
		Discounts: resolver,
		Shipping: config.ShippingConfig{
			Policy:        config.ShippingPolicyThreshold,
			FlatFee:       decimal.NewFromInt(50),
			FreeThreshold: decimal.NewFromInt(500),
		},
	})
	require.NoError(t, err)

	gateway := &stubGateway{session: &paymob.PaymentSession{
		GatewayOrderID: 987654,
		PaymentToken:   "tok-abc",
		IframeURL:      "https://accept.paymob.com/api/acceptance/iframes/77?payment_token=tok-abc",
	}}
	mail := &recordingMailer{}
	orderRepo := orders.NewRepository(db)

	svc, err := NewService(ServiceParams{
		Tx:      gormTx{db: db},
		Engine:  engine,
		Catalog: catalogRepo,
		Orders:  orderRepo,
		Cart:    cart.NewRepository(db),
		Gateway: gateway,
		Mailer:  mail,
		Logger:  logg,
	})
	require.NoError(t, err)

	return &fixture{db: db, svc: svc, gateway: gateway, mail: mail, orders: orderRepo}
}

func (f *fixture) seedProduct(t *testing.T, stock int) (*models.Product, *models.ProductVariant) {
	t.Helper()
	product := &models.Product{
		Name:      "Oversized Hoodie",
		BasePrice: decimal.NewFromInt(1000),
		Category:  "hoodies",
		IsActive:  true,
		Variants: []models.ProductVariant{
			{Size: "M", Color: "White", PriceAdjustment: decimal.NewFromInt(50), StockQuantity: stock},
		},
	}
	require.NoError(t, f.db.Create(product).Error)
	return product, &product.Variants[0]
}

func (f *fixture) seedDiscount(t *testing.T, productID uuid.UUID, pct int64) {
	t.Helper()
	discount := &models.Discount{
		Name:       "Launch",
		Percentage: decimal.NewFromInt(pct),
		Active:     true,
	}
	require.NoError(t, f.db.Create(discount).Error)
	require.NoError(t, f.db.Create(&models.DiscountProduct{
		DiscountID: discount.ID,
		ProductID:  productID,
	}).Error)
}

func (f *fixture) stockOf(t *testing.T, variantID uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	require.NoError(t, f.db.First(&variant, "id = ?", variantID).Error)
	return variant.StockQuantity
}

func shippingForm() types.ShippingAddress {
	return types.ShippingAddress{
		FirstName: "Nour",
		LastName:  "Hassan",
		Email:     "nour@example.com",
		Phone:     "+201000000000",
		Address:   "12 Tahrir St",
		City:      "Cairo",
		Country:   "EG",
	}
}

func TestCheckoutCODFreezesDiscountedPrices(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	product, variant := f.seedProduct(t, 5)
	f.seedDiscount(t, product.ID, 20)

	userID := uuid.New()
	require.NoError(t, f.db.Create(&models.CartItem{
		UserID:    userID,
		ProductID: product.ID,
		VariantID: variant.ID,
		Quantity:  2,
	}).Error)

	resp, err := f.svc.Checkout(ctx, &userID, Request{
		Items:           []ItemRequest{{ProductID: product.ID, VariantID: variant.ID, Quantity: 2}},
		ShippingAddress: shippingForm(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.PaymentToken)
	assert.Empty(t, resp.IframeURL)
	assert.Zero(t, f.gateway.calls, "cash orders never touch the gateway")

	order, err := f.orders.FindByID(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Nil(t, order.PaymobOrderID)
	require.Len(t, order.Items, 1)
	// (1000 + 50) * 0.8 frozen per unit, regardless of later price changes.
	assert.True(t, order.Items[0].PriceAtPurchase.Equal(decimal.NewFromInt(840)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1680)), "1680 clears free shipping")

	assert.Equal(t, 3, f.stockOf(t, variant.ID))

	var cartCount int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&cartCount).Error)
	assert.Zero(t, cartCount, "cart is cleared after a cash order")

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, resp.OrderID.String(), f.mail.sent[0].OrderID)
}

func TestCheckoutPriceAtPurchaseSurvivesLaterChanges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	product, variant := f.seedProduct(t, 5)

	resp, err := f.svc.Checkout(ctx, nil, Request{
		Items:           []ItemRequest{{ProductID: product.ID, VariantID: variant.ID, Quantity: 1}},
		ShippingAddress: shippingForm(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("base_price", decimal.NewFromInt(2000)).Error)

	order, err := f.orders.FindByID(ctx, resp.OrderID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].PriceAtPurchase.Equal(decimal.NewFromInt(1050)))
}

func TestCheckoutGuestOrderRecordsEmail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	product, variant := f.seedProduct(t, 2)

	resp, err := f.svc.Checkout(ctx, nil, Request{
		Items:           []ItemRequest{{ProductID: product.ID, VariantID: variant.ID, Quantity: 1}},
		ShippingAddress: shippingForm(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	order, err := f.orders.FindByID(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Nil(t, order.UserID)
	require.NotNil(t, order.GuestEmail)
	assert.Equal(t, "nour@example.com", *order.GuestEmail)
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	product, variant := f.seedProduct(t, 2)

	_, err := f.svc.Checkout(ctx, nil, Request{
		Items:           []ItemRequest{{ProductID: product.ID, VariantID: variant.ID, Quantity: 3}},
		ShippingAddress: shippingForm(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, domainErr.Code())
	assert.Contains(t, domainErr.Message(), "insufficient stock")

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
	assert.Equal(t, 2, f.stockOf(t, variant.ID))
}

func TestCheckoutExactStockBoundary(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	product, variant := f.seedProduct(t, 3)

	_, err := f.svc.Checkout(ctx, nil, Request{
		Items:           []ItemRequest{{ProductID: product.ID, VariantID: variant.ID, Quantity: 3}},
		ShippingAddress: shippingForm(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.stockOf(t, variant.ID))
}

func TestCheckoutRejectsMismatchedVariant(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	productA, _ := f.seedProduct(t, 5)
	_, variantB := f.seedProduct(t, 5)

	_, err := f.svc.Checkout(ctx, nil, Request{
		Items:           []ItemRequest{{ProductID: productA.ID, VariantID: variantB.ID, Quantity: 1}},
		ShippingAddress: shippingForm(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCheckoutOnlineRecordsGatewayFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	product, variant := f.seedProduct(t, 5)
	f.seedDiscount(t, product.ID, 20)

	resp, err := f.svc.Checkout(ctx, nil, Request{
		Items:           []ItemRequest{{ProductID: product.ID, VariantID: variant.ID, Quantity: 1}},
		ShippingAddress: shippingForm(),
		PaymentMethod:   enums.PaymentMethodOnline,
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", resp.PaymentToken)
	assert.Contains(t, resp.IframeURL, "payment_token=tok-abc")

	require.Equal(t, 1, f.gateway.calls)
	assert.Equal(t, resp.OrderID.String(), f.gateway.params.MerchantOrderID)
	assert.Equal(t, int64(84000), f.gateway.params.AmountCents, "gateway gets the server total in cents")

	order, err := f.orders.FindByID(ctx, resp.OrderID)
	require.NoError(t, err)
	require.NotNil(t, order.PaymobOrderID)
	assert.Equal(t, "987654", *order.PaymobOrderID)
	require.NotNil(t, order.PaymobPaymentToken)
	assert.Equal(t, "tok-abc", *order.PaymobPaymentToken)
	assert.Empty(t, f.mail.sent, "online orders notify on webhook completion")
}

func TestCheckoutOnlineHandshakeFailureLeavesPendingOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	product, variant := f.seedProduct(t, 5)
	f.gateway.err = errors.New("paymob timeout")

	_, err := f.svc.Checkout(ctx, nil, Request{
		Items:           []ItemRequest{{ProductID: product.ID, VariantID: variant.ID, Quantity: 1}},
		ShippingAddress: shippingForm(),
		PaymentMethod:   enums.PaymentMethodOnline,
	})
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeDependency, domainErr.Code())

	var order models.Order
	require.NoError(t, f.db.First(&order).Error)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Nil(t, order.PaymobOrderID)
	assert.Nil(t, order.PaymobPaymentToken)
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	product, variant := f.seedProduct(t, 5)

	_, err := f.svc.Checkout(context.Background(), nil, Request{
		Items:           []ItemRequest{{ProductID: product.ID, VariantID: variant.ID, Quantity: 1}},
		ShippingAddress: shippingForm(),
		PaymentMethod:   "crypto",
	})
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
}

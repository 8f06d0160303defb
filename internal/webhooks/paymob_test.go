package webhooks

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/merakiwear/meraki-backend/internal/cart"
	"github.com/merakiwear/meraki-backend/internal/orders"
	"github.com/merakiwear/meraki-backend/pkg/db/models"
	"github.com/merakiwear/meraki-backend/pkg/enums"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/logger"
	"github.com/merakiwear/meraki-backend/pkg/mailer"
	"github.com/merakiwear/meraki-backend/pkg/types"
)

type stubVerifier struct {
	valid bool
}

func (s stubVerifier) VerifySignature([]byte, string) bool { return s.valid }

type countingMailer struct {
	sent []mailer.OrderNotification
}

func (m *countingMailer) SendOrderPlaced(_ context.Context, n mailer.OrderNotification) error {
	m.sent = append(m.sent, n)
	return nil
}

type fixture struct {
	db   *gorm.DB
	rec  *PaymobReconciler
	mail *countingMailer
}

func newFixture(t *testing.T, validSignature bool) *fixture {
	t.Helper()

	dsn := "file:webhooks_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.CartItem{}))

	mail := &countingMailer{}
	rec, err := NewPaymobReconciler(PaymobReconcilerParams{
		Verifier: stubVerifier{valid: validSignature},
		Orders:   orders.NewRepository(db),
		Cart:     cart.NewRepository(db),
		Mailer:   mail,
		Logger:   logger.New(logger.Options{ServiceName: "webhooks-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return &fixture{db: db, rec: rec, mail: mail}
}

func (f *fixture) seedOrder(t *testing.T, userID *uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:         userID,
		TotalAmount:    decimal.NewFromInt(840),
		ShippingAmount: decimal.Zero,
		Status:         status,
		PaymentMethod:  enums.PaymentMethodOnline,
		ShippingAddress: types.ShippingAddress{
			FirstName: "Nour",
			LastName:  "Hassan",
			Email:     "nour@example.com",
		},
		Items: []models.OrderItem{
			{
				ProductID:       uuid.New(),
				VariantID:       uuid.New(),
				ProductName:     "Oversized Hoodie",
				VariantSize:     "M",
				VariantColor:    "White",
				Quantity:        1,
				PriceAtPurchase: decimal.NewFromInt(840),
			},
		},
	}
	require.NoError(t, f.db.Create(order).Error)
	return order
}

func (f *fixture) statusOf(t *testing.T, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", id).Error)
	return order.Status
}

func payloadFor(orderID uuid.UUID, status string) []byte {
	return []byte(fmt.Sprintf(`{"order_id":%q,"status":%q,"amount_cents":84000}`, orderID, status))
}

func TestProcessRejectsBadSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	order := f.seedOrder(t, nil, enums.OrderStatusPending)

	err := f.rec.Process(context.Background(), payloadFor(order.ID, "success"), "deadbeef")
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, domainErr.Code())
	assert.Equal(t, enums.OrderStatusPending, f.statusOf(t, order.ID), "status untouched on bad signature")
}

func TestProcessRejectsMissingSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	order := f.seedOrder(t, nil, enums.OrderStatusPending)

	err := f.rec.Process(context.Background(), payloadFor(order.ID, "success"), "")
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, domainErr.Code())
}

func TestProcessCompletesOrderAndClearsCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	userID := uuid.New()
	order := f.seedOrder(t, &userID, enums.OrderStatusPending)
	require.NoError(t, f.db.Create(&models.CartItem{
		UserID:    userID,
		ProductID: uuid.New(),
		VariantID: uuid.New(),
		Quantity:  2,
	}).Error)

	require.NoError(t, f.rec.Process(context.Background(), payloadFor(order.ID, "success"), "sig"))
	assert.Equal(t, enums.OrderStatusCompleted, f.statusOf(t, order.ID))

	var cartCount int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&cartCount).Error)
	assert.Zero(t, cartCount)

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, order.ID.String(), f.mail.sent[0].OrderID)
	assert.True(t, f.mail.sent[0].TotalAmount.Equal(decimal.NewFromInt(840)))
}

func TestProcessCancelsFailedPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	order := f.seedOrder(t, nil, enums.OrderStatusPending)

	require.NoError(t, f.rec.Process(context.Background(), payloadFor(order.ID, "failed"), "sig"))
	assert.Equal(t, enums.OrderStatusCancelled, f.statusOf(t, order.ID))
	assert.Empty(t, f.mail.sent)
}

func TestProcessReplayIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	userID := uuid.New()
	order := f.seedOrder(t, &userID, enums.OrderStatusPending)

	require.NoError(t, f.rec.Process(context.Background(), payloadFor(order.ID, "success"), "sig"))
	require.Len(t, f.mail.sent, 1)

	// The replay must not re-run completion side effects.
	require.NoError(t, f.rec.Process(context.Background(), payloadFor(order.ID, "success"), "sig"))
	assert.Equal(t, enums.OrderStatusCompleted, f.statusOf(t, order.ID))
	assert.Len(t, f.mail.sent, 1)
}

func TestProcessUnknownStatusLeavesPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	order := f.seedOrder(t, nil, enums.OrderStatusPending)

	require.NoError(t, f.rec.Process(context.Background(), payloadFor(order.ID, "on_hold"), "sig"))
	assert.Equal(t, enums.OrderStatusPending, f.statusOf(t, order.ID))
}

func TestProcessFindsOrderByGatewayReference(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	order := f.seedOrder(t, nil, enums.OrderStatusPending)
	gatewayID := "987654"
	require.NoError(t, f.db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("paymob_order_id", gatewayID).Error)

	body := []byte(`{"paymob_order_id":987654,"status":"paid","amount_cents":84000}`)
	require.NoError(t, f.rec.Process(context.Background(), body, "sig"))
	assert.Equal(t, enums.OrderStatusCompleted, f.statusOf(t, order.ID))
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)

	err := f.rec.Process(context.Background(), []byte(`not-json`), "sig")
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())

	err = f.rec.Process(context.Background(), []byte(`{"status":"success"}`), "sig")
	require.Error(t, err)
	domainErr = pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
}

func TestProcessUnknownOrderRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)

	err := f.rec.Process(context.Background(), payloadFor(uuid.New(), "success"), "sig")
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
}

package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/merakiwear/meraki-backend/pkg/db/models"
	"github.com/merakiwear/meraki-backend/pkg/enums"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/logger"
	"github.com/merakiwear/meraki-backend/pkg/pagination"
	"github.com/merakiwear/meraki-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(db),
		Logger: logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, db *gorm.DB, userID *uuid.UUID, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:         userID,
		TotalAmount:    decimal.NewFromInt(890),
		ShippingAmount: decimal.NewFromInt(50),
		Status:         status,
		PaymentMethod:  enums.PaymentMethodCOD,
		ShippingAddress: types.ShippingAddress{
			FirstName: "Nour",
			LastName:  "Hassan",
			Email:     "nour@example.com",
			Address:   "12 Tahrir St",
			City:      "Cairo",
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
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestGetForUserScopesOwnership(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	intruder := uuid.New()
	order := seedOrder(t, db, &owner, enums.OrderStatusPending, time.Now().UTC())

	got, err := svc.GetForUser(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].PriceAtPurchase.Equal(decimal.NewFromInt(840)))

	_, err = svc.GetForUser(ctx, intruder, order.ID)
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}

func TestListForUserPagesNewestFirst(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	other := uuid.New()
	base := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		seedOrder(t, db, &owner, enums.OrderStatusPending, base.Add(time.Duration(i)*time.Minute))
	}
	seedOrder(t, db, &other, enums.OrderStatusPending, base.Add(time.Hour))

	first, err := svc.ListForUser(ctx, owner, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Orders, 3)
	require.NotEmpty(t, first.NextCursor)
	assert.True(t, first.Orders[0].CreatedAt.After(first.Orders[1].CreatedAt))

	second, err := svc.ListForUser(ctx, owner, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Empty(t, second.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, o := range append(first.Orders, second.Orders...) {
		assert.False(t, seen[o.ID], "order %s returned twice", o.ID)
		seen[o.ID] = true
		require.NotNil(t, o.UserID)
		assert.Equal(t, owner, *o.UserID)
	}
}

func TestAdminListFiltersByStatus(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	now := time.Now().UTC()
	seedOrder(t, db, &owner, enums.OrderStatusPending, now)
	seedOrder(t, db, &owner, enums.OrderStatusCompleted, now.Add(time.Minute))
	seedOrder(t, db, nil, enums.OrderStatusCompleted, now.Add(2*time.Minute))

	result, err := svc.List(ctx, pagination.Params{}, ListFilters{Status: enums.OrderStatusCompleted})
	require.NoError(t, err)
	require.Len(t, result.Orders, 2)
	for _, o := range result.Orders {
		assert.Equal(t, enums.OrderStatusCompleted, o.Status)
	}

	_, err = svc.List(ctx, pagination.Params{}, ListFilters{Status: "refunded"})
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	order := seedOrder(t, db, &owner, enums.OrderStatusPending, time.Now().UTC())

	got, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, got.Status)

	got, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, got.Status)

	// Shipped can only complete.
	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPending)
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, domainErr.Code())

	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted)
	require.NoError(t, err)

	// Terminal orders reject further moves.
	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled)
	require.Error(t, err)
	domainErr = pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, domainErr.Code())
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), enums.OrderStatusProcessing)
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}

package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/merakiwear/meraki-backend/internal/auth"
	"github.com/merakiwear/meraki-backend/internal/cart"
	"github.com/merakiwear/meraki-backend/internal/catalog"
	checkoutsvc "github.com/merakiwear/meraki-backend/internal/checkout"
	"github.com/merakiwear/meraki-backend/internal/discounts"
	"github.com/merakiwear/meraki-backend/internal/orders"
	"github.com/merakiwear/meraki-backend/internal/users"
	pkgauth "github.com/merakiwear/meraki-backend/pkg/auth"
	"github.com/merakiwear/meraki-backend/pkg/config"
	"github.com/merakiwear/meraki-backend/pkg/enums"
	"github.com/merakiwear/meraki-backend/pkg/logger"
	"github.com/merakiwear/meraki-backend/pkg/pagination"
	"github.com/merakiwear/meraki-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	return &auth.AuthResponse{}, nil
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	return &auth.AuthResponse{}, nil
}

type stubCatalogService struct{}

func (stubCatalogService) List(ctx context.Context, params pagination.Params, filters catalog.ListFilters) (*catalog.ListResult, error) {
	return &catalog.ListResult{}, nil
}

func (stubCatalogService) GetDetail(ctx context.Context, id uuid.UUID, includeInactive bool) (*catalog.ProductDetail, error) {
	return &catalog.ProductDetail{}, nil
}

// Create implements [catalog.Service].
func (stubCatalogService) Create(ctx context.Context, req catalog.CreateProductRequest) (*catalog.ProductDetail, error) {
	panic("unimplemented")
}

// Update implements [catalog.Service].
func (stubCatalogService) Update(ctx context.Context, id uuid.UUID, req catalog.UpdateProductRequest) (*catalog.ProductDetail, error) {
	panic("unimplemented")
}

// Delete implements [catalog.Service].
func (stubCatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

// AddVariant implements [catalog.Service].
func (stubCatalogService) AddVariant(ctx context.Context, productID uuid.UUID, req catalog.CreateVariantRequest) (*catalog.VariantDTO, error) {
	panic("unimplemented")
}

// UpdateVariant implements [catalog.Service].
func (stubCatalogService) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, req catalog.UpdateVariantRequest) (*catalog.VariantDTO, error) {
	panic("unimplemented")
}

// RemoveVariant implements [catalog.Service].
func (stubCatalogService) RemoveVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	panic("unimplemented")
}

type stubDiscountsService struct{}

func (stubDiscountsService) Query(ctx context.Context, req discounts.QueryRequest) (*discounts.QueryResponse, error) {
	return &discounts.QueryResponse{}, nil
}

// Create implements [discounts.Service].
func (stubDiscountsService) Create(ctx context.Context, req discounts.CreateDiscountRequest) (*discounts.DiscountDTO, error) {
	panic("unimplemented")
}

// Update implements [discounts.Service].
func (stubDiscountsService) Update(ctx context.Context, id uuid.UUID, req discounts.UpdateDiscountRequest) (*discounts.DiscountDTO, error) {
	panic("unimplemented")
}

// Delete implements [discounts.Service].
func (stubDiscountsService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

// Get implements [discounts.Service].
func (stubDiscountsService) Get(ctx context.Context, id uuid.UUID) (*discounts.DiscountDTO, error) {
	panic("unimplemented")
}

func (stubDiscountsService) List(ctx context.Context) ([]discounts.DiscountDTO, error) {
	return nil, nil
}

// AssignProducts implements [discounts.Service].
func (stubDiscountsService) AssignProducts(ctx context.Context, id uuid.UUID, req discounts.AssignRequest) (*discounts.DiscountDTO, error) {
	panic("unimplemented")
}

// RemoveProducts implements [discounts.Service].
func (stubDiscountsService) RemoveProducts(ctx context.Context, id uuid.UUID, req discounts.AssignRequest) (*discounts.DiscountDTO, error) {
	panic("unimplemented")
}

// AssignAllProducts implements [discounts.Service].
func (stubDiscountsService) AssignAllProducts(ctx context.Context, id uuid.UUID) (*discounts.DiscountDTO, error) {
	panic("unimplemented")
}

// RemoveAllProducts implements [discounts.Service].
func (stubDiscountsService) RemoveAllProducts(ctx context.Context, id uuid.UUID) (*discounts.DiscountDTO, error) {
	panic("unimplemented")
}

type stubCartService struct{}

func (stubCartService) Get(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

// Add implements [cart.Service].
func (stubCartService) Add(ctx context.Context, userID uuid.UUID, req cart.AddRequest) (*cart.CartDTO, error) {
	panic("unimplemented")
}

// UpdateLine implements [cart.Service].
func (stubCartService) UpdateLine(ctx context.Context, userID, itemID uuid.UUID, req cart.UpdateRequest) (*cart.CartDTO, error) {
	panic("unimplemented")
}

// RemoveLine implements [cart.Service].
func (stubCartService) RemoveLine(ctx context.Context, userID, itemID uuid.UUID) (*cart.CartDTO, error) {
	panic("unimplemented")
}

// Clear implements [cart.Service].
func (stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	panic("unimplemented")
}

type stubCheckoutService struct{}

// Checkout implements [checkout.Service].
func (stubCheckoutService) Checkout(ctx context.Context, userID *uuid.UUID, req checkoutsvc.Request) (*checkoutsvc.Response, error) {
	panic("unimplemented")
}

type stubOrdersService struct{}

func (stubOrdersService) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*orders.ListResult, error) {
	return &orders.ListResult{}, nil
}

// Get implements [orders.Service].
func (stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) List(ctx context.Context, page pagination.Params, filters orders.ListFilters) (*orders.ListResult, error) {
	return &orders.ListResult{}, nil
}

// UpdateStatus implements [orders.Service].
func (stubOrdersService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

type stubUsersService struct{}

func (stubUsersService) List(ctx context.Context, page pagination.Params) (*users.ListResult, error) {
	return &users.ListResult{}, nil
}

// Create implements [users.Service].
func (stubUsersService) Create(ctx context.Context, req users.AdminCreateRequest) (*users.Profile, error) {
	panic("unimplemented")
}

// UpdateRole implements [users.Service].
func (stubUsersService) UpdateRole(ctx context.Context, actorID, userID uuid.UUID, req users.UpdateRoleRequest) (*users.Profile, error) {
	panic("unimplemented")
}

// Delete implements [users.Service].
func (stubUsersService) Delete(ctx context.Context, actorID, userID uuid.UUID) error {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		nil, // metrics registry
		nil, // http metrics
		stubAuthService{},
		stubCatalogService{},
		stubDiscountsService{},
		stubCartService{},
		stubCheckoutService{},
		stubOrdersService{},
		stubUsersService{},
		nil, // paymob reconciler
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "shopper@example.com",
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveReachable(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPublicProductsReachable(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCartRequiresJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCartAcceptsCustomerToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestAdminUsersRouteWired(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}
}

func TestCheckoutRejectsGarbageToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token got %d", resp.Code)
	}
}

package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/merakiwear/meraki-backend/pkg/db/models"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// Service exposes the admin discount operations plus the public query.
type Service interface {
	Create(ctx context.Context, req CreateDiscountRequest) (*DiscountDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateDiscountRequest) (*DiscountDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*DiscountDTO, error)
	List(ctx context.Context) ([]DiscountDTO, error)
	AssignProducts(ctx context.Context, id uuid.UUID, req AssignRequest) (*DiscountDTO, error)
	RemoveProducts(ctx context.Context, id uuid.UUID, req AssignRequest) (*DiscountDTO, error)
	AssignAllProducts(ctx context.Context, id uuid.UUID) (*DiscountDTO, error)
	RemoveAllProducts(ctx context.Context, id uuid.UUID) (*DiscountDTO, error)
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
}

type productChecker interface {
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type service struct {
	repo     *Repository
	resolver *Resolver
	products productChecker
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams bundles the discount service dependencies.
type ServiceParams struct {
	Repo     *Repository
	Resolver *Resolver
	Products productChecker
	Logger   *logger.Logger
	Now      func() time.Time
}

// NewService constructs the discounts service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("discounts repository is required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("discount resolver is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product checker is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		resolver: params.Resolver,
		products: params.Products,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, req CreateDiscountRequest) (*DiscountDTO, error) {
	if err := validatePercentage(req.Percentage); err != nil {
		return nil, err
	}
	if err := validateWindow(req.StartsAt, req.EndsAt); err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	discount := &models.Discount{
		Name:       strings.TrimSpace(req.Name),
		Percentage: req.Percentage,
		Active:     active,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
	}
	created, err := s.repo.Create(ctx, discount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create discount")
	}

	if len(req.ProductIDs) > 0 {
		if err := s.assignChecked(ctx, created.ID, req.ProductIDs); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, created.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateDiscountRequest) (*DiscountDTO, error) {
	discount, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		discount.Name = strings.TrimSpace(*req.Name)
	}
	if req.Percentage != nil {
		if err := validatePercentage(*req.Percentage); err != nil {
			return nil, err
		}
		discount.Percentage = *req.Percentage
	}
	if req.Active != nil {
		discount.Active = *req.Active
	}
	if req.ClearStart {
		discount.StartsAt = nil
	} else if req.StartsAt != nil {
		discount.StartsAt = req.StartsAt
	}
	if req.ClearEnd {
		discount.EndsAt = nil
	} else if req.EndsAt != nil {
		discount.EndsAt = req.EndsAt
	}
	if err := validateWindow(discount.StartsAt, discount.EndsAt); err != nil {
		return nil, err
	}

	if _, err := s.repo.Update(ctx, discount); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update discount")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete discount")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*DiscountDTO, error) {
	discount, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	productIDs, err := s.repo.ListProductIDs(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list discount products")
	}
	dto := fromModel(discount, productIDs)
	return &dto, nil
}

// List sweeps lapsed discounts before reading so stale active flags are
// corrected at read time rather than by a scheduler.
func (s *service) List(ctx context.Context) ([]DiscountDTO, error) {
	now := s.now()
	if swept, err := s.repo.ExpireLapsed(ctx, now); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "lapsed discount sweep failed")
	} else if swept > 0 {
		s.logg.Info(s.logg.WithField(ctx, "count", swept), "deactivated lapsed discounts")
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list discounts")
	}

	out := make([]DiscountDTO, 0, len(rows))
	for i := range rows {
		productIDs, err := s.repo.ListProductIDs(ctx, rows[i].ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list discount products")
		}
		out = append(out, fromModel(&rows[i], productIDs))
	}
	return out, nil
}

func (s *service) AssignProducts(ctx context.Context, id uuid.UUID, req AssignRequest) (*DiscountDTO, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.assignChecked(ctx, id, req.ProductIDs); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) RemoveProducts(ctx context.Context, id uuid.UUID, req AssignRequest) (*DiscountDTO, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.Remove(ctx, id, req.ProductIDs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove discount products")
	}
	return s.Get(ctx, id)
}

func (s *service) AssignAllProducts(ctx context.Context, id uuid.UUID) (*DiscountDTO, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.AssignAll(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign all products")
	}
	return s.Get(ctx, id)
}

func (s *service) RemoveAllProducts(ctx context.Context, id uuid.UUID) (*DiscountDTO, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.RemoveAll(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove all products")
	}
	return s.Get(ctx, id)
}

// Query answers the public storefront lookup. It never fails on storage
// errors; unresolvable products price at zero percent.
func (s *service) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	resolved := s.resolver.ResolveForProducts(ctx, req.ProductIDs, s.now())
	return &QueryResponse{Percents: resolved}, nil
}

func (s *service) assignChecked(ctx context.Context, id uuid.UUID, productIDs []uuid.UUID) error {
	known, err := s.products.FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	for _, pid := range productIDs {
		if _, ok := known[pid]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product %s", pid))
		}
	}
	if err := s.repo.Assign(ctx, id, productIDs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign discount products")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	discount, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load discount")
	}
	return discount, nil
}

func validatePercentage(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage must be between 0 and 100")
	}
	return nil
}

func validateWindow(startsAt, endsAt *time.Time) error {
	if startsAt != nil && endsAt != nil && endsAt.Before(*startsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "window end must not precede its start")
	}
	return nil
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bazarly/promo-api/internal/dto"
	"github.com/bazarly/promo-api/internal/models"
	appErrors "github.com/bazarly/promo-api/pkg/errors"
)

const catalogCacheKey = "promo:catalog:active"

type packageRepository interface {
	ListActive(ctx context.Context) ([]models.PromotionPackage, error)
	ListAll(ctx context.Context) ([]models.PromotionPackage, error)
	GetByID(ctx context.Context, id int64) (*models.PromotionPackage, error)
	Create(ctx context.Context, pkg *models.PromotionPackage) error
	Retire(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CatalogConfig tunes catalog caching and seeding.
type CatalogConfig struct {
	CacheTTL     time.Duration
	SeedDefaults bool
}

// CatalogService owns the promotion package catalog: the public tier list,
// admin curation, and the Redis cache in front of the active tiers.
type CatalogService struct {
	repo      packageRepository
	cache     catalogCache
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    CatalogConfig
}

// NewCatalogService constructs a CatalogService instance.
func NewCatalogService(repo packageRepository, cache catalogCache, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config CatalogConfig) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &CatalogService{repo: repo, cache: cache, audit: audit, metrics: metrics, validator: validate, logger: logger, config: config}
}

// ListActive returns the purchasable tiers, highest priority first. The
// result is cached; catalog writes invalidate the key.
func (s *CatalogService) ListActive(ctx context.Context) ([]models.PromotionPackage, error) {
	if s.cache != nil {
		var cached []models.PromotionPackage
		if err := s.cache.Get(ctx, catalogCacheKey, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	packages, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list packages")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKey, packages, s.config.CacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return packages, nil
}

// ListAll returns every tier including retired ones, for admin views.
func (s *CatalogService) ListAll(ctx context.Context) ([]models.PromotionPackage, error) {
	packages, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list packages")
	}
	return packages, nil
}

// Get fetches one package by id.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.PromotionPackage, error) {
	pkg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "package not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch package")
	}
	return pkg, nil
}

// Create adds a new catalog tier and invalidates the cached list.
func (s *CatalogService) Create(ctx context.Context, actorID string, req dto.CreatePackageRequest) (*models.PromotionPackage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid package payload")
	}

	pkg := &models.PromotionPackage{
		Name:         req.Name,
		DurationDays: req.DurationDays,
		Priority:     req.Priority,
		PriceLabel:   req.PriceLabel,
		Status:       models.PackageStatusActive,
	}
	if err := s.repo.Create(ctx, pkg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create package")
	}

	s.invalidateCache(ctx)
	s.recordAudit(actorID, models.AuditActionPackageCreate, pkg)

	return pkg, nil
}

// Retire flips a tier to RETIRED. Already-active promotions sold under the
// tier are unaffected; only new requests are blocked.
func (s *CatalogService) Retire(ctx context.Context, actorID string, id int64) (*models.PromotionPackage, error) {
	retired, err := s.repo.Retire(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retire package")
	}
	if !retired {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "package not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch package")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "package is already retired")
	}

	pkg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch package")
	}

	s.invalidateCache(ctx)
	s.recordAudit(actorID, models.AuditActionPackageRetire, pkg)

	return pkg, nil
}

// SeedDefaults inserts the three stock tiers when the catalog is empty.
func (s *CatalogService) SeedDefaults(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count packages")
	}
	if count > 0 {
		return nil
	}

	defaults := []models.PromotionPackage{
		{Name: "Basic Boost", DurationDays: 3, Priority: 1, PriceLabel: "4.99 USD", Status: models.PackageStatusActive},
		{Name: "Featured Week", DurationDays: 7, Priority: 2, PriceLabel: "9.99 USD", Status: models.PackageStatusActive},
		{Name: "Spotlight Month", DurationDays: 30, Priority: 3, PriceLabel: "29.99 USD", Status: models.PackageStatusActive},
	}
	for i := range defaults {
		if err := s.repo.Create(ctx, &defaults[i]); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed package")
		}
	}
	s.logger.Info("seeded default promotion packages", zap.Int("count", len(defaults)))
	return nil
}

func (s *CatalogService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func (s *CatalogService) recordAudit(actorID, action string, pkg *models.PromotionPackage) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(pkg)
	resourceID := strconv.FormatInt(pkg.ID, 10)
	s.audit.Record(models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "promotion_package",
		ResourceID: &resourceID,
		NewValues:  payload,
	})
}

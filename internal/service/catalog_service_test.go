package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bazarly/promo-api/internal/dto"
	"github.com/bazarly/promo-api/internal/models"
	appErrors "github.com/bazarly/promo-api/pkg/errors"
)

type mockCatalogRepo struct {
	packages    map[int64]models.PromotionPackage
	nextID      int64
	listCalls   int
	retireCalls []int64
}

func (m *mockCatalogRepo) ListActive(ctx context.Context) ([]models.PromotionPackage, error) {
	m.listCalls++
	var active []models.PromotionPackage
	for _, pkg := range m.packages {
		if pkg.Status == models.PackageStatusActive {
			active = append(active, pkg)
		}
	}
	return active, nil
}

func (m *mockCatalogRepo) ListAll(ctx context.Context) ([]models.PromotionPackage, error) {
	var all []models.PromotionPackage
	for _, pkg := range m.packages {
		all = append(all, pkg)
	}
	return all, nil
}

func (m *mockCatalogRepo) GetByID(ctx context.Context, id int64) (*models.PromotionPackage, error) {
	if pkg, ok := m.packages[id]; ok {
		return &pkg, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCatalogRepo) Create(ctx context.Context, pkg *models.PromotionPackage) error {
	if m.packages == nil {
		m.packages = make(map[int64]models.PromotionPackage)
	}
	m.nextID++
	pkg.ID = m.nextID
	pkg.CreatedAt = time.Now().UTC()
	pkg.UpdatedAt = pkg.CreatedAt
	m.packages[pkg.ID] = *pkg
	return nil
}

func (m *mockCatalogRepo) Retire(ctx context.Context, id int64) (bool, error) {
	m.retireCalls = append(m.retireCalls, id)
	pkg, ok := m.packages[id]
	if !ok || pkg.Status == models.PackageStatusRetired {
		return false, nil
	}
	pkg.Status = models.PackageStatusRetired
	m.packages[id] = pkg
	return true, nil
}

func (m *mockCatalogRepo) Count(ctx context.Context) (int, error) {
	return len(m.packages), nil
}

type mockCache struct {
	values  map[string][]byte
	deletes []string
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.values, key)
	m.deletes = append(m.deletes, key)
	return nil
}

func newCatalogService(repo *mockCatalogRepo, cache *mockCache, audit *stubAudit) *CatalogService {
	var c catalogCache
	if cache != nil {
		c = cache
	}
	var recorder auditRecorder
	if audit != nil {
		recorder = audit
	}
	return NewCatalogService(repo, c, recorder, nil, validator.New(), zap.NewNop(), CatalogConfig{CacheTTL: time.Minute})
}

func seededCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{
		packages: map[int64]models.PromotionPackage{
			1: {ID: 1, Name: "Basic Boost", DurationDays: 3, Priority: 1, PriceLabel: "4.99 USD", Status: models.PackageStatusActive},
			2: {ID: 2, Name: "Featured Week", DurationDays: 7, Priority: 2, PriceLabel: "9.99 USD", Status: models.PackageStatusActive},
			3: {ID: 3, Name: "Old Tier", DurationDays: 14, Priority: 2, PriceLabel: "14.99 USD", Status: models.PackageStatusRetired},
		},
		nextID: 3,
	}
}

func TestCatalogServiceListActiveCaches(t *testing.T) {
	repo := seededCatalogRepo()
	cache := &mockCache{}
	svc := newCatalogService(repo, cache, nil)

	first, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, repo.listCalls)

	second, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, 1, repo.listCalls, "second read should come from cache")
}

func TestCatalogServiceListActiveWithoutCache(t *testing.T) {
	repo := seededCatalogRepo()
	svc := newCatalogService(repo, nil, nil)

	packages, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, packages, 2)
}

func TestCatalogServiceGetNotFound(t *testing.T) {
	svc := newCatalogService(&mockCatalogRepo{}, nil, nil)
	_, err := svc.Get(context.Background(), 404)
	requireAppError(t, err, appErrors.ErrNotFound.Code)
}

func TestCatalogServiceCreateInvalidatesCache(t *testing.T) {
	repo := seededCatalogRepo()
	cache := &mockCache{}
	audit := &stubAudit{}
	svc := newCatalogService(repo, cache, audit)

	_, err := svc.ListActive(context.Background())
	require.NoError(t, err)

	pkg, err := svc.Create(context.Background(), "admin-1", dto.CreatePackageRequest{
		Name:         "Mega Spotlight",
		DurationDays: 30,
		Priority:     5,
		PriceLabel:   "49.99 USD",
	})
	require.NoError(t, err)
	assert.NotZero(t, pkg.ID)
	assert.Equal(t, models.PackageStatusActive, pkg.Status)
	assert.Contains(t, cache.deletes, catalogCacheKey)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionPackageCreate, audit.entries[0].Action)
}

func TestCatalogServiceCreateValidation(t *testing.T) {
	svc := newCatalogService(&mockCatalogRepo{}, nil, nil)
	_, err := svc.Create(context.Background(), "admin-1", dto.CreatePackageRequest{Name: "x"})
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestCatalogServiceRetire(t *testing.T) {
	repo := seededCatalogRepo()
	audit := &stubAudit{}
	svc := newCatalogService(repo, nil, audit)

	pkg, err := svc.Retire(context.Background(), "admin-1", 1)
	require.NoError(t, err)
	assert.Equal(t, models.PackageStatusRetired, pkg.Status)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionPackageRetire, audit.entries[0].Action)
}

func TestCatalogServiceRetireAlreadyRetired(t *testing.T) {
	svc := newCatalogService(seededCatalogRepo(), nil, nil)
	_, err := svc.Retire(context.Background(), "admin-1", 3)
	requireAppError(t, err, appErrors.ErrConflict.Code)
}

func TestCatalogServiceRetireNotFound(t *testing.T) {
	svc := newCatalogService(seededCatalogRepo(), nil, nil)
	_, err := svc.Retire(context.Background(), "admin-1", 404)
	requireAppError(t, err, appErrors.ErrNotFound.Code)
}

func TestCatalogServiceSeedDefaults(t *testing.T) {
	repo := &mockCatalogRepo{}
	svc := newCatalogService(repo, nil, nil)

	require.NoError(t, svc.SeedDefaults(context.Background()))
	assert.Len(t, repo.packages, 3)

	// Seeding again must be a no-op.
	require.NoError(t, svc.SeedDefaults(context.Background()))
	assert.Len(t, repo.packages, 3)
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bazarly/promo-api/internal/models"
)

// PackageRepository persists promotion package catalog entries.
type PackageRepository struct {
	db *sqlx.DB
}

// NewPackageRepository constructs the repository.
func NewPackageRepository(db *sqlx.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

const packageColumns = `id, name, duration_days, priority, price_label, status, created_at, updated_at`

// ListActive returns active packages ordered by priority descending.
func (r *PackageRepository) ListActive(ctx context.Context) ([]models.PromotionPackage, error) {
	query := fmt.Sprintf(`SELECT %s FROM promotion_packages WHERE status = $1 ORDER BY priority DESC, id ASC`, packageColumns)
	var packages []models.PromotionPackage
	if err := r.db.SelectContext(ctx, &packages, query, models.PackageStatusActive); err != nil {
		return nil, fmt.Errorf("list active packages: %w", err)
	}
	return packages, nil
}

// ListAll returns every package regardless of status, priority descending.
func (r *PackageRepository) ListAll(ctx context.Context) ([]models.PromotionPackage, error) {
	query := fmt.Sprintf(`SELECT %s FROM promotion_packages ORDER BY priority DESC, id ASC`, packageColumns)
	var packages []models.PromotionPackage
	if err := r.db.SelectContext(ctx, &packages, query); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return packages, nil
}

// GetByID fetches a single package.
func (r *PackageRepository) GetByID(ctx context.Context, id int64) (*models.PromotionPackage, error) {
	query := fmt.Sprintf(`SELECT %s FROM promotion_packages WHERE id = $1`, packageColumns)
	var pkg models.PromotionPackage
	if err := r.db.GetContext(ctx, &pkg, query, id); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// Create inserts a new package and backfills the generated id.
func (r *PackageRepository) Create(ctx context.Context, pkg *models.PromotionPackage) error {
	const query = `INSERT INTO promotion_packages (name, duration_days, priority, price_label, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`
	now := time.Now().UTC()
	if pkg.Status == "" {
		pkg.Status = models.PackageStatusActive
	}
	pkg.CreatedAt = now
	pkg.UpdatedAt = now
	if err := r.db.QueryRowxContext(ctx, query, pkg.Name, pkg.DurationDays, pkg.Priority, pkg.PriceLabel, pkg.Status, now).Scan(&pkg.ID); err != nil {
		return fmt.Errorf("create package: %w", err)
	}
	return nil
}

// Retire flips a package to RETIRED. Packages are never deleted.
func (r *PackageRepository) Retire(ctx context.Context, id int64) (bool, error) {
	const query = `UPDATE promotion_packages SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, models.PackageStatusRetired, time.Now().UTC(), id, models.PackageStatusActive)
	if err != nil {
		return false, fmt.Errorf("retire package: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("retire package rows: %w", err)
	}
	return affected > 0, nil
}

// Count returns the total number of catalog rows, used for default seeding.
func (r *PackageRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM promotion_packages`); err != nil {
		return 0, fmt.Errorf("count packages: %w", err)
	}
	return count, nil
}

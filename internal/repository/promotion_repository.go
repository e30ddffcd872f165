package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bazarly/promo-api/internal/models"
)

// ErrRequestDecided is returned when the compare-and-swap on a request's
// status matches no row, meaning another reviewer decided it first.
var ErrRequestDecided = errors.New("request is no longer pending")

// PromotionRepository persists active promotions and owns the transactional
// flows that keep the listing ranking signal consistent with them.
type PromotionRepository struct {
	db *sqlx.DB
}

// NewPromotionRepository constructs the repository.
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

const promotionColumns = `id, listing_id, package_id, request_id, priority, start_at, end_at, status, activated_by, activated_at`

// DecisionParams carries the reviewer fields written onto a request row.
type DecisionParams struct {
	RequestID  int64
	ReviewerID string
	Notes      *string
	ReviewedAt time.Time
}

// Approve atomically marks the request approved, inserts the active
// promotion and raises the listing ranking signal. The request-status write
// is a compare-and-swap so two concurrent reviewers cannot both succeed.
func (r *PromotionRepository) Approve(ctx context.Context, promo *models.ActivePromotion, decision DecisionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve tx: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE promotion_requests SET status = $1, reviewed_at = $2, reviewer_id = $3, notes = $4 WHERE id = $5 AND status = $6`,
		models.RequestStatusApproved, decision.ReviewedAt, decision.ReviewerID, decision.Notes, decision.RequestID, models.RequestStatusPending)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("approve request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("approve request rows: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return ErrRequestDecided
	}

	if err := tx.QueryRowxContext(ctx,
		`INSERT INTO active_promotions (listing_id, package_id, request_id, priority, start_at, end_at, status, activated_by, activated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		promo.ListingID, promo.PackageID, promo.RequestID, promo.Priority, promo.StartAt, promo.EndAt, promo.Status, promo.ActivatedBy, promo.ActivatedAt,
	).Scan(&promo.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert active promotion: %w", err)
	}

	// The signal is the max priority across live promotions, so an overlapping
	// lower-tier approval must not lower it.
	if _, err := tx.ExecContext(ctx,
		`UPDATE listings SET is_promoted = TRUE, promo_priority = GREATEST(promo_priority, $1) WHERE id = $2`,
		promo.Priority, promo.ListingID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("raise ranking signal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve tx: %w", err)
	}
	return nil
}

// Reject marks the request rejected via the same compare-and-swap. No
// promotion row is created and the ranking signal is untouched.
func (r *PromotionRepository) Reject(ctx context.Context, decision DecisionParams) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE promotion_requests SET status = $1, reviewed_at = $2, reviewer_id = $3, notes = $4 WHERE id = $5 AND status = $6`,
		models.RequestStatusRejected, decision.ReviewedAt, decision.ReviewerID, decision.Notes, decision.RequestID, models.RequestStatusPending)
	if err != nil {
		return fmt.Errorf("reject request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject request rows: %w", err)
	}
	if affected == 0 {
		return ErrRequestDecided
	}
	return nil
}

// GetByID returns a promotion row by its identifier.
func (r *PromotionRepository) GetByID(ctx context.Context, id int64) (*models.ActivePromotion, error) {
	query := fmt.Sprintf(`SELECT %s FROM active_promotions WHERE id = $1`, promotionColumns)
	var promo models.ActivePromotion
	if err := r.db.GetContext(ctx, &promo, query, id); err != nil {
		return nil, err
	}
	return &promo, nil
}

// List returns promotions optionally filtered by status, newest first.
func (r *PromotionRepository) List(ctx context.Context, status *models.PromotionStatus, limit int) ([]models.ActivePromotion, error) {
	if limit <= 0 {
		limit = 100
	}
	var promos []models.ActivePromotion
	if status != nil {
		query := fmt.Sprintf(`SELECT %s FROM active_promotions WHERE status = $1 ORDER BY activated_at DESC, id DESC LIMIT $2`, promotionColumns)
		if err := r.db.SelectContext(ctx, &promos, query, *status, limit); err != nil {
			return nil, fmt.Errorf("list promotions: %w", err)
		}
		return promos, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM active_promotions ORDER BY activated_at DESC, id DESC LIMIT $1`, promotionColumns)
	if err := r.db.SelectContext(ctx, &promos, query, limit); err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	return promos, nil
}

// ListExpired fetches ACTIVE promotions whose window has elapsed at now.
func (r *PromotionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.ActivePromotion, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM active_promotions WHERE status = $1 AND end_at <= $2 ORDER BY end_at ASC, id ASC LIMIT $3`, promotionColumns)
	var promos []models.ActivePromotion
	if err := r.db.SelectContext(ctx, &promos, query, models.PromotionStatusActive, now, limit); err != nil {
		return nil, fmt.Errorf("list expired promotions: %w", err)
	}
	return promos, nil
}

// Retire atomically flips one promotion to EXPIRED and re-derives the
// listing ranking signal from whatever live promotions remain. Returns the
// signal that was written. A promotion already retired by a concurrent sweep
// reports retired=false and leaves the signal untouched.
func (r *PromotionRepository) Retire(ctx context.Context, promo models.ActivePromotion, now time.Time) (models.RankingSignal, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.RankingSignal{}, false, fmt.Errorf("begin retire tx: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE active_promotions SET status = $1 WHERE id = $2 AND status = $3`,
		models.PromotionStatusExpired, promo.ID, models.PromotionStatusActive)
	if err != nil {
		_ = tx.Rollback()
		return models.RankingSignal{}, false, fmt.Errorf("expire promotion: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return models.RankingSignal{}, false, fmt.Errorf("expire promotion rows: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return models.RankingSignal{}, false, nil
	}

	// Overlapping promotions are allowed, so the surviving maximum priority
	// decides the signal rather than a blind reset.
	var maxPriority sql.NullInt64
	if err := tx.GetContext(ctx, &maxPriority,
		`SELECT MAX(priority) FROM active_promotions WHERE listing_id = $1 AND status = $2 AND end_at > $3`,
		promo.ListingID, models.PromotionStatusActive, now); err != nil {
		_ = tx.Rollback()
		return models.RankingSignal{}, false, fmt.Errorf("derive surviving priority: %w", err)
	}

	signal := models.RankingSignal{}
	if maxPriority.Valid {
		signal.IsPromoted = true
		signal.Priority = int(maxPriority.Int64)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE listings SET is_promoted = $1, promo_priority = $2 WHERE id = $3`,
		signal.IsPromoted, signal.Priority, promo.ListingID); err != nil {
		_ = tx.Rollback()
		return models.RankingSignal{}, false, fmt.Errorf("lower ranking signal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.RankingSignal{}, false, fmt.Errorf("commit retire tx: %w", err)
	}
	return signal, true, nil
}

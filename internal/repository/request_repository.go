package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bazarly/promo-api/internal/models"
)

// ErrDuplicatePending is returned when an insert collides with the partial
// unique index guaranteeing at most one PENDING request per listing.
var ErrDuplicatePending = errors.New("pending request already exists for listing")

const uniqueViolation = "23505"

// RequestRepository persists promotion requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, listing_id, package_id, requester_id, status, requested_at, reviewed_at, reviewer_id, notes`

// Create inserts a new PENDING request and backfills the generated id. The
// one-pending-per-listing invariant is enforced by the database, so a
// concurrent duplicate submit surfaces as ErrDuplicatePending.
func (r *RequestRepository) Create(ctx context.Context, req *models.PromotionRequest) error {
	const query = `INSERT INTO promotion_requests (listing_id, package_id, requester_id, status, requested_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	err := r.db.QueryRowxContext(ctx, query, req.ListingID, req.PackageID, req.RequesterID, req.Status, req.RequestedAt).Scan(&req.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicatePending
		}
		return fmt.Errorf("create promotion request: %w", err)
	}
	return nil
}

// GetByID returns a request row by its identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*models.PromotionRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM promotion_requests WHERE id = $1`, requestColumns)
	var req models.PromotionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// HasPending reports whether a PENDING request exists for the listing.
func (r *RequestRepository) HasPending(ctx context.Context, listingID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM promotion_requests WHERE listing_id = $1 AND status = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, listingID, models.RequestStatusPending); err != nil {
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return exists, nil
}

// List returns requests matching the filter ordered by request time
// descending, along with the total count for pagination.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.PromotionRequest, int, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	argPos := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}
	if filter.RequesterID != "" {
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", argPos))
		args = append(args, filter.RequesterID)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM promotion_requests" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count promotion requests: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	query := fmt.Sprintf("SELECT %s FROM promotion_requests%s ORDER BY requested_at DESC, id DESC LIMIT $%d OFFSET $%d",
		requestColumns, where, argPos, argPos+1)
	args = append(args, pageSize, (page-1)*pageSize)

	var requests []models.PromotionRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list promotion requests: %w", err)
	}
	return requests, total, nil
}

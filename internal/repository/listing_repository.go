package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bazarly/promo-api/internal/models"
)

// ListingRepository is the promotion engine's narrow adapter onto the
// listing platform's store: it reads owner/publish state and writes the
// denormalized ranking signal, nothing else.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository constructs the repository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingColumns = `id, owner_id, title, price, status, is_promoted, promo_priority, published_at, created_at`

// Get fetches a listing by id.
func (r *ListingRepository) Get(ctx context.Context, id int64) (*models.Listing, error) {
	query := fmt.Sprintf(`SELECT %s FROM listings WHERE id = $1`, listingColumns)
	var listing models.Listing
	if err := r.db.GetContext(ctx, &listing, query, id); err != nil {
		return nil, err
	}
	return &listing, nil
}

// SetPromotionSignal writes the ranking signal onto a listing.
func (r *ListingRepository) SetPromotionSignal(ctx context.Context, id int64, promoted bool, priority int) error {
	const query = `UPDATE listings SET is_promoted = $1, promo_priority = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, promoted, priority, id); err != nil {
		return fmt.Errorf("set promotion signal: %w", err)
	}
	return nil
}

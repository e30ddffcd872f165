package models

import "time"

// ListingStatus captures the publish state owned by the listing platform.
type ListingStatus string

const (
	ListingStatusDraft     ListingStatus = "DRAFT"
	ListingStatusPublished ListingStatus = "PUBLISHED"
	ListingStatusArchived  ListingStatus = "ARCHIVED"
)

// Listing is the promotion engine's view of a marketplace listing. Only the
// owner, publish status and the denormalized ranking signal are touched here;
// everything else belongs to the listing platform.
type Listing struct {
	ID          int64         `db:"id" json:"id"`
	OwnerID     string        `db:"owner_id" json:"owner_id"`
	Title       string        `db:"title" json:"title"`
	Price       float64       `db:"price" json:"price"`
	Status      ListingStatus `db:"status" json:"status"`
	IsPromoted  bool          `db:"is_promoted" json:"is_promoted"`
	Priority    int           `db:"promo_priority" json:"promo_priority"`
	PublishedAt *time.Time    `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// RankingSignal is the denormalized (is_promoted, priority) pair written onto
// a listing. It is a cache derived from active promotions; staleness is
// bounded by one sweep interval.
type RankingSignal struct {
	IsPromoted bool `json:"is_promoted"`
	Priority   int  `json:"priority"`
}

package models

import "time"

// PromotionStatus captures the active promotion lifecycle. Promotions are
// retired logically, never deleted.
type PromotionStatus string

const (
	PromotionStatusActive  PromotionStatus = "ACTIVE"
	PromotionStatusExpired PromotionStatus = "EXPIRED"
)

// ActivePromotion is the time-boxed record created when a request is
// approved. EndAt is computed once at activation and never recomputed;
// Priority snapshots the package priority at activation so later catalog
// edits cannot change a live promotion's ranking weight.
type ActivePromotion struct {
	ID          int64           `db:"id" json:"id"`
	ListingID   int64           `db:"listing_id" json:"listing_id"`
	PackageID   int64           `db:"package_id" json:"package_id"`
	RequestID   *int64          `db:"request_id" json:"request_id,omitempty"`
	Priority    int             `db:"priority" json:"priority"`
	StartAt     time.Time       `db:"start_at" json:"start_at"`
	EndAt       time.Time       `db:"end_at" json:"end_at"`
	Status      PromotionStatus `db:"status" json:"status"`
	ActivatedBy string          `db:"activated_by" json:"activated_by"`
	ActivatedAt time.Time       `db:"activated_at" json:"activated_at"`
}

// Live reports whether the promotion window covers the given instant.
func (p ActivePromotion) Live(now time.Time) bool {
	return p.Status == PromotionStatusActive && now.Before(p.EndAt)
}

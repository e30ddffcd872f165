package models

import "time"

// PackageStatus captures the catalog lifecycle of a promotion tier.
type PackageStatus string

const (
	PackageStatusActive  PackageStatus = "ACTIVE"
	PackageStatusRetired PackageStatus = "RETIRED"
)

// PromotionPackage is a purchasable promotion tier. Packages are never
// deleted, only retired, and duration/priority are snapshotted onto issued
// promotions so later edits cannot alter them retroactively.
type PromotionPackage struct {
	ID           int64         `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	DurationDays int           `db:"duration_days" json:"duration_days"`
	Priority     int           `db:"priority" json:"priority"`
	PriceLabel   string        `db:"price_label" json:"price_label"`
	Status       PackageStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Duration converts the day-resolution package window into a time.Duration.
func (p PromotionPackage) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

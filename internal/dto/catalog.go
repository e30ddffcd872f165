package dto

import "time"

// PackageItem is the API shape of a promotion package.
type PackageItem struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DurationDays int       `json:"duration_days"`
	Priority     int       `json:"priority"`
	PriceLabel   string    `json:"price_label"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreatePackageRequest is the admin payload for adding a catalog tier.
type CreatePackageRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	DurationDays int    `json:"duration_days" validate:"required,min=1,max=365"`
	Priority     int    `json:"priority" validate:"required,min=1"`
	PriceLabel   string `json:"price_label" validate:"required,max=50"`
}

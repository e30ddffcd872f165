package dto

import "time"

// SubmitRequestRequest is the poster payload asking to promote a listing.
type SubmitRequestRequest struct {
	ListingID int64 `json:"listing_id" validate:"required,min=1"`
	PackageID int64 `json:"package_id" validate:"required,min=1"`
}

// RequestItem is the API shape of a promotion request.
type RequestItem struct {
	ID          int64      `json:"id"`
	ListingID   int64      `json:"listing_id"`
	PackageID   int64      `json:"package_id"`
	RequesterID string     `json:"requester_id"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ReviewerID  *string    `json:"reviewer_id,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// ApproveRequestRequest is the admin payload approving a request. StartAt
// defaults to the approval instant when omitted.
type ApproveRequestRequest struct {
	StartAt *time.Time `json:"start_at,omitempty"`
	Notes   string     `json:"notes,omitempty" validate:"max=500"`
}

// RejectRequestRequest is the admin payload rejecting a request.
type RejectRequestRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=500"`
}

// PromotionItem is the API shape of an active promotion.
type PromotionItem struct {
	ID          int64      `json:"id"`
	ListingID   int64      `json:"listing_id"`
	PackageID   int64      `json:"package_id"`
	RequestID   *int64     `json:"request_id,omitempty"`
	Priority    int        `json:"priority"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       time.Time  `json:"end_at"`
	Status      string     `json:"status"`
	ActivatedBy string     `json:"activated_by"`
	ActivatedAt time.Time  `json:"activated_at"`
}

// SweepResult reports the outcome of an expiration sweep pass.
type SweepResult struct {
	RetiredIDs []int64   `json:"retired_ids"`
	Count      int       `json:"count"`
	SweptAt    time.Time `json:"swept_at"`
}

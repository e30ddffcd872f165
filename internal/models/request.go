package models

import "time"

// RequestStatus captures the promotion request lifecycle. A request is
// decided exactly once; APPROVED and REJECTED are terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// PromotionRequest records a poster's ask to promote one listing under one
// package. At most one PENDING request may exist per listing.
type PromotionRequest struct {
	ID          int64         `db:"id" json:"id"`
	ListingID   int64         `db:"listing_id" json:"listing_id"`
	PackageID   int64         `db:"package_id" json:"package_id"`
	RequesterID string        `db:"requester_id" json:"requester_id"`
	Status      RequestStatus `db:"status" json:"status"`
	RequestedAt time.Time     `db:"requested_at" json:"requested_at"`
	ReviewedAt  *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewerID  *string       `db:"reviewer_id" json:"reviewer_id,omitempty"`
	Notes       *string       `db:"notes" json:"notes,omitempty"`
}

// RequestFilter captures filtering criteria for listing promotion requests.
type RequestFilter struct {
	Status      *RequestStatus
	RequesterID string
	Page        int
	PageSize    int
}

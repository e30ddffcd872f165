package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bazarly/promo-api/internal/dto"
	"github.com/bazarly/promo-api/internal/models"
	"github.com/bazarly/promo-api/internal/repository"
	appErrors "github.com/bazarly/promo-api/pkg/errors"
)

type decisionRepository interface {
	Approve(ctx context.Context, promo *models.ActivePromotion, decision repository.DecisionParams) error
	Reject(ctx context.Context, decision repository.DecisionParams) error
	List(ctx context.Context, status *models.PromotionStatus, limit int) ([]models.ActivePromotion, error)
}

// ActivationService decides pending requests. Approval snapshots the package
// terms onto a time-boxed promotion and raises the listing ranking signal in
// the same transaction; rejection only closes the ledger row.
type ActivationService struct {
	promotions decisionRepository
	requests   requestLedgerRepository
	packages   packageReader
	audit      auditRecorder
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewActivationService constructs an ActivationService instance.
func NewActivationService(promotions decisionRepository, requests requestLedgerRepository, packages packageReader, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ActivationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ActivationService{
		promotions: promotions,
		requests:   requests,
		packages:   packages,
		audit:      audit,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Approve activates the promotion behind a pending request. The window end
// is computed once here, from the package duration snapshot, and never
// recomputed afterwards.
func (s *ActivationService) Approve(ctx context.Context, reviewerID string, requestID int64, req dto.ApproveRequestRequest) (*models.ActivePromotion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}

	request, err := s.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	pkg, err := s.packages.GetByID(ctx, request.PackageID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch package")
	}

	now := s.now()
	startAt := now
	if req.StartAt != nil {
		startAt = req.StartAt.UTC()
	}
	// A window that is already over is still created; the next sweep retires
	// it, so the request is never stuck.
	endAt := startAt.Add(pkg.Duration())

	promo := &models.ActivePromotion{
		ListingID:   request.ListingID,
		PackageID:   request.PackageID,
		RequestID:   &request.ID,
		Priority:    pkg.Priority,
		StartAt:     startAt,
		EndAt:       endAt,
		Status:      models.PromotionStatusActive,
		ActivatedBy: reviewerID,
		ActivatedAt: now,
	}

	decision := repository.DecisionParams{
		RequestID:  requestID,
		ReviewerID: reviewerID,
		Notes:      optionalNotes(req.Notes),
		ReviewedAt: now,
	}

	if err := s.promotions.Approve(ctx, promo, decision); err != nil {
		if errors.Is(err, repository.ErrRequestDecided) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyDecided, "request has already been decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve request")
	}

	s.metrics.RecordActivation()
	s.recordAudit(reviewerID, models.AuditActionRequestApprove, requestID, promo)
	s.logger.Info("promotion activated",
		zap.Int64("request_id", requestID),
		zap.Int64("promotion_id", promo.ID),
		zap.Int64("listing_id", promo.ListingID),
		zap.Time("end_at", promo.EndAt))

	return promo, nil
}

// Reject closes a pending request without creating a promotion. The listing
// ranking signal is untouched.
func (s *ActivationService) Reject(ctx context.Context, reviewerID string, requestID int64, req dto.RejectRequestRequest) (*models.PromotionRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
	}

	if _, err := s.loadPending(ctx, requestID); err != nil {
		return nil, err
	}

	now := s.now()
	decision := repository.DecisionParams{
		RequestID:  requestID,
		ReviewerID: reviewerID,
		Notes:      optionalNotes(req.Notes),
		ReviewedAt: now,
	}
	if err := s.promotions.Reject(ctx, decision); err != nil {
		if errors.Is(err, repository.ErrRequestDecided) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyDecided, "request has already been decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject request")
	}

	s.metrics.RecordRejection()
	s.recordAudit(reviewerID, models.AuditActionRequestReject, requestID, nil)

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch request")
	}
	return request, nil
}

// ListPromotions returns promotions for the admin view, optionally filtered
// by status.
func (s *ActivationService) ListPromotions(ctx context.Context, status *models.PromotionStatus, limit int) ([]models.ActivePromotion, error) {
	promos, err := s.promotions.List(ctx, status, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list promotions")
	}
	return promos, nil
}

func (s *ActivationService) loadPending(ctx context.Context, requestID int64) (*models.PromotionRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch request")
	}
	if request.Status != models.RequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyDecided, "request has already been decided")
	}
	return request, nil
}

func (s *ActivationService) recordAudit(actorID, action string, requestID int64, promo *models.ActivePromotion) {
	if s.audit == nil {
		return
	}
	var payload []byte
	if promo != nil {
		payload, _ = json.Marshal(promo)
	}
	resourceID := strconv.FormatInt(requestID, 10)
	s.audit.Record(models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "promotion_request",
		ResourceID: &resourceID,
		NewValues:  payload,
	})
}

func optionalNotes(notes string) *string {
	if notes == "" {
		return nil
	}
	return &notes
}

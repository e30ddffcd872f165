package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bazarly/promo-api/internal/dto"
	"github.com/bazarly/promo-api/internal/models"
	"github.com/bazarly/promo-api/internal/repository"
	appErrors "github.com/bazarly/promo-api/pkg/errors"
)

type requestLedgerRepository interface {
	Create(ctx context.Context, req *models.PromotionRequest) error
	GetByID(ctx context.Context, id int64) (*models.PromotionRequest, error)
	HasPending(ctx context.Context, listingID int64) (bool, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.PromotionRequest, int, error)
}

type listingReader interface {
	Get(ctx context.Context, id int64) (*models.Listing, error)
}

type packageReader interface {
	GetByID(ctx context.Context, id int64) (*models.PromotionPackage, error)
}

// RequestService owns the promotion request ledger: poster submissions and
// the pending-queue views.
type RequestService struct {
	requests  requestLedgerRepository
	listings  listingReader
	packages  packageReader
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequestService constructs a RequestService instance.
func NewRequestService(requests requestLedgerRepository, listings listingReader, packages packageReader, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RequestService{
		requests:  requests,
		listings:  listings,
		packages:  packages,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Submit files a PENDING request for one of the requester's published
// listings. At most one pending request may exist per listing; the database
// backs that invariant so a concurrent duplicate loses cleanly.
func (s *RequestService) Submit(ctx context.Context, requesterID string, req dto.SubmitRequestRequest) (*models.PromotionRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	listing, err := s.listings.Get(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch listing")
	}
	if listing.OwnerID != requesterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "listing belongs to another user")
	}
	if listing.Status != models.ListingStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only published listings can be promoted")
	}

	pkg, err := s.packages.GetByID(ctx, req.PackageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "package not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch package")
	}
	if pkg.Status != models.PackageStatusActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "package is no longer available")
	}

	pending, err := s.requests.HasPending(ctx, req.ListingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "listing already has a pending request")
	}

	request := &models.PromotionRequest{
		ListingID:   req.ListingID,
		PackageID:   req.PackageID,
		RequesterID: requesterID,
		Status:      models.RequestStatusPending,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "listing already has a pending request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.metrics.RecordRequestSubmitted()
	s.recordAudit(requesterID, models.AuditActionRequestSubmit, request)
	s.logger.Info("promotion request submitted",
		zap.Int64("request_id", request.ID),
		zap.Int64("listing_id", request.ListingID),
		zap.Int64("package_id", request.PackageID))

	return request, nil
}

// Get fetches one request. Posters only see their own rows.
func (s *RequestService) Get(ctx context.Context, id int64, claims *models.JWTClaims) (*models.PromotionRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch request")
	}
	if claims.Role == models.RolePoster && request.RequesterID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another user")
	}
	return request, nil
}

// ListMine returns the requester's own ledger rows, newest first.
func (s *RequestService) ListMine(ctx context.Context, requesterID string, filter models.RequestFilter) ([]models.PromotionRequest, models.Pagination, error) {
	filter.RequesterID = requesterID
	return s.list(ctx, filter)
}

// ListAll returns ledger rows for the admin review queue.
func (s *RequestService) ListAll(ctx context.Context, filter models.RequestFilter) ([]models.PromotionRequest, models.Pagination, error) {
	return s.list(ctx, filter)
}

func (s *RequestService) list(ctx context.Context, filter models.RequestFilter) ([]models.PromotionRequest, models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	requests, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	pagination := models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return requests, pagination, nil
}

func (s *RequestService) recordAudit(actorID, action string, request *models.PromotionRequest) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(request)
	resourceID := strconv.FormatInt(request.ID, 10)
	s.audit.Record(models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "promotion_request",
		ResourceID: &resourceID,
		NewValues:  payload,
	})
}

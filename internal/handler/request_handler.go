package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bazarly/promo-api/internal/dto"
	"github.com/bazarly/promo-api/internal/models"
	"github.com/bazarly/promo-api/internal/service"
	appErrors "github.com/bazarly/promo-api/pkg/errors"
	"github.com/bazarly/promo-api/pkg/response"
)

type requestService interface {
	Submit(ctx context.Context, requesterID string, req dto.SubmitRequestRequest) (*models.PromotionRequest, error)
	Get(ctx context.Context, id int64, claims *models.JWTClaims) (*models.PromotionRequest, error)
	ListMine(ctx context.Context, requesterID string, filter models.RequestFilter) ([]models.PromotionRequest, models.Pagination, error)
	ListAll(ctx context.Context, filter models.RequestFilter) ([]models.PromotionRequest, models.Pagination, error)
}

type ledgerExporter interface {
	ExportLedger(ctx context.Context, status *models.RequestStatus, format service.ExportFormat) (*service.ExportDocument, error)
}

// RequestHandler exposes promotion request ledger endpoints.
type RequestHandler struct {
	requests requestService
	exports  ledgerExporter
}

// NewRequestHandler constructs RequestHandler.
func NewRequestHandler(requests requestService, exports ledgerExporter) *RequestHandler {
	return &RequestHandler{requests: requests, exports: exports}
}

// Submit godoc
// @Summary Submit a promotion request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.requests.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, requestItem(*request))
}

// ListMine godoc
// @Summary List the caller's promotion requests
// @Tags Requests
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests/mine [get]
func (h *RequestHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	requests, pagination, err := h.requests.ListMine(c.Request.Context(), claims.UserID, requestFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requestItems(requests), &pagination)
}

// Get godoc
// @Summary Fetch one promotion request
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.requests.Get(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requestItem(*request), nil)
}

// ListAll godoc
// @Summary List promotion requests for review
// @Tags Requests
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/requests [get]
func (h *RequestHandler) ListAll(c *gin.Context) {
	requests, pagination, err := h.requests.ListAll(c.Request.Context(), requestFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requestItems(requests), &pagination)
}

// Export godoc
// @Summary Export the request ledger
// @Tags Requests
// @Produce text/csv
// @Produce application/pdf
// @Param status query string false "Filter by status"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /admin/requests/export [get]
func (h *RequestHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.exports.ExportLedger(c.Request.Context(), statusFilter(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

func requestFilter(c *gin.Context) models.RequestFilter {
	filter := models.RequestFilter{Status: statusFilter(c)}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter
}

func statusFilter(c *gin.Context) *models.RequestStatus {
	raw := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	if raw == "" {
		return nil
	}
	status := models.RequestStatus(raw)
	return &status
}

func requestItem(req models.PromotionRequest) dto.RequestItem {
	return dto.RequestItem{
		ID:          req.ID,
		ListingID:   req.ListingID,
		PackageID:   req.PackageID,
		RequesterID: req.RequesterID,
		Status:      string(req.Status),
		RequestedAt: req.RequestedAt,
		ReviewedAt:  req.ReviewedAt,
		ReviewerID:  req.ReviewerID,
		Notes:       req.Notes,
	}
}

func requestItems(requests []models.PromotionRequest) []dto.RequestItem {
	items := make([]dto.RequestItem, 0, len(requests))
	for _, req := range requests {
		items = append(items, requestItem(req))
	}
	return items
}

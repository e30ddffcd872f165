package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bazarly/promo-api/internal/dto"
	"github.com/bazarly/promo-api/internal/models"
	appErrors "github.com/bazarly/promo-api/pkg/errors"
	"github.com/bazarly/promo-api/pkg/response"
)

type activationService interface {
	Approve(ctx context.Context, reviewerID string, requestID int64, req dto.ApproveRequestRequest) (*models.ActivePromotion, error)
	Reject(ctx context.Context, reviewerID string, requestID int64, req dto.RejectRequestRequest) (*models.PromotionRequest, error)
	ListPromotions(ctx context.Context, status *models.PromotionStatus, limit int) ([]models.ActivePromotion, error)
}

type sweepRunner interface {
	Sweep(ctx context.Context, now time.Time) (*dto.SweepResult, error)
}

// PromotionHandler exposes activation decisions and the sweep trigger.
type PromotionHandler struct {
	activations activationService
	sweeper     sweepRunner
}

// NewPromotionHandler constructs PromotionHandler.
func NewPromotionHandler(activations activationService, sweeper sweepRunner) *PromotionHandler {
	return &PromotionHandler{activations: activations, sweeper: sweeper}
}

// Approve godoc
// @Summary Approve a pending promotion request
// @Tags Promotions
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.ApproveRequestRequest false "Approval payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/requests/{id}/approve [post]
func (h *PromotionHandler) Approve(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ApproveRequestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
			return
		}
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	promo, err := h.activations.Approve(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, promotionItem(*promo))
}

// Reject godoc
// @Summary Reject a pending promotion request
// @Tags Promotions
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.RejectRequestRequest false "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/requests/{id}/reject [post]
func (h *PromotionHandler) Reject(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RejectRequestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
			return
		}
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.activations.Reject(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requestItem(*request), nil)
}

// List godoc
// @Summary List promotions
// @Tags Promotions
// @Produce json
// @Param status query string false "Filter by status"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /admin/promotions [get]
func (h *PromotionHandler) List(c *gin.Context) {
	var status *models.PromotionStatus
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		s := models.PromotionStatus(raw)
		status = &s
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	promos, err := h.activations.ListPromotions(c.Request.Context(), status, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, promotionItems(promos), nil)
}

// Sweep godoc
// @Summary Run an expiration sweep now
// @Tags Promotions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/promotions/sweep [post]
func (h *PromotionHandler) Sweep(c *gin.Context) {
	result, err := h.sweeper.Sweep(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func promotionItem(promo models.ActivePromotion) dto.PromotionItem {
	return dto.PromotionItem{
		ID:          promo.ID,
		ListingID:   promo.ListingID,
		PackageID:   promo.PackageID,
		RequestID:   promo.RequestID,
		Priority:    promo.Priority,
		StartAt:     promo.StartAt,
		EndAt:       promo.EndAt,
		Status:      string(promo.Status),
		ActivatedBy: promo.ActivatedBy,
		ActivatedAt: promo.ActivatedAt,
	}
}

func promotionItems(promos []models.ActivePromotion) []dto.PromotionItem {
	items := make([]dto.PromotionItem, 0, len(promos))
	for _, promo := range promos {
		items = append(items, promotionItem(promo))
	}
	return items
}

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bazarly/promo-api/internal/dto"
	"github.com/bazarly/promo-api/internal/models"
	appErrors "github.com/bazarly/promo-api/pkg/errors"
	"github.com/bazarly/promo-api/pkg/response"
)

type catalogService interface {
	ListActive(ctx context.Context) ([]models.PromotionPackage, error)
	ListAll(ctx context.Context) ([]models.PromotionPackage, error)
	Get(ctx context.Context, id int64) (*models.PromotionPackage, error)
	Create(ctx context.Context, actorID string, req dto.CreatePackageRequest) (*models.PromotionPackage, error)
	Retire(ctx context.Context, actorID string, id int64) (*models.PromotionPackage, error)
}

// CatalogHandler exposes promotion package endpoints.
type CatalogHandler struct {
	catalog catalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog catalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListActive godoc
// @Summary List purchasable promotion packages
// @Tags Packages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /packages [get]
func (h *CatalogHandler) ListActive(c *gin.Context) {
	packages, err := h.catalog.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packageItems(packages), nil)
}

// ListAll godoc
// @Summary List all promotion packages including retired
// @Tags Packages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/packages [get]
func (h *CatalogHandler) ListAll(c *gin.Context) {
	packages, err := h.catalog.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packageItems(packages), nil)
}

// Get godoc
// @Summary Fetch one promotion package
// @Tags Packages
// @Produce json
// @Param id path int true "Package ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /packages/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	pkg, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packageItem(*pkg), nil)
}

// Create godoc
// @Summary Create a promotion package
// @Tags Packages
// @Accept json
// @Produce json
// @Param payload body dto.CreatePackageRequest true "Package payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/packages [post]
func (h *CatalogHandler) Create(c *gin.Context) {
	var req dto.CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid package payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	pkg, err := h.catalog.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, packageItem(*pkg))
}

// Retire godoc
// @Summary Retire a promotion package
// @Tags Packages
// @Produce json
// @Param id path int true "Package ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/packages/{id}/retire [post]
func (h *CatalogHandler) Retire(c *gin.Context) {
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
	pkg, err := h.catalog.Retire(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packageItem(*pkg), nil)
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid id")
	}
	return id, nil
}

func packageItem(pkg models.PromotionPackage) dto.PackageItem {
	return dto.PackageItem{
		ID:           pkg.ID,
		Name:         pkg.Name,
		DurationDays: pkg.DurationDays,
		Priority:     pkg.Priority,
		PriceLabel:   pkg.PriceLabel,
		Status:       string(pkg.Status),
		CreatedAt:    pkg.CreatedAt,
	}
}

func packageItems(packages []models.PromotionPackage) []dto.PackageItem {
	items := make([]dto.PackageItem, 0, len(packages))
	for _, pkg := range packages {
		items = append(items, packageItem(pkg))
	}
	return items
}

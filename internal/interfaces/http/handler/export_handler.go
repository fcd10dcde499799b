package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	integrationapp "github.com/merchportal/backend/internal/application/integration"
	"github.com/merchportal/backend/internal/domain/integration"
	"github.com/merchportal/backend/internal/domain/shared"
	"github.com/merchportal/backend/internal/infrastructure/logger"
	"github.com/merchportal/backend/internal/interfaces/http/dto"
)

// ShopExporter is the application service behind the export endpoints
type ShopExporter interface {
	GenerateForShop(ctx context.Context, shopID string, productIDs []string) (*integrationapp.ShopExportResult, error)
	ListRuns(ctx context.Context, filter integration.ExportRunFilter) ([]integration.ExportRun, int64, error)
	GetRun(ctx context.Context, id uuid.UUID) (*integration.ExportRun, error)
}

// ExportHandler serves the internal EC export API
type ExportHandler struct {
	BaseHandler
	service ShopExporter
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(service ShopExporter) *ExportHandler {
	RegisterValidations()
	return &ExportHandler{service: service}
}

// Generate exports the selected products of a shop to the logistics provider.
//
// POST /api/internal/ec/shop/:shopId/generate
func (h *ExportHandler) Generate(c *gin.Context) {
	log := logger.GetGinLogger(c)
	shopID := c.Param("shopId")

	var req integrationapp.GenerateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, integrationapp.MsgProductIDsRequired)
		return
	}

	result, err := h.service.GenerateForShop(c.Request.Context(), shopID, req.ProductIDs)
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			h.HandleError(c, err, "")
			return
		}
		log.Error("EC export failed", zap.String("shop_id", shopID), zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeExportFailed, err.Error())
		return
	}

	log.Info("EC export completed",
		zap.String("shop_id", shopID),
		zap.String("run_id", result.Run.ID.String()),
		zap.Int("success_count", result.Run.SuccessCount),
	)
	h.SuccessWithMessage(c, result.Outcome.Message, result.Outcome.Data)
}

// ListRuns returns export runs, newest first.
//
// GET /api/internal/ec/runs
func (h *ExportHandler) ListRuns(c *gin.Context) {
	var filter integrationapp.ExportRunListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	domainFilter := filter.ToDomain()
	domainFilter.Page, domainFilter.PageSize = shared.NormalizePage(domainFilter.Page, domainFilter.PageSize)

	runs, total, err := h.service.ListRuns(c.Request.Context(), domainFilter)
	if err != nil {
		logger.GetGinLogger(c).Error("Failed to list export runs", zap.Error(err))
		h.HandleError(c, err, "Failed to list export runs")
		return
	}

	h.SuccessWithMeta(c, integrationapp.ToExportRunResponses(runs), total, domainFilter.Page, domainFilter.PageSize)
}

// GetRun returns one export run.
//
// GET /api/internal/ec/runs/:id
func (h *ExportHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid export run ID")
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "Export run not found")
			return
		}
		h.HandleError(c, err, "Failed to load export run")
		return
	}

	h.Success(c, integrationapp.ToExportRunResponse(run))
}

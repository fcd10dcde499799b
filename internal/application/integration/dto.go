package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/merchportal/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// GenerateExportRequest selects the shop products to export
type GenerateExportRequest struct {
	ProductIDs []string `json:"productIds" binding:"required,min=1,dive,required"`
}

// ExportRunListFilter represents filter options for listing export runs
type ExportRunListFilter struct {
	ShopID   string `form:"shop_id"`
	Status   string `form:"status" binding:"omitempty,run_status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToDomain converts the filter to the repository filter
func (f ExportRunListFilter) ToDomain() integration.ExportRunFilter {
	return integration.ExportRunFilter{
		ShopID:   f.ShopID,
		Status:   integration.ExportRunStatus(f.Status),
		Page:     f.Page,
		PageSize: f.PageSize,
		OrderBy:  f.OrderBy,
		OrderDir: f.OrderDir,
	}
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// ExportRunResponse represents an export run in API responses
type ExportRunResponse struct {
	ID           uuid.UUID                   `json:"id"`
	ShopID       string                      `json:"shop_id"`
	ShopName     string                      `json:"shop_name"`
	CustomerID   string                      `json:"customer_id"`
	ProductIDs   []string                    `json:"product_ids"`
	Status       integration.ExportRunStatus `json:"status"`
	ItemCount    int                         `json:"item_count"`
	SuccessCount int                         `json:"success_count"`
	FailCount    int                         `json:"fail_count"`
	SuccessRate  float64                     `json:"success_rate"`
	ErrorDetails []integration.ItemFailure   `json:"error_details"`
	Message      string                      `json:"message,omitempty"`
	StartedAt    *time.Time                  `json:"started_at,omitempty"`
	CompletedAt  *time.Time                  `json:"completed_at,omitempty"`
	DurationMs   int64                       `json:"duration_ms"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// ToExportRunResponse converts a domain ExportRun to a response DTO
func ToExportRunResponse(r *integration.ExportRun) ExportRunResponse {
	details := r.ErrorDetails
	if details == nil {
		details = make([]integration.ItemFailure, 0)
	}
	return ExportRunResponse{
		ID:           r.ID,
		ShopID:       r.ShopID,
		ShopName:     r.ShopName,
		CustomerID:   r.CustomerID,
		ProductIDs:   r.ProductIDs,
		Status:       r.Status,
		ItemCount:    r.ItemCount,
		SuccessCount: r.SuccessCount,
		FailCount:    r.FailCount,
		SuccessRate:  r.SuccessRate(),
		ErrorDetails: details,
		Message:      r.Message,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		DurationMs:   r.Duration().Milliseconds(),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// ToExportRunResponses converts a list of runs
func ToExportRunResponses(runs []integration.ExportRun) []ExportRunResponse {
	out := make([]ExportRunResponse, len(runs))
	for i := range runs {
		out[i] = ToExportRunResponse(&runs[i])
	}
	return out
}

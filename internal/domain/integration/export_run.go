package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/merchportal/backend/internal/domain/shared"
)

// ExportRunStatus represents the status of a shop export
type ExportRunStatus string

const (
	ExportRunStatusPending    ExportRunStatus = "pending"
	ExportRunStatusProcessing ExportRunStatus = "processing"
	ExportRunStatusCompleted  ExportRunStatus = "completed"
	ExportRunStatusPartial    ExportRunStatus = "partial"
	ExportRunStatusFailed     ExportRunStatus = "failed"
)

// IsValid checks if the status is valid
func (s ExportRunStatus) IsValid() bool {
	switch s {
	case ExportRunStatusPending, ExportRunStatusProcessing, ExportRunStatusCompleted,
		ExportRunStatusPartial, ExportRunStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s ExportRunStatus) IsTerminal() bool {
	return s == ExportRunStatusCompleted || s == ExportRunStatusPartial || s == ExportRunStatusFailed
}

// String returns the string representation
func (s ExportRunStatus) String() string {
	return string(s)
}

// ExportRun tracks one export of shop products to the logistics provider
type ExportRun struct {
	shared.BaseAggregateRoot
	ShopID       string          `json:"shop_id"`
	ShopName     string          `json:"shop_name"`
	CustomerID   string          `json:"customer_id"`
	ProductIDs   []string        `json:"product_ids"`
	Status       ExportRunStatus `json:"status"`
	ItemCount    int             `json:"item_count"`
	SuccessCount int             `json:"success_count"`
	FailCount    int             `json:"fail_count"`
	ErrorDetails []ItemFailure   `json:"error_details,omitempty"`
	Message      string          `json:"message,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// NewExportRun creates a pending export run
func NewExportRun(shopID, shopName, customerID string, productIDs []string) (*ExportRun, error) {
	if shopID == "" {
		return nil, shared.NewDomainError("INVALID_SHOP_ID", "Shop ID cannot be empty")
	}
	if len(productIDs) == 0 {
		return nil, shared.NewDomainError("INVALID_PRODUCT_IDS", "At least one product is required")
	}

	return &ExportRun{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ShopID:            shopID,
		ShopName:          shopName,
		CustomerID:        customerID,
		ProductIDs:        productIDs,
		Status:            ExportRunStatusPending,
		ErrorDetails:      make([]ItemFailure, 0),
	}, nil
}

// Start marks the run as processing
func (r *ExportRun) Start() error {
	if r.Status != ExportRunStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot start export run from state: %s", r.Status))
	}

	r.Status = ExportRunStatusProcessing
	now := time.Now()
	r.StartedAt = &now
	r.IncrementVersion()
	return nil
}

// Complete records the batch result. The run is completed when every item
// succeeded, partial when some did, failed otherwise.
func (r *ExportRun) Complete(result ImportResult, message string) error {
	if r.Status != ExportRunStatusProcessing {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot complete export run from state: %s", r.Status))
	}

	status := ExportRunStatusCompleted
	switch {
	case result.FailCount > 0 && result.SuccessCount > 0:
		status = ExportRunStatusPartial
	case result.FailCount > 0:
		status = ExportRunStatusFailed
	}

	r.Status = status
	r.ItemCount = result.Total()
	r.SuccessCount = result.SuccessCount
	r.FailCount = result.FailCount
	r.ErrorDetails = append(make([]ItemFailure, 0, len(result.Errors)), result.Errors...)
	r.Message = message
	now := time.Now()
	r.CompletedAt = &now
	r.IncrementVersion()
	return nil
}

// Fail marks the run as failed before or outside item submission
func (r *ExportRun) Fail(reason string) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot fail export run from terminal state: %s", r.Status))
	}

	r.Status = ExportRunStatusFailed
	r.Message = reason
	now := time.Now()
	r.CompletedAt = &now
	r.IncrementVersion()
	return nil
}

// IsSuccessful returns true if every item was imported
func (r *ExportRun) IsSuccessful() bool {
	return r.Status == ExportRunStatusCompleted
}

// SuccessRate returns the success rate as a percentage (0-100)
func (r *ExportRun) SuccessRate() float64 {
	if r.ItemCount == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(r.ItemCount) * 100
}

// Duration returns the duration of the run
func (r *ExportRun) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if r.CompletedAt != nil {
		end = *r.CompletedAt
	}
	return end.Sub(*r.StartedAt)
}

// ErrorDetailsJSON returns the error details as a JSON string
func (r *ExportRun) ErrorDetailsJSON() (string, error) {
	if len(r.ErrorDetails) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(r.ErrorDetails)
	if err != nil {
		return "", fmt.Errorf("failed to marshal error details: %w", err)
	}
	return string(data), nil
}

// SetErrorDetailsFromJSON parses error details from a JSON string
func (r *ExportRun) SetErrorDetailsFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		r.ErrorDetails = make([]ItemFailure, 0)
		return nil
	}
	var details []ItemFailure
	if err := json.Unmarshal([]byte(jsonStr), &details); err != nil {
		return fmt.Errorf("failed to unmarshal error details: %w", err)
	}
	r.ErrorDetails = details
	return nil
}

// ---------------------------------------------------------------------------
// ExportRunRepository
// ---------------------------------------------------------------------------

// ExportRunFilter narrows export run listings
type ExportRunFilter struct {
	ShopID   string
	Status   ExportRunStatus
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// ExportRunRepository persists export runs
type ExportRunRepository interface {
	// Save creates or updates an export run
	Save(ctx context.Context, run *ExportRun) error
	// FindByID returns shared.ErrNotFound when the run does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*ExportRun, error)
	// List returns one page of runs, newest first, and the total count
	List(ctx context.Context, filter ExportRunFilter) ([]ExportRun, int64, error)
}

package integration

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Export outcome messages
const (
	MessageNothingToSend = "No items needed to be sent."
)

// ItemFailure records why one item was rejected
type ItemFailure struct {
	SKU   string `json:"sku"`
	Error string `json:"error"`
}

// ImportResult aggregates the outcome of submitting a batch of items.
// Every attempted item is counted exactly once.
type ImportResult struct {
	SuccessCount int               `json:"successCount"`
	FailCount    int               `json:"failCount"`
	Errors       []ItemFailure     `json:"errors"`
	SuccessData  []json.RawMessage `json:"successData"`
}

// NewImportResult creates an empty result
func NewImportResult() ImportResult {
	return ImportResult{
		Errors:      make([]ItemFailure, 0),
		SuccessData: make([]json.RawMessage, 0),
	}
}

// RecordSuccess counts a successful item. Empty provider responses are
// counted but not kept.
func (r *ImportResult) RecordSuccess(data json.RawMessage) {
	r.SuccessCount++
	if len(data) > 0 {
		r.SuccessData = append(r.SuccessData, data)
	}
}

// RecordFailure counts a rejected item
func (r *ImportResult) RecordFailure(sku, message string) {
	r.FailCount++
	r.Errors = append(r.Errors, ItemFailure{SKU: sku, Error: message})
}

// Total returns the number of attempted items
func (r ImportResult) Total() int {
	return r.SuccessCount + r.FailCount
}

// HasFailures reports whether at least one item was rejected
func (r ImportResult) HasFailures() bool {
	return r.FailCount > 0
}

// FailureSummary joins every failure as "SKU x: reason" separated by "; "
func (r ImportResult) FailureSummary() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("SKU %s: %s", e.SKU, e.Error))
	}
	return strings.Join(parts, "; ")
}

// ImportError is returned when a batch completed with rejected items.
// The items that succeeded were still imported.
type ImportError struct {
	Result ImportResult
}

// Error implements the error interface
func (e *ImportError) Error() string {
	return fmt.Sprintf("Failed to import %d variant(s). Details: %s", e.Result.FailCount, e.Result.FailureSummary())
}

// Is makes errors.Is(err, ErrItemsFailed) match
func (e *ImportError) Is(target error) bool {
	return target == ErrItemsFailed
}

// ExportOutcome is the successful outcome of an export
type ExportOutcome struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    []json.RawMessage `json:"data,omitempty"`
	Result  ImportResult      `json:"-"`
}

// NothingToSendOutcome is returned when the products produced no item
func NothingToSendOutcome() *ExportOutcome {
	return &ExportOutcome{
		Success: true,
		Message: MessageNothingToSend,
		Result:  NewImportResult(),
	}
}

// OutcomeFromResult converts a batch result into an outcome, or an
// ImportError when any item failed
func OutcomeFromResult(result ImportResult) (*ExportOutcome, error) {
	if result.HasFailures() {
		return nil, &ImportError{Result: result}
	}
	return &ExportOutcome{
		Success: true,
		Message: fmt.Sprintf("Successfully imported %d variants.", result.SuccessCount),
		Data:    result.SuccessData,
		Result:  result,
	}, nil
}

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Logistics provider errors
// ---------------------------------------------------------------------------

var (
	// Provider transport errors
	ErrPlatformUnavailable     = errors.New("integration: logistics provider temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("integration: logistics provider request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid logistics provider response")
	ErrPlatformRateLimited     = errors.New("integration: logistics provider rate limited")

	// ErrNothingSent is matched by every error that aborts an export before
	// the first item is submitted (configuration and mapping errors)
	ErrNothingSent = errors.New("integration: export aborted before any item was sent")

	ErrExportNotConfigured  = errors.New("integration: logistics provider not configured")
	ErrMissingAccountNumber = errors.New("integration: customer account number missing")
	ErrMissingSKU           = errors.New("integration: variant SKU missing")

	// ErrItemsFailed is matched by ImportError, returned after a batch where
	// at least one item was rejected
	ErrItemsFailed = errors.New("integration: some items failed to import")

	// ErrExportInProgress is returned when a shop export is already running
	ErrExportInProgress = errors.New("integration: export already in progress for shop")
)

// AbortedError reports an export stopped before anything was submitted.
// Detail is the operator-facing message.
type AbortedError struct {
	Reason error
	Detail string
}

// Error implements the error interface
func (e *AbortedError) Error() string {
	return e.Detail
}

// Unwrap exposes both the reason and ErrNothingSent to errors.Is
func (e *AbortedError) Unwrap() []error {
	return []error{e.Reason, ErrNothingSent}
}

// NewAbortedError creates an error for an export that sent nothing
func NewAbortedError(reason error, format string, args ...any) *AbortedError {
	return &AbortedError{
		Reason: reason,
		Detail: fmt.Sprintf(format, args...),
	}
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials identify the portal against the logistics provider API
type Credentials struct {
	// BaseURL is the provider API root, without the /api-v1 path
	BaseURL string
	// Login is the API login
	Login string
	// Password is the API password, sent as a query parameter
	Password string
	// User is the uploading user; defaults to the customer's company name
	User string
}

// Validate checks that the credentials needed for any call are present
func (c Credentials) Validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "URL")
	}
	if c.Login == "" {
		missing = append(missing, "login")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return NewAbortedError(ErrExportNotConfigured,
			"Missing required EC API credentials (%s).", strings.Join(missing, ", "))
	}
	return nil
}

// UserFor returns the configured user, or the company name when none is configured
func (c Credentials) UserFor(companyName string) string {
	if c.User != "" {
		return c.User
	}
	return companyName
}

// MaskedPassword returns the password reduced to a 3 character prefix
func (c Credentials) MaskedPassword() string {
	return MaskSecret(c.Password)
}

// MaskSecret keeps the first 3 characters of a secret and masks the rest
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	r := []rune(secret)
	if len(r) <= 3 {
		return "***"
	}
	return string(r[:3]) + "***"
}

// ---------------------------------------------------------------------------
// ItemImporter port
// ---------------------------------------------------------------------------

// ImportRequest is one item submission to the provider
type ImportRequest struct {
	Credentials     Credentials
	CustomerAccount string
	User            string
	Item            Item
}

// ItemImporter submits items to the logistics provider.
// Implementations perform a single attempt; retries are the caller's concern.
type ItemImporter interface {
	// ImportItem sends one item and returns the provider response body, which
	// may be empty
	ImportItem(ctx context.Context, req ImportRequest) (json.RawMessage, error)
}

// ---------------------------------------------------------------------------
// Export guard and report archive ports
// ---------------------------------------------------------------------------

// ExportLock serializes exports of the same shop across instances
type ExportLock interface {
	// Acquire takes the lock for key. Returns false when it is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees the lock for key
	Release(ctx context.Context, key string) error
}

// ReportArchive stores run reports for later inspection
type ReportArchive interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

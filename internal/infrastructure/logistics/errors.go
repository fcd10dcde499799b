package logistics

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/merchportal/backend/internal/domain/integration"
)

// ProviderError is an HTTP error answered by the provider
type ProviderError struct {
	StatusCode int
	// Message is the provider's message field, or a generic status line
	Message string
}

// Error returns the provider message
func (e *ProviderError) Error() string {
	return e.Message
}

// Unwrap classifies the error for errors.Is
func (e *ProviderError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return integration.ErrPlatformRateLimited
	}
	return integration.ErrPlatformRequestFailed
}

// TransportError is a failure to reach the provider or read its answer
type TransportError struct {
	Err error
}

// Error returns the underlying transport message
func (e *TransportError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes both the cause and ErrPlatformUnavailable
func (e *TransportError) Unwrap() []error {
	return []error{e.Err, integration.ErrPlatformUnavailable}
}

// IsRetryable reports whether a failed submission may be attempted again.
// Server errors, rate limiting and transport failures are retryable; other
// client errors and a cancelled parent context are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode >= 500 || pe.StatusCode == http.StatusTooManyRequests
	}
	var te *TransportError
	return errors.As(err, &te)
}

// ErrorMessage extracts the per-item error text recorded in an import result
func ErrorMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Message
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Error()
	}
	return err.Error()
}

func statusMessage(code int) string {
	return fmt.Sprintf("Request failed with status code %d", code)
}

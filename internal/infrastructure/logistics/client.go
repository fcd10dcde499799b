package logistics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/merchportal/backend/internal/domain/integration"
	"github.com/merchportal/backend/internal/infrastructure/telemetry"
)

// Client submits items to the logistics provider item endpoint.
// Each call is a single attempt.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a provider client with the given configuration
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// itemURL builds the endpoint URL with credentials in the query string
func (c *Client) itemURL(req integration.ImportRequest) string {
	base := req.Credentials.BaseURL
	if base == "" {
		base = c.config.BaseURL
	}

	params := [][2]string{
		{"CustomerAccount", req.CustomerAccount},
		{"Login", req.Credentials.Login},
		{"Password", req.Credentials.Password},
		{"uploadType", uploadTypeUser},
		{"User", req.User},
	}
	var query strings.Builder
	for i, p := range params {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(p[0])
		query.WriteByte('=')
		query.WriteString(escapeQueryValue(p[1]))
	}

	return strings.TrimRight(base, "/") + ItemEndpointPath + "?" + query.String()
}

// escapeQueryValue percent-encodes a query value with spaces as %20.
// The provider does not decode '+' as a space.
func escapeQueryValue(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ImportItem posts one item as a single-element array and returns the
// response body, which may be empty
func (c *Client) ImportItem(ctx context.Context, req integration.ImportRequest) (json.RawMessage, error) {
	ctx, span := telemetry.StartSpan(ctx, "logistics.import_item",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("logistics.sku", req.Item.SKU),
		telemetry.WithAttribute("logistics.customer_account", req.CustomerAccount),
	)
	defer span.End()

	body, err := json.Marshal([]integration.Item{req.Item})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("logistics: failed to encode item: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.itemURL(req), bytes.NewReader(body))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("logistics: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug("Submitting item to logistics provider",
		zap.String("sku", req.Item.SKU),
		zap.String("customer_account", req.CustomerAccount),
		zap.String("login", req.Credentials.Login),
		zap.String("password", req.Credentials.MaskedPassword()),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseSize))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, &TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}
	telemetry.SetAttribute(span, "http.status_code", resp.StatusCode)

	if resp.StatusCode >= 400 {
		perr := &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    providerMessage(respBody, resp.StatusCode),
		}
		telemetry.RecordError(span, perr)
		return nil, perr
	}

	telemetry.SetOK(span)
	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		// non-JSON success bodies are kept as a JSON string
		quoted, _ := json.Marshal(string(trimmed))
		return quoted, nil
	}
	return json.RawMessage(trimmed), nil
}

// providerMessage returns the message field of an error body, or a generic
// status line when the body carries none
func providerMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return statusMessage(status)
}

// Ensure Client implements ItemImporter
var _ integration.ItemImporter = (*Client)(nil)

package logistics

import (
	"errors"
	"net/url"
	"time"
)

const (
	// ItemEndpointPath is the provider item import endpoint, relative to the base URL
	ItemEndpointPath = "/api-v1/item"
	// DefaultUserAgent identifies the portal to the provider
	DefaultUserAgent = "MerchPortal/1.0"
	// DefaultTimeout bounds a single item submission
	DefaultTimeout = 30 * time.Second
	// DefaultMaxResponseSize is the maximum accepted response body (10MB)
	DefaultMaxResponseSize = 10 * 1024 * 1024
	// uploadTypeUser is the only upload type the portal uses
	uploadTypeUser = "User"
)

// Errors for client configuration
var (
	ErrConfigMissingBaseURL = errors.New("logistics: base URL is required")
	ErrConfigInvalidBaseURL = errors.New("logistics: base URL must be an absolute http(s) URL")
)

// Config holds the HTTP client settings. Credentials travel with each
// request and are not part of the client configuration.
type Config struct {
	// BaseURL is the provider API root
	BaseURL string
	// Timeout bounds one HTTP call
	Timeout time.Duration
	// UserAgent is sent on every request
	UserAgent string
	// MaxResponseSize limits how much of a response body is read
	MaxResponseSize int64
}

// NewConfig creates a configuration with defaults
func NewConfig(baseURL string) *Config {
	return &Config{
		BaseURL:         baseURL,
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgent,
		MaxResponseSize: DefaultMaxResponseSize,
	}
}

// Validate checks the configuration and fills defaults
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrConfigInvalidBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = DefaultMaxResponseSize
	}
	return nil
}

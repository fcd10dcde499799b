package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/merchportal/backend/internal/infrastructure/auth"
	"github.com/merchportal/backend/internal/infrastructure/config"
)

func TestInternalAuth(t *testing.T) {
	verifier := auth.NewTokenVerifier(config.AuthConfig{
		Enabled: true,
		Secret:  "test-secret-that-is-long-enough-for-hs256",
		Issuer:  "merchportal",
	})

	var subject string
	r := gin.New()
	r.Use(RequestID())
	r.POST("/generate", InternalAuth(verifier, auth.ScopeExportWrite, zaptest.NewLogger(t)), func(c *gin.Context) {
		subject = GetAuthSubject(c)
		c.Status(http.StatusOK)
	})

	issue := func(scopes []string, ttl time.Duration) string {
		token, err := verifier.Issue("portal-api", scopes, ttl)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedCode   string
	}{
		{"missing header", "", http.StatusUnauthorized, "ERR_UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "ERR_UNAUTHORIZED"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "ERR_UNAUTHORIZED"},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, "ERR_UNAUTHORIZED"},
		{"expired token", "Bearer " + issue([]string{auth.ScopeExportWrite}, -time.Minute), http.StatusUnauthorized, "ERR_TOKEN_EXPIRED"},
		{"missing scope", "Bearer " + issue([]string{auth.ScopeExportRead}, time.Minute), http.StatusForbidden, "ERR_FORBIDDEN"},
		{"valid token", "Bearer " + issue([]string{auth.ScopeExportWrite}, time.Minute), http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/generate", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Contains(t, w.Body.String(), tt.expectedCode)
				assert.Empty(t, subject)
				return
			}
			assert.Equal(t, "portal-api", subject)
		})
	}
}

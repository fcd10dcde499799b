package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/merchportal/backend/internal/infrastructure/auth"
)

// Auth context keys
const (
	AuthClaimsKey  = "auth_claims"
	AuthSubjectKey = "auth_subject"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// InternalAuth requires a bearer service token carrying scope
func InternalAuth(verifier *auth.TokenVerifier, scope string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortWithError(c, http.StatusUnauthorized, "ERR_UNAUTHORIZED", "Missing authorization header")
			return
		}
		token, ok := strings.CutPrefix(header, BearerPrefix)
		if !ok || token == "" {
			abortWithError(c, http.StatusUnauthorized, "ERR_UNAUTHORIZED", "Invalid authorization header format")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			logger.Debug("Rejected service token",
				zap.String("request_id", getRequestID(c)),
				zap.Error(err))
			if errors.Is(err, auth.ErrExpiredToken) {
				abortWithError(c, http.StatusUnauthorized, "ERR_TOKEN_EXPIRED", "Token has expired")
				return
			}
			abortWithError(c, http.StatusUnauthorized, "ERR_UNAUTHORIZED", "Invalid token")
			return
		}

		if !claims.HasScope(scope) {
			logger.Warn("Service token lacks scope",
				zap.String("subject", claims.Subject),
				zap.String("scope", scope))
			abortWithError(c, http.StatusForbidden, "ERR_FORBIDDEN", "Insufficient scope")
			return
		}

		c.Set(AuthClaimsKey, claims)
		c.Set(AuthSubjectKey, claims.Subject)
		c.Next()
	}
}

// GetAuthSubject returns the authenticated caller, if any
func GetAuthSubject(c *gin.Context) string {
	return c.GetString(AuthSubjectKey)
}

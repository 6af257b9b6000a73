package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/pkg/logger"
)

const authorizationHeader = "Authorization"

// Gin context keys set by RequireAccessToken.
const (
	KeyUserID   = "user_id"
	KeyTenantID = "tenant_id"
	KeyRole     = "role"
)

// bearerToken extracts the credentials of an "Authorization: Bearer <token>" header.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// RequireAccessToken verifies the bearer token and injects identity into the request context.
// The request logger is re-scoped with tenant_id and user_id. Role checks belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c.GetHeader(authorizationHeader))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := m.Verify(tok, time.Now())
		if err != nil {
			logger.FromGin(c).Debug("token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		uid := claims.UserID()
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), uid, claims.TenantID, claims.Role))
		c.Set(KeyUserID, uid)
		c.Set(KeyTenantID, claims.TenantID)
		c.Set(KeyRole, claims.Role)
		logger.Attach(c, logger.FromGin(c).With("tenant_id", claims.TenantID, "user_id", uid))
		c.Next()
	}
}

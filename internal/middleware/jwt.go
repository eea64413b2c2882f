package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

// ContextClaimsKey is the gin context key storing tenant claims.
const ContextClaimsKey = "tenantClaims"

type tokenVerifier interface {
	Verify(token string) (*models.TenantClaims, error)
}

// JWT requires a valid bearer token and binds the request to the token's school.
func JWT(verifier tokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := verifier.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// Claims returns the tenant claims attached by JWT.
func Claims(c *gin.Context) (*models.TenantClaims, bool) {
	value, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.TenantClaims)
	return claims, ok && claims != nil
}

// SchoolID returns the tenant of the current request, or "" when unauthenticated.
func SchoolID(c *gin.Context) string {
	if claims, ok := Claims(c); ok {
		return claims.SchoolID
	}
	return ""
}

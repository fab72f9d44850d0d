package middleware

import (
	"net/http"
	"strings"

	"go-healthcare-frontdesk/internal/delivery/http/response"
	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/pkg/auth"
	"go-healthcare-frontdesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a valid session token in "Authorization: Bearer <token>"
func AuthMiddleware(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		tokenString = strings.TrimSpace(tokenString)
		if !ok || tokenString == "" {
			response.Error(c, http.StatusUnauthorized, "Authorization header required", nil)
			c.Abort()
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			logger.Log.Debug("token validation failed", "error", err)
			response.Error(c, http.StatusUnauthorized, "Invalid token", nil)
			c.Abort()
			return
		}

		c.Set(string(domain.KeyAccountID), claims.Subject)
		c.Set(string(domain.KeyAccountEmail), claims.Email)
		c.Set(authClaimsKey, claims)

		c.Next()
	}
}

const authClaimsKey = "AuthClaims"

// ClaimsFrom returns the claims stored by AuthMiddleware
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(authClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"strings"
	"time"

	"fleetcare-service/internal/pkg/jwt"
	"fleetcare-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenValidator is implemented by the auth service.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// AuthContext is the authenticated caller of one request.
type AuthContext struct {
	UserID    string
	SessionID string
	Email     string
	Device    string
	ExpiresAt time.Time
}

const (
	ctxAuth      = "auth"
	ctxUserID    = "user_id"
	ctxJTI       = "jti"
	ctxEmail     = "email"
	ctxExpiresAt = "expires_at"
)

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Auth is the base authentication middleware that validates JWT tokens
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		claims, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		setAuth(c, claims)
		c.Next()
	}
}

func setAuth(c *gin.Context, claims *jwt.Claims) {
	a := &AuthContext{
		UserID:    claims.UserID,
		SessionID: claims.ID,
		Email:     claims.Email,
		Device:    claims.Device,
	}
	if claims.ExpiresAt != nil {
		a.ExpiresAt = claims.ExpiresAt.Time
	}

	c.Set(ctxAuth, a)
	c.Set(ctxUserID, a.UserID)
	c.Set(ctxJTI, a.SessionID)
	c.Set(ctxEmail, a.Email)
	c.Set(ctxExpiresAt, a.ExpiresAt)
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

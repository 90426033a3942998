package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/classroom-service/internal/services"
)

const (
	userIDContextKey = "user_id"
	tokenContextKey  = "access_token"
)

// JWTAuthMiddleware authenticates requests against the auth service's tokens.
type JWTAuthMiddleware struct {
	auth services.AuthService
}

func NewJWTAuthMiddleware(auth services.AuthService) *JWTAuthMiddleware {
	return &JWTAuthMiddleware{auth: auth}
}

// AuthMiddleware returns a Gin middleware that requires a valid bearer token.
func (m *JWTAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Message: err.Error()})
			c.Abort()
			return
		}

		userID, err := m.auth.VerifyToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(userIDContextKey, userID)
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid authorization header format")
	}

	return parts[1], nil
}

// GetUserIDFromContext extracts the authenticated account ID from the Gin context.
func GetUserIDFromContext(c *gin.Context) (uint, error) {
	userID, exists := c.Get(userIDContextKey)
	if !exists {
		return 0, fmt.Errorf("user ID not found in context")
	}

	id, ok := userID.(uint)
	if !ok {
		return 0, fmt.Errorf("invalid user ID type in context")
	}

	return id, nil
}

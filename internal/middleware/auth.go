package middleware

import (
	"errors"
	"net/http"
	"strings"

	"imob-crm/internal/auth"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "user_id"
	emailKey  = "email"
)

// TokenValidator validates a bearer token and returns its claims
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// RequireAuth middleware validates Supabase access tokens
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required", nil)
			return
		}

		token, err := extractBearerToken(authHeader)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "INVALID_AUTH_HEADER", err.Error(), nil)
			return
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil {
			var code string
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				code = "TOKEN_EXPIRED"
			case errors.Is(err, auth.ErrInvalidToken):
				code = "INVALID_TOKEN"
			default:
				code = "TOKEN_VALIDATION_FAILED"
			}
			abortWithError(c, http.StatusUnauthorized, code, err.Error(), nil)
			return
		}

		c.Set(userIDKey, claims.UserID())
		c.Set(emailKey, claims.Email)
		c.Next()
	}
}

var (
	errBearerFormat = errors.New("invalid authorization header format, expected 'Bearer <token>'")
	errBearerEmpty  = errors.New("token cannot be empty")
)

// extractBearerToken extracts the token from Bearer authorization header
func extractBearerToken(authHeader string) (string, error) {
	const bearerPrefix = "bearer "
	if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", errBearerFormat
	}

	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return "", errBearerEmpty
	}
	return token, nil
}

// GetUserID returns the authenticated broker's id
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(userIDKey)
	return id, id != ""
}

// GetUserEmail returns the authenticated broker's email, if the token had one
func GetUserEmail(c *gin.Context) (string, bool) {
	email := c.GetString(emailKey)
	return email, email != ""
}

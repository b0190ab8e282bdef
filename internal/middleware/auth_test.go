package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"imob-crm/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-auth-middleware-32chars"

func authRouter(validator TokenValidator) *gin.Engine {
	router := gin.New()
	router.Use(RequireAuth(validator))
	router.GET("/protected", func(c *gin.Context) {
		userID, _ := GetUserID(c)
		email, _ := GetUserEmail(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "email": email})
	})
	return router
}

func TestRequireAuth(t *testing.T) {
	svc := auth.NewJWTService(testSecret, auth.DefaultAudience)

	valid, err := svc.GenerateToken("broker-1", "ana@imob.com", time.Hour)
	require.NoError(t, err)
	expired, err := svc.GenerateToken("broker-1", "", -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedCode   string
	}{
		{name: "valid token", authHeader: "Bearer " + valid, expectedStatus: http.StatusOK},
		{name: "lowercase scheme", authHeader: "bearer " + valid, expectedStatus: http.StatusOK},
		{name: "missing header", authHeader: "", expectedStatus: http.StatusUnauthorized, expectedCode: "AUTH_HEADER_MISSING"},
		{name: "no bearer prefix", authHeader: valid, expectedStatus: http.StatusUnauthorized, expectedCode: "INVALID_AUTH_HEADER"},
		{name: "empty token", authHeader: "Bearer ", expectedStatus: http.StatusUnauthorized, expectedCode: "INVALID_AUTH_HEADER"},
		{name: "garbage token", authHeader: "Bearer abc.def.ghi", expectedStatus: http.StatusUnauthorized, expectedCode: "INVALID_TOKEN"},
		{name: "expired token", authHeader: "Bearer " + expired, expectedStatus: http.StatusUnauthorized, expectedCode: "TOKEN_EXPIRED"},
	}

	router := authRouter(svc)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedCode, resp.Code)
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "broker-1", body["user_id"])
			assert.Equal(t, "ana@imob.com", body["email"])
		})
	}
}

type failingValidator struct{}

func (failingValidator) ValidateAccessToken(string) (*auth.Claims, error) {
	return nil, errors.New("secret unavailable")
}

func TestRequireAuth_OtherValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer x")
	authRouter(failingValidator{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TOKEN_VALIDATION_FAILED", resp.Code)
}

func TestGetUserID_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetUserID(c)
	assert.False(t, ok)
}

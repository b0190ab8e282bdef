// Package auth verifies the access tokens issued by Supabase Auth. Brokers
// sign in on the frontend; the API only checks the HS256 signature with the
// project's JWT secret and reads the user id from the subject claim.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret is not configured")
)

// DefaultAudience is the audience Supabase puts on signed-in user tokens.
const DefaultAudience = "authenticated"

// Claims are the Supabase access token claims the API reads
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the broker's id (the token subject)
func (c *Claims) UserID() string { return c.Subject }

// JWTService verifies and, for development and tests, issues tokens
type JWTService struct {
	secretKey []byte
	audience  string
	leeway    time.Duration
}

// NewJWTService creates a verifier for secret. An empty audience disables
// the audience check.
func NewJWTService(secret, audience string) *JWTService {
	return &JWTService{
		secretKey: []byte(secret),
		audience:  audience,
		leeway:    30 * time.Second,
	}
}

// ValidateAccessToken validates and parses an access token
func (j *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if len(j.secretKey) == 0 {
		return nil, ErrNoSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.leeway),
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken signs a token shaped like a Supabase access token
func (j *JWTService) GenerateToken(userID, email string, ttl time.Duration) (string, error) {
	if len(j.secretKey) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  DefaultAudience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if j.audience != "" {
		claims.Audience = jwt.ClaimStrings{j.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
}

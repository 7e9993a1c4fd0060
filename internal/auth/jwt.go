package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// BearerPrefix precedes the token in the session header.
const BearerPrefix = "Bearer "

// Claims holds session token claims. Subject is the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTService handles token generation and validation.
type JWTService struct {
	secret        []byte
	expireMinutes int
	now           func() time.Time
}

// NewJWTService creates a JWT service issuing tokens valid for expireMinutes.
func NewJWTService(secret string, expireMinutes int) *JWTService {
	return &JWTService{
		secret:        []byte(secret),
		expireMinutes: expireMinutes,
		now:           time.Now,
	}
}

// Generate creates a new session token for the user.
func (s *JWTService) Generate(userID, username string) (string, error) {
	now := s.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expireMinutes) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a token, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenFromHeader extracts the token from a "Bearer <token>" header value.
func TokenFromHeader(value string) (string, bool) {
	if !strings.HasPrefix(value, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(value[len(BearerPrefix):])
	return token, token != ""
}

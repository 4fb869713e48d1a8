package service

import (
	"errors"
	"time"

	"ladders_backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of player tokens.
const DefaultTokenTTL = 24 * time.Hour

var (
	jwtSecret []byte

	ErrInvalidToken = errors.New("invalid token")
)

// InitJWT sets the HMAC secret used to sign and verify tokens.
func InitJWT(secret string) {
	if secret == "" {
		panic("JWT secret is empty")
	}
	jwtSecret = []byte(secret)
}

// GenerateJWT issues a token whose subject is the caller identity.
func GenerateJWT(subject domain.Identity, ttl time.Duration) (string, error) {
	if len(jwtSecret) == 0 {
		return "", errors.New("jwt not initialized")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   string(subject),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseJWT verifies a token and returns its subject.
func ParseJWT(tokenString string) (domain.Identity, error) {
	if len(jwtSecret) == 0 {
		return "", errors.New("jwt not initialized")
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", errors.New("subject not found")
	}
	return domain.Identity(claims.Subject), nil
}

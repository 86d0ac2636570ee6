// Package auth implements C8, the rate & auth gate: bearer/cookie token
// validation and per-user rate limiting.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors returned by Validate.
var (
	ErrAuthDisabled = errors.New("auth: signing key not configured")
	ErrInvalidToken = errors.New("auth: invalid or expired token")
)

// Claims is the JWT claim set issued by the identity service and consumed
// here. The identity service itself is out of scope; this type only
// describes the shape we parse.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenValidator verifies HMAC-signed bearer/cookie tokens and resolves the
// user identifier carried in the subject claim.
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator builds a validator using signingKey as the shared HMAC
// secret.
func NewTokenValidator(signingKey string) *TokenValidator {
	return &TokenValidator{secret: []byte(signingKey)}
}

// Validate parses token and returns the subject (user id) it carries.
func (v *TokenValidator) Validate(token string) (userID string, err error) {
	if v == nil || len(v.secret) == 0 {
		return "", ErrAuthDisabled
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Issue signs a token for userID. Used only by tests and local tooling; in
// production the identity service (out of scope) issues tokens against the
// same signing key.
func (v *TokenValidator) Issue(userID string, ttl time.Duration) (string, error) {
	if v == nil || len(v.secret) == 0 {
		return "", ErrAuthDisabled
	}
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

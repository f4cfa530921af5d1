// Package jwt issues and checks the administrative capability tokens.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"priceoracle/internal/apperr"
)

const adminRole = "admin"

// GenerateToken signs an admin token for subject. A zero ttl never expires.
func GenerateToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("empty signing secret")
	}
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": adminRole,
		"iat":  time.Now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Authorizer validates admin tokens signed with a shared secret.
type Authorizer struct {
	secret []byte
}

func NewAuthorizer(secret string) *Authorizer {
	return &Authorizer{secret: []byte(secret)}
}

// Authorize returns the token subject, or an error wrapping
// apperr.ErrUnauthorized.
func (a *Authorizer) Authorize(token string) (string, error) {
	if token == "" || len(a.secret) == 0 {
		return "", fmt.Errorf("%w: missing admin token", apperr.ErrUnauthorized)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != adminRole {
		return "", fmt.Errorf("%w: not an admin token", apperr.ErrUnauthorized)
	}
	sub, _ := claims.GetSubject()
	return sub, nil
}

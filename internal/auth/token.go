// Package auth provides token issuance, verification and credential hashing.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/modelvault/modelvault/internal/model"
)

// Token errors. A malformed token and a token signed with a different key
// surface as the same error class so callers cannot tell them apart.
var (
	ErrInvalidToken = errors.New("invalid authentication token")
)

// Claims embeds the registered JWT claims plus the identity snapshot
// captured at issuance.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
	Perms int    `json:"perms"`
}

// TokenService signs and verifies access tokens with a shared secret.
// The secret is injected at construction and is the sole trust anchor.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. ttl bounds token validity.
func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	return &TokenService{secret: secret, ttl: ttl}
}

// Issue signs a token embedding the user's identity snapshot.
func (s *TokenService) Issue(user *model.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email: user.Email,
		Name:  user.Name,
		Perms: int(user.Perms),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string and returns the embedded
// identity. Every failure mode collapses into ErrInvalidToken: syntax
// errors, expiry, and signatures made with any other key.
func (s *TokenService) Verify(tokenString string) (model.Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return model.Identity{}, ErrInvalidToken
	}

	return model.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Perms:  model.Perm(claims.Perms),
	}, nil
}

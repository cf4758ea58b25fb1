package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims the course backend puts into its tokens.
type TokenClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// InspectToken decodes the claims of a JWT without checking its signature.
// The client cannot verify backend tokens; this is for display only.
func InspectToken(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// ExpiresAtTime returns the zero time when the token has no exp claim.
func (c *TokenClaims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func (c *TokenClaims) Expired(now time.Time) bool {
	exp := c.ExpiresAtTime()
	return !exp.IsZero() && !now.Before(exp)
}

package handlers

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/studysync/studysync/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type Claims struct {
	Type       string `json:"type"`
	Generation int64  `json:"gen"`
	jwt.RegisteredClaims
}

// TokenIssuer signs access and refresh tokens with separate HS256 keys.
// Bumping a generation invalidates every token of that type issued before.
type TokenIssuer struct {
	accessKey     []byte
	refreshKey    []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	accessGen     atomic.Int64
	refreshGen    atomic.Int64
	now           func() time.Time
}

func NewTokenIssuer(accessKey, refreshKey string, accessExpiry, refreshExpiry time.Duration) (*TokenIssuer, error) {
	if len(accessKey) < 32 || len(refreshKey) < 32 {
		return nil, fmt.Errorf("signing keys must be at least 32 bytes")
	}

	return &TokenIssuer{
		accessKey:     []byte(accessKey),
		refreshKey:    []byte(refreshKey),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}, nil
}

func (s *TokenIssuer) Issue(subject string) (*models.TokenResponse, error) {
	access, err := s.sign(subject, tokenTypeAccess, s.accessGen.Load(), s.accessExpiry, s.accessKey)
	if err != nil {
		return nil, err
	}

	refresh, err := s.sign(subject, tokenTypeRefresh, s.refreshGen.Load(), s.refreshExpiry, s.refreshKey)
	if err != nil {
		return nil, err
	}

	return &models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessExpiry.Seconds()),
	}, nil
}

func (s *TokenIssuer) sign(subject, tokenType string, gen int64, expiry time.Duration, key []byte) (string, error) {
	now := s.now()
	claims := &Claims{
		Type:       tokenType,
		Generation: gen,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *TokenIssuer) verify(token, tokenType string, gen int64, key []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.Type != tokenType {
		return nil, fmt.Errorf("wrong token type %q", claims.Type)
	}

	if claims.Generation != gen {
		return nil, fmt.Errorf("%s token revoked", tokenType)
	}

	return claims, nil
}

// VerifyAccessToken implements middleware.TokenVerifier.
func (s *TokenIssuer) VerifyAccessToken(token string) (string, error) {
	claims, err := s.verify(token, tokenTypeAccess, s.accessGen.Load(), s.accessKey)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *TokenIssuer) VerifyRefreshToken(token string) (string, error) {
	claims, err := s.verify(token, tokenTypeRefresh, s.refreshGen.Load(), s.refreshKey)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// RevokeAccessTokens makes every outstanding access token fail verification.
func (s *TokenIssuer) RevokeAccessTokens() {
	s.accessGen.Add(1)
}

func (s *TokenIssuer) RevokeRefreshTokens() {
	s.refreshGen.Add(1)
}

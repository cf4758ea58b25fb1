package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/models"
	"github.com/studysync/studysync/internal/repository"
	"golang.org/x/sync/singleflight"
)

// TokenRefresher exchanges a refresh token for a new pair at /auth/refresh.
// Concurrent refreshes of the same token share a single request.
type TokenRefresher struct {
	httpClient HTTPDoer
	baseURL    *url.URL
	repo       repository.CredentialRepository
	logger     *logrus.Logger
	group      singleflight.Group
}

func NewTokenRefresher(
	httpClient HTTPDoer,
	baseURL *url.URL,
	repo repository.CredentialRepository,
	logger *logrus.Logger,
) *TokenRefresher {
	return &TokenRefresher{
		httpClient: httpClient,
		baseURL:    baseURL,
		repo:       repo,
		logger:     logger,
	}
}

// Refresh returns the new access token after merging the response into the
// credential repository.
//
// The exchange itself is detached from ctx so that one caller giving up does
// not fail the refresh for the others sharing it; a cancelled caller returns
// ctx.Err() right away.
func (s *TokenRefresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	ch := s.group.DoChan(refreshToken, func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx), refreshToken)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Joined in-flight token refresh")
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *TokenRefresher) refresh(ctx context.Context, refreshToken string) (string, error) {
	form := make(url.Values)
	form.Set(models.KeyRefreshToken, refreshToken)

	target, err := ResolveTarget(s.baseURL, PathRefresh)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.WithField("status", resp.StatusCode).Warn("Refresh endpoint rejected refresh token")
		return "", &RefreshError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var tr models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: failed to decode token response: %w", ErrRefreshRejected, err)
	}

	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: response carried no access token", ErrRefreshRejected)
	}

	if err := s.repo.Save(ctx, tr.Credentials()); err != nil {
		// The new token is still good for the retry in hand.
		s.logger.WithError(err).Error("Failed to persist refreshed credentials")
	}

	s.logger.WithFields(logrus.Fields{
		"token_type":      tr.TokenType,
		"expires_in":      tr.ExpiresIn,
		"refresh_rotated": tr.RefreshToken != "",
	}).Info("Access token refreshed")

	return tr.AccessToken, nil
}

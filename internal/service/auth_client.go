package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/repository"
)

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type Redirector interface {
	Redirect(ctx context.Context)
}

// AuthClient performs requests with the stored bearer token and recovers from
// one expired access token per call.
type AuthClient struct {
	httpClient HTTPDoer
	baseURL    *url.URL
	repo       repository.CredentialRepository
	refresher  Refresher
	redirector Redirector
	logger     *logrus.Logger
}

func NewAuthClient(
	httpClient HTTPDoer,
	baseURL *url.URL,
	repo repository.CredentialRepository,
	refresher Refresher,
	redirector Redirector,
	logger *logrus.Logger,
) *AuthClient {
	return &AuthClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		repo:       repo,
		refresher:  refresher,
		redirector: redirector,
		logger:     logger,
	}
}

// FetchWithAuth sends req with an Authorization header built from the stored
// access token.
//
// Any status other than 401 is returned as is. On 401 the refresh token is
// exchanged once and the request is replayed with the new access token; the
// replayed response is returned whatever its status. When there are no
// stored credentials, or the refresh fails, the session is ended through the
// Redirector and the returned error matches ErrAuthFailed.
func (c *AuthClient) FetchWithAuth(ctx context.Context, req Request) (*http.Response, error) {
	creds, err := c.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	log := c.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"target": req.Target,
	})

	if !creds.Complete() {
		log.Info("No stored credentials")
		c.redirector.Redirect(ctx)
		return nil, ErrMissingCredentials
	}

	resp, err := c.send(ctx, req, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	drainAndClose(resp)
	log.Debug("Access token rejected, refreshing")

	accessToken, err := c.refresher.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Cancelled by the caller, not rejected by the backend.
			return nil, ctxErr
		}

		log.WithError(err).Warn("Token refresh failed")
		c.redirector.Redirect(ctx)

		if !errors.Is(err, ErrRefreshRejected) {
			err = fmt.Errorf("%w: %w", ErrRefreshRejected, err)
		}
		return nil, err
	}

	resp, err = c.send(ctx, req, accessToken)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		log.Warn("Request still unauthorized after token refresh")
	}

	return resp, nil
}

func (c *AuthClient) send(ctx context.Context, req Request, accessToken string) (*http.Response, error) {
	httpReq, err := req.build(ctx, c.baseURL, accessToken)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, httpReq.Method, httpReq.URL.Redacted(), err)
	}

	return resp, nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/models"
	"github.com/studysync/studysync/internal/repository"
)

// SessionService signs users in and out.
type SessionService struct {
	httpClient HTTPDoer
	baseURL    *url.URL
	repo       repository.CredentialRepository
	logger     *logrus.Logger
	now        func() time.Time
}

func NewSessionService(
	httpClient HTTPDoer,
	baseURL *url.URL,
	repo repository.CredentialRepository,
	logger *logrus.Logger,
) *SessionService {
	return &SessionService{
		httpClient: httpClient,
		baseURL:    baseURL,
		repo:       repo,
		logger:     logger,
		now:        time.Now,
	}
}

type SessionInfo struct {
	SignedIn  bool
	Subject   string
	ExpiresAt time.Time
	Expired   bool
}

// Login posts the OAuth2 password form to /auth/login and stores the
// returned token pair.
func (s *SessionService) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password", ErrMissingField)
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	target, err := ResolveTarget(s.baseURL, PathLogin)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: login: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.WithField("status", resp.StatusCode).Info("Login rejected")
		return nil, ErrInvalidCredentials
	}

	var tr models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return nil, fmt.Errorf("login response is missing tokens")
	}

	// A new sign-in replaces whatever session was stored before.
	if err := s.repo.Clear(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, tr.Credentials()); err != nil {
		return nil, err
	}

	s.logger.Info("Signed in")
	return &tr, nil
}

// SignUp creates a student account. The backend answers with the new id.
func (s *SessionService) SignUp(ctx context.Context, student models.NewStudent) (int64, error) {
	student.Name = strings.TrimSpace(student.Name)
	student.Email = strings.TrimSpace(student.Email)
	student.Password = strings.TrimSpace(student.Password)

	if student.Name == "" || student.Email == "" || student.Password == "" {
		return 0, fmt.Errorf("%w: name, email and password", ErrMissingField)
	}

	body, err := json.Marshal(student)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal student: %w", err)
	}

	target, err := ResolveTarget(s.baseURL, PathCreateStudent)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build sign-up request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: sign up: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("failed to sign up: %s", resp.Status)
	}

	var id int64
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return 0, fmt.Errorf("failed to decode student id: %w", err)
	}

	return id, nil
}

func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("Signed out")
	return nil
}

// Status describes the stored session from the access token's claims.
func (s *SessionService) Status(ctx context.Context) (*SessionInfo, error) {
	creds, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	if !creds.Complete() {
		return &SessionInfo{}, nil
	}

	info := &SessionInfo{SignedIn: true}

	claims, err := InspectToken(creds.AccessToken)
	if err != nil {
		s.logger.WithError(err).Debug("Stored access token is not a JWT")
		return info, nil
	}

	info.Subject = claims.Subject
	info.ExpiresAt = claims.ExpiresAtTime()
	info.Expired = claims.Expired(s.now())

	return info, nil
}

package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/studysync/studysync/internal/models"
)

func newSession(t *testing.T, h *harness) *SessionService {
	t.Helper()
	return NewSessionService(h.backend.srv.Client(), h.backend.baseURL(), h.repo, testLogger())
}

func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &TokenClaims{
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString([]byte("backend-secret-not-known-to-client"))
	require.NoError(t, err)
	return s
}

func TestSessionService_Login(t *testing.T) {
	h := newHarness(t)
	signIn(t, h, "stale-access", "stale-refresh")

	h.backend.handle(PathLogin, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("username") != "jasonlee@umass.edu" || r.PostForm.Get("password") != "password" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		tokenJSON(w, `{"access_token":"A","refresh_token":"R","token_type":"bearer","expires_in":900}`)
	})

	s := newSession(t, h)

	tr, err := s.Login(context.Background(), " jasonlee@umass.edu ", "password")
	require.NoError(t, err)
	require.Equal(t, "bearer", tr.TokenType)
	require.Equal(t, int64(900), tr.ExpiresIn)

	calls := h.backend.requestsTo(PathLogin)
	require.Len(t, calls, 1)
	require.Equal(t, "application/x-www-form-urlencoded", calls[0].ContentType)
	require.Equal(t, "jasonlee@umass.edu", calls[0].form(t).Get("username"))

	creds, err := h.repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.Credentials{AccessToken: "A", RefreshToken: "R"}, creds)
}

func TestSessionService_LoginRejected(t *testing.T) {
	h := newHarness(t)
	h.backend.handle(PathLogin, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := newSession(t, h).Login(context.Background(), "a@b.c", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	creds, err := h.repo.Load(context.Background())
	require.NoError(t, err)
	require.True(t, creds.Empty())
}

func TestSessionService_LoginMissingFields(t *testing.T) {
	h := newHarness(t)

	_, err := newSession(t, h).Login(context.Background(), "  ", "pw")
	require.ErrorIs(t, err, ErrMissingField)
	require.Equal(t, 0, h.backend.total())
}

func TestSessionService_SignUp(t *testing.T) {
	h := newHarness(t)
	h.backend.handle(PathCreateStudent, func(w http.ResponseWriter, r *http.Request) {
		tokenJSON(w, `7`)
	})

	id, err := newSession(t, h).SignUp(context.Background(), models.NewStudent{
		Name:     "Jason Lee ",
		Email:    "jasonlee@umass.edu",
		Password: "pw",
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), id)

	calls := h.backend.requestsTo(PathCreateStudent)
	require.Len(t, calls, 1)
	require.Equal(t, "application/json", calls[0].ContentType)
	var in models.NewStudent
	require.NoError(t, json.Unmarshal([]byte(calls[0].Body), &in))
	require.Equal(t, models.NewStudent{Name: "Jason Lee", Email: "jasonlee@umass.edu", Password: "pw"}, in)
}

func TestSessionService_SignUpValidation(t *testing.T) {
	h := newHarness(t)

	_, err := newSession(t, h).SignUp(context.Background(), models.NewStudent{Name: "x", Email: "y"})
	require.ErrorIs(t, err, ErrMissingField)
	require.Equal(t, 0, h.backend.total())
}

func TestSessionService_SignUpFailure(t *testing.T) {
	h := newHarness(t)
	h.backend.handle(PathCreateStudent, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	_, err := newSession(t, h).SignUp(context.Background(), models.NewStudent{Name: "x", Email: "y", Password: "z"})
	require.ErrorContains(t, err, "failed to sign up")
}

func TestSessionService_LogoutAndStatus(t *testing.T) {
	h := newHarness(t)
	s := newSession(t, h)
	now := time.Date(2025, 11, 7, 21, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	info, err := s.Status(context.Background())
	require.NoError(t, err)
	require.False(t, info.SignedIn)

	exp := now.Add(15 * time.Minute)
	signIn(t, h, signedToken(t, "jasonlee@umass.edu", exp), "R")

	info, err = s.Status(context.Background())
	require.NoError(t, err)
	require.True(t, info.SignedIn)
	require.Equal(t, "jasonlee@umass.edu", info.Subject)
	require.True(t, info.ExpiresAt.Equal(exp))
	require.False(t, info.Expired)

	s.now = func() time.Time { return exp.Add(time.Second) }
	info, err = s.Status(context.Background())
	require.NoError(t, err)
	require.True(t, info.Expired)

	require.NoError(t, s.Logout(context.Background()))
	info, err = s.Status(context.Background())
	require.NoError(t, err)
	require.False(t, info.SignedIn)
}

func TestSessionService_StatusOpaqueToken(t *testing.T) {
	h := newHarness(t)
	signIn(t, h, "opaque", "R")

	info, err := newSession(t, h).Status(context.Background())
	require.NoError(t, err)
	require.True(t, info.SignedIn)
	require.Empty(t, info.Subject)
	require.True(t, info.ExpiresAt.IsZero())
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := InspectToken(signedToken(t, "me@example.edu", exp))
	require.NoError(t, err)
	require.Equal(t, "access", claims.Type)
	require.Equal(t, "me@example.edu", claims.Subject)
	require.True(t, claims.ExpiresAtTime().Equal(exp))

	_, err = InspectToken("not.a.jwt")
	require.Error(t, err)

	require.False(t, (&TokenClaims{}).Expired(time.Now()))
}

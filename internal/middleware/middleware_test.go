package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func bufferedLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.DebugLevel)
	return l, &buf
}

func TestLoggingTransport_AddsRequestIDAndLogs(t *testing.T) {
	ids := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	logger, buf := bufferedLogger()
	client := NewHTTPClient(5*time.Second, logger)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/feed/", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret-token")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	seen := <-ids
	_, err = uuid.Parse(seen)
	require.NoError(t, err)
	require.Empty(t, req.Header.Get(RequestIDHeader), "caller request must not be mutated")

	out := buf.String()
	require.Contains(t, out, `"path":"/feed/"`)
	require.Contains(t, out, `"status":202`)
	require.Contains(t, out, seen)
	require.NotContains(t, out, "secret-token")
}

func TestLoggingTransport_KeepsCallerRequestID(t *testing.T) {
	ids := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get(RequestIDHeader)
	}))
	defer srv.Close()

	logger, _ := bufferedLogger()
	client := &http.Client{Transport: NewLoggingTransport(nil, logger)}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "fixed-id")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "fixed-id", <-ids)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestLoggingTransport_Error(t *testing.T) {
	logger, buf := bufferedLogger()
	tr := NewLoggingTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}), logger)

	req := httptest.NewRequest(http.MethodGet, "http://backend.invalid/feed/", nil)
	_, err := tr.RoundTrip(req)
	require.EqualError(t, err, "connection refused")
	require.Contains(t, buf.String(), "HTTP request failed")
}

type stubVerifier map[string]string

func (s stubVerifier) VerifyAccessToken(token string) (string, error) {
	if sub, ok := s[token]; ok {
		return sub, nil
	}
	return "", errors.New("invalid")
}

func TestRequireAuth(t *testing.T) {
	logger, _ := bufferedLogger()
	m := NewAuthMiddleware(stubVerifier{"good": "jasonlee@umass.edu"}, logger)

	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, ok := Subject(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(sub))
	}))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "missing", header: "", status: http.StatusUnauthorized, body: "Not authenticated"},
		{name: "wrong_scheme", header: "Basic good", status: http.StatusUnauthorized, body: "Invalid authorization header format"},
		{name: "bad_token", header: "Bearer bad", status: http.StatusUnauthorized, body: "Invalid token"},
		{name: "ok", header: "Bearer good", status: http.StatusOK, body: "jasonlee@umass.edu"},
		{name: "lowercase_scheme", header: "bearer good", status: http.StatusOK, body: "jasonlee@umass.edu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/current_user", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, tt.status, rr.Code)
			require.True(t, strings.Contains(rr.Body.String(), tt.body), rr.Body.String())
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	logger, buf := bufferedLogger()
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/course/9", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "abc", rr.Header().Get(RequestIDHeader))
	require.Contains(t, buf.String(), `"status":404`)
	require.Contains(t, buf.String(), `"request_id":"abc"`)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/feed/", nil))
	_, err := uuid.Parse(rr.Header().Get(RequestIDHeader))
	require.NoError(t, err)
}

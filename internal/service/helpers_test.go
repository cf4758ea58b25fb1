package service

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/studysync/studysync/internal/repository"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recordedRequest struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Header        http.Header
	Body          string
}

// form decodes a recorded urlencoded body.
func (r recordedRequest) form(t *testing.T) url.Values {
	t.Helper()
	v, err := url.ParseQuery(r.Body)
	require.NoError(t, err)
	return v
}

// backend is a scripted stand-in for the course API. Handlers are keyed by
// path; every request is recorded.
type backend struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
	srv      *httptest.Server
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{t: t, handlers: map[string]http.HandlerFunc{}}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) handle(path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[path] = h
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.requests = append(b.requests, recordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
		Header:        r.Header.Clone(),
		Body:          string(body),
	})
	h, ok := b.handlers[r.URL.Path]
	b.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	h(w, r)
}

func (b *backend) requestsTo(path string) []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedRequest
	for _, r := range b.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (b *backend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func (b *backend) baseURL() *url.URL {
	u, err := url.Parse(b.srv.URL)
	require.NoError(b.t, err)
	return u
}

// harness wires an AuthClient against a backend with in-memory credentials.
type harness struct {
	backend   *backend
	repo      *repository.MemoryCredentialRepository
	navigator *LocationNavigator
	refresher *TokenRefresher
	client    *AuthClient
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	b := newBackend(t)
	repo := repository.NewMemoryCredentialRepository()
	nav := NewLocationNavigator("/html/feed.html")
	logger := testLogger()

	refresher := NewTokenRefresher(b.srv.Client(), b.baseURL(), repo, logger)
	redirector := NewLoginRedirector(repo, nav, DefaultLoginURL, logger)
	client := NewAuthClient(b.srv.Client(), b.baseURL(), repo, refresher, redirector, logger)

	return &harness{
		backend:   b,
		repo:      repo,
		navigator: nav,
		refresher: refresher,
		client:    client,
	}
}

// bearerOnly answers 200 for the given token and 401 for anything else.
func bearerOnly(token string, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func tokenJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/repository"
)

const DefaultLoginURL = "/html/signin.html"

// Navigator replaces the current location with another one. It is the
// client's equivalent of location.replace: there is no way back.
type Navigator interface {
	Replace(ctx context.Context, location string)
}

// LoginRedirector ends the session: it clears the stored credentials and
// sends the user to the login surface. Calling it repeatedly has the same
// effect as calling it once.
type LoginRedirector struct {
	repo      repository.CredentialRepository
	navigator Navigator
	loginURL  string
	logger    *logrus.Logger
}

func NewLoginRedirector(
	repo repository.CredentialRepository,
	navigator Navigator,
	loginURL string,
	logger *logrus.Logger,
) *LoginRedirector {
	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	return &LoginRedirector{
		repo:      repo,
		navigator: navigator,
		loginURL:  loginURL,
		logger:    logger,
	}
}

func (r *LoginRedirector) LoginURL() string {
	return r.loginURL
}

func (r *LoginRedirector) Redirect(ctx context.Context) {
	// The caller's context may already be done; the session still has to end.
	ctx = context.WithoutCancel(ctx)

	if err := r.repo.Clear(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to clear credentials before login redirect")
	}

	r.logger.WithField("location", r.loginURL).Info("Redirecting to login")
	r.navigator.Replace(ctx, r.loginURL)
}

// LocationNavigator records the current location.
type LocationNavigator struct {
	mu       sync.Mutex
	location string
	replaced int
}

func NewLocationNavigator(initial string) *LocationNavigator {
	return &LocationNavigator{location: initial}
}

func (n *LocationNavigator) Replace(ctx context.Context, location string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = location
	n.replaced++
}

func (n *LocationNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

// Replaced reports how many times Replace was called.
func (n *LocationNavigator) Replaced() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.replaced
}

// TerminalNavigator tells a CLI user to sign in again. The hint is printed at
// most once per process.
type TerminalNavigator struct {
	out  io.Writer
	once sync.Once
}

func NewTerminalNavigator(out io.Writer) *TerminalNavigator {
	return &TerminalNavigator{out: out}
}

func (n *TerminalNavigator) Replace(ctx context.Context, location string) {
	n.once.Do(func() {
		fmt.Fprintf(n.out, "Your session has ended. Sign in again at %s or run `studysync login`.\n", location)
	})
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

type ctxKey string

const ctxSubject ctxKey = "subject"

// TokenVerifier validates an access token and returns its subject.
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *logrus.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w, "Not authenticated")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.respondUnauthorized(w, "Invalid authorization header format")
			return
		}

		subject, err := m.verifier.VerifyAccessToken(parts[1])
		if err != nil {
			m.logger.WithError(err).Debug("Token verification failed")
			m.respondUnauthorized(w, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxSubject, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Subject returns the authenticated subject stored by RequireAuth.
func Subject(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxSubject).(string)
	return s, ok
}

func (m *AuthMiddleware) respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"detail":"` + message + `"}`))
}

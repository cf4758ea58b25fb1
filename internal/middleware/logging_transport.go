package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-Id"

// LoggingTransport tags every outbound request with a request id and logs
// its outcome. Authorization values are never logged.
type LoggingTransport struct {
	next   http.RoundTripper
	logger *logrus.Logger
}

func NewLoggingTransport(next http.RoundTripper, logger *logrus.Logger) *LoggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &LoggingTransport{
		next:   next,
		logger: logger,
	}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) == "" {
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, uuid.New().String())
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	entry := t.logger.WithFields(logrus.Fields{
		"request_id": req.Header.Get(RequestIDHeader),
		"method":     req.Method,
		"path":       req.URL.Path,
		"duration":   time.Since(start).String(),
	})

	if err != nil {
		entry.WithError(err).Warn("HTTP request failed")
		return nil, err
	}

	entry = entry.WithField("status", resp.StatusCode)
	if resp.StatusCode >= http.StatusInternalServerError {
		entry.Warn("HTTP request")
	} else {
		entry.Debug("HTTP request")
	}

	return resp, nil
}

// NewHTTPClient returns a client that logs through LoggingTransport.
func NewHTTPClient(timeout time.Duration, logger *logrus.Logger) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewLoggingTransport(http.DefaultTransport, logger),
	}
}

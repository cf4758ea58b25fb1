package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	PathLogin         = "/auth/login"
	PathRefresh       = "/auth/refresh"
	PathCreateStudent = "/create_student/"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one logical call. Body is kept as bytes so that the
// request can be replayed after a token refresh.
type Request struct {
	Target string
	Method string
	Header http.Header
	Body   []byte
}

// ResolveTarget turns a path into an absolute URL against base. Absolute
// targets are returned unchanged.
func ResolveTarget(base *url.URL, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid target %q: %w", target, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if base == nil {
		return "", fmt.Errorf("relative target %q without base URL", target)
	}
	return base.ResolveReference(u).String(), nil
}

func (r Request) build(ctx context.Context, base *url.URL, accessToken string) (*http.Request, error) {
	target, err := ResolveTarget(base, r.Target)
	if err != nil {
		return nil, err
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if len(r.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	return req, nil
}

// drainAndClose lets the connection be reused before the retry.
func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

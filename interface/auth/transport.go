package auth

import (
	"fmt"
	"net/http"
)

// Transport injects the bearer token of Config in the requests.
// On a 401, the token is invalidated and GET/HEAD requests are replayed once.
type Transport struct {
	Base    http.RoundTripper
	Manager *Manager
	Config  Config
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := t.roundTrip(base, req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return resp, nil
	}
	resp.Body.Close()
	t.Manager.Invalidate(t.Config)
	return t.roundTrip(base, req)
}

func (t *Transport) roundTrip(base http.RoundTripper, req *http.Request) (*http.Response, error) {
	token, err := t.Manager.Token(req.Context(), t.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", Bearer(token))
	return base.RoundTrip(r)
}

// Package auth acquires and caches the bearer tokens of the catalog APIs
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/log"
	"github.com/airbusgeo/geodata-ingester/service/metrics"
	"github.com/juju/clock"
	"github.com/juju/retry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// Default retry policy of the token exchange
const (
	DefaultAttempts   = 5
	DefaultBackoff    = time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// Config of a client-credentials authentication
type Config struct {
	Name         string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Validate checks that the credentials are configured
func (c Config) Validate() error {
	switch {
	case c.TokenURL == "":
		return service.InputInvalidError{Field: c.Name + " token url", Reason: "missing"}
	case c.ClientID == "":
		return service.InputInvalidError{Field: c.Name + " client id", Reason: "missing"}
	case c.ClientSecret == "":
		return service.InputInvalidError{Field: c.Name + " client secret", Reason: "missing"}
	}
	return nil
}

func (c Config) key() string {
	return c.TokenURL + "|" + c.ClientID
}

// Manager exchanges client credentials for tokens, caches them in memory
// and serializes concurrent exchanges of the same config
type Manager struct {
	HTTPClient *http.Client
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
	Clock      clock.Clock
	Metrics    *metrics.Metrics

	group   singleflight.Group
	mu      sync.Mutex
	tokens  map[string]*oauth2.Token
	flights map[string]*flight
}

// flight is the context of an exchange shared by its waiters.
// It is cancelled when the last waiter leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewManager creates a manager with the default retry policy
func NewManager(client *http.Client) *Manager {
	return &Manager{
		HTTPClient: client,
		Attempts:   DefaultAttempts,
		Backoff:    DefaultBackoff,
		MaxBackoff: DefaultMaxBackoff,
		Clock:      clock.WallClock,
		tokens:     map[string]*oauth2.Token{},
		flights:    map[string]*flight{},
	}
}

// Token returns a valid access token for the config
func (m *Manager) Token(ctx context.Context, cfg Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	key := cfg.key()
	if tok := m.cached(key); tok != nil {
		m.Metrics.Token("cached")
		return tok.AccessToken, nil
	}

	exCtx := m.join(ctx, key)
	defer m.leave(key)
	ch := m.group.DoChan(key, func() (interface{}, error) {
		if tok := m.cached(key); tok != nil {
			return tok, nil
		}
		tok, err := m.exchange(exCtx, cfg)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.tokens[key] = tok
		m.mu.Unlock()
		return tok, nil
	})
	select {
	case <-ctx.Done():
		m.Metrics.Token("failed")
		return "", fmt.Errorf("Token[%s]: %w", cfg.Name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			m.Metrics.Token("failed")
			return "", res.Err
		}
		return res.Val.(*oauth2.Token).AccessToken, nil
	}
}

// join registers a waiter of the exchange of key and returns the context of the exchange.
// The exchange is not cancelled by a single waiter, only when all of them have left.
func (m *Manager) join(ctx context.Context, key string) context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flights == nil {
		m.flights = map[string]*flight{}
	}
	f, ok := m.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		m.flights[key] = f
	}
	f.waiters++
	return f.ctx
}

func (m *Manager) leave(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flights[key]
	if !ok {
		return
	}
	if f.waiters--; f.waiters == 0 {
		f.cancel()
		delete(m.flights, key)
	}
}

// Invalidate drops the cached token of the config
func (m *Manager) Invalidate(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, cfg.key())
}

func (m *Manager) cached(key string) *oauth2.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok, ok := m.tokens[key]; ok && tok.Valid() {
		return tok
	}
	return nil
}

func (m *Manager) exchange(ctx context.Context, cfg Config) (*oauth2.Token, error) {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	if m.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.HTTPClient)
	}
	attempts := m.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	backoff, maxBackoff := m.Backoff, m.MaxBackoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	if maxBackoff < backoff {
		maxBackoff = backoff
	}
	clk := m.Clock
	if clk == nil {
		clk = clock.WallClock
	}

	var tok *oauth2.Token
	var lastErr error
	nbAttempts := 0
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			nbAttempts++
			var err error
			if tok, err = cc.Token(ctx); err != nil {
				lastErr = err
				return err
			}
			return nil
		},
		IsFatalError: func(err error) bool {
			return !retryable(err)
		},
		NotifyFunc: func(err error, attempt int) {
			m.Metrics.Token("retried")
			log.Logger(ctx).Sugar().Warnf("[Auth] %s token attempt %d/%d: %v", cfg.Name, attempt, attempts, err)
		},
		Attempts:    attempts,
		Delay:       backoff,
		BackoffFunc: retry.ExpBackoff(backoff, maxBackoff, 2, true),
		Clock:       clk,
		Stop:        ctx.Done(),
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, service.AuthFailureError{Endpoint: cfg.TokenURL, Attempts: nbAttempts, Err: lastErr}
	}
	m.Metrics.Token("exchanged")
	log.Logger(ctx).Sugar().Debugf("[Auth] %s token acquired (expires %s)", cfg.Name, tok.Expiry.Format(time.RFC3339))
	return tok, nil
}

// retryable returns true on transport errors and on 429/5xx responses of the token endpoint
func retryable(err error) bool {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response == nil {
			return false
		}
		switch rerr.Response.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var uerr *url.Error
	return errors.As(err, &uerr)
}

// Bearer returns the Authorization header value
func Bearer(token string) string {
	return fmt.Sprintf("Bearer %s", token)
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("upstream not configured")

// Upstream wraps GET calls to one tracker endpoint behind a circuit breaker
// and keeps the last good body for when the breaker is open.
type Upstream struct {
	name    string
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *Metrics

	mu       sync.RWMutex
	lastGood []byte
}

func NewUpstream(name, base, path string, cfg Config, m *Metrics, log *zap.Logger) *Upstream {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	fails := uint32(cfg.BreakerFailures)
	if fails == 0 {
		fails = 3
	}
	openFor := cfg.BreakerOpenFor
	if openFor <= 0 {
		openFor = 15 * time.Second
	}
	u := &Upstream{
		name:    name,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		metrics: m,
	}
	if base != "" {
		u.url = base + path
	}
	u.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker state change", zap.String("upstream", name),
				zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
	return u
}

func (u *Upstream) State() gobreaker.State { return u.breaker.State() }

// Fetch returns the upstream body. On failure it falls back to the last good
// body and reports stale=true; err is set only when there is nothing to serve.
func (u *Upstream) Fetch(ctx context.Context) (body []byte, stale bool, err error) {
	if u.url == "" {
		return nil, false, ErrNotConfigured
	}
	res, err := u.breaker.Execute(func() (interface{}, error) {
		return u.get(ctx)
	})
	if err == nil {
		b := res.([]byte)
		u.mu.Lock()
		u.lastGood = b
		u.mu.Unlock()
		return b, false, nil
	}
	u.metrics.UpstreamFailures.WithLabelValues(u.name).Inc()

	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.lastGood != nil {
		return u.lastGood, true, nil
	}
	return nil, false, fmt.Errorf("%s: %w", u.name, err)
}

func (u *Upstream) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(b) {
		return nil, errors.New("upstream returned invalid JSON")
	}
	return b, nil
}

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
)

var (
	ErrNotFound       = errors.New("order not found")
	ErrBreakerOpen    = errors.New("backend breaker open")
	ErrUpstreamStatus = errors.New("backend upstream status")
)

type Config struct {
	BaseURL string // e.g. https://<project>.supabase.co
	APIKey  string
	Table   string // default "ordens_servico"
	Timeout time.Duration

	BreakerFailures int
	BreakerOpenFor  time.Duration
	MaxRetries      int
	RetryInterval   time.Duration // first backoff step, default 500ms
}

// Client reads service orders from the hosted backend's REST interface.
// The backend owns the records; this client never writes.
type Client struct {
	base    string
	table   string
	apiKey  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	retries uint64
	retryIv time.Duration
	log     *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Table == "" {
		cfg.Table = "ordens_servico"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BreakerFailures < 1 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	fails := uint32(cfg.BreakerFailures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "backend",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker state change", zap.String("breaker", name),
				zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
	return &Client{
		base:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		table:   cfg.Table,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		cb:      cb,
		retries: uint64(cfg.MaxRetries),
		retryIv: cfg.RetryInterval,
		log:     log,
	}
}

// ListActive returns the orders currently running or interrupted.
func (c *Client) ListActive(ctx context.Context) ([]entities.ServiceOrder, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("status", fmt.Sprintf("in.(%q,%q)",
		entities.StatusInProgress.Label(), entities.StatusInterrupted.Label()))
	q.Set("order", "data_efetiva_inicio.desc.nullslast")
	rows, err := c.fetchRows(ctx, q)
	if err != nil {
		return nil, err
	}
	return c.toOrders(rows), nil
}

// ListByPivot returns the order history of one pivot, most recent start first.
func (c *Client) ListByPivot(ctx context.Context, pivotID string) ([]entities.ServiceOrder, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("pivo_id", "eq."+pivotID)
	q.Set("order", "data_efetiva_inicio.desc.nullslast,created_date.desc")
	rows, err := c.fetchRows(ctx, q)
	if err != nil {
		return nil, err
	}
	return c.toOrders(rows), nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (entities.ServiceOrder, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")
	rows, err := c.fetchRows(ctx, q)
	if err != nil {
		return entities.ServiceOrder{}, err
	}
	if len(rows) == 0 {
		return entities.ServiceOrder{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	o, err := rows[0].ToOrder()
	if err != nil {
		return entities.ServiceOrder{}, err
	}
	c.checkIntegrity(o)
	return o, nil
}

func (c *Client) toOrders(rows []Row) []entities.ServiceOrder {
	out := make([]entities.ServiceOrder, 0, len(rows))
	for _, r := range rows {
		o, err := r.ToOrder()
		if err != nil {
			c.log.Warn("backend: skipping row", zap.Error(err))
			continue
		}
		c.checkIntegrity(o)
		out = append(out, o)
	}
	return out
}

// checkIntegrity logs rows the metrics will still evaluate but that break
// the order invariants (e.g. a stop resumed before it began).
func (c *Client) checkIntegrity(o entities.ServiceOrder) {
	if err := o.Validate(); err != nil {
		c.log.Warn("backend: order integrity", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (c *Client) fetchRows(ctx context.Context, q url.Values) ([]Row, error) {
	if c.base == "" {
		return nil, errors.New("backend base URL not configured")
	}
	res, err := c.cb.Execute(func() (any, error) {
		var rows []Row
		op := func() error {
			var err error
			rows, err = c.get(ctx, q)
			return err
		}
		exp := backoff.NewExponentialBackOff()
		if c.retryIv > 0 {
			exp.InitialInterval = c.retryIv
		}
		bo := backoff.WithContext(backoff.WithMaxRetries(exp, c.retries), ctx)
		if err := backoff.Retry(op, bo); err != nil {
			return nil, err
		}
		return rows, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrBreakerOpen, err)
		}
		return nil, err
	}
	return res.([]Row), nil
}

func (c *Client) get(ctx context.Context, q url.Values) ([]Row, error) {
	u := c.base + "/rest/v1/" + c.table + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w %d", ErrUpstreamStatus, resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("backend decode error: %w", err))
	}
	return rows, nil
}

package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Config struct {
	TrackerBaseURL string
	ReportsPath    string // default /orders/efficiency
	HealthPath     string // default /healthz
	HTTPTimeout    time.Duration

	BreakerFailures int
	BreakerOpenFor  time.Duration
}

type Gateway struct {
	cfg     Config
	reports *Upstream
	health  *Upstream
	metrics *Metrics
	log     *zap.Logger
	now     func() time.Time
}

func NewGateway(cfg Config, log *zap.Logger, reg prometheus.Registerer) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ReportsPath == "" {
		cfg.ReportsPath = "/orders/efficiency"
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = "/healthz"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 3 * time.Second
	}
	m := NewMetrics(reg)
	return &Gateway{
		cfg:     cfg,
		reports: NewUpstream("tracker-reports", cfg.TrackerBaseURL, cfg.ReportsPath, cfg, m, log),
		health:  NewUpstream("tracker-health", cfg.TrackerBaseURL, cfg.HealthPath, cfg, m, log),
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

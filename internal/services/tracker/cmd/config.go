package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/pivot_orders/internal/services/backend"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/rabbitmq"
)

type Config struct {
	Rabbit  rabbitmq.RabbitMQConfig
	Backend backend.Config

	InfluxURL     string
	InfluxToken   string
	InfluxOrg     string
	InfluxBucket  string
	BatchSize     int
	FlushInterval time.Duration

	Topics          []string
	RefreshInterval time.Duration
	DedupTTL        time.Duration

	HTTPPort int
	GRPCPort int
	LogLevel string
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envDuration accepts Go durations ("45s") or a plain number of seconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func envList(key, def string) []string {
	parts := strings.Split(envStr(key, def), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func loadConfig() Config {
	return Config{
		Rabbit: rabbitmq.RabbitMQConfig{
			Host:     envStr("RABBITMQ_HOST", "localhost"),
			Port:     envInt("RABBITMQ_PORT", 1883),
			User:     envStr("RABBITMQ_USER", "guest"),
			Password: envStr("RABBITMQ_PASSWORD", "guest"),
			ClientID: envStr("HOSTNAME", "efficiency-tracker"),
		},
		Backend: backend.Config{
			BaseURL:         envStr("BACKEND_URL", ""),
			APIKey:          os.Getenv("BACKEND_API_KEY"),
			Table:           envStr("BACKEND_TABLE", "ordens_servico"),
			Timeout:         envDuration("BACKEND_TIMEOUT", 5*time.Second),
			BreakerFailures: envInt("BACKEND_CB_FAILS", 5),
			BreakerOpenFor:  envDuration("BACKEND_CB_OPEN", 30*time.Second),
			MaxRetries:      envInt("BACKEND_MAX_RETRIES", 2),
		},

		InfluxURL:     envStr("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:   os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:     envStr("INFLUX_ORG", "pivot"),
		InfluxBucket:  envStr("INFLUX_BUCKET", "orders"),
		BatchSize:     envInt("WRITE_BATCH_SIZE", 20),
		FlushInterval: time.Duration(envInt("WRITE_FLUSH_INTERVAL_MS", 1000)) * time.Millisecond,

		Topics:          envList("ORDER_SUB_TOPICS", "order/snapshot/#"),
		RefreshInterval: envDuration("REFRESH_INTERVAL", 30*time.Second),
		DedupTTL:        envDuration("DEDUP_TTL", 10*time.Minute),

		HTTPPort: envInt("HTTP_PORT", 8080),
		GRPCPort: envInt("GRPC_PORT", 9090),
		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

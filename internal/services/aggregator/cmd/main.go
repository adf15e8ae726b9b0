package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pivot_orders/internal/services/aggregator"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/rabbitmq"
)

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if n, err := strconv.Atoi(getenv(key, "")); err == nil {
		return n
	}
	return def
}

func main() {
	zc := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(getenv("LOG_LEVEL", "info")); err == nil {
		zc.Level = lvl
	}
	logger, err := zc.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("aggregator")

	cfg := &rabbitmq.RabbitMQConfig{
		Host:     getenv("RABBITMQ_HOST", "rabbitmq"),
		Port:     getenvInt("RABBITMQ_PORT", 1883),
		User:     getenv("RABBITMQ_USER", "guest"),
		Password: getenv("RABBITMQ_PASSWORD", "guest"),
		ClientID: getenv("MQTT_CLIENT_ID", "pivot-aggregator"),
	}
	interval := time.Duration(getenvInt("AGGREGATION_INTERVAL_SEC", 60)) * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := rabbitmq.NewRabbitMQConn(ctx, cfg, log)
	if err != nil {
		log.Fatal("mqtt connection error", zap.Error(err))
	}
	defer rabbitmq.CloseRabbitMQConn(client, log)

	publisher := rabbitmq.NewPublisher(client, log)
	defer publisher.Close()
	consumer := rabbitmq.NewMultiConsumer(client, []string{getenv("REPORT_TOPIC", "event/efficiency/#")}, nil, log)

	svc := aggregator.NewService(consumer, publisher, interval, time.Now, log)
	log.Info("pivot aggregator running", zap.Duration("interval", interval))
	svc.Start(ctx)
	svc.Flush()
	log.Info("pivot aggregator stopped")
}

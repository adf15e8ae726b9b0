package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/pivot_orders/internal/services/backend"
	"github.com/LeonardoBeccarini/pivot_orders/internal/services/tracker"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/dedup"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/rabbitmq"
)

func newLogger(level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zc.Level = lvl
	return zc.Build()
}

func main() {
	cfg := loadConfig()
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("tracker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === InfluxDB ===
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(cfg.BatchSize)).
		SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	influx := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken, opts)
	writer := tracker.NewWriter(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket), log, nil)
	history := tracker.NewInfluxHistory(influx.QueryAPI(cfg.InfluxOrg), cfg.InfluxBucket)

	// === MQTT ===
	mqttClient, err := rabbitmq.NewRabbitMQConn(ctx, &cfg.Rabbit, log)
	if err != nil {
		log.Fatal("mqtt connection error", zap.Error(err))
	}
	publisher := rabbitmq.NewPublisher(mqttClient, log)

	// === Metrics ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := tracker.NewMetrics(reg)

	// === Tracker ===
	var (
		source tracker.OrderSource
		lookup tracker.OrderLookup
	)
	if cfg.Backend.BaseURL != "" {
		client := backend.NewClient(cfg.Backend, log.Named("backend"))
		source, lookup = client, client
	} else {
		log.Info("BACKEND_URL not set, running on snapshots only")
	}
	svc := tracker.NewService(tracker.Options{
		Source:    source,
		Lookup:    lookup,
		Publisher: publisher,
		Sink:      writer,
		Metrics:   metrics,
		Deduper:   dedup.New(cfg.DedupTTL, 20000),
		Interval:  cfg.RefreshInterval,
	}, log)

	consumer := rabbitmq.NewMultiConsumer(mqttClient, cfg.Topics, svc.HandleSnapshot, log)
	go consumer.ConsumeMessage(ctx)
	go svc.Run(ctx)

	probe := tracker.NewProbe(mqttClient, writer, svc, 2*time.Second)
	go probe.Watch(ctx, 5*time.Second)

	// === gRPC health ===
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, probe.GRPC())
	lis, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.GRPCPort))
	if err != nil {
		log.Fatal("grpc listen", zap.Error(err))
	}
	go func() {
		log.Info("gRPC health listening", zap.Int("port", cfg.GRPCPort))
		if err := gs.Serve(lis); err != nil {
			log.Error("grpc server error", zap.Error(err))
		}
	}()

	// === HTTP ===
	mux := http.NewServeMux()
	mux.Handle("/healthz", probe.HealthHandler())
	mux.Handle("/readyz", probe.ReadyHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	tracker.NewAPI(svc, history, log).Register(mux)

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("HTTP listening", zap.Int("port", cfg.HTTPPort))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = hs.Shutdown(shCtx)
	gs.GracefulStop()

	writer.Flush()
	influx.Close()
	rabbitmq.CloseRabbitMQConn(mqttClient, log)
}

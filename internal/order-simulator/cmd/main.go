package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	ordersim "github.com/LeonardoBeccarini/pivot_orders/internal/order-simulator"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/rabbitmq"
)

type options struct {
	rabbit    rabbitmq.RabbitMQConfig
	pivotID   string
	orderID   string
	number    string
	zone      string
	angle     int
	degPerMin float64
	interval  time.Duration
	autostart bool
	logLevel  string
}

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	o := options{}
	cmd := &cobra.Command{
		Use:          "order-simulator",
		Short:        "Drive one pivot through a service order and publish its snapshots",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.rabbit.Host, "mqtt-host", "rabbitmq", "broker host")
	f.IntVar(&o.rabbit.Port, "mqtt-port", 1883, "broker MQTT port")
	f.StringVar(&o.rabbit.User, "mqtt-user", "guest", "broker user")
	f.StringVar(&o.rabbit.Password, "mqtt-password", "guest", "broker password")
	f.StringVar(&o.pivotID, "pivot", "pivot-1", "pivot id")
	f.StringVar(&o.orderID, "order", "", "order id (random when empty)")
	f.StringVar(&o.number, "number", "", "order number shown to operators")
	f.StringVar(&o.zone, "zone", "Alta", "zone: Alta, Baixa or Total")
	f.IntVar(&o.angle, "angle", 0, "starting arm angle in degrees")
	f.Float64Var(&o.degPerMin, "speed", 1.5, "arm speed in degrees per minute")
	f.DurationVar(&o.interval, "interval", 10*time.Second, "snapshot period")
	f.BoolVar(&o.autostart, "autostart", true, "start the order immediately")
	f.StringVar(&o.logLevel, "log-level", "info", "log level")
	return cmd
}

func run(parent context.Context, o options) error {
	zc := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.logLevel, err)
	}
	zc.Level = lvl
	logger, err := zc.Build()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("order-simulator")

	zone, ok := entities.ParseZone(o.zone)
	if !ok {
		return fmt.Errorf("unknown zone %q", o.zone)
	}
	if o.orderID == "" {
		o.orderID = uuid.NewString()
	}
	if o.number == "" {
		o.number = "SIM-" + o.orderID[:8]
	}
	o.rabbit.ClientID = "order-simulator-" + o.orderID

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := rabbitmq.NewRabbitMQConn(ctx, &o.rabbit, log)
	if err != nil {
		return fmt.Errorf("mqtt connection error: %w", err)
	}
	defer rabbitmq.CloseRabbitMQConn(client, log)

	publisher := rabbitmq.NewPublisher(client, log)
	defer publisher.Close()
	consumer := rabbitmq.NewMultiConsumer(client,
		[]string{ordersim.CommandTopic(o.pivotID, o.orderID)}, nil, log)

	order := entities.ServiceOrder{
		ID:      o.orderID,
		Number:  o.number,
		PivotID: o.pivotID,
		Status:  entities.StatusPending,
		Zone:    zone,
	}
	sim := ordersim.NewSimulator(order, ordersim.NewArm(zone, o.angle, o.degPerMin),
		consumer, publisher, time.Now, log)
	if o.autostart {
		if _, err := sim.Apply(ordersim.Command{Action: "start"}); err != nil {
			return err
		}
	}

	log.Info("order simulator started",
		zap.String("pivot_id", o.pivotID), zap.String("order_id", o.orderID),
		zap.String("zone", string(zone)), zap.Duration("interval", o.interval))
	sim.Start(ctx, o.interval)
	log.Info("order simulator stopped")
	return nil
}

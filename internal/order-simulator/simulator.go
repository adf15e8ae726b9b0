// Package ordersim drives a simulated pivot through one service order and
// publishes the order snapshots the tracker consumes.
package ordersim

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model"
	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	"github.com/LeonardoBeccarini/pivot_orders/internal/pivotmetrics"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/dedup"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/rabbitmq"
)

// Command is an operator action sent on "order/command/{pivot}/{order}".
type Command struct {
	Action string `json:"action"` // start | pause | resume | complete
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
	By     string `json:"by,omitempty"`
}

func SnapshotTopic(pivotID, orderID string) string {
	return "order/snapshot/" + pivotID + "/" + orderID
}

func CommandTopic(pivotID, orderID string) string {
	return "order/command/" + pivotID + "/" + orderID
}

type Simulator struct {
	mu        sync.Mutex
	order     entities.ServiceOrder
	arm       *Arm
	publisher rabbitmq.IPublisher
	consumer  rabbitmq.IConsumer
	deduper   *dedup.Deduper
	now       func() time.Time
	log       *zap.Logger
}

func NewSimulator(order entities.ServiceOrder, arm *Arm, consumer rabbitmq.IConsumer,
	publisher rabbitmq.IPublisher, now func() time.Time, log *zap.Logger) *Simulator {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	order.CurrentAngle = entities.NormalizeAngle(arm.Angle())
	return &Simulator{
		order:     order,
		arm:       arm,
		publisher: publisher,
		consumer:  consumer,
		// identical payloads inside the window count as broker redeliveries
		deduper:   dedup.New(2*time.Minute, 1000).WithClock(now),
		now:       now,
		log:       log,
	}
}

// Start consumes commands and publishes a snapshot every interval until ctx
// ends or the order is completed.
func (s *Simulator) Start(ctx context.Context, interval time.Duration) {
	if s.consumer != nil {
		s.consumer.SetHandler(s.HandleCommand)
		go s.consumer.ConsumeMessage(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			o, err := s.Step()
			if err != nil {
				s.log.Warn("step failed", zap.Error(err))
				continue
			}
			if o.Status == entities.StatusCompleted {
				s.log.Info("order completed", zap.String("order_id", o.ID))
				return
			}
		}
	}
}

// Step advances the arm, completes the order at the zone end and publishes
// the resulting snapshot.
func (s *Simulator) Step() (entities.ServiceOrder, error) {
	s.mu.Lock()
	now := s.now()
	angle, atEnd := s.arm.Advance(now, s.order.Status == entities.StatusInProgress)
	s.setAngle(angle)
	if atEnd && s.order.Status == entities.StatusInProgress {
		o, err := entities.Complete(s.order, now)
		if err != nil {
			s.mu.Unlock()
			return s.order, err
		}
		s.order = o
	}
	o := s.order.Clone()
	s.mu.Unlock()

	s.log.Debug("arm position", zap.String("order_id", o.ID), zap.Int("angle", angle),
		zap.String("stage", string(o.Stage)), zap.String("status", string(o.Status)))
	return o, s.publish(o, "simulator")
}

// setAngle keeps the raw angle for the stage lookup so that 360 reads as the
// last lower sector, and stores the wrapped one.
func (s *Simulator) setAngle(angle int) {
	if st, ok := pivotmetrics.ProgressForAngle(angle, s.order.Zone); ok {
		s.order.Stage = st
	}
	s.order.CurrentAngle = entities.NormalizeAngle(angle)
}

// HandleCommand applies an operator command and publishes the new snapshot.
func (s *Simulator) HandleCommand(_ string, m mqtt.Message) error {
	key := dedup.PayloadKey(m.Payload())
	if !s.deduper.ShouldProcess(key) {
		return nil
	}
	var cmd Command
	if err := json.Unmarshal(m.Payload(), &cmd); err != nil {
		s.deduper.Forget(key)
		return fmt.Errorf("invalid command: %w", err)
	}
	o, err := s.Apply(cmd)
	if err != nil {
		// a rejected command may be retried as is once the order allows it
		s.deduper.Forget(key)
		return err
	}
	by := cmd.By
	if by == "" {
		by = "operator"
	}
	return s.publish(o, by)
}

// Apply runs one lifecycle transition at the current instant.
func (s *Simulator) Apply(cmd Command) (entities.ServiceOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// settle the arm up to now with the status that was in force
	angle, _ := s.arm.Advance(now, s.order.Status == entities.StatusInProgress)
	s.setAngle(angle)

	var (
		o   entities.ServiceOrder
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cmd.Action)) {
	case "start":
		o, err = entities.Start(s.order, now)
	case "pause":
		o, err = entities.Pause(s.order, now, cmd.Reason, cmd.Detail)
	case "resume":
		o, err = entities.Resume(s.order, now, cmd.By)
	case "complete":
		o, err = entities.Complete(s.order, now)
	default:
		return s.order.Clone(), fmt.Errorf("unknown action %q", cmd.Action)
	}
	if err != nil {
		return s.order.Clone(), err
	}
	s.order = o
	s.log.Info("command applied", zap.String("order_id", o.ID),
		zap.String("action", cmd.Action), zap.String("status", string(o.Status)))
	return o.Clone(), nil
}

func (s *Simulator) publish(o model.ServiceOrder, changedBy string) error {
	ev := model.OrderSnapshotEvent{Order: o, ChangedBy: changedBy, Timestamp: s.now().UTC()}
	if err := s.publisher.PublishJSON(SnapshotTopic(o.PivotID, o.ID), 1, ev); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (s *Simulator) Order() model.ServiceOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Clone()
}

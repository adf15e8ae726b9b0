// Package aggregator rolls the per-order efficiency reports up into one
// summary per pivot and aggregation window.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model"
	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	msg "github.com/LeonardoBeccarini/pivot_orders/internal/model/messages"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/rabbitmq"
)

func SummaryTopic(pivotID string) string {
	return "event/pivot-summary/" + pivotID
}

type pivotWindow struct {
	reports int
	latest  map[string]model.EfficiencyReportEvent // by order id
}

type Service struct {
	consumer rabbitmq.IConsumer
	pub      rabbitmq.IPublisher
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu          sync.Mutex
	buffer      map[string]*pivotWindow
	windowStart time.Time
}

func NewService(consumer rabbitmq.IConsumer, pub rabbitmq.IPublisher, interval time.Duration,
	now func() time.Time, log *zap.Logger) *Service {
	if interval <= 0 {
		interval = time.Minute
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		consumer:    consumer,
		pub:         pub,
		interval:    interval,
		now:         now,
		log:         log,
		buffer:      make(map[string]*pivotWindow),
		windowStart: now().UTC(),
	}
}

// HandleReport buffers one efficiency report. A later report of the same
// order replaces the earlier one within the window.
func (s *Service) HandleReport(_ string, m mqtt.Message) error {
	var r model.EfficiencyReportEvent
	if err := json.Unmarshal(m.Payload(), &r); err != nil {
		return fmt.Errorf("invalid efficiency report: %w", err)
	}
	if r.PivotID == "" || r.OrderID == "" {
		return fmt.Errorf("efficiency report %q without pivot or order id", r.ID)
	}

	s.mu.Lock()
	w, ok := s.buffer[r.PivotID]
	if !ok {
		w = &pivotWindow{latest: make(map[string]model.EfficiencyReportEvent)}
		s.buffer[r.PivotID] = w
	}
	w.reports++
	if prev, seen := w.latest[r.OrderID]; !seen || !r.EvaluatedAt.Before(prev.EvaluatedAt) {
		w.latest[r.OrderID] = r
	}
	s.mu.Unlock()

	s.log.Debug("buffered report", zap.String("pivot_id", r.PivotID), zap.String("order_id", r.OrderID))
	return nil
}

// Start consumes reports and publishes the summaries every interval until ctx ends.
func (s *Service) Start(ctx context.Context) {
	s.consumer.SetHandler(s.HandleReport)
	go s.consumer.ConsumeMessage(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}

// Flush closes the current window, publishes one summary per pivot that
// received reports and returns them sorted by pivot.
func (s *Service) Flush() []msg.PivotSummaryEvent {
	s.mu.Lock()
	end := s.now().UTC()
	start := s.windowStart
	buf := s.buffer
	s.buffer = make(map[string]*pivotWindow)
	s.windowStart = end
	s.mu.Unlock()

	out := make([]msg.PivotSummaryEvent, 0, len(buf))
	for pivotID, w := range buf {
		out = append(out, summarize(pivotID, w, start, end))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PivotID < out[j].PivotID })

	for _, sum := range out {
		if s.pub == nil {
			break
		}
		if err := s.pub.PublishJSON(SummaryTopic(sum.PivotID), 0, sum); err != nil {
			s.log.Warn("publish summary failed", zap.String("pivot_id", sum.PivotID), zap.Error(err))
			continue
		}
		s.log.Info("published pivot summary", zap.String("pivot_id", sum.PivotID),
			zap.Int("orders", sum.Orders), zap.Float64("mean_efficiency_pct", sum.MeanEfficiencyPct))
	}
	return out
}

func summarize(pivotID string, w *pivotWindow, start, end time.Time) msg.PivotSummaryEvent {
	sum := msg.PivotSummaryEvent{
		PivotID:     pivotID,
		WindowStart: start,
		WindowEnd:   end,
		Reports:     w.reports,
		Orders:      len(w.latest),
	}
	var total float64
	first := true
	for _, r := range w.latest {
		total += r.EfficiencyPct
		sum.StoppedMinutes += r.StoppedMinutes
		if r.Status == string(entities.StatusInterrupted) {
			sum.Interrupted++
		}
		if first || r.EfficiencyPct < sum.MinEfficiencyPct {
			sum.MinEfficiencyPct = r.EfficiencyPct
		}
		if first || r.EfficiencyPct > sum.MaxEfficiencyPct {
			sum.MaxEfficiencyPct = r.EfficiencyPct
		}
		first = false
	}
	if sum.Orders > 0 {
		sum.MeanEfficiencyPct = math.Round(total/float64(sum.Orders)*10) / 10
	}
	return sum
}

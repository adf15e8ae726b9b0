package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	msg "github.com/LeonardoBeccarini/pivot_orders/internal/model/messages"
	"github.com/LeonardoBeccarini/pivot_orders/internal/services/backend"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/dedup"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/rabbitmq"
)

var (
	ErrUnknownOrder = errors.New("order not tracked")
	ErrNoLookup     = errors.New("order lookup not configured")
)

// OrderSource lists the orders currently in progress or interrupted.
// backend.Client satisfies it.
type OrderSource interface {
	ListActive(ctx context.Context) ([]entities.ServiceOrder, error)
}

// OrderLookup reads orders the cache does not hold. backend.Client satisfies it.
type OrderLookup interface {
	GetOrder(ctx context.Context, id string) (entities.ServiceOrder, error)
	ListByPivot(ctx context.Context, pivotID string) ([]entities.ServiceOrder, error)
}

type Options struct {
	Source    OrderSource         // optional; without it only snapshots feed the cache
	Lookup    OrderLookup         // optional; backs uncached and per-pivot reads
	Publisher rabbitmq.IPublisher // optional
	Sink      PointSink           // optional
	Metrics   *Metrics            // optional
	Deduper   *dedup.Deduper      // optional
	Interval  time.Duration       // default 30s
	Now       func() time.Time    // default time.Now
	NewID     func() string       // default uuid
}

type entry struct {
	order   entities.ServiceOrder
	updated time.Time
}

// Service keeps the latest snapshot of every active order and periodically
// turns them into efficiency reports.
type Service struct {
	source   OrderSource
	lookup   OrderLookup
	pub      rabbitmq.IPublisher
	sink     PointSink
	metrics  *Metrics
	dedup    *dedup.Deduper
	interval time.Duration
	now      func() time.Time
	newID    func() string
	log      *zap.Logger

	mu       sync.RWMutex
	orders   map[string]entry
	reports  map[string]msg.EfficiencyReportEvent
	lastPoll time.Time
	pollErr  error
}

func NewService(opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Service{
		source:   opts.Source,
		lookup:   opts.Lookup,
		pub:      opts.Publisher,
		sink:     opts.Sink,
		metrics:  opts.Metrics,
		dedup:    opts.Deduper,
		interval: opts.Interval,
		now:      opts.Now,
		newID:    opts.NewID,
		log:      log,
		orders:   make(map[string]entry),
		reports:  make(map[string]msg.EfficiencyReportEvent),
	}
}

// HandleSnapshot is the MQTT handler for "order/snapshot/#".
func (s *Service) HandleSnapshot(topic string, m mqtt.Message) error {
	if s.dedup != nil && !s.dedup.ShouldProcess(dedup.PayloadKey(m.Payload())) {
		s.metrics.Snapshots.WithLabelValues("duplicate").Inc()
		return nil
	}
	ev, err := DecodeSnapshot(m.Topic(), m.Payload())
	if err != nil {
		s.metrics.Snapshots.WithLabelValues("invalid").Inc()
		return err
	}
	if err := ev.Order.Validate(); err != nil {
		s.log.Warn("snapshot failed integrity checks",
			zap.String("order_id", ev.Order.ID), zap.Error(err))
	}
	s.metrics.Snapshots.WithLabelValues("accepted").Inc()
	s.upsert(ev.Order)
	s.log.Debug("snapshot stored", zap.String("order_id", ev.Order.ID),
		zap.String("status", string(ev.Order.Status)), zap.String("changed_by", ev.ChangedBy))
	return nil
}

func (s *Service) upsert(o entities.ServiceOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = entry{order: o.Clone(), updated: s.now()}
	s.metrics.TrackedOrders.Set(float64(len(s.orders)))
}

// Poll refreshes the cache from the order source. Snapshots received after
// the poll began win over the source rows. Orders the source no longer lists
// and that got no snapshot since the poll began are dropped.
func (s *Service) Poll(ctx context.Context) error {
	if s.source == nil {
		return nil
	}
	started := s.now()
	orders, err := s.source.ListActive(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.pollErr = err
		s.metrics.PollErrors.Inc()
		return fmt.Errorf("poll orders: %w", err)
	}
	s.pollErr = nil
	s.lastPoll = started

	active := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		active[o.ID] = struct{}{}
		if e, ok := s.orders[o.ID]; ok && e.updated.After(started) {
			// a snapshot landed while the request was in flight
			continue
		}
		s.orders[o.ID] = entry{order: o.Clone(), updated: started}
	}
	for id, e := range s.orders {
		if _, ok := active[id]; ok || e.updated.After(started) {
			continue
		}
		delete(s.orders, id)
		s.metrics.forget(e.order.PivotID, id)
	}
	s.metrics.TrackedOrders.Set(float64(len(s.orders)))
	return nil
}

// Evaluate computes a report for every started order, publishes it and
// writes it to the sink. Completed orders are reported once and evicted.
func (s *Service) Evaluate() []msg.EfficiencyReportEvent {
	now := s.now()

	s.mu.Lock()
	reports := make(map[string]msg.EfficiencyReportEvent, len(s.orders))
	for id, e := range s.orders {
		r, ok := BuildReport(e.order, now, s.newID())
		if !ok {
			continue
		}
		reports[id] = r
		if e.order.Status == entities.StatusCompleted {
			delete(s.orders, id)
		}
	}
	s.reports = reports
	s.metrics.TrackedOrders.Set(float64(len(s.orders)))
	s.mu.Unlock()

	out := sortReports(reports)
	for _, r := range out {
		s.metrics.observe(r)
		if r.Status == string(entities.StatusCompleted) {
			s.metrics.forget(r.PivotID, r.OrderID)
		}
		if r.ClockSkew {
			s.log.Warn("completion precedes start", zap.String("order_id", r.OrderID))
		}
		if s.sink != nil {
			s.sink.WritePoint(ReportToPoint(r))
		}
		if s.pub != nil {
			if err := s.pub.PublishJSON(ReportTopic(r.PivotID, r.OrderID), 0, r); err != nil {
				s.metrics.PublishErrors.Inc()
				s.log.Warn("publish efficiency report", zap.String("order_id", r.OrderID), zap.Error(err))
			}
		}
	}
	return out
}

// Run polls and evaluates every interval until ctx ends.
func (s *Service) Run(ctx context.Context) {
	s.tick(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("tracker loop stopped")
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if err := s.Poll(ctx); err != nil {
		s.log.Warn("backend poll failed", zap.Error(err))
	}
	reports := s.Evaluate()
	s.log.Debug("evaluation done", zap.Int("reports", len(reports)))
}

// Reports returns the last evaluation, sorted by pivot then order number.
func (s *Service) Reports() []msg.EfficiencyReportEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortReports(s.reports)
}

func (s *Service) Report(orderID string) (msg.EfficiencyReportEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[orderID]
	if !ok {
		return msg.EfficiencyReportEvent{}, ErrUnknownOrder
	}
	return r, nil
}

// ReportFor returns the cached report of an order, or evaluates it on the
// spot from the order lookup when the tracker does not hold it.
func (s *Service) ReportFor(ctx context.Context, orderID string) (msg.EfficiencyReportEvent, error) {
	if r, err := s.Report(orderID); err == nil || s.lookup == nil {
		return r, err
	}
	o, err := s.lookup.GetOrder(ctx, orderID)
	if errors.Is(err, backend.ErrNotFound) {
		return msg.EfficiencyReportEvent{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if err != nil {
		return msg.EfficiencyReportEvent{}, fmt.Errorf("lookup order %s: %w", orderID, err)
	}
	r, ok := BuildReport(o, s.now(), s.newID())
	if !ok {
		return msg.EfficiencyReportEvent{}, fmt.Errorf("%w: %s not started", ErrUnknownOrder, orderID)
	}
	return r, nil
}

// PivotReports evaluates every started order of a pivot, finished ones
// included, in the same order as Reports.
func (s *Service) PivotReports(ctx context.Context, pivotID string) ([]msg.EfficiencyReportEvent, error) {
	if s.lookup == nil {
		return nil, ErrNoLookup
	}
	orders, err := s.lookup.ListByPivot(ctx, pivotID)
	if err != nil {
		return nil, fmt.Errorf("list orders of pivot %s: %w", pivotID, err)
	}
	now := s.now()
	reports := make(map[string]msg.EfficiencyReportEvent, len(orders))
	for _, o := range orders {
		if r, ok := BuildReport(o, now, s.newID()); ok {
			reports[o.ID] = r
		}
	}
	return sortReports(reports), nil
}

func (s *Service) Tracked() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Ready is true once a poll succeeded within three intervals, or always when
// the service runs on snapshots only.
func (s *Service) Ready() bool {
	if s.source == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pollErr != nil || s.lastPoll.IsZero() {
		return false
	}
	return s.now().Sub(s.lastPoll) <= 3*s.interval
}

func sortReports(m map[string]msg.EfficiencyReportEvent) []msg.EfficiencyReportEvent {
	out := make([]msg.EfficiencyReportEvent, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PivotID != out[j].PivotID {
			return out[i].PivotID < out[j].PivotID
		}
		if out[i].OrderNumber != out[j].OrderNumber {
			return out[i].OrderNumber < out[j].OrderNumber
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out
}

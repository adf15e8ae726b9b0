package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	msg "github.com/LeonardoBeccarini/pivot_orders/internal/model/messages"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/dedup"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/rabbitmq"
	"github.com/LeonardoBeccarini/pivot_orders/pkg/rabbitmq/mqtttest"
)

type fixture struct {
	svc     *Service
	clk     *clock
	src     *fakeSource
	sink    *fakeSink
	broker  *mqtttest.Client
	metrics *Metrics
}

func newFixture(t *testing.T, withSource bool) *fixture {
	t.Helper()
	f := &fixture{
		clk:     &clock{t: at(60)},
		src:     &fakeSource{},
		sink:    &fakeSink{},
		broker:  mqtttest.NewClient(),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	opts := Options{
		Publisher: rabbitmq.NewPublisher(f.broker, zap.NewNop()),
		Sink:      f.sink,
		Metrics:   f.metrics,
		Deduper:   dedup.New(time.Minute, 100),
		Interval:  10 * time.Millisecond,
		Now:       f.clk.Now,
		NewID:     func() string { return "rep-1" },
	}
	if withSource {
		opts.Source = f.src
	}
	f.svc = NewService(opts, zap.NewNop())
	return f
}

func snapshotPayload(t *testing.T, o entities.ServiceOrder) []byte {
	t.Helper()
	b, err := json.Marshal(msg.OrderSnapshotEvent{Order: o, ChangedBy: "console", Timestamp: at(59)})
	require.NoError(t, err)
	return b
}

func TestEvaluateReportsStartedOrders(t *testing.T) {
	f := newFixture(t, true)
	pending := entities.ServiceOrder{ID: "o0", PivotID: "p1", Status: entities.StatusPending, Zone: entities.ZoneUpperHalf}
	f.src.set([]entities.ServiceOrder{interruptedOnce("o1", "p2"), pending}, nil)

	require.NoError(t, f.svc.Poll(context.Background()))
	reports := f.svc.Evaluate()

	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "o1", r.OrderID)
	assert.Equal(t, 83.3, r.EfficiencyPct)
	assert.Equal(t, 60, r.TotalMinutes)
	assert.Equal(t, 10, r.StoppedMinutes)

	pub := f.broker.Published()
	require.Len(t, pub, 1)
	assert.Equal(t, "event/efficiency/p2/o1", pub[0].TopicName)
	var got msg.EfficiencyReportEvent
	require.NoError(t, json.Unmarshal(pub[0].Body, &got))
	assert.Equal(t, r, got)

	assert.Equal(t, 1, f.sink.len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Evaluations.WithLabelValues("IN_PROGRESS")))
	assert.Equal(t, 83.3, testutil.ToFloat64(f.metrics.Efficiency.WithLabelValues("p2", "o1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.TrackedOrders))

	got, err := f.svc.Report("o1")
	require.NoError(t, err)
	assert.Equal(t, r, got)
	_, err = f.svc.Report("o0")
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestReportsSortedByPivot(t *testing.T) {
	f := newFixture(t, true)
	f.src.set([]entities.ServiceOrder{
		interruptedOnce("o3", "p9"),
		interruptedOnce("o1", "p1"),
		interruptedOnce("o2", "p5"),
	}, nil)
	require.NoError(t, f.svc.Poll(context.Background()))
	f.svc.Evaluate()

	var pivots []string
	for _, r := range f.svc.Reports() {
		pivots = append(pivots, r.PivotID)
	}
	assert.Equal(t, []string{"p1", "p5", "p9"}, pivots)
}

func TestCompletedOrderReportedOnceThenEvicted(t *testing.T) {
	f := newFixture(t, false)
	o := interruptedOnce("o1", "p1")
	o, err := entities.Complete(o, at(90))
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleSnapshot("order/snapshot/#", mqtttest.Message{
		TopicName: "order/snapshot/p1/o1", Body: snapshotPayload(t, o),
	}))
	assert.Equal(t, 1, f.svc.Tracked())

	reports := f.svc.Evaluate()
	require.Len(t, reports, 1)
	assert.Equal(t, 90, reports[0].TotalMinutes, "completion time ends the window")
	assert.Equal(t, 0, f.svc.Tracked())

	assert.Empty(t, f.svc.Evaluate())
}

func TestHandleSnapshot(t *testing.T) {
	f := newFixture(t, false)
	o := interruptedOnce("", "")
	body := snapshotPayload(t, o)
	m := mqtttest.Message{TopicName: "order/snapshot/p7/o7", Body: body}

	require.NoError(t, f.svc.HandleSnapshot("order/snapshot/#", m))
	require.NoError(t, f.svc.HandleSnapshot("order/snapshot/#", m), "redelivery is dropped silently")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Snapshots.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Snapshots.WithLabelValues("duplicate")))

	reports := f.svc.Evaluate()
	require.Len(t, reports, 1)
	assert.Equal(t, "p7", reports[0].PivotID)
	assert.Equal(t, "o7", reports[0].OrderID)

	err := f.svc.HandleSnapshot("order/snapshot/#", mqtttest.Message{TopicName: "order/snapshot/p7/o8", Body: []byte("{")})
	assert.ErrorIs(t, err, ErrBadSnapshot)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Snapshots.WithLabelValues("invalid")))
}

func TestPollDropsOrdersNoLongerActive(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.svc.HandleSnapshot("", mqtttest.Message{
		TopicName: "order/snapshot/p1/o1", Body: snapshotPayload(t, interruptedOnce("o1", "p1")),
	}))
	f.svc.Evaluate()
	assert.Equal(t, 83.3, testutil.ToFloat64(f.metrics.Efficiency.WithLabelValues("p1", "o1")))

	f.clk.Set(at(61))
	f.src.set([]entities.ServiceOrder{interruptedOnce("o2", "p2")}, nil)
	require.NoError(t, f.svc.Poll(context.Background()))

	assert.Equal(t, 1, f.svc.Tracked())
	reports := f.svc.Evaluate()
	require.Len(t, reports, 1)
	assert.Equal(t, "o2", reports[0].OrderID)
}

func TestPollKeepsSnapshotReceivedInFlight(t *testing.T) {
	f := newFixture(t, true)
	stale := interruptedOnce("o1", "p1")
	done, err := entities.Complete(stale, at(61))
	require.NoError(t, err)

	f.src.set([]entities.ServiceOrder{stale}, nil)
	f.src.during = func() {
		f.clk.Set(at(61))
		require.NoError(t, f.svc.HandleSnapshot("", mqtttest.Message{
			TopicName: "order/snapshot/p1/o1", Body: snapshotPayload(t, done),
		}))
	}
	require.NoError(t, f.svc.Poll(context.Background()))

	reports := f.svc.Evaluate()
	require.Len(t, reports, 1)
	assert.Equal(t, "COMPLETED", reports[0].Status)
	assert.Equal(t, 61, reports[0].TotalMinutes)
	assert.Equal(t, 0, f.svc.Tracked(), "completed order is evicted after its last report")
}

func TestReportForFallsBackToLookup(t *testing.T) {
	f := newFixture(t, false)
	lookup := &fakeLookup{orders: map[string]entities.ServiceOrder{
		"o9": interruptedOnce("o9", "p3"),
		"o0": {ID: "o0", PivotID: "p3", Status: entities.StatusPending, Zone: entities.ZoneUpperHalf},
	}}
	f.svc.lookup = lookup

	r, err := f.svc.ReportFor(context.Background(), "o9")
	require.NoError(t, err)
	assert.Equal(t, "p3", r.PivotID)
	assert.Equal(t, 83.3, r.EfficiencyPct)
	assert.Equal(t, 0, f.svc.Tracked(), "lookups do not feed the cache")

	_, err = f.svc.ReportFor(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownOrder)
	_, err = f.svc.ReportFor(context.Background(), "o0")
	assert.ErrorIs(t, err, ErrUnknownOrder, "pending orders have no report")

	lookup.err = errors.New("backend down")
	_, err = f.svc.ReportFor(context.Background(), "o9")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownOrder)
}

func TestPivotReports(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.PivotReports(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrNoLookup)

	finished, err := entities.Complete(interruptedOnce("o2", "p1"), at(45))
	require.NoError(t, err)
	finished.Number = "OS-a"
	f.svc.lookup = &fakeLookup{orders: map[string]entities.ServiceOrder{
		"o1": interruptedOnce("o1", "p1"),
		"o2": finished,
		"o3": interruptedOnce("o3", "p2"),
		"o4": {ID: "o4", PivotID: "p1", Status: entities.StatusPending, Zone: entities.ZoneFull},
	}}

	reports, err := f.svc.PivotReports(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "o2", reports[0].OrderID, "sorted by order number")
	assert.Equal(t, "COMPLETED", reports[0].Status)
	assert.Equal(t, 45, reports[0].TotalMinutes)
	assert.Equal(t, "o1", reports[1].OrderID)
}

func TestPollErrorKeepsCache(t *testing.T) {
	f := newFixture(t, true)
	f.src.set([]entities.ServiceOrder{interruptedOnce("o1", "p1")}, nil)
	require.NoError(t, f.svc.Poll(context.Background()))
	assert.True(t, f.svc.Ready())

	boom := errors.New("boom")
	f.src.set(nil, boom)
	err := f.svc.Poll(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.svc.Tracked())
	assert.False(t, f.svc.Ready())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PollErrors))
}

func TestReady(t *testing.T) {
	assert.True(t, newFixture(t, false).svc.Ready(), "snapshot-only mode is always ready")

	f := newFixture(t, true)
	assert.False(t, f.svc.Ready(), "not ready before the first poll")
	require.NoError(t, f.svc.Poll(context.Background()))
	assert.True(t, f.svc.Ready())

	f.clk.Set(at(60).Add(31 * time.Millisecond))
	assert.False(t, f.svc.Ready(), "stale after three intervals")
}

func TestPublishFailureIsCounted(t *testing.T) {
	f := newFixture(t, true)
	f.broker.PublishErr = errors.New("broker down")
	f.src.set([]entities.ServiceOrder{interruptedOnce("o1", "p1")}, nil)
	require.NoError(t, f.svc.Poll(context.Background()))

	assert.Len(t, f.svc.Evaluate(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PublishErrors))
	assert.Equal(t, 1, f.sink.len(), "storage is written even when publishing fails")
}

func TestRunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, true)
	f.src.set([]entities.ServiceOrder{interruptedOnce("o1", "p1")}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.sink.len() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Len(t, f.svc.Reports(), 1)
}

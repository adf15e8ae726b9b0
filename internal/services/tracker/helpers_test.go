package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	"github.com/LeonardoBeccarini/pivot_orders/internal/services/backend"
)

var t0 = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func at(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

func tp(t time.Time) *time.Time { return &t }

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fakeSource struct {
	mu     sync.Mutex
	orders []entities.ServiceOrder
	err    error
	calls  int
	during func() // runs while the request is in flight
}

func (f *fakeSource) ListActive(context.Context) ([]entities.ServiceOrder, error) {
	f.mu.Lock()
	f.calls++
	orders, err, during := f.orders, f.err, f.during
	f.mu.Unlock()
	if during != nil {
		during()
	}
	return orders, err
}

type fakeLookup struct {
	orders map[string]entities.ServiceOrder
	err    error
	pivots []string
}

func (f *fakeLookup) GetOrder(_ context.Context, id string) (entities.ServiceOrder, error) {
	if f.err != nil {
		return entities.ServiceOrder{}, f.err
	}
	o, ok := f.orders[id]
	if !ok {
		return entities.ServiceOrder{}, fmt.Errorf("%w: %s", backend.ErrNotFound, id)
	}
	return o, nil
}

func (f *fakeLookup) ListByPivot(_ context.Context, pivotID string) ([]entities.ServiceOrder, error) {
	f.pivots = append(f.pivots, pivotID)
	if f.err != nil {
		return nil, f.err
	}
	var out []entities.ServiceOrder
	for _, o := range f.orders {
		if o.PivotID == pivotID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeSource) set(orders []entities.ServiceOrder, err error) {
	f.mu.Lock()
	f.orders, f.err = orders, err
	f.mu.Unlock()
}

type fakeSink struct {
	mu     sync.Mutex
	points []*write.Point
}

func (f *fakeSink) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}

func (f *fakeSink) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

// interruptedOnce started at 10:00, stopped 10:30-10:40, sits at 95° in the upper half.
func interruptedOnce(id, pivot string) entities.ServiceOrder {
	return entities.ServiceOrder{
		ID:              id,
		Number:          "OS-" + id,
		PivotID:         pivot,
		Operator:        "Ana",
		Status:          entities.StatusInProgress,
		ActualStartTime: tp(at(0)),
		Zone:            entities.ZoneUpperHalf,
		CurrentAngle:    95,
		Stage:           entities.StageMiddle,
		Interruptions: []entities.InterruptionRecord{
			{StoppedAt: at(30), ResumedAt: tp(at(40)), Reason: entities.ReasonPowerOutage},
		},
	}
}

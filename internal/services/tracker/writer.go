package tracker

import (
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

// PointSink receives efficiency points.
type PointSink interface {
	WritePoint(p *write.Point)
}

// Writer wraps the async WriteAPI and remembers when the last write error
// happened, for /healthz and /readyz.
type Writer struct {
	api     api.WriteAPI
	now     func() time.Time
	mu      sync.RWMutex
	lastErr time.Time
	written int64
	done    chan struct{}
}

// NewWriter starts draining the WriteAPI error channel. The drain ends when
// the channel is closed, i.e. when the Influx client is closed.
func NewWriter(w api.WriteAPI, log *zap.Logger, now func() time.Time) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	ww := &Writer{
		api:     w,
		now:     now,
		lastErr: now().Add(-24 * time.Hour),
		done:    make(chan struct{}),
	}
	errs := w.Errors()
	go func() {
		defer close(ww.done)
		for err := range errs {
			if err == nil {
				continue
			}
			ww.mu.Lock()
			ww.lastErr = ww.now()
			ww.mu.Unlock()
			log.Warn("influx write error", zap.Error(err))
		}
	}()
	return ww
}

func (w *Writer) WritePoint(p *write.Point) {
	w.api.WritePoint(p)
	w.mu.Lock()
	w.written++
	w.mu.Unlock()
}

func (w *Writer) Flush() { w.api.Flush() }

// Done is closed once the error channel has been drained.
func (w *Writer) Done() <-chan struct{} { return w.done }

// LastErrorAge is the time since the last write error.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.now().Sub(w.lastErr)
}

func (w *Writer) Written() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.written
}

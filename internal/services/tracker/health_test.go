package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/pivot_orders/pkg/rabbitmq/mqtttest"
)

type ager time.Duration

func (a ager) LastErrorAge() time.Duration { return time.Duration(a) }

func grpcStatus(t *testing.T, p *Probe) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := p.GRPC().Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestProbeReady(t *testing.T) {
	broker := mqtttest.NewClient()
	f := newFixture(t, false)
	p := NewProbe(broker, ager(time.Hour), f.svc, 2*time.Second)

	p.Sync()
	assert.True(t, p.Ready())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, grpcStatus(t, p))

	rec := httptest.NewRecorder()
	p.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":true}`, rec.Body.String())

	broker.Disconnect(0)
	p.Sync()
	assert.False(t, p.Ready())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, grpcStatus(t, p))

	rec = httptest.NewRecorder()
	p.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProbeRecentWriteErrorNotReady(t *testing.T) {
	f := newFixture(t, false)
	p := NewProbe(nil, ager(time.Second), f.svc, 2*time.Second)
	assert.False(t, p.Ready())
}

func TestHealthHandler(t *testing.T) {
	f := newFixture(t, true)
	p := NewProbe(mqtttest.NewClient(), ager(time.Minute), f.svc, 2*time.Second)

	get := func() map[string]any {
		rec := httptest.NewRecorder()
		p.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	body := get()
	assert.Equal(t, "degraded", body["status"], "backend not polled yet")
	assert.Equal(t, false, body["backend_ok"])

	require.NoError(t, f.svc.Poll(context.Background()))
	body = get()
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 60.0, body["last_write_error_age_sec"])
}

func TestProbeWatchShutsDownGRPC(t *testing.T) {
	f := newFixture(t, false)
	p := NewProbe(nil, nil, f.svc, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Watch(ctx, time.Hour)
		close(done)
	}()
	require.Eventually(t, func() bool {
		resp, err := p.GRPC().Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, grpcStatus(t, p))
}

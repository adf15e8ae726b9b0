package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Connectivity is the slice of mqtt.Client the probes need.
type Connectivity interface {
	IsConnectionOpen() bool
}

// ErrorAger reports the time since the last storage error.
type ErrorAger interface {
	LastErrorAge() time.Duration
}

// Probe combines broker, storage and backend state into health answers for
// HTTP and gRPC.
type Probe struct {
	mqtt     Connectivity
	writer   ErrorAger
	svc      *Service
	minError time.Duration
	grpc     *health.Server
}

func NewProbe(m Connectivity, w ErrorAger, svc *Service, minErrorAge time.Duration) *Probe {
	return &Probe{mqtt: m, writer: w, svc: svc, minError: minErrorAge, grpc: health.NewServer()}
}

func (p *Probe) mqttUp() bool {
	return p.mqtt == nil || p.mqtt.IsConnectionOpen()
}

func (p *Probe) storageUp() bool {
	return p.writer == nil || p.writer.LastErrorAge() > p.minError
}

func (p *Probe) Ready() bool {
	return p.mqttUp() && p.storageUp() && p.svc.Ready()
}

// GRPC is the health service to register on the gRPC server.
func (p *Probe) GRPC() *health.Server { return p.grpc }

// Sync copies readiness into the gRPC health status.
func (p *Probe) Sync() {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if p.Ready() {
		st = healthpb.HealthCheckResponse_SERVING
	}
	p.grpc.SetServingStatus("", st)
	p.grpc.SetServingStatus(ServiceName, st)
}

// Watch syncs the gRPC status every interval until ctx ends.
func (p *Probe) Watch(ctx context.Context, every time.Duration) {
	p.Sync()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			p.grpc.Shutdown()
			return
		case <-t.C:
			p.Sync()
		}
	}
}

// ServiceName is the gRPC health service name of the tracker.
const ServiceName = "pivot.tracker"

func (p *Probe) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		type status struct {
			Status        string  `json:"status"`
			MQTTConnected bool    `json:"mqtt_connected"`
			StorageOK     bool    `json:"storage_ok"`
			BackendOK     bool    `json:"backend_ok"`
			Tracked       int     `json:"tracked_orders"`
			LastErrorAgeS float64 `json:"last_write_error_age_sec,omitempty"`
		}
		st := status{
			MQTTConnected: p.mqttUp(),
			StorageOK:     p.storageUp(),
			BackendOK:     p.svc.Ready(),
			Tracked:       p.svc.Tracked(),
		}
		if p.writer != nil {
			st.LastErrorAgeS = p.writer.LastErrorAge().Seconds()
		}
		switch {
		case st.MQTTConnected && st.StorageOK && st.BackendOK:
			st.Status = "ok"
		case st.MQTTConnected || st.StorageOK || st.BackendOK:
			st.Status = "degraded"
		default:
			st.Status = "down"
		}
		writeJSON(w, http.StatusOK, st)
	})
}

// ReadyHandler answers 200 only when every dependency is up.
func (p *Probe) ReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ready := p.Ready()
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]bool{"ready": ready})
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

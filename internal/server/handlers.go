package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bgaechter/danfoss-ally-go/ally"
	"github.com/bgaechter/danfoss-ally-go/internal/poller"
)

// SnapshotProvider hands out the latest poll result.
type SnapshotProvider interface {
	Snapshot() poller.Snapshot
}

// HealthHandler returns a simple OK for liveness checks.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

type devicesResponse struct {
	Devices   []ally.Device          `json:"devices"`
	Readings  []ally.RoomTemperature `json:"readings"`
	PolledAt  time.Time              `json:"polled_at"`
	Success   bool                   `json:"success"`
	LastError string                 `json:"last_error,omitempty"`
}

// DevicesHandler serves the most recent device snapshot as JSON. It reads
// the poller's copy and never calls the vendor API itself.
func DevicesHandler(source SnapshotProvider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		snap := source.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(devicesResponse{
			Devices:   snap.Devices,
			Readings:  snap.Readings,
			PolledAt:  snap.PolledAt,
			Success:   snap.Success,
			LastError: snap.LastError,
		})
	})
}

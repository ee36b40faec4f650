// Package telemetry exposes poll outcomes as Prometheus metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bgaechter/danfoss-ally-go/internal/poller"
)

// SnapshotProvider is the poller surface the collector reads. Scrapes
// never hit the vendor API; the poll loop owns that traffic.
type SnapshotProvider interface {
	Snapshot() poller.Snapshot
}

// Collector translates the latest poll snapshot into gauges.
type Collector struct {
	source SnapshotProvider

	temperature *prometheus.GaugeVec
	online      *prometheus.GaugeVec
	devices     prometheus.Gauge
	lastSuccess prometheus.Gauge
	success     prometheus.Gauge
	tokenValid  prometheus.Gauge

	refreshSuccess *prometheus.Desc
	refreshFailure *prometheus.Desc
}

func NewCollector(source SnapshotProvider) *Collector {
	readingLabels := []string{"device_id", "device_name", "code"}
	deviceLabels := []string{"device_id", "device_name"}
	return &Collector{
		source: source,
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ally_room_temperature",
			Help: "Room temperature per device, raw vendor units",
		}, readingLabels),
		online: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ally_device_online_bool",
			Help: "Device online flag (1=online, 0=offline)",
		}, deviceLabels),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ally_devices_total",
			Help: "Devices in the most recent listing",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ally_last_success_timestamp_seconds",
			Help: "Last successful poll timestamp (epoch seconds)",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ally_poll_success",
			Help: "Last poll success (1=ok, 0=error)",
		}),
		tokenValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ally_token_valid",
			Help: "Whether an unexpired bearer token is held (1=yes)",
		}),
		refreshSuccess: prometheus.NewDesc(
			"ally_token_refresh_success_total",
			"Successful token refreshes by the poll loop",
			nil, nil),
		refreshFailure: prometheus.NewDesc(
			"ally_token_refresh_failure_total",
			"Failed token refreshes by the poll loop",
			nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.temperature.Describe(ch)
	c.online.Describe(ch)
	c.devices.Describe(ch)
	c.lastSuccess.Describe(ch)
	c.success.Describe(ch)
	c.tokenValid.Describe(ch)
	ch <- c.refreshSuccess
	ch <- c.refreshFailure
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Snapshot()

	c.temperature.Reset()
	c.online.Reset()

	for _, reading := range snap.Readings {
		value, ok := reading.Float64()
		if !ok {
			continue
		}
		c.temperature.With(prometheus.Labels{
			"device_id":   reading.DeviceID,
			"device_name": reading.DeviceName,
			"code":        reading.Code,
		}).Set(value)
	}
	for _, device := range snap.Devices {
		c.online.With(prometheus.Labels{
			"device_id":   device.ID,
			"device_name": device.Name,
		}).Set(boolToFloat(device.Online))
	}

	c.devices.Set(float64(len(snap.Devices)))
	if !snap.LastSuccess.IsZero() {
		c.lastSuccess.Set(float64(snap.LastSuccess.Unix()))
	}
	c.success.Set(boolToFloat(snap.Success))
	c.tokenValid.Set(boolToFloat(snap.TokenValid))

	c.collectAll(ch)

	ch <- prometheus.MustNewConstMetric(c.refreshSuccess, prometheus.CounterValue, float64(snap.TokenRefreshSuccesses))
	ch <- prometheus.MustNewConstMetric(c.refreshFailure, prometheus.CounterValue, float64(snap.TokenRefreshFailures))
}

func (c *Collector) collectAll(ch chan<- prometheus.Metric) {
	c.temperature.Collect(ch)
	c.online.Collect(ch)
	c.devices.Collect(ch)
	c.lastSuccess.Collect(ch)
	c.success.Collect(ch)
	c.tokenValid.Collect(ch)
}

func boolToFloat(value bool) float64 {
	if value {
		return 1
	}
	return 0
}

package telemetry

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bgaechter/danfoss-ally-go/ally"
	"github.com/bgaechter/danfoss-ally-go/internal/poller"
)

type fakeSource struct {
	snap poller.Snapshot
}

func (f *fakeSource) Snapshot() poller.Snapshot {
	return f.snap
}

func healthySnapshot() poller.Snapshot {
	return poller.Snapshot{
		Devices: []ally.Device{
			{ID: "dev-1", Name: "Living Room", Online: true},
			{ID: "dev-2", Name: "Bedroom", Online: false},
		},
		Readings: []ally.RoomTemperature{
			{DeviceID: "dev-1", DeviceName: "Living Room", Code: "temp_current", Value: json.RawMessage("215")},
			{DeviceID: "dev-2", DeviceName: "Bedroom", Code: "va_temperature", Value: json.RawMessage("198")},
		},
		PolledAt:    time.Now(),
		LastSuccess: time.Now(),
		Success:     true,
		TokenValid:  true,

		TokenRefreshSuccesses: 1,
	}
}

func TestCollectorExportsSnapshot(t *testing.T) {
	source := &fakeSource{snap: healthySnapshot()}
	collector := NewCollector(source)

	expected := `
# HELP ally_device_online_bool Device online flag (1=online, 0=offline)
# TYPE ally_device_online_bool gauge
ally_device_online_bool{device_id="dev-1",device_name="Living Room"} 1
ally_device_online_bool{device_id="dev-2",device_name="Bedroom"} 0
# HELP ally_devices_total Devices in the most recent listing
# TYPE ally_devices_total gauge
ally_devices_total 2
# HELP ally_poll_success Last poll success (1=ok, 0=error)
# TYPE ally_poll_success gauge
ally_poll_success 1
# HELP ally_room_temperature Room temperature per device, raw vendor units
# TYPE ally_room_temperature gauge
ally_room_temperature{code="temp_current",device_id="dev-1",device_name="Living Room"} 215
ally_room_temperature{code="va_temperature",device_id="dev-2",device_name="Bedroom"} 198
# HELP ally_token_refresh_failure_total Failed token refreshes by the poll loop
# TYPE ally_token_refresh_failure_total counter
ally_token_refresh_failure_total 0
# HELP ally_token_refresh_success_total Successful token refreshes by the poll loop
# TYPE ally_token_refresh_success_total counter
ally_token_refresh_success_total 1
# HELP ally_token_valid Whether an unexpired bearer token is held (1=yes)
# TYPE ally_token_valid gauge
ally_token_valid 1
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"ally_room_temperature", "ally_device_online_bool", "ally_devices_total",
		"ally_poll_success", "ally_token_valid",
		"ally_token_refresh_success_total", "ally_token_refresh_failure_total")
	if err != nil {
		t.Fatal(err)
	}
}

func TestCollectorFailedPollKeepsLastReadings(t *testing.T) {
	snap := healthySnapshot()
	snap.Success = false
	snap.TokenValid = false
	snap.LastError = "get devices: boom"
	snap.TokenRefreshFailures = 2
	source := &fakeSource{snap: snap}
	collector := NewCollector(source)

	expected := `
# HELP ally_poll_success Last poll success (1=ok, 0=error)
# TYPE ally_poll_success gauge
ally_poll_success 0
# HELP ally_room_temperature Room temperature per device, raw vendor units
# TYPE ally_room_temperature gauge
ally_room_temperature{code="temp_current",device_id="dev-1",device_name="Living Room"} 215
ally_room_temperature{code="va_temperature",device_id="dev-2",device_name="Bedroom"} 198
# HELP ally_token_refresh_failure_total Failed token refreshes by the poll loop
# TYPE ally_token_refresh_failure_total counter
ally_token_refresh_failure_total 2
# HELP ally_token_valid Whether an unexpired bearer token is held (1=yes)
# TYPE ally_token_valid gauge
ally_token_valid 0
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"ally_room_temperature", "ally_poll_success", "ally_token_valid",
		"ally_token_refresh_failure_total")
	if err != nil {
		t.Fatal(err)
	}
}

func TestCollectorDropsDepartedDevices(t *testing.T) {
	source := &fakeSource{snap: healthySnapshot()}
	collector := NewCollector(source)

	if err := testutil.CollectAndCompare(collector, strings.NewReader(`
# HELP ally_devices_total Devices in the most recent listing
# TYPE ally_devices_total gauge
ally_devices_total 2
`), "ally_devices_total"); err != nil {
		t.Fatal(err)
	}

	source.snap = poller.Snapshot{
		Devices: []ally.Device{
			{ID: "dev-1", Name: "Living Room", Online: true},
		},
		Readings: []ally.RoomTemperature{
			{DeviceID: "dev-1", DeviceName: "Living Room", Code: "temp_current", Value: json.RawMessage("220")},
		},
		LastSuccess: time.Now(),
		Success:     true,
		TokenValid:  true,
	}

	expected := `
# HELP ally_device_online_bool Device online flag (1=online, 0=offline)
# TYPE ally_device_online_bool gauge
ally_device_online_bool{device_id="dev-1",device_name="Living Room"} 1
# HELP ally_devices_total Devices in the most recent listing
# TYPE ally_devices_total gauge
ally_devices_total 1
# HELP ally_room_temperature Room temperature per device, raw vendor units
# TYPE ally_room_temperature gauge
ally_room_temperature{code="temp_current",device_id="dev-1",device_name="Living Room"} 220
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"ally_room_temperature", "ally_device_online_bool", "ally_devices_total")
	if err != nil {
		t.Fatal(err)
	}
}

func TestCollectorSkipsNonNumericReadings(t *testing.T) {
	snap := healthySnapshot()
	snap.Readings = append(snap.Readings, ally.RoomTemperature{
		DeviceID: "dev-3", DeviceName: "Hall", Code: "va_temperature", Value: json.RawMessage(`"off"`),
	})
	collector := NewCollector(&fakeSource{snap: snap})

	expected := `
# HELP ally_room_temperature Room temperature per device, raw vendor units
# TYPE ally_room_temperature gauge
ally_room_temperature{code="temp_current",device_id="dev-1",device_name="Living Room"} 215
ally_room_temperature{code="va_temperature",device_id="dev-2",device_name="Bedroom"} 198
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected), "ally_room_temperature")
	if err != nil {
		t.Fatal(err)
	}
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry(NewCollector(&fakeSource{snap: healthySnapshot()}))

	expected := `
# HELP ally_devices_total Devices in the most recent listing
# TYPE ally_devices_total gauge
ally_devices_total 2
# HELP ally_up Always 1 while the exporter is running
# TYPE ally_up gauge
ally_up 1
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"ally_up", "ally_devices_total")
	if err != nil {
		t.Fatal(err)
	}
}

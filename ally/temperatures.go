package ally

import "log/slog"

// Status codes carrying the room temperature. Ally radiator thermostats
// report temp_current; Icon room sensors report va_temperature.
var temperatureCodes = []string{"va_temperature", "temp_current"}

// RoomTemperature returns the device's room-temperature status, if it
// has one. Devices exposing both codes yield the va_temperature one.
func (d Device) RoomTemperature() (Status, bool) {
	for _, code := range temperatureCodes {
		for _, status := range d.Status {
			if status.Code == code {
				return status, true
			}
		}
	}
	return Status{}, false
}

// RoomTemperatures extracts one reading per device from the most
// recently fetched listing. Devices without a temperature status are
// skipped.
func (c *Client) RoomTemperatures() []RoomTemperature {
	devices := c.Devices()
	readings := make([]RoomTemperature, 0, len(devices))
	for _, device := range devices {
		status, ok := device.RoomTemperature()
		if !ok {
			continue
		}
		readings = append(readings, RoomTemperature{
			DeviceID:   device.ID,
			DeviceName: device.Name,
			Code:       status.Code,
			Value:      status.Value,
		})
	}
	return readings
}

// PrintRoomTemperatures emits one debug line per device with a
// room-temperature status, carrying the device name and the raw value.
// A nil logger falls back to the client's configured logger. With no
// devices held it logs a single "no devices" line.
func (c *Client) PrintRoomTemperatures(logger *slog.Logger) {
	if logger == nil {
		logger = c.logger
	}
	devices := c.Devices()
	if len(devices) == 0 {
		logger.Debug("no devices")
		return
	}
	for _, device := range devices {
		status, ok := device.RoomTemperature()
		if !ok {
			continue
		}
		logger.Debug("room temperature", "device", device.Name, "value", string(status.Value))
	}
}

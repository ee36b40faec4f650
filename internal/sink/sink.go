// Package sink fans room-temperature readings out to their
// destinations. The poller hands every poll's readings to each
// configured sink; sinks are independent, and one failing does not
// stop the others.
package sink

import (
	"context"
	"log/slog"

	"github.com/bgaechter/danfoss-ally-go/ally"
)

// Sink receives the readings of one poll cycle.
type Sink interface {
	Name() string
	Publish(ctx context.Context, readings []ally.RoomTemperature) error
	Close() error
}

// LogSink writes one debug line per reading to a structured logger.
// It is the default sink and backs the library's diagnostic stream.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(_ context.Context, readings []ally.RoomTemperature) error {
	if len(readings) == 0 {
		s.logger.Debug("no readings")
		return nil
	}
	for _, reading := range readings {
		s.logger.Debug("room temperature",
			"device", reading.DeviceName,
			"value", string(reading.Value),
			"code", reading.Code,
		)
	}
	return nil
}

func (s *LogSink) Close() error { return nil }

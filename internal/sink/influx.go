package sink

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/bgaechter/danfoss-ally-go/ally"
	"github.com/bgaechter/danfoss-ally-go/internal/config"
)

// InfluxSink records numeric readings as points in an InfluxDB bucket.
// Readings whose value is not a number are skipped; line protocol has
// no home for arbitrary JSON.
type InfluxSink struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	measurement string
}

func NewInfluxSink(cfg config.InfluxConfig) *InfluxSink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: cfg.Measurement,
	}
}

func (s *InfluxSink) Name() string { return "influx" }

func (s *InfluxSink) Publish(ctx context.Context, readings []ally.RoomTemperature) error {
	now := time.Now()
	for _, reading := range readings {
		value, ok := reading.Float64()
		if !ok {
			continue
		}
		point := influxdb2.NewPoint(
			s.measurement,
			map[string]string{
				"device_id":   reading.DeviceID,
				"device_name": reading.DeviceName,
				"code":        reading.Code,
			},
			map[string]interface{}{"value": value},
			now,
		)
		if err := s.writeAPI.WritePoint(ctx, point); err != nil {
			return fmt.Errorf("write point %s: %w", reading.DeviceID, err)
		}
	}
	return nil
}

func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bgaechter/danfoss-ally-go/ally"
	"github.com/bgaechter/danfoss-ally-go/internal/config"
)

// publisher is the subset of mqtt.Client the sink needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint32)
}

// MQTTSink publishes one JSON message per reading to
// <topic>/<device_id>.
type MQTTSink struct {
	client publisher
	topic  string
}

type readingMessage struct {
	DeviceID    string          `json:"device_id"`
	DeviceName  string          `json:"device_name"`
	Code        string          `json:"code"`
	Value       json.RawMessage `json:"value"`
	CollectedAt time.Time       `json:"collected_at"`
}

// NewMQTTSink connects to the broker. Connection failures are fatal
// here; once connected the client reconnects on its own.
func NewMQTTSink(cfg config.MQTTConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}

	return &MQTTSink{client: client, topic: cfg.Topic}, nil
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Publish(ctx context.Context, readings []ally.RoomTemperature) error {
	now := time.Now().UTC()
	for _, reading := range readings {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(readingMessage{
			DeviceID:    reading.DeviceID,
			DeviceName:  reading.DeviceName,
			Code:        reading.Code,
			Value:       reading.Value,
			CollectedAt: now,
		})
		if err != nil {
			return fmt.Errorf("marshal reading: %w", err)
		}
		token := s.client.Publish(readingTopic(s.topic, reading.DeviceID), 0, false, payload)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("publish %s: %w", reading.DeviceID, token.Error())
		}
	}
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}

func readingTopic(base, deviceID string) string {
	return base + "/" + deviceID
}

// Package config loads daemon configuration from the environment. An
// optional .env file is honored first, matching local development
// workflows; real deployments set the variables directly.
package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bgaechter/danfoss-ally-go/ally"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultHTTPAddr     = ":8080"
	DefaultMQTTTopic    = "danfoss/ally"
	DefaultMQTTClientID = "danfoss-ally"
	DefaultMeasurement  = "room_temperature"
)

// Config holds everything the daemon needs.
type Config struct {
	Credentials  ally.Credentials
	BaseURL      string
	PollInterval time.Duration
	HTTPAddr     string
	LogLevel     slog.Level

	TokenCache TokenCacheConfig
	MQTT       MQTTConfig
	Influx     InfluxConfig
}

// TokenCacheConfig selects the token persistence backend: a local file,
// an S3-compatible bucket, or neither.
type TokenCacheConfig struct {
	FilePath string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string
}

// Enabled reports whether any persistence backend is configured.
func (c TokenCacheConfig) Enabled() bool {
	return c.FilePath != "" || c.S3Endpoint != ""
}

// MQTTConfig configures the optional reading publisher.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// InfluxConfig configures the optional reading recorder.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

// Load builds the configuration from the environment. When envFile is
// empty the default .env is tried and silently skipped if absent; an
// explicitly named file must exist.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on system environment variables")
	}

	interval, err := durationOrDefault("ALLY_POLL_INTERVAL", DefaultPollInterval)
	if err != nil {
		return nil, err
	}
	level, err := parseLevel(envOrDefault("ALLY_LOG_LEVEL", "debug"))
	if err != nil {
		return nil, err
	}
	s3AccessKey, err := secretOrFile("ALLY_S3_ACCESS_KEY")
	if err != nil {
		return nil, err
	}
	s3SecretKey, err := secretOrFile("ALLY_S3_SECRET_KEY")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Credentials: ally.Credentials{
			Key:    os.Getenv(ally.EnvAPIKey),
			Secret: os.Getenv(ally.EnvAPISecret),
		},
		BaseURL:      os.Getenv("ALLY_BASE_URL"),
		PollInterval: interval,
		HTTPAddr:     envOrDefault("ALLY_HTTP_ADDR", DefaultHTTPAddr),
		LogLevel:     level,
		TokenCache: TokenCacheConfig{
			FilePath:    os.Getenv("ALLY_TOKEN_FILE"),
			S3Endpoint:  os.Getenv("ALLY_S3_ENDPOINT"),
			S3AccessKey: s3AccessKey,
			S3SecretKey: s3SecretKey,
			S3Bucket:    os.Getenv("ALLY_S3_BUCKET"),
			S3Prefix:    os.Getenv("ALLY_S3_PREFIX"),
		},
		MQTT: MQTTConfig{
			Broker:   os.Getenv("ALLY_MQTT_BROKER"),
			Topic:    envOrDefault("ALLY_MQTT_TOPIC", DefaultMQTTTopic),
			ClientID: envOrDefault("ALLY_MQTT_CLIENT_ID", DefaultMQTTClientID),
			Username: os.Getenv("ALLY_MQTT_USERNAME"),
			Password: os.Getenv("ALLY_MQTT_PASSWORD"),
		},
		Influx: InfluxConfig{
			URL:         os.Getenv("ALLY_INFLUX_URL"),
			Token:       os.Getenv("ALLY_INFLUX_TOKEN"),
			Org:         os.Getenv("ALLY_INFLUX_ORG"),
			Bucket:      os.Getenv("ALLY_INFLUX_BUCKET"),
			Measurement: envOrDefault("ALLY_INFLUX_MEASUREMENT", DefaultMeasurement),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces credential presence and option coherence.
func (c *Config) Validate() error {
	if err := c.Credentials.Validate(); err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.TokenCache.FilePath != "" && c.TokenCache.S3Endpoint != "" {
		return fmt.Errorf("token cache: set ALLY_TOKEN_FILE or ALLY_S3_ENDPOINT, not both")
	}
	if c.TokenCache.S3Endpoint != "" && c.TokenCache.S3Bucket == "" {
		return fmt.Errorf("token cache: ALLY_S3_BUCKET is required with ALLY_S3_ENDPOINT")
	}
	if c.Influx.URL != "" {
		if c.Influx.Token == "" || c.Influx.Org == "" || c.Influx.Bucket == "" {
			return fmt.Errorf("influx: ALLY_INFLUX_TOKEN, ALLY_INFLUX_ORG, and ALLY_INFLUX_BUCKET are required with ALLY_INFLUX_URL")
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// secretOrFile reads key directly, falling back to the contents of the
// file named by key_FILE. Deployments that mount secrets as files set
// the _FILE variant.
func secretOrFile(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	path := os.Getenv(key + "_FILE")
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s_FILE: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return 0, fmt.Errorf("parse ALLY_LOG_LEVEL: %w", err)
	}
	return level, nil
}

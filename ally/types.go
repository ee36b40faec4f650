package ally

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// Credentials identify an application registered on the Danfoss
// developer portal.
type Credentials struct {
	Key    string
	Secret string
}

// CredentialsFromEnv reads credentials from DANFOSS_API_KEY and
// DANFOSS_API_SECRET. Missing or empty variables are reported as
// ErrMissingAPIKey / ErrMissingAPISecret.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		Key:    os.Getenv(EnvAPIKey),
		Secret: os.Getenv(EnvAPISecret),
	}
	return creds, creds.Validate()
}

// Validate reports whether both credential halves are present.
func (c Credentials) Validate() error {
	if c.Key == "" {
		return ErrMissingAPIKey
	}
	if c.Secret == "" {
		return ErrMissingAPISecret
	}
	return nil
}

// Token is a bearer credential issued by the Danfoss OAuth2 endpoint.
// ExpiresAt is absolute; a zero ExpiresAt means the vendor did not
// report a lifetime.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the token can authenticate requests at now.
func (t *Token) Valid(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(t.ExpiresAt)
}

// NeedsRefresh reports whether the token is missing, expired, or
// expiring within buffer of now.
func (t *Token) NeedsRefresh(now time.Time, buffer time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(buffer).Before(t.ExpiresAt)
}

// DevicesResponse is the envelope around the device listing. T is the
// vendor's response timestamp in milliseconds.
type DevicesResponse struct {
	Result []Device `json:"result"`
	T      int64    `json:"t"`
}

// Device is a single unit registered to the account, typically an Ally
// radiator thermostat or an Icon room controller.
type Device struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	DeviceType string   `json:"device_type"`
	Online     bool     `json:"online"`
	Sub        bool     `json:"sub"`
	TimeZone   string   `json:"time_zone"`
	ActiveTime int64    `json:"active_time"`
	CreateTime int64    `json:"create_time"`
	UpdateTime int64    `json:"update_time"`
	Status     []Status `json:"status"`
}

// Status is one telemetry datapoint on a device. Value is kept raw;
// the vendor mixes numbers, strings, and booleans across codes.
type Status struct {
	Code  string          `json:"code"`
	Value json.RawMessage `json:"value"`
}

// Float64 decodes the status value as a number. JSON strings that
// contain a number are accepted as well.
func (s Status) Float64() (float64, bool) {
	var f float64
	if err := json.Unmarshal(s.Value, &f); err == nil {
		return f, true
	}
	var str string
	if err := json.Unmarshal(s.Value, &str); err == nil {
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// RoomTemperature is the room-temperature datapoint extracted from a
// device, paired with enough identity to label it downstream.
type RoomTemperature struct {
	DeviceID   string          `json:"device_id"`
	DeviceName string          `json:"device_name"`
	Code       string          `json:"code"`
	Value      json.RawMessage `json:"value"`
}

// Float64 decodes the temperature value as a number.
func (r RoomTemperature) Float64() (float64, bool) {
	return Status{Code: r.Code, Value: r.Value}.Float64()
}

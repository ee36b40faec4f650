package ally

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors returned by the client.
var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("ally: missing API key (DANFOSS_API_KEY)")

	// ErrMissingAPISecret is returned when no API secret is configured.
	ErrMissingAPISecret = errors.New("ally: missing API secret (DANFOSS_API_SECRET)")

	// ErrNotAuthenticated is returned when a call requiring a token is
	// made before GetToken has succeeded.
	ErrNotAuthenticated = errors.New("ally: not authenticated, call GetToken first")

	// ErrTokenNotFound is returned by a TokenStore when no token has
	// been persisted yet.
	ErrTokenNotFound = errors.New("ally: no cached token")
)

// AuthError is returned when the vendor rejects the credentials or the
// bearer token. A token grant whose body cannot be used carries the
// cause in Err instead of a status.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("ally: authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("ally: authentication rejected (status %d): %s", e.StatusCode, trimBody(e.Body))
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError wraps connectivity failures, including timeouts.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ally: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a timeout.
func (e *TransportError) Timeout() bool {
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// DecodeError is returned when a response body cannot be parsed.
// Preview holds the leading bytes of the offending body.
type DecodeError struct {
	What    string
	Err     error
	Preview string
}

func (e *DecodeError) Error() string {
	if e.Preview == "" {
		return fmt.Sprintf("ally: decode %s: %v", e.What, e.Err)
	}
	return fmt.Sprintf("ally: decode %s: %v (body: %s)", e.What, e.Err, e.Preview)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// APIError is a non-2xx response outside the authentication classes.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ally: api error (status %d): %s", e.StatusCode, trimBody(e.Body))
}

// IsAuth reports whether err is an authentication rejection.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransport reports whether err is a connectivity failure.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsDecode reports whether err is a response parsing failure.
func IsDecode(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

// IsTimeout reports whether err was caused by a timeout anywhere in the
// chain.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func trimBody(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 256 {
		return body[:256] + "..."
	}
	return body
}

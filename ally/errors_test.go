package ally

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	authErr := &AuthError{StatusCode: 401, Body: "nope"}
	transportErr := &TransportError{Op: "GET /ally/devices", Err: errors.New("connection refused")}
	decodeErr := &DecodeError{What: "devices response", Err: errors.New("unexpected end of JSON input")}

	if !IsAuth(authErr) || IsAuth(transportErr) || IsAuth(decodeErr) {
		t.Fatalf("IsAuth misclassified")
	}
	if !IsTransport(transportErr) || IsTransport(authErr) {
		t.Fatalf("IsTransport misclassified")
	}
	if !IsDecode(decodeErr) || IsDecode(authErr) {
		t.Fatalf("IsDecode misclassified")
	}
}

func TestErrorPredicatesMatchWrapped(t *testing.T) {
	wrapped := fmt.Errorf("poll cycle: %w", &AuthError{StatusCode: 403, Body: "forbidden"})
	if !IsAuth(wrapped) {
		t.Fatalf("expected IsAuth to match wrapped error")
	}

	inner := errors.New("dial tcp: connection refused")
	wrappedTransport := fmt.Errorf("poll cycle: %w", &TransportError{Op: "token exchange", Err: inner})
	if !IsTransport(wrappedTransport) {
		t.Fatalf("expected IsTransport to match wrapped error")
	}
	if !errors.Is(wrappedTransport, inner) {
		t.Fatalf("expected TransportError to unwrap to the cause")
	}

	cause := errors.New("oauth2: cannot parse json")
	grantErr := &AuthError{Err: cause}
	if !errors.Is(grantErr, cause) {
		t.Fatalf("expected AuthError to unwrap to the cause")
	}
	if !strings.Contains(grantErr.Error(), "authentication failed") {
		t.Fatalf("unexpected grant failure message: %s", grantErr.Error())
	}
}

func TestSentinelErrors(t *testing.T) {
	if !errors.Is(fmt.Errorf("ctx: %w", ErrNotAuthenticated), ErrNotAuthenticated) {
		t.Fatalf("ErrNotAuthenticated must survive wrapping")
	}
}

func TestErrorMessagesTrimLongBodies(t *testing.T) {
	body := strings.Repeat("x", 4096)
	msg := (&AuthError{StatusCode: 502, Body: body}).Error()
	if len(msg) > 512 {
		t.Fatalf("expected trimmed message, got %d bytes", len(msg))
	}
	if !strings.Contains(msg, "...") {
		t.Fatalf("expected ellipsis in trimmed message: %s", msg)
	}

	decodeMsg := (&DecodeError{
		What:    "devices response",
		Err:     errors.New("unexpected end of JSON input"),
		Preview: trimBody(strings.Repeat("y", 4096)),
	}).Error()
	if len(decodeMsg) > 512 {
		t.Fatalf("expected trimmed decode message, got %d bytes", len(decodeMsg))
	}
	if !strings.Contains(decodeMsg, "(body: yyy") {
		t.Fatalf("expected body preview in decode message: %s", decodeMsg)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestTimeoutDetection(t *testing.T) {
	err := &TransportError{Op: "GET /ally/devices", Err: timeoutErr{}}
	if !err.Timeout() {
		t.Fatalf("expected Timeout() to report true")
	}
	if !IsTimeout(fmt.Errorf("poll: %w", err)) {
		t.Fatalf("expected IsTimeout to match through wrapping")
	}
	if IsTimeout(&TransportError{Op: "x", Err: errors.New("refused")}) {
		t.Fatalf("IsTimeout must not match non-timeouts")
	}
}

package omnifetch

import (
	"errors"
	"fmt"
	"time"
)

// Error type classifications carried by RequestError.Type.
const (
	// ErrorTypeNetwork covers transport failures and attempt timeouts.
	// It is the only classification retried by the default policy.
	ErrorTypeNetwork = "Network"

	// ErrorTypeHTTP covers non-2xx responses other than 401.
	ErrorTypeHTTP = "HTTP"

	// ErrorTypeAuthExpired covers HTTP 401. The session is invalidated
	// and the failure is neither retried nor notified.
	ErrorTypeAuthExpired = "AuthExpired"

	// ErrorTypeSerialization covers request bodies that cannot be
	// serialized and response bodies that cannot be decoded.
	ErrorTypeSerialization = "Serialization"

	ErrorTypeRateLimit   = "RateLimit"
	ErrorTypeCircuitOpen = "CircuitOpen"
	ErrorTypeValidation  = "Validation"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrCircuitOpen is returned when the circuit breaker is in open state.
	ErrCircuitOpen = errors.New("omnifetch: circuit open")

	// ErrRateLimited is returned when a request is denied by the rate limiter.
	ErrRateLimited = errors.New("omnifetch: rate limited")

	// ErrSessionExpired is returned on HTTP 401 after the session has been
	// invalidated.
	ErrSessionExpired = errors.New("omnifetch: session expired")
)

// RequestError is the structured error surfaced for every failure. Raw
// transport or parse errors never escape unwrapped.
type RequestError struct {
	Type       string
	Message    string
	StatusCode int
	StatusText string
	Body       []byte
	Method     string
	URL        string
	Attempt    int
	MaxAttempt int
	Timestamp  time.Time
	Cause      error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d %s)", msg, e.StatusCode, e.StatusText)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Attempt > 1 || e.MaxAttempt > 1 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxAttempt)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches two RequestErrors by classification, so callers can probe with
// errors.Is(err, &RequestError{Type: ErrorTypeHTTP}).
func (e *RequestError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*RequestError); ok {
		return e.Type == t.Type
	}
	return false
}

// IsRetryable reports whether the default retry policy would re-attempt the
// failed request. Only transport failures and timeouts qualify: HTTP error
// statuses, including 5xx, and expired sessions are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re.Type == ErrorTypeNetwork
	}
	return false
}

// errorKind renders the classification used for metrics labels.
func errorKind(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Type
	}
	return "Unknown"
}

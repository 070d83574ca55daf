package omnifetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Request describes one logical API call. The zero value of every field
// falls back to the owning Client's defaults.
type Request struct {
	// Endpoint is a path resolved against the client base URL, or an
	// absolute URL used as-is.
	Endpoint string

	// Method defaults to GET.
	Method string

	// Headers are set on the outgoing request after the standard
	// Content-Type and Authorization headers.
	Headers map[string]string

	// Body is JSON-serialized when non-nil.
	Body interface{}

	// Timeout bounds each network attempt. Zero means the client default.
	Timeout time.Duration

	// DisableCache opts a GET request out of the shared response cache.
	DisableCache bool

	// CacheTTL overrides the client cache TTL for this request.
	CacheTTL time.Duration

	// RetryLimit is the total number of transport attempts for this
	// request. Zero means the client default.
	RetryLimit int

	// RetryDelay is the wait between attempts. Zero means the client
	// default.
	RetryDelay time.Duration

	// Silent suppresses the failure notification for this request.
	Silent bool
}

// Response is the outcome of a successful execution, served either from the
// network or from the cache.
type Response struct {
	StatusCode int
	StatusText string
	Header     http.Header
	Body       []byte

	// FromCache reports whether the response was served from the shared
	// cache without a network call.
	FromCache bool
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &RequestError{
			Type:    ErrorTypeSerialization,
			Message: "response body is not valid JSON",
			Cause:   err,
		}
	}
	return nil
}

// CacheEntry is a cached response payload together with its validity window.
// An entry is valid while now - StoredAt < TTL.
type CacheEntry struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	StoredAt   time.Time
	TTL        time.Duration
}

// Expired reports whether the entry is stale at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.StoredAt) >= e.TTL
}

// CacheStats is a point-in-time snapshot of cache occupancy.
type CacheStats struct {
	Entries   int
	Valid     int
	Expired   int
	SizeBytes int64
}

// String renders the stats for logs and CLI output.
func (s CacheStats) String() string {
	return fmt.Sprintf("entries=%d valid=%d expired=%d size=%dB",
		s.Entries, s.Valid, s.Expired, s.SizeBytes)
}

// Cache stores responses for cacheable requests. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry, ttl time.Duration)
	Delete(key string)

	// Clear removes entries whose key contains any of the given
	// substrings, or every entry when called without arguments. It
	// returns the number of entries removed.
	Clear(pattern ...string) int

	// Stats reports occupancy without mutating the cache.
	Stats() CacheStats

	// Sweep evicts every expired entry and returns the eviction count.
	Sweep() int
}

// CacheKeyFunc derives the cache key for a request. body is the serialized
// JSON payload, nil for body-less requests.
type CacheKeyFunc func(method, url string, body []byte) string

// AuthProvider supplies bearer tokens and receives session-invalidation
// signals on HTTP 401 responses.
type AuthProvider interface {
	// Token returns the current bearer token, or "" for anonymous calls.
	Token(ctx context.Context) (string, error)

	// InvalidateSession is called once when the server rejects the
	// session with 401.
	InvalidateSession()
}

// Notification is a user-facing message emitted on request failure.
type Notification struct {
	Kind    string
	Title   string
	Message string
}

// Notifier receives failure notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Clock abstracts time for retry waits and the expiry sweep so tests can
// fast-forward virtual time.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Middleware wraps the transport for cross-cutting concerns.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper is the HTTP transport interface seen by middleware.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option configures a Client.
type Option func(*Client)

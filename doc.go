// Package omnifetch provides a client-side HTTP request and cache layer for
// JSON REST APIs:
//
//   - Shared TTL response cache for GET requests with pattern invalidation,
//     stats inspection and a periodic expiry sweep
//   - Retries with a fixed delay on transport failures (exponential backoff
//     with jitter available as an opt-in policy)
//   - Per-attempt timeouts and bearer-token injection via an AuthProvider
//   - Per-caller request state machine (Fetcher) with cancellation that
//     discards superseded results
//   - Request de-duplication (merges concurrent identical in-flight GETs)
//   - Middleware chain for cross-cutting concerns (tracing, extra headers)
//   - Optional rate limiting, circuit breaking, Prometheus metrics and
//     lightweight structured debug logging
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - No package-level state: the cache is an injected value, so tests run
//     against isolated instances
//   - Safe concurrent use of a single *Client instance
//   - Structured errors only: every failure surfaces as a *RequestError
//
// Typical usage:
//
//	client := omnifetch.New(
//	    omnifetch.WithBaseURL("https://api.example.com"),
//	    omnifetch.WithMaxAttempts(3),
//	    omnifetch.WithCacheTTL(5*time.Minute),
//	    omnifetch.WithAuthProvider(tokens),
//	)
//	defer client.Close()
//
//	resp, err := client.Get(ctx, "/api/keywords")
//
// Only transport-level failures trigger retries: HTTP error statuses,
// including 5xx, surface immediately so callers observe exactly one attempt
// for them. A cache hit is reported with StatusText "OK (cached)" and never
// touches the network.
package omnifetch

package omnifetch

import (
	"context"
	"errors"
	"net/http"
	neturl "net/url"
	"strings"
	"sync"
	"time"
)

// Default configuration, overridable per client and per request.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxAttempts   = 3
	DefaultRetryDelay    = 1000 * time.Millisecond
	DefaultCacheTTL      = 5 * time.Minute
	DefaultSweepInterval = 60 * time.Second
)

// Client executes API requests with caching, retries, timeouts and
// authentication around the standard net/http Client. It is safe for
// concurrent use.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	timeout       time.Duration
	maxAttempts   int
	retryDelay    time.Duration
	retryPolicy   RetryPolicy
	cache         Cache
	cacheTTL      time.Duration
	cacheKeyFunc  CacheKeyFunc
	sweepInterval time.Duration
	auth          AuthProvider
	notifier      Notifier
	middleware    []Middleware
	rateLimiter   *RateLimiter
	breaker       *CircuitBreaker
	flights       *flightGroup
	metrics       *MetricsCollector
	logger        Logger
	debug         *DebugConfig
	clock         Clock

	validationError error

	sweepStop chan struct{}
	closeOnce sync.Once
}

// New constructs a Client using the provided functional options. Caching is
// on by default with an isolated MemoryCache per client. A best effort
// validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	// The http.Client carries no Timeout of its own: each attempt is
	// bounded by a per-attempt context, so a per-request Timeout larger
	// than the client default is honored rather than capped.
	client := &Client{
		httpClient:    &http.Client{},
		timeout:       DefaultTimeout,
		maxAttempts:   DefaultMaxAttempts,
		retryDelay:    DefaultRetryDelay,
		cache:         NewMemoryCache(),
		cacheTTL:      DefaultCacheTTL,
		cacheKeyFunc:  DefaultCacheKey,
		sweepInterval: DefaultSweepInterval,
		middleware:    []Middleware{},
		debug:         DefaultDebugConfig(),
		clock:         realClock{},
		sweepStop:     make(chan struct{}),
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	if client.cache != nil && client.sweepInterval > 0 {
		go client.sweepLoop()
	}

	return client
}

// Close stops the background expiry sweep. The client must not be used
// after Close.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.sweepStop)
	})
}

// Get executes a GET request against endpoint.
func (c *Client) Get(ctx context.Context, endpoint string) (*Response, error) {
	return c.Execute(ctx, Request{Method: http.MethodGet, Endpoint: endpoint})
}

// Post executes a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body interface{}) (*Response, error) {
	return c.Execute(ctx, Request{Method: http.MethodPost, Endpoint: endpoint, Body: body})
}

// Put executes a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body interface{}) (*Response, error) {
	return c.Execute(ctx, Request{Method: http.MethodPut, Endpoint: endpoint, Body: body})
}

// Patch executes a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, endpoint string, body interface{}) (*Response, error) {
	return c.Execute(ctx, Request{Method: http.MethodPatch, Endpoint: endpoint, Body: body})
}

// Delete executes a DELETE request against endpoint.
func (c *Client) Delete(ctx context.Context, endpoint string) (*Response, error) {
	return c.Execute(ctx, Request{Method: http.MethodDelete, Endpoint: endpoint})
}

// Execute runs one logical request through the cache, de-duplication and
// retry layers. On failure it returns a *RequestError and, except for
// expired sessions and silent requests, emits a notification.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	url := c.resolveURL(req.Endpoint)
	endpoint := endpointLabel(url)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}
	if c.debugLog(c.debug != nil && c.debug.LogRequests) {
		c.logger.Debug("Starting request", "requestID", requestID, "method", method, "url", url)
	}

	body, err := serializeBody(req.Body, method, url, c.clock.Now())
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError(errorKind(err), method, endpoint)
		}
		c.notifyFailure(&req, err)
		return nil, err
	}

	start := c.clock.Now()
	if c.metrics != nil {
		c.metrics.RecordRequestStart(method, endpoint)
		defer c.metrics.RecordRequestEnd(method, endpoint)
	}

	cacheable := c.cache != nil && method == http.MethodGet && !req.DisableCache

	var key string
	if cacheable || c.flights != nil {
		key = c.cacheKeyFunc(method, url, body)
	}

	dedup := c.flights != nil && (method == http.MethodGet || method == http.MethodHead)
	if dedup {
		for {
			flight, owner := c.flights.join(key)
			if owner {
				break
			}
			resp, err := flight.wait(ctx)
			// The owner's cancellation is not ours. With a live context,
			// re-join and take over the execution.
			if err != nil && ctx.Err() == nil && errors.Is(err, context.Canceled) {
				continue
			}
			if c.metrics != nil {
				c.metrics.RecordDeduplicationHit(method, endpoint)
				c.metrics.RecordRequest(method, endpoint, responseStatus(resp), c.clock.Now().Sub(start))
			}
			if c.debugLog(true) {
				c.logger.Debug("Coalesced into in-flight request", "requestID", requestID, "key", key)
			}
			return resp, err
		}
	}

	if cacheable {
		if entry, found := c.cache.Get(key); found {
			resp := responseFromEntry(entry)
			if c.metrics != nil {
				c.metrics.RecordCacheHit(method, endpoint)
				c.metrics.RecordRequest(method, endpoint, resp.StatusCode, c.clock.Now().Sub(start))
			}
			if c.debugLog(c.debug != nil && c.debug.LogCache) {
				c.logger.Debug("Cache hit", "requestID", requestID, "key", key)
			}
			if dedup {
				c.flights.complete(key, resp, nil)
			}
			return resp, nil
		}
		if c.metrics != nil {
			c.metrics.RecordCacheMiss(method, endpoint)
		}
		if c.debugLog(c.debug != nil && c.debug.LogCache) {
			c.logger.Debug("Cache miss", "requestID", requestID, "key", key)
		}
	}

	resp, err := c.runWithRetry(ctx, &req, method, url, endpoint, body, requestID)

	if c.metrics != nil {
		c.metrics.RecordRequest(method, endpoint, responseStatus(resp), c.clock.Now().Sub(start))
	}

	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError(errorKind(err), method, endpoint)
		}
		c.notifyFailure(&req, err)
		if dedup {
			c.flights.complete(key, nil, err)
		}
		return nil, err
	}

	if cacheable {
		ttl := req.CacheTTL
		if ttl <= 0 {
			ttl = c.cacheTTL
		}
		// Store copies so neither this caller nor later cache readers
		// can mutate the entry through a shared slice or map.
		c.cache.Set(key, &CacheEntry{
			Body:       append([]byte(nil), resp.Body...),
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
		}, ttl)
		if c.metrics != nil {
			c.metrics.RecordCacheSize("default", c.cache.Stats().Entries)
		}
		if c.debugLog(c.debug != nil && c.debug.LogCache) {
			c.logger.Debug("Response cached", "requestID", requestID, "key", key, "ttl", ttl)
		}
	}

	if dedup {
		c.flights.complete(key, resp, nil)
	}

	return resp, nil
}

// runWithRetry drives transport attempts until success, a non-retryable
// failure, policy exhaustion, or caller cancellation.
func (c *Client) runWithRetry(ctx context.Context, req *Request, method, url, endpoint string, body []byte, requestID string) (*Response, error) {
	policy, maxAttempts := c.policyFor(req)

	for attempt := 1; ; attempt++ {
		if c.rateLimiter != nil && !c.rateLimiter.Allow() {
			return nil, &RequestError{
				Type:      ErrorTypeRateLimit,
				Message:   "rate limit exceeded",
				Method:    method,
				URL:       url,
				Attempt:   attempt,
				Timestamp: c.clock.Now(),
				Cause:     ErrRateLimited,
			}
		}

		if c.breaker != nil && !c.breaker.Allow() {
			return nil, &RequestError{
				Type:      ErrorTypeCircuitOpen,
				Message:   "circuit breaker is open",
				Method:    method,
				URL:       url,
				Attempt:   attempt,
				Timestamp: c.clock.Now(),
				Cause:     ErrCircuitOpen,
			}
		}

		if attempt > 1 {
			if c.metrics != nil {
				c.metrics.RecordRetry(method, endpoint, attempt)
			}
			if c.debugLog(c.debug != nil && c.debug.LogRetries) {
				c.logger.Info("Retry attempt", "requestID", requestID, "attempt", attempt, "maxAttempts", maxAttempts)
			}
		}

		resp, err := c.doAttempt(ctx, req, method, url, body, attempt, maxAttempts)

		if c.breaker != nil {
			if breakerFailure(err) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}

		if err == nil {
			return resp, nil
		}

		// A cancelled caller never waits for another attempt.
		if ctx.Err() != nil {
			return nil, err
		}

		delay, retry := policy.ShouldRetry(err, attempt)
		if !retry {
			return nil, err
		}

		if c.debugLog(c.debug != nil && c.debug.LogRetries) {
			c.logger.Info("Scheduling retry", "requestID", requestID, "attempt", attempt+1, "delay", delay)
		}

		select {
		case <-c.clock.After(delay):
		case <-ctx.Done():
			return nil, err
		}
	}
}

// policyFor resolves the retry policy for one request. Per-request limit or
// delay overrides always produce a fixed-delay policy, matching the
// per-call configuration surface.
func (c *Client) policyFor(req *Request) (RetryPolicy, int) {
	if req.RetryLimit > 0 || req.RetryDelay > 0 {
		limit := req.RetryLimit
		if limit <= 0 {
			limit = c.maxAttempts
		}
		delay := req.RetryDelay
		if delay <= 0 {
			delay = c.retryDelay
		}
		return NewFixedDelayPolicy(limit, delay), limit
	}
	if c.retryPolicy != nil {
		return c.retryPolicy, c.maxAttempts
	}
	return NewFixedDelayPolicy(c.maxAttempts, c.retryDelay), c.maxAttempts
}

// ClearCache removes cached entries whose key contains any given substring,
// or all entries when called without arguments.
func (c *Client) ClearCache(pattern ...string) int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Clear(pattern...)
}

// CacheStats reports the shared cache occupancy.
func (c *Client) CacheStats() CacheStats {
	if c.cache == nil {
		return CacheStats{}
	}
	return c.cache.Stats()
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func (c *Client) sweepLoop() {
	for {
		select {
		case <-c.clock.After(c.sweepInterval):
			evicted := c.cache.Sweep()
			if c.metrics != nil {
				c.metrics.RecordCacheSize("default", c.cache.Stats().Entries)
			}
			if evicted > 0 && c.debugLog(c.debug != nil && c.debug.LogCache) {
				c.logger.Debug("Cache sweep", "evicted", evicted)
			}
		case <-c.sweepStop:
			return
		}
	}
}

func (c *Client) notifyFailure(req *Request, err error) {
	if c.notifier == nil || req.Silent {
		return
	}
	// Cancellations come from the caller, not the server.
	if errors.Is(err, context.Canceled) {
		return
	}
	var re *RequestError
	if errors.As(err, &re) && re.Type == ErrorTypeAuthExpired {
		return
	}
	msg := err.Error()
	if re != nil && re.Message != "" {
		msg = re.Message
	}
	c.notifier.Notify(Notification{
		Kind:    "error",
		Title:   "Request failed",
		Message: msg,
	})
}

// debugLog reports whether a debug line for the given category should be
// written. Centralizes the nil checks around logger and debug config.
func (c *Client) debugLog(category bool) bool {
	return c.debug != nil && c.debug.Enabled && c.logger != nil && category
}

func (c *Client) resolveURL(endpoint string) string {
	if c.baseURL == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// responseFromEntry builds a cache-hit response. Header and body are copied
// so a caller mutating the response cannot corrupt the stored entry.
func responseFromEntry(entry *CacheEntry) *Response {
	return &Response{
		StatusCode: entry.StatusCode,
		StatusText: http.StatusText(entry.StatusCode) + " (cached)",
		Header:     entry.Header.Clone(),
		Body:       append([]byte(nil), entry.Body...),
		FromCache:  true,
	}
}

func responseStatus(resp *Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func breakerFailure(err error) bool {
	if err == nil {
		return false
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re.Type == ErrorTypeNetwork || re.StatusCode >= 500
	}
	return true
}

// endpointLabel extracts host+path for metrics labels.
func endpointLabel(rawURL string) string {
	u, err := neturl.Parse(rawURL)
	if err != nil || (u.Host == "" && u.Path == "") {
		return "unknown"
	}

	var b strings.Builder
	b.WriteString(u.Host)
	if u.Path != "" && u.Path != "/" {
		b.WriteString(u.Path)
	} else {
		b.WriteByte('/')
	}
	return b.String()
}

package omnifetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseSize bounds how much of a response body is read into memory.
const maxResponseSize = 10 * 1024 * 1024

// doAttempt performs a single network attempt and classifies the outcome.
// It owns the per-attempt timeout; retries happen a level above.
func (c *Client) doAttempt(ctx context.Context, req *Request, method, url string, body []byte, attempt, maxAttempts int) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := c.buildHTTPRequest(attemptCtx, req, method, url, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport(httpReq)
	if err != nil {
		msg := "network request failed"
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			msg = "request timed out"
		}
		return nil, &RequestError{
			Type:       ErrorTypeNetwork,
			Message:    msg,
			Method:     method,
			URL:        url,
			Attempt:    attempt,
			MaxAttempt: maxAttempts,
			Timestamp:  c.clock.Now(),
			Cause:      err,
		}
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, &RequestError{
			Type:       ErrorTypeNetwork,
			Message:    "reading response body failed",
			StatusCode: resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Method:     method,
			URL:        url,
			Attempt:    attempt,
			MaxAttempt: maxAttempts,
			Timestamp:  c.clock.Now(),
			Cause:      readErr,
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.auth != nil {
			c.auth.InvalidateSession()
		}
		return nil, &RequestError{
			Type:       ErrorTypeAuthExpired,
			Message:    "session expired",
			StatusCode: resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       raw,
			Method:     method,
			URL:        url,
			Attempt:    attempt,
			MaxAttempt: maxAttempts,
			Timestamp:  c.clock.Now(),
			Cause:      ErrSessionExpired,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{
			Type:       ErrorTypeHTTP,
			Message:    errorMessageFromBody(raw, resp.StatusCode),
			StatusCode: resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       raw,
			Method:     method,
			URL:        url,
			Attempt:    attempt,
			MaxAttempt: maxAttempts,
			Timestamp:  c.clock.Now(),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Header:     resp.Header,
		Body:       raw,
	}, nil
}

// buildHTTPRequest assembles the outgoing request: JSON content type,
// bearer token when available, then per-request headers.
func (c *Client) buildHTTPRequest(ctx context.Context, req *Request, method, url string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &RequestError{
			Type:      ErrorTypeValidation,
			Message:   "building request failed",
			Method:    method,
			URL:       url,
			Timestamp: c.clock.Now(),
			Cause:     err,
		}
	}

	httpReq.Header.Set("Content-Type", "application/json")

	if c.auth != nil {
		token, err := c.auth.Token(ctx)
		if err != nil {
			return nil, &RequestError{
				Type:      ErrorTypeAuthExpired,
				Message:   "fetching bearer token failed",
				Method:    method,
				URL:       url,
				Timestamp: c.clock.Now(),
				Cause:     err,
			}
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// transport runs the middleware chain ending at the HTTP client.
func (c *Client) transport(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return mw(r, next)
		})
	}
	return current.RoundTrip(req)
}

// errorMessageFromBody extracts a human-readable message from an error
// response. Servers answer with {"error": ...} or {"message": ...}; anything
// unparseable degrades to a generic message instead of a parse failure.
func errorMessageFromBody(body []byte, statusCode int) string {
	if len(body) > 0 {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			if payload.Error != "" {
				return payload.Error
			}
			if payload.Message != "" {
				return payload.Message
			}
		}
	}
	return fmt.Sprintf("request failed with status %d %s", statusCode, http.StatusText(statusCode))
}

// serializeBody canonicalizes the request body. encoding/json sorts map keys,
// so structurally equal bodies always serialize to identical bytes.
func serializeBody(body interface{}, method, url string, now time.Time) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &RequestError{
			Type:      ErrorTypeSerialization,
			Message:   "request body is not JSON-serializable",
			Method:    method,
			URL:       url,
			Timestamp: now,
			Cause:     err,
		}
	}
	return data, nil
}

package omnifetch

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestOptionsApply(t *testing.T) {
	httpClient := &http.Client{}
	cache := NewMemoryCache()
	notifier := NotifierFunc(func(Notification) {})

	client := New(
		WithBaseURL("https://api.example.com"),
		WithHTTPClient(httpClient),
		WithTimeout(5*time.Second),
		WithMaxAttempts(7),
		WithRetryDelay(250*time.Millisecond),
		WithCache(cache),
		WithCacheTTL(time.Minute),
		WithNotifier(notifier),
		WithDeduplication(),
	)
	defer client.Close()

	if client.baseURL != "https://api.example.com" {
		t.Errorf("baseURL = %q", client.baseURL)
	}
	if client.httpClient != httpClient {
		t.Error("httpClient not applied")
	}
	if client.timeout != 5*time.Second {
		t.Errorf("timeout = %v", client.timeout)
	}
	if client.httpClient.Timeout != 0 {
		t.Errorf("httpClient.Timeout = %v, want 0: attempts are bounded by their context", client.httpClient.Timeout)
	}
	if client.maxAttempts != 7 {
		t.Errorf("maxAttempts = %d", client.maxAttempts)
	}
	if client.retryDelay != 250*time.Millisecond {
		t.Errorf("retryDelay = %v", client.retryDelay)
	}
	if client.cache != cache {
		t.Error("cache not applied")
	}
	if client.cacheTTL != time.Minute {
		t.Errorf("cacheTTL = %v", client.cacheTTL)
	}
	if client.notifier == nil {
		t.Error("notifier not applied")
	}
	if client.flights == nil {
		t.Error("deduplication not enabled")
	}
}

func TestWithoutCache(t *testing.T) {
	client := New(WithoutCache())
	defer client.Close()

	if client.cache != nil {
		t.Error("WithoutCache should clear the cache")
	}
	if stats := client.CacheStats(); stats.Entries != 0 {
		t.Error("CacheStats on a cacheless client should be empty")
	}
	if removed := client.ClearCache(); removed != 0 {
		t.Error("ClearCache on a cacheless client should remove nothing")
	}
}

func TestWithBackoffRetry(t *testing.T) {
	client := New(WithBackoffRetry(5, 100*time.Millisecond, 10*time.Second, 2.0, 0.1))
	defer client.Close()

	if client.maxAttempts != 5 {
		t.Errorf("maxAttempts = %d, want 5", client.maxAttempts)
	}
	if _, ok := client.retryPolicy.(*BackoffPolicy); !ok {
		t.Errorf("retryPolicy = %T, want *BackoffPolicy", client.retryPolicy)
	}
}

func TestWithDebugEnables(t *testing.T) {
	client := New(WithDebug())
	defer client.Close()

	if client.debug == nil || !client.debug.Enabled {
		t.Error("WithDebug should enable debug logging")
	}
}

func TestValidateConfigurationValid(t *testing.T) {
	client := New()
	defer client.Close()

	if err := client.ValidateConfiguration(); err != nil {
		t.Errorf("Default configuration should be valid, got %v", err)
	}
}

func TestValidateConfigurationInvalid(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
		problem string
	}{
		{"zero attempts", []Option{WithMaxAttempts(0)}, "maxAttempts"},
		{"negative delay", []Option{WithRetryDelay(-time.Second)}, "retryDelay"},
		{"zero timeout", []Option{WithTimeout(0)}, "timeout"},
		{"zero cache ttl", []Option{WithCacheTTL(0)}, "cacheTTL"},
		{"nil http client", []Option{WithHTTPClient(nil)}, "HTTP client"},
		{"nil middleware", []Option{WithMiddleware(nil)}, "middleware"},
		{"excessive attempts", []Option{WithMaxAttempts(500)}, "maxAttempts"},
		{"excessive delay", []Option{WithRetryDelay(time.Hour)}, "retryDelay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(tt.options...)
			defer client.Close()

			if client.IsValid() {
				t.Fatalf("Configuration should be invalid: %s", tt.name)
			}

			err := client.ValidationError()
			var re *RequestError
			if !errors.As(err, &re) || re.Type != ErrorTypeValidation {
				t.Errorf("ValidationError() = %v, want a Validation request error", err)
			}
		})
	}
}

func TestValidationDoesNotBlockRequests(t *testing.T) {
	// Validation is advisory; an invalid client still executes.
	client := New(WithMaxAttempts(500), WithRetryDelay(time.Millisecond))
	defer client.Close()

	if client.IsValid() {
		t.Fatal("Expected invalid configuration")
	}
	if client.maxAttempts != 500 {
		t.Error("Configured value should be kept as-is")
	}
}

package omnifetch

import (
	"strings"
	"testing"
)

func TestDefaultDebugConfig(t *testing.T) {
	cfg := DefaultDebugConfig()

	if cfg.Enabled {
		t.Error("Debug should be off by default")
	}
	if !cfg.LogRequests || !cfg.LogRetries || !cfg.LogCache {
		t.Error("All event categories should be on by default")
	}

	first := cfg.RequestIDGen()
	second := cfg.RequestIDGen()
	if !strings.HasPrefix(first, "req_") {
		t.Errorf("Request ID = %q, want req_ prefix", first)
	}
	if first == second {
		t.Error("Request IDs must be unique")
	}
}

func TestRequestIDCountersIndependent(t *testing.T) {
	a := DefaultDebugConfig()
	b := DefaultDebugConfig()

	a.RequestIDGen()
	a.RequestIDGen()

	// No shared package-level counter: each config numbers from 1.
	if got := b.RequestIDGen(); got != "req_1" {
		t.Errorf("Fresh config first ID = %q, want req_1", got)
	}
}

func TestNewSimpleLogger(t *testing.T) {
	logger := NewSimpleLogger()
	if logger == nil {
		t.Fatal("NewSimpleLogger() returned nil")
	}

	// Uneven key-value pairs must not panic.
	logger.Debug("message", "key")
	logger.Info("message", "key", "value")
	logger.Warn("message")
	logger.Error("message", "a", 1, "b", 2)
}

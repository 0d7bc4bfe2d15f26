package internal

import (
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Auth.AuthEnabled() {
		t.Error("default auth should be disabled")
	}
	if got := cfg.App.HTTP.Address(); got != ":8080" {
		t.Errorf("Address() = %q", got)
	}
}

func TestHTTPPortBounds(t *testing.T) {
	cfg := NewDefaultConfig()

	for _, port := range []int{0, -1, 70000} {
		cfg.App.HTTP.Port = port
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d: expected validation error", port)
		}
	}

	cfg.App.HTTP.Port = 65535
	if err := cfg.Validate(); err != nil {
		t.Errorf("port 65535: %v", err)
	}
}

func TestRequiredPaths(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Collection.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty collection path: expected validation error")
	}

	cfg = NewDefaultConfig()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty sqlite path: expected validation error")
	}
}

func TestSyncConcurrencyBounds(t *testing.T) {
	cfg := NewDefaultConfig()

	cfg.Sync.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Error("concurrency 0: expected validation error")
	}
	cfg.Sync.Concurrency = 257
	if err := cfg.Validate(); err == nil {
		t.Error("concurrency 257: expected validation error")
	}
	cfg.Sync.Concurrency = 256
	if err := cfg.Validate(); err != nil {
		t.Errorf("concurrency 256: %v", err)
	}
}

func TestAuthValidation(t *testing.T) {
	cfg := NewDefaultConfig()

	// Empty mode normalises to disabled.
	cfg.Auth.Mode = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode: %v", err)
	}
	if cfg.Auth.Mode != AuthModeDisabled {
		t.Errorf("mode after validate = %q", cfg.Auth.Mode)
	}

	cfg.Auth.Mode = "basic"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown mode: expected validation error")
	}

	cfg.Auth.Mode = AuthModeToken
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode without token: expected error")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("error = %v", err)
	}

	cfg.Auth.Token = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("token mode with token: %v", err)
	}
	if !cfg.Auth.AuthEnabled() {
		t.Error("AuthEnabled() = false in token mode")
	}
}

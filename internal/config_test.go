package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/waypoint/internal/api"
	pkgconfig "github.com/starford/waypoint/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != api.AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, api.AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Tokens: map[string]string{"s3cret": "alice"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with tokens should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
	if got := cfg.API(); got.Mode != api.AuthModeToken || got.Tokens["s3cret"] != "alice" {
		t.Errorf("API() = %+v", got)
	}
}

func TestAuthConfig_TokenModeEmptyTokens(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode without tokens should fail")
	}
	if !strings.Contains(err.Error(), "tokens are empty") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg = AuthConfig{Mode: "token", Tokens: map[string]string{"s3cret": ""}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("token without principal should fail")
	}
}

func TestAuthConfig_JWTModeNeedsSecret(t *testing.T) {
	cfg := AuthConfig{Mode: "jwt"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("expected jwt_secret error, got %v", err)
	}
	cfg.JWTSecret = "k"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("jwt mode with secret should pass: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestStorageConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     StorageConfig
		wantErr bool
	}{
		{"memory without path", StorageConfig{Driver: "memory"}, false},
		{"sqlite with path", StorageConfig{Driver: "sqlite", Path: "x.db"}, false},
		{"fs without path", StorageConfig{Driver: "fs"}, true},
		{"unknown driver", StorageConfig{Driver: "redis", Path: "x"}, true},
		{"negative limit", StorageConfig{Driver: "memory", MaxValueSize: -1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadYAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("WAYPOINT_TEST_SECRET", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: 9090
storage:
  driver: memory
auth:
  mode: jwt
  jwt_secret: ${WAYPOINT_TEST_SECRET}
mcp:
  principal: agent
events:
  throttle: 500ms
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("jwt_secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Storage.Driver != "memory" || cfg.Storage.MaxKeySize != 64 {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.MCP.Principal != "agent" {
		t.Errorf("mcp principal = %q", cfg.MCP.Principal)
	}
	if cfg.Events.Throttle != 500*time.Millisecond || cfg.Events.Keepalive != 30*time.Second {
		t.Errorf("events = %+v", cfg.Events)
	}
}

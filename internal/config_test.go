package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/folio/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestStorageConfig_EmptyBackendDefaultsFS(t *testing.T) {
	cfg := StorageConfig{Path: "./data"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty backend should default to fs: %v", err)
	}
	if cfg.Backend != BackendFS || cfg.Key == "" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestStorageConfig_UnknownBackend(t *testing.T) {
	cfg := StorageConfig{Backend: "tape"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend should fail validation")
	}
}

func TestStorageConfig_RequiredPaths(t *testing.T) {
	if err := (&StorageConfig{Backend: BackendFS}).Validate(); err == nil {
		t.Error("fs backend without path should fail")
	}
	if err := (&StorageConfig{Backend: BackendSQLite}).Validate(); err == nil {
		t.Error("sqlite backend without sqlite_path should fail")
	}
	if err := (&StorageConfig{Backend: BackendMemory}).Validate(); err != nil {
		t.Errorf("memory backend needs no path: %v", err)
	}
}

func TestFullConfig_RedisAddrRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Backend = BackendRedis
	cfg.Redis.Addr = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("redis backend without addr should fail")
	}

	// Redis settings are ignored for other backends.
	cfg.Storage.Backend = BackendMemory
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory backend should ignore redis: %v", err)
	}
}

func TestIndexConfig_PathRequiredWhenEnabled(t *testing.T) {
	cfg := IndexConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Error("enabled index without path should fail")
	}
	cfg.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled index needs no path: %v", err)
	}
}

func TestConfig_LoadYAML(t *testing.T) {
	t.Setenv("FOLIO_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `app:
  http:
    port: 9000
storage:
  backend: memory
index:
  enabled: false
  throttle: 500ms
auth:
  mode: token
  token: ${FOLIO_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9000 || cfg.Storage.Backend != BackendMemory {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Index.Throttle != 500*time.Millisecond {
		t.Errorf("throttle = %v", cfg.Index.Throttle)
	}
	if !cfg.Auth.AuthEnabled() || cfg.Auth.Token != "s3cret" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	// Untouched keys keep their defaults.
	if cfg.Storage.Key != "folio-projects-v2" {
		t.Errorf("key = %q", cfg.Storage.Key)
	}
}

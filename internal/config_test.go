package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/ledgernotes/pkg/config"
)

// validConfig returns a default config with the required ledger fields set.
func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Ledger.NodeURL = "https://node.example/v1"
	cfg.Ledger.ResourceType = "0xcafe::notes::NoteStore"
	cfg.Ledger.ViewFunction = "0xcafe::notes::store_address"
	return cfg
}

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
	cfg := validConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestFullConfig_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestDefaultConfig_RequiresLedger(t *testing.T) {
	err := NewDefaultConfig().Validate()
	if err == nil {
		t.Fatal("default config has no ledger node and should fail")
	}
	if !strings.HasPrefix(err.Error(), "ledger:") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLedgerConfig_RejectsNonHTTPURL(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger.NodeURL = "node.example"
	if err := cfg.Validate(); err == nil {
		t.Fatal("node_url without scheme should fail")
	}
}

func TestLedgerConfig_MaxDepthBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger.MaxDepth = 500
	if err := cfg.Validate(); err == nil {
		t.Fatal("max_depth above 128 should fail")
	}
}

func TestIndexerConfig_Modes(t *testing.T) {
	tests := []struct {
		name    string
		cfg     IndexerConfig
		wantErr bool
	}{
		{"empty defaults to disabled", IndexerConfig{}, false},
		{"graphql with url", IndexerConfig{Mode: IndexerModeGraphQL, URL: "http://hasura:8080/v1/graphql"}, false},
		{"graphql without url", IndexerConfig{Mode: IndexerModeGraphQL}, true},
		{"postgres with dsn", IndexerConfig{Mode: IndexerModePostgres, DatabaseURL: "postgres://u@db/idx"}, false},
		{"postgres without dsn", IndexerConfig{Mode: IndexerModePostgres}, true},
		{"unknown mode", IndexerConfig{Mode: "mongo"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIndexerConfig_Schema(t *testing.T) {
	c := IndexerConfig{Table: "stores"}
	s := c.Schema()
	if s.Table != "stores" || s.UserField != "user_id" || s.AddressField != "store_address" {
		t.Errorf("schema = %+v", s)
	}
}

func TestRefreshConfig(t *testing.T) {
	c := RefreshConfig{}
	if c.Enabled() {
		t.Error("refresher without watchlist should be disabled")
	}
	c = RefreshConfig{WatchlistPath: "users.yaml", Interval: 10 * time.Millisecond}
	if err := c.Validate(); err == nil {
		t.Error("sub-second interval should fail")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("LEDGERNOTES_TEST_NODE", "https://fullnode.example/v1")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `app:
  log_level: debug
  http:
    port: 9090
ledger:
  node_url: ${LEDGERNOTES_TEST_NODE}
  resource_type: "0xcafe::notes::NoteStore"
  view_function: "0xcafe::notes::store_address"
  timeout: 3s
indexer:
  mode: graphql
  url: http://hasura:8080/v1/graphql
refresh:
  watchlist_path: ./watchlist.yaml
  interval: 30s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.NodeURL != "https://fullnode.example/v1" {
		t.Errorf("node_url = %q, env not expanded", cfg.Ledger.NodeURL)
	}
	if cfg.Ledger.Timeout != 3*time.Second || cfg.Refresh.Interval != 30*time.Second {
		t.Errorf("durations = %v, %v", cfg.Ledger.Timeout, cfg.Refresh.Interval)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("app = %+v", cfg.App)
	}
	// Unset keys keep their defaults.
	if cfg.Ledger.MapField != "entries" || cfg.Resolver.CacheSize != 1024 {
		t.Errorf("defaults lost: map_field=%q cache_size=%d", cfg.Ledger.MapField, cfg.Resolver.CacheSize)
	}
}

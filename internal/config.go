package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ledgernotes/internal/indexer"
	"github.com/starford/ledgernotes/internal/ledgermap"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Indexer modes.
const (
	IndexerModeDisabled = "disabled"
	IndexerModeGraphQL  = "graphql"
	IndexerModePostgres = "postgres"
)

var httpURLRe = regexp.MustCompile(`^https?://`)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Ledger   LedgerConfig      `yaml:"ledger"`
	Indexer  IndexerConfig     `yaml:"indexer"`
	Resolver ResolverConfig    `yaml:"resolver"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Refresh  RefreshConfig     `yaml:"refresh"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Ledger.Validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := c.Indexer.Validate(); err != nil {
		return fmt.Errorf("indexer: %w", err)
	}
	if err := c.Resolver.Validate(); err != nil {
		return fmt.Errorf("resolver: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Refresh.Validate(); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LedgerConfig locates the ledger node and the per-user note store on it.
type LedgerConfig struct {
	NodeURL      string        `yaml:"node_url"`
	APIKey       string        `yaml:"api_key"`
	ResourceType string        `yaml:"resource_type"`
	MapField     string        `yaml:"map_field"`
	ViewFunction string        `yaml:"view_function"`
	MaxDepth     int           `yaml:"max_depth"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Validate validates the ledger configuration.
func (c *LedgerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.NodeURL, validation.Required, validation.Match(httpURLRe)),
		validation.Field(&c.ResourceType, validation.Required),
		validation.Field(&c.MapField, validation.Required),
		validation.Field(&c.ViewFunction, validation.Required),
		validation.Field(&c.MaxDepth, validation.Min(1), validation.Max(128)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// IndexerConfig selects and configures the indexed address lookup.
//
// Mode is one of:
//   - "disabled" (default): every resolution goes to the ledger view function.
//   - "graphql": query URL, a Hasura-style GraphQL endpoint.
//   - "postgres": query DatabaseURL directly.
type IndexerConfig struct {
	Mode         string        `yaml:"mode"`
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	DatabaseURL  string        `yaml:"database_url"`
	Table        string        `yaml:"table"`
	UserField    string        `yaml:"user_field"`
	AddressField string        `yaml:"address_field"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Validate validates the indexer configuration.
func (c *IndexerConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = IndexerModeDisabled
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required,
			validation.In(IndexerModeDisabled, IndexerModeGraphQL, IndexerModePostgres)),
		validation.Field(&c.URL,
			validation.When(c.Mode == IndexerModeGraphQL, validation.Required, validation.Match(httpURLRe))),
		validation.Field(&c.DatabaseURL,
			validation.When(c.Mode == IndexerModePostgres, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Schema returns the indexer table layout, filling unset names from
// indexer.DefaultSchema.
func (c *IndexerConfig) Schema() indexer.Schema {
	s := indexer.DefaultSchema
	if c.Table != "" {
		s.Table = c.Table
	}
	if c.UserField != "" {
		s.UserField = c.UserField
	}
	if c.AddressField != "" {
		s.AddressField = c.AddressField
	}
	return s
}

// ResolverConfig configures address resolution.
type ResolverConfig struct {
	// CacheSize is the number of resolved addresses kept in memory; zero
	// disables the cache.
	CacheSize int `yaml:"cache_size"`
}

// Validate validates the resolver configuration.
func (c *ResolverConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CacheSize, validation.Min(0)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RefreshConfig configures the background refresher. An empty
// WatchlistPath disables it.
type RefreshConfig struct {
	WatchlistPath string        `yaml:"watchlist_path"`
	Interval      time.Duration `yaml:"interval"`
	Concurrency   int           `yaml:"concurrency"`
}

// Enabled reports whether the refresher should run.
func (c *RefreshConfig) Enabled() bool {
	return c.WatchlistPath != ""
}

// Validate validates the refresh configuration.
func (c *RefreshConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.When(c.Enabled(), validation.Min(time.Second))),
		validation.Field(&c.Concurrency, validation.Min(0), validation.Max(64)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
// The ledger node and store location have no defaults.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Ledger: LedgerConfig{
			MapField: "entries",
			MaxDepth: ledgermap.DefaultMaxDepth,
			Timeout:  10 * time.Second,
		},
		Indexer: IndexerConfig{
			Mode:    IndexerModeDisabled,
			Timeout: 5 * time.Second,
		},
		Resolver: ResolverConfig{
			CacheSize: 1024,
		},
		SQLite: SQLiteConfig{
			Path: "./ledgernotes.db",
		},
		Refresh: RefreshConfig{
			Interval:    time.Minute,
			Concurrency: 4,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

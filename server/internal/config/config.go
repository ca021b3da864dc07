package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/siriusexpedition/sirius/server/internal/newsletter"
	"github.com/siriusexpedition/sirius/server/internal/password"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort     = 8080
	DefaultRecordKey    = "visitors/stats"
	DefaultSQLitePath   = "sirius.db"
	DefaultMongoURIEnv  = "SIRIUS_MONGO_URI"
	DefaultJWTSecretEnv = "SIRIUS_JWT_SECRET"
	DefaultTokenTTL     = 12 * time.Hour
	DefaultHubInterval  = 5 * time.Second
)

// Config holds the configuration parsed from the `server:` section of
// config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port" env:"SIRIUS_HTTP_PORT"`

	// UIDir optionally serves a pre-built site from disk for non-API paths.
	UIDir string `yaml:"ui_dir" env:"SIRIUS_UI_DIR"`

	// Timezone is the IANA zone whose calendar day bounds "today" visits.
	// Empty means the server's local zone.
	Timezone string `yaml:"timezone" env:"SIRIUS_TIMEZONE"`

	Storage    StorageConfig     `yaml:"storage"`
	Password   password.Rules    `yaml:"password"`
	Newsletter newsletter.Config `yaml:"newsletter"`
	Auth       AuthConfig        `yaml:"auth"`
	Hub        HubConfig         `yaml:"hub"`
}

// StorageConfig selects where visitor stats and admin accounts live.
type StorageConfig struct {
	// Backend is one of: memory | sqlite | mongo.
	Backend string `yaml:"backend" env:"SIRIUS_STORAGE_BACKEND"`

	// RecordKey is the document holding the shared visitor counters.
	RecordKey string `yaml:"record_key" env:"SIRIUS_RECORD_KEY"`

	// SQLitePath is used by the sqlite backend, and by the mongo backend for
	// admin accounts.
	SQLitePath string `yaml:"sqlite_path" env:"SIRIUS_SQLITE_PATH"`

	Mongo MongoConfig `yaml:"mongo"`
}

// MongoConfig locates the mongo collection. The URI usually carries
// credentials, so only the name of its environment variable is configured.
type MongoConfig struct {
	URIEnv     string        `yaml:"uri_env"`
	Database   string        `yaml:"database" env:"SIRIUS_MONGO_DATABASE"`
	Collection string        `yaml:"collection" env:"SIRIUS_MONGO_COLLECTION"`
	Timeout    time.Duration `yaml:"timeout"`
}

// URI returns the connection string resolved from the environment.
func (m MongoConfig) URI() string {
	if m.URIEnv == "" {
		return ""
	}
	return os.Getenv(m.URIEnv)
}

// AuthConfig controls admin sessions and the metrics endpoint key.
type AuthConfig struct {
	// JWTSecretEnv names the environment variable holding the token signing secret.
	JWTSecretEnv string `yaml:"jwt_secret_env"`

	// TokenTTL is the lifetime of admin tokens (default 12h).
	TokenTTL time.Duration `yaml:"token_ttl" env:"SIRIUS_TOKEN_TTL"`

	Metrics APIKeyConfig `yaml:"metrics"`
}

// JWTSecret returns the signing secret resolved from the environment.
func (a AuthConfig) JWTSecret() string {
	if a.JWTSecretEnv == "" {
		return ""
	}
	return os.Getenv(a.JWTSecretEnv)
}

// APIKeyConfig guards a machine endpoint with a static key.
type APIKeyConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode" env:"SIRIUS_METRICS_AUTH_MODE"`

	// KeyEnv is the name of the environment variable that holds the expected key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from (default "X-API-Key").
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a APIKeyConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or "X-API-Key".
func (a APIKeyConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "X-API-Key"
}

// HubConfig controls the live dashboard stream.
type HubConfig struct {
	Interval time.Duration `yaml:"interval" env:"SIRIUS_HUB_INTERVAL"`
}

// Location resolves Timezone. An empty Timezone yields time.Local.
func (s ServerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// Load reads the config file at path, applies SIRIUS_* environment
// overrides and validates the result. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}
	return finish(cfg)
}

// FromEnv builds a configuration from defaults and environment overrides
// only, for running without a config file.
func FromEnv() (*Config, error) {
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("server config: parse env: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Storage: StorageConfig{
				Backend:    BackendMemory,
				RecordKey:  DefaultRecordKey,
				SQLitePath: DefaultSQLitePath,
				Mongo: MongoConfig{
					URIEnv:     DefaultMongoURIEnv,
					Database:   "sirius",
					Collection: "documents",
					Timeout:    10 * time.Second,
				},
			},
			Password: password.DefaultRules(),
			Newsletter: newsletter.Config{
				Endpoint:  newsletter.DefaultEndpoint,
				APIKeyEnv: "SIRIUS_BREVO_API_KEY",
				Timeout:   10 * time.Second,
			},
			Auth: AuthConfig{
				JWTSecretEnv: DefaultJWTSecretEnv,
				TokenTTL:     DefaultTokenTTL,
				Metrics:      APIKeyConfig{Mode: "none"},
			},
			Hub: HubConfig{Interval: DefaultHubInterval},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("server.timezone %q: %w", s.Timezone, err)
	}

	switch s.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if s.Storage.SQLitePath == "" {
			return fmt.Errorf("server.storage.sqlite_path is required for the sqlite backend")
		}
	case BackendMongo:
		if s.Storage.Mongo.URIEnv == "" {
			return fmt.Errorf("server.storage.mongo.uri_env is required for the mongo backend")
		}
		if s.Storage.Mongo.Database == "" || s.Storage.Mongo.Collection == "" {
			return fmt.Errorf("server.storage.mongo.database and collection are required")
		}
	default:
		return fmt.Errorf("server.storage.backend %q unknown: want memory|sqlite|mongo", s.Storage.Backend)
	}
	if s.Storage.RecordKey == "" {
		return fmt.Errorf("server.storage.record_key must not be empty")
	}

	if s.Password.MinLength < 0 {
		return fmt.Errorf("server.password.min_length must not be negative")
	}

	switch s.Auth.Metrics.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.metrics.mode %q unknown: want apikey|none", s.Auth.Metrics.Mode)
	}
	if s.Auth.TokenTTL < 0 {
		return fmt.Errorf("server.auth.token_ttl must not be negative")
	}
	if s.Hub.Interval < 0 {
		return fmt.Errorf("server.hub.interval must not be negative")
	}
	if s.Newsletter.Timeout < 0 {
		return fmt.Errorf("server.newsletter.timeout must not be negative")
	}
	return nil
}

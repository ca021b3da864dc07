package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// server section absent; everything falls back to defaults.
	p := writeConfig(t, `other:
  key: value
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", s.HTTPPort, DefaultHTTPPort)
	}
	if s.Storage.Backend != BackendMemory {
		t.Errorf("storage.backend: got %q, want memory", s.Storage.Backend)
	}
	if s.Storage.RecordKey != DefaultRecordKey {
		t.Errorf("storage.record_key: got %q, want %q", s.Storage.RecordKey, DefaultRecordKey)
	}
	if s.Password.MinLength != 8 || !s.Password.RequireSpecialChar {
		t.Errorf("password: got %+v, want default rules", s.Password)
	}
	if s.Auth.TokenTTL != DefaultTokenTTL {
		t.Errorf("auth.token_ttl: got %v, want %v", s.Auth.TokenTTL, DefaultTokenTTL)
	}
	if s.Hub.Interval != DefaultHubInterval {
		t.Errorf("hub.interval: got %v, want %v", s.Hub.Interval, DefaultHubInterval)
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  ui_dir: ./site
  timezone: Europe/Paris
  storage:
    backend: sqlite
    sqlite_path: /var/lib/sirius/sirius.db
    record_key: stats/visitors
  password:
    min_length: 12
    require_special_char: false
  newsletter:
    list_ids: [3, 9]
    template_id: 12
    redirection_url: https://sirius.example/merci
  auth:
    token_ttl: 2h
    metrics:
      mode: apikey
      key_env: MY_KEY
      header: X-Sirius-Key
  hub:
    interval: 10s
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", s.HTTPPort)
	}
	if s.Storage.Backend != BackendSQLite || s.Storage.SQLitePath != "/var/lib/sirius/sirius.db" {
		t.Errorf("storage: got %+v", s.Storage)
	}
	if s.Storage.RecordKey != "stats/visitors" {
		t.Errorf("record_key: got %q", s.Storage.RecordKey)
	}
	if s.Password.MinLength != 12 || s.Password.RequireSpecialChar || !s.Password.RequireUppercase {
		t.Errorf("password: got %+v, want 12 chars, no special, uppercase kept", s.Password)
	}
	if len(s.Newsletter.ListIDs) != 2 || s.Newsletter.TemplateID != 12 {
		t.Errorf("newsletter: got %+v", s.Newsletter)
	}
	if s.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("token_ttl: got %v, want 2h", s.Auth.TokenTTL)
	}
	if s.Auth.Metrics.EffectiveHeader() != "X-Sirius-Key" {
		t.Errorf("header: got %q, want X-Sirius-Key", s.Auth.Metrics.EffectiveHeader())
	}
	if s.Hub.Interval != 10*time.Second {
		t.Errorf("hub.interval: got %v, want 10s", s.Hub.Interval)
	}
	loc, err := s.Location()
	if err != nil || loc.String() != "Europe/Paris" {
		t.Errorf("Location: got %v, %v", loc, err)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    metrics:
      mode: apikey
      key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.Metrics.EffectiveHeader(); h != "X-API-Key" {
		t.Errorf("EffectiveHeader: got %q, want X-API-Key", h)
	}
}

func TestLoad_SecretEnvResolution(t *testing.T) {
	t.Setenv("TEST_METRICS_KEY", "supersecret")
	t.Setenv("TEST_JWT_SECRET", "signing-secret")
	t.Setenv("TEST_MONGO_URI", "mongodb://db:27017")
	p := writeConfig(t, `server:
  storage:
    mongo:
      uri_env: TEST_MONGO_URI
  auth:
    jwt_secret_env: TEST_JWT_SECRET
    metrics:
      mode: apikey
      key_env: TEST_METRICS_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Metrics.Key(); k != "supersecret" {
		t.Errorf("Metrics.Key(): got %q, want supersecret", k)
	}
	if k := cfg.Server.Auth.JWTSecret(); k != "signing-secret" {
		t.Errorf("JWTSecret(): got %q, want signing-secret", k)
	}
	if u := cfg.Server.Storage.Mongo.URI(); u != "mongodb://db:27017" {
		t.Errorf("Mongo.URI(): got %q", u)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SIRIUS_HTTP_PORT", "9999")
	t.Setenv("SIRIUS_STORAGE_BACKEND", "mongo")
	t.Setenv("SIRIUS_HUB_INTERVAL", "1s")
	p := writeConfig(t, `server:
  http_port: 8081
  storage:
    backend: sqlite
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9999 {
		t.Errorf("http_port: got %d, want 9999", cfg.Server.HTTPPort)
	}
	if cfg.Server.Storage.Backend != BackendMongo {
		t.Errorf("backend: got %q, want mongo", cfg.Server.Storage.Backend)
	}
	if cfg.Server.Hub.Interval != time.Second {
		t.Errorf("hub.interval: got %v, want 1s", cfg.Server.Hub.Interval)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SIRIUS_TIMEZONE", "UTC")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Server.Timezone != "UTC" {
		t.Errorf("timezone: got %q, want UTC", cfg.Server.Timezone)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown metrics mode", "server:\n  auth:\n    metrics:\n      mode: oauth2\n"},
		{"unknown backend", "server:\n  storage:\n    backend: redis\n"},
		{"port out of range", "server:\n  http_port: 70000\n"},
		{"bad timezone", "server:\n  timezone: Mars/Olympus\n"},
		{"negative min length", "server:\n  password:\n    min_length: -1\n"},
		{"empty record key", "server:\n  storage:\n    record_key: \"\"\n"},
		{"sqlite without path", "server:\n  storage:\n    backend: sqlite\n    sqlite_path: \"\"\n"},
		{"mongo without database", "server:\n  storage:\n    backend: mongo\n    mongo:\n      database: \"\"\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "server:\n  http_port: 8081\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, p, func(c *Config) { got <- c }) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	// An invalid file is skipped; the next valid write is delivered.
	if err := os.WriteFile(p, []byte("server:\n  http_port: 0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(p, []byte("server:\n  http_port: 8082\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Server.HTTPPort == 8082 {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch returned %v", err)
				}
				return
			}
			if c.Server.HTTPPort == 0 {
				t.Fatal("invalid config delivered to callback")
			}
		case <-deadline:
			t.Fatal("no reload delivered")
		}
	}
}

func TestWatch_ReloadsAfterAtomicSave(t *testing.T) {
	p := writeConfig(t, "server:\n  password:\n    min_length: 8\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 8)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, p, func(c *Config) { got <- c }) }()

	time.Sleep(100 * time.Millisecond)

	// Replace the file the way editors do: write a sibling, rename over.
	tmp := filepath.Join(filepath.Dir(p), ".config.yaml.swp")
	if err := os.WriteFile(tmp, []byte("server:\n  password:\n    min_length: 12\n"), 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		t.Fatalf("rename: %v", err)
	}
	waitForMinLength(t, got, 12)

	// The watch must survive the replaced inode.
	if err := os.WriteFile(p, []byte("server:\n  password:\n    min_length: 16\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitForMinLength(t, got, 16)

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	p := writeConfig(t, "server:\n  http_port: 8081\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go func() { _ = Watch(ctx, p, func(c *Config) { got <- c }) }()

	time.Sleep(100 * time.Millisecond)

	other := filepath.Join(filepath.Dir(p), "other.yaml")
	if err := os.WriteFile(other, []byte("server:\n  http_port: 9000\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case c := <-got:
		t.Fatalf("unexpected reload from sibling file: port %d", c.Server.HTTPPort)
	case <-time.After(300 * time.Millisecond):
	}
}

func waitForMinLength(t *testing.T, got <-chan *Config, want int) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Server.Password.MinLength == want {
				return
			}
		case <-deadline:
			t.Fatalf("no reload with min_length %d delivered", want)
		}
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), "/nonexistent/path/config.yaml", func(*Config) {})
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

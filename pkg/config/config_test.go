package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Listen != ":8765" {
		t.Errorf("listen = %q", cfg.HTTP.Listen)
	}
	if cfg.Map.DefaultLat != 51.531 || cfg.Map.DefaultLng != 16.892 || cfg.Map.DefaultZoom != 15 || cfg.Map.FocusZoom != 16 {
		t.Errorf("map = %+v", cfg.Map)
	}
	if cfg.Catalog.Source != "builtin" {
		t.Errorf("catalog source = %q", cfg.Catalog.Source)
	}
	if cfg.Session.TTL != 30*time.Minute || cfg.Session.SweepInterval != time.Minute {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.NATS.Subject != "forestry.dashboard.events" || cfg.NATS.URL != "" {
		t.Errorf("nats = %+v", cfg.NATS)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "fmm.yaml")
	body := `
http:
  listen: ":9000"
catalog:
  source: database
db:
  type: pgx
  host: db.internal
session:
  ttl: 5m
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FMM_HTTP_LISTEN", ":9100")
	t.Setenv("FMM_MAP_FOCUS_ZOOM", "18")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Listen != ":9100" {
		t.Errorf("env should win over file: listen = %q", cfg.HTTP.Listen)
	}
	if cfg.Map.FocusZoom != 18 {
		t.Errorf("focus zoom = %d", cfg.Map.FocusZoom)
	}
	if cfg.Session.TTL != 5*time.Minute {
		t.Errorf("ttl = %v", cfg.Session.TTL)
	}
	db := cfg.CatalogConfig().Database
	if db.DBType != "pgx" || db.DBHost != "db.internal" || db.DBPort != 5432 || db.PGSSLMode != "prefer" {
		t.Errorf("database = %+v", db)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", "")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FMM_NATS_URL=nats://127.0.0.1:4222\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FMM_NATS_URL") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("nats url = %q", cfg.NATS.URL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Map:     Map{DefaultLat: 51.5, DefaultLng: 16.9, DefaultZoom: 15, FocusZoom: 16},
			Catalog: Catalog{Source: "builtin"},
			Session: Session{TTL: time.Minute},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"lat out of range", func(c *Config) { c.Map.DefaultLat = 91 }, false},
		{"zero zoom", func(c *Config) { c.Map.FocusZoom = 0 }, false},
		{"file without path", func(c *Config) { c.Catalog.Source = "file" }, false},
		{"zero ttl", func(c *Config) { c.Session.TTL = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			if err := c.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, ok %v", err, tt.ok)
			}
		})
	}
}

// Package config reads settings from an optional config file, a .env file and
// FMM_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"forest-machine-map/pkg/catalog"
	"forest-machine-map/pkg/database"
)

// EnvPrefix prefixes every environment override, e.g. FMM_HTTP_LISTEN.
const EnvPrefix = "FMM"

type Config struct {
	HTTP    HTTP    `mapstructure:"http"`
	Map     Map     `mapstructure:"map"`
	Catalog Catalog `mapstructure:"catalog"`
	DB      DB      `mapstructure:"db"`
	Session Session `mapstructure:"session"`
	NATS    NATS    `mapstructure:"nats"`
	Log     Log     `mapstructure:"log"`
}

type HTTP struct {
	Listen string `mapstructure:"listen"`
	// Domain enables HTTPS through Let's Encrypt on :443 with a redirect on :80.
	Domain string `mapstructure:"domain"`
	// PublicURL is the base used in QR codes. Empty means the request host.
	PublicURL string `mapstructure:"public_url"`
}

// Map holds the initial view sent to the browser.
type Map struct {
	DefaultLat  float64 `mapstructure:"default_lat"`
	DefaultLng  float64 `mapstructure:"default_lng"`
	DefaultZoom int     `mapstructure:"default_zoom"`
	FocusZoom   int     `mapstructure:"focus_zoom"`
	TileURL     string  `mapstructure:"tile_url"`
}

type Catalog struct {
	Source   string `mapstructure:"source"`
	File     string `mapstructure:"file"`
	SeedDemo bool   `mapstructure:"seed_demo"`
}

type DB struct {
	Type    string `mapstructure:"type"`
	Path    string `mapstructure:"path"`
	Conn    string `mapstructure:"conn"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"sslmode"`
}

type Session struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// NATS publishing is off while URL is empty.
type NATS struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type Log struct {
	Debug bool `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.listen", ":8765")
	v.SetDefault("http.domain", "")
	v.SetDefault("http.public_url", "")

	v.SetDefault("map.default_lat", 51.531)
	v.SetDefault("map.default_lng", 16.892)
	v.SetDefault("map.default_zoom", 15)
	v.SetDefault("map.focus_zoom", 16)
	v.SetDefault("map.tile_url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")

	v.SetDefault("catalog.source", catalog.SourceBuiltin)
	v.SetDefault("catalog.file", "")
	v.SetDefault("catalog.seed_demo", false)

	v.SetDefault("db.type", "sqlite")
	v.SetDefault("db.path", "")
	v.SetDefault("db.conn", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "")
	v.SetDefault("db.pass", "")
	v.SetDefault("db.name", "forestry")
	v.SetDefault("db.sslmode", "prefer")

	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "forestry.dashboard.events")

	v.SetDefault("log.debug", false)
}

// Load reads the configuration. An explicit configFile must exist; when it
// is empty the CONFIG_FILE environment variable is tried, and without either
// only defaults and the environment apply. A .env file in the working
// directory is loaded first and never overrides variables already set.
func Load(configFile string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config file %s does not exist", configFile)
		}
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Map.DefaultLat < -90 || c.Map.DefaultLat > 90 || c.Map.DefaultLng < -180 || c.Map.DefaultLng > 180 {
		return fmt.Errorf("map center %v,%v is out of range", c.Map.DefaultLat, c.Map.DefaultLng)
	}
	if c.Map.FocusZoom <= 0 || c.Map.DefaultZoom <= 0 {
		return errors.New("map zoom levels must be positive")
	}
	if strings.EqualFold(c.Catalog.Source, catalog.SourceFile) && c.Catalog.File == "" {
		return errors.New("catalog.file is required when catalog.source is file")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	return nil
}

// Database returns the connection settings for the database package.
func (c Config) Database() database.Config {
	return database.Config{
		DBType:    c.DB.Type,
		DBPath:    c.DB.Path,
		DBConn:    c.DB.Conn,
		DBHost:    c.DB.Host,
		DBPort:    c.DB.Port,
		DBUser:    c.DB.User,
		DBPass:    c.DB.Pass,
		DBName:    c.DB.Name,
		PGSSLMode: c.DB.SSLMode,
	}
}

// CatalogConfig returns the settings for catalog.Load.
func (c Config) CatalogConfig() catalog.Config {
	return catalog.Config{
		Source:   c.Catalog.Source,
		File:     c.Catalog.File,
		Database: c.Database(),
		SeedDemo: c.Catalog.SeedDemo,
	}
}

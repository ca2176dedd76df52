package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Clearance ClearanceConfig `mapstructure:"clearance"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// CatalogConfig controls where the bridge catalog is loaded from.
type CatalogConfig struct {
	Path   string `mapstructure:"path"`
	URL    string `mapstructure:"url"`
	Strict bool   `mapstructure:"strict"`
}

// RoutingConfig holds the OpenRouteService credentials and endpoint.
type RoutingConfig struct {
	ORSAPIKey  string `mapstructure:"ors_api_key"`
	ORSBaseURL string `mapstructure:"ors_base_url"`
	TimeoutS   int    `mapstructure:"timeout_seconds"`
}

// ClearanceConfig tunes the clearance engine thresholds.
type ClearanceConfig struct {
	SearchRadiusM   float64 `mapstructure:"search_radius_m"`
	ConflictMarginM float64 `mapstructure:"conflict_margin_m"`
	NearMarginM     float64 `mapstructure:"near_margin_m"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bridgeguard")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "bridgeguard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("catalog.path", "./data/bridges.csv")
	v.SetDefault("catalog.url", "")
	v.SetDefault("catalog.strict", false)
	v.SetDefault("routing.ors_api_key", "")
	v.SetDefault("routing.ors_base_url", "https://api.openrouteservice.org")
	v.SetDefault("routing.timeout_seconds", 15)
	v.SetDefault("clearance.search_radius_m", 300)
	v.SetDefault("clearance.conflict_margin_m", 0)
	v.SetDefault("clearance.near_margin_m", 0.25)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: BRIDGEGUARD_DATABASE_HOST → database.host
	v.SetEnvPrefix("BRIDGEGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Catalog.Path == "" && c.Catalog.URL == "" {
		errs = append(errs, "catalog.path or catalog.url is required")
	}
	if c.Routing.TimeoutS <= 0 {
		errs = append(errs, "routing.timeout_seconds must be positive")
	}
	if c.Clearance.SearchRadiusM <= 0 {
		errs = append(errs, "clearance.search_radius_m must be positive")
	}
	if c.Clearance.NearMarginM < c.Clearance.ConflictMarginM {
		errs = append(errs, "clearance.near_margin_m must be >= clearance.conflict_margin_m")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

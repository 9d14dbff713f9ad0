package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// MinCookieKeyLength is the minimum decoded length of server.cookie_key.
const MinCookieKeyLength = 64

// CronParser accepts five-field expressions, an optional leading seconds
// field and descriptors such as @every 30m.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Turnstile  TurnstileConfig  `mapstructure:"turnstile" yaml:"turnstile"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit" yaml:"rate_limit"`
	NATS       NATSConfig       `mapstructure:"nats" yaml:"nats"`
	Prometheus PrometheusConfig `mapstructure:"prometheus" yaml:"prometheus"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	Domain      string `mapstructure:"domain" yaml:"domain"`
	DataDir     string `mapstructure:"data_dir" yaml:"data_dir"`
	CookieKey   string `mapstructure:"cookie_key" yaml:"cookie_key"`
	RefreshCron string `mapstructure:"refresh_cron" yaml:"refresh_cron"`
	ProxyHeader string `mapstructure:"proxy_header" yaml:"proxy_header"`
	Debug       bool   `mapstructure:"debug" yaml:"debug"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver" yaml:"driver"`
	MaxConns int            `mapstructure:"max_conns" yaml:"max_conns"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host" yaml:"host"`
	User              string `mapstructure:"user" yaml:"user"`
	Password          string `mapstructure:"password" yaml:"password"`
	Database          string `mapstructure:"database" yaml:"database"`
	Port              int    `mapstructure:"port" yaml:"port"`
	SSLMode           string `mapstructure:"sslmode" yaml:"sslmode"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time" yaml:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period" yaml:"health_check_period"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type TurnstileConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	SiteKey   string `mapstructure:"site_key" yaml:"site_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type RateLimitConfig struct {
	MaxRequests int    `mapstructure:"max_requests" yaml:"max_requests"`
	Window      string `mapstructure:"window" yaml:"window"`
}

// NATSConfig points at the broker that receives access events. StreamMaxAge
// is how long the access stream keeps them, as a Go duration.
type NATSConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	StreamMaxAge string `mapstructure:"stream_max_age" yaml:"stream_max_age"`
}

// PrometheusConfig serves /metrics on its own listener. Host defaults to
// loopback so the endpoint is not exposed next to the public site.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Encoding    string `mapstructure:"encoding" yaml:"encoding"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Default returns the configuration written by init-config, minus the cookie key.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Domain:      "http://localhost:8080",
			DataDir:     "data",
			RefreshCron: "0 */10 * * * *",
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			MaxConns: 5,
			Postgres: PostgresConfig{Host: "localhost", Port: 5432, User: "spectra", Database: "spectra", SSLMode: "disable"},
			SQLite:   SQLiteConfig{Path: "data/spectra.db"},
		},
		Redis:      RedisConfig{Host: "localhost", Port: 6379},
		RateLimit:  RateLimitConfig{MaxRequests: 30, Window: "1m"},
		NATS:       NATSConfig{Host: "localhost", Port: 4222, StreamMaxAge: "720h"},
		Prometheus: PrometheusConfig{Host: "127.0.0.1", Port: 9090},
		Log:        LogConfig{Level: "info", Encoding: "json"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.domain", d.Server.Domain)
	v.SetDefault("server.data_dir", d.Server.DataDir)
	v.SetDefault("server.refresh_cron", d.Server.RefreshCron)
	v.SetDefault("server.cookie_key", "")
	v.SetDefault("server.proxy_header", "")
	v.SetDefault("server.debug", false)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("database.sqlite.path", d.Database.SQLite.Path)
	v.SetDefault("database.postgres.host", d.Database.Postgres.Host)
	v.SetDefault("database.postgres.port", d.Database.Postgres.Port)
	v.SetDefault("database.postgres.sslmode", d.Database.Postgres.SSLMode)
	v.SetDefault("turnstile.enabled", false)
	v.SetDefault("turnstile.secret_key", "")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("rate_limit.max_requests", d.RateLimit.MaxRequests)
	v.SetDefault("rate_limit.window", d.RateLimit.Window)
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.host", d.NATS.Host)
	v.SetDefault("nats.port", d.NATS.Port)
	v.SetDefault("nats.stream_max_age", d.NATS.StreamMaxAge)
	v.SetDefault("prometheus.enabled", false)
	v.SetDefault("prometheus.host", d.Prometheus.Host)
	v.SetDefault("prometheus.port", d.Prometheus.Port)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
	v.SetDefault("log.development", false)
}

// Load reads the YAML file at path (or config.yaml in the usual places when
// path is empty), applies SPECTRA_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// SPECTRA_SERVER_PORT overrides server.port and so on.
	v.SetEnvPrefix("SPECTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if _, err := c.CookieKeyBytes(); err != nil {
		return err
	}
	if _, err := CronParser.Parse(c.Server.RefreshCron); err != nil {
		return fmt.Errorf("config: invalid server.refresh_cron %q: %w", c.Server.RefreshCron, err)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Turnstile.Enabled && c.Turnstile.SecretKey == "" {
		return errors.New("config: turnstile.secret_key is required when turnstile is enabled")
	}
	return nil
}

// CookieKeyBytes decodes server.cookie_key (standard base64).
func (c *Config) CookieKeyBytes() ([]byte, error) {
	if c.Server.CookieKey == "" {
		return nil, errors.New("config: server.cookie_key is required, run gen-key")
	}
	key, err := base64.StdEncoding.DecodeString(c.Server.CookieKey)
	if err != nil {
		return nil, fmt.Errorf("config: server.cookie_key is not valid base64: %w", err)
	}
	if len(key) < MinCookieKeyLength {
		return nil, fmt.Errorf("config: server.cookie_key must decode to at least %d bytes, got %d", MinCookieKeyLength, len(key))
	}
	return key, nil
}

// FilesDir is where item payloads live.
func (c *Config) FilesDir() string {
	return filepath.Join(c.Server.DataDir, "files")
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Write marshals cfg as YAML to path, creating parent directories.
func Write(path string, cfg *Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Package config loads application configuration from an optional YAML
// file, a .env file and RN_* environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: storage.driver is read
// from RN_STORAGE_DRIVER.
const EnvPrefix = "RN"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Env       string          `mapstructure:"env"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Minimax   MinimaxConfig   `mapstructure:"minimax"`
	Invoicing InvoicingConfig `mapstructure:"invoicing"`
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the repository implementation.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// AuthConfig configures token verification. An empty secret means the
// gateway headers are trusted.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// KafkaConfig configures the outbox relay target.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// OutboxConfig configures the relay loop.
type OutboxConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	Interval  time.Duration `mapstructure:"interval"`
}

// MinimaxConfig configures the invoicing system client. Invoicing is
// disabled while BaseURL is empty.
type MinimaxConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	TokenURL     string        `mapstructure:"token_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether an invoicing system is configured.
func (c MinimaxConfig) Enabled() bool { return c.BaseURL != "" }

// InvoicingConfig holds invoice defaults.
type InvoicingConfig struct {
	VATPercent string `mapstructure:"vat_percent"`
}

// VAT parses the configured rate.
func (c InvoicingConfig) VAT() (decimal.Decimal, error) {
	return decimal.NewFromString(c.VATPercent)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)

	v.SetDefault("storage.driver", DriverMemory)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "radni-nalozi")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "radni-nalozi.events")
	v.SetDefault("kafka.batch_timeout", 100*time.Millisecond)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.interval", 2*time.Second)

	v.SetDefault("minimax.base_url", "")
	v.SetDefault("minimax.token_url", "")
	v.SetDefault("minimax.client_id", "")
	v.SetDefault("minimax.client_secret", "")
	v.SetDefault("minimax.username", "")
	v.SetDefault("minimax.password", "")
	v.SetDefault("minimax.timeout", 20*time.Second)

	v.SetDefault("invoicing.vat_percent", "25")
}

// Load reads configuration. path names a YAML file; when empty,
// config.yaml is looked up in the working directory and ./configs and is
// optional.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	if _, err := c.Invoicing.VAT(); err != nil {
		return fmt.Errorf("invalid invoicing.vat_percent %q: %w", c.Invoicing.VATPercent, err)
	}

	if c.Minimax.Enabled() {
		if c.Minimax.ClientID == "" || c.Minimax.Username == "" {
			return errors.New("minimax.client_id and minimax.username are required when minimax.base_url is set")
		}
	}

	if c.Outbox.BatchSize <= 0 {
		return errors.New("outbox.batch_size must be positive")
	}
	return nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

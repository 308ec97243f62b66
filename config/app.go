package config

import (
	"fmt"

	"github.com/kbukum/linkvault/auth/login"
	"github.com/kbukum/linkvault/auth/password"
	"github.com/kbukum/linkvault/observability"
	"github.com/kbukum/linkvault/store/sqlstore"
)

// AppConfig is the full linkvault configuration.
type AppConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Password  password.Config      `yaml:"password" mapstructure:"password"`
	Login     login.Config         `yaml:"login" mapstructure:"login"`
	Database  sqlstore.Config      `yaml:"database" mapstructure:"database"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills zero values in every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Password.ApplyDefaults()
	c.Login.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section. The database section is checked only when
// a DSN is set, since hash and classify never open a connection.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Password.Validate(); err != nil {
		return fmt.Errorf("config.password: %w", err)
	}
	if err := c.Login.Validate(); err != nil {
		return fmt.Errorf("config.login: %w", err)
	}
	if c.Database.DSN != "" {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("config.database: %w", err)
		}
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("config.telemetry: %w", err)
	}
	return nil
}

// Load reads, defaults, and validates the AppConfig for service.
func Load(service string, opts ...LoaderOption) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := LoadConfig(service, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = service
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// appKeys lists every AppConfig key so environment variables can override
// keys that are absent from the config file.
var appKeys = []string{
	"name", "environment", "version", "debug",
	"logging.level", "logging.format", "logging.output", "logging.no_color", "logging.timestamp", "logging.caller",
	"password.bcrypt_cost", "password.min_length",
	"login.max_concurrent_verifications", "login.acquire_timeout", "login.reset_token_ttl",
	"database.driver", "database.dsn", "database.max_open_conns", "database.max_idle_conns",
	"database.conn_max_lifetime", "database.max_retries",
	"telemetry.enabled", "telemetry.endpoint", "telemetry.insecure", "telemetry.interval", "telemetry.sample_rate",
}

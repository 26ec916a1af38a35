package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix namespaces all environment variables, e.g. POSGATE_SERVER_PORT.
const envPrefix = "POSGATE"

// configFile is the optional YAML configuration file, read from the working
// directory when present. Environment variables take precedence.
const configFile = "posgate.yml"

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	Gating   GatingConfig   `yaml:"gating" envconfig:"GATING"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration.
//
// AdminToken is the shared secret checked against the X-Admin-Token header
// on admin endpoints. An empty token fails closed: every admin request is
// rejected until a secret is configured.
type SecurityConfig struct {
	AdminToken string          `yaml:"admin_token" envconfig:"ADMIN_TOKEN"`
	RateLimit  RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// StorageConfig contains persistence configuration.
type StorageConfig struct {
	DBPath string `yaml:"db_path" envconfig:"DB_PATH"`
	Debug  bool   `yaml:"debug" envconfig:"DEBUG"`
}

// GatingConfig selects the deployment variant.
//
// When CompanyEnabled is false the registry tracks devices only and every
// device is treated as belonging to an implicitly ACTIVE company.
type GatingConfig struct {
	CompanyEnabled bool `yaml:"company_enabled" envconfig:"COMPANY_ENABLED"`
}

// Default returns the built-in configuration. Load layers the config file
// and the environment on top of it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/posgate.log",
		},
		Storage: StorageConfig{
			DBPath: "license.db",
		},
		Gating: GatingConfig{
			CompanyEnabled: true,
		},
	}
}

// Load loads configuration in three layers: built-in defaults, then the
// optional YAML file, then environment variables. Each layer only overrides
// what it actually sets, so a file value survives unless an env var names
// the same field.
func Load() (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(configFile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configFile, err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	applyLegacyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// applyLegacyEnv honors the bare environment variables the original
// deployment used, so existing installs keep working unmodified.
func applyLegacyEnv(cfg *Config) {
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.Security.AdminToken = v
	}
	if v := os.Getenv("LICENSE_DB"); v != "" {
		cfg.Storage.DBPath = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage db_path must not be empty")
	}
	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit rps must be positive, got %v", c.Security.RateLimit.RPS)
		}
		if c.Security.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive, got %d", c.Security.RateLimit.Burst)
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	return nil
}

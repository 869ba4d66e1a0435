// Package config loads and validates application configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Odoo          OdooConfig          `yaml:"odoo"`
	LLM           LLMConfig           `yaml:"llm"`
	Schema        SchemaConfig        `yaml:"schema"`
	Session       SessionConfig       `yaml:"session"`
	Audit         AuditConfig         `yaml:"audit"`
	ReadOnlyMode  bool                `yaml:"read_only_mode"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// AuthConfig describes how API callers authenticate. Static API keys are
// checked first; when a JWT secret is set, bearer tokens are accepted too.
type AuthConfig struct {
	APIKeys      []APIKeyConfig `yaml:"api_keys"`
	JWTSecretEnv string         `yaml:"jwt_secret_env"`
	JWTIssuer    string         `yaml:"jwt_issuer"`
}

// APIKeyConfig binds a static API key to a subject.
type APIKeyConfig struct {
	ID        string `yaml:"id"`
	KeyEnv    string `yaml:"key_env"`
	SubjectID string `yaml:"subject_id"`
	ReadOnly  bool   `yaml:"read_only"`
}

// OdooConfig describes the ERP backend connection.
type OdooConfig struct {
	URL            string               `yaml:"url"`
	Database       string               `yaml:"database"`
	Login          string               `yaml:"login"`
	APIKeyEnv      string               `yaml:"api_key_env"`
	Timeout        time.Duration        `yaml:"timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig describes circuit breaker settings for backend calls.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

// LLMConfig describes the intent classifier model settings.
type LLMConfig struct {
	APIKeyEnv   string        `yaml:"api_key_env"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SchemaConfig describes schema cache settings.
type SchemaConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	PreloadCommon bool          `yaml:"preload_common"`
}

// SessionConfig describes conversation session persistence.
type SessionConfig struct {
	Driver     string        `yaml:"driver"`
	AddrEnv    string        `yaml:"addr_env"`
	DB         int           `yaml:"db"`
	PendingTTL time.Duration `yaml:"pending_ttl"`
}

// AuditConfig describes audit trail persistence.
type AuditConfig struct {
	Driver     string `yaml:"driver"`
	DSNEnv     string `yaml:"dsn_env"`
	MaxEntries int    `yaml:"max_entries"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			HandlerTimeout:  55 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key",
					"X-Session-Id", "X-Correlation-Id"},
				MaxAge: 86400,
			},
		},
		Odoo: OdooConfig{
			APIKeyEnv: "ODOO_API_KEY",
			Timeout:   30 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				SuccessThreshold: 2,
				Cooldown:         30 * time.Second,
			},
		},
		LLM: LLMConfig{
			APIKeyEnv:   "GEMINI_API_KEY",
			Model:       "gemini-2.0-flash",
			Temperature: 0.1,
			Timeout:     30 * time.Second,
		},
		Schema: SchemaConfig{
			TTL:           time.Hour,
			PreloadCommon: true,
		},
		Session: SessionConfig{
			Driver:     "memory",
			AddrEnv:    "REDIS_ADDR",
			PendingTTL: 5 * time.Minute,
		},
		Audit: AuditConfig{
			Driver:     "memory",
			DSNEnv:     "AUDIT_DATABASE_URL",
			MaxEntries: 10000,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Odoo.URL == "" {
		errs = append(errs, "odoo.url is required")
	}
	if c.Odoo.Database == "" {
		errs = append(errs, "odoo.database is required")
	}
	if c.Odoo.Login == "" {
		errs = append(errs, "odoo.login is required")
	}
	switch c.Session.Driver {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("session.driver %q is not supported (memory, redis)", c.Session.Driver))
	}
	switch c.Audit.Driver {
	case "memory", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("audit.driver %q is not supported (memory, postgres)", c.Audit.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads ODOOCHAT_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ODOOCHAT_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ODOOCHAT_ODOO_URL"); v != "" {
		cfg.Odoo.URL = v
	}
	if v := os.Getenv("ODOOCHAT_ODOO_DATABASE"); v != "" {
		cfg.Odoo.Database = v
	}
	if v := os.Getenv("ODOOCHAT_ODOO_LOGIN"); v != "" {
		cfg.Odoo.Login = v
	}
	if v := os.Getenv("ODOOCHAT_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("ODOOCHAT_READ_ONLY_MODE"); v != "" {
		cfg.ReadOnlyMode = v == "true" || v == "1"
	}
	if v := os.Getenv("ODOOCHAT_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}

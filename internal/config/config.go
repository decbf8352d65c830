package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Modes select how much error detail leaves the process.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Config holds all configuration for the service. Every field is read from
// a REQGRAPH_ prefixed environment variable.
type Config struct {
	// Server
	Addr            string        `envconfig:"ADDR" default:":8080"`
	Mode            string        `envconfig:"MODE" default:"development"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" default:"1048576"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS"`
	Pretty          bool          `envconfig:"PRETTY" default:"false"`

	// GraphQL
	Introspection  bool `envconfig:"INTROSPECTION" default:"true"`
	GraphiQL       bool `envconfig:"GRAPHIQL" default:"true"`
	MaxConcurrency int  `envconfig:"MAX_CONCURRENCY" default:"0"`

	// Telemetry
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"reqgraph"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("reqgraph", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values envconfig cannot check by type.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return fmt.Errorf("REQGRAPH_MODE must be %q or %q, got %q", ModeDevelopment, ModeProduction, c.Mode)
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("REQGRAPH_MAX_BODY_BYTES must not be negative")
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("REQGRAPH_MAX_CONCURRENCY must not be negative")
	}
	return nil
}

// Production reports whether internal error details must be masked.
func (c *Config) Production() bool { return c.Mode == ModeProduction }

// Package config provides configuration management for textflow. It covers
// the serving binary, the LLM client, pipeline behavior (including the
// output-stream reduction flag), and logging preferences.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/textflow-ai/textflow/errors"
)

// Config represents the complete textflow configuration. It combines
// server settings, LLM configuration, pipeline behavior, and logging
// preferences into a single structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server-specific configuration for the HTTP server.
type ServerConfig struct {
	// Port specifies the HTTP server port (default: 8080)
	Port int `yaml:"port" validate:"gt=0,lte=65535"`

	// ReadTimeout is the maximum duration for reading the entire request
	// (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response (default: 30s)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing request headers (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ShutdownTimeout specifies how long to wait for a graceful shutdown
	// before forcing termination (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LLMConfig holds LLM-specific configuration for the model stage.
type LLMConfig struct {
	// Provider specifies the LLM provider (e.g., "openai", "anthropic", "ollama")
	Provider string `yaml:"provider"`

	// Model is the name of the model to use (e.g., "gpt-4o-mini", "claude-3-haiku")
	Model string `yaml:"model"`

	// APIKey is the authentication key for the provider's API.
	// Use environment variables (e.g., ${OPENAI_API_KEY}) for secure configuration.
	APIKey string `yaml:"api_key"`
}

// PipelineConfig controls how the normalization pipeline is assembled.
type PipelineConfig struct {
	// ReduceOutputStream makes the output stage consume an entire input
	// stream and emit one concatenated string instead of one item per
	// input item (default: false).
	ReduceOutputStream bool `yaml:"reduce_output_stream"`

	// MaxInputTokens caps prompt size before the model stage. Zero
	// disables the guard.
	MaxInputTokens int `yaml:"max_input_tokens" validate:"gte=0"`

	// ThrottleRPS limits items per second flowing into the model stage.
	// Zero disables throttling.
	ThrottleRPS float64 `yaml:"throttle_rps" validate:"gte=0"`

	// Breaker configures circuit breaking around the model stage.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker thresholds for the model stage.
type BreakerConfig struct {
	// Enabled turns circuit breaking on (default: false).
	Enabled bool `yaml:"enabled"`

	// FailureThreshold is the number of consecutive failures before the
	// circuit opens (default: 3).
	FailureThreshold uint32 `yaml:"failure_threshold"`

	// ResetTimeout is how long the circuit stays open before a half-open
	// probe (default: 30s).
	ResetTimeout time.Duration `yaml:"reset_timeout"`

	// HalfOpenRequests is the number of probes allowed while half-open
	// (default: 1).
	HalfOpenRequests uint32 `yaml:"half_open_requests"`
}

// LoggingConfig holds logging preferences.
type LoggingConfig struct {
	// Level sets the minimum log level (default: "info")
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Format selects the log encoder (default: "json")
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3",
		},
		Pipeline: PipelineConfig{
			ReduceOutputStream: false,
			Breaker: BreakerConfig{
				FailureThreshold: 3,
				ResetTimeout:     30 * time.Second,
				HalfOpenRequests: 1,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// validate is shared across Load calls; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = validator.New()

// Load reads configuration from the given reader, expands ${ENV} references,
// merges onto defaults, and validates the result.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewConfigError("failed to read config", err)
	}

	// Expand environment references before parsing so secrets stay out of
	// config files.
	expanded := os.ExpandEnv(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, errors.NewConfigError("failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.NewConfigError("invalid configuration", err)
	}

	return config, nil
}

// LoadFile loads configuration from a file path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewConfigError("failed to open config file", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks if the configuration is valid. Struct tags cover range
// checks; cross-field rules are checked explicitly.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}

	if c.Pipeline.Breaker.Enabled {
		if c.Pipeline.Breaker.FailureThreshold == 0 {
			return fmt.Errorf("breaker failure_threshold must be positive when the breaker is enabled")
		}
		if c.Pipeline.Breaker.ResetTimeout <= 0 {
			return fmt.Errorf("breaker reset_timeout must be positive when the breaker is enabled")
		}
	}

	return nil
}

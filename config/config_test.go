package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textflow-ai/textflow/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.False(t, cfg.Pipeline.ReduceOutputStream)
	assert.False(t, cfg.Pipeline.Breaker.Enabled)
	assert.Equal(t, uint32(3), cfg.Pipeline.Breaker.FailureThreshold)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	require.NoError(t, cfg.Validate())
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	yaml := `
server:
  port: 9090
pipeline:
  reduce_output_stream: true
  max_input_tokens: 2048
logging:
  level: debug
  format: console
`
	cfg, err := Load(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	// Untouched fields keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Pipeline.ReduceOutputStream)
	assert.Equal(t, 2048, cfg.Pipeline.MaxInputTokens)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadExpandsEnvironmentReferences(t *testing.T) {
	t.Setenv("TEXTFLOW_TEST_KEY", "sk-secret")

	yaml := `
llm:
  provider: openai
  model: gpt-4o-mini
  api_key: ${TEXTFLOW_TEST_KEY}
`
	cfg, err := Load(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", cfg.LLM.APIKey)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(strings.NewReader("server: [not a map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")

	var flowErr *errors.FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, errors.ConfigError, flowErr.Type)
}

func TestLoadFailuresCarryConfigErrorType(t *testing.T) {
	_, err := Load(strings.NewReader("server:\n  port: -1\n"))
	require.Error(t, err)
	var flowErr *errors.FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, errors.ConfigError, flowErr.Type)

	_, err = LoadFile("does-not-exist.yaml")
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, errors.ConfigError, flowErr.Type)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"negative read timeout", func(c *Config) { c.Server.ReadTimeout = -time.Second }},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"negative max input tokens", func(c *Config) { c.Pipeline.MaxInputTokens = -1 }},
		{"negative throttle", func(c *Config) { c.Pipeline.ThrottleRPS = -0.5 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"breaker enabled without threshold", func(c *Config) {
			c.Pipeline.Breaker.Enabled = true
			c.Pipeline.Breaker.FailureThreshold = 0
		}},
		{"breaker enabled without reset timeout", func(c *Config) {
			c.Pipeline.Breaker.Enabled = true
			c.Pipeline.Breaker.ResetTimeout = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("does-not-exist.yaml")
	assert.Error(t, err)
}

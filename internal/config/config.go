// Package config defines the application configuration, loaded through
// viper from defaults, an optional YAML file, environment variables
// (GRAMO_ prefix) and CLI flags, in that order of precedence.
package config

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// LLMProvider defines the supported model backends.
type LLMProvider string

const (
	ProviderGroq   LLMProvider = "groq"
	ProviderGemini LLMProvider = "gemini"
)

// ModelConfig defines the configuration for a single model.
type ModelConfig struct {
	Provider   LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model      string        `mapstructure:"model" yaml:"model"`
	APIKey     string        `mapstructure:"api_key" yaml:"-"`
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxTokens  int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// LLMConfig configures the model routing logic: a fast tier for the
// cheaper roles and a powerful tier for the ones that benefit from it.
type LLMConfig struct {
	// APIKey is the shared credential for providers; individual models
	// may override it. Only ever sourced from the environment.
	APIKey        string                 `mapstructure:"api_key" yaml:"-"`
	FastModel     string                 `mapstructure:"fast_model" yaml:"fast_model"`
	PowerfulModel string                 `mapstructure:"powerful_model" yaml:"powerful_model"`
	Models        map[string]ModelConfig `mapstructure:"models" yaml:"models"`
}

// AnalysisConfig tunes the role dispatcher.
type AnalysisConfig struct {
	MaxInputChars    int               `mapstructure:"max_input_chars" yaml:"max_input_chars"`
	Temperature      float64           `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens        int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	RoleTiers        map[string]string `mapstructure:"role_tiers" yaml:"role_tiers"`
	RetryMaxAttempts int               `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelay   time.Duration     `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`
	TokensPerMinute  int               `mapstructure:"tokens_per_minute" yaml:"tokens_per_minute"`
}

// SessionConfig tunes the session lifecycle timing.
type SessionConfig struct {
	DebounceInterval time.Duration `mapstructure:"debounce_interval" yaml:"debounce_interval"`
	RetryMaxAttempts int           `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`
	RetryMaxDelay    time.Duration `mapstructure:"retry_max_delay" yaml:"retry_max_delay"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// SetDefaults initializes default values for all configuration keys.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "gramo")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- LLM --
	v.SetDefault("llm.fast_model", "llama-3.1-8b-instant")
	v.SetDefault("llm.powerful_model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.models", map[string]ModelConfig{
		"llama-3.1-8b-instant":    {Provider: ProviderGroq, Model: "llama-3.1-8b-instant", APITimeout: 30 * time.Second},
		"llama-3.3-70b-versatile": {Provider: ProviderGroq, Model: "llama-3.3-70b-versatile", APITimeout: 45 * time.Second},
	})

	// -- Analysis --
	v.SetDefault("analysis.max_input_chars", 2000)
	v.SetDefault("analysis.temperature", 0.7)
	v.SetDefault("analysis.max_tokens", 1000)
	v.SetDefault("analysis.role_tiers", map[string]string{
		"grammar":   "fast",
		"style":     "powerful",
		"structure": "powerful",
	})
	v.SetDefault("analysis.retry_max_attempts", 3)
	v.SetDefault("analysis.retry_base_delay", "3s")
	v.SetDefault("analysis.tokens_per_minute", 3000)

	// -- Session --
	v.SetDefault("session.debounce_interval", "1s")
	v.SetDefault("session.retry_max_attempts", 3)
	v.SetDefault("session.retry_base_delay", "1s")
	v.SetDefault("session.retry_max_delay", "8s")

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.requests_per_minute", 60)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "10s")
}

// NewDefaultConfig creates a configuration populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults, but fail loudly if it does.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper
// object and validates it.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// API keys are secrets; they only ever arrive through env vars.
	v.BindEnv("llm.api_key", "GRAMO_LLM_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.LLM.FastModel == "" || c.LLM.PowerfulModel == "" {
		return fmt.Errorf("llm.fast_model and llm.powerful_model are required")
	}
	for _, name := range []string{c.LLM.FastModel, c.LLM.PowerfulModel} {
		if _, ok := c.LLM.Models[name]; !ok {
			return fmt.Errorf("llm.models is missing an entry for %q", name)
		}
	}
	if c.Analysis.RetryMaxAttempts <= 0 {
		return fmt.Errorf("analysis.retry_max_attempts must be a positive integer")
	}
	if c.Analysis.TokensPerMinute <= 0 {
		return fmt.Errorf("analysis.tokens_per_minute must be a positive integer")
	}
	if c.Session.RetryMaxAttempts <= 0 {
		return fmt.Errorf("session.retry_max_attempts must be a positive integer")
	}
	if c.Session.DebounceInterval <= 0 {
		return fmt.Errorf("session.debounce_interval must be a positive duration")
	}
	if c.Server.RequestsPerMinute < 0 {
		return fmt.Errorf("server.requests_per_minute cannot be negative")
	}
	return nil
}

// global holds the active configuration for command wiring.
var global atomic.Pointer[Config]

// Set installs cfg as the active configuration.
func Set(cfg *Config) { global.Store(cfg) }

// Get returns the active configuration, falling back to defaults if
// none has been installed yet.
func Get() *Config {
	if cfg := global.Load(); cfg != nil {
		return cfg
	}
	cfg := NewDefaultConfig()
	global.Store(cfg)
	return cfg
}

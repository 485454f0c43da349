// Package config loads server settings from defaults, an optional YAML file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTimeoutMS = 5000
	MinTimeoutMS     = 1000
	MaxTimeoutMS     = 30000

	envPrefix = "TARTUNLP"
)

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Port        string `mapstructure:"port"`
	TLSCertFile string `mapstructure:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file"`
}

// Config is built once at startup and shared read-only by the client and transports.
type Config struct {
	BaseURL   string     `mapstructure:"base_url"`
	TimeoutMS int        `mapstructure:"timeout_ms"`
	LogLevel  string     `mapstructure:"log_level"`
	LogFormat string     `mapstructure:"log_format"`
	HTTP      HTTPConfig `mapstructure:"http"`
}

// Timeout returns the backend request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Validate checks the loaded values.
func (c Config) Validate() error {
	if c.TimeoutMS < MinTimeoutMS || c.TimeoutMS > MaxTimeoutMS {
		return fmt.Errorf("timeout_ms must be between %d and %d, got %d", MinTimeoutMS, MaxTimeoutMS, c.TimeoutMS)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url is required")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// New returns a viper instance with defaults and environment bindings applied.
// Callers may bind command-line flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("base_url", "https://api.tartunlp.ai/translation/v2")
	v.SetDefault("timeout_ms", DefaultTimeoutMS)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("http.port", "3000")
	v.SetDefault("http.tls_cert_file", "")
	v.SetDefault("http.tls_key_file", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) into v and decodes the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		// timeoutMs is the spelling used by MCP client configuration files. It is
		// applied as a default so env vars and flags still take precedence.
		if v.InConfig("timeoutMs") && !v.InConfig("timeout_ms") {
			v.SetDefault("timeout_ms", v.Get("timeoutMs"))
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

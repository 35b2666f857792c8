package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultHeaderTimeoutSeconds bounds how long the generator daemon may take
// to start answering a request. The body itself streams with no deadline.
const DefaultHeaderTimeoutSeconds = 10

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Generator GeneratorConfig `yaml:"generator"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// GeneratorConfig locates the OLLM daemon that performs text generation.
type GeneratorConfig struct {
	BaseURL              string `yaml:"base_url"`
	HeaderTimeoutSeconds int    `yaml:"header_timeout_seconds"`
}

// HeaderTimeout returns the configured response-header timeout.
func (g GeneratorConfig) HeaderTimeout() time.Duration {
	return time.Duration(g.HeaderTimeoutSeconds) * time.Second
}

// Load reads YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	if cfg.Generator.HeaderTimeoutSeconds == 0 {
		cfg.Generator.HeaderTimeoutSeconds = DefaultHeaderTimeoutSeconds
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if strings.TrimSpace(c.Generator.BaseURL) == "" {
		return fmt.Errorf("generator.base_url must be provided")
	}

	parsed, err := url.Parse(c.Generator.BaseURL)
	if err != nil {
		return fmt.Errorf("generator.base_url %q is not a valid URL: %w", c.Generator.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("generator.base_url scheme %q must be http or https", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("generator.base_url %q must include a host", c.Generator.BaseURL)
	}

	if c.Generator.HeaderTimeoutSeconds < 0 {
		return fmt.Errorf("generator.header_timeout_seconds must not be negative, got %d", c.Generator.HeaderTimeoutSeconds)
	}

	return nil
}

// Copyright 2025 Certen Protocol
//
// Package config loads Config from environment variables, and optionally
// from a YAML file with ${VAR}/${VAR:-default} substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting the ledger core recognizes. ContainerID names
// the container this process is deployed for and tags its log lines; the
// HTTP routes take container_id from the request path and do not restrict
// it to ContainerID.
type Config struct {
	ContainerID string `yaml:"container_id"`
	ListenPort  int    `yaml:"listen_port"`
	StorageURL  string `yaml:"storage_url"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	MetricsPort int `yaml:"metrics_port"`
	HealthPort  int `yaml:"health_port"`

	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return &Config{
		ContainerID:     getEnv("CONTAINER_ID", ""),
		ListenPort:      getEnvInt("LISTEN_PORT", 8080),
		StorageURL:      getEnv("STORAGE_URL", "memory://"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		MetricsPort:     getEnvInt("METRICS_PORT", 9090),
		HealthPort:      getEnvInt("HEALTH_PORT", 8081),
		ShutdownTimeout: Duration(getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)),
	}, nil
}

// LoadYAML reads path, substitutes ${VAR}/${VAR:-default} references against
// the process environment, and unmarshals the result into a Config.
func LoadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := substituteEnvVars(string(data))

	cfg := &Config{
		ListenPort:  8080,
		MetricsPort: 9090,
		HealthPort:  8081,
		LogLevel:    "info",
		LogFormat:   "json",
	}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the required fields are present.
func (c *Config) Validate() error {
	if c.ContainerID == "" {
		return fmt.Errorf("config: container_id is required")
	}
	if c.ListenPort <= 0 {
		return fmt.Errorf("config: listen_port must be positive")
	}
	if c.StorageURL == "" {
		return fmt.Errorf("config: storage_url is required")
	}
	return nil
}

// Duration wraps time.Duration with YAML (de)serialization support.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

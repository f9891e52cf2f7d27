package cliconfig

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// EnvConfig holds the raw DD_* environment values. Everything is read as a
// string so unset and empty can be told apart from explicit values.
type EnvConfig struct {
	APIKey          string `env:"DD_API_KEY"`
	Site            string `env:"DD_SITE"`
	EndpointURL     string `env:"DD_LOGS_URL"`
	Service         string `env:"DD_SERVICE"`
	Environment     string `env:"DD_ENV"`
	Version         string `env:"DD_VERSION"`
	Source          string `env:"DD_SOURCE"`
	Hostname        string `env:"DD_HOSTNAME"`
	Tags            string `env:"DD_TAGS"`
	BatchSize       string `env:"DD_BATCH_SIZE"`
	FlushInterval   string `env:"DD_FLUSH_INTERVAL"`
	MaxRetries      string `env:"DD_MAX_RETRIES"`
	Timeout         string `env:"DD_TIMEOUT"`
	QueueCapacity   string `env:"DD_QUEUE_CAPACITY"`
	OverflowPolicy  string `env:"DD_OVERFLOW_POLICY"`
	ShutdownTimeout string `env:"DD_SHUTDOWN_TIMEOUT"`
	Compress        string `env:"DD_COMPRESS"`
}

// LoadDotEnv loads variables from a .env file without overriding the ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnvConfig applies configuration from environment variables (DD_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	var ec EnvConfig
	if err := env.Parse(&ec); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	s := newConfigSetter(changed)

	s.setString("api-key", ec.APIKey, &cfg.APIKey)
	s.setString("site", ec.Site, &cfg.Site)
	s.setString("endpoint-url", ec.EndpointURL, &cfg.EndpointURL)
	s.setString("service", ec.Service, &cfg.Service)
	s.setString("env", ec.Environment, &cfg.Environment)
	s.setString("service-version", ec.Version, &cfg.Version)
	s.setString("source", ec.Source, &cfg.Source)
	s.setString("hostname", ec.Hostname, &cfg.Hostname)
	s.setString("overflow-policy", ec.OverflowPolicy, &cfg.OverflowPolicy)
	s.setStrings("tags", SplitTags(ec.Tags), &cfg.Tags)

	if err := s.setDuration("flush-interval", ec.FlushInterval, &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", ec.Timeout, &cfg.Timeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", ec.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("batch-size", ec.BatchSize, &cfg.BatchSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-retries", ec.MaxRetries, &cfg.MaxRetries); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-capacity", ec.QueueCapacity, &cfg.QueueCapacity); err != nil {
		return err
	}

	s.setBoolFromString("compress", ec.Compress, &cfg.Compress)

	return nil
}

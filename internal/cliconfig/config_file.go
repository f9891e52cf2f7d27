package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	APIKey      string   `toml:"api_key"`
	Site        string   `toml:"site"`
	EndpointURL string   `toml:"endpoint_url"`
	Service     string   `toml:"service"`
	Environment string   `toml:"env"`
	Version     string   `toml:"version"`
	Source      string   `toml:"source"`
	Hostname    string   `toml:"hostname"`
	Tags        []string `toml:"tags"`
	LoggerName  string   `toml:"logger"`
	Level       string   `toml:"level"`

	BatchSize       int    `toml:"batch_size"`
	FlushInterval   string `toml:"flush_interval"`
	MaxRetries      int    `toml:"max_retries"`
	Timeout         string `toml:"timeout"`
	QueueCapacity   int    `toml:"queue_capacity"`
	OverflowPolicy  string `toml:"overflow_policy"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	Compress        *bool  `toml:"compress"`

	BackoffBase       string  `toml:"backoff_base"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
	BackoffMax        string  `toml:"backoff_max"`

	StateDir    string `toml:"state_dir"`
	MetricsAddr string `toml:"metrics_addr"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.ddship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".ddship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("api-key", fc.APIKey, &cfg.APIKey)
	s.setString("site", fc.Site, &cfg.Site)
	s.setString("endpoint-url", fc.EndpointURL, &cfg.EndpointURL)
	s.setString("service", fc.Service, &cfg.Service)
	s.setString("env", fc.Environment, &cfg.Environment)
	s.setString("service-version", fc.Version, &cfg.Version)
	s.setString("source", fc.Source, &cfg.Source)
	s.setString("hostname", fc.Hostname, &cfg.Hostname)
	s.setString("logger", fc.LoggerName, &cfg.LoggerName)
	s.setString("level", fc.Level, &cfg.Level)
	s.setString("overflow-policy", fc.OverflowPolicy, &cfg.OverflowPolicy)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setStrings("tags", fc.Tags, &cfg.Tags)

	if err := s.setDuration("flush-interval", fc.FlushInterval, &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.Timeout, &cfg.Timeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("backoff-base", fc.BackoffBase, &cfg.BackoffBase); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", fc.BackoffMax, &cfg.BackoffMax); err != nil {
		return err
	}

	s.setFloat("backoff-multiplier", fc.BackoffMultiplier, &cfg.BackoffMultiplier)

	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setInt("max-retries", fc.MaxRetries, &cfg.MaxRetries)
	s.setInt("queue-capacity", fc.QueueCapacity, &cfg.QueueCapacity)

	s.setBool("compress", fc.Compress, &cfg.Compress)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

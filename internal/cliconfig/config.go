package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/ddship/internal/app"
)

// DefaultSite is the Datadog site logs are shipped to by default.
const DefaultSite = "datadoghq.com"

// Config holds CLI configuration for ddship.
type Config struct {
	APIKey      string
	Site        string
	EndpointURL string

	Service     string
	Environment string
	Version     string
	Source      string
	Hostname    string
	Tags        []string
	LoggerName  string
	Level       string

	BatchSize       int
	FlushInterval   time.Duration
	MaxRetries      int
	Timeout         time.Duration
	QueueCapacity   int
	OverflowPolicy  string
	ShutdownTimeout time.Duration
	Compress        bool

	BackoffBase       time.Duration
	BackoffMultiplier float64
	BackoffMax        time.Duration

	Follow      bool
	JSON        bool
	StateDir    string
	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Site:              DefaultSite,
		Source:            "ddship",
		Level:             "info",
		BatchSize:         app.DefaultBatchSize,
		FlushInterval:     app.DefaultFlushInterval,
		MaxRetries:        app.DefaultMaxAttempts,
		Timeout:           30 * time.Second,
		QueueCapacity:     1000,
		OverflowPolicy:    app.DropNewest.String(),
		ShutdownTimeout:   app.DefaultShutdownTimeout,
		BackoffBase:       app.DefaultBackoffBase,
		BackoffMultiplier: app.DefaultBackoffMultiplier,
		BackoffMax:        app.DefaultBackoffMax,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api-key is required (or DD_API_KEY)")
	}

	if c.Site == "" {
		c.Site = DefaultSite
	}
	c.EndpointURL = strings.TrimRight(c.EndpointURL, "/")

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive")
	}
	if c.QueueCapacity < c.BatchSize {
		return fmt.Errorf("queue capacity %d is smaller than batch size %d", c.QueueCapacity, c.BatchSize)
	}
	if _, ok := app.ParseOverflowPolicy(c.OverflowPolicy); !ok {
		return fmt.Errorf("unknown overflow policy %q", c.OverflowPolicy)
	}
	if c.Follow && c.StateDir == "" {
		return fmt.Errorf("state-dir is required with --follow")
	}

	return nil
}

// Masked returns a copy safe to log.
func (c Config) Masked() Config {
	if c.APIKey != "" {
		c.APIKey = "*****"
	}
	return c
}

// SplitTags splits a DD_TAGS style list. Both commas and spaces separate tags.
func SplitTags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list value if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

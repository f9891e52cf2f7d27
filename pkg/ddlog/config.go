package ddlog

import (
	"fmt"
	"strings"
	"time"

	httpAdapter "github.com/bft-labs/ddship/internal/adapters/http"
	"github.com/bft-labs/ddship/internal/app"
	"github.com/bft-labs/ddship/internal/domain"
)

// DefaultSite is the Datadog site used when Config.Site is empty.
const DefaultSite = httpAdapter.DefaultSite

// Default configuration values.
const (
	DefaultBatchSize         = app.DefaultBatchSize
	DefaultFlushInterval     = app.DefaultFlushInterval
	DefaultMaxRetries        = app.DefaultMaxAttempts
	DefaultTimeout           = 30 * time.Second
	DefaultQueueCapacity     = 1000
	DefaultShutdownTimeout   = app.DefaultShutdownTimeout
	DefaultBackoffBase       = app.DefaultBackoffBase
	DefaultBackoffMultiplier = app.DefaultBackoffMultiplier
	DefaultBackoffMax        = app.DefaultBackoffMax
	DefaultBackoffJitter     = app.DefaultBackoffJitter
	DefaultSource            = "go"
)

// OverflowPolicy decides what happens to a record enqueued on a full queue.
type OverflowPolicy = app.OverflowPolicy

const (
	// DropNewest rejects the incoming record. This is the default.
	DropNewest = app.DropNewest

	// DropOldest evicts the oldest queued record to make room.
	DropOldest = app.DropOldest
)

// ParseOverflowPolicy accepts "drop_newest" (or "") and "drop_oldest".
func ParseOverflowPolicy(s string) (OverflowPolicy, bool) {
	return app.ParseOverflowPolicy(s)
}

// Config holds the configuration of a Handler.
// It is captured by value in New and never changes afterwards.
type Config struct {
	// APIKey authenticates against the intake. Required.
	APIKey string

	// Service, Environment and Version become the service field and the
	// env: and version: tags of every record.
	Service     string
	Environment string
	Version     string

	// Site selects the intake host, e.g. "datadoghq.eu". Default: datadoghq.com
	Site string

	// EndpointURL overrides the intake URL derived from Site.
	EndpointURL string

	// Source is the ddsource of every record. Default: "go"
	Source string

	// Hostname is attached to every record when non-empty.
	Hostname string

	// Tags are extra "key:value" tags added to every record.
	Tags []string

	// LoggerName is the logger name used when a record has none.
	LoggerName string

	// BatchSize is the maximum number of records per request. Default: 10
	BatchSize int

	// FlushInterval is the longest a queued record waits before a send. Default: 5s
	FlushInterval time.Duration

	// MaxRetries bounds the attempts per batch, the first one included. Default: 3
	MaxRetries int

	// Timeout bounds a single HTTP attempt. Default: 30s
	Timeout time.Duration

	// QueueCapacity bounds the number of queued records. Default: 1000
	QueueCapacity int

	// OverflowPolicy decides what Enqueue does on a full queue. Default: DropNewest
	OverflowPolicy OverflowPolicy

	// ShutdownTimeout bounds the drain in Close. Default: 10s
	ShutdownTimeout time.Duration

	// Backoff between retries: BackoffBase * BackoffMultiplier^n capped at
	// BackoffMax, with ±BackoffJitter applied to each delay. Defaults: 1s,
	// 2, 30s, 0.2. A negative BackoffJitter disables jitter.
	BackoffBase       time.Duration
	BackoffMultiplier float64
	BackoffMax        time.Duration
	BackoffJitter     float64

	// Compress gzips request bodies.
	Compress bool
}

// DefaultConfig returns a Config with default values. APIKey must still be set.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero-valued fields with their defaults.
// A negative BackoffJitter disables jitter.
func (c *Config) SetDefaults() {
	if c.Site == "" {
		c.Site = DefaultSite
	}
	if c.Source == "" {
		c.Source = DefaultSource
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = DefaultBackoffMax
	}
	if c.BackoffJitter == 0 {
		c.BackoffJitter = DefaultBackoffJitter
	}
}

// Validate checks the configuration for errors.
// Errors wrap domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: Datadog API key is required", domain.ErrInvalidConfig)
	}
	if c.QueueCapacity < c.BatchSize {
		return fmt.Errorf("%w: queue capacity %d is smaller than batch size %d",
			domain.ErrInvalidConfig, c.QueueCapacity, c.BatchSize)
	}
	if c.BackoffJitter >= 1 {
		return fmt.Errorf("%w: backoff jitter must be below 1", domain.ErrInvalidConfig)
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("%w: backoff multiplier must be at least 1", domain.ErrInvalidConfig)
	}
	if c.EndpointURL != "" && !strings.HasPrefix(c.EndpointURL, "http://") && !strings.HasPrefix(c.EndpointURL, "https://") {
		return fmt.Errorf("%w: endpoint URL must be http(s): %q", domain.ErrInvalidConfig, c.EndpointURL)
	}
	return nil
}

// Endpoint returns the intake URL: EndpointURL if set, otherwise the URL
// for Site.
func (c *Config) Endpoint() string {
	if c.EndpointURL != "" {
		return c.EndpointURL
	}
	return httpAdapter.EndpointForSite(c.Site)
}

// baseTags returns the tags every record carries, in order.
func (c *Config) baseTags() []string {
	tags := make([]string, 0, len(c.Tags)+2)
	if c.Environment != "" {
		tags = append(tags, "env:"+c.Environment)
	}
	if c.Version != "" {
		tags = append(tags, "version:"+c.Version)
	}
	return append(tags, c.Tags...)
}

func (c *Config) retryPolicy() app.RetryPolicy {
	return app.RetryPolicy{
		MaxAttempts: c.MaxRetries,
		Base:        c.BackoffBase,
		Multiplier:  c.BackoffMultiplier,
		Max:         c.BackoffMax,
		Jitter:      c.BackoffJitter,
	}
}

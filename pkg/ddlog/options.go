package ddlog

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/ddship/internal/adapters/log"
	"github.com/bft-labs/ddship/internal/ports"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for the handler's own structured logging.
// It must never be backed by the Handler it is passed to.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// Option configures optional behavior of a Handler.
type Option func(*options)

// options holds the optional configuration for a Handler.
type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	eventHandler EventHandler
	registerer   prometheus.Registerer
	diagnostics  *zerolog.Logger
}

// defaultOptions returns options with sensible defaults.
func defaultOptions(client *http.Client) options {
	return options{
		httpClient: client,
		logger:     logAdapter.NewNoopLogger(),
	}
}

// WithHTTPClient sets a custom HTTP client for intake requests.
// If not provided, a default client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a logger for the handler's own operational messages.
// If not provided, a no-op logger is used (no output).
// Package github.com/bft-labs/ddship/pkg/log provides a zerolog adapter.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for delivery and drop events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithMetrics registers delivery counters and a queue depth gauge with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithDiagnostics reports dropped batches and records to logger.
// Overflow reports are rate limited.
func WithDiagnostics(logger zerolog.Logger) Option {
	return func(o *options) {
		o.diagnostics = &logger
	}
}

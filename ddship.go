// Package ddship ships application logs to the Datadog logs intake.
//
// Example usage:
//
//	cfg := ddship.DefaultConfig()
//	cfg.APIKey = os.Getenv("DD_API_KEY")
//	cfg.Service = "checkout"
//	h, err := ddship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//	slog.SetDefault(slog.New(h.Slog(nil)))
//
// The full API, including options and event handlers, lives in pkg/ddlog.
package ddship

import (
	"github.com/rs/zerolog"

	"github.com/bft-labs/ddship/internal/cliconfig"
	"github.com/bft-labs/ddship/pkg/ddlog"
)

// Config holds the configuration for a Handler.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = ddlog.Config

// Handler batches records and ships them in the background.
type Handler = ddlog.Handler

// Record is one log entry.
type Record = ddlog.Record

// Option configures a Handler.
type Option = ddlog.Option

// New creates a Handler and starts its worker.
func New(cfg Config, opts ...Option) (*Handler, error) {
	return ddlog.New(cfg, opts...)
}

// DefaultConfig returns a Config with default values. APIKey must still be set.
func DefaultConfig() Config {
	return ddlog.DefaultConfig()
}

// Logger returns the console logger used by the ddship command. It writes to
// stderr; pass it to ddlog.WithDiagnostics to see delivery problems.
func Logger() zerolog.Logger {
	return cliconfig.Logger()
}

// DefaultSite is the Datadog site used when Config.Site is empty.
const DefaultSite = ddlog.DefaultSite

package domain

import "errors"

// Domain errors represent error conditions in the ddship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyStopping is returned when a stop is requested twice.
	ErrAlreadyStopping = errors.New("ddship: already stopping")

	// ErrNotRunning is returned when an operation requires a running worker.
	ErrNotRunning = errors.New("ddship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("ddship: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("ddship: invalid configuration")

	// ErrEncode is returned when a batch cannot be serialized for the intake.
	ErrEncode = errors.New("ddship: encode batch")

	// ErrRejected wraps a terminal (non-retryable) intake response.
	ErrRejected = errors.New("ddship: rejected by intake")

	// ErrRetryable wraps a retryable intake response (429 or 5xx).
	ErrRetryable = errors.New("ddship: retryable intake response")
)

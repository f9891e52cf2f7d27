// Package ddlog ships application logs to the Datadog HTTP logs intake
// without blocking the code that logs.
//
// # Basic Usage
//
//	h, err := ddlog.New(ddlog.Config{
//	    APIKey:      os.Getenv("DD_API_KEY"),
//	    Service:     "checkout",
//	    Environment: "prod",
//	    Version:     "1.4.2",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	logger := slog.New(h.Slog(nil))
//	logger.Info("order placed", "order_id", id)
//
// # Delivery
//
// Records go into a bounded in-memory queue. A single worker goroutine sends
// them in batches of up to BatchSize, either when that many are queued or
// when FlushInterval has passed since the last send. Failed sends are retried
// with exponential backoff for 429, 5xx, timeouts and connection errors; any
// other response drops the batch at once. Delivery is at most once: a batch
// that exhausts its retries is dropped and reported, never returned to the
// caller.
//
// # Overflow
//
// When the queue is full, Enqueue returns false and the record is dropped
// (DropNewest). With DropOldest the oldest queued record is evicted instead.
// Every drop is reported through the diagnostic channel.
//
// # Diagnostics
//
// Delivery failures and drops never become shipped logs. They are reported
// to the options passed to New:
//
//	h, err := ddlog.New(cfg,
//	    ddlog.WithDiagnostics(zerolog.New(os.Stderr)),
//	    ddlog.WithMetrics(prometheus.DefaultRegisterer),
//	    ddlog.WithEventHandler(myHandler),
//	)
//
// # Shutdown
//
// Close stops accepting records, sends everything queued, and waits at most
// ShutdownTimeout (plus a short grace period). Records still queued at the
// deadline are discarded and reported. Close is idempotent.
package ddlog

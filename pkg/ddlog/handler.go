package ddlog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	httpAdapter "github.com/bft-labs/ddship/internal/adapters/http"
	logAdapter "github.com/bft-labs/ddship/internal/adapters/log"
	"github.com/bft-labs/ddship/internal/adapters/metrics"
	"github.com/bft-labs/ddship/internal/app"
	"github.com/bft-labs/ddship/internal/ports"
)

// Handler ships log records to the Datadog logs intake in the background.
//
// Enqueue and Log never block on the network: records go into a bounded
// queue and a single worker goroutine sends them in batches. A Handler is
// safe for concurrent use. Call Close before the program exits.
type Handler struct {
	config   Config
	logger   ports.Logger
	emitter  ports.EventEmitter
	queue    *app.RecordQueue
	worker   *app.Worker
	baseTags []string

	id          string
	diagnostics *logAdapter.DiagnosticEmitter
	collector   *metrics.Collector

	closeOnce sync.Once
	drained   bool
}

// New creates a Handler and starts its worker.
// Returns an error wrapping ErrInvalidConfig if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Handler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Tags = append([]string(nil), cfg.Tags...)

	o := defaultOptions(&http.Client{Timeout: cfg.Timeout})
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logAdapter.NewNoopLogger()
	}

	id := uuid.NewString()
	queue := app.NewRecordQueue(cfg.QueueCapacity, cfg.BatchSize, cfg.OverflowPolicy)

	// Diagnostic channel: every sink sees every event
	var emitters ports.MultiEmitter
	var diagnostics *logAdapter.DiagnosticEmitter
	if o.diagnostics != nil {
		diagnostics = logAdapter.NewDiagnosticEmitter(*o.diagnostics, logAdapter.DefaultDropReportInterval)
		emitters = append(emitters, diagnostics)
	}
	var collector *metrics.Collector
	if o.registerer != nil {
		c, err := metrics.NewCollector(o.registerer, id, queue.Size)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		collector = c
		emitters = append(emitters, collector)
	}
	var lifecycleEmitter app.EventEmitter
	if o.eventHandler != nil {
		wrapper := &eventEmitterWrapper{handler: o.eventHandler}
		emitters = append(emitters, wrapper)
		lifecycleEmitter = wrapper
	}

	var emitter ports.EventEmitter = ports.NopEmitter{}
	if len(emitters) > 0 {
		emitter = emitters
	}

	sender := httpAdapter.NewIntakeSender(o.httpClient, httpAdapter.SenderConfig{
		Endpoint: cfg.Endpoint(),
		APIKey:   cfg.APIKey,
		Service:  cfg.Service,
		Source:   cfg.Source,
		Hostname: cfg.Hostname,
		Compress: cfg.Compress,
	}, logger)

	delivery := app.NewDeliveryClient(sender, cfg.retryPolicy(), cfg.Timeout, logger, emitter)
	lifecycle := app.NewLifecycle(logger, lifecycleEmitter)
	worker := app.NewWorker(app.WorkerConfig{
		BatchSize:       cfg.BatchSize,
		FlushInterval:   cfg.FlushInterval,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, queue, delivery, lifecycle, logger, emitter)

	h := &Handler{
		config:   cfg,
		logger:   logger,
		emitter:  emitter,
		queue:    queue,
		worker:   worker,
		baseTags: cfg.baseTags(),

		id:          id,
		diagnostics: diagnostics,
		collector:   collector,
	}

	if err := worker.Start(); err != nil {
		if collector != nil {
			collector.Unregister()
		}
		return nil, fmt.Errorf("start worker: %w", err)
	}
	logger.Info("handler started",
		ports.String("handler", id),
		ports.String("endpoint", cfg.Endpoint()),
		ports.String("service", cfg.Service),
		ports.Int("batch_size", cfg.BatchSize),
		ports.Duration("flush_interval", cfg.FlushInterval),
	)
	return h, nil
}

// Enqueue adds an already rendered record to the queue without blocking.
// It returns false if the record was dropped (queue full or handler closed).
// The record is copied; it is shipped as given, without enrichment.
func (h *Handler) Enqueue(rec Record) bool {
	return h.enqueueOwned(rec.Clone())
}

// Log builds an enriched record from msg and attrs and enqueues it.
func (h *Handler) Log(level Level, msg string, attrs ...slog.Attr) bool {
	rec := Record{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
	}
	if len(attrs) > 0 {
		rec.Attributes = make(map[string]any, len(attrs))
		for _, a := range attrs {
			addAttr(rec.Attributes, "", a)
		}
	}
	return h.enqueueOwned(h.Prepare(rec))
}

// Prepare applies the handler's enrichment to rec: a missing timestamp is
// set to now, a missing logger to Config.LoggerName, and the tags become
// env:, version:, Config.Tags, level:, logger: followed by rec's own tags.
func (h *Handler) Prepare(rec Record) Record {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.Logger == "" {
		rec.Logger = h.config.LoggerName
	}

	tags := make([]string, 0, len(h.baseTags)+len(rec.Tags)+2)
	tags = append(tags, h.baseTags...)
	tags = append(tags, "level:"+rec.Level.String())
	if rec.Logger != "" {
		tags = append(tags, "logger:"+rec.Logger)
	}
	rec.Tags = append(tags, rec.Tags...)
	return rec
}

// enqueueOwned is Enqueue for records built by the handler itself.
func (h *Handler) enqueueOwned(rec Record) bool {
	switch h.queue.Push(rec) {
	case app.Accepted:
		return true
	case app.AcceptedWithEviction:
		h.emitter.OnRecordsDropped(DropReasonEvicted, 1)
		return true
	case app.RejectedFull:
		h.emitter.OnRecordsDropped(DropReasonQueueFull, 1)
		return false
	default:
		h.emitter.OnRecordsDropped(DropReasonClosed, 1)
		return false
	}
}

// Flush sends everything queued so far and waits for it, or for ctx.
// The handler keeps running. Returns ErrNotRunning after Close.
func (h *Handler) Flush(ctx context.Context) error {
	return h.worker.Flush(ctx)
}

// Close stops accepting records, sends what is queued, and stops the worker.
// It blocks for at most ShutdownTimeout plus a short grace period and returns
// true if every queued record was handed to delivery. Later calls return the
// first result.
func (h *Handler) Close() bool {
	h.closeOnce.Do(func() {
		h.drained = h.worker.Stop()
		if h.diagnostics != nil {
			h.diagnostics.Flush()
		}
		if h.collector != nil {
			h.collector.Unregister()
		}

		if h.drained {
			h.logger.Info("handler closed")
		} else {
			h.logger.Warn("handler closed with records lost", ports.Int64("lost", h.worker.Lost()))
		}
	})
	return h.drained
}

// QueueSize returns the number of queued records.
func (h *Handler) QueueSize() int {
	return h.queue.Size()
}

// State returns the current lifecycle state.
func (h *Handler) State() State {
	return convertState(h.worker.State())
}

// Healthy reports whether the worker is running and accepting records.
func (h *Handler) Healthy() bool {
	if h.worker.State() != app.StateRunning {
		return false
	}
	select {
	case <-h.worker.Done():
		return false
	default:
		return true
	}
}

// String describes the handler for debugging.
func (h *Handler) String() string {
	return fmt.Sprintf("ddlog.Handler(service=%q, source=%q, site=%q, state=%s, queue=%d/%d)",
		h.config.Service, h.config.Source, h.config.Site, h.State(), h.queue.Size(), h.queue.Capacity())
}

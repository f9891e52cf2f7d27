package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/ddship/internal/domain"
	"github.com/bft-labs/ddship/internal/ports"
)

// Default worker configuration values.
const (
	DefaultBatchSize       = 10
	DefaultFlushInterval   = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// WorkerConfig contains configuration for the worker loop.
type WorkerConfig struct {
	BatchSize     int
	FlushInterval time.Duration

	// ShutdownTimeout bounds the drain; queued records left after it are discarded
	ShutdownTimeout time.Duration
}

// Worker owns the flush timer and the single goroutine that assembles and
// delivers batches. Delivery of one batch, retries included, finishes before
// the next trigger is looked at, so batches leave in enqueue order.
type Worker struct {
	config    WorkerConfig
	queue     *RecordQueue
	delivery  *DeliveryClient
	lifecycle *Lifecycle
	logger    ports.Logger
	emitter   ports.EventEmitter

	ctx      context.Context
	hurry    chan struct{}
	flushReq chan chan struct{}
	done     chan struct{}

	stopOnce sync.Once
	drained  bool
	lost     atomic.Int64
}

// NewWorker creates a worker in StateIdle. Call Start to launch it.
func NewWorker(
	config WorkerConfig,
	queue *RecordQueue,
	delivery *DeliveryClient,
	lifecycle *Lifecycle,
	logger ports.Logger,
	emitter ports.EventEmitter,
) *Worker {
	if config.BatchSize < 1 {
		config.BatchSize = DefaultBatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 2 * config.FlushInterval
	}
	if emitter == nil {
		emitter = ports.NopEmitter{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	lifecycle.SetCancel(cancel)

	return &Worker{
		config:    config,
		queue:     queue,
		delivery:  delivery,
		lifecycle: lifecycle,
		logger:    logger,
		emitter:   emitter,
		ctx:       ctx,
		hurry:     make(chan struct{}),
		flushReq:  make(chan chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start transitions to StateRunning and launches the worker goroutine.
func (w *Worker) Start() error {
	if err := w.lifecycle.TransitionTo(StateRunning, "worker started"); err != nil {
		return err
	}

	w.lifecycle.AddWorker()
	go w.run()
	return nil
}

// run is the worker loop. It returns after the drain completes.
func (w *Worker) run() {
	defer w.lifecycle.WorkerDone()
	defer close(w.done)

	timer := time.NewTimer(w.config.FlushInterval)
	defer timer.Stop()

	for {
		select {
		case <-w.hurry:
			w.drain()
			_ = w.lifecycle.TransitionTo(StateStopped, "drain complete")
			return

		case <-timer.C:
			w.flushAll()
			timer.Reset(w.config.FlushInterval)

		case <-w.queue.Ready():
			w.flushFull()
			resetTimer(timer, w.config.FlushInterval)

		case reply := <-w.flushReq:
			w.flushAll()
			close(reply)
			resetTimer(timer, w.config.FlushInterval)
		}
	}
}

// flushAll delivers everything queued, batch by batch.
func (w *Worker) flushAll() {
	for w.ctx.Err() == nil {
		batch, ok := Assemble(w.queue, w.config.BatchSize)
		if !ok {
			return
		}
		w.deliver(batch)
	}
}

// flushFull delivers full batches only; a partial tail waits for the timer.
func (w *Worker) flushFull() {
	for w.ctx.Err() == nil && w.queue.Size() >= w.config.BatchSize {
		batch, ok := Assemble(w.queue, w.config.BatchSize)
		if !ok {
			return
		}
		w.deliver(batch)
	}
}

// deliver hands one batch to the delivery client. A batch abandoned by the
// drain deadline counts as lost.
func (w *Worker) deliver(batch *domain.Batch) {
	res := w.delivery.Deliver(w.ctx, w.hurry, batch)
	if res.Outcome == domain.OutcomeAbandoned {
		w.lost.Add(int64(res.Records))
	}
}

// drain delivers until the queue is empty or the deadline cancels the
// worker context, then discards and reports whatever is left.
func (w *Worker) drain() {
	w.flushAll()

	if n := w.queue.Discard(); n > 0 {
		w.lost.Add(int64(n))
		w.logger.Warn("drain deadline reached, discarding queued records",
			ports.Int("records", n),
			ports.Duration("timeout", w.config.ShutdownTimeout),
		)
		w.emitter.OnRecordsDropped(domain.DropReasonShutdown, n)
	}
}

// Stop moves the worker to StateDraining and blocks until it reaches
// StateStopped or the drain deadline (plus ShutdownGrace) passes.
// Returns true when every queued record was handed to delivery.
// Later calls return the first result immediately.
func (w *Worker) Stop() bool {
	w.stopOnce.Do(func() {
		w.drained = w.stop()
	})
	return w.drained
}

func (w *Worker) stop() bool {
	w.queue.Close()

	if err := w.lifecycle.TransitionTo(StateDraining, "stop requested"); err != nil {
		// Never started: nothing to drain through.
		if err := w.lifecycle.TransitionTo(StateStopped, "stopped before start"); err != nil {
			return false
		}
		close(w.done)
		w.lifecycle.Cancel()
		if n := w.queue.Discard(); n > 0 {
			w.lost.Add(int64(n))
			w.emitter.OnRecordsDropped(domain.DropReasonShutdown, n)
			return false
		}
		return true
	}

	deadline := time.AfterFunc(w.config.ShutdownTimeout, w.lifecycle.Cancel)
	defer deadline.Stop()
	close(w.hurry)

	err := w.lifecycle.WaitWithTimeout(w.config.ShutdownTimeout + ShutdownGrace)
	w.lifecycle.Cancel()
	return err == nil && w.lost.Load() == 0
}

// Flush asks the worker to deliver everything queued so far and waits for
// it. The worker keeps running afterwards.
func (w *Worker) Flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case w.flushReq <- reply:
	case <-w.hurry:
		return domain.ErrNotRunning
	case <-w.done:
		return domain.ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return w.lifecycle.State()
}

// Done is closed once the worker has stopped.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Lost returns how many records were discarded or abandoned at shutdown.
func (w *Worker) Lost() int64 {
	return w.lost.Load()
}

// resetTimer re-arms t for d, discarding a pending fire.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

package log

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bft-labs/ddship/internal/domain"
)

// DefaultDropReportInterval is the minimum gap between two overflow reports.
const DefaultDropReportInterval = 10 * time.Second

// DiagnosticEmitter implements ports.EventEmitter by writing to a zerolog
// logger that is never the shipped log stream.
//
// Overflow drops can happen once per log call, so each drop reason is rate
// limited on its own. Suppressed counts are reported with the next allowed
// drop report of any reason, or by Flush.
type DiagnosticEmitter struct {
	logger zerolog.Logger
	limit  rate.Limit

	mu         sync.Mutex
	limiters   map[domain.DropReason]*rate.Limiter
	suppressed map[domain.DropReason]int
}

// NewDiagnosticEmitter creates an emitter that reports overflow drops at
// most once per interval and reason. A non-positive interval disables rate
// limiting.
func NewDiagnosticEmitter(logger zerolog.Logger, interval time.Duration) *DiagnosticEmitter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &DiagnosticEmitter{
		logger:     logger,
		limit:      limit,
		limiters:   make(map[domain.DropReason]*rate.Limiter),
		suppressed: make(map[domain.DropReason]int),
	}
}

// OnDeliverySuccess logs the delivered batch at debug level.
func (d *DiagnosticEmitter) OnDeliverySuccess(res domain.DeliveryResult) {
	d.logger.Debug().
		Str("batch", res.BatchID).
		Int("records", res.Records).
		Int("attempts", res.Attempts).
		Dur("duration", res.Duration).
		Msg("batch delivered")
}

// OnDeliveryFailure logs the dropped batch at error level.
func (d *DiagnosticEmitter) OnDeliveryFailure(res domain.DeliveryResult) {
	event := d.logger.Error().
		Err(res.Err).
		Str("batch", res.BatchID).
		Str("outcome", res.Outcome.String()).
		Int("records", res.Records).
		Int("attempts", res.Attempts)
	if res.StatusCode != 0 {
		event = event.Int("status", res.StatusCode)
	}
	event.Msg("log batch dropped")
}

// OnRecordsDropped logs discarded records. Overflow reports are rate limited.
func (d *DiagnosticEmitter) OnRecordsDropped(reason domain.DropReason, count int) {
	d.mu.Lock()
	if rateLimited(reason) && !d.limiter(reason).Allow() {
		d.suppressed[reason] += count
		d.mu.Unlock()
		return
	}
	pending := d.takeSuppressed()
	d.mu.Unlock()

	pending[reason] += count
	d.report(pending)
}

// Flush reports every suppressed count now.
func (d *DiagnosticEmitter) Flush() {
	d.mu.Lock()
	pending := d.takeSuppressed()
	d.mu.Unlock()

	d.report(pending)
}

func rateLimited(reason domain.DropReason) bool {
	switch reason {
	case domain.DropReasonQueueFull, domain.DropReasonEvicted, domain.DropReasonClosed:
		return true
	default:
		return false
	}
}

// limiter must be called with mu held.
func (d *DiagnosticEmitter) limiter(reason domain.DropReason) *rate.Limiter {
	l, ok := d.limiters[reason]
	if !ok {
		l = rate.NewLimiter(d.limit, 1)
		d.limiters[reason] = l
	}
	return l
}

// takeSuppressed must be called with mu held.
func (d *DiagnosticEmitter) takeSuppressed() map[domain.DropReason]int {
	pending := d.suppressed
	d.suppressed = make(map[domain.DropReason]int)
	return pending
}

func (d *DiagnosticEmitter) report(counts map[domain.DropReason]int) {
	reasons := make([]domain.DropReason, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	slices.Sort(reasons)

	for _, r := range reasons {
		d.logger.Warn().
			Str("reason", string(r)).
			Int("records", counts[r]).
			Msg("log records dropped")
	}
}

// Suppressed returns how many dropped records for reason await reporting.
func (d *DiagnosticEmitter) Suppressed(reason domain.DropReason) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suppressed[reason]
}

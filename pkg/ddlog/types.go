package ddlog

import (
	"github.com/bft-labs/ddship/internal/app"
	"github.com/bft-labs/ddship/internal/domain"
)

// Record is one rendered log entry. Records handed to Enqueue are copied, so
// the caller may reuse its tag slice and attribute map afterwards.
type Record = domain.LogRecord

// Level is the severity of a record.
type Level = domain.Level

// Severity levels, mapped to the Datadog status field.
const (
	LevelDebug    = domain.LevelDebug
	LevelInfo     = domain.LevelInfo
	LevelWarn     = domain.LevelWarn
	LevelError    = domain.LevelError
	LevelCritical = domain.LevelCritical
)

// DropReason explains why records were discarded without delivery.
type DropReason = domain.DropReason

// Drop reasons reported through EventHandler.OnRecordsDropped.
const (
	DropReasonQueueFull = domain.DropReasonQueueFull
	DropReasonEvicted   = domain.DropReasonEvicted
	DropReasonClosed    = domain.DropReasonClosed
	DropReasonShutdown  = domain.DropReasonShutdown
)

// Sentinel errors, re-exported for errors.Is checks.
var (
	ErrInvalidConfig = domain.ErrInvalidConfig
	ErrNotRunning    = domain.ErrNotRunning
)

// State represents the lifecycle state of a Handler.
type State int

const (
	// StateIdle means the worker has not been started.
	StateIdle State = iota

	// StateRunning means records are accepted and shipped.
	StateRunning

	// StateDraining means Close was called and queued records are being flushed.
	StateDraining

	// StateStopped means the worker has exited.
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// convertState maps internal app.State to public State.
func convertState(s app.State) State {
	switch s {
	case app.StateRunning:
		return StateRunning
	case app.StateDraining:
		return StateDraining
	case app.StateStopped:
		return StateStopped
	default:
		return StateIdle
	}
}

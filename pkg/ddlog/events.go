package ddlog

import (
	"time"

	"github.com/bft-labs/ddship/internal/app"
	"github.com/bft-labs/ddship/internal/domain"
)

// EventHandler receives diagnostic notifications from a Handler.
//
// Delivery events are called from the worker goroutine; drop events can be
// called from any goroutine that enqueues. Implementations must return
// quickly and must not log through the Handler that emitted the event.
type EventHandler interface {
	// OnStateChange is called when the handler changes lifecycle state.
	OnStateChange(event StateChangeEvent)

	// OnDeliverySuccess is called after a batch was accepted by the intake.
	OnDeliverySuccess(event DeliveryEvent)

	// OnDeliveryFailure is called when a batch is dropped without delivery.
	OnDeliveryFailure(event DeliveryEvent)

	// OnRecordsDropped is called when records are discarded before batching.
	OnRecordsDropped(event DropEvent)
}

// StateChangeEvent is emitted when the handler changes lifecycle state.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// DeliveryEvent describes how delivery of one batch ended.
type DeliveryEvent struct {
	BatchID    string
	Records    int
	Attempts   int
	StatusCode int

	// Outcome is "delivered", "rejected", "exhausted" or "abandoned"
	Outcome string

	Err      error
	Duration time.Duration
}

// DropEvent reports records discarded before they reached a batch.
type DropEvent struct {
	Reason DropReason
	Count  int
}

// BaseEventHandler provides no-op implementations of all EventHandler methods.
// Embed it to implement only the events you need.
type BaseEventHandler struct{}

// OnStateChange does nothing.
func (BaseEventHandler) OnStateChange(StateChangeEvent) {}

// OnDeliverySuccess does nothing.
func (BaseEventHandler) OnDeliverySuccess(DeliveryEvent) {}

// OnDeliveryFailure does nothing.
func (BaseEventHandler) OnDeliveryFailure(DeliveryEvent) {}

// OnRecordsDropped does nothing.
func (BaseEventHandler) OnRecordsDropped(DropEvent) {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnDeliverySuccess(res domain.DeliveryResult) {
	e.handler.OnDeliverySuccess(deliveryEvent(res))
}

func (e *eventEmitterWrapper) OnDeliveryFailure(res domain.DeliveryResult) {
	e.handler.OnDeliveryFailure(deliveryEvent(res))
}

func (e *eventEmitterWrapper) OnRecordsDropped(reason domain.DropReason, count int) {
	e.handler.OnRecordsDropped(DropEvent{Reason: reason, Count: count})
}

func deliveryEvent(res domain.DeliveryResult) DeliveryEvent {
	return DeliveryEvent{
		BatchID:    res.BatchID,
		Records:    res.Records,
		Attempts:   res.Attempts,
		StatusCode: res.StatusCode,
		Outcome:    res.Outcome.String(),
		Err:        res.Err,
		Duration:   res.Duration,
	}
}

package ports

import "github.com/bft-labs/ddship/internal/domain"

// EventEmitter receives diagnostic events from the delivery pipeline.
// Events travel outside the shipped log stream, so a failure to ship a log
// never produces another shipped log. Implementations must not block and
// must not enqueue records into the handler that emitted the event.
type EventEmitter interface {
	// OnDeliverySuccess is called after a batch was accepted by the intake.
	OnDeliverySuccess(result domain.DeliveryResult)

	// OnDeliveryFailure is called when a batch is dropped without delivery.
	OnDeliveryFailure(result domain.DeliveryResult)

	// OnRecordsDropped is called when records are discarded before batching.
	OnRecordsDropped(reason domain.DropReason, count int)
}

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) OnDeliverySuccess(domain.DeliveryResult) {}
func (NopEmitter) OnDeliveryFailure(domain.DeliveryResult) {}
func (NopEmitter) OnRecordsDropped(domain.DropReason, int) {}

// MultiEmitter fans events out to several emitters in order.
type MultiEmitter []EventEmitter

func (m MultiEmitter) OnDeliverySuccess(result domain.DeliveryResult) {
	for _, e := range m {
		e.OnDeliverySuccess(result)
	}
}

func (m MultiEmitter) OnDeliveryFailure(result domain.DeliveryResult) {
	for _, e := range m {
		e.OnDeliveryFailure(result)
	}
}

func (m MultiEmitter) OnRecordsDropped(reason domain.DropReason, count int) {
	for _, e := range m {
		e.OnRecordsDropped(reason, count)
	}
}

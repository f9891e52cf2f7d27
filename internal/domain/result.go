package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Response is the part of an intake HTTP response the delivery client needs.
type Response struct {
	StatusCode int

	// Body holds at most a short excerpt of the response body
	Body string
}

// Class is the retry classification of a single delivery attempt.
type Class int

const (
	ClassSuccess Class = iota
	ClassRetryable
	ClassTerminal
)

// String returns a human-readable representation of the class.
func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassRetryable:
		return "retryable"
	case ClassTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Classify decides what to do with the result of one attempt.
// Transport errors and timeouts are retryable, as are 429 and 5xx.
// Every other non-2xx status is terminal, as is an encode failure.
func Classify(resp *Response, err error) Class {
	if err != nil {
		if errors.Is(err, ErrEncode) {
			return ClassTerminal
		}
		if errors.Is(err, context.Canceled) {
			return ClassTerminal
		}
		return ClassRetryable
	}
	if resp == nil {
		return ClassTerminal
	}
	switch {
	case resp.StatusCode/100 == 2:
		return ClassSuccess
	case resp.StatusCode == 429, resp.StatusCode/100 == 5:
		return ClassRetryable
	default:
		return ClassTerminal
	}
}

// ResponseError converts a non-2xx response into an error that wraps
// ErrRetryable or ErrRejected.
func ResponseError(resp *Response) error {
	if resp == nil {
		return fmt.Errorf("%w: empty response", ErrRejected)
	}
	kind := ErrRejected
	if Classify(resp, nil) == ClassRetryable {
		kind = ErrRetryable
	}
	if resp.Body == "" {
		return fmt.Errorf("%w: server returned %d", kind, resp.StatusCode)
	}
	return fmt.Errorf("%w: server returned %d: %s", kind, resp.StatusCode, resp.Body)
}

// Outcome is the final disposition of a batch.
type Outcome int

const (
	// OutcomeDelivered means the intake accepted the batch.
	OutcomeDelivered Outcome = iota

	// OutcomeRejected means a terminal response ended delivery on the first failure.
	OutcomeRejected

	// OutcomeExhausted means every allowed attempt failed with a retryable error.
	OutcomeExhausted

	// OutcomeAbandoned means shutdown cut delivery short.
	OutcomeAbandoned
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeRejected:
		return "rejected"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// DeliveryResult reports how delivery of one batch concluded.
type DeliveryResult struct {
	BatchID    string
	Records    int
	Outcome    Outcome
	Attempts   int
	StatusCode int
	Err        error
	Duration   time.Duration
}

// Delivered returns true if the batch reached the intake.
func (r DeliveryResult) Delivered() bool {
	return r.Outcome == OutcomeDelivered
}

// DropReason explains why records were discarded without delivery.
type DropReason string

const (
	DropReasonQueueFull DropReason = "queue_full"
	DropReasonEvicted   DropReason = "evicted"
	DropReasonClosed    DropReason = "closed"
	DropReasonShutdown  DropReason = "shutdown"
)

package ports

import (
	"context"

	"github.com/bft-labs/ddship/internal/domain"
)

// BatchSender transmits one batch to the log intake in a single request.
// It performs no retries; retry policy belongs to the delivery client.
type BatchSender interface {
	// Send serializes and posts the batch.
	// A non-nil error means the request did not produce a response
	// (encode failure, connection error, timeout). Any response, including
	// non-2xx, is returned with a nil error for the caller to classify.
	Send(ctx context.Context, batch *domain.Batch) (*domain.Response, error)
}

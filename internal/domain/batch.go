package domain

import (
	"time"

	"github.com/google/uuid"
)

// Batch is an ordered group of records delivered in one intake request.
// Records keep enqueue order. A batch is never mutated once assembled.
type Batch struct {
	// ID identifies the batch in diagnostics
	ID uuid.UUID

	// Records holds between 1 and batch_size records
	Records []LogRecord

	// CreatedAt is when the batch was assembled
	CreatedAt time.Time
}

// NewBatch wraps records into a batch with a fresh ID.
func NewBatch(records []LogRecord) *Batch {
	return &Batch{
		ID:        uuid.New(),
		Records:   records,
		CreatedAt: time.Now(),
	}
}

// Size returns the number of records in the batch.
func (b *Batch) Size() int {
	return len(b.Records)
}

// Empty returns true if the batch has no records.
func (b *Batch) Empty() bool {
	return len(b.Records) == 0
}

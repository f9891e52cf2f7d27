package app

import "github.com/bft-labs/ddship/internal/domain"

// Assemble drains up to batchSize records from q into a new batch.
// Returns false when the queue was empty at drain time.
func Assemble(q *RecordQueue, batchSize int) (*domain.Batch, bool) {
	records := q.Drain(batchSize)
	if len(records) == 0 {
		return nil, false
	}
	return domain.NewBatch(records), true
}

package app

import (
	"sync"
	"sync/atomic"

	"github.com/bft-labs/ddship/internal/domain"
)

// OverflowPolicy decides what Enqueue does when the queue is at capacity.
type OverflowPolicy int

const (
	// DropNewest rejects the incoming record and leaves the queue unchanged.
	DropNewest OverflowPolicy = iota

	// DropOldest evicts the record at the head to make room.
	DropOldest
)

// String returns the config spelling of the policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "drop_newest"
	case DropOldest:
		return "drop_oldest"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy accepts "drop_newest" (or "") and "drop_oldest".
func ParseOverflowPolicy(s string) (OverflowPolicy, bool) {
	switch s {
	case "", "drop_newest", "drop-newest", "newest":
		return DropNewest, true
	case "drop_oldest", "drop-oldest", "oldest":
		return DropOldest, true
	default:
		return DropNewest, false
	}
}

// PushResult reports what happened to a record handed to Push.
type PushResult int

const (
	Accepted PushResult = iota
	AcceptedWithEviction
	RejectedFull
	RejectedClosed
)

// RecordQueue is a bounded FIFO of pending records.
// Any number of goroutines may enqueue; a single worker drains.
type RecordQueue struct {
	mu     sync.Mutex
	buf    []domain.LogRecord
	head   int
	count  int
	closed bool

	size    atomic.Int64
	policy  OverflowPolicy
	trigger int
	ready   chan struct{}
}

// NewRecordQueue creates a queue holding at most capacity records.
// Ready fires whenever the queue size reaches trigger.
func NewRecordQueue(capacity, trigger int, policy OverflowPolicy) *RecordQueue {
	if capacity < 1 {
		capacity = 1
	}
	if trigger < 1 || trigger > capacity {
		trigger = capacity
	}
	return &RecordQueue{
		buf:     make([]domain.LogRecord, capacity),
		policy:  policy,
		trigger: trigger,
		ready:   make(chan struct{}, 1),
	}
}

// Enqueue appends rec without blocking.
// Returns false if the record was not queued.
func (q *RecordQueue) Enqueue(rec domain.LogRecord) bool {
	switch q.Push(rec) {
	case Accepted, AcceptedWithEviction:
		return true
	default:
		return false
	}
}

// Push appends rec and reports whether the queue had to reject the record
// or evict an older one.
func (q *RecordQueue) Push(rec domain.LogRecord) PushResult {
	result := Accepted

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return RejectedClosed
	}
	if q.count == len(q.buf) {
		if q.policy != DropOldest {
			q.mu.Unlock()
			return RejectedFull
		}
		q.buf[q.head] = domain.LogRecord{}
		q.head = (q.head + 1) % len(q.buf)
		q.count--
		result = AcceptedWithEviction
	}
	q.buf[(q.head+q.count)%len(q.buf)] = rec
	q.count++
	n := q.count
	q.size.Store(int64(n))
	q.mu.Unlock()

	if n >= q.trigger {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return result
}

// Drain removes and returns up to max records in FIFO order.
// Returns an empty slice when the queue is empty.
func (q *RecordQueue) Drain(max int) []domain.LogRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.count
	if max >= 0 && max < n {
		n = max
	}
	out := make([]domain.LogRecord, n)
	for i := 0; i < n; i++ {
		out[i] = q.buf[q.head]
		q.buf[q.head] = domain.LogRecord{}
		q.head = (q.head + 1) % len(q.buf)
	}
	q.count -= n
	q.size.Store(int64(q.count))
	return out
}

// Size returns the number of queued records.
func (q *RecordQueue) Size() int {
	return int(q.size.Load())
}

// Capacity returns the maximum number of queued records.
func (q *RecordQueue) Capacity() int {
	return len(q.buf)
}

// Ready signals that the queue reached its size trigger.
// The channel holds at most one pending signal.
func (q *RecordQueue) Ready() <-chan struct{} {
	return q.ready
}

// Close makes every later Push fail with RejectedClosed.
// Records already queued stay drainable.
func (q *RecordQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Discard empties the queue and returns how many records were removed.
func (q *RecordQueue) Discard() int {
	return len(q.Drain(-1))
}

package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/ddship/internal/domain"
)

// scriptedSender replies with a fixed sequence of statuses/errors and
// records every batch it was handed.
type scriptedSender struct {
	mu      sync.Mutex
	script  []reply
	calls   int
	batches []*domain.Batch
	block   chan struct{}
}

type reply struct {
	status int
	err    error
}

func (s *scriptedSender) Send(ctx context.Context, batch *domain.Batch) (*domain.Response, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.batches = append(s.batches, batch)
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r := reply{status: 202}
	if len(s.script) > 0 {
		if i < len(s.script) {
			r = s.script[i]
		} else {
			r = s.script[len(s.script)-1]
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Response{StatusCode: r.status}, nil
}

func (s *scriptedSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Messages returns every delivered message in delivery order.
func (s *scriptedSender) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, b := range s.batches {
		for _, r := range b.Records {
			out = append(out, r.Message)
		}
	}
	return out
}

func (s *scriptedSender) BatchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.batches))
	for i, b := range s.batches {
		out[i] = b.Size()
	}
	return out
}

// recordingEmitter implements ports.EventEmitter for assertions.
type recordingEmitter struct {
	mu        sync.Mutex
	successes []domain.DeliveryResult
	failures  []domain.DeliveryResult
	drops     map[domain.DropReason]int
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{drops: make(map[domain.DropReason]int)}
}

func (e *recordingEmitter) OnDeliverySuccess(r domain.DeliveryResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.successes = append(e.successes, r)
}

func (e *recordingEmitter) OnDeliveryFailure(r domain.DeliveryResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = append(e.failures, r)
}

func (e *recordingEmitter) OnRecordsDropped(reason domain.DropReason, count int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drops[reason] += count
}

func (e *recordingEmitter) Failures() []domain.DeliveryResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.DeliveryResult{}, e.failures...)
}

func (e *recordingEmitter) Dropped(reason domain.DropReason) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drops[reason]
}

func record(i int) domain.LogRecord {
	return domain.LogRecord{Level: domain.LevelInfo, Message: fmt.Sprintf("msg-%d", i)}
}

func messages(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("msg-%d", i)
	}
	return out
}

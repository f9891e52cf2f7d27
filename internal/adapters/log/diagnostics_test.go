package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/ddship/internal/domain"
	"github.com/bft-labs/ddship/internal/ports"
)

func TestDiagnosticEmitter_RateLimitsOverflow(t *testing.T) {
	var buf bytes.Buffer
	d := NewDiagnosticEmitter(zerolog.New(&buf), time.Hour)

	d.OnRecordsDropped(domain.DropReasonQueueFull, 1)
	d.OnRecordsDropped(domain.DropReasonQueueFull, 1)
	d.OnRecordsDropped(domain.DropReasonQueueFull, 3)

	lines := strings.Count(buf.String(), "\n")
	if lines != 1 {
		t.Errorf("wrote %d lines, want 1:\n%s", lines, buf.String())
	}
	if got := d.Suppressed(domain.DropReasonQueueFull); got != 4 {
		t.Errorf("Suppressed() = %d, want 4", got)
	}
}

func TestDiagnosticEmitter_ShutdownAlwaysReported(t *testing.T) {
	var buf bytes.Buffer
	d := NewDiagnosticEmitter(zerolog.New(&buf), time.Hour)

	d.OnRecordsDropped(domain.DropReasonShutdown, 2)
	d.OnRecordsDropped(domain.DropReasonShutdown, 5)

	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Errorf("wrote %d lines, want 2", lines)
	}
	if !strings.Contains(buf.String(), `"reason":"shutdown"`) {
		t.Errorf("output missing reason: %s", buf.String())
	}
}

func TestDiagnosticEmitter_NoLimit(t *testing.T) {
	var buf bytes.Buffer
	d := NewDiagnosticEmitter(zerolog.New(&buf), 0)

	for i := 0; i < 5; i++ {
		d.OnRecordsDropped(domain.DropReasonQueueFull, 1)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 5 {
		t.Errorf("wrote %d lines, want 5", lines)
	}
}

func TestDiagnosticEmitter_ReasonsLimitedSeparately(t *testing.T) {
	var buf bytes.Buffer
	d := NewDiagnosticEmitter(zerolog.New(&buf), time.Hour)

	d.OnRecordsDropped(domain.DropReasonQueueFull, 1)
	d.OnRecordsDropped(domain.DropReasonQueueFull, 2)
	// A different reason has its own budget and carries the queue_full backlog
	d.OnRecordsDropped(domain.DropReasonClosed, 1)

	out := buf.String()
	if lines := strings.Count(out, "\n"); lines != 3 {
		t.Fatalf("wrote %d lines, want 3:\n%s", lines, out)
	}
	if !strings.Contains(out, `"reason":"queue_full","records":2`) {
		t.Errorf("backlog not reported: %s", out)
	}
	if got := d.Suppressed(domain.DropReasonQueueFull); got != 0 {
		t.Errorf("Suppressed(queue_full) = %d, want 0", got)
	}
}

func TestDiagnosticEmitter_Flush(t *testing.T) {
	var buf bytes.Buffer
	d := NewDiagnosticEmitter(zerolog.New(&buf), time.Hour)

	d.OnRecordsDropped(domain.DropReasonClosed, 1)
	d.OnRecordsDropped(domain.DropReasonClosed, 4)
	if got := d.Suppressed(domain.DropReasonClosed); got != 4 {
		t.Fatalf("Suppressed(closed) = %d, want 4", got)
	}

	d.Flush()
	if got := d.Suppressed(domain.DropReasonClosed); got != 0 {
		t.Errorf("Suppressed(closed) after Flush = %d, want 0", got)
	}
	if !strings.Contains(buf.String(), `"reason":"closed","records":4`) {
		t.Errorf("flushed count missing: %s", buf.String())
	}

	buf.Reset()
	d.Flush()
	if buf.Len() != 0 {
		t.Errorf("second Flush wrote %q", buf.String())
	}
}

func TestDiagnosticEmitter_DeliveryFailure(t *testing.T) {
	var buf bytes.Buffer
	d := NewDiagnosticEmitter(zerolog.New(&buf), time.Hour)

	d.OnDeliveryFailure(domain.DeliveryResult{
		BatchID:    "b-1",
		Records:    3,
		Outcome:    domain.OutcomeRejected,
		Attempts:   1,
		StatusCode: 403,
		Err:        errors.New("forbidden"),
	})

	out := buf.String()
	for _, want := range []string{`"status":403`, `"outcome":"rejected"`, `"error":"forbidden"`, `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf))

	z.Warn("send failed",
		ports.String("batch", "abc"),
		ports.Int("attempt", 2),
		ports.Err(errors.New("boom")),
	)

	out := buf.String()
	for _, want := range []string{`"batch":"abc"`, `"attempt":2`, `"error":"boom"`, `"message":"send failed"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

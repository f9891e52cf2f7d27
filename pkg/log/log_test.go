package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Warn("retrying",
		String("batch", "b-1"),
		Int("attempt", 2),
		Bool("final", false),
		Duration("delay", 250*time.Millisecond),
		Err(errors.New("connection reset")),
	)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}

	want := map[string]any{
		"level":   "warn",
		"message": "retrying",
		"batch":   "b-1",
		"attempt": float64(2),
		"final":   false,
		"error":   "connection reset",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if _, ok := got["delay"]; !ok {
		t.Error("delay field missing")
	}
}

func TestNoopLogger(t *testing.T) {
	logger := NewNoopLogger()

	// Should not panic
	logger.Debug("x", Any("k", struct{}{}))
	logger.Info("x")
	logger.Warn("x", Int64("n", 1))
	logger.Error("x", Err(nil))
}

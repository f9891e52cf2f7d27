package domain

import (
	"log/slog"
	"time"
)

// Level is the severity of a log record.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

// String returns the Datadog status string for the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return "info"
	}
}

// LevelFromSlog maps a slog level onto the closest Datadog status.
// Levels above slog.LevelError map to LevelCritical.
func LevelFromSlog(l slog.Level) Level {
	switch {
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	case l == slog.LevelError:
		return LevelError
	default:
		return LevelCritical
	}
}

// ParseLevel converts common level spellings to a Level.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG", "trace", "TRACE":
		return LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return LevelWarn
	case "error", "ERROR", "err":
		return LevelError
	case "critical", "CRITICAL", "fatal", "FATAL", "panic", "emergency", "alert":
		return LevelCritical
	default:
		return LevelInfo
	}
}

// LogRecord is a single, already-rendered unit of log data.
// A record must not be modified after it has been enqueued.
type LogRecord struct {
	// Timestamp is when the log call happened
	Timestamp time.Time

	// Level is the record severity
	Level Level

	// Message is the rendered log message
	Message string

	// Logger is the name of the emitting logger, if any
	Logger string

	// Service overrides the handler's service when non-empty
	Service string

	// Source overrides the handler's ddsource when non-empty
	Source string

	// Hostname overrides the handler's hostname when non-empty
	Hostname string

	// Tags are the enrichment tags in "key:value" form
	Tags []string

	// Attributes are structured extras flattened into the intake object
	Attributes map[string]any
}

// Clone returns a copy of the record that shares no mutable state with r.
func (r LogRecord) Clone() LogRecord {
	out := r
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.Attributes != nil {
		out.Attributes = make(map[string]any, len(r.Attributes))
		for k, v := range r.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

package ddlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/bft-labs/ddship/internal/domain"
)

// SlogOptions configures the slog.Handler returned by Handler.Slog.
type SlogOptions struct {
	// Level is the minimum level shipped. Default: slog.LevelInfo
	Level slog.Leveler

	// LoggerName overrides Config.LoggerName for records from this handler.
	LoggerName string
}

// Slog returns a slog.Handler that ships records through h.
//
// Attributes are flattened into the intake object; attributes inside groups
// use dotted keys ("http.status"). A "logger" attribute at the top level sets
// the record's logger name instead of becoming an attribute.
func (h *Handler) Slog(opts *SlogOptions) slog.Handler {
	sh := &slogHandler{h: h}
	if opts != nil {
		sh.level = opts.Level
		sh.logger = opts.LoggerName
	}
	if sh.level == nil {
		sh.level = slog.LevelInfo
	}
	return sh
}

type slogHandler struct {
	h      *Handler
	level  slog.Leveler
	logger string
	attrs  map[string]any
	prefix string
}

func (s *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= s.level.Level()
}

// Handle never returns an error; records that cannot be queued are reported
// through the diagnostic channel.
func (s *slogHandler) Handle(_ context.Context, r slog.Record) error {
	rec := Record{
		Timestamp: r.Time,
		Level:     domain.LevelFromSlog(r.Level),
		Message:   r.Message,
		Logger:    s.logger,
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	attrs := make(map[string]any, len(s.attrs)+r.NumAttrs())
	for k, v := range s.attrs {
		attrs[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		if s.prefix == "" && a.Key == "logger" {
			if name, ok := a.Value.Resolve().Any().(string); ok {
				rec.Logger = name
				return true
			}
		}
		addAttr(attrs, s.prefix, a)
		return true
	})
	if len(attrs) > 0 {
		rec.Attributes = attrs
	}

	s.h.enqueueOwned(s.h.Prepare(rec))
	return nil
}

func (s *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	next := *s
	next.attrs = make(map[string]any, len(s.attrs)+len(attrs))
	for k, v := range s.attrs {
		next.attrs[k] = v
	}
	for _, a := range attrs {
		if s.prefix == "" && a.Key == "logger" {
			if name, ok := a.Value.Resolve().Any().(string); ok {
				next.logger = name
				continue
			}
		}
		addAttr(next.attrs, s.prefix, a)
	}
	return &next
}

func (s *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	next := *s
	next.prefix = s.prefix + name + "."
	return &next
}

// addAttr flattens a into dst under prefix.
func addAttr(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		group := v.Group()
		if len(group) == 0 {
			return
		}
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range group {
			addAttr(dst, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}

	key := prefix + a.Key
	switch v.Kind() {
	case slog.KindTime:
		dst[key] = v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		dst[key] = v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			dst[key] = err.Error()
			return
		}
		dst[key] = v.Any()
	default:
		dst[key] = v.Any()
	}
}

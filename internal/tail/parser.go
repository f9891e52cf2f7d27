package tail

import (
	"strings"
	"time"

	"github.com/valyala/fastjson"

	"github.com/bft-labs/ddship/internal/domain"
)

// Parser converts raw lines into records. It is not safe for concurrent use.
type Parser struct {
	// JSON parses object lines into fields; other lines stay plain text
	JSON bool

	// Level is used when a line does not carry its own level
	Level domain.Level

	// Logger is used when a line does not carry its own logger name
	Logger string

	p   fastjson.Parser
	now func() time.Time
}

// NewParser creates a parser.
func NewParser(json bool, level domain.Level, logger string) *Parser {
	return &Parser{JSON: json, Level: level, Logger: logger, now: time.Now}
}

// Parse renders line as a record. The bool is false for blank lines.
func (p *Parser) Parse(line string) (domain.LogRecord, bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return domain.LogRecord{}, false
	}

	rec := domain.LogRecord{
		Timestamp: p.now(),
		Level:     p.Level,
		Message:   line,
		Logger:    p.Logger,
	}
	if !p.JSON {
		return rec, true
	}

	v, err := p.p.Parse(line)
	if err != nil || v.Type() != fastjson.TypeObject {
		return rec, true
	}
	obj, _ := v.Object()

	attrs := make(map[string]any)
	obj.Visit(func(key []byte, v *fastjson.Value) {
		k := string(key)
		switch k {
		case "message", "msg":
			if s, ok := stringValue(v); ok {
				rec.Message = s
				return
			}
		case "level", "status", "severity":
			if s, ok := stringValue(v); ok {
				rec.Level = domain.ParseLevel(strings.ToLower(s))
				return
			}
		case "timestamp", "time", "ts":
			if ts, ok := timeValue(v); ok {
				rec.Timestamp = ts
				return
			}
		case "logger", "logger.name":
			if s, ok := stringValue(v); ok {
				rec.Logger = s
				return
			}
		}
		attrs[k] = toAny(v)
	})
	if len(attrs) > 0 {
		rec.Attributes = attrs
	}
	return rec, true
}

func stringValue(v *fastjson.Value) (string, bool) {
	if v.Type() != fastjson.TypeString {
		return "", false
	}
	return string(v.GetStringBytes()), true
}

// timeValue accepts RFC 3339 strings and unix timestamps in seconds or
// milliseconds.
func timeValue(v *fastjson.Value) (time.Time, bool) {
	switch v.Type() {
	case fastjson.TypeString:
		t, err := time.Parse(time.RFC3339Nano, string(v.GetStringBytes()))
		return t, err == nil
	case fastjson.TypeNumber:
		f := v.GetFloat64()
		if f > 1e12 {
			return time.UnixMilli(int64(f)), true
		}
		return time.Unix(0, int64(f*float64(time.Second))), true
	default:
		return time.Time{}, false
	}
}

// toAny converts a fastjson value into plain Go values.
func toAny(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return i
		}
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeArray:
		items := v.GetArray()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = toAny(item)
		}
		return out
	case fastjson.TypeObject:
		out := make(map[string]any)
		o, _ := v.Object()
		o.Visit(func(key []byte, v *fastjson.Value) {
			out[string(key)] = toAny(v)
		})
		return out
	default:
		return nil
	}
}

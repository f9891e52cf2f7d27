package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/ddship/internal/domain"
	"github.com/bft-labs/ddship/internal/ports"
)

const (
	// DefaultSite is the Datadog site used when none is configured.
	DefaultSite = "datadoghq.com"

	intakePath = "/api/v2/logs"

	// maxBodyExcerpt bounds how much of an error response is kept.
	maxBodyExcerpt = 512
)

// EndpointForSite returns the logs intake URL for a Datadog site.
func EndpointForSite(site string) string {
	if site == "" {
		site = DefaultSite
	}
	return "https://http-intake.logs." + site + intakePath
}

// SenderConfig holds the request-level settings of the intake sender.
type SenderConfig struct {
	Endpoint string
	APIKey   string

	// Service, Source and Hostname fill records that leave them empty
	Service  string
	Source   string
	Hostname string

	// Compress gzips the request body
	Compress bool

	UserAgent string
}

// IntakeSender implements ports.BatchSender against the Datadog logs intake.
type IntakeSender struct {
	client ports.HTTPClient
	config SenderConfig
	logger ports.Logger
}

// NewIntakeSender creates a new intake sender.
func NewIntakeSender(client ports.HTTPClient, config SenderConfig, logger ports.Logger) *IntakeSender {
	if config.Endpoint == "" {
		config.Endpoint = EndpointForSite("")
	}
	if config.UserAgent == "" {
		config.UserAgent = "ddship (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
	}
	return &IntakeSender{
		client: client,
		config: config,
		logger: logger,
	}
}

// Send posts the batch as one JSON array. Non-2xx responses are returned
// with a nil error; only encode and transport failures produce an error.
func (s *IntakeSender) Send(ctx context.Context, batch *domain.Batch) (*domain.Response, error) {
	payload, sanitized, err := Encode(batch, s.config)
	if err != nil {
		return nil, err
	}
	if sanitized > 0 {
		s.logger.Warn("attribute values replaced with strings",
			ports.String("batch", batch.ID.String()),
			ports.Int("values", sanitized),
		)
	}

	var body bytes.Buffer
	if s.config.Compress {
		zw := gzip.NewWriter(&body)
		if _, err := zw.Write(payload); err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", domain.ErrEncode, err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", domain.ErrEncode, err)
		}
	} else {
		body.Write(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("DD-API-KEY", s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.config.UserAgent)
	if s.config.Compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	s.logger.Debug("posting batch",
		ports.String("batch", batch.ID.String()),
		ports.Int("records", batch.Size()),
		ports.Int("bytes", body.Len()),
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	out := &domain.Response{StatusCode: resp.StatusCode}
	if resp.StatusCode/100 != 2 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyExcerpt))
		out.Body = strings.TrimSpace(string(excerpt))
	}
	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	return out, nil
}

// reserved keys always come from the record, never from its attributes.
var reserved = []string{"message", "ddsource", "service", "ddtags", "hostname", "status", "timestamp", "logger.name"}

// Encode renders the batch as the intake JSON array. Empty Service, Source
// and Hostname fields fall back to defaults. Attributes are flattened into
// each object; reserved keys win over attributes with the same name.
//
// Each record is encoded on its own. Attribute values JSON cannot represent
// (NaN, channels, funcs) are replaced with their fmt.Sprint form so one bad
// value never costs the rest of the batch. The int result counts them.
func Encode(batch *domain.Batch, defaults SenderConfig) ([]byte, int, error) {
	var buf bytes.Buffer
	sanitized := 0

	buf.WriteByte('[')
	for i, r := range batch.Records {
		if i > 0 {
			buf.WriteByte(',')
		}
		e := entry(r, defaults)
		data, err := json.Marshal(e)
		if err != nil {
			sanitized += sanitize(e)
			if data, err = json.Marshal(e); err != nil {
				return nil, sanitized, fmt.Errorf("%w: record %d: %v", domain.ErrEncode, i, err)
			}
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), sanitized, nil
}

// sanitize replaces every value of e that does not encode with its string
// form and returns how many it replaced.
func sanitize(e map[string]any) int {
	n := 0
	for k, v := range e {
		if _, err := json.Marshal(v); err == nil {
			continue
		}
		e[k] = fmt.Sprint(v)
		n++
	}
	return n
}

func entry(r domain.LogRecord, defaults SenderConfig) map[string]any {
	e := make(map[string]any, len(r.Attributes)+len(reserved))
	for k, v := range r.Attributes {
		e[k] = v
	}
	for _, k := range reserved {
		delete(e, k)
	}

	e["message"] = r.Message
	e["ddsource"] = firstNonEmpty(r.Source, defaults.Source)
	e["service"] = firstNonEmpty(r.Service, defaults.Service)
	e["ddtags"] = strings.Join(r.Tags, ",")
	e["status"] = r.Level.String()
	e["timestamp"] = r.Timestamp.UnixMilli()
	if host := firstNonEmpty(r.Hostname, defaults.Hostname); host != "" {
		e["hostname"] = host
	}
	if r.Logger != "" {
		e["logger.name"] = r.Logger
	}
	return e
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

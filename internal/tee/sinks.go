package tee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
)

// HTTPSink POSTs each envelope as JSON to a configured URL with configurable
// method and headers and a hard timeout.
type HTTPSink struct {
	URL     string
	Method  string
	Headers map[string]string
	Client  *http.Client
}

func NewHTTPSink(url string) *HTTPSink {
	return &HTTPSink{URL: url, Method: http.MethodPost, Client: http.DefaultClient}
}

func (s *HTTPSink) Send(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(envelopeJSON(env))
	if err != nil {
		return fmt.Errorf("tee: marshal envelope: %w", err)
	}

	method := s.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, s.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("tee: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("tee: dispatch http sink: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("tee: http sink returned status %d", resp.StatusCode)
	}
	return nil
}

func envelopeJSON(env Envelope) map[string]any {
	return map[string]any{
		"channel":   env.ChannelName,
		"request":   json.RawMessage(orEmpty(env.Request)),
		"response":  json.RawMessage(orEmpty(env.Response)),
		"success":   env.Success,
		"error":     env.Error,
		"timestamp": env.Timestamp,
	}
}

func orEmpty(b []byte) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}

// fileWriteLocks serializes writes per file path so envelopes from parallel
// destinations sharing a path never interleave.
var fileWriteLocks sync.Map // map[string]*sync.Mutex

func lockFor(path string) *sync.Mutex {
	v, _ := fileWriteLocks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// FileSink appends newline-delimited JSON to Path, creating the parent
// directory if missing.
type FileSink struct {
	Path string
}

func NewFileSink(path string) *FileSink { return &FileSink{Path: path} }

func (s *FileSink) Send(_ context.Context, env Envelope) error {
	lock := lockFor(s.Path)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("tee: create parent dir: %w", err)
	}

	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("tee: open file sink: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(envelopeJSON(env))
	if err != nil {
		return fmt.Errorf("tee: marshal envelope: %w", err)
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("tee: write file sink: %w", err)
	}
	return nil
}

// CustomHandler is a named or path-referenced handler a CustomSink invokes.
type CustomHandler func(ctx context.Context, env Envelope) error

// CustomSink wraps an operator-registered handler function.
type CustomSink struct {
	Name    string
	Handler CustomHandler
}

func NewCustomSink(name string, handler CustomHandler) *CustomSink {
	return &CustomSink{Name: name, Handler: handler}
}

func (s *CustomSink) Send(ctx context.Context, env Envelope) error {
	if s.Handler == nil {
		return fmt.Errorf("tee: custom sink %q has no handler", s.Name)
	}
	return s.Handler(ctx, env)
}

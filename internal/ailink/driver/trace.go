package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TraceEntry is one NDJSON line describing an outbound provider call.
// Prompts are recorded by size only.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	Endpoint    string          `json:"endpoint"`
	Model       string          `json:"model,omitempty"`
	PromptChars int             `json:"prompt_chars"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// Tracer appends entries to a writer.
type Tracer struct {
	mu sync.Mutex
	w  io.WriteCloser
}

var (
	activeTracer *Tracer
	tracerMu     sync.Mutex
)

// NewTracer wraps w.
func NewTracer(w io.WriteCloser) *Tracer {
	return &Tracer{w: w}
}

// EnableTracing appends traces to the file at path until the returned
// function is called.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	SetTracer(NewTracer(f))
	return func() { SetTracer(nil) }, nil
}

// SetTracer replaces the active tracer, closing the previous one.
func SetTracer(t *Tracer) {
	tracerMu.Lock()
	prev := activeTracer
	activeTracer = t
	tracerMu.Unlock()

	if prev != nil && prev != t {
		_ = prev.Close()
	}
}

// Trace records entry when tracing is enabled.
func Trace(entry TraceEntry) {
	tracerMu.Lock()
	t := activeTracer
	tracerMu.Unlock()

	t.Write(entry)
}

// Write encodes entry as one JSON line.
func (t *Tracer) Write(entry TraceEntry) {
	if t == nil || t.w == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if len(entry.Response) > 0 && !json.Valid(entry.Response) {
		quoted, err := json.Marshal(string(entry.Response))
		if err != nil {
			return
		}
		entry.Response = quoted
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.w.Write(data)
}

// Close closes the underlying writer.
func (t *Tracer) Close() error {
	if t == nil || t.w == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Close()
}

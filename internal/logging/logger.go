// Package logging writes structured JSON-lines events describing codec and
// cracking runs. Events go to stderr by default so stdout stays free for
// codec output.
package logging

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

type EventType string

const (
	EventEncodeWindow   EventType = "encode_window"
	EventEncodeDone     EventType = "encode_done"
	EventCrackResult    EventType = "crack_result"
	EventDetectResult   EventType = "detect_result"
	EventPipelineRun    EventType = "pipeline_run"
	EventRPCCall        EventType = "rpc_call"
	EventDecodeError    EventType = "decode_error"
	EventUpdateApplied  EventType = "update_applied"
	EventUpdateRollback EventType = "update_rollback"
)

type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"
)

type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Component string         `json:"component"`
	EventType EventType      `json:"event_type"`
	Operation string         `json:"operation,omitempty"`
	Outcome   Outcome        `json:"outcome,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

type Option func(*config) error

type config struct {
	writers          []io.Writer
	closers          []io.Closer
	useDefaultWriter bool
}

func defaultConfig() *config {
	return &config{writers: []io.Writer{os.Stderr}, useDefaultWriter: true}
}

// WithWriter adds w as an event sink.
func WithWriter(w io.Writer) Option {
	return func(cfg *config) error {
		if w == nil {
			return errors.New("writer cannot be nil")
		}
		cfg.writers = append(cfg.writers, w)
		return nil
	}
}

// WithFile appends events to the file at path, creating it if needed.
func WithFile(path string) Option {
	return func(cfg *config) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("file path cannot be empty")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		cfg.writers = append(cfg.writers, f)
		cfg.closers = append(cfg.closers, f)
		return nil
	}
}

// WithoutStderr drops the default stderr sink.
func WithoutStderr() Option {
	return func(cfg *config) error {
		cfg.useDefaultWriter = false
		filtered := cfg.writers[:0]
		for _, w := range cfg.writers {
			if w == os.Stderr {
				continue
			}
			filtered = append(filtered, w)
		}
		cfg.writers = filtered
		return nil
	}
}

type core struct {
	mu      sync.Mutex
	encoder *json.Encoder
	closers []io.Closer
}

// Logger emits Events. Loggers derived through WithComponent share one
// encoder and may be used concurrently.
type Logger struct {
	component   string
	core        *core
	ownsClosers bool
}

func New(component string, opts ...Option) (*Logger, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			for _, closer := range cfg.closers {
				_ = closer.Close()
			}
			return nil, err
		}
	}
	if !cfg.useDefaultWriter && len(cfg.writers) == 0 {
		return nil, errors.New("no writers configured for logger")
	}
	enc := json.NewEncoder(io.MultiWriter(cfg.writers...))
	enc.SetEscapeHTML(false)
	return &Logger{
		component:   component,
		core:        &core{encoder: enc, closers: cfg.closers},
		ownsClosers: true,
	}, nil
}

func MustNew(component string, opts ...Option) *Logger {
	logger, err := New(component, opts...)
	if err != nil {
		panic(err)
	}
	return logger
}

// Nop returns a logger that discards every event.
func Nop() *Logger {
	return MustNew("nop", WithoutStderr(), WithWriter(io.Discard))
}

func (l *Logger) Close() error {
	if l == nil || !l.ownsClosers || l.core == nil {
		return nil
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	var firstErr error
	for _, closer := range l.core.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.core.closers = nil
	return firstErr
}

func (l *Logger) Emit(event Event) error {
	if l == nil {
		return errors.New("nil logger")
	}
	if l.core == nil {
		return errors.New("nil logger core")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	} else {
		event.Timestamp = event.Timestamp.UTC()
	}
	if event.Component == "" {
		event.Component = l.component
	}
	if event.Outcome == "" {
		event.Outcome = OutcomeOK
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.encoder.Encode(event)
}

// Error emits an error-outcome event carrying err as the reason.
func (l *Logger) Error(eventType EventType, operation string, err error, metadata map[string]any) error {
	event := Event{EventType: eventType, Operation: operation, Outcome: OutcomeError, Metadata: metadata}
	if err != nil {
		event.Reason = err.Error()
	}
	return l.Emit(event)
}

func (l *Logger) WithComponent(component string) *Logger {
	if l == nil || l.core == nil {
		return nil
	}
	return &Logger{component: component, core: l.core, ownsClosers: false}
}

// NewSlog returns the operational logger used by long-running services.
func NewSlog(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}

package processinglog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Sink receives processing log events. Implementations must be safe for
// concurrent use: one predicate is evaluated from many goroutines.
type Sink interface {
	Emit(Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) error

func (f SinkFunc) Emit(ev Event) error { return f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) error { return nil })

// SlogSink writes events to a structured logger.
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogSink creates a sink logging at level. A nil logger uses slog.Default().
func NewSlogSink(logger *slog.Logger, level slog.Level) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger, level: level}
}

func (s *SlogSink) Emit(ev Event) error {
	attrs := []slog.Attr{
		slog.String("id", ev.ID.String()),
		slog.String("type", ev.Type),
		slog.String("expression", ev.Expression),
	}
	if ev.Record != nil {
		attrs = append(attrs, slog.String("record", *ev.Record))
	}
	s.logger.LogAttrs(context.Background(), s.level, ev.Message, attrs...)
	return nil
}

// Collector keeps events in memory.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *Collector) Emit(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Len returns the number of collected events.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Reset drops collected events.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// MultiSink emits each event to every sink. All sinks are tried; their
// errors are joined.
type MultiSink []Sink

func (m MultiSink) Emit(ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

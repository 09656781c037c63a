// Package tracing times the stages of a request as a tree of spans carried
// in the context. A finished tree is written as one structured log record.
package tracing

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

type spanKey struct{}

type Span struct {
	name    string
	traceID string
	start   time.Time

	mu       sync.Mutex
	duration time.Duration
	attrs    []slog.Attr
	children []*Span
}

// StartSpan opens a root span tagged with traceID, usually the request ID.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	s := &Span{name: name, traceID: traceID, start: time.Now()}
	return context.WithValue(ctx, spanKey{}, s), s
}

// StartChildSpan opens a span under the one in ctx. With no parent the span
// still times its work but belongs to no tree.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{name: name, start: time.Now()}
	if parent := SpanFromContext(ctx); parent != nil {
		s.traceID = parent.traceID
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

func (s *Span) End() {
	d := time.Since(s.start)
	s.mu.Lock()
	s.duration = d
	s.mu.Unlock()
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

func (s *Span) TraceID() string { return s.traceID }

func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// LogValue renders the span and its children as nested groups, so a span
// can be passed straight to a slog call.
func (s *Span) LogValue() slog.Value {
	s.mu.Lock()
	attrs := make([]slog.Attr, 0, len(s.attrs)+3)
	attrs = append(attrs,
		slog.String("name", s.name),
		slog.Float64("ms", float64(s.duration.Microseconds())/1000),
	)
	attrs = append(attrs, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	for i, c := range children {
		attrs = append(attrs, slog.Any("child"+strconv.Itoa(i), c))
	}
	return slog.GroupValue(attrs...)
}

// Log writes the whole tree as one "trace" record.
func (s *Span) Log(logger *slog.Logger) {
	logger.Info("trace", "trace_id", s.traceID, "span", s)
}

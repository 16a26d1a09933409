// Package tracing times the phases of a build or categorization run. Spans
// nest through the context and the finished tree is logged with slog, tagged
// with the run id.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/logger"
)

type contextKey struct{}

// Span represents one timed phase.
type Span struct {
	Name      string
	StartTime time.Time
	Duration  time.Duration

	mu       sync.Mutex
	children []*Span
	attrs    []any
	ended    bool
}

// Start begins a span named name. If ctx already carries a span, the new one
// becomes its child.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, StartTime: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// FromContext returns the innermost span in ctx, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// End fixes the span's duration. Later calls are ignored.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.Duration = time.Since(s.StartTime)
}

// SetAttr attaches a key-value attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// Children returns the direct child spans in start order.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log ends the span if needed and writes it and its descendants at debug
// level, or info for the root.
func (s *Span) Log(ctx context.Context) {
	s.End()
	s.log(logger.FromContext(ctx).With("component", "tracing"), 0)
}

func (s *Span) log(l *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := append([]any{
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
		"depth", depth,
	}, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	level := slog.LevelDebug
	if depth == 0 {
		level = slog.LevelInfo
	}
	l.Log(context.Background(), level, "span", attrs...)
	for _, child := range children {
		child.End()
		child.log(l, depth+1)
	}
}

// Package trace provides request-scoped tracing for HTTP handlers: a request
// id propagated via the X-Request-ID header plus lightweight timed spans,
// both surfaced through slog.
package trace

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request id across service boundaries.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

var requestIDKey = ctxKey{}

// NewRequestID generates a fresh request id.
func NewRequestID() string {
	return uuid.NewString()
}

// FromContext extracts the request id, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// WithRequestID injects a request id into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// EnsureRequestID returns the existing request id or attaches a new one.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id, ok := FromContext(ctx); ok {
		return ctx, id
	}
	id := NewRequestID()
	return WithRequestID(ctx, id), id
}

// Logger returns a slog.Logger annotated with the request id.
func Logger(ctx context.Context) *slog.Logger {
	id, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	return slog.Default().With("request_id", id)
}

// Span is a timed operation within a request.
type Span struct {
	Name      string
	RequestID string
	StartTime time.Time
	Attrs     map[string]any
}

// StartSpan begins a timed span tied to the request.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	ctx, id := EnsureRequestID(ctx)
	return ctx, &Span{
		Name:      name,
		RequestID: id,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
}

// SetAttr sets a span attribute.
func (s *Span) SetAttr(key string, val any) {
	s.Attrs[key] = val
}

// End logs the span with its duration and attributes.
func (s *Span) End() {
	args := make([]any, 0, 4+2*len(s.Attrs))
	args = append(args, "request_id", s.RequestID, "duration", time.Since(s.StartTime))
	for k, v := range s.Attrs {
		args = append(args, k, v)
	}
	slog.Debug("span "+s.Name, args...)
}

package monitoring

import (
	"context"
	"log/slog"
	"time"
)

// Span represents a single traced operation.
type Span interface {
	End()
}

// slogSpan logs structured start/end events through slog instead of
// stdout, so trace events land in the same JSON stream as every other
// log line. No span IDs are injected into the context — a real OTel
// setup would do that; this is the budget version.
type slogSpan struct {
	name      string
	startTime time.Time
	attrs     []any
}

func (s *slogSpan) End() {
	slog.Debug("span finished",
		append([]any{"span", s.name, "duration", time.Since(s.startTime)}, s.attrs...)...,
	)
}

// Start begins a span named name with the given key/value attributes,
// logged at span start and again at span end.
func Start(ctx context.Context, name string, attrs ...any) (context.Context, Span) {
	slog.Debug("span started", append([]any{"span", name}, attrs...)...)
	return ctx, &slogSpan{name: name, startTime: time.Now(), attrs: attrs}
}

package log

import (
	"context"
	"log/slog"

	"github.com/marketboard/ad-scheduler/internal/requestid"
)

// ContextHandler decorates every record with values carried in the
// request context (currently the request ID) before delegating to the
// wrapped handler. Records emitted outside a request pass through
// untouched.
type ContextHandler struct {
	inner slog.Handler
}

var _ slog.Handler = (*ContextHandler)(nil)

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.From(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

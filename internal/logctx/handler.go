package logctx

import (
	"context"
	"log/slog"
)

// Logger returns a logger that stamps every record with the cursor's values
// at the time the record is handled.
func (c *Cursor) Logger(base *slog.Logger) *slog.Logger {
	return slog.New(&handler{next: base.Handler(), cursor: c})
}

type handler struct {
	next   slog.Handler
	cursor *Cursor
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	r = r.Clone()
	r.AddAttrs(h.cursor.Attrs()...)
	return h.next.Handle(ctx, r)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{next: h.next.WithAttrs(attrs), cursor: h.cursor}
}

// WithGroup nests later attributes, including the cursor fields.
func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{next: h.next.WithGroup(name), cursor: h.cursor}
}

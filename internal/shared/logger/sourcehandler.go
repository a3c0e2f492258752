package logger

import (
	"context"
	"log/slog"
	"runtime"
)

type sourceHandler struct {
	handler  slog.Handler
	minLevel slog.Leveler
}

// NewSourceHandler wraps a handler so that records at or above minLevel carry
// the caller's source location. The wrapped handler should be built with
// AddSource: false.
func NewSourceHandler(handler slog.Handler, minLevel slog.Leveler) slog.Handler {
	return &sourceHandler{
		handler:  handler,
		minLevel: minLevel,
	}
}

func (h *sourceHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.minLevel.Level() {
		src := recordSource(r)
		if src == nil {
			// skip Handle and the slog frame that called it
			var pcs [1]uintptr
			runtime.Callers(3, pcs[:])
			f, _ := runtime.CallersFrames(pcs[:]).Next()
			src = &slog.Source{Function: f.Function, File: f.File, Line: f.Line}
		}
		r.AddAttrs(slog.Any(slog.SourceKey, src))
	}
	return h.handler.Handle(ctx, r)
}

// recordSource resolves the program counter slog captured for the record.
func recordSource(r slog.Record) *slog.Source {
	if r.PC == 0 {
		return nil
	}
	f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
	if f.File == "" {
		return nil
	}
	return &slog.Source{Function: f.Function, File: f.File, Line: f.Line}
}

func (h *sourceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sourceHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *sourceHandler) WithGroup(name string) slog.Handler {
	return &sourceHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func (h *sourceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

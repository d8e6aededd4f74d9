package logging

import (
	"context"
	"errors"
	"log/slog"
)

// multiHandler forwards each record to every sink so the console and the
// daemon log file render the same stream independently.
type multiHandler struct {
	sinks []slog.Handler
}

// newMultiHandler combines sinks into a single handler. Nil sinks are
// dropped; a single survivor is returned unwrapped.
func newMultiHandler(sinks ...slog.Handler) slog.Handler {
	kept := make([]slog.Handler, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	switch len(kept) {
	case 0:
		return NoopHandler{}
	case 1:
		return kept[0]
	default:
		return &multiHandler{sinks: kept}
	}
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range h.sinks {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, sink := range h.sinks {
		if !sink.Enabled(ctx, record.Level) {
			continue
		}
		if err := sink.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		sinks[i] = sink.WithAttrs(attrs)
	}
	return &multiHandler{sinks: sinks}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		sinks[i] = sink.WithGroup(name)
	}
	return &multiHandler{sinks: sinks}
}

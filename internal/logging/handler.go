package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// MultiHandler fans out log records to multiple handlers.
type MultiHandler []slog.Handler

// NewMultiHandler creates a handler that writes to all provided handlers.
func NewMultiHandler(handlers ...slog.Handler) MultiHandler {
	return MultiHandler(handlers)
}

// Enabled implements slog.Handler.
func (m MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(m, func(h slog.Handler) bool {
		return h.Enabled(ctx, level)
	})
}

// Handle implements slog.Handler. A failing handler does not keep the
// record from the others; the failures are joined.
func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (m MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m MultiHandler) derive(fn func(slog.Handler) slog.Handler) MultiHandler {
	out := make(MultiHandler, len(m))
	for i, h := range m {
		out[i] = fn(h)
	}
	return out
}

// scope carries the level, preset attributes and open groups for the
// journal and buffer handlers. Each preset attribute remembers the groups
// open when it was added, so With before WithGroup stays ungrouped.
type scope struct {
	level  slog.Leveler
	preset []scopedAttr
	groups []string
}

type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

func (s scope) enabled(level slog.Level) bool {
	return level >= s.level.Level()
}

func (s scope) withAttrs(attrs []slog.Attr) scope {
	preset := make([]scopedAttr, len(s.preset), len(s.preset)+len(attrs))
	copy(preset, s.preset)
	for _, a := range attrs {
		preset = append(preset, scopedAttr{groups: s.groups, attr: a})
	}
	s.preset = preset
	return s
}

func (s scope) withGroup(name string) scope {
	if name != "" {
		s.groups = append(slices.Clip(s.groups), name)
	}
	return s
}

// each visits the preset attributes, then the record's own.
func (s scope) each(r slog.Record, fn func(groups []string, a slog.Attr)) {
	for _, p := range s.preset {
		fn(p.groups, p.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		fn(s.groups, a)
		return true
	})
}

// internal/logging/bus_handler.go
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/events"
)

// SourceKey is the attribute used as LogMessage.Source.
const SourceKey = "component"

// BusHandler forwards every enabled record to a wrapped handler and
// publishes it on the bus as a LogMessage.
type BusHandler struct {
	next   slog.Handler
	bus    *events.Bus
	source string
	attrs  []boundAttr
	group  string
}

// boundAttr keeps the group that was open when the attr was bound.
type boundAttr struct {
	group string
	attr  slog.Attr
}

func NewBusHandler(next slog.Handler, bus *events.Bus) *BusHandler {
	return &BusHandler{next: next, bus: bus}
}

func (h *BusHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *BusHandler) Handle(ctx context.Context, r slog.Record) error {
	source := h.source
	var b strings.Builder
	b.WriteString(r.Message)

	write := func(group string, a slog.Attr) {
		if a.Key == SourceKey && group == "" {
			source = a.Value.String()
			return
		}
		key := a.Key
		if group != "" {
			key = group + "." + key
		}
		fmt.Fprintf(&b, " %s=%v", key, a.Value.Any())
	}

	for _, ba := range h.attrs {
		write(ba.group, ba.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(h.group, a)
		return true
	})

	h.bus.Publish(events.LogMessage{
		Time:   r.Time,
		Source: source,
		Level:  r.Level.String(),
		Text:   b.String(),
	})

	return h.next.Handle(ctx, r)
}

func (h *BusHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.next = h.next.WithAttrs(attrs)
	for _, a := range attrs {
		if a.Key == SourceKey && h.group == "" {
			c.source = a.Value.String()
			continue
		}
		c.attrs = append(c.attrs, boundAttr{group: h.group, attr: a})
	}
	return c
}

func (h *BusHandler) WithGroup(name string) slog.Handler {
	c := h.clone()
	c.next = h.next.WithGroup(name)
	if c.group == "" {
		c.group = name
	} else {
		c.group = c.group + "." + name
	}
	return c
}

func (h *BusHandler) clone() *BusHandler {
	c := *h
	c.attrs = append([]boundAttr(nil), h.attrs...)
	return &c
}

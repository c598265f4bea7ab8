// Package log forwards slog records to the running TUI and keeps the most
// recent ones for the log view.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// keep is how many records Logs returns.
const keep = 20

// LogMsg is a tea.Msg that represents a log message.
type LogMsg slog.Record

type sink struct {
	mu   sync.Mutex
	send func(tea.Msg)
	logs []slog.Record
}

// TUIHandler is a slog.Handler that sends log messages to a tea.Program.
type TUIHandler struct {
	slog.Handler
	sink *sink
}

// NewTUIHandler wraps handler. Records are forwarded with send when it is not nil.
func NewTUIHandler(handler slog.Handler, send func(tea.Msg)) *TUIHandler {
	return &TUIHandler{
		Handler: handler,
		sink:    &sink{send: send},
	}
}

// Enabled also lets through records at warning level and above, so the TUI
// hears about them even when the base handler discards them.
func (h *TUIHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn || h.Handler.Enabled(ctx, level)
}

// Handle stores the record, sends it to the program and passes it on.
func (h *TUIHandler) Handle(ctx context.Context, r slog.Record) error {
	h.sink.mu.Lock()
	h.sink.logs = append(h.sink.logs, r.Clone())
	if len(h.sink.logs) > keep {
		h.sink.logs = h.sink.logs[1:]
	}
	send := h.sink.send
	h.sink.mu.Unlock()

	if send != nil {
		send(LogMsg(r))
	}
	if !h.Handler.Enabled(ctx, r.Level) {
		return nil
	}
	return h.Handler.Handle(ctx, r)
}

func (h *TUIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TUIHandler{Handler: h.Handler.WithAttrs(attrs), sink: h.sink}
}

func (h *TUIHandler) WithGroup(name string) slog.Handler {
	return &TUIHandler{Handler: h.Handler.WithGroup(name), sink: h.sink}
}

// Logs returns the stored log messages, oldest first.
func (h *TUIHandler) Logs() []slog.Record {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return append([]slog.Record(nil), h.sink.logs...)
}

// OpenDebugFile truncates and opens path for a debug log. The caller closes it.
func OpenDebugFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening debug log: %w", err)
	}
	return f, nil
}

// NewBaseHandler returns a text handler writing to w at level, or a handler
// that drops everything when w is nil.
func NewBaseHandler(w io.Writer, level slog.Level) slog.Handler {
	if w == nil {
		return slog.DiscardHandler
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

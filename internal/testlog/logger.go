// Package testlog provides slog loggers that write through [testing.T].
package testlog

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

type options struct {
	writers    []io.Writer
	handlerOpt *slog.HandlerOptions
}

type Option func(*options)

func WithSlogHandlerOptions(handlerOpt *slog.HandlerOptions) Option {
	return func(opt *options) {
		opt.handlerOpt = handlerOpt
	}
}

// WithWriters copies every record to the given writers as well as t.Log.
func WithWriters(writers ...io.Writer) Option {
	return func(opt *options) {
		opt.writers = append(opt.writers, writers...)
	}
}

// New creates a slog text logger that outputs to t.Log.
// Debug records are enabled unless handler options say otherwise.
func New(t testing.TB, opts ...Option) *slog.Logger {
	t.Helper()

	opt := options{
		handlerOpt: &slog.HandlerOptions{Level: slog.LevelDebug},
	}
	for _, fn := range opts {
		if fn != nil {
			fn(&opt)
		}
	}

	state := &lineBuffer{}
	w := io.MultiWriter(append([]io.Writer{&state.buf}, opt.writers...)...)

	return slog.New(&handler{
		t:        t,
		delegate: slog.NewTextHandler(w, opt.handlerOpt),
		state:    state,
	})
}

// lineBuffer is shared by a handler and every handler derived from it.
type lineBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

type handler struct {
	t        testing.TB
	delegate slog.Handler
	state    *lineBuffer
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.delegate.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()

	if err := h.delegate.Handle(ctx, r); err != nil {
		return err
	}

	line := strings.TrimSuffix(h.state.buf.String(), "\n")
	h.state.buf.Reset()

	h.t.Helper()
	h.t.Log(line)

	return nil
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{t: h.t, delegate: h.delegate.WithAttrs(attrs), state: h.state}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{t: h.t, delegate: h.delegate.WithGroup(name), state: h.state}
}

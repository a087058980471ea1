package stdio

import (
	"io"
	"log/slog"
)

// Option customizes a Handler.
type Option func(*Handler)

// WithIO sets the reader and writer for the handler.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
		if w != nil {
			h.w = w
		}
	}
}

// WithLogger overrides the logger. Logs must not go to the output stream.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.l = l
		}
	}
}

// WithEnvironment sets the opaque environment passed to every handler.
func WithEnvironment(env any) Option {
	return func(h *Handler) { h.env = env }
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(h *Handler) {
		if id != "" {
			h.sessionID = id
		}
	}
}

// WithMaxLineBytes bounds a single input line. Values <= 0 keep the default.
func WithMaxLineBytes(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxLine = n
		}
	}
}

package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ggoodman/mcp-rpc-go/internal/engine"
	"github.com/ggoodman/mcp-rpc-go/internal/logctx"
	"github.com/google/uuid"
)

const defaultMaxLineBytes = 4 << 20

// Handler is a single-connection stdio transport that reads JSON-RPC bodies
// from an io.Reader, one per line, and writes one response line per body to
// an io.Writer. By default, it uses os.Stdin and os.Stdout.
type Handler struct {
	eng       *engine.Engine
	r         io.Reader
	w         io.Writer
	l         *slog.Logger
	env       any
	sessionID string
	maxLine   int
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(srv engine.Service, opts ...Option) *Handler {
	h := &Handler{
		r:         os.Stdin,
		w:         os.Stdout,
		l:         slog.Default(),
		sessionID: uuid.NewString(),
		maxLine:   defaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.l = logctx.Wrap(h.l)
	h.eng = engine.New(srv, engine.WithLogger(h.l))
	return h
}

// SessionID returns the id reported to handlers for this connection.
func (h *Handler) SessionID() string { return h.sessionID }

type line struct {
	b   []byte
	err error
}

// Serve runs the stdio loop until EOF on the reader (returning nil) or until
// ctx is canceled (returning ctx.Err()). Lines are processed in order; blank
// lines are ignored. It is safe to call at most once per Handler.
func (h *Handler) Serve(ctx context.Context) error {
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: h.sessionID, Transport: "stdio"})
	h.l.InfoContext(ctx, "stdio.serve.start")

	lines := make(chan line)
	done := make(chan struct{})
	defer close(done)

	go func() {
		sc := bufio.NewScanner(h.r)
		sc.Buffer(make([]byte, 0, min(64*1024, h.maxLine)), h.maxLine)
		for sc.Scan() {
			b := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line{b: b}:
			case <-done:
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		select {
		case lines <- line{err: err}:
		case <-done:
		}
	}()

	bw := bufio.NewWriter(h.w)
	for {
		select {
		case <-ctx.Done():
			h.l.InfoContext(ctx, "stdio.serve.cancelled")
			return ctx.Err()
		case ln := <-lines:
			if ln.err != nil {
				if errors.Is(ln.err, io.EOF) {
					h.l.InfoContext(ctx, "stdio.serve.eof")
					return nil
				}
				h.l.ErrorContext(ctx, "stdio.read.fail", slog.String("err", ln.err.Error()))
				return fmt.Errorf("stdio: read: %w", ln.err)
			}
			if len(bytes.TrimSpace(ln.b)) == 0 {
				continue
			}
			if err := h.handleLine(ctx, bw, ln.b); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) handleLine(ctx context.Context, bw *bufio.Writer, b []byte) error {
	payload, ok := h.eng.HandleBody(ctx, b, h.sessionID, h.env)
	if !ok {
		h.l.InfoContext(ctx, "stdio.line.parse_error")
	}
	out, err := json.Marshal(payload)
	if err != nil {
		h.l.ErrorContext(ctx, "stdio.encode.fail", slog.String("err", err.Error()))
		return fmt.Errorf("stdio: encode: %w", err)
	}
	out = append(out, '\n')
	if _, err := bw.Write(out); err != nil {
		return fmt.Errorf("stdio: write: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("stdio: write: %w", err)
	}
	return nil
}

package mcphttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/mcp-rpc-go/internal/engine"
	"github.com/ggoodman/mcp-rpc-go/internal/logctx"
	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	_ http.Handler = (*Handler)(nil)
)

var jsonMediaType = contenttype.NewMediaType("application/json")

const (
	// Use canonical header names for clarity; Go matches headers case-insensitively.
	mcpSessionIDHeader = "Mcp-Session-Id"
	allowHeader        = "Allow"

	// DefaultMaxBodyBytes bounds request bodies unless WithMaxBodyBytes is given.
	DefaultMaxBodyBytes int64 = 4 << 20
)

// Option configures the Handler.
type Option func(*config)

type config struct {
	logger         *slog.Logger
	environment    func(*http.Request) any
	maxBodyBytes   int64
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithLogger sets the logger used by the handler and its engine. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithEnvironment derives the opaque environment value passed to every
// handler invoked for r. The engine never inspects it.
func WithEnvironment(fn func(r *http.Request) any) Option {
	return func(c *config) { c.environment = fn }
}

// WithMaxBodyBytes bounds the request body. Larger bodies are answered as a
// parse failure. Values <= 0 keep the default.
func WithMaxBodyBytes(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithTracerProvider sets the tracer provider used for dispatch spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider used for dispatch metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) { c.meterProvider = mp }
}

// Handler is an http.Handler answering JSON-RPC POSTs.
type Handler struct {
	eng          *engine.Engine
	log          *slog.Logger
	environment  func(*http.Request) any
	maxBodyBytes int64
}

// New returns a Handler dispatching to srv.
func New(srv engine.Service, opts ...Option) *Handler {
	cfg := config{
		logger:       slog.Default(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	log := logctx.Wrap(cfg.logger)
	return &Handler{
		eng: engine.New(srv,
			engine.WithLogger(log),
			engine.WithTracerProvider(cfg.tracerProvider),
			engine.WithMeterProvider(cfg.meterProvider),
		),
		log:          log,
		environment:  cfg.environment,
		maxBodyBytes: cfg.maxBodyBytes,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	sessionID := r.Header.Get(mcpSessionIDHeader)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	w.Header().Set(mcpSessionIDHeader, sessionID)

	ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sessionID, Transport: "http"})

	if r.Method != http.MethodPost {
		h.log.InfoContext(ctx, "http.method_not_allowed")
		w.Header().Set(allowHeader, http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.log.InfoContext(ctx, "http.post.start")

	body := bytebufferpool.Get()
	defer bytebufferpool.Put(body)

	var env any
	if h.environment != nil {
		env = h.environment(r)
	}

	// An unreadable or oversized body is answered like malformed JSON.
	if _, err := body.ReadFrom(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log.InfoContext(ctx, "http.post.body_too_large", slog.Int64("limit", tooLarge.Limit))
		} else {
			h.log.InfoContext(ctx, "http.post.read.fail", slog.String("err", err.Error()))
		}
		body.Reset()
	}

	payload, ok := h.eng.HandleBody(ctx, body.B, sessionID, env)
	status := http.StatusOK
	if !ok {
		status = http.StatusBadRequest
	}

	out := bytebufferpool.Get()
	defer bytebufferpool.Put(out)
	if err := json.NewEncoder(out).Encode(payload); err != nil {
		h.log.ErrorContext(ctx, "http.post.encode.fail", slog.String("err", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", jsonMediaType.String())
	w.Header().Set("Content-Length", strconv.Itoa(out.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(out.B); err != nil {
		h.log.InfoContext(ctx, "http.post.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "http.post.ok", slog.Int("status", status), slog.Duration("dur", time.Since(start)))
}

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/ggoodman/mcp-rpc-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-rpc-go/internal/logctx"
	"github.com/ggoodman/mcp-rpc-go/mcp"
	"github.com/ggoodman/mcp-rpc-go/mcpservice"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// internalErrorMessage is the only detail clients see for unexpected faults.
const internalErrorMessage = "Internal server error"

// SupportedProtocolVersions lists the MCP revisions initialize accepts, newest
// first.
var SupportedProtocolVersions = []string{mcp.LatestProtocolVersion, "2025-03-26", "2024-11-05"}

var (
	errPanic  = errors.New("handler panicked")
	jsonNull  = json.RawMessage("null")
	parseFail = jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCode(mcp.ParseError.Code()), mcp.ParseError.DefaultMessage(), nil)
)

// Service is the compiled capability set the engine routes to.
// *mcpservice.Server implements it.
type Service interface {
	Info() mcp.ImplementationInfo
	Instructions() string
	Capabilities() mcp.ServerCapabilities
	Define() mcpservice.Definitions
	CallTool(ctx context.Context, inv mcpservice.Invocation) (*mcp.CallToolResult, error)
	GetPrompt(ctx context.Context, inv mcpservice.Invocation) (*mcp.GetPromptResult, error)
	ReadResource(ctx context.Context, inv mcpservice.Invocation) (*mcp.ReadResourceResult, error)
}

// Engine decodes JSON-RPC bodies, routes each entry through a fixed method
// tree and assembles the response envelopes. It holds no per-request state
// and is safe for concurrent use; transports own framing and session ids.
type Engine struct {
	srv    Service
	log    *slog.Logger
	routes *node
	tel    *telemetry

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the Engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// WithMeterProvider overrides the global OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// New builds an Engine over srv.
func New(srv Service, opts ...Option) *Engine {
	e := &Engine{
		srv: srv,
		log: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.log = logctx.Wrap(e.log)
	e.tel = newTelemetry(e.tracerProvider, e.meterProvider)

	e.routes = newNode()
	e.routes.insert(string(mcp.InitializeMethod), e.handleInitialize)
	e.routes.insert(string(mcp.InitializedNotificationMethod), e.handleEmpty)
	e.routes.insert(string(mcp.PingMethod), e.handleEmpty)
	e.routes.insert(string(mcp.ToolsListMethod), e.handleToolsList)
	e.routes.insert(string(mcp.ToolsCallMethod), e.handleToolsCall)
	e.routes.insert(string(mcp.PromptsListMethod), e.handlePromptsList)
	e.routes.insert(string(mcp.PromptsGetMethod), e.handlePromptsGet)
	e.routes.insert(string(mcp.ResourcesListMethod), e.handleResourcesList)
	e.routes.insert(string(mcp.ResourcesReadMethod), e.handleResourcesRead)
	return e
}

// HandleBody processes a raw request body. A body that is not well-formed
// JSON yields a single ParseError response with a null id and ok=false. A
// JSON array is treated as a batch: every entry is dispatched concurrently
// and the returned []*jsonrpc.Response is index-aligned with the input. Any
// other value is dispatched alone and returned as a *jsonrpc.Response.
func (e *Engine) HandleBody(ctx context.Context, body []byte, sessionID string, env any) (payload any, ok bool) {
	entries, batch, err := jsonrpc.SplitBody(body)
	if err != nil {
		e.log.InfoContext(ctx, "engine.handle_body.parse_error", slog.String("err", err.Error()))
		return parseFail, false
	}

	if !batch {
		return e.dispatchEntry(ctx, entries[0], sessionID, env, -1), true
	}

	responses := make([]*jsonrpc.Response, len(entries))
	var wg sync.WaitGroup
	for i, raw := range entries {
		wg.Go(func() {
			responses[i] = e.dispatchEntry(ctx, raw, sessionID, env, i)
		})
	}
	wg.Wait()
	return responses, true
}

// dispatchEntry decodes one entry. index is -1 outside a batch.
func (e *Engine) dispatchEntry(ctx context.Context, raw json.RawMessage, sessionID string, env any, index int) *jsonrpc.Response {
	req, err := jsonrpc.DecodeRequest(raw)
	if err != nil {
		ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{ID: req.ID.String(), Batch: index >= 0, Index: index})
		e.log.InfoContext(ctx, "engine.handle_request.malformed", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCode(mcp.InvalidRequest.Code()), mcp.InvalidRequest.DefaultMessage(), nil)
	}
	return e.dispatch(ctx, req, sessionID, env, index)
}

// Dispatch resolves and invokes a single decoded request.
func (e *Engine) Dispatch(ctx context.Context, req *jsonrpc.Request, sessionID string, env any) *jsonrpc.Response {
	return e.dispatch(ctx, req, sessionID, env, -1)
}

func (e *Engine) dispatch(ctx context.Context, req *jsonrpc.Request, sessionID string, env any, index int) *jsonrpc.Response {
	start := time.Now()
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: req.Method,
		ID:     req.ID.String(),
		Batch:  index >= 0,
		Index:  index,
	})
	ctx, span := e.tel.start(ctx, req.Method, index >= 0)

	h, found := e.routes.resolve(req.Method)
	if !found {
		e.log.InfoContext(ctx, "engine.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		code := mcp.MethodNotFound.Code()
		e.tel.finish(ctx, span, "unknown", code, nil, start)
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCode(code), mcp.MethodNotFound.DefaultMessage(), nil)
	}

	result, err := invoke(ctx, h, &call{params: req.Params, sessionID: sessionID, env: env})
	if err == nil {
		resp, merr := jsonrpc.NewResultResponse(req.ID, result)
		if merr == nil {
			e.log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			e.tel.finish(ctx, span, req.Method, 0, nil, start)
			return resp
		}
		err = merr
	}

	if me, ok := mcp.AsError(err); ok {
		e.log.InfoContext(ctx, "engine.handle_request.invalid",
			slog.Int("code", me.Code),
			slog.String("err", me.Message),
			slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		e.tel.finish(ctx, span, req.Method, me.Code, nil, start)
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCode(me.Code), me.Message, me.Data)
	}

	e.log.ErrorContext(ctx, "engine.handle_request.fail",
		slog.String("err", err.Error()),
		slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	code := mcp.InternalError.Code()
	e.tel.finish(ctx, span, req.Method, code, err, start)
	return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCode(code), internalErrorMessage, jsonNull)
}

// invoke runs h, converting a panic into an error.
func invoke(ctx context.Context, h handlerFunc, c *call) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %v\n%s", errPanic, r, debug.Stack())
		}
	}()
	return h(ctx, c)
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return mcp.NewError(mcp.InvalidParams, "", map[string]any{"reason": err.Error()})
	}
	return nil
}

func (e *Engine) handleInitialize(ctx context.Context, c *call) (any, error) {
	var req mcp.InitializeRequest
	if err := decodeParams(c.params, &req); err != nil {
		return nil, err
	}
	version := mcp.LatestProtocolVersion
	if slices.Contains(SupportedProtocolVersions, req.ProtocolVersion) {
		version = req.ProtocolVersion
	}
	return &mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    e.srv.Capabilities(),
		ServerInfo:      e.srv.Info(),
		Instructions:    e.srv.Instructions(),
	}, nil
}

func (e *Engine) handleEmpty(ctx context.Context, c *call) (any, error) {
	return &mcp.EmptyResult{}, nil
}

func (e *Engine) handleToolsList(ctx context.Context, c *call) (any, error) {
	return &mcp.ListToolsResult{Tools: e.srv.Define().Tools}, nil
}

func (e *Engine) handleToolsCall(ctx context.Context, c *call) (any, error) {
	var req mcp.CallToolRequest
	if err := decodeParams(c.params, &req); err != nil {
		return nil, err
	}
	ctx = logctx.WithCapabilityData(ctx, &logctx.CapabilityData{Kind: "tool", Name: req.Name})
	return e.srv.CallTool(ctx, mcpservice.Invocation{
		Name:      req.Name,
		Params:    req.Arguments,
		Env:       c.env,
		SessionID: c.sessionID,
	})
}

func (e *Engine) handlePromptsList(ctx context.Context, c *call) (any, error) {
	return &mcp.ListPromptsResult{Prompts: e.srv.Define().Prompts}, nil
}

func (e *Engine) handlePromptsGet(ctx context.Context, c *call) (any, error) {
	var req mcp.GetPromptRequest
	if err := decodeParams(c.params, &req); err != nil {
		return nil, err
	}
	ctx = logctx.WithCapabilityData(ctx, &logctx.CapabilityData{Kind: "prompt", Name: req.Name})
	return e.srv.GetPrompt(ctx, mcpservice.Invocation{
		Name:      req.Name,
		Params:    req.Arguments,
		Env:       c.env,
		SessionID: c.sessionID,
	})
}

func (e *Engine) handleResourcesList(ctx context.Context, c *call) (any, error) {
	return &mcp.ListResourcesResult{Resources: e.srv.Define().Resources}, nil
}

func (e *Engine) handleResourcesRead(ctx context.Context, c *call) (any, error) {
	var req mcp.ReadResourceRequest
	if err := decodeParams(c.params, &req); err != nil {
		return nil, err
	}
	if req.URI == "" {
		return nil, mcp.NewError(mcp.InvalidParams, "uri is required", nil)
	}
	ctx = logctx.WithCapabilityData(ctx, &logctx.CapabilityData{Kind: "resource", Name: req.URI})
	return e.srv.ReadResource(ctx, mcpservice.Invocation{
		Name:      req.URI,
		Env:       c.env,
		SessionID: c.sessionID,
	})
}

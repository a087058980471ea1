package mcpservice

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/ggoodman/mcp-rpc-go/mcp"
	"github.com/ggoodman/mcp-rpc-go/schema"
)

// Invocation carries the per-call values common to every capability kind.
type Invocation struct {
	Name      string
	Params    json.RawMessage
	Env       any
	SessionID string
}

// ToolRequest is the container for tool call input and request metadata.
// It is generic over the decoded input type In.
type ToolRequest[In any] struct {
	inv   Invocation
	input In
}

func (r *ToolRequest[In]) Name() string               { return r.inv.Name }
func (r *ToolRequest[In]) Input() In                  { return r.input }
func (r *ToolRequest[In]) RawParams() json.RawMessage { return r.inv.Params }
func (r *ToolRequest[In]) Env() any                   { return r.inv.Env }
func (r *ToolRequest[In]) SessionID() string          { return r.inv.SessionID }

// ToolFunc handles a tool invocation.
//
// The returned Out is wrapped into a tool result: a string becomes a single
// text block, an mcp.CallToolResult is returned as is, and any other value is
// serialized to JSON text and, when it is a JSON object, also reported as
// structured content.
type ToolFunc[In, Out any] func(ctx context.Context, r *ToolRequest[In]) (Out, error)

type toolInvoker func(ctx context.Context, inv Invocation) (*mcp.CallToolResult, error)

// ToolBuilder is an immutable, partially configured tool.
type ToolBuilder struct {
	description string
	input       schema.Schema
	output      schema.Schema
}

// NewTool starts a tool declaration.
func NewTool(description string) ToolBuilder {
	return ToolBuilder{description: description}
}

// Input returns a copy of b that validates arguments against s.
func (b ToolBuilder) Input(s schema.Schema) ToolBuilder {
	b.input = s
	return b
}

// Output returns a copy of b that advertises s as its output schema.
func (b ToolBuilder) Output(s schema.Schema) ToolBuilder {
	b.output = s
	return b
}

// Tool is a complete tool declaration.
type Tool struct {
	b      ToolBuilder
	invoke toolInvoker
}

// HandleTool attaches fn to b. Arguments are decoded into In after they pass
// input validation.
func HandleTool[In, Out any](b ToolBuilder, fn ToolFunc[In, Out]) Tool {
	if fn == nil {
		return Tool{b: b}
	}
	return Tool{
		b: b,
		invoke: func(ctx context.Context, inv Invocation) (*mcp.CallToolResult, error) {
			in, err := decodeParams[In](inv.Params)
			if err != nil {
				return nil, err
			}
			out, err := fn(ctx, &ToolRequest[In]{inv: inv, input: in})
			if err != nil {
				return nil, err
			}
			return wrapToolOutput(out)
		},
	}
}

// Description returns the tool's description.
func (t Tool) Description() string { return t.b.description }

type compiledTool struct {
	name   string
	def    mcp.Tool
	input  *schema.Compiled
	invoke toolInvoker
}

func (t *compiledTool) call(ctx context.Context, inv Invocation) (*mcp.CallToolResult, error) {
	if t.input != nil {
		if issues := t.input.Validate(inv.Params); len(issues) > 0 {
			return nil, mcp.NewError(mcp.InvalidParams, "", issues)
		}
	}
	return t.invoke(ctx, inv)
}

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var v T
	if isEmptyParams(raw) {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, mcp.NewError(mcp.InvalidParams, "", []schema.Issue{{Message: err.Error()}})
	}
	return v, nil
}

func isEmptyParams(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func wrapToolOutput(out any) (*mcp.CallToolResult, error) {
	switch v := out.(type) {
	case nil:
		return &mcp.CallToolResult{Content: []mcp.ContentBlock{}}, nil
	case *mcp.CallToolResult:
		if v == nil {
			return &mcp.CallToolResult{Content: []mcp.ContentBlock{}}, nil
		}
		return v, nil
	case mcp.CallToolResult:
		return &v, nil
	case string:
		return &mcp.CallToolResult{Content: []mcp.ContentBlock{mcp.TextBlock(v)}}, nil
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	res := &mcp.CallToolResult{Content: []mcp.ContentBlock{mcp.TextBlock(string(b))}}
	if len(b) > 0 && b[0] == '{' {
		res.StructuredContent = json.RawMessage(b)
	}
	return res, nil
}

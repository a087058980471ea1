package mcpservice

import (
	"context"
	"encoding/json"

	"github.com/ggoodman/mcp-rpc-go/mcp"
	"github.com/ggoodman/mcp-rpc-go/schema"
)

// PromptRequest carries decoded prompt arguments and request metadata.
type PromptRequest[A any] struct {
	inv  Invocation
	args A
}

func (r *PromptRequest[A]) Name() string               { return r.inv.Name }
func (r *PromptRequest[A]) Arguments() A               { return r.args }
func (r *PromptRequest[A]) RawParams() json.RawMessage { return r.inv.Params }
func (r *PromptRequest[A]) Env() any                   { return r.inv.Env }
func (r *PromptRequest[A]) SessionID() string          { return r.inv.SessionID }

// PromptFunc renders a prompt into its messages.
type PromptFunc[A any] func(ctx context.Context, r *PromptRequest[A]) ([]mcp.PromptMessage, error)

type promptInvoker func(ctx context.Context, inv Invocation) ([]mcp.PromptMessage, error)

// PromptBuilder is an immutable, partially configured prompt.
type PromptBuilder struct {
	description string
	arguments   schema.Schema
}

// NewPrompt starts a prompt declaration.
func NewPrompt(description string) PromptBuilder {
	return PromptBuilder{description: description}
}

// Arguments returns a copy of b whose arguments are validated against s and
// advertised from its top-level properties.
func (b PromptBuilder) Arguments(s schema.Schema) PromptBuilder {
	b.arguments = s
	return b
}

// Prompt is a complete prompt declaration.
type Prompt struct {
	b      PromptBuilder
	invoke promptInvoker
}

// HandlePrompt attaches fn to b.
func HandlePrompt[A any](b PromptBuilder, fn PromptFunc[A]) Prompt {
	if fn == nil {
		return Prompt{b: b}
	}
	return Prompt{
		b: b,
		invoke: func(ctx context.Context, inv Invocation) ([]mcp.PromptMessage, error) {
			args, err := decodeParams[A](inv.Params)
			if err != nil {
				return nil, err
			}
			return fn(ctx, &PromptRequest[A]{inv: inv, args: args})
		},
	}
}

// Description returns the prompt's description.
func (p Prompt) Description() string { return p.b.description }

type compiledPrompt struct {
	name   string
	def    mcp.Prompt
	args   *schema.Compiled
	invoke promptInvoker
}

func (p *compiledPrompt) get(ctx context.Context, inv Invocation) (*mcp.GetPromptResult, error) {
	if p.args != nil {
		if issues := p.args.Validate(inv.Params); len(issues) > 0 {
			return nil, mcp.NewError(mcp.InvalidParams, "", issues)
		}
	}
	msgs, err := p.invoke(ctx, inv)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []mcp.PromptMessage{}
	}
	return &mcp.GetPromptResult{Description: p.def.Description, Messages: msgs}, nil
}

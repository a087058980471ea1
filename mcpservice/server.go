package mcpservice

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/mcp-rpc-go/mcp"
	"github.com/ggoodman/mcp-rpc-go/schema"
)

var (
	// ErrNilHandler reports a capability declared without a handler.
	ErrNilHandler = errors.New("capability has no handler")
	// ErrInvalidMimeType reports a resource MIME type that does not parse.
	ErrInvalidMimeType = errors.New("invalid mime type")
	// ErrDuplicateURI reports two resources sharing one URI.
	ErrDuplicateURI = errors.New("duplicate resource uri")
)

// Declaration is the host application's description of a server. Map keys
// are the capability names clients use.
type Declaration struct {
	Name         string
	Version      string
	Instructions string

	Tools     map[string]Tool
	Prompts   map[string]Prompt
	Resources map[string]Resource

	// Schemas resolves capability schemas. Nil selects schema.Default.
	Schemas *schema.Registry
}

// Server is a compiled, immutable Declaration. It is safe for concurrent use.
type Server struct {
	info         mcp.ImplementationInfo
	instructions string

	tools     map[string]*compiledTool
	prompts   map[string]*compiledPrompt
	resources map[string]*compiledResource // keyed by URI

	defs Definitions
}

// Definitions is the discovery metadata of a server. Each list is sorted by
// name.
type Definitions struct {
	Tools     []mcp.Tool     `json:"tools" yaml:"tools"`
	Prompts   []mcp.Prompt   `json:"prompts" yaml:"prompts"`
	Resources []mcp.Resource `json:"resources" yaml:"resources"`
}

// New compiles decl. It fails if any capability lacks a handler, names a
// schema no provider supports, declares an unparsable MIME type, or reuses a
// resource URI.
func New(decl Declaration) (*Server, error) {
	reg := decl.Schemas
	if reg == nil {
		reg = schema.Default
	}

	s := &Server{
		info:         mcp.ImplementationInfo{Name: decl.Name, Version: decl.Version},
		instructions: decl.Instructions,
		tools:        make(map[string]*compiledTool, len(decl.Tools)),
		prompts:      make(map[string]*compiledPrompt, len(decl.Prompts)),
		resources:    make(map[string]*compiledResource, len(decl.Resources)),
	}

	for _, name := range sortedKeys(decl.Tools) {
		ct, err := compileTool(reg, name, decl.Tools[name])
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", name, err)
		}
		s.tools[name] = ct
		s.defs.Tools = append(s.defs.Tools, ct.def)
	}

	for _, name := range sortedKeys(decl.Prompts) {
		cp, err := compilePrompt(reg, name, decl.Prompts[name])
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", name, err)
		}
		s.prompts[name] = cp
		s.defs.Prompts = append(s.defs.Prompts, cp.def)
	}

	for _, name := range sortedKeys(decl.Resources) {
		cr, err := compileResource(name, decl.Resources[name])
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", name, err)
		}
		if prev, dup := s.resources[cr.def.URI]; dup {
			return nil, fmt.Errorf("resource %q: %w: %s also used by %q", name, ErrDuplicateURI, cr.def.URI, prev.def.Name)
		}
		s.resources[cr.def.URI] = cr
		s.defs.Resources = append(s.defs.Resources, cr.def)
	}

	return s, nil
}

func compileTool(reg *schema.Registry, name string, t Tool) (*compiledTool, error) {
	if t.invoke == nil {
		return nil, ErrNilHandler
	}
	ct := &compiledTool{
		name:   name,
		def:    mcp.Tool{Name: name, Description: t.b.description},
		invoke: t.invoke,
	}
	if t.b.input != nil {
		c, err := reg.Compile(t.b.input)
		if err != nil {
			return nil, fmt.Errorf("input schema: %w", err)
		}
		ct.input = c
		// Discovery gets its own copy; the validator's schema never escapes.
		if ct.def.InputSchema, err = schema.Clone(c.Canonical); err != nil {
			return nil, fmt.Errorf("input schema: %w", err)
		}
	} else {
		ct.def.InputSchema = &schema.Canonical{Type: "object"}
	}
	if t.b.output != nil {
		c, err := reg.Normalize(t.b.output)
		if err != nil {
			return nil, fmt.Errorf("output schema: %w", err)
		}
		if ct.def.OutputSchema, err = schema.Clone(c); err != nil {
			return nil, fmt.Errorf("output schema: %w", err)
		}
	}
	return ct, nil
}

func compilePrompt(reg *schema.Registry, name string, p Prompt) (*compiledPrompt, error) {
	if p.invoke == nil {
		return nil, ErrNilHandler
	}
	cp := &compiledPrompt{
		name:   name,
		def:    mcp.Prompt{Name: name, Description: p.b.description, Arguments: []mcp.PromptArgument{}},
		invoke: p.invoke,
	}
	if p.b.arguments != nil {
		c, err := reg.Compile(p.b.arguments)
		if err != nil {
			return nil, fmt.Errorf("argument schema: %w", err)
		}
		cp.args = c
		for _, f := range schema.Fields(c.Canonical) {
			cp.def.Arguments = append(cp.def.Arguments, mcp.PromptArgument{
				Name:        f.Name,
				Description: f.Description,
				Required:    f.Required,
			})
		}
	}
	return cp, nil
}

func compileResource(name string, r Resource) (*compiledResource, error) {
	if r.handler == nil {
		return nil, ErrNilHandler
	}
	if r.b.mimeType != "" {
		if _, err := contenttype.ParseMediaType(r.b.mimeType); err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidMimeType, r.b.mimeType, err)
		}
	}
	uri := r.b.uri
	if uri == "" {
		uri = name
	}
	return &compiledResource{
		def: mcp.Resource{
			Name:        name,
			URI:         uri,
			Description: r.b.description,
			MimeType:    r.b.mimeType,
		},
		handler: r.handler,
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Info returns the server's implementation info.
func (s *Server) Info() mcp.ImplementationInfo { return s.info }

// Instructions returns the optional instructions sent during initialize.
func (s *Server) Instructions() string { return s.instructions }

// Capabilities advertises only the capability kinds that were declared.
func (s *Server) Capabilities() mcp.ServerCapabilities {
	var caps mcp.ServerCapabilities
	if len(s.tools) > 0 {
		caps.Tools = &struct {
			ListChanged bool `json:"listChanged"`
		}{}
	}
	if len(s.prompts) > 0 {
		caps.Prompts = &struct {
			ListChanged bool `json:"listChanged"`
		}{}
	}
	if len(s.resources) > 0 {
		caps.Resources = &struct {
			ListChanged bool `json:"listChanged"`
			Subscribe   bool `json:"subscribe"`
		}{}
	}
	return caps
}

// Define returns the discovery metadata. Every call returns a deep copy, so
// callers may modify the result, schemas included, without affecting the
// server.
func (s *Server) Define() Definitions {
	defs := Definitions{
		Tools:     make([]mcp.Tool, len(s.defs.Tools)),
		Prompts:   make([]mcp.Prompt, len(s.defs.Prompts)),
		Resources: append([]mcp.Resource{}, s.defs.Resources...),
	}
	for i, t := range s.defs.Tools {
		t.InputSchema = mustClone(t.InputSchema)
		t.OutputSchema = mustClone(t.OutputSchema)
		defs.Tools[i] = t
	}
	for i, p := range s.defs.Prompts {
		p.Arguments = append([]mcp.PromptArgument{}, p.Arguments...)
		defs.Prompts[i] = p
	}
	return defs
}

// mustClone copies a schema that New already round-tripped through JSON, so
// it cannot fail.
func mustClone(c *schema.Canonical) *schema.Canonical {
	out, err := schema.Clone(c)
	if err != nil {
		panic(fmt.Sprintf("mcpservice: clone compiled schema: %v", err))
	}
	return out
}

// CallTool validates and invokes the named tool. An unknown name is reported
// as InvalidParams.
func (s *Server) CallTool(ctx context.Context, inv Invocation) (*mcp.CallToolResult, error) {
	t, ok := s.tools[inv.Name]
	if !ok {
		return nil, mcp.NewError(mcp.InvalidParams, "Unknown tool", map[string]any{"name": inv.Name})
	}
	return t.call(ctx, inv)
}

// GetPrompt validates arguments and renders the named prompt.
func (s *Server) GetPrompt(ctx context.Context, inv Invocation) (*mcp.GetPromptResult, error) {
	p, ok := s.prompts[inv.Name]
	if !ok {
		return nil, mcp.NewError(mcp.InvalidParams, "Unknown prompt", map[string]any{"name": inv.Name})
	}
	return p.get(ctx, inv)
}

// ReadResource reads the resource whose URI is inv.Name.
func (s *Server) ReadResource(ctx context.Context, inv Invocation) (*mcp.ReadResourceResult, error) {
	r, ok := s.resources[inv.Name]
	if !ok {
		return nil, mcp.NewError(mcp.ResourceNotFound, "", map[string]any{"uri": inv.Name})
	}
	return r.read(ctx, inv)
}

package mcpservice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ggoodman/mcp-rpc-go/mcp"
	"github.com/ggoodman/mcp-rpc-go/schema"
)

type echoIn struct {
	Text string `json:"text"`
}

type echoOut struct {
	Echo string `json:"echo"`
}

type greetArgs struct {
	Name string `json:"name" jsonschema:"description=Who to greet"`
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0xff}

func mustServer(t *testing.T, decl Declaration) *Server {
	t.Helper()
	srv, err := New(decl)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func echoTool(calls *atomic.Int32) Tool {
	return HandleTool(
		NewTool("Echo text").Input(schema.Reflect[echoIn]()).Output(schema.Reflect[echoOut]()),
		func(ctx context.Context, r *ToolRequest[echoIn]) (echoOut, error) {
			calls.Add(1)
			return echoOut{Echo: r.Input().Text}, nil
		},
	)
}

func TestCallToolValidationShortCircuits(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := mustServer(t, Declaration{Tools: map[string]Tool{"echo": echoTool(&calls)}})

	_, err := srv.CallTool(context.Background(), Invocation{Name: "echo", Params: json.RawMessage(`{"text":5}`)})
	me, ok := mcp.AsError(err)
	if !ok || me.Code != -32602 {
		t.Fatalf("want InvalidParams, got %v", err)
	}
	if _, ok := me.Data.([]schema.Issue); !ok {
		t.Fatalf("want []schema.Issue data, got %T", me.Data)
	}
	if calls.Load() != 0 {
		t.Fatalf("handler invoked %d times on invalid input", calls.Load())
	}

	res, err := srv.CallTool(context.Background(), Invocation{Name: "echo", Params: json.RawMessage(`{"text":"hi"}`)})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("want 1 call, got %d", calls.Load())
	}
	if len(res.Content) != 1 || res.Content[0].Text != `{"echo":"hi"}` {
		t.Fatalf("unexpected content: %+v", res.Content)
	}
	if string(res.StructuredContent.(json.RawMessage)) != `{"echo":"hi"}` {
		t.Fatalf("unexpected structured content: %v", res.StructuredContent)
	}
}

func TestCallToolPassesRequestMetadata(t *testing.T) {
	t.Parallel()
	type envT struct{ Tenant string }
	var seen *ToolRequest[map[string]any]
	tool := HandleTool(NewTool("inspect"), func(ctx context.Context, r *ToolRequest[map[string]any]) (string, error) {
		seen = r
		return "ok", nil
	})
	srv := mustServer(t, Declaration{Tools: map[string]Tool{"inspect": tool}})

	env := &envT{Tenant: "t1"}
	res, err := srv.CallTool(context.Background(), Invocation{
		Name:      "inspect",
		Params:    json.RawMessage(`{"a":1}`),
		Env:       env,
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.Content[0].Text != "ok" || res.StructuredContent != nil {
		t.Fatalf("string output should be a single text block: %+v", res)
	}
	if seen.Env() != env || seen.SessionID() != "sess-1" || seen.Name() != "inspect" {
		t.Fatalf("metadata not threaded: %+v", seen)
	}
	if string(seen.RawParams()) != `{"a":1}` || seen.Input()["a"] != float64(1) {
		t.Fatalf("params not threaded: %s %v", seen.RawParams(), seen.Input())
	}
}

func TestCallToolErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("db down")
	srv := mustServer(t, Declaration{Tools: map[string]Tool{
		"fail": HandleTool(NewTool("fails"), func(ctx context.Context, r *ToolRequest[struct{}]) (string, error) {
			return "", boom
		}),
		"deny": HandleTool(NewTool("denies"), func(ctx context.Context, r *ToolRequest[struct{}]) (string, error) {
			return "", mcp.NewError(mcp.InvalidParams, "nope", nil)
		}),
	}})

	if _, err := srv.CallTool(context.Background(), Invocation{Name: "fail"}); !errors.Is(err, boom) {
		t.Fatalf("plain errors must propagate unchanged, got %v", err)
	}
	_, err := srv.CallTool(context.Background(), Invocation{Name: "deny"})
	if me, ok := mcp.AsError(err); !ok || me.Message != "nope" {
		t.Fatalf("mcp errors must propagate unchanged, got %v", err)
	}
	_, err = srv.CallTool(context.Background(), Invocation{Name: "missing"})
	me, ok := mcp.AsError(err)
	if !ok || me.Kind != mcp.InvalidParams || me.Data.(map[string]any)["name"] != "missing" {
		t.Fatalf("unknown tool: got %v", err)
	}
}

func TestGetPrompt(t *testing.T) {
	t.Parallel()
	p := HandlePrompt(NewPrompt("Greet someone").Arguments(schema.Reflect[greetArgs]()),
		func(ctx context.Context, r *PromptRequest[greetArgs]) ([]mcp.PromptMessage, error) {
			return []mcp.PromptMessage{mcp.UserText("Say hello to " + r.Arguments().Name)}, nil
		})
	srv := mustServer(t, Declaration{Prompts: map[string]Prompt{"greet": p}})

	res, err := srv.GetPrompt(context.Background(), Invocation{Name: "greet", Params: json.RawMessage(`{"name":"Ada"}`)})
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	if res.Description != "Greet someone" || len(res.Messages) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if m := res.Messages[0]; m.Role != mcp.RoleUser || m.Content.Text != "Say hello to Ada" {
		t.Fatalf("unexpected message: %+v", m)
	}

	_, err = srv.GetPrompt(context.Background(), Invocation{Name: "greet", Params: json.RawMessage(`{}`)})
	if !mcp.IsKind(err, mcp.InvalidParams) {
		t.Fatalf("missing required argument: got %v", err)
	}
}

func TestReadResource(t *testing.T) {
	t.Parallel()
	srv := mustServer(t, Declaration{Resources: map[string]Resource{
		"readme": NewResource("Readme").URI("file:///readme.txt").MimeType("text/plain").
			Handle(func(ctx context.Context, r *ResourceRequest) (any, error) { return "hello", nil }),
		"logo": NewResource("Logo").URI("file:///logo.png").MimeType("image/png").
			Handle(func(ctx context.Context, r *ResourceRequest) (any, error) { return pngBytes, nil }),
		"buffered": NewResource("Buffered").MimeType("image/png").
			Handle(func(ctx context.Context, r *ResourceRequest) (any, error) { return bytes.NewBuffer(pngBytes), nil }),
		"stream": NewResource("Stream").MimeType("application/octet-stream").
			Handle(func(ctx context.Context, r *ResourceRequest) (any, error) { return strings.NewReader("raw"), nil }),
		"untyped": NewResource("No mime").URI("file:///blob").
			Handle(func(ctx context.Context, r *ResourceRequest) (any, error) { return pngBytes, nil }),
		"weird": NewResource("Unusable").URI("file:///weird").
			Handle(func(ctx context.Context, r *ResourceRequest) (any, error) { return 42, nil }),
	}})
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		res, err := srv.ReadResource(ctx, Invocation{Name: "file:///readme.txt"})
		if err != nil {
			t.Fatalf("ReadResource: %v", err)
		}
		c := res.Contents[0]
		if c.Text != "hello" || c.Blob != "" || c.URI != "file:///readme.txt" || c.MimeType != "text/plain" {
			t.Fatalf("unexpected contents: %+v", c)
		}
	})

	for _, uri := range []string{"file:///logo.png", "buffered"} {
		t.Run("blob "+uri, func(t *testing.T) {
			res, err := srv.ReadResource(ctx, Invocation{Name: uri})
			if err != nil {
				t.Fatalf("ReadResource: %v", err)
			}
			const prefix = "data:image/png;base64,"
			blob := res.Contents[0].Blob
			if !strings.HasPrefix(blob, prefix) {
				t.Fatalf("unexpected blob: %q", blob)
			}
			decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(blob, prefix))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(decoded, pngBytes) {
				t.Fatalf("round trip mismatch: %v", decoded)
			}
		})
	}

	t.Run("reader", func(t *testing.T) {
		res, err := srv.ReadResource(ctx, Invocation{Name: "stream"})
		if err != nil {
			t.Fatalf("ReadResource: %v", err)
		}
		if want := DataURI("application/octet-stream", []byte("raw")); res.Contents[0].Blob != want {
			t.Fatalf("want %q got %q", want, res.Contents[0].Blob)
		}
	})

	t.Run("binary without mime", func(t *testing.T) {
		_, err := srv.ReadResource(ctx, Invocation{Name: "file:///blob"})
		me, ok := mcp.AsError(err)
		if !ok || me.Code != -32603 || me.Message != "Resource mimeType not set" {
			t.Fatalf("want InternalError, got %v", err)
		}
		if me.Data.(map[string]any)["uri"] != "file:///blob" {
			t.Fatalf("unexpected data: %v", me.Data)
		}
	})

	t.Run("unusable payload", func(t *testing.T) {
		_, err := srv.ReadResource(ctx, Invocation{Name: "file:///weird"})
		if !mcp.IsKind(err, mcp.ResourceNotFound) {
			t.Fatalf("want ResourceNotFound, got %v", err)
		}
	})

	t.Run("unknown uri", func(t *testing.T) {
		_, err := srv.ReadResource(ctx, Invocation{Name: "file:///nope"})
		me, ok := mcp.AsError(err)
		if !ok || me.Kind != mcp.ResourceNotFound || me.Data.(map[string]any)["uri"] != "file:///nope" {
			t.Fatalf("want ResourceNotFound with uri, got %v", err)
		}
	})
}

func TestNewRejectsBadDeclarations(t *testing.T) {
	t.Parallel()
	text := func(ctx context.Context, r *ResourceRequest) (any, error) { return "x", nil }
	cases := []struct {
		name string
		decl Declaration
		want error
	}{
		{
			name: "tool without handler",
			decl: Declaration{Tools: map[string]Tool{"t": {}}},
			want: ErrNilHandler,
		},
		{
			name: "prompt without handler",
			decl: Declaration{Prompts: map[string]Prompt{"p": HandlePrompt[struct{}](NewPrompt("p"), nil)}},
			want: ErrNilHandler,
		},
		{
			name: "resource without handler",
			decl: Declaration{Resources: map[string]Resource{"r": NewResource("r").Handle(nil)}},
			want: ErrNilHandler,
		},
		{
			name: "invalid mime",
			decl: Declaration{Resources: map[string]Resource{"r": NewResource("r").MimeType("not a mime").Handle(text)}},
			want: ErrInvalidMimeType,
		},
		{
			name: "duplicate uri",
			decl: Declaration{Resources: map[string]Resource{
				"a": NewResource("a").URI("res://same").Handle(text),
				"b": NewResource("b").URI("res://same").Handle(text),
			}},
			want: ErrDuplicateURI,
		},
		{
			name: "unsupported schema",
			decl: Declaration{Tools: map[string]Tool{
				"t": HandleTool(NewTool("t").Input(foreignSchema{}), func(ctx context.Context, r *ToolRequest[struct{}]) (string, error) {
					return "", nil
				}),
			}},
			want: schema.ErrUnsupportedSchemaKind,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.decl); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

type foreignSchema struct{}

func (foreignSchema) Vendor() string { return "valibot" }

func TestBuildersAreImmutable(t *testing.T) {
	t.Parallel()
	base := NewResource("base").MimeType("text/plain")
	withURI := base.URI("res://a")
	if base.uri != "" || withURI.uri != "res://a" || withURI.mimeType != "text/plain" {
		t.Fatalf("builder mutated in place: base=%+v derived=%+v", base, withURI)
	}

	tb := NewTool("t")
	typed := tb.Input(schema.Reflect[echoIn]())
	if tb.input != nil || typed.input == nil {
		t.Fatalf("tool builder mutated in place")
	}
}

func TestDefine(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	decl := Declaration{
		Name:    "test",
		Version: "0.1.0",
		Tools: map[string]Tool{
			"echo": echoTool(&calls),
			"bare": HandleTool(NewTool(""), func(ctx context.Context, r *ToolRequest[any]) (string, error) { return "", nil }),
		},
		Prompts: map[string]Prompt{
			"greet": HandlePrompt(NewPrompt("Greet").Arguments(schema.Reflect[greetArgs]()),
				func(ctx context.Context, r *PromptRequest[greetArgs]) ([]mcp.PromptMessage, error) { return nil, nil }),
		},
		Resources: map[string]Resource{
			"notes": NewResource("Notes").Handle(func(ctx context.Context, r *ResourceRequest) (any, error) { return "", nil }),
		},
	}
	srv := mustServer(t, decl)

	first, second := srv.Define(), srv.Define()
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) || !reflect.DeepEqual(first, second) {
		t.Fatalf("define is not idempotent:\n%s\n%s", a, b)
	}

	if len(first.Tools) != 2 || first.Tools[0].Name != "bare" || first.Tools[1].Name != "echo" {
		t.Fatalf("tools not sorted: %+v", first.Tools)
	}
	if first.Tools[0].InputSchema.Type != "object" || first.Tools[0].OutputSchema != nil {
		t.Fatalf("bare tool should advertise an empty object schema: %+v", first.Tools[0])
	}
	if _, ok := first.Tools[1].InputSchema.Properties["text"]; !ok || first.Tools[1].OutputSchema == nil {
		t.Fatalf("echo schemas missing: %+v", first.Tools[1])
	}

	args := first.Prompts[0].Arguments
	if len(args) != 1 || args[0].Name != "name" || !args[0].Required || args[0].Description != "Who to greet" {
		t.Fatalf("unexpected prompt arguments: %+v", args)
	}

	res := first.Resources[0]
	if res.Name != "notes" || res.URI != "notes" || res.Description != "Notes" {
		t.Fatalf("resource uri should default to its key: %+v", res)
	}

	caps := srv.Capabilities()
	if caps.Tools == nil || caps.Prompts == nil || caps.Resources == nil {
		t.Fatalf("declared kinds must be advertised: %+v", caps)
	}
	if srv.Info().Name != "test" || srv.Info().Version != "0.1.0" {
		t.Fatalf("unexpected info: %+v", srv.Info())
	}
}

func TestDeclarationMutationAfterNew(t *testing.T) {
	t.Parallel()
	text := func(ctx context.Context, r *ResourceRequest) (any, error) { return "x", nil }
	resources := map[string]Resource{"a": NewResource("a").Handle(text)}
	srv := mustServer(t, Declaration{Resources: resources})
	resources["b"] = NewResource("b").Handle(text)

	if got := len(srv.Define().Resources); got != 1 {
		t.Fatalf("server observed host mutation: %d resources", got)
	}
}

func TestEmptyServerCapabilities(t *testing.T) {
	t.Parallel()
	srv := mustServer(t, Declaration{Name: "empty"})
	caps := srv.Capabilities()
	if caps.Tools != nil || caps.Prompts != nil || caps.Resources != nil {
		t.Fatalf("nothing declared, nothing advertised: %+v", caps)
	}
	defs := srv.Define()
	if defs.Tools == nil || defs.Prompts == nil || defs.Resources == nil {
		t.Fatalf("definitions should be empty lists, not nil: %+v", defs)
	}
}

func TestDefineResultIsIsolated(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := mustServer(t, Declaration{
		Tools: map[string]Tool{"echo": echoTool(&calls)},
		Prompts: map[string]Prompt{
			"greet": HandlePrompt(NewPrompt("Greet").Arguments(schema.Reflect[greetArgs]()),
				func(ctx context.Context, r *PromptRequest[greetArgs]) ([]mcp.PromptMessage, error) { return nil, nil }),
		},
	})

	d := srv.Define()
	in := d.Tools[0].InputSchema
	in.Required = append(in.Required, "ghost")
	in.Properties["text"].Description = "mutated"
	d.Tools[0].OutputSchema.Properties["echo"].Type = "number"
	d.Prompts[0].Arguments[0].Name = "mutated"

	again := srv.Define()
	if got := again.Tools[0].InputSchema; len(got.Required) != 1 || got.Properties["text"].Description == "mutated" {
		t.Fatalf("input schema changed through an earlier Define result: %+v", got)
	}
	if again.Tools[0].OutputSchema.Properties["echo"].Type != "string" {
		t.Fatalf("output schema changed through an earlier Define result")
	}
	if again.Prompts[0].Arguments[0].Name != "name" {
		t.Fatalf("prompt arguments changed through an earlier Define result: %+v", again.Prompts[0].Arguments)
	}

	if _, err := srv.CallTool(context.Background(), Invocation{Name: "echo", Params: json.RawMessage(`{"text":"hi"}`)}); err != nil {
		t.Fatalf("validation changed through a Define result: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("want 1 call, got %d", calls.Load())
	}
}

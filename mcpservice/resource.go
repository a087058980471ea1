package mcpservice

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"

	"github.com/ggoodman/mcp-rpc-go/mcp"
)

// ResourceRequest identifies the resource being read.
type ResourceRequest struct {
	uri       string
	env       any
	sessionID string
}

func (r *ResourceRequest) URI() string       { return r.uri }
func (r *ResourceRequest) Env() any          { return r.env }
func (r *ResourceRequest) SessionID() string { return r.sessionID }

// ResourceFunc produces a resource's contents.
//
// A string is returned as text. []byte, *bytes.Buffer and any io.Reader
// (e.g. an *os.File or fs.File) are binary and require a MIME type on the
// declaration; they are encoded as a base64 data URI. Readers that are also
// io.Closer are closed after reading. Any other value reports the resource as
// not found.
type ResourceFunc func(ctx context.Context, r *ResourceRequest) (any, error)

// ResourceBuilder is an immutable, partially configured resource.
type ResourceBuilder struct {
	description string
	uri         string
	mimeType    string
}

// NewResource starts a resource declaration.
func NewResource(description string) ResourceBuilder {
	return ResourceBuilder{description: description}
}

// URI returns a copy of b addressed by uri. Without a URI the declaration key
// is used.
func (b ResourceBuilder) URI(uri string) ResourceBuilder {
	b.uri = uri
	return b
}

// MimeType returns a copy of b with the given MIME type. The value is
// validated when the declaration is compiled.
func (b ResourceBuilder) MimeType(mimeType string) ResourceBuilder {
	b.mimeType = mimeType
	return b
}

// Handle attaches fn and completes the declaration.
func (b ResourceBuilder) Handle(fn ResourceFunc) Resource {
	return Resource{b: b, handler: fn}
}

// Resource is a complete resource declaration.
type Resource struct {
	b       ResourceBuilder
	handler ResourceFunc
}

// Description returns the resource's description.
func (r Resource) Description() string { return r.b.description }

type compiledResource struct {
	def     mcp.Resource
	handler ResourceFunc
}

func (r *compiledResource) read(ctx context.Context, inv Invocation) (*mcp.ReadResourceResult, error) {
	uri := r.def.URI
	out, err := r.handler(ctx, &ResourceRequest{uri: uri, env: inv.Env, sessionID: inv.SessionID})
	if err != nil {
		return nil, err
	}

	contents := mcp.ResourceContents{URI: uri, MimeType: r.def.MimeType}
	if text, ok := out.(string); ok {
		contents.Text = text
		return &mcp.ReadResourceResult{Contents: []mcp.ResourceContents{contents}}, nil
	}

	data, ok, err := binaryPayload(out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, mcp.NewError(mcp.ResourceNotFound, "", map[string]any{"uri": uri})
	}
	if r.def.MimeType == "" {
		return nil, mcp.NewError(mcp.InternalError, "Resource mimeType not set", map[string]any{"uri": uri})
	}
	contents.Blob = DataURI(r.def.MimeType, data)
	return &mcp.ReadResourceResult{Contents: []mcp.ResourceContents{contents}}, nil
}

// binaryPayload extracts the bytes of a binary handler result. ok is false
// for values that are not binary.
func binaryPayload(out any) (data []byte, ok bool, err error) {
	switch v := out.(type) {
	case []byte:
		return v, true, nil
	case *bytes.Buffer:
		if v == nil {
			return nil, false, nil
		}
		return v.Bytes(), true, nil
	case io.Reader:
		if c, isCloser := v.(io.Closer); isCloser {
			defer c.Close()
		}
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, false, err
		}
		return data, true, nil
	}
	return nil, false, nil
}

// DataURI encodes data as data:<mime>;base64,<payload>.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

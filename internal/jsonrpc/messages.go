package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

var (
	// ErrInvalidJSON reports a body that is not well-formed JSON.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrNotAnObject reports a request entry that is not a JSON object.
	ErrNotAnObject = errors.New("request must be a JSON object")
	// ErrMissingMethod reports a request entry without a string method.
	ErrMissingMethod = errors.New("request method must be a non-empty string")
)

// Request represents a JSON-RPC request. The jsonrpc member is accepted but
// not required on inbound requests.
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc,omitempty"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id"`
}

// Response represents a JSON-RPC response. The id member is always emitted,
// as null when the request id is unknown.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	ID             *RequestID      `json:"id"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
}

// ErrorCode is a JSON-RPC 2.0 error code. The values themselves belong to the
// protocol layer.
type ErrorCode int

// Error is a JSON-RPC error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

// NewResultResponse builds a successful JSON-RPC response object.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Result:         resultBytes,
		ID:             id,
	}, nil
}

// NewErrorResponse builds an error JSON-RPC response with the given code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string, data any) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// SplitBody parses a request body into its entries. A top-level JSON array
// is a batch; anything else is a single entry. Only well-formedness is
// checked here, so a batch may contain entries that fail DecodeRequest.
func SplitBody(body []byte) (entries []json.RawMessage, batch bool, err error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, false, ErrInvalidJSON
	}
	if trimmed[0] != '[' {
		return []json.RawMessage{json.RawMessage(trimmed)}, false, nil
	}
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if entries == nil {
		entries = []json.RawMessage{}
	}
	return entries, true, nil
}

// DecodeRequest decodes a single batch entry. When the entry is malformed the
// returned error is non-nil and the returned request still carries whatever
// id could be recovered so the caller can address its error response.
func DecodeRequest(raw json.RawMessage) (*Request, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return &Request{}, ErrNotAnObject
	}

	var fields struct {
		JSONRPCVersion string          `json:"jsonrpc"`
		Method         json.RawMessage `json:"method"`
		Params         json.RawMessage `json:"params"`
		ID             json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return &Request{}, fmt.Errorf("invalid request: %w", err)
	}

	req := &Request{JSONRPCVersion: fields.JSONRPCVersion, Params: fields.Params}
	if len(fields.ID) > 0 {
		var id RequestID
		if err := json.Unmarshal(fields.ID, &id); err != nil {
			return req, err
		}
		req.ID = &id
	}

	if err := json.Unmarshal(fields.Method, &req.Method); err != nil || req.Method == "" {
		return req, ErrMissingMethod
	}

	return req, nil
}

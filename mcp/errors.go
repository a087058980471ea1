package mcp

import (
	"errors"
	"fmt"
)

// ErrorKind is a symbolic protocol failure category.
type ErrorKind int

const (
	ParseError ErrorKind = iota
	ResourceNotFound
	InvalidRequest
	MethodNotFound
	InvalidParams
	InternalError
)

var errorTable = [...]struct {
	code    int
	message string
	name    string
}{
	ParseError:       {-32700, "Parse error", "ParseError"},
	ResourceNotFound: {-32002, "Resource not found", "ResourceNotFound"},
	InvalidRequest:   {-32600, "Invalid request", "InvalidRequest"},
	MethodNotFound:   {-32601, "Method not found", "MethodNotFound"},
	InvalidParams:    {-32602, "Invalid parameters", "InvalidParams"},
	InternalError:    {-32603, "Internal error", "InternalError"},
}

func (k ErrorKind) valid() bool { return k >= 0 && int(k) < len(errorTable) }

// Code returns the numeric JSON-RPC code for the kind.
func (k ErrorKind) Code() int {
	if !k.valid() {
		return errorTable[InternalError].code
	}
	return errorTable[k].code
}

// DefaultMessage returns the human message used when none is supplied.
func (k ErrorKind) DefaultMessage() string {
	if !k.valid() {
		return errorTable[InternalError].message
	}
	return errorTable[k].message
}

func (k ErrorKind) String() string {
	if !k.valid() {
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
	return errorTable[k].name
}

// Error is a protocol-level failure carried as a value. It satisfies the
// error interface so handlers can return it through their normal error
// result; the engine serializes it verbatim as the JSON-RPC error object.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
	Data    any
}

// NewError builds an Error of the given kind. An empty message selects the
// kind's default message; data may be nil.
func NewError(kind ErrorKind, message string, data any) *Error {
	if message == "" {
		message = kind.DefaultMessage()
	}
	return &Error{
		Kind:    kind,
		Code:    kind.Code(),
		Message: message,
		Data:    data,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("mcp: %s (%d): %s", e.Kind, e.Code, e.Message)
}

// Is reports whether target is an *Error of the same kind, so callers can
// write errors.Is(err, mcp.NewError(mcp.InvalidParams, "", nil)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var me *Error
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	me, ok := AsError(err)
	return ok && me.Kind == kind
}

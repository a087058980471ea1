// Package mcp holds the Model Context Protocol wire types, method names and
// error kinds used by the capability layer and both transports. It has no
// transport logic of its own.
//
// Handlers report expected failures by returning an *Error:
//
//	if in.Path == "" {
//		return nil, mcp.NewError(mcp.InvalidParams, "path is required", nil)
//	}
//
// The engine sends such errors to the client with their code, message and
// data. Every other error is logged and answered with a generic
// InternalError.
package mcp

// Package mcphttp serves a compiled mcpservice.Server over plain HTTP
// request/response.
//
// Every request is a POST whose body is one JSON-RPC request object or a
// batch array. The response body mirrors that shape. There is no streaming
// and no server-side session state: the Mcp-Session-Id request header is
// passed through to handlers, or generated when absent, and is always echoed
// on the response.
//
//	srv, err := mcpservice.New(decl)
//	if err != nil { ... }
//	http.Handle("/mcp", mcphttp.New(srv, mcphttp.WithLogger(logger)))
//
// Status codes: 200 for any body that parsed (including per-entry JSON-RPC
// errors), 400 with a single ParseError envelope for an unparsable or
// oversized body, and 405 for any method other than POST.
package mcphttp

// Package stdio serves a declaration over a pair of byte streams, normally
// the process's stdin and stdout. Each input line holds one JSON-RPC message
// or batch; each non-blank line produces exactly one response line.
//
// A Handler carries a single session id for its lifetime. Lines are handled
// in order, so a slow call delays the ones after it.
//
//	srv, err := mcpservice.New(decl)
//	if err != nil {
//		log.Fatal(err)
//	}
//	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
//	if err := stdio.NewHandler(srv, stdio.WithLogger(logger)).Serve(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// Logs must never be written to the output stream.
package stdio

// Package mcpservice declares the tools, prompts and resources a server
// exposes and compiles them into an immutable Server.
//
// Capabilities are built from immutable builder values. Each configuration
// step returns a copy, and a final Handle step attaches the handler. For tools
// and prompts that step is a generic function so the handler's input type is
// fixed by the signature it is given:
//
//	type EchoIn struct {
//	    Text string `json:"text"`
//	}
//
//	echo := mcpservice.HandleTool(
//	    mcpservice.NewTool("Echo text back").Input(schema.Reflect[EchoIn]()),
//	    func(ctx context.Context, r *mcpservice.ToolRequest[EchoIn]) (string, error) {
//	        return r.Input().Text, nil
//	    },
//	)
//
//	logo := mcpservice.NewResource("Project logo").
//	    URI("file:///logo.png").
//	    MimeType("image/png").
//	    Handle(func(ctx context.Context, r *mcpservice.ResourceRequest) (any, error) {
//	        return logoPNG, nil
//	    })
//
//	srv, err := mcpservice.New(mcpservice.Declaration{
//	    Name:      "example",
//	    Version:   "1.0.0",
//	    Tools:     map[string]mcpservice.Tool{"echo": echo},
//	    Resources: map[string]mcpservice.Resource{"logo": logo},
//	})
//
// New validates the whole declaration once (schemas, MIME types, URIs and
// handlers) so nothing is discovered to be misconfigured at request time.
// Define returns the discovery metadata clients use to enumerate the server.
package mcpservice

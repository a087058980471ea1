// Package schema normalizes schema values from several Go schema ecosystems
// into one canonical JSON Schema shape and compiles them into validators.
//
// Every supported schema value reports a vendor tag. A Registry maps each tag
// to a Provider that converts the value to a *Canonical and optionally
// supplies a vendor-native validator. Three providers are registered on
// Default:
//
//	schema.Reflect[T]()       // github.com/invopop/jsonschema reflection
//	schema.For[T]()           // github.com/google/jsonschema-go inference
//	schema.Document(raw)      // hand-written JSON Schema, gojsonschema validation
//
// The two reflecting providers read the `jsonschema` struct tag with
// different grammars. invopop expects key=value pairs
// (`jsonschema:"description=Who to greet"`) while jsonschema-go takes the
// bare description (`jsonschema:"Who to greet"`) and rejects a leading
// "WORD=". A struct shared between them fails at compile time, so give each
// provider its own types.
//
// Adding a provider is a call to Register; lookup is by tag, so the order in
// which providers were registered never matters.
package schema

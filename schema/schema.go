package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Canonical is the normalized JSON Schema representation shared by
// validation and discovery.
type Canonical = jsonschema.Schema

// ErrUnsupportedSchemaKind is returned when no provider is registered for a
// schema's vendor tag.
var ErrUnsupportedSchemaKind = errors.New("unsupported schema kind")

// Schema is any schema value that carries a vendor discriminator.
type Schema interface {
	Vendor() string
}

// ValidateFunc checks a decoded JSON instance and returns the issues found.
type ValidateFunc func(raw json.RawMessage) []Issue

// Issue is a single validation failure. Path is empty for failures that
// cannot be attributed to a specific location.
//
// Granularity depends on the provider. Document schemas report one issue per
// failing field with Path set. The invopop and jsonschema-go providers
// validate with jsonschema-go, whose error is reported as exactly one issue
// with an empty Path; its Message names the failing location.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Provider converts schemas of one vendor.
type Provider struct {
	Vendor  string
	Convert func(Schema) (*Canonical, error)
	// Compile is optional. When nil the canonical form is resolved and
	// validated with jsonschema-go.
	Compile func(Schema) (ValidateFunc, error)
}

// Registry dispatches schemas to providers by vendor tag.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns a registry holding the given providers.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a provider. Registering the same vendor twice is an error.
func (r *Registry) Register(p Provider) error {
	if p.Vendor == "" {
		return errors.New("schema: provider vendor is empty")
	}
	if p.Convert == nil {
		return fmt.Errorf("schema: provider %q has no converter", p.Vendor)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.providers[p.Vendor]; dup {
		return fmt.Errorf("schema: provider %q already registered", p.Vendor)
	}
	r.providers[p.Vendor] = p
	return nil
}

func (r *Registry) lookup(s Schema) (Provider, error) {
	if s == nil {
		return Provider{}, fmt.Errorf("%w: nil schema", ErrUnsupportedSchemaKind)
	}
	r.mu.RLock()
	p, ok := r.providers[s.Vendor()]
	r.mu.RUnlock()
	if !ok {
		return Provider{}, fmt.Errorf("%w: %q", ErrUnsupportedSchemaKind, s.Vendor())
	}
	return p, nil
}

// Normalize converts s to its canonical form.
func (r *Registry) Normalize(s Schema) (*Canonical, error) {
	p, err := r.lookup(s)
	if err != nil {
		return nil, err
	}
	c, err := p.Convert(s)
	if err != nil {
		return nil, fmt.Errorf("schema: convert %s: %w", p.Vendor, err)
	}
	return c, nil
}

// Compile normalizes s and prepares its validator.
func (r *Registry) Compile(s Schema) (*Compiled, error) {
	p, err := r.lookup(s)
	if err != nil {
		return nil, err
	}
	c, err := p.Convert(s)
	if err != nil {
		return nil, fmt.Errorf("schema: convert %s: %w", p.Vendor, err)
	}

	var fn ValidateFunc
	if p.Compile != nil {
		fn, err = p.Compile(s)
	} else {
		fn, err = canonicalValidator(c)
	}
	if err != nil {
		return nil, fmt.Errorf("schema: compile %s: %w", p.Vendor, err)
	}
	return &Compiled{Canonical: c, validate: fn}, nil
}

// Compiled pairs a canonical schema with its validator.
type Compiled struct {
	Canonical *Canonical
	validate  ValidateFunc
}

var emptyObject = json.RawMessage(`{}`)

// Validate checks raw against the schema. Missing or null input is treated
// as an empty object.
func (c *Compiled) Validate(raw json.RawMessage) []Issue {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = emptyObject
	}
	return c.validate(json.RawMessage(trimmed))
}

func canonicalValidator(c *Canonical) (ValidateFunc, error) {
	resolved, err := c.Resolve(nil)
	if err != nil {
		return nil, err
	}
	return func(raw json.RawMessage) []Issue {
		var instance any
		if err := json.Unmarshal(raw, &instance); err != nil {
			return []Issue{{Message: err.Error()}}
		}
		if err := resolved.Validate(instance); err != nil {
			return []Issue{{Message: err.Error()}}
		}
		return nil
	}, nil
}

// Clone deep-copies a canonical schema through its JSON form. A nil schema
// clones to nil.
func Clone(c *Canonical) (*Canonical, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var out Canonical
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Default is the process-wide registry holding the built-in providers.
var Default = mustRegistry(InvopopProvider(), JSONSchemaGoProvider(), DocumentProvider())

func mustRegistry(providers ...Provider) *Registry {
	r, err := NewRegistry(providers...)
	if err != nil {
		panic(err)
	}
	return r
}

// Normalize converts s with the Default registry.
func Normalize(s Schema) (*Canonical, error) { return Default.Normalize(s) }

// Compile compiles s with the Default registry.
func Compile(s Schema) (*Compiled, error) { return Default.Compile(s) }

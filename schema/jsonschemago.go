package schema

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// VendorJSONSchemaGo tags schemas built with github.com/google/jsonschema-go.
const VendorJSONSchemaGo = "jsonschema-go"

// JSONSchemaGo wraps a jsonschema-go schema. A non-nil Err records an
// inference failure, reported when the schema is normalized.
type JSONSchemaGo struct {
	Schema *jsonschema.Schema
	Err    error
}

func (JSONSchemaGo) Vendor() string { return VendorJSONSchemaGo }

// For infers a schema for T with jsonschema-go.
func For[T any]() JSONSchemaGo {
	s, err := jsonschema.For[T](nil)
	return JSONSchemaGo{Schema: s, Err: err}
}

// FromCanonical wraps an existing canonical schema.
func FromCanonical(s *Canonical) JSONSchemaGo {
	return JSONSchemaGo{Schema: s}
}

// JSONSchemaGoProvider passes jsonschema-go schemas through as a deep copy.
func JSONSchemaGoProvider() Provider {
	return Provider{
		Vendor: VendorJSONSchemaGo,
		Convert: func(s Schema) (*Canonical, error) {
			gs, ok := s.(JSONSchemaGo)
			if !ok {
				return nil, fmt.Errorf("expected JSONSchemaGo, got %T", s)
			}
			if gs.Err != nil {
				return nil, gs.Err
			}
			if gs.Schema == nil {
				return nil, fmt.Errorf("nil jsonschema-go schema")
			}
			return Clone(gs.Schema)
		},
	}
}

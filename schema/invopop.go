package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// VendorInvopop tags schemas reflected with github.com/invopop/jsonschema.
const VendorInvopop = "invopop"

// Invopop wraps an invopop schema.
type Invopop struct {
	Schema *jsonschema.Schema
}

func (Invopop) Vendor() string { return VendorInvopop }

// Reflect derives a schema from the Go type T. Unknown object members are
// rejected unless T's own tags say otherwise.
func Reflect[T any]() Invopop {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
		Anonymous:      true,
	}
	return Invopop{Schema: r.ReflectFromType(reflect.TypeFor[T]())}
}

// InvopopProvider converts invopop schemas through their JSON form.
func InvopopProvider() Provider {
	return Provider{
		Vendor: VendorInvopop,
		Convert: func(s Schema) (*Canonical, error) {
			is, ok := s.(Invopop)
			if !ok || is.Schema == nil {
				return nil, fmt.Errorf("expected non-nil Invopop, got %T", s)
			}
			b, err := json.Marshal(is.Schema)
			if err != nil {
				return nil, err
			}
			var c Canonical
			if err := json.Unmarshal(b, &c); err != nil {
				return nil, err
			}
			// The dialect marker is not needed in discovery output.
			c.Schema = ""
			return &c, nil
		},
	}
}

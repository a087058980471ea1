package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// VendorDocument tags raw JSON Schema documents.
const VendorDocument = "document"

// Doc is a hand-written JSON Schema document.
type Doc struct {
	Raw json.RawMessage
}

func (Doc) Vendor() string { return VendorDocument }

// Document wraps a JSON Schema document. The bytes are copied.
func Document(raw []byte) Doc {
	return Doc{Raw: append(json.RawMessage(nil), raw...)}
}

// DocumentProvider decodes documents into canonical form and validates
// instances with gojsonschema, which reports one issue per failing field.
func DocumentProvider() Provider {
	return Provider{
		Vendor: VendorDocument,
		Convert: func(s Schema) (*Canonical, error) {
			d, ok := s.(Doc)
			if !ok {
				return nil, fmt.Errorf("expected Doc, got %T", s)
			}
			var c Canonical
			if err := json.Unmarshal(d.Raw, &c); err != nil {
				return nil, fmt.Errorf("decode document: %w", err)
			}
			return &c, nil
		},
		Compile: func(s Schema) (ValidateFunc, error) {
			d, ok := s.(Doc)
			if !ok {
				return nil, fmt.Errorf("expected Doc, got %T", s)
			}
			compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(d.Raw))
			if err != nil {
				return nil, err
			}
			return func(raw json.RawMessage) []Issue {
				res, err := compiled.Validate(gojsonschema.NewBytesLoader(raw))
				if err != nil {
					return []Issue{{Message: err.Error()}}
				}
				if res.Valid() {
					return nil
				}
				issues := make([]Issue, 0, len(res.Errors()))
				for _, re := range res.Errors() {
					issues = append(issues, Issue{Path: re.Field(), Message: re.Description()})
				}
				return issues
			}, nil
		},
	}
}

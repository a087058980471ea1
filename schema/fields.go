package schema

import (
	"slices"
	"sort"
)

// Field describes a top-level object property.
type Field struct {
	Name        string
	Description string
	Required    bool
}

// Fields lists the top-level properties of c sorted by name.
func Fields(c *Canonical) []Field {
	if c == nil || len(c.Properties) == 0 {
		return nil
	}
	out := make([]Field, 0, len(c.Properties))
	for name, prop := range c.Properties {
		f := Field{Name: name, Required: slices.Contains(c.Required, name)}
		if prop != nil {
			f.Description = prop.Description
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

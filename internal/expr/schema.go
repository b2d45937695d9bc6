package expr

import "github.com/danielgtaylor/huma/v2"

// Schema describes the wire form in generated OpenAPI documents.
func (Expr) Schema(r huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:        huma.TypeArray,
		Description: "Mapbox GL filter expression",
		Items:       &huma.Schema{},
		Examples:    []any{[]any{"==", []any{"get", "route"}, "bicycle"}},
	}
}

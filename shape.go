package appstate

import (
	"reflect"
	"strings"

	"github.com/goliatone/go-appstate/internal/fields"
)

// Field scopes reported by Shape.
const (
	ScopeMeta    = "meta"
	ScopeSession = "session"
	ScopePage    = "page"
	ScopePreview = "preview"
)

// FieldDescriptor describes one patchable tree field.
type FieldDescriptor struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Scope    string `json:"scope"`
	Page     string `json:"page,omitempty"`
	Retained bool   `json:"retained,omitempty"`
	Rule     string `json:"rule,omitempty"`
}

// Shape lists the fields a patch may name, in declaration order.
func (s *Store) Shape() []FieldDescriptor {
	retained := make(map[string]bool, len(s.retained))
	for _, name := range s.retained {
		retained[name] = true
	}
	out := make([]FieldDescriptor, 0, len(s.index.Fields()))
	for _, field := range s.index.Fields() {
		descriptor := FieldDescriptor{
			Name:     field.Name,
			Type:     field.Type.String(),
			Scope:    fieldScope(field),
			Page:     field.Lookup("page"),
			Retained: retained[field.Name],
		}
		if rule, ok := s.auditor.rules[field.Name]; ok {
			descriptor.Rule = rule.expr
		}
		out = append(out, descriptor)
	}
	return out
}

func fieldScope(field fields.Field) string {
	if scope := field.Lookup("scope"); scope != "" {
		return scope
	}
	if field.Lookup("page") != "" {
		return ScopePage
	}
	return ScopeMeta
}

// PatchSchema returns a JSON Schema object describing valid patches. Field
// classes are exposed as x-scope and x-page extensions.
func (s *Store) PatchSchema() map[string]any {
	properties := map[string]any{}
	for _, descriptor := range s.Shape() {
		field, _ := s.index.Lookup(descriptor.Name)
		schema := typeSchema(field.Type, map[reflect.Type]bool{})
		schema["x-scope"] = descriptor.Scope
		if descriptor.Page != "" {
			schema["x-page"] = descriptor.Page
		}
		if descriptor.Retained {
			schema["x-retained"] = true
		}
		properties[descriptor.Name] = schema
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
}

// typeSchema maps a Go type onto JSON Schema. Recursive types stop at the
// first repetition.
func typeSchema(typ reflect.Type, visiting map[reflect.Type]bool) map[string]any {
	nullable := false
	for typ.Kind() == reflect.Pointer {
		nullable = true
		typ = typ.Elem()
	}

	var schema map[string]any
	switch typ.Kind() {
	case reflect.Bool:
		schema = map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		schema = map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		schema = map[string]any{"type": "number"}
	case reflect.String:
		schema = map[string]any{"type": "string"}
	case reflect.Slice, reflect.Array:
		schema = map[string]any{"type": "array", "items": typeSchema(typ.Elem(), visiting)}
		nullable = nullable || typ.Kind() == reflect.Slice
	case reflect.Map:
		schema = map[string]any{"type": "object", "additionalProperties": typeSchema(typ.Elem(), visiting)}
		nullable = true
	case reflect.Struct:
		if visiting[typ] {
			schema = map[string]any{"type": "object", "x-go-type": typ.String()}
			break
		}
		visiting[typ] = true
		properties := map[string]any{}
		for i := 0; i < typ.NumField(); i++ {
			sf := typ.Field(i)
			if !sf.IsExported() {
				continue
			}
			name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = sf.Name
			}
			properties[name] = typeSchema(sf.Type, visiting)
		}
		delete(visiting, typ)
		schema = map[string]any{"type": "object", "properties": properties}
	default:
		schema = map[string]any{"x-go-type": typ.String()}
	}
	if nullable {
		if kind, ok := schema["type"].(string); ok {
			schema["type"] = []string{kind, "null"}
		}
	}
	return schema
}

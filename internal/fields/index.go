package fields

import (
	"fmt"
	"reflect"
	"strings"
)

// Field describes one exported struct field addressed by its JSON key.
type Field struct {
	Name  string
	Index int
	Type  reflect.Type
	Tag   reflect.StructTag
}

// Lookup returns the value of an auxiliary struct tag on the field.
func (f Field) Lookup(key string) string {
	return strings.TrimSpace(f.Tag.Get(key))
}

// Index maps JSON keys onto the fields of a struct type. It is immutable
// after construction and safe for concurrent use.
type Index struct {
	typ     reflect.Type
	byName  map[string]Field
	ordered []Field
}

// NewIndex builds an Index for typ, which must be a struct type. Fields
// tagged `json:"-"` and unexported fields are skipped; fields without a JSON
// name fall back to their Go name.
func NewIndex(typ reflect.Type) (*Index, error) {
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("fields: %v is not a struct type", typ)
	}
	idx := &Index{
		typ:    typ,
		byName: make(map[string]Field, typ.NumField()),
	}
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := jsonName(sf)
		if name == "-" {
			continue
		}
		if _, exists := idx.byName[name]; exists {
			return nil, fmt.Errorf("fields: duplicate key %q on %s", name, typ)
		}
		field := Field{Name: name, Index: i, Type: sf.Type, Tag: sf.Tag}
		idx.byName[name] = field
		idx.ordered = append(idx.ordered, field)
	}
	return idx, nil
}

// Type returns the indexed struct type.
func (i *Index) Type() reflect.Type {
	return i.typ
}

// Lookup resolves a key to its field.
func (i *Index) Lookup(name string) (Field, bool) {
	field, ok := i.byName[name]
	return field, ok
}

// Fields returns the fields in declaration order.
func (i *Index) Fields() []Field {
	out := make([]Field, len(i.ordered))
	copy(out, i.ordered)
	return out
}

// Names returns the keys whose auxiliary tag key equals value.
func (i *Index) Names(key, value string) []string {
	var names []string
	for _, field := range i.ordered {
		if field.Lookup(key) == value {
			names = append(names, field.Name)
		}
	}
	return names
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" {
		return sf.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name
	}
	return name
}

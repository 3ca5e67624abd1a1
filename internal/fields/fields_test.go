package fields

import (
	"reflect"
	"testing"
)

type sampleItem struct {
	SKU   string
	Count int
}

type sampleTree struct {
	Page    string            `json:"page,omitempty"`
	Items   []sampleItem      `json:"items,omitempty" scope:"session"`
	Labels  map[string]string `json:"labels"`
	Detail  *sampleItem       `json:"detail" page:"Detail"`
	Hidden  string            `json:"-"`
	NoTag   bool
	private int
}

func TestNewIndexUsesJSONNames(t *testing.T) {
	idx, err := NewIndex(reflect.TypeOf(sampleTree{}))
	if err != nil {
		t.Fatalf("index: %v", err)
	}

	if _, ok := idx.Lookup("page"); !ok {
		t.Fatalf("expected page key")
	}
	if _, ok := idx.Lookup("Hidden"); ok {
		t.Fatalf("expected json:\"-\" field to be skipped")
	}
	if _, ok := idx.Lookup("NoTag"); !ok {
		t.Fatalf("expected untagged field to use Go name")
	}
	if _, ok := idx.Lookup("private"); ok {
		t.Fatalf("expected unexported field to be skipped")
	}

	detail, _ := idx.Lookup("detail")
	if detail.Lookup("page") != "Detail" {
		t.Fatalf("expected page tag, got %q", detail.Lookup("page"))
	}
	if got := idx.Names("scope", "session"); len(got) != 1 || got[0] != "items" {
		t.Fatalf("expected items as session field, got %v", got)
	}

	names := make([]string, 0)
	for _, field := range idx.Fields() {
		names = append(names, field.Name)
	}
	want := []string{"page", "items", "labels", "detail", "NoTag"}
	if !reflect.DeepEqual(want, names) {
		t.Fatalf("unexpected field order\nwant: %v\n got: %v", want, names)
	}
}

func TestNewIndexRejectsNonStruct(t *testing.T) {
	if _, err := NewIndex(reflect.TypeOf(42)); err == nil {
		t.Fatalf("expected error for non-struct type")
	}
}

func TestCloneDetachesNestedData(t *testing.T) {
	original := sampleTree{
		Items:  []sampleItem{{SKU: "a", Count: 1}},
		Labels: map[string]string{"k": "v"},
		Detail: &sampleItem{SKU: "d"},
	}

	cloned := Clone(original)
	cloned.Items[0].Count = 9
	cloned.Labels["k"] = "changed"
	cloned.Detail.SKU = "changed"

	if original.Items[0].Count != 1 || original.Labels["k"] != "v" || original.Detail.SKU != "d" {
		t.Fatalf("clone shares data with original: %+v", original)
	}
}

func TestConvertCases(t *testing.T) {
	itemType := reflect.TypeOf(&sampleItem{})

	cases := []struct {
		name  string
		value any
		typ   reflect.Type
		ok    bool
		check func(t *testing.T, got reflect.Value)
	}{
		{
			name:  "nil clears pointer",
			value: nil,
			typ:   itemType,
			ok:    true,
			check: func(t *testing.T, got reflect.Value) {
				if !got.IsNil() {
					t.Fatalf("expected nil pointer")
				}
			},
		},
		{
			name:  "value wrapped into pointer",
			value: sampleItem{SKU: "x"},
			typ:   itemType,
			ok:    true,
			check: func(t *testing.T, got reflect.Value) {
				if got.Interface().(*sampleItem).SKU != "x" {
					t.Fatalf("unexpected value %+v", got.Interface())
				}
			},
		},
		{
			name:  "pointer dereferenced",
			value: &sampleItem{SKU: "y"},
			typ:   reflect.TypeOf(sampleItem{}),
			ok:    true,
			check: func(t *testing.T, got reflect.Value) {
				if got.Interface().(sampleItem).SKU != "y" {
					t.Fatalf("unexpected value %+v", got.Interface())
				}
			},
		},
		{
			name:  "numeric conversion",
			value: 3.0,
			typ:   reflect.TypeOf(0),
			ok:    true,
			check: func(t *testing.T, got reflect.Value) {
				if got.Int() != 3 {
					t.Fatalf("expected 3, got %v", got.Int())
				}
			},
		},
		{
			name:  "int to string rejected",
			value: 65,
			typ:   reflect.TypeOf(""),
			ok:    false,
		},
		{
			name:  "map into struct rejected",
			value: map[string]any{"SKU": "z"},
			typ:   itemType,
			ok:    false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Convert(tc.value, tc.typ)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if tc.check != nil {
				tc.check(t, got)
			}
		})
	}
}

func TestConvertClonesAssignedPointer(t *testing.T) {
	item := &sampleItem{SKU: "orig"}
	got, ok := Convert(item, reflect.TypeOf(item))
	if !ok {
		t.Fatalf("expected conversion")
	}
	item.SKU = "mutated"
	if got.Interface().(*sampleItem).SKU != "orig" {
		t.Fatalf("expected converted value to be detached from input")
	}
}

func TestEqualDeep(t *testing.T) {
	a := reflect.ValueOf(&sampleItem{SKU: "a"})
	b := reflect.ValueOf(&sampleItem{SKU: "a"})
	if !Equal(a, b) {
		t.Fatalf("expected pointers to equal structs to compare equal")
	}
	if Equal(a, reflect.ValueOf(&sampleItem{SKU: "b"})) {
		t.Fatalf("expected different values to compare unequal")
	}
	if !Equal(reflect.Value{}, reflect.Value{}) {
		t.Fatalf("expected invalid values to compare equal")
	}
}

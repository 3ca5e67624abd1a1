package hydrate

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type product struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Images []string `json:"images,omitempty"`
}

func resolver(key string) (reflect.Type, bool) {
	switch key {
	case "page":
		return reflect.TypeOf(""), true
	case "loading":
		return reflect.TypeOf(false), true
	case "product":
		return reflect.TypeOf(&product{}), true
	default:
		return nil, false
	}
}

func TestDecodeTypesKnownKeys(t *testing.T) {
	decoder := NewDecoder(resolver)

	got, err := decoder.DecodeBytes(Context{Location: "/p/1"}, []byte(`{
		"page": "Product",
		"loading": false,
		"product": {"id": "1", "name": "Shirt", "images": ["a.png"]},
		"extra": 7
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got["page"] != "Product" {
		t.Fatalf("expected page string, got %#v", got["page"])
	}
	p, ok := got["product"].(*product)
	if !ok {
		t.Fatalf("expected *product, got %T", got["product"])
	}
	want := &product{ID: "1", Name: "Shirt", Images: []string{"a.png"}}
	if !reflect.DeepEqual(want, p) {
		t.Fatalf("product mismatch\nwant: %#v\n got: %#v", want, p)
	}
	if got["extra"] != float64(7) {
		t.Fatalf("expected unknown key passed through, got %#v", got["extra"])
	}
}

func TestDecodeNullClearsPointer(t *testing.T) {
	decoder := NewDecoder(resolver)
	got, err := decoder.Decode(Context{}, map[string]any{"product": nil})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p, ok := got["product"].(*product); !ok || p != nil {
		t.Fatalf("expected typed nil *product, got %#v", got["product"])
	}
}

func TestDecodeHooks(t *testing.T) {
	rename := func(_ Context, payload map[string]any) (map[string]any, error) {
		if legacy, ok := payload["pageType"]; ok {
			payload["page"] = legacy
			delete(payload, "pageType")
		}
		return payload, nil
	}
	requirePage := func(ctx Context, values map[string]any) error {
		if _, ok := values["page"]; !ok {
			return errors.New("page missing for " + ctx.Location)
		}
		return nil
	}
	decoder := NewDecoder(resolver, WithPreHook(rename), WithPostHook(requirePage))

	got, err := decoder.Decode(Context{Location: "/c"}, map[string]any{"pageType": "Category"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["page"] != "Category" {
		t.Fatalf("expected renamed page, got %#v", got)
	}

	_, err = decoder.Decode(Context{Location: "/none"}, map[string]any{"loading": true})
	if err == nil || !strings.Contains(err.Error(), "post-hook") {
		t.Fatalf("expected post-hook error, got %v", err)
	}
}

func TestDecodeDisallowUnknownFields(t *testing.T) {
	decoder := NewDecoder(resolver, WithDisallowUnknownFields())
	_, err := decoder.Decode(Context{Location: "/p"}, map[string]any{
		"product": map[string]any{"id": "1", "colour": "red"},
	})
	if err == nil || !strings.Contains(err.Error(), `decode "product"`) {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestDecodeNilPayload(t *testing.T) {
	if _, err := NewDecoder(resolver).Decode(Context{Location: "/x"}, nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}

func TestGenericAndValue(t *testing.T) {
	generic, err := Generic(&product{ID: "9", Name: "Hat"})
	if err != nil {
		t.Fatalf("generic: %v", err)
	}
	m, ok := generic.(map[string]any)
	if !ok || m["id"] != "9" {
		t.Fatalf("expected map with id, got %#v", generic)
	}

	value, err := Value(m, reflect.TypeOf(product{}))
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if value.Interface().(product).Name != "Hat" {
		t.Fatalf("unexpected round trip %#v", value.Interface())
	}
}

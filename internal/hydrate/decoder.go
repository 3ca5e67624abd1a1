package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Context carries identifiers tied to an incoming page payload.
type Context struct {
	Location   string
	Transition string
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the typed values after decoding.
type PostHook func(Context, map[string]any) error

// TypeResolver reports the Go type a payload key decodes into. Keys it does
// not know are passed through untouched.
type TypeResolver func(key string) (reflect.Type, bool)

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder converts JSON-shaped page payloads into typed field values.
type Decoder struct {
	resolve      TypeResolver
	preHooks     []PreHook
	postHooks    []PostHook
	configureDec []func(*json.Decoder)
}

// WithPreHook applies hook prior to decoding.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithDisallowUnknownFields rejects entity payloads carrying keys the target
// struct does not declare.
func WithDisallowUnknownFields() DecoderOption {
	return func(d *Decoder) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// WithDecoderConfig allows callers to configure the json.Decoder directly.
func WithDecoderConfig(configure func(*json.Decoder)) DecoderOption {
	return func(d *Decoder) {
		if configure != nil {
			d.configureDec = append(d.configureDec, configure)
		}
	}
}

func NewDecoder(resolve TypeResolver, opts ...DecoderOption) *Decoder {
	d := &Decoder{resolve: resolve}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// DecodeBytes parses a JSON object and decodes it like Decode.
func (d *Decoder) DecodeBytes(ctx Context, data []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("hydrate: parse payload for %q: %w", ctx.Location, err)
	}
	return d.Decode(ctx, payload)
}

// Decode converts each resolvable key of payload into its typed value,
// applying the configured hooks.
func (d *Decoder) Decode(ctx Context, payload map[string]any) (map[string]any, error) {
	if payload == nil {
		return nil, fmt.Errorf("hydrate: payload is nil for %q", ctx.Location)
	}

	current, err := clonePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("hydrate: clone payload for %q: %w", ctx.Location, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.Location, err)
		}
		if next != nil {
			current = next
		}
	}

	out := make(map[string]any, len(current))
	for key, raw := range current {
		var typ reflect.Type
		ok := false
		if d.resolve != nil {
			typ, ok = d.resolve(key)
		}
		if !ok {
			out[key] = raw
			continue
		}
		value, err := decodeInto(raw, typ, d.configureDec)
		if err != nil {
			return nil, fmt.Errorf("hydrate: decode %q for %q: %w", key, ctx.Location, err)
		}
		out[key] = value.Interface()
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, out); err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.Location, err)
		}
	}

	return out, nil
}

// Value re-decodes a JSON-shaped value (maps, slices, scalars) into typ.
func Value(value any, typ reflect.Type) (reflect.Value, error) {
	return decodeInto(value, typ, nil)
}

// Generic converts value into its JSON-shaped form: structs become
// map[string]any keyed by their JSON names.
func Generic(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	buffer, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeInto(value any, typ reflect.Type, configure []func(*json.Decoder)) (reflect.Value, error) {
	buffer, err := json.Marshal(value)
	if err != nil {
		return reflect.Value{}, err
	}
	target := reflect.New(typ)
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, fn := range configure {
		if fn != nil {
			fn(decoder)
		}
	}
	if err := decoder.Decode(target.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return target.Elem(), nil
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}

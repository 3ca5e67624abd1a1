package fields

import "reflect"

// Convert coerces value into typ without going through serialization. It
// handles nil (zero value), direct assignment, wrapping a value into a
// pointer, dereferencing a pointer, and conversions between values of the
// same basic kind family. The result is always a deep copy.
func Convert(value any, typ reflect.Type) (reflect.Value, bool) {
	if value == nil {
		return reflect.Zero(typ), true
	}
	rv := reflect.ValueOf(value)
	rt := rv.Type()

	switch {
	case rt.AssignableTo(typ):
		return assignable(CloneValue(rv), typ), true
	case typ.Kind() == reflect.Pointer && rt.AssignableTo(typ.Elem()):
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(CloneValue(rv))
		return ptr, true
	case rt.Kind() == reflect.Pointer && rv.IsNil():
		return reflect.Zero(typ), true
	case rt.Kind() == reflect.Pointer && rt.Elem().AssignableTo(typ):
		return assignable(CloneValue(rv.Elem()), typ), true
	case sameFamily(rt.Kind(), typ.Kind()) && rt.ConvertibleTo(typ):
		return rv.Convert(typ), true
	}
	return reflect.Value{}, false
}

func assignable(v reflect.Value, typ reflect.Type) reflect.Value {
	if v.Type() == typ {
		return v
	}
	out := reflect.New(typ).Elem()
	out.Set(v)
	return out
}

func sameFamily(a, b reflect.Kind) bool {
	return kindFamily(a) != 0 && kindFamily(a) == kindFamily(b)
}

func kindFamily(k reflect.Kind) int {
	switch k {
	case reflect.Bool:
		return 1
	case reflect.String:
		return 2
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 3
	default:
		return 0
	}
}

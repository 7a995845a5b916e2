package reactive

import (
	"math"
	"reflect"
)

// sameValue compares like JavaScript's Object.is: NaN equals NaN, 0 and -0
// differ, and maps, slices and funcs compare by identity.
func sameValue(a, b any) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && sameFloat(x, y)
	case float32:
		y, ok := b.(float32)
		return ok && sameFloat(float64(x), float64(y))
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Map:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Func:
		return va.IsNil() && vb.IsNil()
	}
	if !ta.Comparable() {
		return false
	}
	return comparableEqual(a, b)
}

// comparableEqual guards against comparable structs holding incomparable
// values in interface fields.
func comparableEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}

func sameFloat(x, y float64) bool {
	if math.IsNaN(x) && math.IsNaN(y) {
		return true
	}
	if x == 0 && y == 0 {
		return math.Signbit(x) == math.Signbit(y)
	}
	return x == y
}

// isFunction reports whether v is a func taking no arguments and returning at
// least one value.
func isFunction(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	return t.Kind() == reflect.Func && t.NumIn() == 0 && t.NumOut() > 0 && !reflect.ValueOf(v).IsNil()
}

func call(v any) any {
	if fn, ok := v.(func() any); ok {
		return fn()
	}
	return reflect.ValueOf(v).Call(nil)[0].Interface()
}

package convert

import "reflect"

// Washer is a post-conversion, type-keyed value transform applied
// uniformly regardless of which rule produced the value. Washers are
// scanned in declaration order and only the first match applies.
type Washer struct {
	// Applies reports whether this washer handles the value.
	Applies func(v any) bool

	// Wash transforms the value.
	Wash func(v any) any
}

// Typed builds a washer matching exactly values of type T.
func Typed[T any](fn func(T) any) Washer {
	return Washer{
		Applies: func(v any) bool {
			_, ok := v.(T)
			return ok
		},
		Wash: func(v any) any {
			return fn(v.(T))
		},
	}
}

// NumberWasher builds a washer matching any numeric value. The value is
// widened to float64 before washing; integer inputs therefore come back
// as the wash function's return type.
func NumberWasher(fn func(float64) any) Washer {
	return Washer{
		Applies: func(v any) bool {
			_, ok := asFloat(v)
			return ok
		},
		Wash: func(v any) any {
			f, _ := asFloat(v)
			return fn(f)
		},
	}
}

// StringWasher builds a washer matching string values.
func StringWasher(fn func(string) string) Washer {
	return Typed(func(s string) any { return fn(s) })
}

func asFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}

	return 0, false
}

// washValue applies the first matching washer in declaration order.
func washValue(washers []Washer, v any) any {
	for _, w := range washers {
		if w.Applies(v) {
			return w.Wash(v)
		}
	}

	return v
}

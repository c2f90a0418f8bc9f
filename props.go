package smartstate

import (
	"maps"
	"reflect"
	"slices"
)

// Props is a record of field values keyed by field name.
// A missing key and a nil value both mean "undefined".
type Props map[string]any

// Clone returns a shallow copy. Values are shared, the map is not.
func (p Props) Clone() Props {
	if p == nil {
		return Props{}
	}
	return maps.Clone(p)
}

// Pick returns a copy holding only the listed keys that are present.
func (p Props) Pick(keys ...string) Props {
	out := make(Props, len(keys))
	for _, k := range keys {
		if v, ok := p[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Keys returns the keys in sorted order.
func (p Props) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// identical reports whether a and b are the same value for change detection.
// Comparable values use ==, slices compare backing array and length, maps and
// funcs compare by pointer. NaN is never identical to itself; fields that may
// hold NaN need an Equals hook such as DeepEqual.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Slice:
		return va.Len() == vb.Len() && va.Pointer() == vb.Pointer()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	if va.Type().Comparable() {
		return safeEqual(a, b)
	}
	return false
}

// safeEqual compares interface values whose type is comparable at the top
// level but may hold incomparable dynamic values, such as a struct field of
// interface type holding a slice.
func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

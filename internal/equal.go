package internal

import "reflect"

// identical is the engine's notion of "unchanged". Comparable values compare with ==,
// slices and maps compare by identity, and non-nil funcs are never identical.
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
	case reflect.Map:
		return va.Pointer() == vb.Pointer()
	case reflect.Func:
		return va.IsNil() && vb.IsNil()
	}

	if va.Comparable() && vb.Comparable() {
		return va.Equal(vb)
	}
	return false
}

// depsEqual reports whether two dependency lists hold identical values.
// A nil list never matches, so effects without deps run after every commit.
func depsEqual(next, prev []any) bool {
	if next == nil || prev == nil || len(next) != len(prev) {
		return false
	}
	for i := range next {
		if !identical(next[i], prev[i]) {
			return false
		}
	}
	return true
}

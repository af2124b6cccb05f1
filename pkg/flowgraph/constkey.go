package flowgraph

import (
	"fmt"
	"math"
	"reflect"
)

// constKey is a comparable stand-in for a constant value.
type constKey struct {
	kind string
	val  any
	aux  uint8
}

// ConstKey returns a comparable key under which constant operands are
// deduplicated in the constant pool and compared for equality. Values of
// different Go types never share a key (int64(1), float64(1) and true
// stay distinct constants). Floats are keyed by their bit pattern, which
// keeps negative zero apart from positive zero and lets NaN dedupe
// against itself instead of occupying a fresh pool slot per occurrence.
//
// Non-comparable values of reference kinds key by identity; anything
// else falls back to its printed representation.
func ConstKey(v any) any {
	switch v := v.(type) {
	case nil:
		return constKey{kind: "nil"}
	case bool:
		return constKey{kind: "bool", val: v}
	case int:
		return constKey{kind: "int", val: int64(v)}
	case int64:
		return constKey{kind: "int", val: v}
	case uint64:
		return constKey{kind: "uint", val: v}
	case float64:
		return constKey{kind: "float", val: math.Float64bits(v)}
	case complex128:
		return constKey{kind: "complex", val: [2]uint64{
			math.Float64bits(real(v)),
			math.Float64bits(imag(v)),
		}}
	case string:
		return constKey{kind: "string", val: v}
	case []byte:
		return constKey{kind: "bytes", val: string(v)}
	}

	rv := reflect.ValueOf(v)
	if rv.Type().Comparable() {
		return constKey{kind: rv.Type().String(), val: v}
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return constKey{kind: rv.Type().String(), val: rv.Pointer(), aux: 1}
	default:
		return constKey{kind: rv.Type().String(), val: fmt.Sprintf("%#v", v), aux: 2}
	}
}

// Package marshal converts between structured values and the native
// argument lists of registered functions.
//
// The supported parameter and result kinds form a closed set: [Bool], [Int],
// [Float] and [Text], plus [Void] for functions without a value result.
// Compatibility between a declared kind and an incoming value kind follows
// one table:
//
//	Bool  <- bool
//	Int   <- integer
//	Float <- integer, float
//	Text  <- text
package marshal

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/caffeineduck/hostrpc/value"
)

// ErrUnsupportedType is returned for Go types outside the scalar set.
var ErrUnsupportedType = errors.New("unsupported type")

// Kind is a scalar parameter or result kind.
type Kind uint8

const (
	Void Kind = iota
	Bool
	Int
	Float
	Text
)

func (k Kind) String() string {
	switch k {
	case Void:
		return "void"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Text:
		return "text"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// JSONType is the JSON Schema type name of k.
func (k Kind) JSONType() string {
	switch k {
	case Bool:
		return "boolean"
	case Int:
		return "integer"
	case Float:
		return "number"
	case Text:
		return "string"
	}
	return "null"
}

// Accepts reports whether a value of kind vk may be passed where k is
// declared.
func (k Kind) Accepts(vk value.Kind) bool {
	switch k {
	case Bool:
		return vk == value.KindBool
	case Int:
		return vk == value.KindInt
	case Float:
		return vk == value.KindInt || vk == value.KindFloat
	case Text:
		return vk == value.KindText
	}
	return false
}

// KindOf maps a Go type to its scalar kind. uint, uint64 and uintptr are
// rejected because they do not fit the int64 carried by values.
func KindOf(t reflect.Type) (Kind, error) {
	if t == nil {
		return Void, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return Bool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return Int, nil
	case reflect.Float32, reflect.Float64:
		return Float, nil
	case reflect.String:
		return Text, nil
	}
	return Void, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

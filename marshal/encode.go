package marshal

import (
	"fmt"
	"reflect"

	"github.com/caffeineduck/hostrpc/value"
)

// EncodeResult converts a native result of kind p into a value.
func EncodeResult(native any, p Param) (value.Value, error) {
	if p.Kind == Void {
		return value.Null(), nil
	}
	rv := reflect.ValueOf(native)
	if !rv.IsValid() {
		return value.Null(), fmt.Errorf("encode %s result: got nil", p.Kind)
	}
	switch p.Kind {
	case Bool:
		if rv.Kind() == reflect.Bool {
			return value.Bool(rv.Bool()), nil
		}
	case Int:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return value.Int(rv.Int()), nil
		case reflect.Uint8, reflect.Uint16, reflect.Uint32:
			return value.Int(int64(rv.Uint())), nil
		}
	case Float:
		if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
			return value.Float(rv.Float()), nil
		}
	case Text:
		if rv.Kind() == reflect.String {
			return value.Text(rv.String()), nil
		}
	}
	return value.Null(), fmt.Errorf("encode %s result: %w: %s", p.Kind, ErrUnsupportedType, rv.Type())
}

// Placeholder is the typed sample value of k used in schemas.
func Placeholder(k Kind) value.Value {
	switch k {
	case Bool:
		return value.Bool(false)
	case Int:
		return value.Int(0)
	case Float:
		return value.Float(0)
	case Text:
		return value.Text("")
	}
	return value.Null()
}

// Schema describes sig as an array of placeholders, one per parameter:
// add(int, int) becomes [0,0] and f(bool, float, string) [false,0.0,""].
func Schema(sig Signature) value.Value {
	elems := make([]value.Value, len(sig.Params))
	for i, p := range sig.Params {
		elems[i] = Placeholder(p.Kind)
	}
	return value.Array(elems...)
}

package marshal

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/caffeineduck/hostrpc/value"
)

var (
	ErrArityMismatch = errors.New("arity mismatch")
	ErrTypeMismatch  = errors.New("type mismatch")
)

// ArgumentList holds native arguments converted to the exact parameter types
// of a signature.
type ArgumentList []any

// MismatchError describes why a value could not be decoded against a
// signature. Position is -1 when the value as a whole is at fault.
type MismatchError struct {
	Err      error
	Position int
	Received value.Value
	Expected string
}

func (e *MismatchError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("%v: got %s, expected %s", e.Err, e.Received, e.Expected)
	}
	return fmt.Sprintf("%v: argument %d: got %s, expected %s", e.Err, e.Position, e.Received, e.Expected)
}

func (e *MismatchError) Unwrap() error { return e.Err }

// Unmarshal converts an argument array into an ArgumentList for sig. Null is
// read as an empty array. Failures are *MismatchError values wrapping
// ErrArityMismatch or ErrTypeMismatch.
func Unmarshal(args value.Value, sig Signature) (ArgumentList, error) {
	var elems []value.Value
	switch args.Kind() {
	case value.KindNull:
	case value.KindArray:
		elems = args.Elements()
	default:
		return nil, &MismatchError{Err: ErrTypeMismatch, Position: -1, Received: args, Expected: "array"}
	}

	if len(elems) != sig.Arity() {
		return nil, &MismatchError{
			Err:      ErrArityMismatch,
			Position: -1,
			Received: args,
			Expected: fmt.Sprintf("%d arguments", sig.Arity()),
		}
	}

	list := make(ArgumentList, len(elems))
	for i, p := range sig.Params {
		rv, ok := convert(elems[i], p)
		if !ok {
			return nil, &MismatchError{Err: ErrTypeMismatch, Position: i, Received: elems[i], Expected: p.Kind.String()}
		}
		list[i] = rv.Interface()
	}
	return list, nil
}

func convert(v value.Value, p Param) (reflect.Value, bool) {
	if !p.Kind.Accepts(v.Kind()) {
		return reflect.Value{}, false
	}
	rv := reflect.New(p.Type).Elem()
	switch p.Kind {
	case Bool:
		b, _ := v.Bool()
		rv.SetBool(b)
	case Int:
		i, _ := v.Int()
		switch rv.Kind() {
		case reflect.Uint8, reflect.Uint16, reflect.Uint32:
			if i < 0 || rv.OverflowUint(uint64(i)) {
				return reflect.Value{}, false
			}
			rv.SetUint(uint64(i))
		default:
			if rv.OverflowInt(i) {
				return reflect.Value{}, false
			}
			rv.SetInt(i)
		}
	case Float:
		f, ok := v.Float()
		if !ok {
			i, _ := v.Int()
			f = float64(i)
		}
		if rv.OverflowFloat(f) {
			return reflect.Value{}, false
		}
		rv.SetFloat(f)
	case Text:
		s, _ := v.Text()
		rv.SetString(s)
	default:
		return reflect.Value{}, false
	}
	return rv, true
}

// Decoder reports decode failures as a single log record instead of an
// error.
type Decoder struct {
	Logger *slog.Logger
}

// Decode is Unmarshal with the failure logged. The boolean is false when args
// does not match sig.
func (d Decoder) Decode(args value.Value, sig Signature) (ArgumentList, bool) {
	list, err := Unmarshal(args, sig)
	if err == nil {
		return list, true
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var me *MismatchError
	if errors.As(err, &me) {
		logger.Warn("invalid arguments",
			"reason", me.Err.Error(),
			"position", me.Position,
			"received", me.Received.String(),
			"expected", me.Expected,
		)
	} else {
		logger.Warn("invalid arguments", "error", err)
	}
	return nil, false
}

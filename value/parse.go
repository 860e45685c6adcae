package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrParse reports text that is not a single well-formed JSON value.
var ErrParse = errors.New("parse error")

// Parse reads the text form of a Value.
func Parse(text string) (Value, error) {
	return parse(strings.NewReader(text))
}

// ParseBytes is Parse for a byte slice.
func ParseBytes(data []byte) (Value, error) {
	return parse(bytes.NewReader(data))
}

func parse(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("%w: trailing data after value", ErrParse)
	}
	return fromDecoded(raw)
}

func fromDecoded(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case string:
		return Text(x), nil
	case json.Number:
		return parseNumber(x.String())
	case []any:
		arr := make([]Value, len(x))
		for i, e := range x {
			v, err := fromDecoded(e)
			if err != nil {
				return Value{}, err
			}
			arr[i] = v
		}
		return Value{kind: KindArray, arr: arr}, nil
	case map[string]any:
		obj := make(map[string]Value, len(x))
		for k, e := range x {
			v, err := fromDecoded(e)
			if err != nil {
				return Value{}, err
			}
			obj[k] = v
		}
		return Value{kind: KindObject, obj: obj}, nil
	}
	return Value{}, fmt.Errorf("%w: unexpected %T", ErrParse, raw)
}

// parseNumber keeps integer literals that fit int64 as integers.
func parseNumber(lit string) (Value, error) {
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: number %s: %v", ErrParse, lit, err)
	}
	return Float(f), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseBytes(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

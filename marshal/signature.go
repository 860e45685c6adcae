package marshal

import (
	"fmt"
	"reflect"
	"strings"
)

// Param is one position of a signature.
type Param struct {
	Kind Kind
	Type reflect.Type
}

// Signature is the ordered parameter kinds and result kind of a function.
type Signature struct {
	Params []Param
	Result Param
}

// NewSignature builds a Signature from Go types. A nil result means the
// function returns no value.
func NewSignature(params []reflect.Type, result reflect.Type) (Signature, error) {
	sig := Signature{Params: make([]Param, len(params))}
	for i, t := range params {
		k, err := KindOf(t)
		if err != nil {
			return Signature{}, fmt.Errorf("parameter %d: %w", i, err)
		}
		if k == Void {
			return Signature{}, fmt.Errorf("parameter %d: %w: nil type", i, ErrUnsupportedType)
		}
		sig.Params[i] = Param{Kind: k, Type: t}
	}
	k, err := KindOf(result)
	if err != nil {
		return Signature{}, fmt.Errorf("result: %w", err)
	}
	sig.Result = Param{Kind: k, Type: result}
	return sig, nil
}

// Arity is the number of parameters.
func (s Signature) Arity() int { return len(s.Params) }

// Kinds returns the parameter kinds in order.
func (s Signature) Kinds() []Kind {
	kinds := make([]Kind, len(s.Params))
	for i, p := range s.Params {
		kinds[i] = p.Kind
	}
	return kinds
}

// String renders s as "(int, int) -> int".
func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Kind.String())
	}
	b.WriteString(") -> ")
	b.WriteString(s.Result.Kind.String())
	return b.String()
}

package callable

import (
	"fmt"
	"reflect"
)

// Typed is a Callable that remembers the function type F of its target.
type Typed[F any] struct {
	Callable
}

// NewFunc is the typed form of FromFunc.
func NewFunc[F any](fn F) (Typed[F], error) {
	c, err := FromFunc(fn)
	if err != nil {
		return Typed[F]{}, err
	}
	return Typed[F]{c}, nil
}

// NewClosure is the typed form of FromClosure.
func NewClosure[F any](fn F) (Typed[F], error) {
	c, err := FromClosure(fn)
	if err != nil {
		return Typed[F]{}, err
	}
	return Typed[F]{c}, nil
}

// NewMethod is the typed form of FromMethod. F is the signature of the
// method without its receiver:
//
//	h, err := callable.NewMethod[func(int) int](c, (*Counter).Add)
func NewMethod[F any](recv any, method any) (Typed[F], error) {
	c, err := FromMethod(recv, method)
	if err != nil {
		return Typed[F]{}, err
	}
	want := reflect.TypeFor[F]()
	if want.Kind() != reflect.Func || !c.fn.Type().ConvertibleTo(want) {
		return Typed[F]{}, fmt.Errorf("%w: bound method is %s, want %s", ErrNotFunc, c.fn.Type(), want)
	}
	return Typed[F]{c}, nil
}

// Func returns the target as a directly callable F.
func (t Typed[F]) Func() (F, error) {
	var zero F
	if t.IsZero() {
		return zero, ErrUninitializedTarget
	}
	return t.fn.Convert(reflect.TypeFor[F]()).Interface().(F), nil
}

// Erase drops the static type.
func (t Typed[F]) Erase() Callable { return t.Callable }

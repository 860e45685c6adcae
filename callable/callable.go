package callable

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrUninitializedTarget = errors.New("uninitialized target")
	ErrNotFunc             = errors.New("not a function")
	ErrVariadic            = errors.New("variadic functions are not supported")
	ErrResultShape         = errors.New("unsupported result shape")
	ErrInvalidReceiver     = errors.New("invalid receiver")
	ErrArgumentCount       = errors.New("wrong number of arguments")
	ErrArgumentType        = errors.New("wrong argument type")
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Identity is the comparable form of a Callable's (target, stub) pair.
type Identity struct {
	Target uintptr
	Stub   uintptr
}

// closure is the owned storage behind a closure Callable.
type closure struct {
	fn reflect.Value
}

// Callable is a type-erased function handle. The zero Callable is empty and
// fails every invocation with ErrUninitializedTarget.
type Callable struct {
	target any
	stub   uintptr
	fn     reflect.Value

	takesContext bool
	returnsError bool
}

// FromFunc wraps a plain function. Callables built from the same function
// compare equal.
func FromFunc(fn any) (Callable, error) {
	v, err := funcValue(fn)
	if err != nil {
		return Callable{}, err
	}
	return newCallable(nil, v.Pointer(), v)
}

// FromClosure wraps fn in freshly allocated storage owned by the returned
// Callable and shared by its copies.
func FromClosure(fn any) (Callable, error) {
	v, err := funcValue(fn)
	if err != nil {
		return Callable{}, err
	}
	return newCallable(&closure{fn: v}, v.Pointer(), v)
}

// FromMethod binds a method expression such as (*T).M to recv, which must be
// a non-nil pointer accepted as the method's first parameter. Receivers of
// zero-size types are rejected: distinct instances may share one address.
func FromMethod(recv any, method any) (Callable, error) {
	rv := reflect.ValueOf(recv)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return Callable{}, fmt.Errorf("%w: want non-nil pointer, got %T", ErrInvalidReceiver, recv)
	}
	if rv.Type().Elem().Size() == 0 {
		return Callable{}, fmt.Errorf("%w: zero-size receiver %T", ErrInvalidReceiver, recv)
	}
	mv, err := funcValue(method)
	if err != nil {
		return Callable{}, err
	}
	mt := mv.Type()
	if mt.NumIn() == 0 || !rv.Type().AssignableTo(mt.In(0)) {
		return Callable{}, fmt.Errorf("%w: %s is not a method of %s", ErrInvalidReceiver, mt, rv.Type())
	}

	in := make([]reflect.Type, mt.NumIn()-1)
	for i := range in {
		in[i] = mt.In(i + 1)
	}
	out := make([]reflect.Type, mt.NumOut())
	for i := range out {
		out[i] = mt.Out(i)
	}
	bound := reflect.MakeFunc(reflect.FuncOf(in, out, false), func(args []reflect.Value) []reflect.Value {
		return mv.Call(append([]reflect.Value{rv}, args...))
	})
	return newCallable(recv, mv.Pointer(), bound)
}

func funcValue(fn any) (reflect.Value, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("%w: %T", ErrNotFunc, fn)
	}
	if v.IsNil() {
		return reflect.Value{}, ErrUninitializedTarget
	}
	if v.Type().IsVariadic() {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrVariadic, v.Type())
	}
	return v, nil
}

func newCallable(target any, stub uintptr, fn reflect.Value) (Callable, error) {
	t := fn.Type()
	c := Callable{
		target:       target,
		stub:         stub,
		fn:           fn,
		takesContext: t.NumIn() > 0 && t.In(0) == contextType,
	}
	switch t.NumOut() {
	case 0:
	case 1:
		c.returnsError = t.Out(0) == errorType
	case 2:
		if t.Out(1) != errorType {
			return Callable{}, fmt.Errorf("%w: second result of %s must be error", ErrResultShape, t)
		}
		c.returnsError = true
	default:
		return Callable{}, fmt.Errorf("%w: %s has %d results", ErrResultShape, t, t.NumOut())
	}
	return c, nil
}

// IsZero reports whether c holds no target.
func (c Callable) IsZero() bool { return !c.fn.IsValid() }

// Reset empties c. Copies taken earlier are unaffected.
func (c *Callable) Reset() { *c = Callable{} }

// Identity returns the comparable (target, stub) key of c.
func (c Callable) Identity() Identity {
	id := Identity{Stub: c.stub}
	if c.target != nil {
		id.Target = reflect.ValueOf(c.target).Pointer()
	}
	return id
}

// Equal reports whether c and o reference the same target through the same
// stub.
func (c Callable) Equal(o Callable) bool {
	return c.Identity() == o.Identity()
}

// TakesContext reports whether the target's first parameter is a
// context.Context.
func (c Callable) TakesContext() bool { return c.takesContext }

// ReturnsError reports whether the target's last result is an error.
func (c Callable) ReturnsError() bool { return c.returnsError }

// Params returns the argument types, excluding a leading context.
func (c Callable) Params() []reflect.Type {
	if c.IsZero() {
		return nil
	}
	t := c.fn.Type()
	start := 0
	if c.takesContext {
		start = 1
	}
	params := make([]reflect.Type, 0, t.NumIn()-start)
	for i := start; i < t.NumIn(); i++ {
		params = append(params, t.In(i))
	}
	return params
}

// Result returns the value result type, or nil when the target returns
// nothing besides an optional error.
func (c Callable) Result() reflect.Type {
	if c.IsZero() {
		return nil
	}
	t := c.fn.Type()
	n := t.NumOut()
	if c.returnsError {
		n--
	}
	if n == 0 {
		return nil
	}
	return t.Out(0)
}

// Type returns the function type invoked by c, with any bound receiver
// already applied.
func (c Callable) Type() reflect.Type {
	if c.IsZero() {
		return nil
	}
	return c.fn.Type()
}

func (c Callable) String() string {
	if c.IsZero() {
		return "callable(<nil>)"
	}
	return fmt.Sprintf("callable(%s)", c.fn.Type())
}

// Invoke calls the target with args and context.Background.
func (c Callable) Invoke(args ...any) (any, error) {
	return c.InvokeContext(context.Background(), args...)
}

// InvokeContext calls the target with args. ctx is passed as the first
// argument when the target accepts one. The returned value is nil for
// targets without a value result.
func (c Callable) InvokeContext(ctx context.Context, args ...any) (any, error) {
	if c.IsZero() {
		return nil, ErrUninitializedTarget
	}
	params := c.Params()
	if len(args) != len(params) {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrArgumentCount, len(params), len(args))
	}

	in := make([]reflect.Value, 0, len(args)+1)
	if c.takesContext {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, arg := range args {
		av := reflect.ValueOf(arg)
		if !av.IsValid() {
			if !nillable(params[i]) {
				return nil, fmt.Errorf("%w: argument %d is nil, want %s", ErrArgumentType, i, params[i])
			}
			av = reflect.Zero(params[i])
		} else if !av.Type().AssignableTo(params[i]) {
			return nil, fmt.Errorf("%w: argument %d is %s, want %s", ErrArgumentType, i, av.Type(), params[i])
		}
		in = append(in, av)
	}

	return c.unpack(c.fn.Call(in))
}

func (c Callable) unpack(out []reflect.Value) (any, error) {
	var err error
	if c.returnsError {
		last := out[len(out)-1]
		if !last.IsNil() {
			err = last.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, err
	}
	return out[0].Interface(), err
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	}
	return false
}

// Package callable provides a uniform, type-erased handle for Go functions
// of arbitrary signature.
//
// A [Callable] pairs a target reference with an invocation stub. Three
// constructors cover the forms a target can take:
//
//	c1, _ := callable.FromFunc(strings.ToUpper)          // plain function
//	c2, _ := callable.FromMethod(counter, (*Counter).Add) // bound method
//	c3, _ := callable.FromClosure(func(n int) int {       // closure
//	    total += n
//	    return total
//	})
//
// Every form is invoked the same way:
//
//	out, err := c2.Invoke(5)
//
// # Identity
//
// Two Callables are equal when both the target reference and the stub are
// equal. Callables built from the same plain function are equal. The same
// method bound to two different receivers gives two unequal Callables.
//
// A closure Callable owns a heap box holding the closure. Copies of the
// Callable share that box, so they alias the same closure instance and
// compare equal. Each call to [FromClosure] allocates a new box, so two
// constructions never compare equal even when built from the same func
// value. Storage is released by the garbage collector once the last copy
// is gone.
//
// # Signatures
//
// Targets must not be variadic. A leading [context.Context] parameter is
// supplied by [Callable.InvokeContext] and is not counted as an argument.
// Results may be (), (R), (error) or (R, error).
//
// # Typed handles
//
// [Typed] keeps the concrete function type for compile-time checked calls:
//
//	h, _ := callable.NewFunc(add)
//	fn, _ := h.Func()
//	fn(2, 3)
package callable

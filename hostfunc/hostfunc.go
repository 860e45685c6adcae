package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/caffeineduck/hostrpc/callable"
	"github.com/caffeineduck/hostrpc/marshal"
	"github.com/caffeineduck/hostrpc/value"
)

var (
	ErrUnknownFunction = errors.New("unknown function")
	ErrInvalidName     = errors.New("function name required")
)

// Descriptor is an immutable registry entry.
type Descriptor struct {
	Name      string
	Signature marshal.Signature
	Callable  callable.Callable
	Schema    value.Value

	decoder marshal.Decoder
}

// Invoke decodes args, calls the target and encodes its result. Arguments
// that do not match the signature yield a null result and a nil error
// without calling the target.
func (d *Descriptor) Invoke(ctx context.Context, args value.Value) (value.Value, error) {
	list, ok := d.decoder.Decode(args, d.Signature)
	if !ok {
		return value.Null(), nil
	}
	out, err := d.Callable.InvokeContext(ctx, list...)
	if err != nil {
		return value.Null(), err
	}
	return marshal.EncodeResult(out, d.Signature.Result)
}

// Registry maps names to functions. Lookups read an immutable snapshot and
// never block; registrations copy the table under a mutex.
type Registry struct {
	mu     sync.Mutex
	funcs  atomic.Pointer[map[string]*Descriptor]
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for replacement notices and argument
// diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	empty := map[string]*Descriptor{}
	r.funcs.Store(&empty)
	return r
}

// Register adds fn under name, replacing any existing entry. fn may be a
// callable.Callable, a callable.Typed handle or a plain func.
func (r *Registry) Register(name string, fn any) error {
	c, err := toCallable(fn)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return r.add(name, c)
}

// RegisterMethod binds method to recv and registers it under name.
func (r *Registry) RegisterMethod(name string, recv any, method any) error {
	c, err := callable.FromMethod(recv, method)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return r.add(name, c)
}

// RegisterClosure registers fn with owned closure storage.
func (r *Registry) RegisterClosure(name string, fn any) error {
	c, err := callable.FromClosure(fn)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return r.add(name, c)
}

func toCallable(fn any) (callable.Callable, error) {
	switch f := fn.(type) {
	case callable.Callable:
		return f, nil
	case interface{ Erase() callable.Callable }:
		return f.Erase(), nil
	}
	return callable.FromFunc(fn)
}

func (r *Registry) add(name string, c callable.Callable) error {
	if name == "" {
		return ErrInvalidName
	}
	if c.IsZero() {
		return fmt.Errorf("register %s: %w", name, callable.ErrUninitializedTarget)
	}
	sig, err := marshal.NewSignature(c.Params(), c.Result())
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	d := &Descriptor{
		Name:      name,
		Signature: sig,
		Callable:  c,
		Schema:    marshal.Schema(sig),
		decoder:   marshal.Decoder{Logger: r.logger.With("function", name)},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	next := maps.Clone(*r.funcs.Load())
	if _, exists := next[name]; exists {
		r.logger.Info("replacing function", "function", name, "signature", sig.String())
	}
	next[name] = d
	r.funcs.Store(&next)
	return nil
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	d, ok := (*r.funcs.Load())[name]
	return d, ok
}

func (r *Registry) Contains(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	return slices.Sorted(maps.Keys(*r.funcs.Load()))
}

// Call invokes name with an argument array. An unknown name fails with
// ErrUnknownFunction. Arguments that do not match the signature give a null
// result and no error. Errors returned by the target are wrapped with the
// function name.
func (r *Registry) Call(ctx context.Context, name string, args value.Value) (value.Value, error) {
	d, ok := r.Get(name)
	if !ok {
		return value.Null(), fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	result, err := d.Invoke(ctx, args)
	if err != nil {
		return value.Null(), fmt.Errorf("%s: %w", name, err)
	}
	return result, nil
}

// CallString parses text as the argument array and calls name. Text that
// does not parse fails with value.ErrParse.
func (r *Registry) CallString(ctx context.Context, name, text string) (value.Value, error) {
	args, err := value.Parse(text)
	if err != nil {
		return value.Null(), fmt.Errorf("%s arguments: %w", name, err)
	}
	return r.Call(ctx, name, args)
}

// Schema returns every function name mapped to its placeholder array.
func (r *Registry) Schema() map[string]value.Value {
	funcs := *r.funcs.Load()
	schema := make(map[string]value.Value, len(funcs))
	for name, d := range funcs {
		schema[name] = d.Schema
	}
	return schema
}

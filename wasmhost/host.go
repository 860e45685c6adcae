package wasmhost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/caffeineduck/hostrpc/hostfunc"
	"github.com/caffeineduck/hostrpc/marshal"
	"github.com/caffeineduck/hostrpc/value"
)

// DefaultModuleName is the import module name guests use by default.
const DefaultModuleName = "hostrpc"

var (
	ErrClosed      = errors.New("host closed")
	ErrNotExported = errors.New("function not exported")
	ErrRejected    = errors.New("arguments rejected")
)

// Host owns a wazero runtime whose host module forwards calls to a
// registry.
type Host struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	funcs    map[string]hostFunc
	exported []string
	logger   *slog.Logger
	mu       sync.RWMutex
	closed   bool
}

type hostFunc struct {
	fn      api.GoModuleFunc
	params  int
	results int
}

// New creates a runtime, instantiates WASI and exports the numeric
// functions of registry as a host module.
func New(ctx context.Context, registry *hostfunc.Registry, opts ...Option) (*Host, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var cache wazero.CompilationCache
	if cfg.diskCache {
		dir := cfg.cacheDir
		if dir == "" {
			dir = defaultCacheDir()
		}
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(dir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	h := &Host{
		runtime: wazero.NewRuntimeWithConfig(ctx, rtConfig),
		cache:   cache,
		funcs:   make(map[string]hostFunc),
		logger:  cfg.logger,
	}
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, h.runtime); err != nil {
		h.Close()
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	builder := h.runtime.NewHostModuleBuilder(cfg.moduleName)
	for _, name := range registry.List() {
		desc, ok := registry.Get(name)
		if !ok {
			continue
		}
		params, results, ok := wasmSignature(desc.Signature)
		if !ok {
			h.logger.Debug("function not exported to wasm", "function", name, "signature", desc.Signature.String())
			continue
		}
		fn := hostFunction(registry, name, desc.Signature)
		builder.NewFunctionBuilder().
			WithGoModuleFunction(fn, params, results).
			WithName(name).
			Export(name)
		h.funcs[name] = hostFunc{fn: fn, params: len(params), results: len(results)}
		h.exported = append(h.exported, name)
	}

	if _, err := builder.Instantiate(ctx); err != nil {
		h.Close()
		return nil, fmt.Errorf("instantiate host module %q: %w", cfg.moduleName, err)
	}
	return h, nil
}

// wasmSignature maps sig onto wasm value types. ok is false when a
// parameter or the result is text.
func wasmSignature(sig marshal.Signature) (params, results []api.ValueType, ok bool) {
	params = make([]api.ValueType, 0, len(sig.Params))
	for _, p := range sig.Params {
		vt, ok := valueType(p.Kind)
		if !ok {
			return nil, nil, false
		}
		params = append(params, vt)
	}
	if sig.Result.Kind == marshal.Void {
		return params, nil, true
	}
	vt, ok := valueType(sig.Result.Kind)
	if !ok {
		return nil, nil, false
	}
	return params, []api.ValueType{vt}, true
}

func valueType(k marshal.Kind) (api.ValueType, bool) {
	switch k {
	case marshal.Bool:
		return api.ValueTypeI32, true
	case marshal.Int:
		return api.ValueTypeI64, true
	case marshal.Float:
		return api.ValueTypeF64, true
	}
	return 0, false
}

// hostFunction adapts a registry function to the wazero stack calling
// convention. The body is looked up on every call. Errors and rejected
// arguments abort the guest call.
func hostFunction(registry *hostfunc.Registry, name string, sig marshal.Signature) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		args := make([]value.Value, len(sig.Params))
		for i, p := range sig.Params {
			args[i] = decodeStack(p.Kind, stack[i])
		}

		result, err := registry.Call(ctx, name, value.Array(args...))
		if err != nil {
			panic(err)
		}
		if sig.Result.Kind == marshal.Void {
			return
		}
		if result.IsNull() {
			panic(fmt.Errorf("%s: %w", name, ErrRejected))
		}
		stack[0] = encodeStack(result)
	}
}

func decodeStack(k marshal.Kind, raw uint64) value.Value {
	switch k {
	case marshal.Bool:
		return value.Bool(api.DecodeI32(raw) != 0)
	case marshal.Int:
		return value.Int(int64(raw))
	case marshal.Float:
		return value.Float(api.DecodeF64(raw))
	}
	return value.Null()
}

func encodeStack(v value.Value) uint64 {
	switch v.Kind() {
	case value.KindBool:
		if b, _ := v.Bool(); b {
			return 1
		}
	case value.KindInt:
		i, _ := v.Int()
		return uint64(i)
	case value.KindFloat:
		f, _ := v.Float()
		return api.EncodeF64(f)
	}
	return 0
}

// Exported returns the names exported to guests, sorted.
func (h *Host) Exported() []string {
	return slices.Clone(h.exported)
}

// Call invokes an exported host function directly with raw wasm values.
// Failures that would trap a guest are returned as errors.
func (h *Host) Call(ctx context.Context, name string, params ...uint64) (results []uint64, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrClosed
	}
	f, ok := h.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotExported)
	}
	if len(params) != f.params {
		return nil, fmt.Errorf("%s: expected %d params, got %d", name, f.params, len(params))
	}

	stack := make([]uint64, max(f.params, f.results))
	copy(stack, params)

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%s: %v", name, r)
			}
			results = nil
		}
	}()
	f.fn(ctx, nil, stack)
	return stack[:f.results], nil
}

// Instantiate compiles and instantiates a guest module. The caller closes
// the returned module.
func (h *Host) Instantiate(ctx context.Context, guest []byte) (api.Module, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrClosed
	}
	compiled, err := h.runtime.CompileModule(ctx, guest)
	if err != nil {
		return nil, fmt.Errorf("compile guest: %w", err)
	}
	// Instances stay usable after their compiled module is closed.
	defer compiled.Close(ctx)

	module, err := h.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, fmt.Errorf("instantiate guest: %w", err)
	}
	return module, nil
}

// Run instantiates guest, calls its export entry with params and closes
// the instance.
func (h *Host) Run(ctx context.Context, guest []byte, entry string, params ...uint64) ([]uint64, error) {
	module, err := h.Instantiate(ctx, guest)
	if err != nil {
		return nil, err
	}
	defer module.Close(ctx)

	fn := module.ExportedFunction(entry)
	if fn == nil {
		return nil, fmt.Errorf("guest export %q not found", entry)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", entry, err)
	}
	return results, nil
}

// Close releases the runtime and compilation cache.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	ctx := context.Background()
	var errs []error
	if err := h.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if h.cache != nil {
		if err := h.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "hostrpc")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "hostrpc")
	}
	return filepath.Join(os.TempDir(), "hostrpc-cache")
}

package wasmhost

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/caffeineduck/hostrpc/hostfunc"
)

// guestWasm imports hostrpc.add (i64, i64) -> i64 and exports
// compute() -> i64 returning add(2, 3).
var guestWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (i64, i64) -> i64, () -> i64
	0x01, 0x0b, 0x02, 0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e, 0x60, 0x00, 0x01, 0x7e,
	// import section: hostrpc.add
	0x02, 0x0f, 0x01, 0x07, 0x68, 0x6f, 0x73, 0x74, 0x72, 0x70, 0x63, 0x03, 0x61, 0x64, 0x64, 0x00, 0x00,
	// function section
	0x03, 0x02, 0x01, 0x01,
	// export section: compute
	0x07, 0x0b, 0x01, 0x07, 0x63, 0x6f, 0x6d, 0x70, 0x75, 0x74, 0x65, 0x00, 0x01,
	// code section: i64.const 2, i64.const 3, call 0
	0x0a, 0x0a, 0x01, 0x08, 0x00, 0x42, 0x02, 0x42, 0x03, 0x10, 0x00, 0x0b,
}

func newTestHost(t *testing.T, opts ...Option) (*Host, *hostfunc.Registry) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := hostfunc.NewRegistry(hostfunc.WithLogger(logger))
	if err := hostfunc.RegisterBuiltins(registry); err != nil {
		t.Fatal(err)
	}
	h, err := New(context.Background(), registry, append([]Option{WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.Close() })
	return h, registry
}

func TestExported(t *testing.T) {
	h, _ := newTestHost(t)
	got := h.Exported()
	for _, name := range []string{"add", "sub", "mul", "div", "not", "time_now"} {
		if !slices.Contains(got, name) {
			t.Errorf("%s not exported: %v", name, got)
		}
	}
	for _, name := range []string{"concat", "upper", "length"} {
		if slices.Contains(got, name) {
			t.Errorf("text function %s should not be exported", name)
		}
	}
}

func TestCall(t *testing.T) {
	h, _ := newTestHost(t)
	ctx := context.Background()

	res, err := h.Call(ctx, "sub", api.EncodeI64(10), api.EncodeI64(-4))
	if err != nil {
		t.Fatal(err)
	}
	if got := int64(res[0]); got != 14 {
		t.Errorf("sub = %d, want 14", got)
	}

	res, err = h.Call(ctx, "mul", api.EncodeF64(1.5), api.EncodeF64(4))
	if err != nil {
		t.Fatal(err)
	}
	if got := api.DecodeF64(res[0]); got != 6 {
		t.Errorf("mul = %v, want 6", got)
	}

	res, err = h.Call(ctx, "not", api.EncodeI32(0))
	if err != nil {
		t.Fatal(err)
	}
	if res[0] != 1 {
		t.Errorf("not(false) = %d, want 1", res[0])
	}
}

func TestCallErrors(t *testing.T) {
	h, _ := newTestHost(t)
	ctx := context.Background()

	if _, err := h.Call(ctx, "div", api.EncodeF64(1), api.EncodeF64(0)); err == nil || !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("err = %v, want division error", err)
	}
	if _, err := h.Call(ctx, "missing"); !errors.Is(err, ErrNotExported) {
		t.Errorf("err = %v, want ErrNotExported", err)
	}
	if _, err := h.Call(ctx, "add", api.EncodeI64(1)); err == nil {
		t.Error("expected error for wrong param count")
	}
	if _, err := h.Call(ctx, "concat"); !errors.Is(err, ErrNotExported) {
		t.Errorf("err = %v, want ErrNotExported", err)
	}

	h.Close()
	if _, err := h.Call(ctx, "add", 1, 2); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestRunGuest(t *testing.T) {
	h, _ := newTestHost(t)
	res, err := h.Run(context.Background(), guestWasm, "compute")
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || int64(res[0]) != 5 {
		t.Errorf("compute = %v, want [5]", res)
	}

	if _, err := h.Run(context.Background(), guestWasm, "missing"); err == nil {
		t.Error("expected error for missing export")
	}
	if _, err := h.Run(context.Background(), []byte("not wasm"), "compute"); err == nil {
		t.Error("expected compile error")
	}
}

func TestCallVoidAndRepeated(t *testing.T) {
	h, registry := newTestHost(t)
	if err := registry.Register("noop", func() {}); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for i := range 3 {
		res, err := h.Call(ctx, "add", api.EncodeI64(int64(i)), api.EncodeI64(1))
		if err != nil {
			t.Fatal(err)
		}
		if len(res) != 1 || int64(res[0]) != int64(i)+1 {
			t.Errorf("add(%d, 1) = %v", i, res)
		}
	}
	// noop was registered after New and is not exported.
	if _, err := h.Call(ctx, "noop"); !errors.Is(err, ErrNotExported) {
		t.Errorf("err = %v, want ErrNotExported", err)
	}
}

func TestInstantiatedModuleOutlivesCompile(t *testing.T) {
	h, _ := newTestHost(t)
	ctx := context.Background()

	for range 3 {
		mod, err := h.Instantiate(ctx, guestWasm)
		if err != nil {
			t.Fatal(err)
		}
		res, err := mod.ExportedFunction("compute").Call(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if int64(res[0]) != 5 {
			t.Errorf("compute = %d, want 5", int64(res[0]))
		}
		mod.Close(ctx)
	}
}

func TestGuestSeesRegisteredTarget(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := hostfunc.NewRegistry(hostfunc.WithLogger(logger))
	calls := 0
	if err := registry.Register("add", func(a, b int64) int64 { calls++; return a * b }); err != nil {
		t.Fatal(err)
	}
	h, err := New(context.Background(), registry, WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	res, err := h.Run(context.Background(), guestWasm, "compute")
	if err != nil {
		t.Fatal(err)
	}
	if int64(res[0]) != 6 || calls != 1 {
		t.Errorf("compute = %d after %d calls, want 6 after 1", int64(res[0]), calls)
	}
}

func TestModuleName(t *testing.T) {
	h, _ := newTestHost(t, WithModuleName("env"), WithMemoryLimit(MemoryLimit1MB))
	if _, err := h.Run(context.Background(), guestWasm, "compute"); err == nil {
		t.Error("guest importing hostrpc should not link against env")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	h, _ := newTestHost(t, WithDiskCache(dir))
	if _, err := h.Run(context.Background(), guestWasm, "compute"); err != nil {
		t.Fatal(err)
	}
}

func TestGuestSeesReplacement(t *testing.T) {
	h, registry := newTestHost(t)
	if err := registry.Register("add", func(a, b int64) int64 { return a - b }); err != nil {
		t.Fatal(err)
	}
	res, err := h.Run(context.Background(), guestWasm, "compute")
	if err != nil {
		t.Fatal(err)
	}
	if int64(res[0]) != -1 {
		t.Errorf("compute = %d, want -1", int64(res[0]))
	}
}

func TestRejectedArgumentsTrap(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := hostfunc.NewRegistry(hostfunc.WithLogger(logger))
	if err := registry.Register("narrow", func(a int8) int8 { return a }); err != nil {
		t.Fatal(err)
	}
	h, err := New(context.Background(), registry, WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if _, err := h.Call(context.Background(), "narrow", api.EncodeI64(1000)); !errors.Is(err, ErrRejected) {
		t.Errorf("err = %v, want ErrRejected", err)
	}
}

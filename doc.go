// Package hostrpc exposes native Go functions as remotely callable targets.
//
// # Overview
//
// Functions of any supported signature are registered by name. Callers pass
// arguments as a JSON array and receive a JSON value back; arguments are
// checked against the registered signature before the function runs.
//
// # Basic Usage
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("add", func(a, b int) int { return a + b })
//
//	result, _ := registry.CallString(ctx, "add", "[2,3]")
//	fmt.Println(result) // 5
//
//	registry.Schema()["add"] // [0,0]
//
// # Serving
//
//	gw := gateway.New(registry)
//	http.ListenAndServe(":8080", gw.HTTPHandler())
//
//	// or gRPC
//	srv := grpcsvc.NewServer(gw)
//	srv.Serve(ln)
//
// Unknown targets are dropped by the gateway: no result and no error.
//
// # Packages
//
// See [value] for the structured value, [callable] for type-erased
// function handles, [marshal] for argument conversion, [hostfunc] for the
// registry and built-in functions, [gateway] for transports and
// [wasmhost] for exposing numeric functions to WebAssembly guests.
package hostrpc

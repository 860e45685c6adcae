// Package wasmhost exposes a function registry to WebAssembly guests.
//
// [New] builds a wazero runtime with WASI and a host module, named
// "hostrpc" by default, exporting every registered function whose
// parameters and result are numeric. Kinds map onto wasm value types:
//
//	bool   i32 (0 or 1)
//	int    i64
//	float  f64
//	void   no result
//
// Functions taking or returning text have no wasm representation without a
// shared memory convention and are not exported.
//
// # Basic Usage
//
//	host, err := wasmhost.New(ctx, registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close()
//
//	results, err := host.Run(ctx, guestWasm, "compute")
//
// A guest imports host functions by module and field name:
//
//	(import "hostrpc" "add" (func (param i64 i64) (result i64)))
//
// The set of exports is fixed when [New] runs; functions registered
// afterwards are not visible to guests. Bodies are looked up per call, so
// replacing a function is seen by running guests. An error from the
// function, or arguments it rejects, trap the guest.
package wasmhost

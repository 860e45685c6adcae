// Package hostfunc provides the name-keyed function registry and the
// built-in host functions.
//
// # Registry
//
// A [Registry] maps names to Go functions with scalar signatures and calls
// them with structured argument arrays:
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("add", func(a, b int) int { return a + b })
//
//	v, err := registry.CallString(ctx, "add", "[2,3]") // 5
//
// Arguments that do not match the signature produce a null result, a single
// log record and no call. Unknown names fail with [ErrUnknownFunction].
// [Registry.Schema] describes every function as an array of typed
// placeholders, e.g. add becomes [0,0].
//
// Lookups never block. Registering a name that already exists replaces it;
// callers holding the old [Descriptor] keep invoking the old function.
//
// # Built-in Capabilities
//
// Arithmetic, text and clock functions: [RegisterBuiltins].
//
// HTTP: Controlled network access via [HTTP] and [HTTPConfig].
//
//	h := hostfunc.NewHTTP(hostfunc.HTTPConfig{
//	    AllowedHosts: []string{"api.example.com"},
//	})
//	h.Register(registry) // http_get, http_post
//
// Filesystem: Mount-based access via [FS], [Mount], and [MountMode].
//
//	fs := hostfunc.NewFS([]hostfunc.Mount{
//	    {VirtualPath: "/data", HostPath: "./input", Mode: hostfunc.MountReadOnly},
//	})
//	fs.Register(registry) // fs_read, fs_write, fs_exists, fs_size
//
// Key-Value Store: In-memory storage via [KV] and [KVConfig].
//
//	kv := hostfunc.NewKV(hostfunc.DefaultKVConfig())
//	kv.Register(registry) // kv_get, kv_set, kv_delete, kv_has, kv_count
//
// These are registered as bound methods, so two stores registered one after
// the other are distinct targets.
//
// # Security Model
//
//   - HTTP requests are limited to explicitly allowed hosts
//   - Filesystem access is restricted to mounted paths with specific permissions
//   - All operations have configurable size limits
package hostfunc

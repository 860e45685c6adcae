// Package gateway exposes a function registry to remote callers.
//
// A [Request] names a target function and carries its arguments as the JSON
// text of an array:
//
//	{"target": "add", "arguments": "[2,3]"}
//
// [Gateway.Handle] dispatches it through [hostfunc.Registry.CallString].
// Requests for functions that are not registered are logged and dropped:
// no response is produced and no error is returned, so one stray request
// cannot fail a server loop. This differs from the registry's direct API,
// where an unknown name is an error.
//
// # Transports
//
// [Gateway.HTTPHandler] serves JSON-RPC 2.0 at /rpc (methods "invoke" and
// "functions") next to plain REST routes.
//
// [Gateway.ServeStream] serves framed calls over any [net.Listener], usually
// a unix socket. A call is framed as
//
//	\x00HRPC:{"id":"1","target":"add","arguments":"[2,3]"}\x00
//
// and answered with one JSON line, {"id":"1","result":5}. Dropped calls are
// answered with {"id":"1"}.
//
// The grpcsvc and mcptools subpackages add gRPC and MCP transports.
package gateway

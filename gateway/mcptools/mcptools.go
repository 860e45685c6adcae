// Package mcptools exposes registered functions as Model Context Protocol
// tools. Every function becomes a tool of the same name whose input is an
// object with one "arguments" array.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/caffeineduck/hostrpc/gateway"
	"github.com/caffeineduck/hostrpc/hostfunc"
)

const serverVersion = "0.1.0"

type toolInput struct {
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// NewServer returns an MCP server with one tool per function registered in
// gw at the time of the call.
func NewServer(gw *gateway.Gateway, name string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: serverVersion}, nil)
	for _, fn := range gw.Registry().List() {
		desc, ok := gw.Registry().Get(fn)
		if !ok {
			continue
		}
		mcp.AddTool(server, Tool(desc), handler(gw, desc.Name))
	}
	return server
}

// Tool describes d as an MCP tool.
func Tool(d *hostfunc.Descriptor) *mcp.Tool {
	items := make([]*jsonschema.Schema, len(d.Signature.Params))
	for i, p := range d.Signature.Params {
		items[i] = &jsonschema.Schema{Type: p.Kind.JSONType()}
	}
	args := &jsonschema.Schema{
		Type:        "array",
		Description: fmt.Sprintf("positional arguments, e.g. %s", d.Schema),
		PrefixItems: items,
	}
	return &mcp.Tool{
		Name:        d.Name,
		Description: fmt.Sprintf("%s%s", d.Name, d.Signature),
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"arguments": args},
		},
	}
}

func handler(gw *gateway.Gateway, target string) mcp.ToolHandlerFor[toolInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in toolInput) (*mcp.CallToolResult, any, error) {
		args := string(in.Arguments)
		if len(in.Arguments) == 0 {
			args = "[]"
		}
		resp, err := gw.Handle(ctx, gateway.Request{Target: target, Arguments: args})
		switch {
		case err != nil:
			return errorResult(err.Error()), nil, nil
		case resp == nil:
			return errorResult(fmt.Sprintf("function %q is no longer registered", target)), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: resp.Result.String()}},
		}, nil, nil
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

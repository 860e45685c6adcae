package mcptools

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/caffeineduck/hostrpc/gateway"
	"github.com/caffeineduck/hostrpc/hostfunc"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := hostfunc.NewRegistry(hostfunc.WithLogger(logger))
	if err := hostfunc.RegisterBuiltins(registry); err != nil {
		t.Fatal(err)
	}
	server := NewServer(gateway.New(registry, gateway.WithLogger(logger)), "hostrpc-test")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("connect server: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("got %d content items", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return tc.Text
}

func TestListTools(t *testing.T) {
	session := connect(t)
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	tools := map[string]*mcp.Tool{}
	for _, tool := range res.Tools {
		tools[tool.Name] = tool
	}
	for _, name := range []string{"add", "concat", "div", "length", "mul", "not", "sub", "time_now", "upper"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q missing", name)
		}
	}
	if got := tools["add"].Description; got != "add(int, int) -> int" {
		t.Errorf("add description = %q", got)
	}
}

func TestCallTool(t *testing.T) {
	session := connect(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"add", map[string]any{"arguments": []any{2, 3}}, "5"},
		{"concat", map[string]any{"arguments": []any{"a", "b"}}, `"ab"`},
		{"upper", map[string]any{"arguments": []any{"go"}}, `"GO"`},
		{"not", map[string]any{"arguments": []any{false}}, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: tt.name, Arguments: tt.args})
			if err != nil {
				t.Fatal(err)
			}
			if res.IsError {
				t.Fatalf("tool error: %s", text(t, res))
			}
			if got := text(t, res); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCallToolErrors(t *testing.T) {
	session := connect(t)
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "div",
		Arguments: map[string]any{"arguments": []any{1, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error, got %s", text(t, res))
	}
}

func TestToolSchema(t *testing.T) {
	registry := hostfunc.NewRegistry()
	if err := registry.Register("f", func(b bool, f float64, s string) int64 { return 0 }); err != nil {
		t.Fatal(err)
	}
	desc, _ := registry.Get("f")
	tool := Tool(desc)

	args := tool.InputSchema.(*jsonschema.Schema).Properties["arguments"]
	want := []string{"boolean", "number", "string"}
	if len(args.PrefixItems) != len(want) {
		t.Fatalf("got %d items", len(args.PrefixItems))
	}
	for i, typ := range want {
		if args.PrefixItems[i].Type != typ {
			t.Errorf("item %d type = %s, want %s", i, args.PrefixItems[i].Type, typ)
		}
	}
}

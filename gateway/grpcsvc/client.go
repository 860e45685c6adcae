package grpcsvc

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/caffeineduck/hostrpc/value"
)

// Client calls a remote FunctionService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial opens an insecure, instrumented connection to addr.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// Invoke calls target with the argument array text args.
func (c *Client) Invoke(ctx context.Context, target, args string) (value.Value, error) {
	in, err := structpb.NewStruct(map[string]any{"target": target, "arguments": args})
	if err != nil {
		return value.Value{}, err
	}
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, invokeMethod, in, out); err != nil {
		return value.Value{}, err
	}
	return decodeValue(out)
}

// Functions fetches the remote schema.
func (c *Client) Functions(ctx context.Context) (map[string]value.Value, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, functionsMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	schema := make(map[string]value.Value, len(out.GetFields()))
	for name, v := range out.GetFields() {
		sv, err := decodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		schema[name] = sv
	}
	return schema, nil
}

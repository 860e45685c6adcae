// Package grpcsvc serves a gateway over gRPC.
//
// The service is hostrpc.v1.FunctionService with two unary methods built on
// the protobuf well-known types:
//
//	Invoke(google.protobuf.Struct) returns (google.protobuf.Value)
//	Functions(google.protobuf.Empty) returns (google.protobuf.Struct)
//
// An Invoke request carries "target" and "arguments". Arguments may be the
// JSON text of an array or a list value.
//
// Results and schemas travel as the JSON text of the value in a string
// value, so integers stay distinct from floats. A call to an unknown
// function is answered with a null value.
package grpcsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/caffeineduck/hostrpc/gateway"
	"github.com/caffeineduck/hostrpc/value"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "hostrpc.v1.FunctionService"

const (
	invokeMethod    = "/" + ServiceName + "/Invoke"
	functionsMethod = "/" + ServiceName + "/Functions"
)

// FunctionServiceServer is the server API for FunctionService.
type FunctionServiceServer interface {
	Invoke(context.Context, *structpb.Struct) (*structpb.Value, error)
	Functions(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FunctionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Invoke", Handler: invokeHandler},
		{MethodName: "Functions", Handler: functionsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hostrpc/v1/function.proto",
}

func invokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FunctionServiceServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: invokeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FunctionServiceServer).Invoke(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func functionsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FunctionServiceServer).Functions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: functionsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FunctionServiceServer).Functions(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Service implements FunctionServiceServer on top of a gateway.
type Service struct {
	gw *gateway.Gateway
}

// Register adds the function service for gw to s.
func Register(s grpc.ServiceRegistrar, gw *gateway.Gateway) {
	s.RegisterService(&serviceDesc, &Service{gw: gw})
}

// NewServer returns a gRPC server carrying the function service, the
// standard health service and OpenTelemetry instrumentation.
func NewServer(gw *gateway.Gateway, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	s := grpc.NewServer(opts...)
	Register(s, gw)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return s
}

// Invoke dispatches the request. Calls to unknown functions are answered
// with a null value.
func (s *Service) Invoke(ctx context.Context, in *structpb.Struct) (*structpb.Value, error) {
	req, err := requestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.gw.Handle(ctx, req)
	switch {
	case errors.Is(err, value.ErrParse):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		return nil, status.Error(codes.Internal, err.Error())
	case resp == nil:
		return structpb.NewNullValue(), nil
	}

	return encodeValue(resp.Result), nil
}

// Functions returns the schema of every registered function.
func (s *Service) Functions(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	schema := s.gw.Functions()
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(schema))}
	for name, args := range schema {
		out.Fields[name] = encodeValue(args)
	}
	return out, nil
}

func encodeValue(v value.Value) *structpb.Value {
	return structpb.NewStringValue(v.String())
}

func decodeValue(pv *structpb.Value) (value.Value, error) {
	switch kind := pv.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return value.Null(), nil
	case *structpb.Value_StringValue:
		return value.Parse(kind.StringValue)
	default:
		return value.Value{}, fmt.Errorf("unexpected %T in response", kind)
	}
}

func requestFromStruct(in *structpb.Struct) (gateway.Request, error) {
	fields := in.GetFields()
	target := fields["target"].GetStringValue()
	if target == "" {
		return gateway.Request{}, errors.New("target is required")
	}

	req := gateway.Request{Target: target, Arguments: "[]"}
	switch args := fields["arguments"].GetKind().(type) {
	case nil, *structpb.Value_NullValue:
	case *structpb.Value_StringValue:
		req.Arguments = args.StringValue
	case *structpb.Value_ListValue:
		data, err := json.Marshal(args.ListValue.AsSlice())
		if err != nil {
			return gateway.Request{}, err
		}
		req.Arguments = string(data)
	default:
		return gateway.Request{}, errors.New("arguments must be a string or a list")
	}
	return req, nil
}

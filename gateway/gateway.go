package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/caffeineduck/hostrpc/hostfunc"
	"github.com/caffeineduck/hostrpc/value"
)

const tracerName = "github.com/caffeineduck/hostrpc/gateway"

// ErrTargetPanic is returned when a registered function panics.
var ErrTargetPanic = errors.New("function panicked")

// Request names a function and carries the JSON text of its argument array.
type Request struct {
	Target    string `json:"target"`
	Arguments string `json:"arguments"`
}

// Response carries the result of a dispatched call.
type Response struct {
	Result value.Value `json:"result"`
}

// Gateway dispatches remote requests to a registry.
type Gateway struct {
	registry    *hostfunc.Registry
	logger      *slog.Logger
	tracer      trace.Tracer
	maxBodySize int64
}

// Option configures a Gateway.
type Option func(*Gateway)

func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Gateway) {
		g.tracer = tp.Tracer(tracerName)
	}
}

// WithMaxBodySize caps HTTP request bodies. Default is 1MB.
func WithMaxBodySize(n int64) Option {
	return func(g *Gateway) {
		g.maxBodySize = n
	}
}

func New(registry *hostfunc.Registry, opts ...Option) *Gateway {
	g := &Gateway{
		registry:    registry,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
		maxBodySize: 1 << 20,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handle dispatches req. A request for an unknown function is logged and
// dropped: Handle returns a nil Response and a nil error. Argument text that
// does not parse and errors returned by the function are returned for the
// transport to report.
func (g *Gateway) Handle(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, span := g.tracer.Start(ctx, "gateway.Handle",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("hostrpc.target", req.Target)))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			g.logger.Error("function panicked", "target", req.Target, "panic", p)
			resp, err = nil, fmt.Errorf("%s: %w: %v", req.Target, ErrTargetPanic, p)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if !g.registry.Contains(req.Target) {
		g.logger.Warn("ignoring call to unknown function", "target", req.Target)
		span.SetAttributes(attribute.Bool("hostrpc.dropped", true))
		return nil, nil
	}

	result, err := g.registry.CallString(ctx, req.Target, req.Arguments)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("call", "target", req.Target, "arguments", req.Arguments, "result", result.String())
	return &Response{Result: result}, nil
}

// Functions returns the registry schema.
func (g *Gateway) Functions() map[string]value.Value {
	return g.registry.Schema()
}

// Registry returns the registry requests are dispatched to.
func (g *Gateway) Registry() *hostfunc.Registry {
	return g.registry
}

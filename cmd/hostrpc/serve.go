package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/caffeineduck/hostrpc/gateway"
	"github.com/caffeineduck/hostrpc/gateway/grpcsvc"
	"github.com/caffeineduck/hostrpc/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve registered functions over HTTP, gRPC and a unix socket",
		Long: `Start the gateway.

HTTP endpoints:
  POST   /rpc              JSON-RPC 2.0, methods "invoke" and "functions"
  POST   /call/{target}    Call target; body is the argument array
  GET    /functions        Schema of every function
  GET    /health           Health check

With --grpc the hostrpc.v1.FunctionService and grpc.health.v1 services are
served as well. With --socket framed calls are accepted on a unix socket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}
	cmd.Flags().String("http", "", "HTTP listen address (default from config, :8080)")
	cmd.Flags().String("grpc", "", "gRPC listen address (disabled when empty)")
	cmd.Flags().String("socket", "", "Unix socket path for framed calls (disabled when empty)")
	cmd.Flags().Int64("max-body", 0, "Max HTTP request body size in bytes")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("http") {
		a.cfg.HTTPAddr, _ = flags.GetString("http")
	}
	if flags.Changed("grpc") {
		a.cfg.GRPCAddr, _ = flags.GetString("grpc")
	}
	if flags.Changed("socket") {
		a.cfg.SocketPath, _ = flags.GetString("socket")
	}
	if flags.Changed("max-body") {
		a.cfg.MaxBodySize, _ = flags.GetInt64("max-body")
	}

	ctx := cmd.Context()
	shutdownTracing, err := telemetry.Setup(ctx, "hostrpc", a.cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	registry, err := a.registry()
	if err != nil {
		return err
	}
	gw := gateway.New(registry, gateway.WithLogger(a.logger), gateway.WithMaxBodySize(a.cfg.MaxBodySize))

	var httpLn, grpcLn, streamLn net.Listener
	closeAll := func() {
		for _, ln := range []net.Listener{httpLn, grpcLn, streamLn} {
			if ln != nil {
				ln.Close()
			}
		}
	}
	if a.cfg.HTTPAddr != "" {
		if httpLn, err = net.Listen("tcp", a.cfg.HTTPAddr); err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
	}
	if a.cfg.GRPCAddr != "" {
		if grpcLn, err = net.Listen("tcp", a.cfg.GRPCAddr); err != nil {
			closeAll()
			return fmt.Errorf("listen grpc: %w", err)
		}
	}
	if a.cfg.SocketPath != "" {
		os.Remove(a.cfg.SocketPath)
		if streamLn, err = net.Listen("unix", a.cfg.SocketPath); err != nil {
			closeAll()
			return fmt.Errorf("listen socket: %w", err)
		}
		defer os.Remove(a.cfg.SocketPath)
	}
	if httpLn == nil && grpcLn == nil && streamLn == nil {
		return errors.New("nothing to serve: set --http, --grpc or --socket")
	}

	g, ctx := errgroup.WithContext(ctx)

	if httpLn != nil {
		srv := &http.Server{Handler: gw.HTTPHandler(), ReadHeaderTimeout: 10 * time.Second}
		a.logger.Info("serving http", "addr", httpLn.Addr().String(), "functions", len(registry.List()))
		g.Go(func() error {
			if err := srv.Serve(httpLn); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if grpcLn != nil {
		srv := grpcsvc.NewServer(gw)
		a.logger.Info("serving grpc", "addr", grpcLn.Addr().String())
		g.Go(func() error { return srv.Serve(grpcLn) })
		g.Go(func() error {
			<-ctx.Done()
			srv.GracefulStop()
			return nil
		})
	}

	if streamLn != nil {
		a.logger.Info("serving stream", "socket", a.cfg.SocketPath)
		g.Go(func() error { return gw.ServeStream(ctx, streamLn) })
	}

	err = g.Wait()
	a.logger.Info("shutdown complete")
	return err
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/hostrpc/gateway"
	"github.com/caffeineduck/hostrpc/gateway/grpcsvc"
	"github.com/caffeineduck/hostrpc/value"
)

func newCallCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <function> [arguments]",
		Short: "Call a function with a JSON argument array",
		Long: `Call a function and print its result.

Arguments are the text of a JSON array and default to []:

  hostrpc call add '[2,3]'
  hostrpc call concat '["a","b"]' --addr localhost:8080
  hostrpc call mul '[1.5,2]' --grpc localhost:9090

Without --addr or --grpc the function runs in-process.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, arguments := args[0], "[]"
			if len(args) == 2 {
				arguments = args[1]
			}
			result, err := a.call(cmd, target, arguments)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().String("addr", "", "Call a remote gateway over JSON-RPC at this HTTP address")
	cmd.Flags().String("grpc", "", "Call a remote gateway over gRPC at this address")
	return cmd
}

func (a *app) call(cmd *cobra.Command, target, arguments string) (value.Value, error) {
	ctx := cmd.Context()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		raw, err := newRPCClient(addr).call(ctx, gateway.MethodInvoke, gateway.Request{Target: target, Arguments: arguments})
		if err != nil {
			return value.Value{}, err
		}
		var v value.Value
		if err := json.Unmarshal(raw, &v); err != nil {
			return value.Value{}, err
		}
		return v, nil
	}
	if addr, _ := cmd.Flags().GetString("grpc"); addr != "" {
		conn, err := grpcsvc.Dial(addr)
		if err != nil {
			return value.Value{}, err
		}
		defer conn.Close()
		return grpcsvc.NewClient(conn).Invoke(ctx, target, arguments)
	}

	registry, err := a.registry()
	if err != nil {
		return value.Value{}, err
	}
	return registry.CallString(ctx, target, arguments)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/hostrpc/gateway"
	"github.com/caffeineduck/hostrpc/hostfunc"
	"github.com/caffeineduck/hostrpc/value"
)

func newFunctionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List registered functions and their argument schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				raw, err := newRPCClient(addr).call(cmd.Context(), gateway.MethodFunctions, nil)
				if err != nil {
					return err
				}
				var schema map[string]value.Value
				if err := json.Unmarshal(raw, &schema); err != nil {
					return err
				}
				printSchema(cmd.OutOrStdout(), schema)
				return nil
			}

			registry, err := a.registry()
			if err != nil {
				return err
			}
			printSignatures(cmd.OutOrStdout(), registry)
			return nil
		},
	}
	cmd.Flags().String("addr", "", "List the functions of a remote gateway at this HTTP address")
	return cmd
}

func printSignatures(out io.Writer, r *hostfunc.Registry) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, name := range r.List() {
		if d, ok := r.Get(name); ok {
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, d.Signature, d.Schema)
		}
	}
	w.Flush()
}

func printSchema(out io.Writer, schema map[string]value.Value) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, name := range slices.Sorted(maps.Keys(schema)) {
		fmt.Fprintf(w, "%s\t%s\n", name, schema[name])
	}
	w.Flush()
}

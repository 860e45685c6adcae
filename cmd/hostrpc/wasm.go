package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/api"

	"github.com/caffeineduck/hostrpc/wasmhost"
)

func newWasmCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wasm <module.wasm> [params...]",
		Short: "Run a WebAssembly guest that imports registered functions",
		Long: `Instantiate a WebAssembly module and call one of its exports.

The guest can import every numeric function from the "hostrpc" module:

  (import "hostrpc" "add" (func (param i64 i64) (result i64)))

Params are integers, or floats when they contain a '.', passed as i64 and
f64 values. Results are printed as unsigned raw values and as i64.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list, _ := cmd.Flags().GetBool("list"); list {
				return a.listWasm(cmd)
			}
			if len(args) == 0 {
				return errors.New("module path required")
			}
			return a.runWasm(cmd, args[0], args[1:])
		},
	}
	cmd.Flags().String("entry", "_start", "Exported function to call")
	cmd.Flags().Bool("no-cache", false, "Disable the compilation cache")
	cmd.Flags().String("memory", "", "Memory limit: 1mb, 16mb, 64mb, 256mb (default: no limit)")
	cmd.Flags().Bool("list", false, "List exported host functions and exit")
	return cmd
}

func (a *app) runWasm(cmd *cobra.Command, path string, rawParams []string) error {
	flags := cmd.Flags()
	entry, _ := flags.GetString("entry")
	noCache, _ := flags.GetBool("no-cache")
	memory, _ := flags.GetString("memory")

	params := make([]uint64, len(rawParams))
	for i, p := range rawParams {
		v, err := parseWasmParam(p)
		if err != nil {
			return err
		}
		params[i] = v
	}

	registry, err := a.registry()
	if err != nil {
		return err
	}

	opts := []wasmhost.Option{wasmhost.WithLogger(a.logger)}
	if !noCache {
		opts = append(opts, wasmhost.WithDiskCache())
	}
	if pages := parseMemoryLimit(memory); pages > 0 {
		opts = append(opts, wasmhost.WithMemoryLimit(pages))
	}

	ctx := cmd.Context()
	host, err := wasmhost.New(ctx, registry, opts...)
	if err != nil {
		return err
	}
	defer host.Close()

	guest, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}
	results, err := host.Run(ctx, guest, entry, params...)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\n", r, int64(r))
	}
	return nil
}

func (a *app) listWasm(cmd *cobra.Command) error {
	registry, err := a.registry()
	if err != nil {
		return err
	}
	host, err := wasmhost.New(cmd.Context(), registry, wasmhost.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer host.Close()

	for _, name := range host.Exported() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func parseWasmParam(s string) (uint64, error) {
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid param %q: %w", s, err)
		}
		return api.EncodeF64(f), nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid param %q: %w", s, err)
	}
	return api.EncodeI64(i), nil
}

func parseMemoryLimit(s string) uint32 {
	switch strings.ToLower(s) {
	case "1mb":
		return wasmhost.MemoryLimit1MB
	case "16mb":
		return wasmhost.MemoryLimit16MB
	case "64mb":
		return wasmhost.MemoryLimit64MB
	case "256mb":
		return wasmhost.MemoryLimit256MB
	default:
		return 0
	}
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/hostrpc/config"
	"github.com/caffeineduck/hostrpc/hostfunc"
)

// app carries state shared by subcommands once the root pre-run has loaded
// the configuration.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "hostrpc",
		Short: "Expose native Go functions to remote callers",
		Long: `hostrpc - Register native functions under names and call them with
JSON argument arrays over HTTP, JSON-RPC, gRPC, MCP, unix sockets or WebAssembly.

Configuration is read from an optional HCL file (--config), then from
HOSTRPC_* environment variables, then from flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to an HCL configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("kv", false, "Register the kv_* functions")
	rootCmd.PersistentFlags().StringSlice("allow-host", nil, "Allow http_* functions to reach host (repeatable)")
	rootCmd.PersistentFlags().StringSlice("mount", nil, "Mount filesystem virtual:host[:mode] for fs_* functions (repeatable)")

	rootCmd.AddCommand(
		newServeCmd(a),
		newCallCmd(a),
		newFunctionsCmd(a),
		newReplCmd(a),
		newMCPCmd(a),
		newWasmCmd(a),
	)
	return rootCmd
}

func (a *app) load(cmd *cobra.Command) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("kv") {
		cfg.KVEnabled, _ = flags.GetBool("kv")
	}
	if flags.Changed("allow-host") {
		cfg.AllowedHosts, _ = flags.GetStringSlice("allow-host")
	}
	if flags.Changed("mount") {
		cfg.Mounts, _ = flags.GetStringSlice("mount")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

// registry builds a registry holding the built-in functions and every
// optional function set the configuration enables.
func (a *app) registry() (*hostfunc.Registry, error) {
	r := hostfunc.NewRegistry(hostfunc.WithLogger(a.logger))
	if err := hostfunc.RegisterBuiltins(r); err != nil {
		return nil, err
	}

	if a.cfg.KVEnabled {
		if err := hostfunc.NewKV(a.cfg.KV()).Register(r); err != nil {
			return nil, fmt.Errorf("register kv: %w", err)
		}
	}
	if len(a.cfg.AllowedHosts) > 0 {
		if err := hostfunc.NewHTTP(a.cfg.HTTP()).Register(r); err != nil {
			return nil, fmt.Errorf("register http: %w", err)
		}
	}
	mounts, err := a.cfg.FSMounts()
	if err != nil {
		return nil, err
	}
	if len(mounts) > 0 {
		if err := hostfunc.NewFS(mounts).Register(r); err != nil {
			return nil, fmt.Errorf("register fs: %w", err)
		}
	}
	return r, nil
}

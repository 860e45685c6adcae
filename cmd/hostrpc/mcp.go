package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/hostrpc/gateway"
	"github.com/caffeineduck/hostrpc/gateway/mcptools"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve functions as MCP tools over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout. Every registered
function becomes a tool whose input is {"arguments": [...]}.

Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.registry()
			if err != nil {
				return err
			}
			gw := gateway.New(registry, gateway.WithLogger(a.logger))
			a.logger.Info("serving mcp over stdio", "tools", len(registry.List()))
			return mcptools.NewServer(gw, "hostrpc").Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/hostrpc/hostfunc"
)

var errQuit = errors.New("quit")

func newReplCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell for calling functions",
		Long: `Start an interactive shell. Each line names a function followed by its
argument array:

  >>> add [2,3]
  5
  >>> concat ["a","b"]
  "ab"

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - Tab completion of function names

Type 'functions' to list functions, 'exit' or 'quit' to end the session, or
press Ctrl+D.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRepl(cmd)
		},
	}
	cmd.Flags().String("history", "", "History file path (default: ~/.hostrpc_history)")
	return cmd
}

func (a *app) runRepl(cmd *cobra.Command) error {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".hostrpc_history")
	}

	registry, err := a.registry()
	if err != nil {
		return err
	}

	names := make([]readline.PrefixCompleterInterface, 0)
	for _, name := range registry.List() {
		names = append(names, readline.PcItem(name))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            ">>> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		AutoComplete:      readline.NewPrefixCompleter(names...),
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stderr(), "hostrpc REPL, %d functions (type 'exit' to quit, Ctrl+D to exit)\n", len(registry.List()))

	ctx := cmd.Context()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(rl.Stdout())
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		out, err := evalLine(ctx, registry, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "Error: %v\n", err)
			continue
		}
		if out != "" {
			fmt.Fprintln(rl.Stdout(), out)
		}
	}
}

// evalLine runs one REPL line: "name [args]", "functions", "exit" or "quit".
func evalLine(ctx context.Context, r *hostfunc.Registry, line string) (string, error) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return "", nil
	case "exit", "quit":
		return "", errQuit
	case "functions":
		var b strings.Builder
		printSignatures(&b, r)
		return strings.TrimRight(b.String(), "\n"), nil
	}

	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)
	if args == "" {
		args = "[]"
	}
	result, err := r.CallString(ctx, name, args)
	if err != nil {
		return "", err
	}
	return result.String(), nil
}

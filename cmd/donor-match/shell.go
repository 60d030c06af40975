// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/pdiddy/donor-match/internal/executor"
	"github.com/pdiddy/donor-match/internal/match"
	"github.com/pdiddy/donor-match/internal/registry"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run searches interactively against a live source registry",
	Long: `Shell reads one search per line from standard input, each a list of
criteria in the --criterion syntax separated by spaces, and prints the first
page of results. Quote a criterion whose value contains spaces, as in
city="New York" or 'city=New York'. The registry file is watched: edits to sources.yaml take
effect for the next search without restarting.`,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().Int("page-size", 0, "results per page (default 20)")
	shellCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg := matchConfig()
	asJSON, _ := cmd.Flags().GetBool("json")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	if pageSize == 0 {
		pageSize = cfg.PageSize
	}

	build := func(path string) (*registry.Snapshot, error) {
		return registry.Open(path, loadedSecrets, cfg.HTTPConfig, slog.Default())
	}
	snap, err := build(cfg.SourcesFile)
	if err != nil {
		return err
	}
	holder := registry.NewHolder(snap)
	defer holder.Close()

	exec, err := executor.New(executor.WithPoolSize(cfg.PoolSize), executor.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer exec.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	watcher := registry.NewWatcher(cfg.SourcesFile, holder, build,
		registry.WithWatchLogger(slog.Default()),
		registry.WithDrain(cfg.Budget))
	go func() {
		if err := watcher.Run(ctx); err != nil {
			slog.Warn("registry watcher stopped", "err", err)
		}
	}()

	svc := match.NewService(holder, exec, cfg, match.WithLogger(slog.Default()))
	return shellLoop(ctx, svc, pageSize, asJSON, os.Stdin, os.Stdout)
}

// shellLoop runs one search per input line until EOF or cancellation.
func shellLoop(ctx context.Context, svc *match.Service, pageSize int, asJSON bool, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "quit", "exit":
			return nil
		default:
			runShellSearch(ctx, svc, line, pageSize, asJSON, out)
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func runShellSearch(ctx context.Context, svc *match.Service, line string, pageSize int, asJSON bool, out io.Writer) {
	args, err := splitLine(line)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	criteria, err := parseCriteria(args)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	resp, err := svc.Search(ctx, match.Request{Criteria: criteria, Page: 1, PageSize: pageSize})
	if err != nil && !errors.Is(err, match.ErrNoQueryableCriteria) {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if asJSON {
		if err := match.FormatJSON(resp, out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		return
	}
	match.FormatTable(resp, out)
}

// splitLine splits a shell line on whitespace. Single or double quotes group
// text, spaces included, into one argument; the quotes themselves are dropped.
func splitLine(line string) ([]string, error) {
	var (
		args  []string
		cur   strings.Builder
		quote rune
		inArg bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case unicode.IsSpace(r):
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/donor-match/internal/executor"
	"github.com/pdiddy/donor-match/internal/match"
	"github.com/pdiddy/donor-match/internal/registry"
	"github.com/pdiddy/donor-match/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search all registered sources for matching students",
	Long: `Search plans the request against the source registry, queries every
capable source in parallel, joins the answers by student, and prints one page
of students ranked by weighted criterion coverage.

Criteria use a compact syntax and may be repeated:
  --criterion major=STEM:2          equals, weight 2
  --criterion city~chicago          contains
  --criterion gpa:3.5..             range (open-ended)
  --criterion location@41.88,-87.63,25   near, radius in km

A full structured request can be read from a YAML file with --request.
A previously saved search can be shown with --load without querying sources.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringArrayP("criterion", "c", nil, "search criterion (repeatable)")
	searchCmd.Flags().String("request", "", "read the request from a YAML query file")
	searchCmd.Flags().String("load", "", "print a saved search without querying sources")
	searchCmd.Flags().String("save", "", "save the request and results to a YAML file")
	searchCmd.Flags().Int("page", 1, "page number, starting at 1")
	searchCmd.Flags().Int("page-size", 0, "results per page (default 20)")
	searchCmd.Flags().StringSlice("include", nil, "only consider these student IDs")
	searchCmd.Flags().StringSlice("exclude", nil, "never return these student IDs")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file after the search")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	if path, _ := cmd.Flags().GetString("load"); path != "" {
		qf, err := match.ReadQueryFile(path)
		if err != nil {
			return err
		}
		if qf.Response == nil {
			return fmt.Errorf("%s holds no saved results; use --request to run it", path)
		}
		return printResponse(*qf.Response, asJSON, os.Stdout)
	}

	cfg := matchConfig()
	req, err := buildRequest(cmd, cfg)
	if err != nil {
		return err
	}

	snap, err := registry.Open(cfg.SourcesFile, loadedSecrets, cfg.HTTPConfig, slog.Default())
	if err != nil {
		return err
	}
	defer snap.Close()

	promReg := prometheus.NewRegistry()
	metrics, err := executor.NewMetrics(promReg)
	if err != nil {
		return err
	}
	exec, err := executor.New(
		executor.WithPoolSize(cfg.PoolSize),
		executor.WithLogger(slog.Default()),
		executor.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	defer exec.Release()

	svc := match.NewService(registry.NewHolder(snap), exec, cfg, match.WithLogger(slog.Default()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resp, searchErr := svc.Search(ctx, req)
	if searchErr != nil && !errors.Is(searchErr, match.ErrNoQueryableCriteria) {
		return searchErr
	}

	reportFailures(resp.Manifest, os.Stderr)
	if err := printResponse(resp, asJSON, os.Stdout); err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := match.WriteQueryFile(path, req, resp); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved search to %s\n", path)
	}
	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, promReg); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return searchErr
}

// buildRequest assembles the request from --request or --criterion flags.
// Page flags override values from a request file when set explicitly.
func buildRequest(cmd *cobra.Command, cfg types.MatchConfig) (match.Request, error) {
	var req match.Request

	if path, _ := cmd.Flags().GetString("request"); path != "" {
		qf, err := match.ReadQueryFile(path)
		if err != nil {
			return req, err
		}
		req = qf.Request
	}

	raw, _ := cmd.Flags().GetStringArray("criterion")
	criteria, err := parseCriteria(raw)
	if err != nil {
		return req, err
	}
	req.Criteria = append(req.Criteria, criteria...)
	if len(req.Criteria) == 0 {
		return req, fmt.Errorf("provide at least one --criterion or a --request file")
	}

	if cmd.Flags().Changed("page") || req.Page == 0 {
		req.Page, _ = cmd.Flags().GetInt("page")
	}
	if cmd.Flags().Changed("page-size") {
		req.PageSize, _ = cmd.Flags().GetInt("page-size")
	} else if req.PageSize == 0 {
		req.PageSize = cfg.PageSize
	}
	if include, _ := cmd.Flags().GetStringSlice("include"); len(include) > 0 {
		req.Include = include
	}
	if exclude, _ := cmd.Flags().GetStringSlice("exclude"); len(exclude) > 0 {
		req.Exclude = exclude
	}
	return req, nil
}

func reportFailures(m types.SearchManifest, w io.Writer) {
	for _, id := range m.FailedIDs() {
		f := m.FailedSources[id]
		fmt.Fprintf(w, "warning: source %s failed: %s %s\n", id, f.Kind, f.Message)
	}
}

func printResponse(resp match.Response, asJSON bool, w io.Writer) error {
	if asJSON {
		return match.FormatJSON(resp, w)
	}
	match.FormatTable(resp, w)
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/donor-match/internal/adapter"
	"github.com/pdiddy/donor-match/internal/registry"
	"github.com/pdiddy/donor-match/pkg/types"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List registered sources and their capabilities",
	Long: `Sources reads the registry file and prints every source with its kind
and the (attribute, operator) pairs it can answer. Sources are not opened.`,
	RunE: runSources,
}

func init() {
	sourcesCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := registry.LoadConfig(matchConfig().SourcesFile)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg.Sources)
	}
	formatSources(cfg, os.Stdout)
	return nil
}

func formatSources(cfg types.RegistryConfig, w io.Writer) {
	if len(cfg.Sources) == 0 {
		fmt.Fprintln(w, "No sources registered.")
		return
	}
	fmt.Fprintf(w, "%-16s  %-8s  %s\n", "Source", "Kind", "Capabilities")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, s := range cfg.Sources {
		caps := adapter.CapabilitiesFromConfig(s.Capabilities)
		names := make([]string, len(caps))
		for i, c := range caps {
			names[i] = c.String()
		}
		fmt.Fprintf(w, "%-16s  %-8s  %s\n", s.ID, s.Kind, strings.Join(names, ", "))
	}
	fmt.Fprintf(w, "\n%d sources\n", len(cfg.Sources))
}

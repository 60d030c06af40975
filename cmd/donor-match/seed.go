// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/donor-match/internal/adapter"
	"github.com/pdiddy/donor-match/internal/registry"
	"github.com/pdiddy/donor-match/pkg/types"
)

// recordLoader is implemented by the storage-backed adapters.
type recordLoader interface {
	Load(ctx context.Context, records []adapter.Record) (int, error)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load YAML fixture records into a SQLite or Badger source",
	Long: `Seed reads student records from YAML fixture files (doublestar globs such
as "fixtures/academic/**/*.yaml") and upserts them into one storage-backed
source from the registry. Only the named source is opened.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("source", "", "source ID to seed (required)")
	seedCmd.Flags().String("fixtures", "", "fixture file glob (required)")
	_ = seedCmd.MarkFlagRequired("source")
	_ = seedCmd.MarkFlagRequired("fixtures")

	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	sourceID, _ := cmd.Flags().GetString("source")
	pattern, _ := cmd.Flags().GetString("fixtures")

	cfg := matchConfig()
	table, err := registry.LoadConfig(cfg.SourcesFile)
	if err != nil {
		return err
	}

	var target *types.SourceConfig
	for i := range table.Sources {
		if table.Sources[i].ID == sourceID {
			target = &table.Sources[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("source %q is not in %s", sourceID, cfg.SourcesFile)
	}
	if target.Kind != types.SourceSQLite && target.Kind != types.SourceBadger {
		return fmt.Errorf("source %s is %s; only sqlite and badger sources can be seeded", sourceID, target.Kind)
	}

	records, err := adapter.LoadFixtures(pattern)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no records matched %s", pattern)
	}

	b := registry.Builder{
		BaseDir: filepath.Dir(cfg.SourcesFile),
		Secrets: loadedSecrets,
		HTTP:    cfg.HTTPConfig,
		Logger:  slog.Default(),
	}
	snap, err := b.Build(types.RegistryConfig{Sources: []types.SourceConfig{*target}})
	if err != nil {
		return err
	}
	defer snap.Close()

	a, _ := snap.Registry.Adapter(sourceID)
	loader, ok := a.(recordLoader)
	if !ok {
		return fmt.Errorf("source %s cannot be seeded", sourceID)
	}
	n, err := loader.Load(cmd.Context(), records)
	if err != nil {
		return fmt.Errorf("seeding %s: %w", sourceID, err)
	}
	fmt.Fprintf(os.Stdout, "Seeded %d records into %s\n", n, sourceID)
	return nil
}

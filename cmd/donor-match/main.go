// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the donor-match CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/donor-match/internal/secrets"
	"github.com/pdiddy/donor-match/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds per-source credentials loaded at startup.
var loadedSecrets *secrets.Store

// rootCmd is the base command for the donor-match CLI.
var rootCmd = &cobra.Command{
	Use:   "donor-match",
	Short: "Federated donor-to-student matchmaking",
	Long: `donor-match answers structured donor searches ("STEM majors in Chicago")
by querying every attribute source that can answer part of the request in
parallel, joining the per-source answers by student, and ranking students by
weighted criterion coverage.

Sources are declared in a registry file (sources.yaml). A source that times
out or fails degrades the search instead of failing it; the manifest printed
with every result lists which sources contributed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(viper.GetString("log_level")); err != nil {
			return err
		}
		s, err := secrets.Load(viper.GetString("secrets_dir"))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if keys := s.Keys(); len(keys) > 0 {
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./donor-match.yaml or ~/.config/donor-match/config.yaml)")
	pf.String("sources", "sources.yaml", "source registry file")
	pf.String("secrets-dir", ".secrets", "directory of per-source credential files")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.Duration("source-timeout", 0, "per-source deadline (default 2s)")
	pf.Duration("budget", 0, "overall scatter-gather budget (default 5s)")

	for key, flag := range map[string]string{
		"sources_file":   "sources",
		"secrets_dir":    "secrets-dir",
		"log_level":      "log-level",
		"source_timeout": "source-timeout",
		"budget":         "budget",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("donor-match")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "donor-match"))
		}
	}

	viper.SetEnvPrefix("DONOR_MATCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// matchConfig assembles the pipeline settings from flags, environment and
// config file, in that order of precedence.
func matchConfig() types.MatchConfig {
	return types.MatchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    viper.GetDuration("http_timeout"),
			UserAgent:  viper.GetString("user_agent"),
			MaxRetries: viper.GetInt("max_retries"),
		},
		SourceTimeout: viper.GetDuration("source_timeout"),
		Budget:        viper.GetDuration("budget"),
		PageSize:      viper.GetInt("page_size"),
		MaxPageSize:   viper.GetInt("max_page_size"),
		PoolSize:      viper.GetInt("pool_size"),
		SourcesFile:   viper.GetString("sources_file"),
		SecretsDir:    viper.GetString("secrets_dir"),
	}.WithDefaults()
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

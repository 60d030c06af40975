// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry turns the source table (sources.yaml) into a live
// adapter registry and keeps it current as the file changes. Each request
// reads one immutable snapshot; a reload swaps the snapshot atomically.
package registry

import (
	"errors"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/donor-match/pkg/types"
)

// ErrInvalidConfig is returned when the source table fails validation.
var ErrInvalidConfig = errors.New("invalid source registry")

// LoadConfig reads and validates the source table at path.
func LoadConfig(path string) (types.RegistryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.RegistryConfig{}, fmt.Errorf("reading source registry: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a source table.
func ParseConfig(data []byte) (types.RegistryConfig, error) {
	var cfg types.RegistryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing source registry: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks IDs, kinds, capabilities and the fields each kind needs.
func Validate(cfg types.RegistryConfig) error {
	seen := make(map[string]bool, len(cfg.Sources))
	for i, s := range cfg.Sources {
		if s.ID == "" {
			return fmt.Errorf("%w: source %d has no id", ErrInvalidConfig, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate source id %q", ErrInvalidConfig, s.ID)
		}
		seen[s.ID] = true

		if len(s.Capabilities) == 0 {
			return fmt.Errorf("%w: source %s declares no capabilities", ErrInvalidConfig, s.ID)
		}
		for attr, ops := range s.Capabilities {
			if len(ops) == 0 {
				return fmt.Errorf("%w: source %s: attribute %s lists no operators", ErrInvalidConfig, s.ID, attr)
			}
			for _, op := range ops {
				if !op.Valid() {
					return fmt.Errorf("%w: source %s: attribute %s: unknown operator %q", ErrInvalidConfig, s.ID, attr, op)
				}
			}
		}

		var missing string
		switch s.Kind {
		case types.SourceStatic:
			if s.Fixtures == "" {
				missing = "fixtures"
			}
		case types.SourceSQLite:
			if s.Path == "" {
				missing = "path"
			}
		case types.SourceBadger:
			// An empty path selects an in-memory store.
		case types.SourceHTTP:
			if s.URL == "" {
				missing = "url"
			}
		case types.SourceNATS:
			if s.URL == "" {
				missing = "url"
			} else if s.Subject == "" {
				missing = "subject"
			}
		default:
			return fmt.Errorf("%w: source %s: unknown kind %q", ErrInvalidConfig, s.ID, s.Kind)
		}
		if missing != "" {
			return fmt.Errorf("%w: source %s (%s) requires %s", ErrInvalidConfig, s.ID, s.Kind, missing)
		}
	}
	return nil
}

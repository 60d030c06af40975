// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/pdiddy/donor-match/internal/adapter"
	"github.com/pdiddy/donor-match/internal/secrets"
	"github.com/pdiddy/donor-match/pkg/types"
)

// Snapshot is one immutable registry together with the resources its
// adapters hold open.
type Snapshot struct {
	Registry *adapter.Registry
	Config   types.RegistryConfig
	closers  []io.Closer
}

// Close releases every adapter resource held by the snapshot.
func (s *Snapshot) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Builder constructs adapters from source configs.
type Builder struct {
	// BaseDir resolves relative paths and fixture globs. It is normally
	// the directory holding sources.yaml.
	BaseDir string

	Secrets *secrets.Store
	HTTP    types.HTTPConfig
	Logger  *slog.Logger
}

// Build opens an adapter for every source in cfg. On any failure the
// adapters opened so far are closed and the error is returned.
func (b Builder) Build(cfg types.RegistryConfig) (*Snapshot, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	snap := &Snapshot{Config: cfg}
	adapters := make([]adapter.Adapter, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		a, closer, err := b.open(sc)
		if err != nil {
			snap.Close()
			return nil, fmt.Errorf("opening source %s: %w", sc.ID, err)
		}
		if closer != nil {
			snap.closers = append(snap.closers, closer)
		}
		adapters = append(adapters, a)
		logger.Debug("source opened", "source", sc.ID, "kind", sc.Kind)
	}

	reg, err := adapter.NewRegistry(adapters...)
	if err != nil {
		snap.Close()
		return nil, err
	}
	snap.Registry = reg
	return snap, nil
}

func (b Builder) open(sc types.SourceConfig) (adapter.Adapter, io.Closer, error) {
	switch sc.Kind {
	case types.SourceStatic:
		records, err := adapter.LoadFixtures(b.resolve(sc.Fixtures))
		if err != nil {
			return nil, nil, err
		}
		return adapter.NewStaticAdapter(sc.ID, sc.Capabilities, records), nil, nil

	case types.SourceSQLite:
		a, err := adapter.OpenSQLite(sc.ID, b.resolve(sc.Path), sc.Capabilities)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil

	case types.SourceBadger:
		dir := sc.Path
		if dir != "" {
			dir = b.resolve(dir)
		}
		a, err := adapter.OpenBadger(sc.ID, dir, sc.Capabilities)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil

	case types.SourceHTTP:
		token, err := b.Secrets.Token(sc.ID, sc.CredentialKey)
		if err != nil {
			return nil, nil, err
		}
		a := adapter.NewHTTPAdapter(sc.ID, sc.URL, sc.Capabilities, b.HTTP)
		a.Token = token
		return a, nil, nil

	case types.SourceNATS:
		token, err := b.Secrets.Token(sc.ID, sc.CredentialKey)
		if err != nil {
			return nil, nil, err
		}
		a, err := adapter.DialNATS(sc.ID, sc.URL, sc.Subject, token, sc.Capabilities)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, sc.Kind)
}

func (b Builder) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || b.BaseDir == "" {
		return p
	}
	return filepath.Join(b.BaseDir, p)
}

// Open loads the source table at path and builds a snapshot, resolving
// relative paths against the table's directory.
func Open(path string, store *secrets.Store, httpCfg types.HTTPConfig, logger *slog.Logger) (*Snapshot, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	b := Builder{BaseDir: filepath.Dir(path), Secrets: store, HTTP: httpCfg, Logger: logger}
	return b.Build(cfg)
}

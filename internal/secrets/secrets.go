// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads per-source credentials from a directory of
// plain-text files. Each file is one credential: the filename is the key a
// source names in its credential_key, and the trimmed contents are the
// token. An environment variable DONOR_MATCH_SECRET_<KEY> (key upper-cased,
// dashes as underscores) overrides the file.
package secrets

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrMissing is returned when a source names a credential that is not present.
var ErrMissing = errors.New("credential not found")

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "DONOR_MATCH_SECRET_"

// Store holds loaded credentials.
type Store struct {
	values map[string]string
	lookup func(string) (string, bool)
}

// Load reads all files in dir. A missing directory is not an error; the
// store is then backed by the environment only. Unreadable files are logged
// and skipped.
func Load(dir string) (*Store, error) {
	s := &Store{values: make(map[string]string), lookup: os.LookupEnv}
	if dir == "" {
		return s, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "key", name, "err", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			s.values[name] = value
		}
	}
	return s, nil
}

// Keys returns the names of file-backed credentials, sorted. Values are
// never exposed through Keys so the list is safe to print.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the credential for key, preferring the environment.
func (s *Store) Lookup(key string) (string, bool) {
	if s == nil || key == "" {
		return "", false
	}
	if s.lookup != nil {
		if v, ok := s.lookup(envName(key)); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	v, ok := s.values[key]
	return v, ok
}

// Token resolves a source's credential. An empty key yields an empty token;
// a named key that cannot be found is an error.
func (s *Store) Token(source, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	v, ok := s.Lookup(key)
	if !ok {
		return "", fmt.Errorf("source %s: %w: %s", source, ErrMissing, key)
	}
	return v, nil
}

func envName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

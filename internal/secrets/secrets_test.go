// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "academic-token", "  tok_abc123  \n")
				writeFile(t, dir, "census-nats-token", "nats_xyz789")
				return dir
			},
			want: map[string]string{
				"academic-token":    "tok_abc123",
				"census-nats-token": "nats_xyz789",
			},
		},
		{
			name: "nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "no directory configured",
			setup: func(t *testing.T) string {
				return ""
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "academic-token", "valid")
				writeFile(t, dir, "empty-token", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{"academic-token": "valid"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-token", "secret")
				writeFile(t, dir, "geo-token", "g_1")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{"geo-token": "g_1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.values)
		})
	}
}

func TestKeysAreSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zeta", "1")
	writeFile(t, dir, "alpha", "2")

	s, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, s.Keys())
}

func TestLookupPrefersEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "academic-token", "from-file")
	writeFile(t, dir, "geo-token", "geo-file")
	t.Setenv("DONOR_MATCH_SECRET_ACADEMIC_TOKEN", "from-env")

	s, err := Load(dir)
	require.NoError(t, err)

	v, ok := s.Lookup("academic-token")
	assert.True(t, ok)
	assert.Equal(t, "from-env", v)

	v, ok = s.Lookup("geo-token")
	assert.True(t, ok)
	assert.Equal(t, "geo-file", v)

	_, ok = s.Lookup("nope")
	assert.False(t, ok)
}

func TestToken(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "academic-token", "tok")
	s, err := Load(dir)
	require.NoError(t, err)

	tok, err := s.Token("academic", "academic-token")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	tok, err = s.Token("academic", "")
	require.NoError(t, err)
	assert.Empty(t, tok)

	_, err = s.Token("census", "census-token")
	require.ErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), "census")
}

func TestNilStoreLookup(t *testing.T) {
	var s *Store
	_, ok := s.Lookup("anything")
	assert.False(t, ok)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by adapters that call remote
// attribute services.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout. The executor's per-source
	// deadline usually fires first.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "donor-match/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on 429/503 responses (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// MatchConfig holds settings for the matchmaking pipeline.
type MatchConfig struct {
	HTTPConfig `yaml:",inline"`

	// SourceTimeout bounds each adapter dispatch (default 2s).
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout"`

	// Budget bounds the whole scatter-gather phase (default 5s).
	Budget time.Duration `json:"budget" yaml:"budget"`

	// PageSize is the default page size when a request does not set one
	// (default 20).
	PageSize int `json:"page_size" yaml:"page_size"`

	// MaxPageSize is the largest page a caller may request (default 100).
	MaxPageSize int `json:"max_page_size" yaml:"max_page_size"`

	// PoolSize is the number of dispatch workers shared by all requests
	// (default 64).
	PoolSize int `json:"pool_size" yaml:"pool_size"`

	// SourcesFile is the path of the source registry YAML.
	SourcesFile string `json:"sources_file" yaml:"sources_file"`

	// SecretsDir holds per-source credentials, one file per key.
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir"`
}

// Defaults for MatchConfig fields left at their zero value.
const (
	DefaultSourceTimeout = 2 * time.Second
	DefaultBudget        = 5 * time.Second
	DefaultPageSize      = 20
	DefaultMaxPageSize   = 100
	DefaultPoolSize      = 64
	DefaultMaxRetries    = 2
)

// WithDefaults returns a copy of cfg with zero-valued fields filled in.
func (cfg MatchConfig) WithDefaults() MatchConfig {
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = DefaultSourceTimeout
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = DefaultMaxPageSize
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "donor-match/0.1"
	}
	return cfg
}

// SourceKind selects the adapter implementation for a registered source.
type SourceKind string

const (
	SourceStatic SourceKind = "static"
	SourceSQLite SourceKind = "sqlite"
	SourceBadger SourceKind = "badger"
	SourceHTTP   SourceKind = "http"
	SourceNATS   SourceKind = "nats"
)

// SourceConfig describes one entry of the source registry.
type SourceConfig struct {
	// ID is the source identifier used in manifests (e.g. "academic").
	ID string `json:"id" yaml:"id"`

	Kind SourceKind `json:"kind" yaml:"kind"`

	// Capabilities maps attribute key to the operators this source answers.
	Capabilities map[string][]Operator `json:"capabilities" yaml:"capabilities"`

	// Path is the database file (sqlite) or directory (badger).
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Fixtures is a doublestar glob of YAML record files (static).
	Fixtures string `json:"fixtures,omitempty" yaml:"fixtures,omitempty"`

	// URL is the attribute service endpoint (http) or server URL (nats).
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Subject is the NATS request subject.
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`

	// CredentialKey names the secrets file holding this source's token.
	CredentialKey string `json:"credential_key,omitempty" yaml:"credential_key,omitempty"`
}

// RegistryConfig is the on-disk shape of the source registry file.
type RegistryConfig struct {
	Sources []SourceConfig `json:"sources" yaml:"sources"`
}

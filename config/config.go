// Package config loads the ontix configuration: which backends to
// federate, the fan-out policy, and server settings. Files are TOML,
// merged with ONTIX_* environment variables.
package config

import (
	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/federation"
)

// Backend kinds.
const (
	KindSQLite = "sqlite"
	KindRemote = "remote"
)

// Config is the full ontix configuration.
type Config struct {
	Federation FederationConfig `mapstructure:"federation" toml:"federation"`
	Server     ServerConfig     `mapstructure:"server" toml:"server"`
	Log        LogConfig        `mapstructure:"log" toml:"log"`
}

// FederationConfig declares the backends and how they are combined.
type FederationConfig struct {
	// Policy is "parallel-merge" or "sequential-narrowing"
	Policy string `mapstructure:"policy" toml:"policy"`
	// Backends in registration order. Order matters: earlier backends
	// win merge conflicts.
	Backends []BackendConfig `mapstructure:"backends" toml:"backends"`
}

// BackendConfig declares one backend.
type BackendConfig struct {
	// Name identifies the backend in logs and merge provenance.
	// Optional; unnamed backends get synthetic names.
	Name string `mapstructure:"name" toml:"name,omitempty"`
	// Kind is "sqlite" or "remote"
	Kind string `mapstructure:"kind" toml:"kind"`
	// Path to the database file (sqlite only)
	Path string `mapstructure:"path" toml:"path,omitempty"`
	// URL of the remote API root (remote only)
	URL string `mapstructure:"url" toml:"url,omitempty"`
	// AllowPrivate permits remote URLs on private networks
	AllowPrivate bool `mapstructure:"allow_private" toml:"allow_private,omitempty"`
	// RequestsPerSecond rate-limits a remote backend (0 = default)
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second,omitempty"`
	// Watch broadcasts refresh events when a sqlite file changes
	Watch bool `mapstructure:"watch" toml:"watch,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" toml:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Verbosity 0-4, see the logger package
	Verbosity int `mapstructure:"verbosity" toml:"verbosity"`
	// JSON switches from console to JSON output
	JSON bool `mapstructure:"json" toml:"json,omitempty"`
}

// Validate checks the configuration before backends are constructed.
// Violations are configuration errors: the process should refuse to
// start rather than serve a partial federation.
func (c *Config) Validate() error {
	if len(c.Federation.Backends) == 0 {
		return errors.Wrap(errors.ErrConfiguration, "no backends configured")
	}

	switch c.Federation.Policy {
	case "", string(federation.PolicyParallelMerge), string(federation.PolicySequentialNarrowing):
	default:
		return errors.Wrapf(errors.ErrConfiguration, "unknown federation policy %q", c.Federation.Policy)
	}

	seen := make(map[string]struct{})
	for i, b := range c.Federation.Backends {
		if b.Name != "" {
			if _, dup := seen[b.Name]; dup {
				return errors.Wrapf(errors.ErrConfiguration, "duplicate backend name %q", b.Name)
			}
			seen[b.Name] = struct{}{}
		}
		switch b.Kind {
		case KindSQLite:
			if b.Path == "" {
				return errors.Wrapf(errors.ErrConfiguration, "backend %d: sqlite backend requires a path", i+1)
			}
		case KindRemote:
			if b.URL == "" {
				return errors.Wrapf(errors.ErrConfiguration, "backend %d: remote backend requires a url", i+1)
			}
		default:
			return errors.Wrapf(errors.ErrConfiguration, "backend %d: unknown kind %q", i+1, b.Kind)
		}
	}
	return nil
}

// Package federation presents several independent ontology backends as
// one logical backend. The Composite provider fans every read out to
// the registered backends under a configurable policy and merges their
// answers, isolating per-backend failures so that one unreachable
// store never fails the overall request.
package federation

import (
	"fmt"

	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/ontology"
)

// Policy selects how the Composite provider fans out to its backends.
type Policy string

const (
	// PolicyParallelMerge queries every backend concurrently and
	// merges the full set of answers. Default.
	PolicyParallelMerge Policy = "parallel-merge"

	// PolicySequentialNarrowing queries backends one at a time in
	// registration order, shrinking each request to the ids earlier
	// backends could not resolve, and short-circuiting binary lookups
	// at the first non-empty answer.
	PolicySequentialNarrowing Policy = "sequential-narrowing"
)

// Backend pairs a provider with the name used to tag its results in
// diagnostics. The name never influences merge behavior.
type Backend struct {
	Name     string
	Provider ontology.Provider
}

// buildRegistry validates the backend list and assigns synthetic names
// (backend_1, backend_2, ... in registration order) to unnamed entries.
// Registration order is the priority order for every merge rule.
func buildRegistry(backends []Backend) ([]Backend, error) {
	if len(backends) == 0 {
		return nil, errors.Wrap(errors.ErrConfiguration, "at least one backend is required")
	}

	out := make([]Backend, len(backends))
	seen := make(map[string]struct{}, len(backends))
	for i, b := range backends {
		if b.Provider == nil {
			return nil, errors.Wrapf(errors.ErrConfiguration, "backend %d has no provider", i+1)
		}
		name := b.Name
		if name == "" {
			name = fmt.Sprintf("backend_%d", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, errors.Wrapf(errors.ErrConfiguration, "duplicate backend name %q", name)
		}
		seen[name] = struct{}{}
		out[i] = Backend{Name: name, Provider: b.Provider}
	}
	return out, nil
}

// validatePolicy resolves the empty policy to the default and rejects
// unknown values.
func validatePolicy(p Policy) (Policy, error) {
	switch p {
	case "":
		return PolicyParallelMerge, nil
	case PolicyParallelMerge, PolicySequentialNarrowing:
		return p, nil
	default:
		return "", errors.Wrapf(errors.ErrConfiguration, "unknown federation policy %q", p)
	}
}

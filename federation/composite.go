package federation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/ontix/logger"
	"github.com/teranos/ontix/ontology"
)

// Composite implements ontology.Provider over an ordered set of
// backends. Reads fan out under the configured policy; a failing
// backend is logged and contributes nothing, so an operation only
// errors on a merge contract violation, never on backend loss.
type Composite struct {
	backends []Backend
	policy   Policy
	logger   *zap.SugaredLogger
}

var _ ontology.Provider = (*Composite)(nil)

// Options configures a Composite provider.
type Options struct {
	// Policy selects the fan-out strategy. Empty means PolicyParallelMerge.
	Policy Policy
	// Logger receives per-backend failure diagnostics. Defaults to the
	// global logger.
	Logger *zap.SugaredLogger
}

// New builds a Composite over the given backends. Unnamed backends are
// assigned backend_1, backend_2, ... in registration order; that order
// is also the priority order for every merge tie-break.
func New(backends []Backend, opts Options) (*Composite, error) {
	registry, err := buildRegistry(backends)
	if err != nil {
		return nil, err
	}
	policy, err := validatePolicy(opts.Policy)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logger.Logger
	}
	return &Composite{
		backends: registry,
		policy:   policy,
		logger:   log.Named("federation"),
	}, nil
}

// Policy reports the configured fan-out policy.
func (c *Composite) Policy() Policy { return c.policy }

// Backends reports the registered backend names in priority order.
func (c *Composite) Backends() []string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name
	}
	return names
}

func (c *Composite) logFailure(backend, op string, err error) {
	c.logger.Warnw("Backend call failed",
		"backend", backend,
		"op", op,
		"error", err,
	)
}

// snapshot copies an id slice so no two backend invocations can
// observe each other's mutations through shared parameter aliasing.
func snapshot[K any](ids []K) []K {
	out := make([]K, len(ids))
	copy(out, ids)
	return out
}

// fanOut invokes op on every backend concurrently, waits for the whole
// set to settle, and returns tagged results in registration order.
// Completion order is racy and must never affect output.
func fanOut[T any](ctx context.Context, c *Composite, op string, call func(context.Context, ontology.Provider) (T, error)) []tagged[T] {
	results := make([]tagged[T], len(c.backends))
	var wg sync.WaitGroup
	for i, b := range c.backends {
		wg.Add(1)
		go func(i int, b Backend) {
			defer wg.Done()
			payload, err := call(ctx, b.Provider)
			if err != nil {
				c.logFailure(b.Name, op, err)
				results[i] = tagged[T]{source: b.Name}
				return
			}
			results[i] = tagged[T]{source: b.Name, payload: payload, ok: true}
		}(i, b)
	}
	wg.Wait()
	return results
}

// narrowMap runs a map-valued set operation one backend at a time,
// shrinking each request to the ids the accumulator has not resolved.
// A backend whose remaining set is empty is never invoked, which keeps
// billed remote backends from seeing no-op requests.
func narrowMap[K comparable, V any](ctx context.Context, c *Composite, op string, ids []K, call func(context.Context, ontology.Provider, []K) (map[K]V, error)) map[K]V {
	acc := make(map[K]V)
	for _, b := range c.backends {
		remaining := make([]K, 0, len(ids))
		for _, id := range ids {
			if _, done := acc[id]; !done {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) == 0 {
			c.logger.Debugw("Skipping backend, all ids resolved", "backend", b.Name, "op", op)
			continue
		}
		payload, err := call(ctx, b.Provider, remaining)
		if err != nil {
			c.logFailure(b.Name, op, err)
			continue
		}
		for k, v := range payload {
			if _, exists := acc[k]; !exists {
				acc[k] = v
			}
		}
	}
	return acc
}

// narrowList is narrowMap for list-valued operations whose records
// carry their own key.
func narrowList[T any, K comparable](ctx context.Context, c *Composite, op string, ids []K, keyOf func(T) K, call func(context.Context, ontology.Provider, []K) ([]T, error)) []T {
	acc := make([]T, 0)
	resolved := make(map[K]struct{})
	for _, b := range c.backends {
		remaining := make([]K, 0, len(ids))
		for _, id := range ids {
			if _, done := resolved[id]; !done {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) == 0 {
			c.logger.Debugw("Skipping backend, all ids resolved", "backend", b.Name, "op", op)
			continue
		}
		payload, err := call(ctx, b.Provider, remaining)
		if err != nil {
			c.logFailure(b.Name, op, err)
			continue
		}
		for _, item := range payload {
			k := keyOf(item)
			if _, dup := resolved[k]; dup {
				continue
			}
			resolved[k] = struct{}{}
			acc = append(acc, item)
		}
	}
	return acc
}

// firstNonEmpty runs a binary (found-or-empty) operation one backend at
// a time and returns the first non-empty answer. Later backends are
// never invoked once an answer is found; a failure counts as empty and
// the chain continues.
func firstNonEmpty[T any](ctx context.Context, c *Composite, op string, size func(T) int, call func(context.Context, ontology.Provider) (T, error)) (T, bool) {
	var zero T
	for _, b := range c.backends {
		payload, err := call(ctx, b.Provider)
		if err != nil {
			c.logFailure(b.Name, op, err)
			continue
		}
		if size(payload) > 0 {
			c.logger.Debugw("Binary lookup answered, short-circuiting", "backend", b.Name, "op", op)
			return payload, true
		}
	}
	return zero, false
}

// ClassTree fetches and merges the whole taxonomy from every backend.
// There is no id to narrow on, so this always fans out in parallel
// regardless of the configured policy.
func (c *Composite) ClassTree(ctx context.Context) ([]*ontology.ClassModel, error) {
	results := fanOut(ctx, c, "class-tree", func(ctx context.Context, p ontology.Provider) ([]*ontology.ClassModel, error) {
		return p.ClassTree(ctx)
	})
	return safeMerge("class-tree", func() []*ontology.ClassModel { return mergeClassTree(results) })
}

// LinkTypes fetches and merges the whole link catalog from every
// backend. Like ClassTree, this ignores the configured policy.
func (c *Composite) LinkTypes(ctx context.Context) ([]ontology.LinkType, error) {
	results := fanOut(ctx, c, "link-types", func(ctx context.Context, p ontology.Provider) ([]ontology.LinkType, error) {
		return p.LinkTypes(ctx)
	})
	return safeMerge("link-types", func() []ontology.LinkType { return mergeLinkTypes(results) })
}

// ClassInfo resolves class metadata across backends.
func (c *Composite) ClassInfo(ctx context.Context, classIDs []ontology.ClassID) ([]ontology.ClassModel, error) {
	if c.policy == PolicySequentialNarrowing {
		merged := narrowList(ctx, c, "class-info", classIDs,
			func(cm ontology.ClassModel) ontology.ClassID { return cm.ID },
			func(ctx context.Context, p ontology.Provider, remaining []ontology.ClassID) ([]ontology.ClassModel, error) {
				return p.ClassInfo(ctx, snapshot(remaining))
			})
		return merged, nil
	}
	results := fanOut(ctx, c, "class-info", func(ctx context.Context, p ontology.Provider) ([]ontology.ClassModel, error) {
		return p.ClassInfo(ctx, snapshot(classIDs))
	})
	return safeMerge("class-info", func() []ontology.ClassModel { return mergeClassInfo(results) })
}

// PropertyInfo resolves property definitions across backends.
func (c *Composite) PropertyInfo(ctx context.Context, propertyIDs []ontology.PropertyID) (map[ontology.PropertyID]ontology.PropertyModel, error) {
	if c.policy == PolicySequentialNarrowing {
		merged := narrowMap(ctx, c, "property-info", propertyIDs,
			func(ctx context.Context, p ontology.Provider, remaining []ontology.PropertyID) (map[ontology.PropertyID]ontology.PropertyModel, error) {
				return p.PropertyInfo(ctx, snapshot(remaining))
			})
		return merged, nil
	}
	results := fanOut(ctx, c, "property-info", func(ctx context.Context, p ontology.Provider) (map[ontology.PropertyID]ontology.PropertyModel, error) {
		return p.PropertyInfo(ctx, snapshot(propertyIDs))
	})
	return safeMerge("property-info", func() map[ontology.PropertyID]ontology.PropertyModel { return mergeDicts(results) })
}

// LinkTypesInfo resolves link type metadata across backends.
func (c *Composite) LinkTypesInfo(ctx context.Context, linkTypeIDs []ontology.LinkTypeID) ([]ontology.LinkType, error) {
	if c.policy == PolicySequentialNarrowing {
		merged := narrowList(ctx, c, "link-types-info", linkTypeIDs,
			func(lt ontology.LinkType) ontology.LinkTypeID { return lt.ID },
			func(ctx context.Context, p ontology.Provider, remaining []ontology.LinkTypeID) ([]ontology.LinkType, error) {
				return p.LinkTypesInfo(ctx, snapshot(remaining))
			})
		return merged, nil
	}
	results := fanOut(ctx, c, "link-types-info", func(ctx context.Context, p ontology.Provider) ([]ontology.LinkType, error) {
		return p.LinkTypesInfo(ctx, snapshot(linkTypeIDs))
	})
	return safeMerge("link-types-info", func() []ontology.LinkType { return mergeLinkTypes(results) })
}

// ElementInfo resolves elements across backends.
func (c *Composite) ElementInfo(ctx context.Context, elementIDs []ontology.ElementID) (map[ontology.ElementID]ontology.ElementModel, error) {
	if c.policy == PolicySequentialNarrowing {
		merged := narrowMap(ctx, c, "element-info", elementIDs,
			func(ctx context.Context, p ontology.Provider, remaining []ontology.ElementID) (map[ontology.ElementID]ontology.ElementModel, error) {
				return p.ElementInfo(ctx, snapshot(remaining))
			})
		return merged, nil
	}
	results := fanOut(ctx, c, "element-info", func(ctx context.Context, p ontology.Provider) (map[ontology.ElementID]ontology.ElementModel, error) {
		return p.ElementInfo(ctx, snapshot(elementIDs))
	})
	return safeMerge("element-info", func() map[ontology.ElementID]ontology.ElementModel { return mergeDicts(results) })
}

// LinksInfo fetches links between the given elements. Under sequential
// narrowing an element counts as resolved once some already-found link
// has it as source, and only unresolved elements are forwarded to
// later backends.
func (c *Composite) LinksInfo(ctx context.Context, elementIDs []ontology.ElementID, linkTypeIDs []ontology.LinkTypeID) ([]ontology.Link, error) {
	if c.policy == PolicySequentialNarrowing {
		acc := make([]ontology.Link, 0)
		seen := make(map[linkKey]struct{})
		resolvedSources := make(map[ontology.ElementID]struct{})
		for _, b := range c.backends {
			remaining := make([]ontology.ElementID, 0, len(elementIDs))
			for _, id := range elementIDs {
				if _, done := resolvedSources[id]; !done {
					remaining = append(remaining, id)
				}
			}
			if len(remaining) == 0 {
				c.logger.Debugw("Skipping backend, all ids resolved", "backend", b.Name, "op", "links-info")
				continue
			}
			payload, err := b.Provider.LinksInfo(ctx, remaining, snapshot(linkTypeIDs))
			if err != nil {
				c.logFailure(b.Name, "links-info", err)
				continue
			}
			for _, link := range payload {
				k := linkKey{source: link.SourceID, typ: link.TypeID, target: link.TargetID}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				resolvedSources[link.SourceID] = struct{}{}
				acc = append(acc, link)
			}
		}
		return acc, nil
	}
	results := fanOut(ctx, c, "links-info", func(ctx context.Context, p ontology.Provider) ([]ontology.Link, error) {
		return p.LinksInfo(ctx, snapshot(elementIDs), snapshot(linkTypeIDs))
	})
	return safeMerge("links-info", func() []ontology.Link { return mergeLinks(results) })
}

// LinkTypesOf reports one element's per-link-type connection counts.
// This is a binary lookup: under sequential narrowing the first backend
// that knows the element answers alone.
func (c *Composite) LinkTypesOf(ctx context.Context, elementID ontology.ElementID) ([]ontology.LinkCount, error) {
	op := "link-types-of"
	call := func(ctx context.Context, p ontology.Provider) ([]ontology.LinkCount, error) {
		return p.LinkTypesOf(ctx, elementID)
	}
	if c.policy == PolicySequentialNarrowing {
		payload, found := firstNonEmpty(ctx, c, op, func(lcs []ontology.LinkCount) int { return len(lcs) }, call)
		if !found {
			return []ontology.LinkCount{}, nil
		}
		return payload, nil
	}
	results := fanOut(ctx, c, op, call)
	return safeMerge(op, func() []ontology.LinkCount { return mergeLinkCounts(results) })
}

// LinkElements pages through one element's neighborhood. Binary lookup,
// same short-circuit behavior as LinkTypesOf.
func (c *Composite) LinkElements(ctx context.Context, params ontology.LinkedElementsParams) (map[ontology.ElementID]ontology.ElementModel, error) {
	op := "link-elements"
	call := func(ctx context.Context, p ontology.Provider) (map[ontology.ElementID]ontology.ElementModel, error) {
		return p.LinkElements(ctx, params)
	}
	if c.policy == PolicySequentialNarrowing {
		payload, found := firstNonEmpty(ctx, c, op, func(m map[ontology.ElementID]ontology.ElementModel) int { return len(m) }, call)
		if !found {
			return map[ontology.ElementID]ontology.ElementModel{}, nil
		}
		return payload, nil
	}
	results := fanOut(ctx, c, op, call)
	return safeMerge(op, func() map[ontology.ElementID]ontology.ElementModel { return mergeDicts(results) })
}

// Filter searches elements. Binary lookup, same short-circuit behavior
// as LinkTypesOf.
func (c *Composite) Filter(ctx context.Context, params ontology.FilterParams) (map[ontology.ElementID]ontology.ElementModel, error) {
	op := "filter"
	call := func(ctx context.Context, p ontology.Provider) (map[ontology.ElementID]ontology.ElementModel, error) {
		return p.Filter(ctx, params)
	}
	if c.policy == PolicySequentialNarrowing {
		payload, found := firstNonEmpty(ctx, c, op, func(m map[ontology.ElementID]ontology.ElementModel) int { return len(m) }, call)
		if !found {
			return map[ontology.ElementID]ontology.ElementModel{}, nil
		}
		return payload, nil
	}
	results := fanOut(ctx, c, op, call)
	return safeMerge(op, func() map[ontology.ElementID]ontology.ElementModel { return mergeDicts(results) })
}

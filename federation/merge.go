package federation

import (
	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/ontology"
)

// tagged is one backend's answer to one operation, labeled with the
// backend's registered name. ok is false when the backend failed and
// contributed nothing. Lives only for the duration of a single call.
type tagged[T any] struct {
	source  string
	payload T
	ok      bool
}

// Merge rules, applied over tagged results in registration order:
//   - dictionary-shaped results: first-registered-backend-wins per key
//   - list-shaped results: concatenated, deduplicated by identity,
//     first occurrence kept
//   - count-shaped results: first-registered-backend-wins per link type
//
// Every merge treats a failed backend as contributing nothing, so the
// all-failed case merges to an empty result, never an error.

// mergeDicts combines dictionary-shaped results. Conflicting keys keep
// the payload of the earliest backend that produced them.
func mergeDicts[K comparable, V any](results []tagged[map[K]V]) map[K]V {
	merged := make(map[K]V)
	for _, res := range results {
		if !res.ok {
			continue
		}
		for k, v := range res.payload {
			if _, exists := merged[k]; !exists {
				merged[k] = v
			}
		}
	}
	return merged
}

// mergeLists concatenates list-shaped results in registration order and
// drops later records whose key was already seen.
func mergeLists[T any, K comparable](results []tagged[[]T], keyOf func(T) K) []T {
	merged := make([]T, 0)
	seen := make(map[K]struct{})
	for _, res := range results {
		if !res.ok {
			continue
		}
		for _, item := range res.payload {
			k := keyOf(item)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, item)
		}
	}
	return merged
}

func mergeClassInfo(results []tagged[[]ontology.ClassModel]) []ontology.ClassModel {
	return mergeLists(results, func(c ontology.ClassModel) ontology.ClassID { return c.ID })
}

func mergeLinkTypes(results []tagged[[]ontology.LinkType]) []ontology.LinkType {
	return mergeLists(results, func(lt ontology.LinkType) ontology.LinkTypeID { return lt.ID })
}

// linkKey is the identity of a link for dedup purposes: the full
// (source, type, target) triple. Properties do not participate.
type linkKey struct {
	source ontology.ElementID
	typ    ontology.LinkTypeID
	target ontology.ElementID
}

func mergeLinks(results []tagged[[]ontology.Link]) []ontology.Link {
	return mergeLists(results, func(l ontology.Link) linkKey {
		return linkKey{source: l.SourceID, typ: l.TypeID, target: l.TargetID}
	})
}

// mergeLinkCounts keeps the first registered backend's count per link
// type. Counts are not summed: a backend's count already reflects that
// backend's complete knowledge of the element.
func mergeLinkCounts(results []tagged[[]ontology.LinkCount]) []ontology.LinkCount {
	return mergeLists(results, func(lc ontology.LinkCount) ontology.LinkTypeID { return lc.TypeID })
}

// mergeClassTree combines whole taxonomies. Node payloads (label,
// count) follow first-registered-wins; child sets are unioned across
// backends in first-occurrence order. A class is a root of the merged
// tree when no backend places it under a parent.
func mergeClassTree(results []tagged[[]*ontology.ClassModel]) []*ontology.ClassModel {
	nodes := make(map[ontology.ClassID]*ontology.ClassModel)
	children := make(map[ontology.ClassID][]ontology.ClassID)
	childSeen := make(map[ontology.ClassID]map[ontology.ClassID]struct{})
	isChild := make(map[ontology.ClassID]bool)
	var order []ontology.ClassID

	var walk func(c *ontology.ClassModel)
	walk = func(c *ontology.ClassModel) {
		if c == nil {
			return
		}
		if _, exists := nodes[c.ID]; !exists {
			nodes[c.ID] = &ontology.ClassModel{ID: c.ID, Label: c.Label, Count: c.Count}
			order = append(order, c.ID)
		}
		for _, child := range c.Children {
			if child == nil {
				continue
			}
			if childSeen[c.ID] == nil {
				childSeen[c.ID] = make(map[ontology.ClassID]struct{})
			}
			if _, dup := childSeen[c.ID][child.ID]; !dup {
				childSeen[c.ID][child.ID] = struct{}{}
				children[c.ID] = append(children[c.ID], child.ID)
			}
			isChild[child.ID] = true
			walk(child)
		}
	}

	for _, res := range results {
		if !res.ok {
			continue
		}
		for _, root := range res.payload {
			walk(root)
		}
	}

	// Rebuild trees from the merged edge set. The visited guard keeps a
	// disagreeing pair of backends (A says x contains y, B says y
	// contains x) from recursing forever.
	var build func(id ontology.ClassID, visited map[ontology.ClassID]bool) *ontology.ClassModel
	build = func(id ontology.ClassID, visited map[ontology.ClassID]bool) *ontology.ClassModel {
		src := nodes[id]
		node := &ontology.ClassModel{ID: src.ID, Label: src.Label, Count: src.Count}
		visited[id] = true
		for _, childID := range children[id] {
			if visited[childID] {
				continue
			}
			node.Children = append(node.Children, build(childID, visited))
		}
		delete(visited, id)
		return node
	}

	roots := make([]*ontology.ClassModel, 0)
	for _, id := range order {
		if !isChild[id] {
			roots = append(roots, build(id, make(map[ontology.ClassID]bool)))
		}
	}
	if len(roots) == 0 && len(order) > 0 {
		// Backends disagree so badly that every class is someone's
		// child. Anchor on the first-seen class rather than dropping
		// the taxonomy.
		roots = append(roots, build(order[0], make(map[ontology.ClassID]bool)))
	}
	return roots
}

// safeMerge runs a merge function, converting a panic into an
// assertion error. Merges are total over well-formed inputs; a panic
// signals a contract violation in a collaborator and propagates to the
// caller instead of being isolated like a backend fault.
func safeMerge[T any](op string, fn func() T) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.AssertionFailedf("merge for %s violated its contract: %v", op, r)
		}
	}()
	return fn(), nil
}

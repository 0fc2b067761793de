package ontology

import "context"

// Provider is the uniform read contract every ontix data backend
// implements, local or remote. The federation layer implements
// Provider itself, so a federated set of backends is substitutable
// anywhere a single backend is expected.
//
// Every call may fail with a backend-local error (network, parse,
// validation). Providers own their timeouts; callers pass a context
// for cancellation where the backend supports it.
type Provider interface {
	// ClassTree fetches the whole class taxonomy
	ClassTree(ctx context.Context) ([]*ClassModel, error)

	// ClassInfo resolves metadata for the given class ids
	ClassInfo(ctx context.Context, classIDs []ClassID) ([]ClassModel, error)

	// PropertyInfo resolves property definitions by id
	PropertyInfo(ctx context.Context, propertyIDs []PropertyID) (map[PropertyID]PropertyModel, error)

	// LinkTypesInfo resolves link type metadata by id
	LinkTypesInfo(ctx context.Context, linkTypeIDs []LinkTypeID) ([]LinkType, error)

	// LinkTypes fetches the whole link type catalog
	LinkTypes(ctx context.Context) ([]LinkType, error)

	// ElementInfo resolves elements by id
	ElementInfo(ctx context.Context, elementIDs []ElementID) (map[ElementID]ElementModel, error)

	// LinksInfo fetches links between the given elements, optionally
	// restricted to the given link types
	LinksInfo(ctx context.Context, elementIDs []ElementID, linkTypeIDs []LinkTypeID) ([]Link, error)

	// LinkTypesOf reports per-link-type connection counts of one element
	LinkTypesOf(ctx context.Context, elementID ElementID) ([]LinkCount, error)

	// LinkElements pages through one element's neighborhood over one
	// link type
	LinkElements(ctx context.Context, params LinkedElementsParams) (map[ElementID]ElementModel, error)

	// Filter searches elements by class, text, and link neighborhood
	Filter(ctx context.Context, params FilterParams) (map[ElementID]ElementModel, error)
}

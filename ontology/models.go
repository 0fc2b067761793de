// Package ontology defines the graph data model served by ontix:
// classes, properties, link types, elements, and the links between
// them, plus the Provider contract every backend implements.
package ontology

// Identifier types are opaque strings. They are unique within a single
// backend's result set but NOT guaranteed unique or consistent across
// backends: two backends may use different ids for the same real-world
// thing, and the federation layer does not detect this.
type (
	// ClassID identifies a class (a node type in the taxonomy)
	ClassID string
	// PropertyID identifies a property definition
	PropertyID string
	// LinkTypeID identifies a link (edge) type
	LinkTypeID string
	// ElementID identifies a concrete element (graph node)
	ElementID string
)

// ClassModel is one node of the class taxonomy
type ClassModel struct {
	ID       ClassID       `json:"id"`
	Label    string        `json:"label"`
	Count    int           `json:"count,omitempty"` // Number of elements of this class, if the backend tracks it
	Children []*ClassModel `json:"children,omitempty"`
}

// PropertyModel describes a property definition
type PropertyModel struct {
	ID    PropertyID `json:"id"`
	Label string     `json:"label"`
}

// LinkType describes an edge type in the link catalog
type LinkType struct {
	ID    LinkTypeID `json:"id"`
	Label string     `json:"label"`
	Count int        `json:"count,omitempty"` // Number of links of this type, if the backend tracks it
}

// ElementModel is a concrete graph node with its class memberships and
// property values
type ElementModel struct {
	ID         ElementID               `json:"id"`
	Types      []ClassID               `json:"types"`
	Label      string                  `json:"label"`
	Image      string                  `json:"image,omitempty"`
	Properties map[PropertyID][]string `json:"properties,omitempty"`
}

// Link is a typed edge between two elements
type Link struct {
	SourceID   ElementID               `json:"sourceId"`
	TypeID     LinkTypeID              `json:"typeId"`
	TargetID   ElementID               `json:"targetId"`
	Properties map[PropertyID][]string `json:"properties,omitempty"`
}

// SameTriple reports whether two links denote the same
// (source, type, target) edge, ignoring properties.
func (l Link) SameTriple(other Link) bool {
	return l.SourceID == other.SourceID &&
		l.TypeID == other.TypeID &&
		l.TargetID == other.TargetID
}

// LinkCount is the per-link-type connection statistic of one element
type LinkCount struct {
	TypeID   LinkTypeID `json:"typeId"`
	Inbound  int        `json:"inbound"`
	Outbound int        `json:"outbound"`
}

// LinkDirection restricts traversal to one side of a link
type LinkDirection string

const (
	// DirectionAny follows links both ways
	DirectionAny LinkDirection = ""
	// DirectionIn follows only links pointing at the reference element
	DirectionIn LinkDirection = "in"
	// DirectionOut follows only links leaving the reference element
	DirectionOut LinkDirection = "out"
)

// LinkedElementsParams identifies one element's neighborhood over one
// link type, with paging
type LinkedElementsParams struct {
	ElementID  ElementID     `json:"elementId"`
	LinkTypeID LinkTypeID    `json:"linkTypeId"`
	Limit      int           `json:"limit,omitempty"`
	Offset     int           `json:"offset,omitempty"`
	Direction  LinkDirection `json:"direction,omitempty"`
}

// FilterParams describes an element search. All restrictions are
// optional and combine with AND semantics.
type FilterParams struct {
	// ElementTypeID restricts results to elements of one class
	ElementTypeID ClassID `json:"elementTypeId,omitempty"`
	// Text is a case-insensitive substring match against labels
	Text string `json:"text,omitempty"`
	// RefElementID restricts results to neighbors of this element
	RefElementID ElementID `json:"refElementId,omitempty"`
	// RefElementLinkID additionally restricts the connecting link type
	RefElementLinkID LinkTypeID `json:"refElementLinkId,omitempty"`
	// LinkDirection restricts which side of the connecting link to follow
	LinkDirection LinkDirection `json:"linkDirection,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

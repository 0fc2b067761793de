// Package sqlite implements ontology.Provider over a local SQLite
// ontology store (see db/sqlite/migrations for the schema).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/ontology"
)

// Provider serves ontology reads from one SQLite database.
type Provider struct {
	db *sql.DB
}

var _ ontology.Provider = (*Provider)(nil)

// New creates a Provider over an already-opened database. The caller
// owns the connection and its migrations (db.Open + db.Migrate).
func New(database *sql.DB) *Provider {
	return &Provider{db: database}
}

// placeholders returns "?,?,...,?" for n bind parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs[K ~string](ids []K) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}
	return args
}

// parseProperties decodes the JSON properties column.
func parseProperties(raw string) (map[ontology.PropertyID][]string, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var props map[ontology.PropertyID][]string
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, errors.Wrap(err, "parse properties JSON")
	}
	return props, nil
}

// ClassTree loads the whole taxonomy with element counts.
func (p *Provider) ClassTree(ctx context.Context) ([]*ontology.ClassModel, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.parent_id, c.label, COUNT(ec.element_id)
		FROM classes c
		LEFT JOIN element_classes ec ON ec.class_id = c.id
		GROUP BY c.id
		ORDER BY c.id`)
	if err != nil {
		return nil, errors.Wrap(err, "query class tree")
	}
	defer rows.Close()

	nodes := make(map[ontology.ClassID]*ontology.ClassModel)
	parents := make(map[ontology.ClassID]ontology.ClassID)
	var order []ontology.ClassID

	for rows.Next() {
		var (
			id, label string
			parent    sql.NullString
			count     int
		)
		if err := rows.Scan(&id, &parent, &label, &count); err != nil {
			return nil, errors.Wrap(err, "scan class row")
		}
		classID := ontology.ClassID(id)
		nodes[classID] = &ontology.ClassModel{ID: classID, Label: label, Count: count}
		order = append(order, classID)
		if parent.Valid {
			parents[classID] = ontology.ClassID(parent.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate class rows")
	}

	roots := make([]*ontology.ClassModel, 0)
	for _, id := range order {
		node := nodes[id]
		if parentID, ok := parents[id]; ok {
			if parent, exists := nodes[parentID]; exists {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots, nil
}

// ClassInfo resolves class metadata, preserving request order for the
// ids this store knows.
func (p *Provider) ClassInfo(ctx context.Context, classIDs []ontology.ClassID) ([]ontology.ClassModel, error) {
	if len(classIDs) == 0 {
		return []ontology.ClassModel{}, nil
	}
	query := `
		SELECT c.id, c.label, COUNT(ec.element_id)
		FROM classes c
		LEFT JOIN element_classes ec ON ec.class_id = c.id
		WHERE c.id IN (` + placeholders(len(classIDs)) + `)
		GROUP BY c.id`
	rows, err := p.db.QueryContext(ctx, query, idArgs(classIDs)...)
	if err != nil {
		return nil, errors.Wrap(err, "query class info")
	}
	defer rows.Close()

	byID := make(map[ontology.ClassID]ontology.ClassModel)
	for rows.Next() {
		var (
			id, label string
			count     int
		)
		if err := rows.Scan(&id, &label, &count); err != nil {
			return nil, errors.Wrap(err, "scan class row")
		}
		byID[ontology.ClassID(id)] = ontology.ClassModel{ID: ontology.ClassID(id), Label: label, Count: count}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate class rows")
	}

	out := make([]ontology.ClassModel, 0, len(byID))
	for _, id := range classIDs {
		if cm, ok := byID[id]; ok {
			out = append(out, cm)
		}
	}
	return out, nil
}

func (p *Provider) PropertyInfo(ctx context.Context, propertyIDs []ontology.PropertyID) (map[ontology.PropertyID]ontology.PropertyModel, error) {
	out := make(map[ontology.PropertyID]ontology.PropertyModel)
	if len(propertyIDs) == 0 {
		return out, nil
	}
	query := `SELECT id, label FROM properties WHERE id IN (` + placeholders(len(propertyIDs)) + `)`
	rows, err := p.db.QueryContext(ctx, query, idArgs(propertyIDs)...)
	if err != nil {
		return nil, errors.Wrap(err, "query property info")
	}
	defer rows.Close()

	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, errors.Wrap(err, "scan property row")
		}
		out[ontology.PropertyID(id)] = ontology.PropertyModel{ID: ontology.PropertyID(id), Label: label}
	}
	return out, rows.Err()
}

func (p *Provider) LinkTypesInfo(ctx context.Context, linkTypeIDs []ontology.LinkTypeID) ([]ontology.LinkType, error) {
	if len(linkTypeIDs) == 0 {
		return []ontology.LinkType{}, nil
	}
	return p.queryLinkTypes(ctx,
		`WHERE lt.id IN (`+placeholders(len(linkTypeIDs))+`)`,
		idArgs(linkTypeIDs)...)
}

func (p *Provider) LinkTypes(ctx context.Context) ([]ontology.LinkType, error) {
	return p.queryLinkTypes(ctx, "")
}

func (p *Provider) queryLinkTypes(ctx context.Context, where string, args ...any) ([]ontology.LinkType, error) {
	query := `
		SELECT lt.id, lt.label, COUNT(l.link_type_id)
		FROM link_types lt
		LEFT JOIN links l ON l.link_type_id = lt.id
		` + where + `
		GROUP BY lt.id
		ORDER BY lt.id`
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query link types")
	}
	defer rows.Close()

	out := make([]ontology.LinkType, 0)
	for rows.Next() {
		var (
			id, label string
			count     int
		)
		if err := rows.Scan(&id, &label, &count); err != nil {
			return nil, errors.Wrap(err, "scan link type row")
		}
		out = append(out, ontology.LinkType{ID: ontology.LinkTypeID(id), Label: label, Count: count})
	}
	return out, rows.Err()
}

func (p *Provider) ElementInfo(ctx context.Context, elementIDs []ontology.ElementID) (map[ontology.ElementID]ontology.ElementModel, error) {
	out := make(map[ontology.ElementID]ontology.ElementModel)
	if len(elementIDs) == 0 {
		return out, nil
	}

	query := `SELECT id, label, image, properties FROM elements WHERE id IN (` + placeholders(len(elementIDs)) + `)`
	rows, err := p.db.QueryContext(ctx, query, idArgs(elementIDs)...)
	if err != nil {
		return nil, errors.Wrap(err, "query elements")
	}
	defer rows.Close()

	for rows.Next() {
		var id, label, image, propsJSON string
		if err := rows.Scan(&id, &label, &image, &propsJSON); err != nil {
			return nil, errors.Wrap(err, "scan element row")
		}
		props, err := parseProperties(propsJSON)
		if err != nil {
			return nil, errors.Wrapf(err, "element %s", id)
		}
		out[ontology.ElementID(id)] = ontology.ElementModel{
			ID:         ontology.ElementID(id),
			Label:      label,
			Image:      image,
			Properties: props,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate element rows")
	}
	if len(out) == 0 {
		return out, nil
	}

	// Attach class memberships.
	found := make([]ontology.ElementID, 0, len(out))
	for id := range out {
		found = append(found, id)
	}
	typeQuery := `
		SELECT element_id, class_id FROM element_classes
		WHERE element_id IN (` + placeholders(len(found)) + `)
		ORDER BY element_id, class_id`
	typeRows, err := p.db.QueryContext(ctx, typeQuery, idArgs(found)...)
	if err != nil {
		return nil, errors.Wrap(err, "query element classes")
	}
	defer typeRows.Close()

	for typeRows.Next() {
		var elementID, classID string
		if err := typeRows.Scan(&elementID, &classID); err != nil {
			return nil, errors.Wrap(err, "scan element class row")
		}
		em := out[ontology.ElementID(elementID)]
		em.Types = append(em.Types, ontology.ClassID(classID))
		out[ontology.ElementID(elementID)] = em
	}
	return out, typeRows.Err()
}

// LinksInfo returns links whose endpoints are both within elementIDs,
// optionally restricted to linkTypeIDs.
func (p *Provider) LinksInfo(ctx context.Context, elementIDs []ontology.ElementID, linkTypeIDs []ontology.LinkTypeID) ([]ontology.Link, error) {
	if len(elementIDs) == 0 {
		return []ontology.Link{}, nil
	}
	ph := placeholders(len(elementIDs))
	query := `
		SELECT source_id, link_type_id, target_id, properties
		FROM links
		WHERE source_id IN (` + ph + `) AND target_id IN (` + ph + `)`
	args := append(idArgs(elementIDs), idArgs(elementIDs)...)
	if len(linkTypeIDs) > 0 {
		query += ` AND link_type_id IN (` + placeholders(len(linkTypeIDs)) + `)`
		args = append(args, idArgs(linkTypeIDs)...)
	}
	query += ` ORDER BY source_id, link_type_id, target_id`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query links")
	}
	defer rows.Close()

	out := make([]ontology.Link, 0)
	for rows.Next() {
		var source, typ, target, propsJSON string
		if err := rows.Scan(&source, &typ, &target, &propsJSON); err != nil {
			return nil, errors.Wrap(err, "scan link row")
		}
		props, err := parseProperties(propsJSON)
		if err != nil {
			return nil, errors.Wrapf(err, "link %s-%s-%s", source, typ, target)
		}
		out = append(out, ontology.Link{
			SourceID:   ontology.ElementID(source),
			TypeID:     ontology.LinkTypeID(typ),
			TargetID:   ontology.ElementID(target),
			Properties: props,
		})
	}
	return out, rows.Err()
}

func (p *Provider) LinkTypesOf(ctx context.Context, elementID ontology.ElementID) ([]ontology.LinkCount, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT link_type_id,
		       SUM(CASE WHEN target_id = ?1 THEN 1 ELSE 0 END),
		       SUM(CASE WHEN source_id = ?1 THEN 1 ELSE 0 END)
		FROM links
		WHERE source_id = ?1 OR target_id = ?1
		GROUP BY link_type_id
		ORDER BY link_type_id`, string(elementID))
	if err != nil {
		return nil, errors.Wrap(err, "query link counts")
	}
	defer rows.Close()

	out := make([]ontology.LinkCount, 0)
	for rows.Next() {
		var (
			typ               string
			inbound, outbound int
		)
		if err := rows.Scan(&typ, &inbound, &outbound); err != nil {
			return nil, errors.Wrap(err, "scan link count row")
		}
		out = append(out, ontology.LinkCount{TypeID: ontology.LinkTypeID(typ), Inbound: inbound, Outbound: outbound})
	}
	return out, rows.Err()
}

func (p *Provider) LinkElements(ctx context.Context, params ontology.LinkedElementsParams) (map[ontology.ElementID]ontology.ElementModel, error) {
	if params.ElementID == "" || params.LinkTypeID == "" {
		return map[ontology.ElementID]ontology.ElementModel{}, nil
	}

	var neighborQuery string
	switch params.Direction {
	case ontology.DirectionOut:
		neighborQuery = `SELECT DISTINCT target_id AS id FROM links WHERE source_id = ?1 AND link_type_id = ?2`
	case ontology.DirectionIn:
		neighborQuery = `SELECT DISTINCT source_id AS id FROM links WHERE target_id = ?1 AND link_type_id = ?2`
	default:
		neighborQuery = `
			SELECT target_id AS id FROM links WHERE source_id = ?1 AND link_type_id = ?2
			UNION
			SELECT source_id AS id FROM links WHERE target_id = ?1 AND link_type_id = ?2`
	}

	limit := params.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query := `SELECT id FROM (` + neighborQuery + `) ORDER BY id LIMIT ?3 OFFSET ?4`

	rows, err := p.db.QueryContext(ctx, query,
		string(params.ElementID), string(params.LinkTypeID), limit, params.Offset)
	if err != nil {
		return nil, errors.Wrap(err, "query linked elements")
	}
	defer rows.Close()

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	return p.ElementInfo(ctx, ids)
}

func (p *Provider) Filter(ctx context.Context, params ontology.FilterParams) (map[ontology.ElementID]ontology.ElementModel, error) {
	var (
		conds []string
		args  []any
	)

	if params.ElementTypeID != "" {
		conds = append(conds, `id IN (SELECT element_id FROM element_classes WHERE class_id = ?)`)
		args = append(args, string(params.ElementTypeID))
	}
	if params.Text != "" {
		conds = append(conds, `LOWER(label) LIKE '%' || LOWER(?) || '%'`)
		args = append(args, params.Text)
	}
	if params.RefElementID != "" {
		cond, refArgs := neighborCondition(params)
		conds = append(conds, cond)
		args = append(args, refArgs...)
	}

	query := `SELECT id FROM elements`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = -1
	}
	query += ` ORDER BY label, id LIMIT ? OFFSET ?`
	args = append(args, limit, params.Offset)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query filter")
	}
	defer rows.Close()

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	return p.ElementInfo(ctx, ids)
}

// neighborCondition restricts a filter to elements linked to the
// reference element, honoring direction and optional link type.
func neighborCondition(params ontology.FilterParams) (string, []any) {
	ref := string(params.RefElementID)
	typeCond := ""
	typeArgs := func() []any { return nil }
	if params.RefElementLinkID != "" {
		typeCond = ` AND link_type_id = ?`
		typeArgs = func() []any { return []any{string(params.RefElementLinkID)} }
	}

	out := `SELECT target_id FROM links WHERE source_id = ?` + typeCond
	in := `SELECT source_id FROM links WHERE target_id = ?` + typeCond

	switch params.LinkDirection {
	case ontology.DirectionOut:
		// Elements the reference points at
		return `id IN (` + out + `)`, append([]any{ref}, typeArgs()...)
	case ontology.DirectionIn:
		// Elements pointing at the reference
		return `id IN (` + in + `)`, append([]any{ref}, typeArgs()...)
	default:
		args := append([]any{ref}, typeArgs()...)
		args = append(args, ref)
		args = append(args, typeArgs()...)
		return `id IN (` + out + ` UNION ` + in + `)`, args
	}
}

func scanIDs(rows *sql.Rows) ([]ontology.ElementID, error) {
	var ids []ontology.ElementID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan element id")
		}
		ids = append(ids, ontology.ElementID(id))
	}
	return ids, rows.Err()
}

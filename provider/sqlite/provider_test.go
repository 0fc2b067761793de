package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/teranos/ontix/internal/testing"
	"github.com/teranos/ontix/ontology"
)

// seedMusicStore loads a small music-domain ontology:
//
//	work <- album, single (classes)
//	artist
//	albums dark_side, wish_you_were_here by pink_floyd (performed_by)
//	genre_of links to progressive_rock
func seedMusicStore(t *testing.T, conn *sql.DB) {
	t.Helper()

	exec := func(query string, args ...any) {
		t.Helper()
		_, err := conn.Exec(query, args...)
		require.NoError(t, err)
	}

	exec(`INSERT INTO classes (id, parent_id, label) VALUES
		('work', NULL, 'Work'),
		('album', 'work', 'Album'),
		('single', 'work', 'Single'),
		('artist', NULL, 'Artist')`)

	exec(`INSERT INTO properties (id, label) VALUES
		('released', 'Release year'),
		('length', 'Length')`)

	exec(`INSERT INTO link_types (id, label) VALUES
		('performed_by', 'performed by'),
		('genre_of', 'genre of')`)

	exec(`INSERT INTO elements (id, label, image, properties) VALUES
		('pink_floyd', 'Pink Floyd', '', '{}'),
		('dark_side', 'The Dark Side of the Moon', 'https://img.example/dsotm.jpg', '{"released":["1973"]}'),
		('wish_you_were_here', 'Wish You Were Here', '', '{"released":["1975"]}'),
		('progressive_rock', 'Progressive rock', '', '{}')`)

	exec(`INSERT INTO element_classes (element_id, class_id) VALUES
		('pink_floyd', 'artist'),
		('dark_side', 'album'),
		('dark_side', 'work'),
		('wish_you_were_here', 'album')`)

	exec(`INSERT INTO links (source_id, link_type_id, target_id, properties) VALUES
		('dark_side', 'performed_by', 'pink_floyd', '{}'),
		('wish_you_were_here', 'performed_by', 'pink_floyd', '{}'),
		('progressive_rock', 'genre_of', 'dark_side', '{}')`)
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	conn := testdb.CreateTestDB(t)
	seedMusicStore(t, conn)
	return New(conn)
}

func TestClassTree(t *testing.T) {
	p := newTestProvider(t)
	tree, err := p.ClassTree(context.Background())
	require.NoError(t, err)

	require.Len(t, tree, 2, "two roots: artist and work")

	byID := make(map[ontology.ClassID]*ontology.ClassModel)
	for _, root := range tree {
		byID[root.ID] = root
	}
	work := byID["work"]
	require.NotNil(t, work)
	assert.Len(t, work.Children, 2)
	assert.Equal(t, 1, work.Count, "dark_side is directly a work")

	artist := byID["artist"]
	require.NotNil(t, artist)
	assert.Empty(t, artist.Children)
	assert.Equal(t, 1, artist.Count)
}

func TestClassInfoPreservesRequestOrder(t *testing.T) {
	p := newTestProvider(t)
	classes, err := p.ClassInfo(context.Background(), []ontology.ClassID{"album", "artist", "missing"})
	require.NoError(t, err)

	require.Len(t, classes, 2)
	assert.Equal(t, ontology.ClassID("album"), classes[0].ID)
	assert.Equal(t, 2, classes[0].Count)
	assert.Equal(t, ontology.ClassID("artist"), classes[1].ID)
}

func TestPropertyInfo(t *testing.T) {
	p := newTestProvider(t)
	props, err := p.PropertyInfo(context.Background(), []ontology.PropertyID{"released", "missing"})
	require.NoError(t, err)

	require.Len(t, props, 1)
	assert.Equal(t, "Release year", props["released"].Label)
}

func TestLinkTypesAndInfo(t *testing.T) {
	p := newTestProvider(t)

	all, err := p.LinkTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ontology.LinkTypeID("genre_of"), all[0].ID)
	assert.Equal(t, 1, all[0].Count)

	some, err := p.LinkTypesInfo(context.Background(), []ontology.LinkTypeID{"performed_by"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, 2, some[0].Count)
}

func TestElementInfo(t *testing.T) {
	p := newTestProvider(t)
	elements, err := p.ElementInfo(context.Background(), []ontology.ElementID{"dark_side", "missing"})
	require.NoError(t, err)

	require.Len(t, elements, 1)
	ds := elements["dark_side"]
	assert.Equal(t, "The Dark Side of the Moon", ds.Label)
	assert.Equal(t, "https://img.example/dsotm.jpg", ds.Image)
	assert.Equal(t, []ontology.ClassID{"album", "work"}, ds.Types)
	assert.Equal(t, []string{"1973"}, ds.Properties["released"])
}

func TestLinksInfoRequiresBothEndpoints(t *testing.T) {
	p := newTestProvider(t)

	links, err := p.LinksInfo(context.Background(),
		[]ontology.ElementID{"dark_side", "pink_floyd"}, nil)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, ontology.LinkTypeID("performed_by"), links[0].TypeID)

	// progressive_rock not requested, so genre_of link is excluded
	links, err = p.LinksInfo(context.Background(),
		[]ontology.ElementID{"dark_side"}, nil)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestLinksInfoTypeRestriction(t *testing.T) {
	p := newTestProvider(t)
	ids := []ontology.ElementID{"dark_side", "pink_floyd", "progressive_rock"}

	links, err := p.LinksInfo(context.Background(), ids, []ontology.LinkTypeID{"genre_of"})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, ontology.ElementID("progressive_rock"), links[0].SourceID)
}

func TestLinkTypesOf(t *testing.T) {
	p := newTestProvider(t)
	counts, err := p.LinkTypesOf(context.Background(), "dark_side")
	require.NoError(t, err)

	require.Len(t, counts, 2)
	assert.Equal(t, ontology.LinkTypeID("genre_of"), counts[0].TypeID)
	assert.Equal(t, 1, counts[0].Inbound)
	assert.Equal(t, 0, counts[0].Outbound)
	assert.Equal(t, ontology.LinkTypeID("performed_by"), counts[1].TypeID)
	assert.Equal(t, 1, counts[1].Outbound)

	none, err := p.LinkTypesOf(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLinkElements(t *testing.T) {
	p := newTestProvider(t)

	out, err := p.LinkElements(context.Background(), ontology.LinkedElementsParams{
		ElementID:  "pink_floyd",
		LinkTypeID: "performed_by",
		Direction:  ontology.DirectionIn,
	})
	require.NoError(t, err)
	assert.Len(t, out, 2, "both albums point at the artist")

	paged, err := p.LinkElements(context.Background(), ontology.LinkedElementsParams{
		ElementID:  "pink_floyd",
		LinkTypeID: "performed_by",
		Direction:  ontology.DirectionIn,
		Limit:      1,
		Offset:     1,
	})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
	assert.Contains(t, paged, ontology.ElementID("wish_you_were_here"))

	wrongWay, err := p.LinkElements(context.Background(), ontology.LinkedElementsParams{
		ElementID:  "pink_floyd",
		LinkTypeID: "performed_by",
		Direction:  ontology.DirectionOut,
	})
	require.NoError(t, err)
	assert.Empty(t, wrongWay)
}

func TestFilter(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	byType, err := p.Filter(ctx, ontology.FilterParams{ElementTypeID: "album"})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	byText, err := p.Filter(ctx, ontology.FilterParams{Text: "dark side"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Contains(t, byText, ontology.ElementID("dark_side"))

	combined, err := p.Filter(ctx, ontology.FilterParams{ElementTypeID: "album", Text: "wish"})
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Contains(t, combined, ontology.ElementID("wish_you_were_here"))

	neighbors, err := p.Filter(ctx, ontology.FilterParams{
		RefElementID:     "pink_floyd",
		RefElementLinkID: "performed_by",
		LinkDirection:    ontology.DirectionIn,
	})
	require.NoError(t, err)
	assert.Len(t, neighbors, 2)

	nothing, err := p.Filter(ctx, ontology.FilterParams{Text: "no such record"})
	require.NoError(t, err)
	assert.Empty(t, nothing)
}

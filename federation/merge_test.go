package federation

import (
	"testing"

	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/ontology"
)

func TestMergeDictsFirstWins(t *testing.T) {
	results := []tagged[map[string]int]{
		{source: "a", payload: map[string]int{"x": 1, "y": 2}, ok: true},
		{source: "b", payload: map[string]int{"y": 20, "z": 30}, ok: true},
	}
	merged := mergeDicts(results)

	if len(merged) != 3 {
		t.Fatalf("merged size = %d, want 3", len(merged))
	}
	if merged["y"] != 2 {
		t.Errorf("merged[y] = %d, want first backend's 2", merged["y"])
	}
	if merged["z"] != 30 {
		t.Errorf("merged[z] = %d, want 30", merged["z"])
	}
}

func TestMergeDictsSkipsAbsent(t *testing.T) {
	results := []tagged[map[string]int]{
		{source: "a"}, // failed backend
		{source: "b", payload: map[string]int{"x": 5}, ok: true},
	}
	merged := mergeDicts(results)
	if merged["x"] != 5 {
		t.Errorf("merged[x] = %d, want 5", merged["x"])
	}
}

func TestMergeDictsAllAbsentIsEmpty(t *testing.T) {
	merged := mergeDicts([]tagged[map[string]int]{{source: "a"}, {source: "b"}})
	if merged == nil || len(merged) != 0 {
		t.Fatalf("all-absent merge = %v, want empty map", merged)
	}
}

func TestMergeLinksDedupesByTriple(t *testing.T) {
	withProps := ontology.Link{
		SourceID: "e1", TypeID: "lt1", TargetID: "e2",
		Properties: map[ontology.PropertyID][]string{"p1": {"first"}},
	}
	duplicate := ontology.Link{SourceID: "e1", TypeID: "lt1", TargetID: "e2"}
	distinct := ontology.Link{SourceID: "e2", TypeID: "lt1", TargetID: "e1"}

	merged := mergeLinks([]tagged[[]ontology.Link]{
		{source: "a", payload: []ontology.Link{withProps}, ok: true},
		{source: "b", payload: []ontology.Link{duplicate, distinct}, ok: true},
	})

	if len(merged) != 2 {
		t.Fatalf("merged %d links, want 2", len(merged))
	}
	// First occurrence keeps its payload, properties included.
	if got := merged[0].Properties["p1"]; len(got) != 1 || got[0] != "first" {
		t.Errorf("first occurrence properties lost: %v", merged[0].Properties)
	}
}

func TestMergeLinkCountsNotSummed(t *testing.T) {
	merged := mergeLinkCounts([]tagged[[]ontology.LinkCount]{
		{source: "a", payload: []ontology.LinkCount{{TypeID: "lt1", Inbound: 3, Outbound: 1}}, ok: true},
		{source: "b", payload: []ontology.LinkCount{{TypeID: "lt1", Inbound: 100}, {TypeID: "lt2", Outbound: 2}}, ok: true},
	})

	if len(merged) != 2 {
		t.Fatalf("merged %d counts, want 2", len(merged))
	}
	if merged[0].Inbound != 3 {
		t.Errorf("lt1 inbound = %d, want first backend's 3 (counts are never summed)", merged[0].Inbound)
	}
}

func TestMergeClassTreeUnionsChildren(t *testing.T) {
	treeA := []*ontology.ClassModel{{
		ID: "thing", Label: "Thing", Count: 10,
		Children: []*ontology.ClassModel{{ID: "person", Label: "Person"}},
	}}
	treeB := []*ontology.ClassModel{{
		ID: "thing", Label: "Thing (B)", Count: 99,
		Children: []*ontology.ClassModel{
			{ID: "person", Label: "Person (B)"},
			{ID: "place", Label: "Place"},
		},
	}}

	merged := mergeClassTree([]tagged[[]*ontology.ClassModel]{
		{source: "a", payload: treeA, ok: true},
		{source: "b", payload: treeB, ok: true},
	})

	if len(merged) != 1 {
		t.Fatalf("merged %d roots, want 1", len(merged))
	}
	root := merged[0]
	if root.Label != "Thing" || root.Count != 10 {
		t.Errorf("root payload = %q/%d, want first backend's Thing/10", root.Label, root.Count)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want union of 2", len(root.Children))
	}
	if root.Children[0].ID != "person" || root.Children[0].Label != "Person" {
		t.Errorf("first child = %+v, want first backend's Person", root.Children[0])
	}
	if root.Children[1].ID != "place" {
		t.Errorf("second child = %+v, want place", root.Children[1])
	}
}

func TestMergeClassTreeDisjointRoots(t *testing.T) {
	merged := mergeClassTree([]tagged[[]*ontology.ClassModel]{
		{source: "a", payload: []*ontology.ClassModel{{ID: "c1", Label: "One"}}, ok: true},
		{source: "b", payload: []*ontology.ClassModel{{ID: "c2", Label: "Two"}}, ok: true},
	})
	if len(merged) != 2 {
		t.Fatalf("merged %d roots, want 2", len(merged))
	}
	if merged[0].ID != "c1" || merged[1].ID != "c2" {
		t.Errorf("roots out of registration order: %v, %v", merged[0].ID, merged[1].ID)
	}
}

func TestMergeClassTreeConflictingParentage(t *testing.T) {
	// A nests y under x, B nests x under y. The merge must terminate
	// and produce each node exactly once below whichever root survives.
	treeA := []*ontology.ClassModel{{ID: "x", Children: []*ontology.ClassModel{{ID: "y"}}}}
	treeB := []*ontology.ClassModel{{ID: "y", Children: []*ontology.ClassModel{{ID: "x"}}}}

	merged := mergeClassTree([]tagged[[]*ontology.ClassModel]{
		{source: "a", payload: treeA, ok: true},
		{source: "b", payload: treeB, ok: true},
	})

	total := 0
	var count func(nodes []*ontology.ClassModel)
	count = func(nodes []*ontology.ClassModel) {
		for _, n := range nodes {
			total++
			count(n.Children)
		}
	}
	count(merged)
	if total == 0 || total > 4 {
		t.Fatalf("cycle merge produced %d nodes", total)
	}
}

func TestSafeMergeConvertsPanic(t *testing.T) {
	_, err := safeMerge("element-info", func() map[string]int {
		panic("malformed payload shape")
	})
	if err == nil {
		t.Fatal("expected an error from panicking merge")
	}
	if !errors.HasAssertionFailure(err) {
		t.Errorf("panic should surface as assertion failure, got %v", err)
	}

	out, err := safeMerge("element-info", func() int { return 42 })
	if err != nil || out != 42 {
		t.Errorf("safeMerge passthrough = (%d, %v), want (42, nil)", out, err)
	}
}

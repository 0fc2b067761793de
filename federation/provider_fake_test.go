package federation

import (
	"context"
	"sync"
	"time"

	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/ontology"
)

// fakeProvider is an in-memory backend with configurable latency and
// failure, recording every invocation for assertions.
type fakeProvider struct {
	mu    sync.Mutex
	delay time.Duration
	err   error

	classTree    []*ontology.ClassModel
	classes      map[ontology.ClassID]ontology.ClassModel
	properties   map[ontology.PropertyID]ontology.PropertyModel
	linkTypes    []ontology.LinkType
	elements     map[ontology.ElementID]ontology.ElementModel
	links        []ontology.Link
	linkCounts   map[ontology.ElementID][]ontology.LinkCount
	filterResult map[ontology.ElementID]ontology.ElementModel

	calls           []string
	elementInfoArgs [][]ontology.ElementID
	classInfoArgs   [][]ontology.ClassID
	linksInfoArgs   [][]ontology.ElementID
}

var _ ontology.Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		classes:      make(map[ontology.ClassID]ontology.ClassModel),
		properties:   make(map[ontology.PropertyID]ontology.PropertyModel),
		elements:     make(map[ontology.ElementID]ontology.ElementModel),
		linkCounts:   make(map[ontology.ElementID][]ontology.LinkCount),
		filterResult: make(map[ontology.ElementID]ontology.ElementModel),
	}
}

// begin records the call and simulates latency/failure.
func (f *fakeProvider) begin(op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return errors.WrapBackend(f.err, op)
	}
	return nil
}

func (f *fakeProvider) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeProvider) ClassTree(ctx context.Context) ([]*ontology.ClassModel, error) {
	if err := f.begin("class-tree"); err != nil {
		return nil, err
	}
	return f.classTree, nil
}

func (f *fakeProvider) ClassInfo(ctx context.Context, classIDs []ontology.ClassID) ([]ontology.ClassModel, error) {
	f.mu.Lock()
	f.classInfoArgs = append(f.classInfoArgs, classIDs)
	f.mu.Unlock()
	if err := f.begin("class-info"); err != nil {
		return nil, err
	}
	out := make([]ontology.ClassModel, 0, len(classIDs))
	for _, id := range classIDs {
		if cm, ok := f.classes[id]; ok {
			out = append(out, cm)
		}
	}
	return out, nil
}

func (f *fakeProvider) PropertyInfo(ctx context.Context, propertyIDs []ontology.PropertyID) (map[ontology.PropertyID]ontology.PropertyModel, error) {
	if err := f.begin("property-info"); err != nil {
		return nil, err
	}
	out := make(map[ontology.PropertyID]ontology.PropertyModel)
	for _, id := range propertyIDs {
		if pm, ok := f.properties[id]; ok {
			out[id] = pm
		}
	}
	return out, nil
}

func (f *fakeProvider) LinkTypesInfo(ctx context.Context, linkTypeIDs []ontology.LinkTypeID) ([]ontology.LinkType, error) {
	if err := f.begin("link-types-info"); err != nil {
		return nil, err
	}
	out := make([]ontology.LinkType, 0)
	for _, id := range linkTypeIDs {
		for _, lt := range f.linkTypes {
			if lt.ID == id {
				out = append(out, lt)
			}
		}
	}
	return out, nil
}

func (f *fakeProvider) LinkTypes(ctx context.Context) ([]ontology.LinkType, error) {
	if err := f.begin("link-types"); err != nil {
		return nil, err
	}
	return f.linkTypes, nil
}

func (f *fakeProvider) ElementInfo(ctx context.Context, elementIDs []ontology.ElementID) (map[ontology.ElementID]ontology.ElementModel, error) {
	f.mu.Lock()
	f.elementInfoArgs = append(f.elementInfoArgs, elementIDs)
	f.mu.Unlock()
	if err := f.begin("element-info"); err != nil {
		return nil, err
	}
	out := make(map[ontology.ElementID]ontology.ElementModel)
	for _, id := range elementIDs {
		if em, ok := f.elements[id]; ok {
			out[id] = em
		}
	}
	return out, nil
}

func (f *fakeProvider) LinksInfo(ctx context.Context, elementIDs []ontology.ElementID, linkTypeIDs []ontology.LinkTypeID) ([]ontology.Link, error) {
	f.mu.Lock()
	f.linksInfoArgs = append(f.linksInfoArgs, elementIDs)
	f.mu.Unlock()
	if err := f.begin("links-info"); err != nil {
		return nil, err
	}
	requested := make(map[ontology.ElementID]struct{}, len(elementIDs))
	for _, id := range elementIDs {
		requested[id] = struct{}{}
	}
	out := make([]ontology.Link, 0)
	for _, l := range f.links {
		if _, ok := requested[l.SourceID]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeProvider) LinkTypesOf(ctx context.Context, elementID ontology.ElementID) ([]ontology.LinkCount, error) {
	if err := f.begin("link-types-of"); err != nil {
		return nil, err
	}
	return f.linkCounts[elementID], nil
}

func (f *fakeProvider) LinkElements(ctx context.Context, params ontology.LinkedElementsParams) (map[ontology.ElementID]ontology.ElementModel, error) {
	if err := f.begin("link-elements"); err != nil {
		return nil, err
	}
	return f.filterResult, nil
}

func (f *fakeProvider) Filter(ctx context.Context, params ontology.FilterParams) (map[ontology.ElementID]ontology.ElementModel, error) {
	if err := f.begin("filter"); err != nil {
		return nil, err
	}
	return f.filterResult, nil
}

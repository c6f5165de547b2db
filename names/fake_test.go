/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package names

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeEncyclopedia serves canned results and records every call.
type fakeEncyclopedia struct {
	mu sync.Mutex

	results  map[string][]SearchResult // by query
	extracts map[string]Extract        // by title
	err      error

	searches []string
	fetches  []PageRef
}

func newFakeEncyclopedia() *fakeEncyclopedia {
	return &fakeEncyclopedia{
		results:  make(map[string][]SearchResult),
		extracts: make(map[string]Extract),
	}
}

func (f *fakeEncyclopedia) page(id int64, title, html string) {
	f.extracts[title] = Extract{PageID: id, Title: title, HTML: html}
}

func (f *fakeEncyclopedia) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.searches = append(f.searches, query)

	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := f.results[query]
	if len(res) > limit {
		res = res[:limit]
	}

	return res, nil
}

func (f *fakeEncyclopedia) Extract(ctx context.Context, ref PageRef) (Extract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches = append(f.fetches, ref)

	if f.err != nil {
		return Extract{}, f.err
	}

	e, ok := f.extracts[ref.Title]
	if !ok {
		return Extract{}, ErrNotFound
	}

	return e, nil
}

func (f *fakeEncyclopedia) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.searches) + len(f.fetches)
}

func testGazetteer(t *testing.T) *Gazetteer {
	t.Helper()

	g, err := NewGazetteer(
		[]string{"Marie Curie", "Jane Austen", "Cleopatra"},
		map[string]string{"Beyoncé": "/wiki/Beyonc%C3%A9"},
	)
	require.NoError(t, err)

	return g
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Seednode/nameher/names"
	"github.com/Seednode/nameher/scores"
)

// fakeEncyclopedia answers phrase searches by normalized title and extracts
// by title.
type fakeEncyclopedia struct {
	mu       sync.Mutex
	results  map[string][]names.SearchResult
	extracts map[string]names.Extract
}

func newFakeEncyclopedia() *fakeEncyclopedia {
	return &fakeEncyclopedia{
		results:  make(map[string][]names.SearchResult),
		extracts: make(map[string]names.Extract),
	}
}

func (f *fakeEncyclopedia) add(id int64, title, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.results[names.Normalize(title)] = []names.SearchResult{{Title: title, PageID: id}}
	f.extracts[title] = names.Extract{PageID: id, Title: title, HTML: "<p>" + text + "</p>", Text: text}
}

func (f *fakeEncyclopedia) Search(_ context.Context, query string, _ int) ([]names.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.results[names.Normalize(strings.Trim(query, `"`))], nil
}

func (f *fakeEncyclopedia) Extract(_ context.Context, ref names.PageRef) (names.Extract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.extracts[ref.Title]
	if !ok {
		return names.Extract{}, names.ErrNotFound
	}

	return e, nil
}

func testConfig(t *testing.T) *Config {
	t.Helper()

	return &Config{
		bind:            "127.0.0.1",
		database:        filepath.Join(t.TempDir(), "scores.db"),
		duplicateWindow: scores.DefaultDuplicateWindow,
		lookupTimeout:   2 * time.Second,
		port:            8080,
		searchLimit:     names.DefaultSearchLimit,
		logger:          zaptest.NewLogger(t),
	}
}

// newTestServer serves the full router backed by a fake encyclopedia that
// knows Katalin Karikó and Alan Turing.
func newTestServer(t *testing.T) (*httptest.Server, *Config) {
	t.Helper()

	cfg := testConfig(t)

	src := newFakeEncyclopedia()
	src.add(1, "Katalin Karikó", "Katalin Karikó is a Hungarian-American biochemist and inventor. She pioneered mRNA therapeutics.")
	src.add(2, "Alan Turing", "Alan Turing was an English mathematician. He formalised computation.")

	l, err := newLookupsWithSource(cfg, src)
	require.NoError(t, err)

	store, err := openScores(context.Background(), cfg)
	require.NoError(t, err)

	errs := make(chan error, 64)
	mux, gm := newRouter(cfg, l, store, errs)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		gm.close()
		_ = store.Close()
	})

	return srv, cfg
}

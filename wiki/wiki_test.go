/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Seednode/nameher/names"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/w/api.php",
		WithLogger(zaptest.NewLogger(t)),
		WithRetries(2, time.Millisecond),
	)
	require.NoError(t, err)

	return c, &hits
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	_, err := New("not a url")
	require.Error(t, err)

	c, err := New("")
	require.NoError(t, err)
	require.Equal(t, DefaultEndpoint, c.endpoint)
}

func TestSearch(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "search", q.Get("list"))
		require.Equal(t, `"Lise Meitner"`, q.Get("srsearch"))
		require.Equal(t, "10", q.Get("srlimit"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(`{"batchcomplete":true,"query":{"search":[
			{"ns":0,"title":"Lise Meitner","pageid":18508},
			{"ns":0,"title":"Meitnerium","pageid":19930}
		]}}`))
	})

	results, err := c.Search(context.Background(), `"Lise Meitner"`, 10)
	require.NoError(t, err)
	require.Equal(t, []names.SearchResult{
		{Title: "Lise Meitner", PageID: 18508},
		{Title: "Meitnerium", PageID: 19930},
	}, results)
}

func TestSearchFormatErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"not json", `<html>`, "body"},
		{"no query", `{"batchcomplete":true}`, "query"},
		{"no title", `{"query":{"search":[{"pageid":1}]}}`, "title"},
		{"no pageid", `{"query":{"search":[{"title":"X"}]}}`, "pageid"},
		{"api error", `{"error":{"code":"badvalue","info":"nope"}}`, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Search(context.Background(), "x", 5)
			require.ErrorIs(t, err, names.ErrUpstreamFormat)

			var fe *names.FormatError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestSearchEmpty(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"query":{"search":[]}}`))
	})

	results, err := c.Search(context.Background(), "x", 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestExtract(t *testing.T) {
	c, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "18508", q.Get("pageids"))
		require.Equal(t, "1", q.Get("exintro"))

		_, _ = w.Write([]byte(`{"query":{"pages":[{
			"pageid":18508,
			"title":"Lise Meitner",
			"extract":"<p><b>Elise Meitner</b> was a physicist. She co-discovered fission.</p>",
			"thumbnail":{"source":"https://upload.example/lise.jpg","width":320,"height":400},
			"fullurl":"https://en.wikipedia.org/wiki/Lise_Meitner"
		}]}}`))
	})

	ref := names.PageRef{PageID: 18508, Title: "Lise Meitner"}

	e, err := c.Extract(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, "Lise Meitner", e.Title)
	require.Equal(t, "Elise Meitner was a physicist. She co-discovered fission.", e.Text)
	require.Equal(t, "https://upload.example/lise.jpg", e.Thumbnail)
	require.Equal(t, "https://en.wikipedia.org/wiki/Lise_Meitner", e.URL)

	// Served from cache the second time.
	_, err = c.Extract(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, int64(1), hits.Load())
}

func TestExtractSharedFetchOutlivesFirstCaller(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	c, hits := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release

		_, _ = w.Write([]byte(`{"query":{"pages":[{"pageid":36,"title":"Ada Lovelace","extract":"<p>She wrote the first program.</p>"}]}}`))
	})
	unblock := sync.OnceFunc(func() { close(release) })
	t.Cleanup(unblock)

	ref := names.PageRef{PageID: 36, Title: "Ada Lovelace"}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Extract(first, ref)
		firstErr <- err
	}()

	<-started

	var got names.Extract
	secondErr := make(chan error, 1)
	go func() {
		e, err := c.Extract(context.Background(), ref)
		got = e
		secondErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	unblock()
	require.NoError(t, <-secondErr)
	require.Equal(t, "Ada Lovelace", got.Title)
	require.Equal(t, int64(1), hits.Load())
}

func TestExtractByTitle(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Beyoncé", r.URL.Query().Get("titles"))

		_, _ = w.Write([]byte(`{"query":{"pages":[{"pageid":1,"title":"Beyoncé","extract":"<p>American singer.</p>"}]}}`))
	})

	e, err := c.Extract(context.Background(), names.PageRef{Title: "Beyoncé"})
	require.NoError(t, err)
	require.Equal(t, "American singer.", e.Text)
}

func TestExtractMissing(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"query":{"pages":[{"ns":0,"title":"Nobody","missing":true}]}}`))
	})

	_, err := c.Extract(context.Background(), names.PageRef{Title: "Nobody"})
	require.ErrorIs(t, err, names.ErrNotFound)

	_, err = c.Extract(context.Background(), names.PageRef{})
	require.ErrorIs(t, err, names.ErrNotFound)
}

func TestExtractNoPages(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"query":{"pages":[]}}`))
	})

	_, err := c.Extract(context.Background(), names.PageRef{Title: "X"})
	require.ErrorIs(t, err, names.ErrUpstreamFormat)
}

func TestRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int64

	c, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"query":{"search":[]}}`))
	})

	_, err := c.Search(context.Background(), "x", 5)
	require.NoError(t, err)
	require.Equal(t, int64(2), calls.Load())
}

func TestPermanentErrorsAreNetworkErrors(t *testing.T) {
	c, hits := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Search(context.Background(), "x", 5)
	require.ErrorIs(t, err, names.ErrNetwork)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	require.Equal(t, int64(1), hits.Load())
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c, err := New(endpoint, WithRetries(1, time.Millisecond))
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "x", 5)
	require.ErrorIs(t, err, names.ErrNetwork)
}

func TestIsRetryableError(t *testing.T) {
	require.True(t, isRetryableError(&HTTPError{StatusCode: http.StatusTooManyRequests}))
	require.True(t, isRetryableError(&HTTPError{StatusCode: http.StatusBadGateway}))
	require.False(t, isRetryableError(&HTTPError{StatusCode: http.StatusNotFound}))
	require.False(t, isRetryableError(context.Canceled))
	require.True(t, isRetryableError(errors.New("connection reset")))
}

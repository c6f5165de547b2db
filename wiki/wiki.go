/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package wiki implements names.Encyclopedia against the MediaWiki Action API.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Seednode/nameher/names"
)

const (
	DefaultEndpoint  = "https://en.wikipedia.org/w/api.php"
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 6 * time.Hour

	maxBodySize        = 2 << 20
	thumbnailWidth     = 320
	sharedFetchTimeout = 30 * time.Second
)

// HTTPError represents a non-200 response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// WithCache sizes the extract cache. A size of zero disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cacheSize = size
		cl.cacheTTL = ttl
	}
}

// WithUserAgent overrides the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(cl *Client) { cl.userAgent = ua }
}

// WithRetries sets the number of attempts per request.
func WithRetries(attempts uint, delay time.Duration) Option {
	return func(cl *Client) {
		cl.attempts = attempts
		cl.delay = delay
	}
}

// Client queries a MediaWiki installation.
type Client struct {
	endpoint  string
	http      *http.Client
	logger    *zap.Logger
	userAgent string

	attempts uint
	delay    time.Duration

	cacheSize int
	cacheTTL  time.Duration
	extracts  *expirable.LRU[string, names.Extract]
	inflight  singleflight.Group
}

var _ names.Encyclopedia = (*Client)(nil)

// New returns a Client for the API at endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid wiki endpoint %q", endpoint)
	}

	c := &Client{
		endpoint:  endpoint,
		http:      &http.Client{Timeout: 10 * time.Second},
		logger:    zap.NewNop(),
		userAgent: "nameher/dev (+https://github.com/Seednode/nameher)",
		attempts:  2,
		delay:     200 * time.Millisecond,
		cacheSize: DefaultCacheSize,
		cacheTTL:  DefaultCacheTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.cacheSize > 0 {
		c.extracts = expirable.NewLRU[string, names.Extract](c.cacheSize, nil, c.cacheTTL)
	}

	return c, nil
}

type searchResponse struct {
	Query *struct {
		Search []struct {
			Title  *string `json:"title"`
			PageID *int64  `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

type extractResponse struct {
	Query *struct {
		Pages []struct {
			PageID    int64  `json:"pageid"`
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Invalid   bool   `json:"invalid"`
			Extract   string `json:"extract"`
			Thumbnail *struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
			FullURL string `json:"fullurl"`
		} `json:"pages"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// Search runs a full-text search and returns at most limit ranked results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]names.SearchResult, error) {
	params := url.Values{
		"action":        {"query"},
		"list":          {"search"},
		"srsearch":      {query},
		"srlimit":       {strconv.Itoa(limit)},
		"srprop":        {""},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &names.FormatError{Field: "body", Err: err}
	}
	if resp.Error != nil {
		return nil, &names.FormatError{Field: "error", Err: fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Info)}
	}
	if resp.Query == nil {
		return nil, &names.FormatError{Field: "query"}
	}

	results := make([]names.SearchResult, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		if hit.Title == nil {
			return nil, &names.FormatError{Field: "title"}
		}
		if hit.PageID == nil {
			return nil, &names.FormatError{Field: "pageid"}
		}

		results = append(results, names.SearchResult{Title: *hit.Title, PageID: *hit.PageID})
		if limit > 0 && len(results) == limit {
			break
		}
	}

	return results, nil
}

// Extract fetches the introductory section of a page. Results are cached and
// concurrent requests for the same page share one round trip.
func (c *Client) Extract(ctx context.Context, ref names.PageRef) (names.Extract, error) {
	key := cacheKey(ref)

	if c.extracts != nil {
		if e, ok := c.extracts.Get(key); ok {
			c.logger.Debug("extract cache hit", zap.String("key", key))
			return e, nil
		}
	}

	// The shared fetch is detached from the caller that started it; each
	// caller waits on its own context.
	ch := c.inflight.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		return c.fetchExtract(ctx, ref)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return names.Extract{}, ctx.Err()
	case res = <-ch:
	}

	if res.Shared {
		c.logger.Debug("extract fetch shared", zap.String("key", key))
	}
	if res.Err != nil {
		return names.Extract{}, res.Err
	}

	e := res.Val.(names.Extract)

	if c.extracts != nil {
		c.extracts.Add(key, e)
	}

	return e, nil
}

func (c *Client) fetchExtract(ctx context.Context, ref names.PageRef) (names.Extract, error) {
	params := url.Values{
		"action":        {"query"},
		"prop":          {"extracts|pageimages|info"},
		"inprop":        {"url"},
		"exintro":       {"1"},
		"pithumbsize":   {strconv.Itoa(thumbnailWidth)},
		"redirects":     {"1"},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	switch {
	case ref.PageID > 0:
		params.Set("pageids", strconv.FormatInt(ref.PageID, 10))
	case ref.Title != "":
		params.Set("titles", ref.Title)
	default:
		return names.Extract{}, names.ErrNotFound
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return names.Extract{}, err
	}

	var resp extractResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return names.Extract{}, &names.FormatError{Field: "body", Err: err}
	}
	if resp.Error != nil {
		return names.Extract{}, &names.FormatError{Field: "error", Err: fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Info)}
	}
	if resp.Query == nil {
		return names.Extract{}, &names.FormatError{Field: "query"}
	}
	if len(resp.Query.Pages) == 0 {
		return names.Extract{}, &names.FormatError{Field: "pages"}
	}

	page := resp.Query.Pages[0]
	if page.Missing || page.Invalid {
		return names.Extract{}, names.ErrNotFound
	}
	if page.Title == "" {
		return names.Extract{}, &names.FormatError{Field: "title"}
	}

	e := names.Extract{
		PageID: page.PageID,
		Title:  page.Title,
		HTML:   page.Extract,
		Text:   names.PlainText(page.Extract),
		URL:    page.FullURL,
	}
	if page.Thumbnail != nil {
		e.Thumbnail = page.Thumbnail.Source
	}

	return e, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.endpoint + "?" + params.Encode()

	body, err := retry.DoWithData(
		func() ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", c.userAgent)
			req.Header.Set("Accept", "application/json")

			resp, err := c.http.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close() //nolint:errcheck // intentional

			if resp.StatusCode != http.StatusOK {
				return nil, &HTTPError{StatusCode: resp.StatusCode, URL: reqURL}
			}

			return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxJitter(c.delay/2),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying wiki request",
				zap.Uint("attempt", n+1),
				zap.String("url", reqURL),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", names.ErrNetwork, err)
	}

	return body, nil
}

// isRetryableError returns true for transient errors that should be retried.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}

	return true
}

func cacheKey(ref names.PageRef) string {
	if ref.PageID > 0 {
		return "id:" + strconv.FormatInt(ref.PageID, 10)
	}

	return "title:" + strings.ToLower(ref.Title)
}

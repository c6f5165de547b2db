/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package names

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultSearchLimit = 10
	DefaultTimeout     = 8 * time.Second
)

// Verdict is the outcome of classifying one candidate.
type Verdict struct {
	Valid bool
	// Match is the canonical form the candidate resolved to, when known.
	Match string
	// Reason is set when the verdict is invalid because of a failure or a
	// local rejection. It is informational only.
	Reason error
}

// Option configures an ExternalClassifier or CardLookup.
type Option func(*options)

type options struct {
	logger      *zap.Logger
	searchLimit int
	timeout     time.Duration
}

func defaultOptions() *options {
	return &options{
		logger:      zap.NewNop(),
		searchLimit: DefaultSearchLimit,
		timeout:     DefaultTimeout,
	}
}

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSearchLimit caps the number of search results considered.
func WithSearchLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.searchLimit = n
		}
	}
}

// WithTimeout bounds a whole classification, all round trips included.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// ExternalClassifier decides whether a name denotes a woman by consulting an
// Encyclopedia. It never returns an error: any failure is an invalid verdict.
type ExternalClassifier struct {
	gazetteer *Gazetteer
	source    Encyclopedia
	opts      *options
}

func NewExternalClassifier(g *Gazetteer, source Encyclopedia, opts ...Option) *ExternalClassifier {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &ExternalClassifier{
		gazetteer: g,
		source:    source,
		opts:      o,
	}
}

// Classify runs the external lookup for raw.
func (c *ExternalClassifier) Classify(ctx context.Context, raw string) Verdict {
	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()

	match, err := c.classify(ctx, raw)
	if err != nil {
		c.opts.logger.Debug("external lookup failed",
			zap.String("name", raw),
			zap.Error(err),
		)

		return Verdict{Reason: err}
	}

	if match == "" {
		return Verdict{Reason: ErrInputRejected}
	}

	return Verdict{Valid: true, Match: match}
}

func (c *ExternalClassifier) classify(ctx context.Context, raw string) (string, error) {
	key := Normalize(raw)
	if key == "" {
		return "", nil
	}

	if c.gazetteer != nil {
		if ref, ok := c.gazetteer.Mononym(raw); ok {
			return c.classifyPinned(ctx, ref)
		}
	}

	results, err := c.source.Search(ctx, quote(raw), c.opts.searchLimit)
	if err != nil {
		return "", err
	}

	single := IsSingleToken(raw)

	for _, result := range results {
		if !strings.Contains(Normalize(result.Title), key) {
			continue
		}

		extract, err := c.source.Extract(ctx, PageRef{PageID: result.PageID, Title: result.Title})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}

		text := extractText(extract)

		if single && !hasStageNameIndicator(text) {
			continue
		}

		if hasFemaleIndicator(text) {
			return extract.Title, nil
		}
	}

	return "", nil
}

func (c *ExternalClassifier) classifyPinned(ctx context.Context, ref PageRef) (string, error) {
	extract, err := c.source.Extract(ctx, ref)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	text := extractText(extract)
	if text == "" || !hasFemaleIndicator(text) {
		return "", nil
	}

	if extract.Title != "" {
		return extract.Title, nil
	}

	return ref.Title, nil
}

func extractText(e Extract) string {
	if e.Text != "" {
		return e.Text
	}

	return PlainText(e.HTML)
}

// quote wraps raw in double quotes for a phrase search.
func quote(raw string) string {
	return `"` + strings.TrimSpace(strings.ReplaceAll(raw, `"`, "")) + `"`
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package names

import (
	"context"
	"errors"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const cardSearchLimit = 5

// Card is a short summary of the page a name resolved to, for display next
// to an accepted entry.
type Card struct {
	Title     string `json:"title"`
	HTML      string `json:"html"`
	Text      string `json:"text"`
	Thumbnail string `json:"thumbnail,omitempty"`
	URL       string `json:"url,omitempty"`
}

// CardLookup finds the page behind a name. Unlike ExternalClassifier it
// applies no gender heuristics: a pinned mononym with an extract is enough.
type CardLookup struct {
	gazetteer *Gazetteer
	source    Encyclopedia
	policy    *bluemonday.Policy
	opts      *options
}

func NewCardLookup(g *Gazetteer, source Encyclopedia, opts ...Option) *CardLookup {
	o := defaultOptions()
	o.searchLimit = cardSearchLimit
	for _, opt := range opts {
		opt(o)
	}

	return &CardLookup{
		gazetteer: g,
		source:    source,
		policy:    bluemonday.UGCPolicy(),
		opts:      o,
	}
}

// Lookup returns the card for raw, or ErrNotFound.
func (l *CardLookup) Lookup(ctx context.Context, raw string) (Card, error) {
	if strings.TrimSpace(raw) == "" {
		return Card{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, l.opts.timeout)
	defer cancel()

	if l.gazetteer != nil {
		if ref, ok := l.gazetteer.Mononym(raw); ok {
			extract, err := l.source.Extract(ctx, ref)
			if err == nil && extractText(extract) != "" {
				return l.card(extract), nil
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				return Card{}, err
			}
		}
	}

	results, err := l.source.Search(ctx, quote(raw), l.opts.searchLimit)
	if err != nil {
		return Card{}, err
	}

	key := Normalize(raw)

	for _, result := range results {
		if !strings.Contains(Normalize(result.Title), key) {
			continue
		}

		extract, err := l.source.Extract(ctx, PageRef{PageID: result.PageID, Title: result.Title})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Card{}, err
		}

		if extractText(extract) != "" {
			return l.card(extract), nil
		}
	}

	l.opts.logger.Debug("no card found", zap.String("name", raw))

	return Card{}, ErrNotFound
}

func (l *CardLookup) card(e Extract) Card {
	return Card{
		Title:     e.Title,
		HTML:      l.policy.Sanitize(e.HTML),
		Text:      extractText(e),
		Thumbnail: e.Thumbnail,
		URL:       e.URL,
	}
}

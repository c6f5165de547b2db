/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package names

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// SearchResult is one ranked hit from a full-text search.
type SearchResult struct {
	Title  string
	PageID int64
}

// PageRef addresses a page by id or, when PageID is zero, by title.
type PageRef struct {
	PageID int64
	Title  string
}

// Extract is the introductory section of a page.
type Extract struct {
	PageID    int64
	Title     string
	HTML      string
	Text      string
	Thumbnail string
	URL       string
}

// Encyclopedia is the external search and content source consulted when a
// name is not in the gazetteer.
type Encyclopedia interface {
	// Search returns up to limit results for query, most relevant first.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	// Extract returns the introductory extract of a page. It returns
	// ErrNotFound when the page does not exist.
	Extract(ctx context.Context, ref PageRef) (Extract, error)
}

// PlainText strips markup from an HTML fragment, returning its text with
// whitespace collapsed.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}

	var parts []string
	for _, n := range doc.Nodes {
		collectText(n, &parts)
	}

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		*parts = append(*parts, n.Data)
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

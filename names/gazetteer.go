/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package names

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/gazetteer.yaml
var defaultGazetteer []byte

// professionalPrefixes admit a single-word entry outright; players often
// type stage names such as "DrRuth" or "LadyBird" without a space.
var professionalPrefixes = []string{
	"dame",
	"dr",
	"lady",
	"mlle",
	"mme",
	"mrs",
	"ms",
	"princess",
	"queen",
	"saint",
}

// Gazetteer is the immutable set of pre-vetted names and pinned mononym
// reference pages. Build it once with LoadGazetteer or DefaultGazetteer and
// share it freely; nothing mutates it afterwards.
type Gazetteer struct {
	names      map[string]string // key -> canonical surface form
	mononyms   map[string]string // key -> reference page path
	admissible map[string]bool   // single-word keys eligible for lookup
}

type gazetteerFile struct {
	Names    []string          `yaml:"names"`
	Mononyms map[string]string `yaml:"mononyms"`
}

// DefaultGazetteer parses the dataset bundled with the binary.
func DefaultGazetteer() (*Gazetteer, error) {
	return LoadGazetteer(strings.NewReader(string(defaultGazetteer)))
}

// LoadGazetteerFile parses the dataset at path.
func LoadGazetteerFile(path string) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gazetteer: %w", err)
	}
	defer f.Close()

	return LoadGazetteer(f)
}

// LoadGazetteer parses a YAML dataset of the form
//
//	names:
//	  - Marie Curie
//	mononyms:
//	  Beyoncé: /wiki/Beyoncé
func LoadGazetteer(r io.Reader) (*Gazetteer, error) {
	var file gazetteerFile

	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode gazetteer: %w", err)
	}

	return NewGazetteer(file.Names, file.Mononyms)
}

// NewGazetteer builds a Gazetteer from a list of full names and a table of
// mononym -> reference page path.
func NewGazetteer(fullNames []string, mononyms map[string]string) (*Gazetteer, error) {
	if len(fullNames) == 0 && len(mononyms) == 0 {
		return nil, errors.New("gazetteer is empty")
	}

	g := &Gazetteer{
		names:      make(map[string]string, len(fullNames)),
		mononyms:   make(map[string]string, len(mononyms)),
		admissible: make(map[string]bool),
	}

	for _, name := range fullNames {
		key := Normalize(name)
		if key == "" {
			continue
		}

		if _, exists := g.names[key]; !exists {
			g.names[key] = strings.TrimSpace(name)
		}

		if !strings.Contains(key, " ") {
			g.admissible[key] = true
		}
	}

	for name, path := range mononyms {
		key := Normalize(name)
		if key == "" {
			continue
		}
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("mononym %q has no reference page", name)
		}

		g.mononyms[key] = strings.TrimSpace(path)
		g.admissible[key] = true
	}

	return g, nil
}

// Lookup reports whether raw matches a gazetteer entry, returning the
// entry's canonical form.
func (g *Gazetteer) Lookup(raw string) (string, bool) {
	canonical, ok := g.names[Normalize(raw)]

	return canonical, ok
}

// Mononym returns the pinned reference page for raw, if it is a known mononym.
func (g *Gazetteer) Mononym(raw string) (PageRef, bool) {
	path, ok := g.mononyms[Normalize(raw)]
	if !ok {
		return PageRef{}, false
	}

	return PageRefFromPath(path), true
}

// IsAdmissibleSingleName decides whether raw is worth an external lookup.
// Multi-word input is always admissible.
func (g *Gazetteer) IsAdmissibleSingleName(raw string) bool {
	if !IsSingleToken(raw) {
		return true
	}

	key := Normalize(raw)

	for _, prefix := range professionalPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}

	return g.admissible[key]
}

// Len returns the number of full names.
func (g *Gazetteer) Len() int {
	return len(g.names)
}

// MononymCount returns the number of pinned mononyms.
func (g *Gazetteer) MononymCount() int {
	return len(g.mononyms)
}

// Names returns the canonical full names in sorted order.
func (g *Gazetteer) Names() []string {
	out := make([]string, 0, len(g.names))
	for _, name := range g.names {
		out = append(out, name)
	}
	sort.Strings(out)

	return out
}

// PageRefFromPath turns a reference path such as "/wiki/Beyonc%C3%A9" or
// "/wiki/Ada_Lovelace" into a title reference.
func PageRefFromPath(path string) PageRef {
	title := strings.TrimPrefix(strings.TrimSpace(path), "/wiki/")
	title = strings.TrimPrefix(title, "/")

	if unescaped, err := url.PathUnescape(title); err == nil {
		title = unescaped
	}

	return PageRef{Title: strings.ReplaceAll(title, "_", " ")}
}

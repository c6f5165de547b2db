/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package names

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultGazetteer(t *testing.T) {
	g, err := DefaultGazetteer()
	require.NoError(t, err)
	require.Greater(t, g.Len(), 50)
	require.Greater(t, g.MononymCount(), 5)

	canonical, ok := g.Lookup("marie curie")
	require.True(t, ok)
	require.Equal(t, "Marie Curie", canonical)

	// Pinned mononyms go through the external path, not the local one.
	_, ok = g.Lookup("Beyoncé")
	require.False(t, ok)

	ref, ok := g.Mononym("beyonce")
	require.True(t, ok)
	require.Equal(t, "Beyoncé", ref.Title)
}

func TestGazetteerLookup(t *testing.T) {
	g := testGazetteer(t)

	tests := []struct {
		in        string
		canonical string
		ok        bool
	}{
		{"Marie Curie", "Marie Curie", true},
		{"MARIE CURIE", "Marie Curie", true},
		{"Marie-Curie", "Marie Curie", true},
		{"  marie   curie ", "Marie Curie", true},
		{"Marie", "", false},
		{"Pierre Curie", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			canonical, ok := g.Lookup(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.canonical, canonical)
		})
	}
}

func TestIsAdmissibleSingleName(t *testing.T) {
	g := testGazetteer(t)

	tests := []struct {
		in   string
		want bool
	}{
		{"Marie Curie", true},
		{"Some Unknown Person", true},
		{"Cleopatra", true},
		{"cleopatra", true},
		{"Beyoncé", true},
		{"BEYONCE", true},
		{"DrRuth", true},
		{"Dr.Ruth", true},
		{"QueenLatifah", true},
		{"Xyzzy", false},
		{"Rover", false},
		{"Curie", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, g.IsAdmissibleSingleName(tt.in))
		})
	}
}

func TestLoadGazetteer(t *testing.T) {
	data := `
names:
  - Ada Lovelace
  - Hypatia
mononyms:
  Sade: /wiki/Sade_(singer)
`
	g, err := LoadGazetteer(strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())
	require.Equal(t, []string{"Ada Lovelace", "Hypatia"}, g.Names())
	require.True(t, g.IsAdmissibleSingleName("hypatia"))

	ref, ok := g.Mononym("SADE")
	require.True(t, ok)
	require.Equal(t, "Sade (singer)", ref.Title)
}

func TestLoadGazetteerErrors(t *testing.T) {
	_, err := LoadGazetteer(strings.NewReader(""))
	require.Error(t, err)

	_, err = LoadGazetteer(strings.NewReader("names: [unterminated"))
	require.Error(t, err)

	_, err = LoadGazetteer(strings.NewReader("mononyms:\n  Cher: \"\"\n"))
	require.Error(t, err)
}

func TestLoadGazetteerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gazetteer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("names:\n  - Grace Hopper\n"), 0o600))

	g, err := LoadGazetteerFile(path)
	require.NoError(t, err)

	_, ok := g.Lookup("grace hopper")
	require.True(t, ok)

	_, err = LoadGazetteerFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestPageRefFromPath(t *testing.T) {
	require.Equal(t, PageRef{Title: "Beyoncé"}, PageRefFromPath("/wiki/Beyonc%C3%A9"))
	require.Equal(t, PageRef{Title: "Ada Lovelace"}, PageRefFromPath("/wiki/Ada_Lovelace"))
	require.Equal(t, PageRef{Title: "Cher"}, PageRefFromPath("Cher"))
}

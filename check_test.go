/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestRunCheck(t *testing.T) {
	color.NoColor = true

	cfg := testConfig(t)

	src := newFakeEncyclopedia()
	src.add(1, "Katalin Karikó", "Katalin Karikó is a biochemist. She pioneered mRNA therapeutics.")

	l, err := newLookupsWithSource(cfg, src)
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	err = runCheck(cmd, l.pipeline, []string{"Marie Curie", "katalin kariko", "marie curie", "Rover"})
	require.EqualError(t, err, "2 of 4 names rejected")

	require.Equal(t, ""+
		"ok  Marie Curie [local] Marie Curie\n"+
		"ok  katalin kariko [external] Katalin Karikó\n"+
		"no  marie curie [dedup] duplicate\n"+
		"no  Rover [mononym-gate] name rejected\n",
		out.String())
}

func TestRunCheckAllAccepted(t *testing.T) {
	color.NoColor = true

	cfg := testConfig(t)
	l, err := newLookupsWithSource(cfg, newFakeEncyclopedia())
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	require.NoError(t, runCheck(cmd, l.pipeline, []string{"Jane Austen"}))
	require.Contains(t, out.String(), "ok  Jane Austen [local]")
}

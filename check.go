/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Seednode/nameher/names"
)

var (
	acceptedColor = color.New(color.FgGreen, color.Bold)
	rejectedColor = color.New(color.FgRed, color.Bold)
	detailColor   = color.New(color.FgCyan)
)

func newCheckCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check name...",
		Short: "Classify names from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateLookup(); err != nil {
				return err
			}

			l, err := newLookups(cfg)
			if err != nil {
				return err
			}

			return runCheck(cmd, l.pipeline, args)
		},
	}
}

// runCheck classifies each name in turn, skipping repeats of names already
// accepted in the same run.
func runCheck(cmd *cobra.Command, p *names.Pipeline, args []string) error {
	out := cmd.OutOrStdout()
	accepted := names.NewAcceptedSet()

	var rejected int

	for _, raw := range args {
		if names.IsDuplicate(raw, accepted) {
			printVerdict(out, raw, names.Result{Outcome: names.Rejected, Stage: "dedup"}, "duplicate")
			rejected++

			continue
		}

		res := p.Classify(cmd.Context(), raw)

		detail := res.Match
		if res.Outcome == names.Accepted {
			accepted.Add(names.Normalize(raw))
		} else {
			rejected++
			if res.Reason != nil {
				detail = res.Reason.Error()
			}
		}

		printVerdict(out, raw, res, detail)
	}

	if rejected > 0 {
		return fmt.Errorf("%d of %d names rejected", rejected, len(args))
	}

	return nil
}

func printVerdict(w io.Writer, raw string, res names.Result, detail string) {
	mark := acceptedColor.Sprint("ok")
	if res.Outcome != names.Accepted {
		mark = rejectedColor.Sprint("no")
	}

	if detail == "" {
		fmt.Fprintf(w, "%s  %s [%s]\n", mark, raw, res.Stage)
		return
	}

	fmt.Fprintf(w, "%s  %s [%s] %s\n", mark, raw, res.Stage, detailColor.Sprint(detail))
}

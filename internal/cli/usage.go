// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/codebuddy/internal/telemetry"
)

func newUsageCmd(rt Runtime, flags *globalFlags) *cobra.Command {
	var (
		since  time.Duration
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Summarize token usage recorded in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := newApp(rt, flags, nil, false)
			defer shutdown(cmd, a)

			ledger, err := a.Ledger()
			if err != nil {
				return err
			}

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			sum, err := ledger.Summary(cmd.Context(), from)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only count requests in this window (e.g. 24h); default all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func printSummary(w io.Writer, s telemetry.Summary) {
	fmt.Fprintln(w, TitleStyle.Render("Token usage"))
	period := "all time"
	if !s.Since.IsZero() {
		period = "since " + s.Since.Format(time.RFC3339)
	}
	row := func(label string, value interface{}) {
		fmt.Fprintf(w, "%s%s\n", LabelStyle.Render(label), ValueStyle.Render(fmt.Sprint(value)))
	}
	row("Period", period)
	row("Requests", s.Requests)
	row("Sessions", s.Sessions)
	row("Prompt tokens", s.PromptTokens)
	row("Completion tokens", s.CompletionTokens)
	row("Total tokens", s.TotalTokens)
	row("Avg latency", s.AvgDuration.Round(time.Millisecond))

	if len(s.ByDeployment) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("By deployment"))
	for _, d := range s.ByDeployment {
		row(d.Deployment, fmt.Sprintf("%d tokens / %d requests", d.TotalTokens, d.Requests))
	}
}

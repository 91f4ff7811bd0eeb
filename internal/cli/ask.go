// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/codebuddy/internal/panel"
)

// askResult is the --json output of a one-shot question.
type askResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Tokens   int64  `json:"tokens"`
	Error    string `json:"error,omitempty"`
}

// oneShotFlags are shared by ask and the prompt-prefix commands.
type oneShotFlags struct {
	selectionFlags
	json bool
}

func (f *oneShotFlags) register(cmd *cobra.Command) {
	f.selectionFlags.register(cmd)
	cmd.Flags().BoolVar(&f.json, "json", false, "print the answer as JSON")
}

func newAskCmd(rt Runtime, flags *globalFlags) *cobra.Command {
	f := &oneShotFlags{}
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question about the selected code",
		Example: "  codebuddy ask \"why is this slow\" --file main.go --lines 40-80\n" +
			"  git diff | codebuddy ask \"review this change\"",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return runOneShot(cmd, rt, flags, f, question, func(ctx context.Context, c *panel.Controller) error {
				return c.RunChat(ctx, question)
			})
		},
	}
	f.register(cmd)
	return cmd
}

// prefixCommands maps subcommand names to editor command ids.
var prefixCommands = []struct {
	use, id, short string
}{
	{"explain", "explain", "Explain the selected code"},
	{"refactor", "refactor", "Suggest a refactoring of the selected code"},
	{"find-problems", "findProblems", "Look for problems in the selected code"},
	{"documentation", "documentation", "Write documentation for the selected code"},
	{"write-tests", "writetests", "Write tests for the selected code"},
}

func newPrefixCmds(rt Runtime, flags *globalFlags) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(prefixCommands))
	for _, pc := range prefixCommands {
		f := &oneShotFlags{}
		id := pc.id
		cmd := &cobra.Command{
			Use:   pc.use,
			Short: pc.short,
			Long:  pc.short + ".\nThe question is the prompt prefix configured under [prompt_prefix].",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOneShot(cmd, rt, flags, f, id, func(ctx context.Context, c *panel.Controller) error {
					return c.RunCommand(ctx, id)
				})
			},
		}
		f.register(cmd)
		cmds = append(cmds, cmd)
	}
	return cmds
}

// =============================================================================
// ONE-SHOT EXECUTION
// =============================================================================

// runOneShot builds the panel, runs one request and prints the final answer.
// A failed request still prints its rendered error and exits non-zero.
func runOneShot(cmd *cobra.Command, rt Runtime, flags *globalFlags, f *oneShotFlags, question string,
	run func(context.Context, *panel.Controller) error) error {
	ed, err := f.editor(cmd, true)
	if err != nil {
		return err
	}

	a := newApp(rt, flags, ed, false)
	defer shutdown(cmd, a)

	ctrl, err := a.Controller()
	if err != nil {
		return err
	}

	// Drop the startup notices; only the answer is printed.
	drain(ctrl.Outbox())

	runErr := run(cmd.Context(), ctrl)
	t := collect(drain(ctrl.Outbox()))

	out := cmd.OutOrStdout()
	if f.json {
		res := askResult{Question: question, Tokens: t.Tokens}
		if runErr != nil {
			res.Error = runErr.Error()
		} else {
			res.Answer = t.Answer
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		return runErr
	}

	if runErr != nil {
		return runErr
	}
	fmt.Fprintln(out, strings.TrimRight(renderMarkdown(out, t.Answer), "\n"))
	if t.Counted {
		fmt.Fprintln(cmd.ErrOrStderr(), MutedStyle.Render(fmt.Sprintf("tokens: %d", t.Tokens)))
	}
	return nil
}

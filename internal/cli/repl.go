// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/codebuddy/internal/config"
	"github.com/jeranaias/codebuddy/internal/panel"
)

// historyFileName is the REPL history file inside the config directory.
const historyFileName = "repl_history"

func newREPLCmd(rt Runtime, flags *globalFlags) *cobra.Command {
	sel := &selectionFlags{}
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Line-oriented panel",
		Long: "Ask questions line by line. Slash commands run prompt prefixes\n" +
			"(/explain, /refactor, ...); /clear, /reconnect and /quit control the panel.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ed, err := sel.editor(cmd, false)
			if err != nil {
				return err
			}
			a := newApp(rt, flags, ed, false)
			defer shutdown(cmd, a)

			ctrl, err := a.Controller()
			if err != nil {
				return err
			}
			if err := a.WatchConfig(cmd.Context()); err != nil {
				if log, lerr := a.Logger(); lerr == nil {
					log.WithError(err).Warn("config reload disabled")
				}
			}
			return runREPL(cmd, ctrl)
		},
	}
	sel.register(cmd)
	return cmd
}

// =============================================================================
// REPL LOOP
// =============================================================================

// runREPL reads lines until EOF, Ctrl+C or /quit.
func runREPL(cmd *cobra.Command, ctrl *panel.Controller) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	historyPath := replHistoryPath()
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
		defer saveHistory(line, historyPath)
	}

	printMessages(out, errOut, drain(ctrl.Outbox()), "")
	fmt.Fprintln(errOut, MutedStyle.Render("Type a question, /help for commands, /quit to exit."))

	for {
		input, err := line.Prompt("codebuddy> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		quit := replStep(cmd.Context(), ctrl, input, errOut)
		printMessages(out, errOut, drain(ctrl.Outbox()), input)
		if quit {
			return nil
		}
	}
}

// replStep runs one line and reports whether the REPL should exit.
// Chat errors are already rendered by the panel, so they are not repeated.
func replStep(ctx context.Context, ctrl *panel.Controller, input string, errOut io.Writer) bool {
	if !strings.HasPrefix(input, "/") {
		_ = ctrl.RunChat(ctx, input)
		return false
	}

	name := strings.TrimPrefix(strings.Fields(input)[0], "/")
	switch name {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(errOut, TitleStyle.Render("Commands"))
		for _, c := range config.Commands() {
			fmt.Fprintln(errOut, "  /"+c)
		}
		fmt.Fprintln(errOut, "  /clear  /reconnect  /quit")
	case "clear":
		_ = ctrl.Handle(ctx, panel.InboundMessage{Type: panel.TypeClear})
	case "reconnect":
		_ = ctrl.Reconnect(ctx)
	default:
		_ = ctrl.RunCommand(ctx, name)
	}
	return false
}

func completeCommand(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, c := range append(config.Commands(), "clear", "reconnect", "help", "quit") {
		if strings.HasPrefix("/"+c, line) {
			out = append(out, "/"+c)
		}
	}
	return out
}

func replHistoryPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, historyFileName)
}

func saveHistory(line *liner.State, path string) {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/codebuddy/internal/ui/chat"
	"github.com/jeranaias/codebuddy/internal/ui/styles"
)

func newTUICmd(rt Runtime, flags *globalFlags) *cobra.Command {
	sel := &selectionFlags{}
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal panel (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, rt, flags, sel)
		},
	}
	sel.register(cmd)
	return cmd
}

// runTUI runs the bubbletea panel until the user quits.
func runTUI(cmd *cobra.Command, rt Runtime, flags *globalFlags, sel *selectionFlags) error {
	if !IsTTY() || !IsStdoutTTY() {
		return errors.New("the panel needs an interactive terminal; use 'codebuddy ask' or 'codebuddy repl'")
	}

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

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := a.WatchConfig(ctx); err != nil {
		if log, lerr := a.Logger(); lerr == nil {
			log.WithError(err).Warn("config reload disabled")
		}
	}

	p := tea.NewProgram(
		chat.New(ctx, ctrl, styles.NewTheme(), rt.Version),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run panel: %w", err)
	}
	return nil
}

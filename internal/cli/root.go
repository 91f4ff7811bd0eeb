// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/codebuddy/internal/app"
	"github.com/jeranaias/codebuddy/internal/editor"
)

// Runtime carries build metadata and test overrides into the command tree.
type Runtime struct {
	Version string
	Commit  string
	Date    string

	// Overrides seeds the app options of every command (tests inject a
	// connector and logger here).
	Overrides app.Options
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
}

// NewRootCmd builds the codebuddy command tree.
func NewRootCmd(rt Runtime) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "codebuddy",
		Short: "Azure OpenAI code assistant panel",
		Long: "codebuddy answers questions about selected code using an Azure OpenAI\n" +
			"deployment whose connection details live in Azure Key Vault.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       rt.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, rt, flags, &selectionFlags{})
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default ~/.codebuddy/config.toml)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newTUICmd(rt, flags),
		newREPLCmd(rt, flags),
		newServeCmd(rt, flags),
		newAskCmd(rt, flags),
		newConfigCmd(rt, flags),
		newUsageCmd(rt, flags),
		newVersionCmd(rt),
	)
	for _, c := range newPrefixCmds(rt, flags) {
		cmd.AddCommand(c)
	}

	return cmd
}

// Execute runs cmd and returns the process exit code.
func Execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error:"), err)
		return 1
	}
	return 0
}

// newApp assembles the application for one command invocation.
func newApp(rt Runtime, flags *globalFlags, ed editor.Editor, bridge bool) *app.App {
	opts := rt.Overrides
	if flags.configPath != "" {
		opts.ConfigPath = flags.configPath
	}
	opts.Verbose = opts.Verbose || flags.verbose
	opts.Version = rt.Version
	if ed != nil {
		opts.Editor = ed
	}
	opts.Bridge = bridge
	return app.New(opts)
}

// shutdown stops the app, reporting failures to stderr.
func shutdown(cmd *cobra.Command, a *app.App) {
	if err := a.Shutdown(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), MutedStyle.Render(fmt.Sprintf("shutdown: %v", err)))
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(rt Runtime, flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the panel to an IDE webview over a websocket",
		Long: "Serve exposes the panel protocol on ws://<addr>/panel and a health\n" +
			"check on /health. The IDE extension forwards selections and prompts\n" +
			"and receives rendered answers.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := newApp(rt, flags, nil, true)
			defer shutdown(cmd, a)

			if addr != "" {
				cfg, err := a.Config()
				if err != nil {
					return err
				}
				cfg.Bridge.Addr = addr
			}

			srv, err := a.Bridge()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.WatchConfig(ctx); err != nil {
				if log, lerr := a.Logger(); lerr == nil {
					log.WithError(err).Warn("config reload disabled")
				}
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s listening on %s\n",
				SuccessStyle.Render("[OK]"), ValueStyle.Render(srv.Addr()))
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:7345)")
	return cmd
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/codebuddy/internal/app"
	"github.com/jeranaias/codebuddy/internal/config"
	"github.com/jeranaias/codebuddy/internal/util"
)

func newConfigCmd(rt Runtime, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := app.ConfigPath(flags.configPath)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := app.LoadConfig(flags.configPath)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
				return nil
			},
		},
		&cobra.Command{
			Use:       "get <key>",
			Short:     "Print one configuration value",
			Args:      cobra.ExactArgs(1),
			ValidArgs: config.GetAllKeys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := app.LoadConfig(flags.configPath)
				if err != nil {
					return err
				}
				v, err := cfg.Get(args[0])
				if err != nil {
					return fmt.Errorf("%w (keys: %s)", err, strings.Join(config.GetAllKeys(), ", "))
				}
				fmt.Fprintln(cmd.OutOrStdout(), displayValue(args[0], v))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set one configuration value and save",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return configSet(cmd, flags, args[0], args[1])
			},
		},
		newConfigInitCmd(flags),
	)
	return cmd
}

func newConfigInitCmd(flags *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.ConfigPath(flags.configPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := saveConfig(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", SuccessStyle.Render("[OK]"), path)
			fmt.Fprintln(cmd.OutOrStdout(), MutedStyle.Render("Set azure.keyvault_name before connecting."))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// configSet applies key=value to the file config, validates and saves it.
func configSet(cmd *cobra.Command, flags *globalFlags, key, value string) error {
	path, err := app.ConfigPath(flags.configPath)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		// Env overrides must not leak into the saved file.
		if cfg, err = config.ReadFile(path); err != nil {
			return err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := saveConfig(cfg, path); err != nil {
		return err
	}

	v, _ := cfg.Get(key)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %v\n", SuccessStyle.Render("[OK]"), key, displayValue(key, v))
	return nil
}

func saveConfig(cfg *config.Config, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

// displayValue masks secrets before printing.
func displayValue(key string, v interface{}) interface{} {
	if strings.HasSuffix(strings.ToLower(key), "token") {
		if s, ok := v.(string); ok {
			return util.RedactSecret(s)
		}
	}
	return v
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for codebuddy.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - Settings: Immutable snapshot consumed by the panel and connector
//   - CloudVariant: Azure public or US Government cloud
//   - Watcher: Reloads the file on change and publishes new Settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CODEBUDDY_*)
//   - ~/.codebuddy/config.toml
//   - ~/.codebuddy/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Derive the snapshot used by a panel:
//
//	settings := cfg.Settings()
//	vaultURL, err := settings.VaultURL()
package config

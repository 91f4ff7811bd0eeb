// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the codebuddy command tree.
//
// Every command assembles the application through package app and drives the
// panel controller: the tui command through the bubbletea panel, repl through a
// liner prompt, serve through the websocket bridge, and ask plus the
// prompt-prefix commands as one-shot requests.
//
// # Key Types
//
//   - Runtime: Build metadata and app option overrides
//
// # Usage
//
//	os.Exit(cli.Execute(cli.NewRootCmd(cli.Runtime{Version: version})))
package cli

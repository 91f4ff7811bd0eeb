// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app assembles codebuddy's services in a samber/do container.
//
// Nothing is a process-wide singleton: the config, logger, usage ledger,
// connector, editor, bridge and panel controller are providers resolved on
// demand and shut down together.
//
// # Key Types
//
//   - App: The container and typed accessors
//   - Options: Front end selection and test overrides
//
// # Usage
//
//	a := app.New(app.Options{ConfigPath: path, Version: version})
//	defer a.Shutdown()
//	ctrl, err := a.Controller()
package app

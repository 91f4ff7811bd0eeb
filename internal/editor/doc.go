// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package editor abstracts the editor the panel is attached to: where the
// current selection comes from and where a clicked code fragment goes.
//
// # Key Types
//
//   - Editor: Selection source and insertion target
//   - Static: Selection read from a file, insertion into the system clipboard
//   - Shared: Selection pushed by a remote IDE, insertion delegated to a callback
//
// # Usage
//
//	ed, err := editor.NewStatic("main.go", "10-24")
//	selection, ok := ed.Selection()
package editor

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable panel widgets.
//
// # Key Types
//
//   - CodeBlock: A fenced fragment of an answer, rendered with chroma
//
// # Usage
//
//	for _, block := range components.ExtractCodeBlocks(answer) {
//	    fmt.Println(block.Render(theme.CodeIdle, 80))
//	}
package components

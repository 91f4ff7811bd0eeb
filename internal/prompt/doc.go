// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt builds chat exchanges from user input and prepares model
// replies for markdown rendering.
//
// # Key Functions
//
//   - Compose: system, user and placeholder assistant messages
//   - EnsureCodeBlocks: closes an unterminated code fence and appends a separator
//   - ErrorBlock: the marked block shown in place of a reply on failure
//
// # Usage
//
//	messages := prompt.Compose(prompt.SystemPrompt, "Explain this", selection, true)
//	answer, err := session.Ask(ctx, messages)
//	display := prompt.EnsureCodeBlocks(answer)
package prompt

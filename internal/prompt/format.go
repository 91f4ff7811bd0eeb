// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import "strings"

// Separator is appended after every displayed reply.
const Separator = "\n\n---\n"

// ErrorMarker prefixes every rendered error message.
const ErrorMarker = "[ERROR] "

// EnsureCodeBlocks closes an unterminated code fence and appends Separator.
// The fence count of the result is always even.
func EnsureCodeBlocks(text string) string {
	if CountFences(text)%2 != 0 {
		text += "\n" + Fence
	}
	return text + Separator
}

// CountFences returns the number of non-overlapping fence markers in text.
func CountFences(text string) int {
	return strings.Count(text, Fence)
}

// ErrorBlock renders an error message as a marked block for the answer pane.
func ErrorBlock(msg string) string {
	return Separator + ErrorMarker + msg
}

// Notice renders an informational line for the answer pane.
func Notice(msg string) string {
	return Separator + "codebuddy: " + msg
}

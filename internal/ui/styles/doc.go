// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and lipgloss styles of the codebuddy panel.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Key Types

  - Theme: Header, status bar, state badges and code block frames

# Usage

	theme := styles.NewTheme()
	fmt.Println(theme.BadgeIdle.Render("idle"))
*/
package styles

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles of the panel.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER AND STATUS BAR
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style

	// ==========================================================================
	// STATE BADGES
	// ==========================================================================

	BadgeIdle    lipgloss.Style
	BadgeBusy    lipgloss.Style
	BadgeError   lipgloss.Style
	BadgeOffline lipgloss.Style

	// ==========================================================================
	// CONTENT
	// ==========================================================================

	Prompt       lipgloss.Style
	Error        lipgloss.Style
	Muted        lipgloss.Style
	CodeSelected lipgloss.Style
	CodeIdle     lipgloss.Style
}

// NewTheme detects the terminal and builds the panel styles.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextPrimary).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.StatusValue = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	badge := lipgloss.NewStyle().
		Foreground(TextInverse).
		Padding(0, 1).
		Bold(true)
	t.BadgeIdle = badge.Background(Emerald)
	t.BadgeBusy = badge.Background(Amber)
	t.BadgeError = badge.Background(Rose)
	t.BadgeOffline = badge.Background(OverlayDim)

	t.Prompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.Error = lipgloss.NewStyle().Foreground(Rose)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.CodeSelected = lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(Purple)
	t.CodeIdle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)
	return t
}

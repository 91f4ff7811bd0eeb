// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/codebuddy/internal/panel"
	"github.com/jeranaias/codebuddy/internal/prompt"
	"github.com/jeranaias/codebuddy/internal/util"
)

// View renders the panel.
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderStatus(),
		m.input.View(),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)
}

// =============================================================================
// ANSWER PANE
// =============================================================================

// refresh re-renders the answer pane content.
func (m *Model) refresh() {
	if m.selected >= 0 {
		m.viewport.SetContent(m.renderPicker())
		return
	}
	m.viewport.SetContent(m.renderAnswer())
}

func (m *Model) renderAnswer() string {
	if m.answer == "" {
		return ""
	}
	if strings.HasPrefix(m.answer, prompt.Separator+prompt.ErrorMarker) {
		return m.theme.Error.Width(m.width).Render(strings.TrimSpace(m.answer))
	}
	if m.renderer == nil {
		return m.answer
	}
	out, err := m.renderer.Render(m.answer)
	if err != nil {
		return m.answer
	}
	return out
}

// renderPicker lists the code blocks with the selected one highlighted.
func (m *Model) renderPicker() string {
	var b strings.Builder
	header := fmt.Sprintf("code block %d of %d, enter to paste, esc to go back", m.selected+1, len(m.blocks))
	if first := util.FirstLine(m.blocks[m.selected].Code); first != "" {
		header += ": " + first
	}
	fmt.Fprintf(&b, "%s\n\n", m.theme.Muted.Render(util.TruncateWidth(header, m.width-2)))

	for i, block := range m.blocks {
		frame := m.theme.CodeIdle
		if i == m.selected {
			frame = m.theme.CodeSelected
		}
		b.WriteString(block.Render(frame, m.width-2))
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// HEADER AND STATUS BAR
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("codebuddy")
	if m.version != "" {
		title += m.theme.Muted.Render(" " + m.version)
	}
	return m.theme.Header.Width(m.width).Render(title)
}

func (m Model) renderStatus() string {
	state := m.ctrl.State()
	var badge string
	switch state {
	case panel.StateAwaitingConnection, panel.StateAwaitingCompletion:
		badge = m.theme.BadgeBusy.Render(m.spinner.View() + " " + state.String())
	case panel.StateError:
		badge = m.theme.BadgeError.Render(state.String())
	default:
		badge = m.theme.BadgeIdle.Render(state.String())
	}

	tokens := m.theme.StatusKey.Render("tokens ") + m.theme.StatusValue.Render(fmt.Sprint(m.tokens))
	line := badge + "  " + tokens
	if len(m.blocks) > 0 {
		line += "  " + m.theme.StatusKey.Render(fmt.Sprintf("%d code blocks", len(m.blocks)))
	}
	return m.theme.StatusBar.Width(m.width).MaxHeight(1).Render(line)
}

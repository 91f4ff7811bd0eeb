// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/codebuddy/internal/panel"
	"github.com/jeranaias/codebuddy/internal/ui/components"
)

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case OutboundMsg:
		m.apply(msg.Message)
		return m, waitForOutbound(m.ctrl.Outbox())

	case OutboxClosedMsg:
		m.closed = true
		return m, tea.Quit

	case HandledMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	// Typing leaves the code block picker.
	if m.selected >= 0 && m.input.Value() != before {
		m.selected = -1
		m.refresh()
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleKey processes panel shortcuts. handled is false when the key
// belongs to the text input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.NextBlock):
		m.pick(1)
		return nil, true

	case key.Matches(msg, m.keys.PrevBlock):
		m.pick(-1)
		return nil, true

	case key.Matches(msg, m.keys.Cancel):
		if m.selected >= 0 {
			m.selected = -1
			m.refresh()
		}
		return nil, true

	case key.Matches(msg, m.keys.Clear):
		return m.send(panel.InboundMessage{Type: panel.TypeClear}), true

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return nil, true

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return nil, true

	case key.Matches(msg, m.keys.Submit):
		if m.selected >= 0 && m.selected < len(m.blocks) {
			return m.send(panel.InboundMessage{Type: panel.TypeCodeSelected, Value: m.blocks[m.selected].Code}), true
		}
		return m.submit(), true
	}
	return nil, false
}

// submit sends the input as a prompt or a slash command.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	m.input.Reset()

	if !strings.HasPrefix(text, "/") {
		return m.send(panel.InboundMessage{Type: panel.TypePrompt, Value: text})
	}

	name := strings.TrimPrefix(strings.Fields(text)[0], "/")
	switch name {
	case "quit", "exit":
		return tea.Quit
	case "clear":
		return m.send(panel.InboundMessage{Type: panel.TypeClear})
	case "reconnect":
		ctx, ctrl := m.ctx, m.ctrl
		return func() tea.Msg {
			return HandledMsg{Type: "reconnect", Err: ctrl.Reconnect(ctx)}
		}
	default:
		return m.send(panel.InboundMessage{Type: panel.TypeCommand, Value: name})
	}
}

// send hands msg to the controller off the UI goroutine.
func (m *Model) send(msg panel.InboundMessage) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return HandledMsg{Type: msg.Type, Err: ctrl.Handle(ctx, msg)}
	}
}

// apply renders one controller update.
func (m *Model) apply(msg panel.OutboundMessage) {
	switch msg.Type {
	case panel.TypeAddResponse:
		m.answer = msg.Text()
		m.blocks = components.ExtractCodeBlocks(m.answer)
		m.selected = -1
		m.refresh()
		m.viewport.GotoTop()
	case panel.TypeClearResponse:
		m.answer = ""
		m.blocks = nil
		m.selected = -1
		m.refresh()
	case panel.TypeSetPrompt:
		m.input.SetValue(msg.Text())
		m.input.CursorEnd()
	case panel.TypeSetTokenCount:
		m.tokens = msg.Count()
	}
}

// pick moves the code block selection by delta, wrapping around.
func (m *Model) pick(delta int) {
	n := len(m.blocks)
	if n == 0 {
		return
	}
	if m.selected < 0 {
		if delta > 0 {
			m.selected = 0
		} else {
			m.selected = n - 1
		}
	} else {
		m.selected = ((m.selected+delta)%n + n) % n
	}
	m.refresh()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.Width = width - 4

	// header, status bar, input and help lines
	vpHeight := height - 4
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.renderer = newRenderer(width)
	m.ready = true
	m.refresh()
}

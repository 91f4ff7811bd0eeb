// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/codebuddy/internal/panel"
	"github.com/jeranaias/codebuddy/internal/ui/components"
	"github.com/jeranaias/codebuddy/internal/ui/styles"
)

// Controller is the panel controller driven by the terminal UI.
type Controller interface {
	Handle(ctx context.Context, msg panel.InboundMessage) error
	Outbox() <-chan panel.OutboundMessage
	State() panel.State
	Reconnect(ctx context.Context) error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the terminal panel: a prompt input, an
// answer pane and a code block picker.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	theme   *styles.Theme
	keys    KeyMap
	version string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	renderer *glamour.TermRenderer

	// answer is the latest addResponse markdown
	answer string
	blocks []components.CodeBlock
	// selected is the picked code block index, -1 when not picking
	selected int
	tokens   int64

	width  int
	height int
	ready  bool
	closed bool
}

// New creates the panel model for ctrl.
func New(ctx context.Context, ctrl Controller, theme *styles.Theme, version string) Model {
	if theme == nil {
		theme = styles.NewTheme()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = theme.Prompt
	ti.Placeholder = "Ask about the selection, or /explain /refactor /clear ..."
	ti.CharLimit = 8192
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Muted

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		theme:    theme,
		keys:     DefaultKeyMap(),
		version:  version,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		help:     help.New(),
		selected: -1,
		width:    80,
		height:   24,
	}
	m.renderer = newRenderer(m.width)
	return m
}

// Init starts the cursor, the spinner and the outbox subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForOutbound(m.ctrl.Outbox()),
	)
}

// Answer returns the raw markdown of the answer pane.
func (m Model) Answer() string { return m.answer }

// Tokens returns the last token count shown.
func (m Model) Tokens() int64 { return m.tokens }

// Blocks returns the code blocks of the current answer.
func (m Model) Blocks() []components.CodeBlock { return m.blocks }

// Selected returns the picked code block index, or -1.
func (m Model) Selected() int { return m.selected }

// newRenderer builds a markdown renderer wrapping at width. A nil renderer
// makes the pane fall back to plain text.
func newRenderer(width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return nil
	}
	return r
}

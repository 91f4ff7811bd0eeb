// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/codebuddy/internal/panel"
)

// =============================================================================
// CONTROLLER MESSAGES
// =============================================================================

// OutboundMsg carries one controller update into the Bubble Tea loop.
type OutboundMsg struct {
	Message panel.OutboundMessage
}

// OutboxClosedMsg signals that the controller shut down.
type OutboxClosedMsg struct{}

// HandledMsg reports that the controller finished an inbound event.
// Failures are already rendered by the controller.
type HandledMsg struct {
	Type string
	Err  error
}

// waitForOutbound returns a command that delivers the next outbox message.
func waitForOutbound(outbox <-chan panel.OutboundMessage) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-outbox
		if !ok {
			return OutboxClosedMsg{}
		}
		return OutboundMsg{Message: msg}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

import "errors"

// =============================================================================
// UI PROTOCOL
// =============================================================================

// Inbound message types, sent by the UI.
const (
	TypeCodeSelected     = "codeSelected"
	TypePrompt           = "prompt"
	TypeSelectionChanged = "selectionChanged"
	TypeCommand          = "command"
	TypeClear            = "clear"
)

// Outbound message types, sent to the UI.
const (
	TypeAddResponse   = "addResponse"
	TypeClearResponse = "clearResponse"
	TypeSetPrompt     = "setPrompt"
	TypeSetTokenCount = "setTokenCount"
	TypeInsertSnippet = "insertSnippet"
)

// ErrUnknownMessage is returned by Handle for an unrecognized message type.
var ErrUnknownMessage = errors.New("unknown panel message type")

// InboundMessage is an event from the UI.
type InboundMessage struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// OutboundMessage is an update for the UI. Value is a string for
// addResponse, setPrompt and insertSnippet, an int64 for setTokenCount and
// nil for clearResponse.
type OutboundMessage struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Text returns Value as a string, or "" when it is not one.
func (m OutboundMessage) Text() string {
	s, _ := m.Value.(string)
	return s
}

// Count returns Value as a token count, or 0 when it is not one.
func (m OutboundMessage) Count() int64 {
	switch v := m.Value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// AddResponse replaces the answer pane content.
func AddResponse(text string) OutboundMessage {
	return OutboundMessage{Type: TypeAddResponse, Value: text}
}

// ClearResponse clears the answer pane.
func ClearResponse() OutboundMessage {
	return OutboundMessage{Type: TypeClearResponse}
}

// SetPrompt sets the prompt input text.
func SetPrompt(text string) OutboundMessage {
	return OutboundMessage{Type: TypeSetPrompt, Value: text}
}

// SetTokenCount updates the session token counter.
func SetTokenCount(n int64) OutboundMessage {
	return OutboundMessage{Type: TypeSetTokenCount, Value: n}
}

// InsertSnippet asks a remote editor to insert code at its cursor.
func InsertSnippet(code string) OutboundMessage {
	return OutboundMessage{Type: TypeInsertSnippet, Value: code}
}

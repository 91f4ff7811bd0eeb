// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

// State is the chat state of a Controller.
type State int32

const (
	StateIdle State = iota
	StateAwaitingConnection
	StateAwaitingCompletion
	StateDisplaying
	StateError
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingConnection:
		return "awaiting-connection"
	case StateAwaitingCompletion:
		return "awaiting-completion"
	case StateDisplaying:
		return "displaying"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package panel implements the chat controller behind the assistant panel.
//
// The controller receives UI events, connects to Azure OpenAI on demand,
// composes prompts from the editor selection and publishes rendering updates
// on a bounded outbox. Any front end (terminal UI, WebSocket bridge, one-shot
// CLI) drives the same controller.
//
// # Key Types
//
//   - Controller: Chat state machine and outbox owner
//   - InboundMessage / OutboundMessage: The panel wire protocol
//   - State: Idle, awaiting connection, awaiting completion, displaying, error
//   - Connector: Produces sessions for a settings snapshot
//
// # Usage
//
//	ctrl := panel.NewController(settings, panel.CloudConnector(conn), panel.Options{
//	    Editor: ed,
//	    Usage:  ledger,
//	})
//	go func() {
//	    for msg := range ctrl.Outbox() {
//	        render(msg)
//	    }
//	}()
//	err := ctrl.Handle(ctx, panel.InboundMessage{Type: panel.TypePrompt, Value: "Explain this"})
package panel

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bridge exposes a panel controller to an IDE webview over a websocket.
//
// Endpoints:
//   - GET /panel  - websocket carrying {type, value} JSON messages
//   - GET /health - controller state and attachment status
//
// The webview pushes its editor selection with selectionChanged messages
// and receives insertSnippet messages when a clicked code block should be
// pasted at its cursor.
//
// # Key Types
//
//   - Server: HTTP server, websocket endpoint and remote editor
//   - HealthResponse: Body of GET /health
//
// # Usage
//
//	srv := bridge.NewServer(bridge.Options{Addr: cfg.Bridge.Addr, Token: cfg.Bridge.Token})
//	ctrl := panel.NewController(settings, connector, panel.Options{Editor: srv.Editor()})
//	srv.Bind(ctrl)
//	err := srv.ListenAndServe(ctx)
package bridge

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides a local token usage ledger for codebuddy.
//
// Every successful completion is recorded in a SQLite database so usage can
// be summarized across sessions. The ledger is independent of the per-session
// token counter shown in the panel.
//
// # Key Types
//
//   - Ledger: SQLite-backed usage store
//   - Record: One completion with token counts and duration
//   - Summary: Aggregated usage since a point in time
//
// # Usage
//
//	ledger, err := telemetry.Open(path)
//	defer ledger.Close()
//	ledger.Record(ctx, telemetry.Record{SessionID: id, Deployment: "gpt-4o", TotalTokens: 42})
//	summary, err := ledger.Summary(ctx, time.Now().AddDate(0, 0, -7))
//
// # Privacy
//
// Usage tracking is local-only and does not transmit any data.
// Prompt content is never stored - only token counts and timings.
package telemetry

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

// Schema creates the usage ledger tables.
const Schema = `
CREATE TABLE IF NOT EXISTS usage (
	id                TEXT PRIMARY KEY,
	session_id        TEXT NOT NULL,
	deployment        TEXT NOT NULL,
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens      INTEGER NOT NULL DEFAULT 0,
	duration_ms       INTEGER NOT NULL DEFAULT 0,
	created_at        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_created_at ON usage(created_at);
CREATE INDEX IF NOT EXISTS idx_usage_deployment ON usage(deployment);
`

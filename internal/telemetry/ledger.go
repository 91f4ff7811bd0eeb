// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrClosed is returned when the ledger has been closed.
var ErrClosed = errors.New("usage ledger is closed")

// =============================================================================
// LEDGER
// =============================================================================

// Record is one successful completion.
type Record struct {
	ID               string
	SessionID        string
	Deployment       string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Duration         time.Duration
	CreatedAt        time.Time
}

// Ledger persists token usage to a local SQLite database.
type Ledger struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	closed bool
}

// DefaultPath returns ~/.codebuddy/usage.db under dir, or under the user's
// home directory when dir is empty.
func DefaultPath(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".codebuddy")
	}
	return filepath.Join(dir, "usage.db"), nil
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Ledger{db: db, path: path}, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Record stores one completion. ID and CreatedAt are filled in when empty.
func (l *Ledger) Record(ctx context.Context, r Record) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO usage (id, session_id, deployment, prompt_tokens, completion_tokens, total_tokens, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Deployment, r.PromptTokens, r.CompletionTokens, r.TotalTokens,
		r.Duration.Milliseconds(), r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

// Shutdown closes the ledger when the application container shuts down.
func (l *Ledger) Shutdown() error {
	return l.Close()
}

// =============================================================================
// SUMMARY
// =============================================================================

// DeploymentUsage aggregates usage for one deployment.
type DeploymentUsage struct {
	Deployment  string
	Requests    int
	TotalTokens int
}

// Summary aggregates usage since a point in time.
type Summary struct {
	Since            time.Time
	Requests         int
	Sessions         int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	AvgDuration      time.Duration
	ByDeployment     []DeploymentUsage
}

// Summary aggregates all records created at or after since.
// A zero since covers the whole ledger.
func (l *Ledger) Summary(ctx context.Context, since time.Time) (Summary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return Summary{}, ErrClosed
	}

	var sinceMs int64
	if !since.IsZero() {
		sinceMs = since.UnixMilli()
	}

	s := Summary{Since: since}
	var avgMs sql.NullFloat64
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT session_id),
		        COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0),
		        COALESCE(SUM(total_tokens), 0), AVG(duration_ms)
		   FROM usage WHERE created_at >= ?`, sinceMs,
	).Scan(&s.Requests, &s.Sessions, &s.PromptTokens, &s.CompletionTokens, &s.TotalTokens, &avgMs)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize usage: %w", err)
	}
	if avgMs.Valid {
		s.AvgDuration = time.Duration(avgMs.Float64 * float64(time.Millisecond))
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT deployment, COUNT(*), COALESCE(SUM(total_tokens), 0)
		   FROM usage WHERE created_at >= ?
		  GROUP BY deployment ORDER BY SUM(total_tokens) DESC, deployment`, sinceMs)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize usage by deployment: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d DeploymentUsage
		if err := rows.Scan(&d.Deployment, &d.Requests, &d.TotalTokens); err != nil {
			return Summary{}, fmt.Errorf("scan deployment usage: %w", err)
		}
		s.ByDeployment = append(s.ByDeployment, d)
	}
	return s, rows.Err()
}

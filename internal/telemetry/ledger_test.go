// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedger_RecordAndSummary(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, Record{SessionID: "s1", Deployment: "gpt-4o", PromptTokens: 10, CompletionTokens: 32, TotalTokens: 42, Duration: 200 * time.Millisecond}))
	require.NoError(t, l.Record(ctx, Record{SessionID: "s1", Deployment: "gpt-4o", PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10, Duration: 400 * time.Millisecond}))
	require.NoError(t, l.Record(ctx, Record{SessionID: "s2", Deployment: "gpt-35", TotalTokens: 7, Duration: 300 * time.Millisecond}))

	s, err := l.Summary(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Requests)
	assert.Equal(t, 2, s.Sessions)
	assert.Equal(t, 15, s.PromptTokens)
	assert.Equal(t, 37, s.CompletionTokens)
	assert.Equal(t, 59, s.TotalTokens)
	assert.Equal(t, 300*time.Millisecond, s.AvgDuration)

	require.Len(t, s.ByDeployment, 2)
	assert.Equal(t, DeploymentUsage{Deployment: "gpt-4o", Requests: 2, TotalTokens: 52}, s.ByDeployment[0])
	assert.Equal(t, DeploymentUsage{Deployment: "gpt-35", Requests: 1, TotalTokens: 7}, s.ByDeployment[1])
}

func TestLedger_SummarySince(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, l.Record(ctx, Record{SessionID: "old", Deployment: "d", TotalTokens: 100, CreatedAt: old}))
	require.NoError(t, l.Record(ctx, Record{SessionID: "new", Deployment: "d", TotalTokens: 1}))

	s, err := l.Summary(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Requests)
	assert.Equal(t, 1, s.TotalTokens)
}

func TestLedger_EmptySummary(t *testing.T) {
	l := openTestLedger(t)

	s, err := l.Summary(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Zero(t, s.Requests)
	assert.Zero(t, s.AvgDuration)
	assert.Empty(t, s.ByDeployment)
}

func TestLedger_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")
	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Record(context.Background(), Record{SessionID: "s", Deployment: "d", TotalTokens: 3}))
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	s, err := l.Summary(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalTokens)
}

func TestLedger_Closed(t *testing.T) {
	l := openTestLedger(t)
	require.NoError(t, l.Shutdown())
	require.NoError(t, l.Close())

	assert.ErrorIs(t, l.Record(context.Background(), Record{}), ErrClosed)
	_, err := l.Summary(context.Background(), time.Time{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLedger_ConcurrentRecords(t *testing.T) {
	l := openTestLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Record(context.Background(), Record{SessionID: "s", Deployment: "d", TotalTokens: 1}))
		}()
	}
	wg.Wait()

	s, err := l.Summary(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 20, s.TotalTokens)
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath("/tmp/cb")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/cb", "usage.db"), p)
}

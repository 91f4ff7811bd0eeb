// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter replies with a fixed usage per call, failing when fail is set.
func scriptedCompleter(content string, usage int, fail error) CompleterFunc {
	return func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		if fail != nil {
			return openai.ChatCompletionResponse{}, fail
		}
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: content}}},
			Usage:   openai.Usage{PromptTokens: 2, CompletionTokens: usage - 2, TotalTokens: usage},
		}, nil
	}
}

func TestSession_TokenCountSumsSuccessfulAsks(t *testing.T) {
	usages := []int{42, 7, 100}
	call := 0
	completer := CompleterFunc(func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		u := usages[call]
		call++
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
			Usage:   openai.Usage{TotalTokens: u},
		}, nil
	})
	session := NewSession(testSecrets("https://x.openai.azure.com"), completer, SessionOptions{}, nil)

	for range usages {
		_, err := session.Ask(context.Background(), []ChatMessage{NewUserMessage("q")})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 149, session.TokenCount())
}

func TestSession_FailedAskLeavesCounter(t *testing.T) {
	fail := errors.New("boom")
	var mu sync.Mutex
	failing := false
	completer := CompleterFunc(func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return openai.ChatCompletionResponse{}, fail
		}
		return scriptedCompleter("ok", 10, nil)(ctx, req)
	})
	session := NewSession(testSecrets("https://x.openai.azure.com"), completer, SessionOptions{}, nil)

	_, err := session.Ask(context.Background(), []ChatMessage{NewUserMessage("q")})
	require.NoError(t, err)

	mu.Lock()
	failing = true
	mu.Unlock()

	_, err = session.Ask(context.Background(), []ChatMessage{NewUserMessage("q")})
	require.Error(t, err)
	assert.ErrorIs(t, err, fail)

	var ce *CompletionError
	assert.True(t, errors.As(err, &ce))
	assert.EqualValues(t, 10, session.TokenCount())
}

func TestSession_NoChoicesYieldsEmpty(t *testing.T) {
	completer := CompleterFunc(func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{Usage: openai.Usage{TotalTokens: 5}}, nil
	})
	session := NewSession(testSecrets("https://x.openai.azure.com"), completer, SessionOptions{}, nil)

	answer, err := session.Ask(context.Background(), []ChatMessage{NewUserMessage("q")})
	require.NoError(t, err)
	assert.Equal(t, "", answer)
	assert.EqualValues(t, 5, session.TokenCount())
}

func TestSession_ProbeDoesNotCount(t *testing.T) {
	var got openai.ChatCompletionRequest
	completer := CompleterFunc(func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		got = req
		return scriptedCompleter("Hello!", 9, nil)(ctx, req)
	})
	session := NewSession(testSecrets("https://x.openai.azure.com"), completer, SessionOptions{}, nil)

	require.NoError(t, session.Probe(context.Background()))
	assert.Zero(t, session.TokenCount())
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Say hello!", got.Messages[0].Content)
	assert.Equal(t, "gpt-4o.mini", got.Model)
}

func TestSession_Timeout(t *testing.T) {
	completer := CompleterFunc(func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		<-ctx.Done()
		return openai.ChatCompletionResponse{}, ctx.Err()
	})
	session := NewSession(testSecrets("https://x.openai.azure.com"), completer, SessionOptions{Timeout: 20 * time.Millisecond}, nil)

	_, err := session.Ask(context.Background(), []ChatMessage{NewUserMessage("q")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSession_CompleteReportsUsage(t *testing.T) {
	session := NewSession(testSecrets("https://x.openai.azure.com"), scriptedCompleter("fine", 12, nil), SessionOptions{}, nil)

	c, err := session.Complete(context.Background(), []ChatMessage{NewUserMessage("q")})
	require.NoError(t, err)
	assert.Equal(t, "fine", c.Content)
	assert.Equal(t, 2, c.PromptTokens)
	assert.Equal(t, 10, c.CompletionTokens)
	assert.Equal(t, 12, c.TotalTokens)
	assert.NotEmpty(t, session.ID())
	assert.Equal(t, "gpt-4o.mini", session.Deployment())
}

func TestSession_ConcurrentAsks(t *testing.T) {
	session := NewSession(testSecrets("https://x.openai.azure.com"), scriptedCompleter("ok", 3, nil), SessionOptions{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = session.Ask(context.Background(), []ChatMessage{NewUserMessage("q")})
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 150, session.TokenCount())
}

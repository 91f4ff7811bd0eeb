// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/codebuddy/internal/vault"
)

// =============================================================================
// SESSION
// =============================================================================

// SessionOptions are the generation parameters of a Session.
type SessionOptions struct {
	// MaxTokens is sent as max_tokens (0 = server default)
	MaxTokens int
	// Temperature is the sampling temperature in [0,1]
	Temperature float64
	// Timeout bounds each completion call (0 = no deadline)
	Timeout time.Duration
}

// Completion is the outcome of one successful completion call.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Duration         time.Duration
}

// Session is a live connection to one Azure OpenAI deployment.
//
// A Session is safe for concurrent use. Its token counter only grows and
// covers the completions made through Ask and Complete.
type Session struct {
	id        string
	secrets   vault.EndpointSecrets
	completer Completer
	opts      SessionOptions
	tokens    atomic.Int64
	log       logrus.FieldLogger
}

// NewSession wraps a completer. The session is not probed; Connector.Connect
// only hands out sessions whose smoke test succeeded.
func NewSession(secrets vault.EndpointSecrets, completer Completer, opts SessionOptions, log logrus.FieldLogger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		secrets:   secrets,
		completer: completer,
		opts:      opts,
		log: log.WithFields(logrus.Fields{
			"session":    id,
			"endpoint":   secrets.Endpoint,
			"deployment": secrets.Deployment,
		}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Endpoint returns the endpoint URL.
func (s *Session) Endpoint() string { return s.secrets.Endpoint }

// Deployment returns the deployment name.
func (s *Session) Deployment() string { return s.secrets.Deployment }

// TokenCount returns the total tokens reported by all successful completions.
func (s *Session) TokenCount() int64 {
	return s.tokens.Load()
}

// Ask sends the messages and returns the first choice's content, or "" when
// the response carries no choices. Failures are never retried.
func (s *Session) Ask(ctx context.Context, messages []ChatMessage) (string, error) {
	c, err := s.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	return c.Content, nil
}

// Complete is Ask with usage and timing details.
func (s *Session) Complete(ctx context.Context, messages []ChatMessage) (Completion, error) {
	c, err := s.send(ctx, messages)
	if err != nil {
		s.log.WithError(err).Warn("chat completion failed")
		return Completion{}, &CompletionError{Err: err}
	}
	s.tokens.Add(int64(c.TotalTokens))
	s.log.WithFields(logrus.Fields{
		"tokens":   c.TotalTokens,
		"duration": c.Duration.Round(time.Millisecond),
	}).Info("chat completion")
	return c, nil
}

// Probe runs the smoke test. It does not count toward TokenCount.
func (s *Session) Probe(ctx context.Context) error {
	c, err := s.send(ctx, []ChatMessage{NewUserMessage(smokeTestPrompt)})
	if err != nil {
		return err
	}
	s.log.WithField("reply", c.Content).Info("[Success] Test chat successful")
	return nil
}

func (s *Session) send(ctx context.Context, messages []ChatMessage) (Completion, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.completer.CreateChatCompletion(ctx, s.request(messages))
	if err != nil {
		return Completion{}, err
	}

	c := Completion{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Duration:         time.Since(start),
	}
	if len(resp.Choices) > 0 {
		c.Content = resp.Choices[0].Message.Content
	}
	return c, nil
}

func (s *Session) request(messages []ChatMessage) openai.ChatCompletionRequest {
	// temperature is omitempty; the smallest positive float32 stands in for 0.
	temperature := float32(s.opts.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	return openai.ChatCompletionRequest{
		Model:       s.secrets.Deployment,
		Messages:    toOpenAI(messages),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: temperature,
		Stop:        StopSequences,
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/codebuddy/internal/vault"
)

// smokeTestPrompt is sent once per connect to confirm the deployment answers.
const smokeTestPrompt = "Say hello!"

// StopSequences are sent verbatim with every completion request.
var StopSequences = []string{"\nUSER: ", "\nUSER", "\nASSISTANT"}

// NewHTTPClient returns the pooled client used for completion requests.
// It has no overall timeout; each call is bounded by its context.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        16,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// =============================================================================
// CHAT MESSAGES
// =============================================================================

// Chat roles.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// ChatMessage represents a single message in a chat exchange.
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

func toOpenAI(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// =============================================================================
// COMPLETION CLIENT
// =============================================================================

// Completer is the chat-completion call a Session depends on.
// *openai.Client satisfies it.
type Completer interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// CompleterFactory builds a completion client for an endpoint.
type CompleterFactory func(secrets vault.EndpointSecrets) (Completer, error)

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)

// CreateChatCompletion calls f.
func (f CompleterFunc) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return f(ctx, request)
}

// AzureCompleterFactory returns a CompleterFactory that sends requests through
// httpClient. A nil client uses go-openai's default.
func AzureCompleterFactory(httpClient *http.Client) CompleterFactory {
	return func(secrets vault.EndpointSecrets) (Completer, error) {
		if err := validateEndpoint(secrets.Endpoint); err != nil {
			return nil, err
		}
		if secrets.APIKey == "" {
			return nil, errors.New("API key is empty")
		}
		if secrets.Deployment == "" {
			return nil, errors.New("deployment name is empty")
		}

		cfg := openai.DefaultAzureConfig(secrets.APIKey, secrets.Endpoint)
		cfg.APIVersion = secrets.APIVersion
		deployment := secrets.Deployment
		// Deployment names are used as-is; the default mapper strips dots.
		cfg.AzureModelMapperFunc = func(string) string { return deployment }
		if httpClient != nil {
			cfg.HTTPClient = httpClient
		}
		return openai.NewClientWithConfig(cfg), nil
	}
}

// validateEndpoint checks that the endpoint is an absolute http(s) URL.
// SECURITY: Plain http is accepted only for loopback hosts.
func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint URL %q: missing host", endpoint)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host == "localhost" || host == "127.0.0.1" || host == "::1" {
			return nil
		}
		return fmt.Errorf("endpoint %q must use https", endpoint)
	default:
		return fmt.Errorf("invalid endpoint URL scheme %q", u.Scheme)
	}
}

// IsGovernmentEndpoint reports whether the endpoint lives in the US Government cloud.
func IsGovernmentEndpoint(endpoint string) bool {
	return strings.HasSuffix(endpoint, ".us") || strings.HasSuffix(endpoint, ".us/")
}

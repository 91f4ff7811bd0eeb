// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/codebuddy/internal/vault"
)

// azureRequest captures the parts of a chat completion request the tests check.
type azureRequest struct {
	Path        string
	APIVersion  string
	APIKey      string
	Model       string   `json:"model"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
	Stop        []string `json:"stop"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// newAzureServer returns an httptest server that answers like an Azure OpenAI deployment.
func newAzureServer(t *testing.T, content string, totalTokens int) (*httptest.Server, func() []azureRequest) {
	t.Helper()
	var mu sync.Mutex
	var seen []azureRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req azureRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		req.Path = r.URL.Path
		req.APIVersion = r.URL.Query().Get("api-version")
		req.APIKey = r.Header.Get("api-key")
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-test",
			"model": "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": totalTokens - 1, "total_tokens": totalTokens},
		})
	}))
	t.Cleanup(server.Close)

	return server, func() []azureRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]azureRequest(nil), seen...)
	}
}

func testSecrets(endpoint string) vault.EndpointSecrets {
	return vault.EndpointSecrets{
		Endpoint:   endpoint,
		APIKey:     "test-api-key-0123456789",
		Deployment: "gpt-4o.mini",
		APIVersion: "2024-06-01",
	}
}

func TestAzureCompleter_RequestShape(t *testing.T) {
	server, requests := newAzureServer(t, "It does X.", 42)

	completer, err := AzureCompleterFactory(server.Client())(testSecrets(server.URL + "/"))
	require.NoError(t, err)

	log, _ := test.NewNullLogger()
	session := NewSession(testSecrets(server.URL), completer, SessionOptions{MaxTokens: 500, Temperature: 0.5}, log)

	answer, err := session.Ask(context.Background(), []ChatMessage{
		NewSystemMessage("sys"),
		NewUserMessage("Explain this"),
		NewAssistantMessage("..."),
	})
	require.NoError(t, err)
	assert.Equal(t, "It does X.", answer)
	assert.EqualValues(t, 42, session.TokenCount())

	got := requests()
	require.Len(t, got, 1)
	req := got[0]
	assert.Equal(t, "/openai/deployments/gpt-4o.mini/chat/completions", req.Path)
	assert.Equal(t, "2024-06-01", req.APIVersion)
	assert.Equal(t, "test-api-key-0123456789", req.APIKey)
	assert.Equal(t, 500, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.5, *req.Temperature, 1e-6)
	assert.Equal(t, []string{"\nUSER: ", "\nUSER", "\nASSISTANT"}, req.Stop)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[2].Role)
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient()
	assert.Zero(t, client.Timeout, "deadlines come from the request context")

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.TLSClientConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), transport.TLSClientConfig.MinVersion)
	assert.NotNil(t, transport.Proxy)
	assert.NotSame(t, client, NewHTTPClient())
}

func TestAzureCompleter_PooledClient(t *testing.T) {
	server, requests := newAzureServer(t, "pooled", 5)

	completer, err := AzureCompleterFactory(NewHTTPClient())(testSecrets(server.URL))
	require.NoError(t, err)
	session := NewSession(testSecrets(server.URL), completer, SessionOptions{Timeout: 5 * time.Second}, nil)

	for i := 0; i < 2; i++ {
		answer, err := session.Ask(context.Background(), []ChatMessage{NewUserMessage("hi")})
		require.NoError(t, err)
		assert.Equal(t, "pooled", answer)
	}
	assert.Len(t, requests(), 2)
	assert.EqualValues(t, 10, session.TokenCount())
}

func TestAzureCompleter_ZeroTemperatureIsSent(t *testing.T) {
	server, requests := newAzureServer(t, "ok", 3)

	completer, err := AzureCompleterFactory(server.Client())(testSecrets(server.URL))
	require.NoError(t, err)
	session := NewSession(testSecrets(server.URL), completer, SessionOptions{Temperature: 0}, nil)

	_, err = session.Ask(context.Background(), []ChatMessage{NewUserMessage("hi")})
	require.NoError(t, err)

	req := requests()[0]
	require.NotNil(t, req.Temperature, "temperature 0 must still be sent")
	assert.InDelta(t, 0, *req.Temperature, 1e-6)
}

func TestAzureCompleter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"401","message":"Access denied due to invalid subscription key."}}`))
	}))
	defer server.Close()

	completer, err := AzureCompleterFactory(server.Client())(testSecrets(server.URL))
	require.NoError(t, err)
	session := NewSession(testSecrets(server.URL), completer, SessionOptions{Timeout: 5 * time.Second}, nil)

	_, err = session.Ask(context.Background(), []ChatMessage{NewUserMessage("hi")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.Contains(t, err.Error(), "could not get chat completions")
	assert.Contains(t, err.Error(), "invalid subscription key")
	assert.Zero(t, session.TokenCount())
}

func TestAzureCompleterFactory_Validation(t *testing.T) {
	factory := AzureCompleterFactory(nil)

	tests := []struct {
		name    string
		secrets vault.EndpointSecrets
		wantErr bool
	}{
		{"valid https", testSecrets("https://contoso.openai.azure.com/"), false},
		{"loopback http", testSecrets("http://127.0.0.1:8080"), false},
		{"remote http", testSecrets("http://contoso.openai.azure.com"), true},
		{"no host", testSecrets("contoso"), true},
		{"ftp scheme", testSecrets("ftp://contoso.openai.azure.com"), true},
		{"empty key", func() vault.EndpointSecrets {
			s := testSecrets("https://contoso.openai.azure.com")
			s.APIKey = ""
			return s
		}(), true},
		{"empty deployment", func() vault.EndpointSecrets {
			s := testSecrets("https://contoso.openai.azure.com")
			s.Deployment = ""
			return s
		}(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory(tt.secrets)
			if (err != nil) != tt.wantErr {
				t.Errorf("factory() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsGovernmentEndpoint(t *testing.T) {
	assert.True(t, IsGovernmentEndpoint("https://contoso.openai.azure.us"))
	assert.True(t, IsGovernmentEndpoint("https://contoso.openai.azure.us/"))
	assert.False(t, IsGovernmentEndpoint("https://contoso.openai.azure.com/"))
	assert.False(t, IsGovernmentEndpoint("https://contoso.us.example.com"))
}

func TestChatMessageConstructors(t *testing.T) {
	assert.Equal(t, ChatMessage{Role: "user", Content: "u"}, NewUserMessage("u"))
	assert.Equal(t, ChatMessage{Role: "assistant", Content: "a"}, NewAssistantMessage("a"))
	assert.Equal(t, ChatMessage{Role: "system", Content: "s"}, NewSystemMessage("s"))
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/codebuddy/internal/config"
	"github.com/jeranaias/codebuddy/internal/vault"
)

// fakeSource returns fixed secrets or an error.
type fakeSource struct {
	secrets vault.EndpointSecrets
	err     error
	names   config.SecretNames
}

func (f *fakeSource) FetchEndpointSecrets(ctx context.Context, names config.SecretNames) (vault.EndpointSecrets, error) {
	f.names = names
	if f.err != nil {
		return vault.EndpointSecrets{}, f.err
	}
	return f.secrets, nil
}

// tokenFunc adapts a function to azcore.TokenCredential.
type tokenFunc func(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error)

func (f tokenFunc) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return f(ctx, opts)
}

type connectorFixture struct {
	connector     *Connector
	source        *fakeSource
	vaultURL      string
	scope         string
	completerMade atomic.Int32
}

func newConnectorFixture(t *testing.T, secrets vault.EndpointSecrets, completer Completer) *connectorFixture {
	t.Helper()
	f := &connectorFixture{source: &fakeSource{secrets: secrets}}

	cred := tokenFunc(func(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
		f.scope = opts.Scopes[0]
		return azcore.AccessToken{Token: "tok", ExpiresOn: time.Now().Add(time.Hour)}, nil
	})
	vaults := func(vaultURL string, timeout time.Duration) (SecretSource, error) {
		f.vaultURL = vaultURL
		return f.source, nil
	}
	completers := func(s vault.EndpointSecrets) (Completer, error) {
		f.completerMade.Add(1)
		return completer, nil
	}

	log, _ := test.NewNullLogger()
	f.connector = NewConnector(cred, vaults, completers, log)
	return f
}

func settings(cloud, vaultName string) config.Settings {
	cfg := config.Default()
	cfg.Azure.Cloud = cloud
	cfg.Azure.KeyVaultName = vaultName
	return cfg.Settings()
}

func TestConnector_ConnectPublic(t *testing.T) {
	f := newConnectorFixture(t, testSecrets("https://contoso.openai.azure.com/"), scriptedCompleter("Hello!", 9, nil))

	session, err := f.connector.Connect(context.Background(), settings("AzureCloud", "kv1"))
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, "https://kv1.vault.azure.net", f.vaultURL)
	assert.Equal(t, "https://graph.microsoft.com/.default", f.scope)
	assert.Equal(t, "aoaiEndpoint", f.source.names.Endpoint)
	assert.Equal(t, "gpt-4o.mini", session.Deployment())
	assert.Zero(t, session.TokenCount())
}

func TestConnector_GovernmentEndpointMismatch(t *testing.T) {
	f := newConnectorFixture(t, testSecrets("https://contoso.openai.azure.com/"), scriptedCompleter("Hello!", 9, nil))

	session, err := f.connector.Connect(context.Background(), settings("AzureUSGovernment", "kvgov"))
	require.Error(t, err)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "https://contoso.openai.azure.com/")
	assert.Zero(t, f.completerMade.Load(), "no completion client may be constructed")
	assert.Equal(t, "https://kvgov.vault.usgovcloudapi.net", f.vaultURL)
	assert.Equal(t, "https://graph.microsoft.us/.default", f.scope)
}

func TestConnector_GovernmentEndpointAccepted(t *testing.T) {
	for _, endpoint := range []string{"https://contoso.openai.azure.us", "https://contoso.openai.azure.us/"} {
		f := newConnectorFixture(t, testSecrets(endpoint), scriptedCompleter("Hello!", 9, nil))

		session, err := f.connector.Connect(context.Background(), settings("AzureUSGovernment", "kvgov"))
		require.NoError(t, err, endpoint)
		assert.Equal(t, endpoint, session.Endpoint())
	}
}

func TestConnector_MissingSettings(t *testing.T) {
	f := newConnectorFixture(t, testSecrets("https://contoso.openai.azure.com/"), scriptedCompleter("Hello!", 9, nil))

	_, err := f.connector.Connect(context.Background(), settings("AzureCloud", ""))
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, config.ErrMissingSettings)

	_, err = f.connector.Connect(context.Background(), settings("AzureChina", "kv"))
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, config.ErrInvalidCloud)
	assert.Empty(t, f.vaultURL, "vault must not be contacted")
}

func TestConnector_SecretFailure(t *testing.T) {
	f := newConnectorFixture(t, vault.EndpointSecrets{}, scriptedCompleter("Hello!", 9, nil))
	f.source.err = &vault.SecretError{Name: "aoaiKey", Vault: "https://kv1.vault.azure.net", Err: errors.New("not found")}

	_, err := f.connector.Connect(context.Background(), settings("AzureCloud", "kv1"))
	assert.ErrorIs(t, err, vault.ErrSecretRetrieval)
	assert.Zero(t, f.completerMade.Load())
}

func TestConnector_AuthenticationFailure(t *testing.T) {
	f := newConnectorFixture(t, testSecrets("https://contoso.openai.azure.com/"), scriptedCompleter("Hello!", 9, nil))
	f.connector.cred = tokenFunc(func(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
		return azcore.AccessToken{}, errors.New("Please run 'az login' to set up an account")
	})

	_, err := f.connector.Connect(context.Background(), settings("AzureCloud", "kv1"))
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.ErrorIs(t, err, vault.ErrAuthentication)
	assert.Empty(t, f.vaultURL)
}

func TestConnector_SmokeTestFailure(t *testing.T) {
	f := newConnectorFixture(t, testSecrets("https://contoso.openai.azure.com/"), scriptedCompleter("", 0, errors.New("DeploymentNotFound")))

	session, err := f.connector.Connect(context.Background(), settings("AzureCloud", "kv1"))
	require.Error(t, err)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrConnectivity)

	var ce *ConnectError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "https://contoso.openai.azure.com/", ce.Endpoint)
	assert.Equal(t, "gpt-4o.mini", ce.Deployment)
	assert.Contains(t, err.Error(), "DeploymentNotFound")
	assert.Contains(t, err.Error(), "gpt-4o.mini")
}

func TestConnector_SessionUsesSettings(t *testing.T) {
	var got openai.ChatCompletionRequest
	completer := CompleterFunc(func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		got = req
		return scriptedCompleter("ok", 4, nil)(ctx, req)
	})
	f := newConnectorFixture(t, testSecrets("https://contoso.openai.azure.com/"), completer)

	s := settings("AzureCloud", "kv1")
	s.MaxTokens = 1234
	s.Temperature = 0.25
	session, err := f.connector.Connect(context.Background(), s)
	require.NoError(t, err)

	_, err = session.Ask(context.Background(), []ChatMessage{NewUserMessage("q")})
	require.NoError(t, err)
	assert.Equal(t, 1234, got.MaxTokens)
	assert.InDelta(t, 0.25, got.Temperature, 1e-6)
}

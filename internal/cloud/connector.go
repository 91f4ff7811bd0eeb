// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/codebuddy/internal/config"
	"github.com/jeranaias/codebuddy/internal/vault"
)

// =============================================================================
// ENDPOINT CONNECTOR
// =============================================================================

// SecretSource fetches the endpoint secrets from a vault.
// *vault.KeyVault satisfies it.
type SecretSource interface {
	FetchEndpointSecrets(ctx context.Context, names config.SecretNames) (vault.EndpointSecrets, error)
}

// VaultFactory opens a SecretSource for a vault URL.
type VaultFactory func(vaultURL string, timeout time.Duration) (SecretSource, error)

// KeyVaultFactory returns a VaultFactory producing azsecrets-backed vaults.
func KeyVaultFactory(cred azcore.TokenCredential, log logrus.FieldLogger) VaultFactory {
	return func(vaultURL string, timeout time.Duration) (SecretSource, error) {
		return vault.NewKeyVault(vaultURL, cred, vault.Options{Timeout: timeout, Logger: log})
	}
}

// Connector assembles endpoint secrets into a verified Session.
type Connector struct {
	cred       azcore.TokenCredential
	vaults     VaultFactory
	completers CompleterFactory
	log        logrus.FieldLogger
}

// NewConnector creates a Connector. A nil cred skips the sign-in check.
func NewConnector(cred azcore.TokenCredential, vaults VaultFactory, completers CompleterFactory, log logrus.FieldLogger) *Connector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Connector{
		cred:       cred,
		vaults:     vaults,
		completers: completers,
		log:        log.WithField("component", "connector"),
	}
}

// Connect fetches the endpoint secrets for settings, builds a completion
// client and runs the smoke test. It returns either a ready Session or an
// error; no partially initialized session escapes.
func (c *Connector) Connect(ctx context.Context, settings config.Settings) (*Session, error) {
	if err := settings.Check(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	vaultURL, err := settings.VaultURL()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	scope, err := settings.GraphScope()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	log := c.log.WithField("vault", vaultURL)

	if c.cred != nil {
		if err := vault.Authenticate(ctx, c.cred, scope, settings.VaultTimeout); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
		}
	}

	source, err := c.vaults(vaultURL, settings.VaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	secrets, err := source.FetchEndpointSecrets(ctx, settings.Secrets)
	if err != nil {
		return nil, err
	}

	if settings.Cloud == config.CloudUSGovernment && !IsGovernmentEndpoint(secrets.Endpoint) {
		return nil, fmt.Errorf("%w: cloud is %s but endpoint %s is not a US Government endpoint (expected a .us suffix)",
			ErrConfiguration, settings.CloudName, secrets.Endpoint)
	}

	completer, err := c.completers(secrets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	session := NewSession(secrets, completer, SessionOptions{
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
		Timeout:     settings.CompletionTimeout,
	}, c.log)

	if err := session.Probe(ctx); err != nil {
		return nil, &ConnectError{Endpoint: secrets.Endpoint, Deployment: secrets.Deployment, Err: err}
	}

	log.WithFields(logrus.Fields{
		"endpoint":   secrets.Endpoint,
		"deployment": secrets.Deployment,
		"session":    session.ID(),
	}).Info("connected to AOAI")
	return session, nil
}

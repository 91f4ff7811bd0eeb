// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/codebuddy/internal/config"
)

// DefaultAPIVersion seeds the API version of an empty EndpointSecrets.
const DefaultAPIVersion = "2024-04-01-preview"

// =============================================================================
// CREDENTIAL
// =============================================================================

// NewCLICredential returns a credential backed by the signed-in Azure CLI account.
func NewCLICredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewAzureCLICredential(nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure CLI credential: %w", err)
	}
	return cred, nil
}

// Authenticate asks the credential for a token for scope. It fails when the
// user is not signed in to the Azure CLI. A zero timeout means no deadline.
func Authenticate(ctx context.Context, cred azcore.TokenCredential, scope string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if tok.Token == "" {
		return fmt.Errorf("%w: empty token for %s", ErrAuthentication, scope)
	}
	return nil
}

// =============================================================================
// KEY VAULT CLIENT
// =============================================================================

// SecretGetter is the subset of *azsecrets.Client used by KeyVault.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// Options configures a KeyVault.
type Options struct {
	// Timeout bounds each secret lookup (0 = no deadline)
	Timeout time.Duration
	// Logger receives lookup diagnostics; secret values are never logged
	Logger logrus.FieldLogger
	// Client overrides the azsecrets client options (transport, telemetry)
	Client *azsecrets.ClientOptions
}

// KeyVault reads secrets from one Azure Key Vault.
type KeyVault struct {
	url     string
	client  SecretGetter
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewKeyVault creates a KeyVault for vaultURL authenticated by cred.
// Automatic retries are disabled; every failure surfaces to the caller.
func NewKeyVault(vaultURL string, cred azcore.TokenCredential, opts Options) (*KeyVault, error) {
	clientOpts := &azsecrets.ClientOptions{}
	if opts.Client != nil {
		clone := *opts.Client
		clientOpts = &clone
	}
	if clientOpts.Retry.MaxRetries == 0 {
		clientOpts.Retry.MaxRetries = -1
	}

	client, err := azsecrets.NewClient(vaultURL, cred, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("create Key Vault client for %s: %w", vaultURL, err)
	}
	return NewKeyVaultWithClient(vaultURL, client, opts), nil
}

// NewKeyVaultWithClient creates a KeyVault over an existing secret client.
func NewKeyVaultWithClient(vaultURL string, client SecretGetter, opts Options) *KeyVault {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &KeyVault{
		url:     vaultURL,
		client:  client,
		timeout: opts.Timeout,
		log:     log.WithField("vault", vaultURL),
	}
}

// URL returns the vault URL.
func (kv *KeyVault) URL() string {
	return kv.url
}

// LoadSecret returns the latest value of the named secret.
// A missing or empty secret yields a *SecretError.
func (kv *KeyVault) LoadSecret(ctx context.Context, name string) (string, error) {
	if kv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, kv.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := kv.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		kv.log.WithField("secret", name).WithError(err).Debug("secret lookup failed")
		return "", &SecretError{Name: name, Vault: kv.url, Err: err}
	}
	if resp.Value == nil || *resp.Value == "" {
		return "", &SecretError{Name: name, Vault: kv.url, Err: errEmptySecret}
	}

	kv.log.WithFields(logrus.Fields{
		"secret":   name,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("secret loaded")
	return *resp.Value, nil
}

// =============================================================================
// ENDPOINT SECRETS
// =============================================================================

// EndpointSecrets holds everything needed to reach an Azure OpenAI deployment.
type EndpointSecrets struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

// NewEndpointSecrets returns the empty shape with the default API version.
func NewEndpointSecrets() EndpointSecrets {
	return EndpointSecrets{APIVersion: DefaultAPIVersion}
}

// String omits the API key.
func (s EndpointSecrets) String() string {
	return fmt.Sprintf("endpoint=%s deployment=%s api-version=%s", s.Endpoint, s.Deployment, s.APIVersion)
}

// FetchEndpointSecrets loads the four endpoint secrets concurrently.
// The first failure cancels the remaining lookups and is returned; a partial
// set is never returned.
func (kv *KeyVault) FetchEndpointSecrets(ctx context.Context, names config.SecretNames) (EndpointSecrets, error) {
	fetched := NewEndpointSecrets()

	g, gctx := errgroup.WithContext(ctx)
	lookups := []struct {
		name string
		dst  *string
	}{
		{names.Endpoint, &fetched.Endpoint},
		{names.Key, &fetched.APIKey},
		{names.Deployment, &fetched.Deployment},
		{names.APIVersion, &fetched.APIVersion},
	}
	for _, l := range lookups {
		g.Go(func() error {
			value, err := kv.LoadSecret(gctx, l.name)
			if err != nil {
				return err
			}
			*l.dst = value
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return EndpointSecrets{}, err
	}

	kv.log.WithFields(logrus.Fields{
		"endpoint":   fetched.Endpoint,
		"deployment": fetched.Deployment,
	}).Info("endpoint secrets loaded")
	return fetched, nil
}

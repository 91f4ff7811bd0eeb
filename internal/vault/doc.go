// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vault retrieves the Azure OpenAI connection secrets from Azure Key Vault.
//
// Authentication uses the signed-in Azure CLI account. The four endpoint
// secrets are fetched concurrently and the fetch fails as soon as any one of
// them is missing or empty.
//
// # Key Types
//
//   - KeyVault: Secret reader bound to one vault URL
//   - EndpointSecrets: Endpoint URL, API key, deployment and API version
//   - SecretError: Names the secret and vault of a failed lookup
//
// # Usage
//
//	cred, err := vault.NewCLICredential()
//	if err := vault.Authenticate(ctx, cred, scope, 30*time.Second); err != nil {
//	    return err
//	}
//	kv, err := vault.NewKeyVault(vaultURL, cred, vault.Options{Timeout: 30 * time.Second})
//	secrets, err := kv.FetchEndpointSecrets(ctx, settings.Secrets)
package vault

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides Azure OpenAI chat completion for codebuddy.
//
// A Connector turns the Key Vault secrets named by the settings into a
// Session that has passed a one-shot smoke test. Sessions send chat
// exchanges with fixed stop sequences and count the tokens they consume.
//
// # Key Types
//
//   - Connector: Authenticates, fetches secrets and verifies the endpoint
//   - Session: Live deployment connection with Ask and TokenCount
//   - Completer: Chat-completion call, satisfied by go-openai's client
//   - ConnectError, CompletionError: Failures with endpoint context
//
// # Usage
//
//	connector := cloud.NewConnector(cred, cloud.KeyVaultFactory(cred, log),
//	    cloud.AzureCompleterFactory(cloud.NewHTTPClient()), log)
//	session, err := connector.Connect(ctx, cfg.Settings())
//	if err != nil {
//	    return err
//	}
//	answer, err := session.Ask(ctx, messages)
//
// # Security
//
// API keys are never logged and all requests use TLS 1.2+.
package cloud

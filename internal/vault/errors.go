// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSecretRetrieval indicates a named secret is missing, empty, or unreadable.
	ErrSecretRetrieval = errors.New("secret retrieval failed")

	// ErrAuthentication indicates the CLI credential could not issue a token.
	ErrAuthentication = errors.New("error during authentication")

	// errEmptySecret is returned when a secret exists but carries no value.
	errEmptySecret = errors.New("secret has no value")
)

// SecretError describes a failed lookup of one named secret.
type SecretError struct {
	Name  string
	Vault string
	Err   error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("error loading secret [%s] from KeyVault [%s]: %v", e.Name, e.Vault, e.Err)
}

// Unwrap returns the underlying error.
func (e *SecretError) Unwrap() error {
	return e.Err
}

// Is reports ErrSecretRetrieval so callers can match the category.
func (e *SecretError) Is(target error) bool {
	return target == ErrSecretRetrieval
}

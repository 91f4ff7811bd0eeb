// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"errors"
	"fmt"
)

// Error variables for the connect and ask flows.
var (
	// ErrConfiguration indicates missing or inconsistent settings.
	ErrConfiguration = errors.New("configuration error")

	// ErrConnectivity indicates the endpoint or credential could not be reached.
	ErrConnectivity = errors.New("connectivity error")

	// ErrNoActiveSession indicates a chat was attempted before any successful connect.
	ErrNoActiveSession = errors.New("no active AOAI session, check the Key Vault settings and reconnect")
)

// ConnectError is returned when the smoke test against a new endpoint fails.
type ConnectError struct {
	Endpoint   string
	Deployment string
	Err        error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("could not connect to AOAI using endpoint: %s and deployment: %s. Please verify KeyVault settings for API key, endpoint, and deployment name. Message: %v",
		e.Endpoint, e.Deployment, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Is reports ErrConnectivity.
func (e *ConnectError) Is(target error) bool {
	return target == ErrConnectivity
}

// CompletionError is returned when a chat completion call fails.
type CompletionError struct {
	Err error
}

// Error implements the error interface.
func (e *CompletionError) Error() string {
	return fmt.Sprintf("could not get chat completions from AOAI. Message: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Is reports ErrConnectivity.
func (e *CompletionError) Is(target error) bool {
	return target == ErrConnectivity
}

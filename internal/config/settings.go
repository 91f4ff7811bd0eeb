// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// CLOUD VARIANTS
// =============================================================================

// Configured names of the supported Azure clouds.
const (
	CloudNamePublic       = "AzureCloud"
	CloudNameUSGovernment = "AzureUSGovernment"
)

// CloudVariant identifies the Azure cloud the vault and endpoint live in.
type CloudVariant int

const (
	CloudUnknown CloudVariant = iota
	CloudPublic
	CloudUSGovernment
)

// ParseCloudVariant maps a configured cloud name to a CloudVariant.
// Unrecognized names yield CloudUnknown.
func ParseCloudVariant(name string) CloudVariant {
	switch strings.TrimSpace(name) {
	case CloudNamePublic:
		return CloudPublic
	case CloudNameUSGovernment:
		return CloudUSGovernment
	default:
		return CloudUnknown
	}
}

// String returns the configured name of the cloud.
func (v CloudVariant) String() string {
	switch v {
	case CloudPublic:
		return CloudNamePublic
	case CloudUSGovernment:
		return CloudNameUSGovernment
	default:
		return "unknown"
	}
}

// Errors returned by Settings.
var (
	// ErrInvalidCloud indicates the configured cloud is not a supported Azure cloud.
	ErrInvalidCloud = errors.New("invalid Azure cloud setting")

	// ErrMissingSettings indicates azure.cloud or azure.keyvault_name is empty.
	ErrMissingSettings = errors.New("settings must be configured for [azureCloud] and [keyvaultName]")
)

// =============================================================================
// SETTINGS SNAPSHOT
// =============================================================================

// SecretNames are the Key Vault secret names for the endpoint connection.
type SecretNames struct {
	Endpoint   string
	Key        string
	Deployment string
	APIVersion string
}

// Settings is an immutable snapshot of the user-configurable options.
//
// It is a plain value: copies never share state, and a configuration change
// replaces the whole snapshot.
type Settings struct {
	Cloud                CloudVariant
	CloudName            string
	VaultName            string
	SelectionInCodeBlock bool
	PasteOnClick         bool
	MaxTokens            int
	Temperature          float64
	Secrets              SecretNames
	Prefixes             PromptPrefixConfig
	CompletionTimeout    time.Duration
	VaultTimeout         time.Duration
}

// Settings derives the snapshot used by the panel from the configuration.
func (c *Config) Settings() Settings {
	return Settings{
		Cloud:                ParseCloudVariant(c.Azure.Cloud),
		CloudName:            c.Azure.Cloud,
		VaultName:            strings.TrimSpace(c.Azure.KeyVaultName),
		SelectionInCodeBlock: c.Panel.SelectedInsideCodeBlock,
		PasteOnClick:         c.Panel.PasteOnClick,
		MaxTokens:            c.Model.MaxTokens,
		Temperature:          c.Model.Temperature,
		Secrets: SecretNames{
			Endpoint:   c.Secrets.Endpoint,
			Key:        c.Secrets.Key,
			Deployment: c.Secrets.Deployment,
			APIVersion: c.Secrets.APIVersion,
		},
		Prefixes:          c.PromptPrefix,
		CompletionTimeout: time.Duration(c.Model.TimeoutSecs) * time.Second,
		VaultTimeout:      time.Duration(c.Azure.TimeoutSecs) * time.Second,
	}
}

// Check reports whether the cloud and vault name are usable.
func (s Settings) Check() error {
	if strings.TrimSpace(s.CloudName) == "" || s.VaultName == "" {
		return ErrMissingSettings
	}
	if s.Cloud == CloudUnknown {
		return fmt.Errorf("%w: %q", ErrInvalidCloud, s.CloudName)
	}
	return nil
}

// VaultURL returns the Key Vault URL for the configured cloud.
func (s Settings) VaultURL() (string, error) {
	switch s.Cloud {
	case CloudPublic:
		return fmt.Sprintf("https://%s.vault.azure.net", s.VaultName), nil
	case CloudUSGovernment:
		return fmt.Sprintf("https://%s.vault.usgovcloudapi.net", s.VaultName), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCloud, s.CloudName)
	}
}

// GraphScope returns the Microsoft Graph token scope for the configured cloud.
func (s Settings) GraphScope() (string, error) {
	switch s.Cloud {
	case CloudPublic:
		return "https://graph.microsoft.com/.default", nil
	case CloudUSGovernment:
		return "https://graph.microsoft.us/.default", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCloud, s.CloudName)
	}
}

// PromptPrefix looks up the prompt bound to an editor command.
// Accepts the command ids (explain, refactor, findProblems, documentation,
// writetests) as well as snake_case and kebab-case spellings.
func (s Settings) PromptPrefix(command string) (string, bool) {
	key := strings.ToLower(command)
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)

	var prefix string
	switch key {
	case "explain":
		prefix = s.Prefixes.Explain
	case "refactor":
		prefix = s.Prefixes.Refactor
	case "findproblems":
		prefix = s.Prefixes.FindProblems
	case "documentation", "document":
		prefix = s.Prefixes.Documentation
	case "writetests":
		prefix = s.Prefixes.WriteTests
	default:
		return "", false
	}
	return prefix, prefix != ""
}

// Commands returns the editor command ids in display order.
func Commands() []string {
	return []string{"explain", "refactor", "findProblems", "documentation", "writetests"}
}

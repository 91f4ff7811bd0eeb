// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestConfig_Default tests that Default() returns a valid config with defaults.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Version == "" {
		t.Error("Default config should have a version")
	}

	if cfg.Azure.Cloud != CloudNamePublic {
		t.Errorf("Expected default cloud '%s', got '%s'", CloudNamePublic, cfg.Azure.Cloud)
	}

	if cfg.Model.MaxTokens != 500 {
		t.Errorf("Expected default max tokens 500, got %d", cfg.Model.MaxTokens)
	}

	if cfg.Model.Temperature != 0.5 {
		t.Errorf("Expected default temperature 0.5, got %g", cfg.Model.Temperature)
	}

	if cfg.Secrets.APIVersion != "aoaiapiVersion" {
		t.Errorf("Expected default api version secret 'aoaiapiVersion', got '%s'", cfg.Secrets.APIVersion)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			config:  Default(),
			wantErr: false,
		},
		{
			name: "missing vault name is not a load error",
			config: func() *Config {
				c := Default()
				c.Azure.KeyVaultName = ""
				return c
			}(),
			wantErr: false,
		},
		{
			name: "unknown cloud is not a load error",
			config: func() *Config {
				c := Default()
				c.Azure.Cloud = "AzureChinaCloud"
				return c
			}(),
			wantErr: false,
		},
		{
			name: "negative max tokens",
			config: func() *Config {
				c := Default()
				c.Model.MaxTokens = -1
				return c
			}(),
			wantErr: true,
		},
		{
			name: "temperature above one",
			config: func() *Config {
				c := Default()
				c.Model.Temperature = 1.5
				return c
			}(),
			wantErr: true,
		},
		{
			name: "temperature zero",
			config: func() *Config {
				c := Default()
				c.Model.Temperature = 0
				return c
			}(),
			wantErr: false,
		},
		{
			name: "negative completion timeout",
			config: func() *Config {
				c := Default()
				c.Model.TimeoutSecs = -5
				return c
			}(),
			wantErr: true,
		},
		{
			name: "secret name with underscore",
			config: func() *Config {
				c := Default()
				c.Secrets.Key = "aoai_key"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "empty secret name",
			config: func() *Config {
				c := Default()
				c.Secrets.Endpoint = ""
				return c
			}(),
			wantErr: true,
		},
		{
			name: "invalid log level",
			config: func() *Config {
				c := Default()
				c.Log.Level = "loud"
				return c
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestConfig_GetSet tests Get and Set methods with dot notation.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("model.max_tokens")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != 500 {
		t.Errorf("Get('model.max_tokens') = %v, want 500", val)
	}

	if err := cfg.Set("azure.keyvault_name", "kv-team"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	val, _ = cfg.Get("azure.keyvault_name")
	if val != "kv-team" {
		t.Errorf("Get('azure.keyvault_name') after Set = %v, want 'kv-team'", val)
	}

	if err := cfg.Set("panel.paste_on_click", "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !cfg.Panel.PasteOnClick {
		t.Error("Set('panel.paste_on_click', 'true') should enable paste on click")
	}

	if err := cfg.Set("model.temperature", "0.2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.Model.Temperature != 0.2 {
		t.Errorf("temperature = %g, want 0.2", cfg.Model.Temperature)
	}

	if err := cfg.Set("prompt_prefix.find_problems", "Find bugs: "); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.PromptPrefix.FindProblems != "Find bugs: " {
		t.Errorf("find_problems = %q", cfg.PromptPrefix.FindProblems)
	}

	if _, err := cfg.Get("invalid.key"); err == nil {
		t.Error("Get() with invalid key should return error")
	}

	if _, err := cfg.Get("model"); err == nil {
		t.Error("Get() on a section should return error")
	}

	if err := cfg.Set("model.max_tokens", "many"); err == nil {
		t.Error("Set() with non-integer value should return error")
	}
}

// TestConfig_GetAllKeys tests that every listed key resolves.
func TestConfig_GetAllKeys(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) error = %v", key, err)
		}
	}
}

// TestConfig_Clone tests that Clone creates an independent copy.
func TestConfig_Clone(t *testing.T) {
	original := Default()
	original.Version = "original"

	clone := original.Clone()
	clone.Version = "cloned"
	clone.PromptPrefix.Explain = "changed"

	if original.Version != "original" {
		t.Error("Clone should create an independent copy")
	}
	if original.PromptPrefix.Explain == "changed" {
		t.Error("Clone should copy nested sections")
	}
}

// TestConfig_StringRedactsToken tests that the bridge token never appears in String().
func TestConfig_StringRedactsToken(t *testing.T) {
	cfg := Default()
	cfg.Bridge.Token = "super-secret-token"

	out := cfg.String()
	if strings.Contains(out, "super-secret-token") {
		t.Error("String() should redact the bridge token")
	}
	if cfg.Bridge.Token != "super-secret-token" {
		t.Error("String() should not modify the config")
	}
}

// TestConfig_LoadFromPathPartial tests that a partial TOML file keeps defaults.
func TestConfig_LoadFromPathPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[azure]
cloud = "AzureUSGovernment"
keyvault_name = "kv-gov"

[model]
temperature = 0.0
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.Azure.Cloud != CloudNameUSGovernment {
		t.Errorf("cloud = %q", cfg.Azure.Cloud)
	}
	if cfg.Azure.KeyVaultName != "kv-gov" {
		t.Errorf("keyvault_name = %q", cfg.Azure.KeyVaultName)
	}
	if cfg.Model.Temperature != 0 {
		t.Errorf("explicit zero temperature should be kept, got %g", cfg.Model.Temperature)
	}
	if cfg.Model.MaxTokens != 500 {
		t.Errorf("max_tokens should default to 500, got %d", cfg.Model.MaxTokens)
	}
	if cfg.Secrets.Endpoint != DefaultSecretEndpoint {
		t.Errorf("secret endpoint name should default, got %q", cfg.Secrets.Endpoint)
	}
}

// TestConfig_LoadFromPathInvalid tests that an out-of-range value fails to load.
func TestConfig_LoadFromPathInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[model]\ntemperature = 3.0\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("LoadFromPath() should reject temperature 3.0")
	}
}

// TestConfig_SaveAndLoadRoundTrip tests that a saved TOML file loads back.
func TestConfig_SaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CODEBUDDY_HOME", dir)

	cfg := Default()
	cfg.Azure.KeyVaultName = "kv-roundtrip"
	cfg.Panel.SelectedInsideCodeBlock = true
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(dir, "config.toml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("config file permissions = %o, want 600", perm)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Azure.KeyVaultName != "kv-roundtrip" {
		t.Errorf("keyvault_name = %q", loaded.Azure.KeyVaultName)
	}
	if !loaded.Panel.SelectedInsideCodeBlock {
		t.Error("selected_inside_codeblock should round-trip")
	}
}

// TestConfig_LoadJSON tests loading the JSON fallback file.
func TestConfig_LoadJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CODEBUDDY_HOME", dir)

	cfg := Default()
	cfg.Azure.KeyVaultName = "kv-json"
	if err := SaveJSON(cfg, filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}

	path, err := ResolvePath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "config.json" {
		t.Errorf("ResolvePath() = %s, want config.json", path)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Azure.KeyVaultName != "kv-json" {
		t.Errorf("keyvault_name = %q", loaded.Azure.KeyVaultName)
	}
}

// TestConfig_LoadMissingFile tests that Load falls back to defaults.
func TestConfig_LoadMissingFile(t *testing.T) {
	t.Setenv("CODEBUDDY_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model.MaxTokens != Default().Model.MaxTokens {
		t.Error("Load() without a file should return defaults")
	}
}

// TestConfig_ApplyEnvOverrides tests environment variable overrides.
func TestConfig_ApplyEnvOverrides(t *testing.T) {
	t.Setenv("CODEBUDDY_AZURE_CLOUD", CloudNameUSGovernment)
	t.Setenv("CODEBUDDY_KEYVAULT_NAME", "kv-env")
	t.Setenv("CODEBUDDY_MAX_TOKENS", "1200")
	t.Setenv("CODEBUDDY_TEMPERATURE", "0.1")
	t.Setenv("CODEBUDDY_BRIDGE_TOKEN", "tok")
	t.Setenv("CODEBUDDY_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Azure.Cloud != CloudNameUSGovernment {
		t.Errorf("cloud = %q", cfg.Azure.Cloud)
	}
	if cfg.Azure.KeyVaultName != "kv-env" {
		t.Errorf("keyvault_name = %q", cfg.Azure.KeyVaultName)
	}
	if cfg.Model.MaxTokens != 1200 {
		t.Errorf("max_tokens = %d", cfg.Model.MaxTokens)
	}
	if cfg.Model.Temperature != 0.1 {
		t.Errorf("temperature = %g", cfg.Model.Temperature)
	}
	if cfg.Bridge.Token != "tok" {
		t.Errorf("bridge token = %q", cfg.Bridge.Token)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

// TestConfig_ApplyEnvOverridesIgnoresGarbage tests that unparsable numbers are ignored.
func TestConfig_ApplyEnvOverridesIgnoresGarbage(t *testing.T) {
	t.Setenv("CODEBUDDY_MAX_TOKENS", "lots")
	t.Setenv("CODEBUDDY_TEMPERATURE", "warm")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Model.MaxTokens != 500 || cfg.Model.Temperature != 0.5 {
		t.Errorf("garbage overrides should be ignored, got %d / %g", cfg.Model.MaxTokens, cfg.Model.Temperature)
	}
}

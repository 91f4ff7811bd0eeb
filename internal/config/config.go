// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for codebuddy.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.codebuddy/config.toml
//   - ~/.codebuddy/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/codebuddy/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete codebuddy configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Azure cloud and Key Vault location
	Azure AzureConfig `toml:"azure" json:"azure"`

	// Names of the Key Vault secrets holding the endpoint connection
	Secrets SecretsConfig `toml:"secrets" json:"secrets"`

	// Completion parameters
	Model ModelConfig `toml:"model" json:"model"`

	// Panel behaviour toggles
	Panel PanelConfig `toml:"panel" json:"panel"`

	// Command-bound prompt prefixes
	PromptPrefix PromptPrefixConfig `toml:"prompt_prefix" json:"prompt_prefix"`

	// Websocket bridge for IDE webviews
	Bridge BridgeConfig `toml:"bridge" json:"bridge"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`
}

// AzureConfig selects the Azure cloud and the Key Vault holding the endpoint secrets.
type AzureConfig struct {
	// Cloud is "AzureCloud" or "AzureUSGovernment"
	Cloud string `toml:"cloud" json:"cloud"`
	// KeyVaultName is the short vault name (the host label of the vault URL)
	KeyVaultName string `toml:"keyvault_name" json:"keyvault_name"`
	// TimeoutSecs bounds each credential and secret round-trip (0 = no deadline)
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// SecretsConfig names the four Key Vault secrets that describe the endpoint.
type SecretsConfig struct {
	Endpoint   string `toml:"endpoint" json:"endpoint"`
	Key        string `toml:"key" json:"key"`
	Deployment string `toml:"deployment" json:"deployment"`
	APIVersion string `toml:"api_version" json:"api_version"`
}

// ModelConfig contains the generation parameters sent with every completion.
type ModelConfig struct {
	// MaxTokens is passed verbatim as max_tokens (0 = server default)
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Temperature is the sampling temperature in [0,1]
	Temperature float64 `toml:"temperature" json:"temperature"`
	// TimeoutSecs bounds each completion call (0 = no deadline)
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// PanelConfig contains panel behaviour toggles.
type PanelConfig struct {
	// SelectedInsideCodeBlock fences the editor selection before sending it
	SelectedInsideCodeBlock bool `toml:"selected_inside_codeblock" json:"selected_inside_codeblock"`
	// PasteOnClick inserts a clicked code fragment at the editor cursor
	PasteOnClick bool `toml:"paste_on_click" json:"paste_on_click"`
}

// PromptPrefixConfig holds the prompt text bound to each editor command.
type PromptPrefixConfig struct {
	Explain       string `toml:"explain" json:"explain"`
	Refactor      string `toml:"refactor" json:"refactor"`
	FindProblems  string `toml:"find_problems" json:"find_problems"`
	Documentation string `toml:"documentation" json:"documentation"`
	WriteTests    string `toml:"write_tests" json:"write_tests"`
}

// BridgeConfig configures the websocket bridge served by "codebuddy serve".
type BridgeConfig struct {
	// Addr is the listen address
	Addr string `toml:"addr" json:"addr"`
	// Token is the bearer token webviews must present (empty = no auth)
	Token string `toml:"token" json:"token"`
	// MessagesPerSecond limits inbound messages per connection
	MessagesPerSecond float64 `toml:"messages_per_second" json:"messages_per_second"`
}

// LogConfig configures the log file.
type LogConfig struct {
	// Level is one of: panic, fatal, error, warn, info, debug, trace
	Level string `toml:"level" json:"level"`
	// File is the log file path (empty = ~/.codebuddy/codebuddy.log)
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default secret names as stored by the provisioning scripts.
const (
	DefaultSecretEndpoint   = "aoaiEndpoint"
	DefaultSecretKey        = "aoaiKey"
	DefaultSecretDeployment = "aoaiDeployment"
	DefaultSecretAPIVersion = "aoaiapiVersion"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Azure: AzureConfig{
			Cloud:        CloudNamePublic,
			KeyVaultName: "",
			TimeoutSecs:  30,
		},

		Secrets: SecretsConfig{
			Endpoint:   DefaultSecretEndpoint,
			Key:        DefaultSecretKey,
			Deployment: DefaultSecretDeployment,
			APIVersion: DefaultSecretAPIVersion,
		},

		Model: ModelConfig{
			MaxTokens:   500,
			Temperature: 0.5,
			TimeoutSecs: 60,
		},

		Panel: PanelConfig{
			SelectedInsideCodeBlock: false,
			PasteOnClick:            false,
		},

		PromptPrefix: PromptPrefixConfig{
			Explain:       "Explain what this code does: ",
			Refactor:      "Refactor this code and explain what's changed: ",
			FindProblems:  "Find problems with the following code, fix them and explain what was wrong (Do not change anything else, if there are no problems say so): ",
			Documentation: "Write documentation for the following code: ",
			WriteTests:    "Write unit tests for the following code: ",
		},

		Bridge: BridgeConfig{
			Addr:              "127.0.0.1:7345",
			MessagesPerSecond: 5,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the codebuddy configuration directory path.
// CODEBUDDY_HOME overrides the default ~/.codebuddy.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CODEBUDDY_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".codebuddy"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ResolvePath returns the config file that Load would read: the TOML file if
// it exists, otherwise the JSON file if it exists, otherwise the TOML path.
func ResolvePath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(tomlPath); statErr == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(jsonPath); statErr == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files may hold the bridge token and should be 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ResolvePath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadTOML loads configuration from a TOML file into cfg.
// Keys absent from the file keep the values already present in cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// ReadFile decodes path over the defaults without environment overrides or
// validation. It is the form written back by config set.
func ReadFile(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
// The file is decoded over the defaults, so a partial file is valid.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# codebuddy configuration file\n")
	buf.WriteString("# Generated by codebuddy - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{
	"panic": true, "fatal": true, "error": true, "warn": true,
	"warning": true, "info": true, "debug": true, "trace": true,
}

// Validate validates the configuration and returns any errors.
//
// The cloud name and vault name are deliberately not validated here: a
// missing or unknown value must still let the panel start so the problem can
// be reported inside it. Settings.Check reports those.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Model.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "model.max_tokens",
			Message: fmt.Sprintf("must be >= 0, got %d", c.Model.MaxTokens),
		})
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		errs = append(errs, ValidationError{
			Field:   "model.temperature",
			Message: fmt.Sprintf("must be within [0,1], got %g", c.Model.Temperature),
		})
	}
	if c.Model.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "model.timeout_secs", Message: "must be >= 0"})
	}
	if c.Azure.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "azure.timeout_secs", Message: "must be >= 0"})
	}

	secretFields := []struct {
		field, value string
	}{
		{"secrets.endpoint", c.Secrets.Endpoint},
		{"secrets.key", c.Secrets.Key},
		{"secrets.deployment", c.Secrets.Deployment},
		{"secrets.api_version", c.Secrets.APIVersion},
	}
	for _, s := range secretFields {
		if !isValidSecretName(s.value) {
			errs = append(errs, ValidationError{
				Field:   s.field,
				Message: fmt.Sprintf("invalid Key Vault secret name '%s' (1-127 characters, letters, digits and dashes)", s.value),
			})
		}
	}

	if c.Bridge.MessagesPerSecond < 0 {
		errs = append(errs, ValidationError{Field: "bridge.messages_per_second", Message: "must be >= 0"})
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// isValidSecretName reports whether name is a valid Key Vault secret name.
func isValidSecretName(name string) bool {
	if len(name) == 0 || len(name) > 127 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return true
}

// SetDefaults sets default values for any missing string fields.
// Numeric fields are left alone: a zero temperature is a valid choice.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Secrets.Endpoint == "" {
		c.Secrets.Endpoint = defaults.Secrets.Endpoint
	}
	if c.Secrets.Key == "" {
		c.Secrets.Key = defaults.Secrets.Key
	}
	if c.Secrets.Deployment == "" {
		c.Secrets.Deployment = defaults.Secrets.Deployment
	}
	if c.Secrets.APIVersion == "" {
		c.Secrets.APIVersion = defaults.Secrets.APIVersion
	}
	if c.Bridge.Addr == "" {
		c.Bridge.Addr = defaults.Bridge.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CODEBUDDY_AZURE_CLOUD: overrides azure.cloud
//   - CODEBUDDY_KEYVAULT_NAME: overrides azure.keyvault_name
//   - CODEBUDDY_MAX_TOKENS: overrides model.max_tokens
//   - CODEBUDDY_TEMPERATURE: overrides model.temperature
//   - CODEBUDDY_BRIDGE_TOKEN: overrides bridge.token
//   - CODEBUDDY_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if cloud := os.Getenv("CODEBUDDY_AZURE_CLOUD"); cloud != "" {
		c.Azure.Cloud = cloud
	}

	if vault := os.Getenv("CODEBUDDY_KEYVAULT_NAME"); vault != "" {
		c.Azure.KeyVaultName = vault
	}

	if maxTokens := os.Getenv("CODEBUDDY_MAX_TOKENS"); maxTokens != "" {
		if n, err := strconv.Atoi(maxTokens); err == nil {
			c.Model.MaxTokens = n
		}
	}

	if temperature := os.Getenv("CODEBUDDY_TEMPERATURE"); temperature != "" {
		if f, err := strconv.ParseFloat(temperature, 64); err == nil {
			c.Model.Temperature = f
		}
	}

	if token := os.Getenv("CODEBUDDY_BRIDGE_TOKEN"); token != "" {
		c.Bridge.Token = token
	}

	if level := os.Getenv("CODEBUDDY_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "model.max_tokens").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "azure.keyvault_name").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the dotted key down the struct tree.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
			}
			return field, nil
		}

		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"azure.cloud",
		"azure.keyvault_name",
		"azure.timeout_secs",
		"secrets.endpoint",
		"secrets.key",
		"secrets.deployment",
		"secrets.api_version",
		"model.max_tokens",
		"model.temperature",
		"model.timeout_secs",
		"panel.selected_inside_codeblock",
		"panel.paste_on_click",
		"prompt_prefix.explain",
		"prompt_prefix.refactor",
		"prompt_prefix.find_problems",
		"prompt_prefix.documentation",
		"prompt_prefix.write_tests",
		"bridge.addr",
		"bridge.token",
		"bridge.messages_per_second",
		"log.level",
		"log.file",
	}
}

// Clone returns a copy of the config. Config holds only value fields.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the bridge token.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Bridge.Token != "" {
		safe.Bridge.Token = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

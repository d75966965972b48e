// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/orstudio/internal/request"
	"github.com/jeranaias/orstudio/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete application configuration.
type Config struct {
	// General settings
	Version      string `toml:"version" json:"version"`
	DefaultModel string `toml:"default_model" json:"default_model"`

	// API (OpenRouter) configuration
	API APIConfig `toml:"api" json:"api"`

	// Generation defaults
	Generation GenerationConfig `toml:"generation" json:"generation"`

	// File paths for the plain-text config files
	Files FilesConfig `toml:"files" json:"files"`

	// Storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// APIConfig contains OpenRouter connection configuration.
type APIConfig struct {
	// Key is the OpenRouter API key. Usually set via OPENROUTER_API_KEY
	// rather than stored on disk.
	Key string `toml:"key" json:"key"`
	// BaseURL overrides the OpenRouter endpoint (for proxies and tests).
	BaseURL string `toml:"base_url" json:"base_url"`
	// SiteURL is sent as HTTP-Referer for OpenRouter app attribution.
	SiteURL string `toml:"site_url" json:"site_url"`
	// SiteName is sent as X-Title for OpenRouter app attribution.
	SiteName string `toml:"site_name" json:"site_name"`
}

// GenerationConfig contains default generation parameters.
type GenerationConfig struct {
	// Temperature is the sampling temperature, 0.0 to 2.0.
	Temperature float64 `toml:"temperature" json:"temperature"`
	// MaxTokens caps the completion length, 100 to 65535.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Effort is the default reasoning effort: "low", "medium", "high".
	Effort string `toml:"effort" json:"effort"`
}

// FilesConfig contains paths to the plain-text configuration files.
type FilesConfig struct {
	// Models is the path to the model list file (one identifier per line).
	Models string `toml:"models" json:"models"`
	// SystemPrompt is the path to the system prompt file.
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
}

// StorageConfig contains conversation persistence configuration.
type StorageConfig struct {
	// Enabled controls whether conversations are persisted.
	Enabled bool `toml:"enabled" json:"enabled"`
	// DatabasePath is the SQLite database path (empty = default).
	DatabasePath string `toml:"database_path" json:"database_path"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// ShowReasoning displays the reasoning trace panel
	ShowReasoning bool `toml:"show_reasoning" json:"show_reasoning"`
	// ShowTokens displays token counts in the UI
	ShowTokens bool `toml:"show_tokens" json:"show_tokens"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values. The default
// model is left empty; the model catalog decides it.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			Key:      "",
			BaseURL:  "",
			SiteName: "orstudio",
		},

		Generation: GenerationConfig{
			Temperature: request.DefaultTemperature,
			MaxTokens:   request.DefaultMaxTokens,
			Effort:      string(request.EffortMedium),
		},

		Files: FilesConfig{
			Models:       "", // resolved under the config dir
			SystemPrompt: "",
		},

		Storage: StorageConfig{
			Enabled: true,
		},

		UI: UIConfig{
			Theme:         "dark",
			ShowReasoning: true,
			ShowTokens:    true,
			CompactMode:   false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the application configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".orstudio"), nil
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

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try JSON as fallback
	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err := finishLoad(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
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

	return finishLoad(cfg)
}

// finishLoad applies overrides, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// Checks and fixes file permissions on load.
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
// Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# orstudio configuration file")
	fmt.Fprintln(file, "# Generated by orstudio - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// Atomic write with fsync prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

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

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if t := c.Generation.Temperature; t < request.MinTemperature || t > request.MaxTemperature {
		errs = append(errs, ValidationError{
			Field:   "generation.temperature",
			Message: fmt.Sprintf("must be %.1f-%.1f, got %g", request.MinTemperature, request.MaxTemperature, t),
		})
	}
	if n := c.Generation.MaxTokens; n < request.MinMaxTokens || n > request.MaxMaxTokens {
		errs = append(errs, ValidationError{
			Field:   "generation.max_tokens",
			Message: fmt.Sprintf("must be %d-%d, got %d", request.MinMaxTokens, request.MaxMaxTokens, n),
		})
	}
	if !request.Effort(c.Generation.Effort).IsValid() {
		errs = append(errs, ValidationError{
			Field:   "generation.effort",
			Message: fmt.Sprintf("must be low, medium, or high, got %q", c.Generation.Effort),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value
// configuration fields, including resolving the plain-text file paths
// under the config directory.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.API.SiteName == "" {
		c.API.SiteName = defaults.API.SiteName
	}

	if c.Generation.Temperature == 0 && c.Generation.MaxTokens == 0 {
		// Zero generation block means the section was absent entirely.
		c.Generation = defaults.Generation
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = defaults.Generation.MaxTokens
	}
	if c.Generation.Effort == "" {
		c.Generation.Effort = defaults.Generation.Effort
	}

	if dir, err := ConfigDir(); err == nil {
		if c.Files.Models == "" {
			c.Files.Models = filepath.Join(dir, "models.txt")
		}
		if c.Files.SystemPrompt == "" {
			c.Files.SystemPrompt = filepath.Join(dir, "system-prompt.txt")
		}
		if c.Storage.DatabasePath == "" {
			c.Storage.DatabasePath = filepath.Join(dir, "conversations.db")
		}
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - OPENROUTER_API_KEY: overrides api.key
//   - ORSTUDIO_MODEL: overrides default_model
//   - ORSTUDIO_BASE_URL: overrides api.base_url
//   - ORSTUDIO_MODELS_FILE: overrides files.models
//   - ORSTUDIO_SYSTEM_PROMPT_FILE: overrides files.system_prompt
//   - ORSTUDIO_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.API.Key = key
	}
	if model := os.Getenv("ORSTUDIO_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if base := os.Getenv("ORSTUDIO_BASE_URL"); base != "" {
		c.API.BaseURL = base
	}
	if path := os.Getenv("ORSTUDIO_MODELS_FILE"); path != "" {
		c.Files.Models = path
	}
	if path := os.Getenv("ORSTUDIO_SYSTEM_PROMPT_FILE"); path != "" {
		c.Files.SystemPrompt = path
	}
	if theme := os.Getenv("ORSTUDIO_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// IsConfigured reports whether an API credential is available.
func (c *Config) IsConfigured() bool {
	return c.API.Key != ""
}

// DefaultParams converts the generation section into request parameters.
func (c *Config) DefaultParams() request.Params {
	return request.Params{
		Temperature: c.Generation.Temperature,
		MaxTokens:   c.Generation.MaxTokens,
		Effort:      request.Effort(c.Generation.Effort),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// Redacts the API key to prevent accidental exposure in logs or
// error messages.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.API.Key != "" {
		safe.API.Key = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Log but don't fail - use defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.ApplyEnvOverrides()
			cfg.SetDefaults()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}

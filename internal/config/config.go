// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/jeranaias/invtui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete invtui configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// User is sent as the owner of newly created chats.
	User string `toml:"user" json:"user"`

	// Backend endpoints
	API APIConfig `toml:"api" json:"api"`

	// Voice input and output
	Speech SpeechConfig `toml:"speech" json:"speech"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Logging configuration
	Log LogConfig `toml:"log" json:"log"`
}

// APIConfig holds the two REST base URLs.
type APIConfig struct {
	AgentsURL  string `toml:"agents_url" json:"agents_url"`
	DetailsURL string `toml:"details_url" json:"details_url"`
	Token      string `toml:"token" json:"token"`
}

// Speech provider names.
const (
	ProviderLocal  = "local"
	ProviderRemote = "remote"
	ProviderNone   = "none"
)

// SpeechConfig selects and configures the speech provider.
type SpeechConfig struct {
	Provider  string `toml:"provider" json:"provider"`
	Locale    string `toml:"locale" json:"locale"`
	AutoSpeak bool   `toml:"auto_speak" json:"auto_speak"`

	// Remote provider
	APIKey            string `toml:"api_key" json:"api_key"`
	VoiceID           string `toml:"voice_id" json:"voice_id"`
	ModelID           string `toml:"model_id" json:"model_id"`
	TTSURL            string `toml:"tts_url" json:"tts_url"`
	STTURL            string `toml:"stt_url" json:"stt_url"`
	RequestsPerMinute int    `toml:"requests_per_minute" json:"requests_per_minute"`

	// External programs
	Synthesizer string `toml:"synthesizer" json:"synthesizer"`
	Recognizer  string `toml:"recognizer" json:"recognizer"`
	Player      string `toml:"player" json:"player"`
	Recorder    string `toml:"recorder" json:"recorder"`
}

// UIConfig contains TUI settings.
type UIConfig struct {
	Theme       string `toml:"theme" json:"theme"`
	DefaultView string `toml:"default_view" json:"default_view"`
	Markdown    bool   `toml:"markdown" json:"markdown"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"`
}

// Default returns a configuration with built-in defaults.
func Default() *Config {
	return &Config{
		Version: "1",
		User:    "dashboard",
		Speech: SpeechConfig{
			Provider:          ProviderLocal,
			Locale:            "es-ES",
			AutoSpeak:         true,
			VoiceID:           "21m00Tcm4TlvDq8ikWAM",
			ModelID:           "eleven_multilingual_v2",
			TTSURL:            "https://api.elevenlabs.io",
			STTURL:            "https://api.elevenlabs.io/v1/speech-to-text",
			RequestsPerMinute: 30,
		},
		UI: UIConfig{
			Theme:       "auto",
			DefaultView: "agents",
			Markdown:    true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the invtui configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("INVTUI_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".invtui"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultLogPath returns the log file used while the TUI owns the terminal.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "invtui.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default path. A missing file is not an
// error. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from path, tolerating a missing file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Unknown keys are rejected so that
// typos surface instead of being silently ignored.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// SetDefaults fills empty fields with their defaults.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.User == "" {
		c.User = d.User
	}
	if c.Speech.Provider == "" {
		c.Speech.Provider = d.Speech.Provider
	}
	if c.Speech.Locale == "" {
		c.Speech.Locale = d.Speech.Locale
	}
	if c.Speech.VoiceID == "" {
		c.Speech.VoiceID = d.Speech.VoiceID
	}
	if c.Speech.ModelID == "" {
		c.Speech.ModelID = d.Speech.ModelID
	}
	if c.Speech.TTSURL == "" {
		c.Speech.TTSURL = d.Speech.TTSURL
	}
	if c.Speech.STTURL == "" {
		c.Speech.STTURL = d.Speech.STTURL
	}
	if c.Speech.RequestsPerMinute <= 0 {
		c.Speech.RequestsPerMinute = d.Speech.RequestsPerMinute
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.DefaultView == "" {
		c.UI.DefaultView = d.UI.DefaultView
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically with 0600 permissions, since the
// file may hold API keys.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# invtui configuration file\n")
	buf.WriteString("# Environment variables override these values.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
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

// Validate validates the configuration and returns any errors. Empty API
// URLs are allowed; the views report them as not configured.
func (c *Config) Validate() error {
	var errs ValidateErrors

	for _, u := range []struct{ field, value string }{
		{"api.agents_url", c.API.AgentsURL},
		{"api.details_url", c.API.DetailsURL},
		{"speech.tts_url", c.Speech.TTSURL},
		{"speech.stt_url", c.Speech.STTURL},
	} {
		if u.value == "" {
			continue
		}
		if err := validateHTTPURL(u.value); err != nil {
			errs = append(errs, ValidationError{Field: u.field, Message: err.Error()})
		}
	}

	switch strings.ToLower(c.Speech.Provider) {
	case ProviderLocal, ProviderRemote, ProviderNone:
	default:
		errs = append(errs, ValidationError{
			Field:   "speech.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: local, remote, none", c.Speech.Provider),
		})
	}

	if _, err := language.Parse(c.Speech.Locale); err != nil {
		errs = append(errs, ValidationError{
			Field:   "speech.locale",
			Message: fmt.Sprintf("invalid locale '%s'", c.Speech.Locale),
		})
	}

	if c.Speech.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "speech.requests_per_minute", Message: "must not be negative"})
	}

	switch c.UI.DefaultView {
	case "agents", "inventory":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.default_view",
			Message: fmt.Sprintf("invalid view '%s', must be one of: agents, inventory", c.UI.DefaultView),
		})
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must include a host")
	}
	return nil
}

// =============================================================================
// GET HELPER (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using its TOML key path, e.g.
// "speech.provider".
func (c *Config) Get(key string) (interface{}, error) {
	if key == "" {
		return nil, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTOMLTag(v, part)
		if !ok {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

func fieldByTOMLTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if strings.EqualFold(tag, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a JSON representation for debugging with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.API.Token != "" {
		safe.API.Token = "[REDACTED]"
	}
	if safe.Speech.APIKey != "" {
		safe.Speech.APIKey = "[REDACTED]"
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
			logrus.WithError(err).Warn("config load failed, using defaults")
			cfg = Default()
			cfg.ApplyEnvOverrides()
			cfg.SetDefaults()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
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
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
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

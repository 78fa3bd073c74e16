/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables override it at runtime and are never
// written back.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Parse         ParseConfig   `yaml:"parse"`
	Player        PlayerConfig  `yaml:"player"`
	Storage       StorageConfig `yaml:"storage"`
	Catalog       CatalogConfig `yaml:"catalog"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn    bool   `yaml:"telemetry_opt_in"`
	TelemetryEndpoint string `yaml:"telemetry_endpoint"`
}

// ParseConfig bounds what the parser accepts. MaxTokens 0 disables the
// token limit.
type ParseConfig struct {
	MinSections int `yaml:"min_sections"`
	MaxTokens   int `yaml:"max_tokens"`
}

type PlayerConfig struct {
	WrapWidth int    `yaml:"wrap_width"`
	QuitKey   string `yaml:"quit_key"`
	BackKey   string `yaml:"back_key"`
	Autosave  bool   `yaml:"autosave"`
}

type StorageConfig struct {
	SavesPath string `yaml:"saves_path"` // empty: <user config dir>/textadventure/saves.sqlite
}

type CatalogConfig struct {
	DSN       string `yaml:"dsn"`
	User      string `yaml:"user"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Password is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Parse:         ParseConfig{MinSections: 2, MaxTokens: 1 << 16},
		Player:        PlayerConfig{WrapWidth: 80, QuitKey: "q", BackKey: "b", Autosave: true},
		Catalog:       CatalogConfig{TimeoutMs: 10000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "TA_CONFIG"
	EnvTelemetryOptIn  = "TA_TELEMETRY_OPT_IN"
	EnvMinSections     = "TA_MIN_SECTIONS"
	EnvMaxTokens       = "TA_MAX_TOKENS"
	EnvWrapWidth       = "TA_WRAP_WIDTH"
	EnvAutosave        = "TA_AUTOSAVE"
	EnvSavesPath       = "TA_SAVES_PATH"
	EnvCatalogDSN      = "TA_CATALOG_DSN"
	EnvCatalogUser     = "TA_CATALOG_USER"
	EnvCatalogPassword = "TA_CATALOG_PASSWORD"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "TA_LOG_LEVEL"
	EnvLogFormat = "TA_LOG_FORMAT"
	EnvLogSource = "TA_LOG_SOURCE"
	EnvLogFile   = "TA_LOG_FILE"
)

// envKeys maps dotted config keys to the variables overriding them.
var envKeys = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"parse.min_sections":       EnvMinSections,
	"parse.max_tokens":         EnvMaxTokens,
	"player.wrap_width":        EnvWrapWidth,
	"player.autosave":          EnvAutosave,
	"storage.saves_path":       EnvSavesPath,
	"catalog.dsn":              EnvCatalogDSN,
	"catalog.user":             EnvCatalogUser,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// Service/keys for OS keyring.
const (
	keyringService  = "TextAdventure"
	keyringPassword = "catalog_password"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path. TA_CONFIG replaces it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "TextAdventure")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "TextAdventure")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "textadventure")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "textadventure")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present) over the defaults and applies
// environment overrides. A missing file is not an error; a malformed one is.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// unmarshal over the defaults so absent keys keep them
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	normalize(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// CatalogPassword returns the catalog password from TA_CATALOG_PASSWORD or
// the OS keyring. A password that was never stored yields "" and no error.
func CatalogPassword() (string, error) {
	if v := os.Getenv(EnvCatalogPassword); v != "" {
		return v, nil
	}
	pw, err := tokenStore.Get(keyringService, keyringPassword)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read catalog password from keyring: %w", err)
	}
	return pw, nil
}

// SetCatalogPassword stores the password in the OS keyring; an empty
// password removes it.
func SetCatalogPassword(pw string) error {
	if pw == "" {
		err := tokenStore.Delete(keyringService, keyringPassword)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("delete catalog password: %w", err)
		}
		return nil
	}
	if err := tokenStore.Set(keyringService, keyringPassword, pw); err != nil {
		return fmt.Errorf("store catalog password: %w", err)
	}
	return nil
}

func normalize(cfg *AppConfig) {
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
	cfg.Storage.SavesPath = strings.TrimSpace(cfg.Storage.SavesPath)
	cfg.Catalog.DSN = strings.TrimSpace(cfg.Catalog.DSN)
	d := Defaults()
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
	if cfg.Parse.MinSections < 1 {
		cfg.Parse.MinSections = d.Parse.MinSections
	}
	if cfg.Parse.MaxTokens < 0 {
		cfg.Parse.MaxTokens = 0
	}
	if cfg.Player.WrapWidth < 0 {
		cfg.Player.WrapWidth = 0
	}
	if strings.TrimSpace(cfg.Player.QuitKey) == "" {
		cfg.Player.QuitKey = d.Player.QuitKey
	}
	if strings.TrimSpace(cfg.Player.BackKey) == "" {
		cfg.Player.BackKey = d.Player.BackKey
	}
	if cfg.Catalog.TimeoutMs <= 0 {
		cfg.Catalog.TimeoutMs = d.Catalog.TimeoutMs
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	env := func(key string) (string, bool) {
		v := strings.TrimSpace(os.Getenv(key))
		return v, v != ""
	}
	atoi := func(key string, dst *int) {
		if v, ok := env(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	if v, ok := env(EnvTelemetryOptIn); ok {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	atoi(EnvMinSections, &cfg.Parse.MinSections)
	atoi(EnvMaxTokens, &cfg.Parse.MaxTokens)
	atoi(EnvWrapWidth, &cfg.Player.WrapWidth)
	if v, ok := env(EnvAutosave); ok {
		cfg.Player.Autosave = parseBool(v)
	}
	if v, ok := env(EnvSavesPath); ok {
		cfg.Storage.SavesPath = v
	}
	if v, ok := env(EnvCatalogDSN); ok {
		cfg.Catalog.DSN = v
	}
	if v, ok := env(EnvCatalogUser); ok {
		cfg.Catalog.User = v
	}
	// logging overrides
	if v, ok := env(EnvLogLevel); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v, ok := env(EnvLogFormat); ok {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v, ok := env(EnvLogSource); ok {
		cfg.Logging.Source = parseBool(v)
	}
	if v, ok := env(EnvLogFile); ok {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the dotted key (for example
// "player.wrap_width") is currently overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Keys lists the dotted keys that can be overridden from the environment.
func Keys() []string {
	keys := make([]string, 0, len(envKeys))
	for k := range envKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

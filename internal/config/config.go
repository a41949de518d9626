// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/your-org/scrollvest/internal/resilience"
	"github.com/your-org/scrollvest/internal/sonar"
)

var (
	// ErrAPIKeyNotConfigured is returned when no provider credential is available
	ErrAPIKeyNotConfigured = errors.New("API key not configured")
	// ErrNoConfigFile is returned when hot reload is requested without a config file
	ErrNoConfigFile = errors.New("no config file to watch")
)

// Config represents the complete application configuration
type Config struct {
	Sonar   SonarConfig   `mapstructure:"sonar"`
	Server  ServerConfig  `mapstructure:"server"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SonarConfig contains Perplexity Sonar API configuration
type SonarConfig struct {
	APIKey  string `mapstructure:"apikey"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"`
}

// RequestTimeout returns the per-call provider deadline
func (c SonarConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port      string  `mapstructure:"port"`
	Mode      string  `mapstructure:"mode"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// ChatConfig contains chat client configuration
type ChatConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	EnvFile          string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over config file values
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		EnvFile:          ".env",
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if _, err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	return readConfig(v, opts)
}

func readConfig(v *viper.Viper, opts LoadOptions) (*Config, error) {
	v.SetEnvPrefix("SCROLLVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" || opts.ConfigPath != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, err
		}
	}

	return &config, nil
}

// loadEnvFile loads a dotenv file if present. Existing variables win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("sonar.base_url", sonar.DefaultBaseURL)
	v.SetDefault("sonar.model", sonar.DefaultModel)
	v.SetDefault("sonar.timeout", resilience.DefaultTimeoutSeconds)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 10)

	v.SetDefault("chat.history_limit", sonar.DefaultHistoryLimit)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// setConfigFile points viper at the configuration file and reports whether
// one was found. Running from environment variables alone is allowed.
func setConfigFile(v *viper.Viper, configPath string) (bool, error) {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return false, fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return true, nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return false, fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return true, nil
	}

	for _, path := range []string{"./configs/config.yaml", "./config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			return true, nil
		}
	}

	return false, nil
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	envMappings := map[string]string{
		"PERPLEXITY_API_KEY": "sonar.apikey",
		"SONAR_BASE_URL":     "sonar.base_url",
		"SONAR_MODEL":        "sonar.model",
		"SONAR_TIMEOUT":      "sonar.timeout",
		"PORT":               "server.port",
		"GIN_MODE":           "server.mode",
		"LOG_LEVEL":          "logging.level",
		"LOG_FORMAT":         "logging.format",
		"LOG_OUTPUT":         "logging.output",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the configuration for required fields and valid values.
// The API key is not required here; the HTTP adapters report it per request.
func validateConfig(config *Config) error {
	var errs []ValidationError

	if config.Sonar.BaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "sonar.base_url",
			Message: "Sonar base URL is required",
		})
	}

	if config.Sonar.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "sonar.model",
			Message: "Sonar model is required",
		})
	}

	if config.Sonar.Timeout <= 0 || config.Sonar.Timeout > 120 {
		errs = append(errs, ValidationError{
			Field:   "sonar.timeout",
			Message: "timeout must be between 1 and 120 seconds",
		})
	}

	if config.Server.Port == "" {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: "server port is required",
		})
	}

	validModes := []string{"debug", "release", "test"}
	if !contains(validModes, config.Server.Mode) {
		errs = append(errs, ValidationError{
			Field:   "server.mode",
			Message: fmt.Sprintf("server mode must be one of: %s", strings.Join(validModes, ", ")),
		})
	}

	if config.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit",
			Message: "rate_limit must be greater than or equal to 0",
		})
	}

	if config.Server.RateLimit > 0 && config.Server.RateBurst < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_burst",
			Message: "rate_burst must be at least 1 when rate limiting is enabled",
		})
	}

	if config.Chat.HistoryLimit <= 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.history_limit",
			Message: "history_limit must be greater than 0",
		})
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	if len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, err := range errs {
			messages = append(messages, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(messages, "\n"))
	}

	return nil
}

// RequireAPIKey returns ErrAPIKeyNotConfigured when no credential is set
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Sonar.APIKey) == "" {
		return ErrAPIKeyNotConfigured
	}
	return nil
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c
	if masked.Sonar.APIKey != "" {
		masked.Sonar.APIKey = maskValue(masked.Sonar.APIKey)
	}
	return &masked
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// Holder gives concurrent readers the latest configuration
type Holder struct {
	current atomic.Pointer[Config]
}

// NewHolder creates a holder seeded with cfg
func NewHolder(cfg *Config) *Holder {
	h := &Holder{}
	h.Store(cfg)
	return h
}

// Load returns the current configuration
func (h *Holder) Load() *Config {
	return h.current.Load()
}

// Store replaces the current configuration
func (h *Holder) Store(cfg *Config) {
	h.current.Store(cfg)
}

// APIKey returns the provider credential. The PERPLEXITY_API_KEY environment
// variable is read on every call so a rotated key applies to the next request.
func (h *Holder) APIKey() string {
	if key := strings.TrimSpace(os.Getenv("PERPLEXITY_API_KEY")); key != "" {
		return key
	}
	if cfg := h.Load(); cfg != nil {
		return strings.TrimSpace(cfg.Sonar.APIKey)
	}
	return ""
}

// WatchConfig reloads the configuration file when it changes and passes every
// successfully validated result to callback. Reloads are always validated;
// read and validation errors go to onError.
func WatchConfig(opts LoadOptions, callback func(*Config), onError func(error)) error {
	opts.ValidateRequired = true

	v := viper.New()
	setDefaults(v)

	found, err := setConfigFile(v, opts.ConfigPath)
	if err != nil {
		return err
	}
	if !found {
		return ErrNoConfigFile
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := readConfig(v, opts)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		callback(cfg)
	})
	v.WatchConfig()

	return nil
}

/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ssargent/bicis/pkg/store"
	"gopkg.in/yaml.v3"
)

// Config represents the bicis configuration
type Config struct {
	DataFile   string  `yaml:"data_file"`
	Stations   int     `yaml:"stations"`
	Capacity   int     `yaml:"capacity"`
	Fsync      bool    `yaml:"fsync"`
	JournalDir string  `yaml:"journal_dir"` // empty disables rental history
	Server     Server  `yaml:"server"`
	Logging    Logging `yaml:"logging"`
}

// Server contains REST API configuration
type Server struct {
	Port   int    `yaml:"port"`
	Bind   string `yaml:"bind"`
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	layout := store.DefaultLayout()
	return &Config{
		DataFile:   "bicis.dat",
		Stations:   layout.Stations,
		Capacity:   layout.Capacity,
		Fsync:      true,
		JournalDir: "bicis.journal",
		Server: Server{
			Port: 8080,
			Bind: "127.0.0.1",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Layout returns the store layout described by the configuration
func (c *Config) Layout() store.Layout {
	return store.Layout{Stations: c.Stations, Capacity: c.Capacity}
}

// Validate checks the configuration for values the store cannot use
func (c *Config) Validate() error {
	if c.DataFile == "" {
		return fmt.Errorf("data_file is required")
	}
	if err := c.Layout().Validate(); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

// Verbose reports whether request level logging is enabled
func (c *Config) Verbose() bool {
	return c.Logging.Level == "debug" || c.Logging.Level == "info"
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file carries the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates and saves a new configuration with a generated API key
func BootstrapConfig(configPath string, dataFile string) (*Config, error) {
	config := DefaultConfig()
	if dataFile != "" {
		config.DataFile = dataFile
		config.JournalDir = dataFile + ".journal"
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./bicis.yaml"
	}

	// For Linux/macOS, use ~/.config/bicis/config.yaml
	return filepath.Join(homeDir, ".config", "bicis", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

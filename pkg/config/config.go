package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	UI          UIConfig          `mapstructure:"ui" yaml:"ui"`
	Keybindings map[string]string `mapstructure:"keybindings" yaml:"keybindings"`
	General     GeneralConfig     `mapstructure:"general" yaml:"general"`
}

// UIConfig represents UI-specific configuration
type UIConfig struct {
	Theme            string `mapstructure:"theme" yaml:"theme"`
	TimeFormat       string `mapstructure:"time_format" yaml:"time_format"`
	LocalTime        bool   `mapstructure:"local_time" yaml:"local_time"`
	FilterDebounceMs int    `mapstructure:"filter_debounce_ms" yaml:"filter_debounce_ms"`
	ShowLineNumbers  bool   `mapstructure:"show_line_numbers" yaml:"show_line_numbers"`
}

// GeneralConfig represents general application settings
type GeneralConfig struct {
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	AutoReload bool   `mapstructure:"auto_reload" yaml:"auto_reload"`
	ExportDir  string `mapstructure:"export_dir" yaml:"export_dir"`
}

// Themes lists the accepted values of ui.theme
var Themes = []string{"dark", "light", "monochrome"}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		UI: UIConfig{
			Theme:            "dark",
			TimeFormat:       "2006-01-02T15:04:05.000Z07:00",
			LocalTime:        false,
			FilterDebounceMs: 0,
			ShowLineNumbers:  false,
		},
		Keybindings: map[string]string{
			"quit":         "q",
			"filter":       "f",
			"search":       "/",
			"escape":       "esc",
			"next_match":   "n",
			"prev_match":   "N",
			"first_match":  "<",
			"last_match":   ">",
			"select":       "space",
			"copy":         "y",
			"export":       "e",
			"details":      "enter",
			"reload":       "r",
			"reset_filter": "c",
			"clear_search": "x",
			"scroll_up":    "k",
			"scroll_down":  "j",
			"page_up":      "ctrl+u",
			"page_down":    "ctrl+d",
			"goto_top":     "g",
			"goto_bottom":  "G",
			"next_field":   "tab",
			"prev_field":   "shift+tab",
			"help":         "?",
		},
		General: GeneralConfig{
			LogLevel:   "info",
			LogFile:    "",
			AutoReload: false,
			ExportDir:  ".",
		},
	}
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	appConfigDir := filepath.Join(configDir, "lvx")

	if err := os.MkdirAll(appConfigDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return appConfigDir, nil
}

// DefaultPath returns the path of config.yaml in ConfigDir
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads the configuration from the default location, creating the file
// with defaults when it does not exist yet
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from path. A missing file is created with
// the defaults.
func LoadFrom(path string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := SaveTo(config, path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return config, nil
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// keys missing from the file keep their defaults
	if config.Keybindings == nil {
		config.Keybindings = make(map[string]string)
	}
	for action, key := range DefaultConfig().Keybindings {
		if _, ok := config.Keybindings[action]; !ok {
			config.Keybindings[action] = key
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveTo writes the configuration as YAML
func SaveTo(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that cannot be repaired silently
func (c *Config) Validate() error {
	valid := false
	for _, theme := range Themes {
		if c.UI.Theme == theme {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown theme %q (want one of %v)", c.UI.Theme, Themes)
	}

	if c.UI.FilterDebounceMs < 0 {
		return fmt.Errorf("ui.filter_debounce_ms must not be negative, got %d", c.UI.FilterDebounceMs)
	}

	return nil
}

// YAML renders the configuration as it would be saved
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return string(data), nil
}

// GetKeybinding returns the key binding for a given action
func (c *Config) GetKeybinding(action string) string {
	if binding, exists := c.Keybindings[action]; exists {
		return binding
	}
	defaults := DefaultConfig()
	return defaults.Keybindings[action]
}

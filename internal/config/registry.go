package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "backlight"
	configFile = "config.yaml"
)

var (
	registryOnce sync.Once
	registry     *Registry
	registryErr  error

	// saveMu serializes writers of config.yaml within the process.
	saveMu sync.Mutex
)

// GetConfigDir returns the directory holding config.yaml and the palette's
// log file: %LOCALAPPDATA%\backlight on Windows, ~/.config/backlight on
// macOS, and $XDG_CONFIG_HOME/backlight (default ~/.config) elsewhere.
func GetConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			profile := os.Getenv("USERPROFILE")
			if profile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			base = filepath.Join(profile, "AppData", "Local")
		}
		return filepath.Join(base, appName), nil
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && runtime.GOOS != "darwin" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// GetConfigPath returns the path of config.yaml.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadRegistry returns the process-wide registry, reading config.yaml on
// first use. A missing file yields the default preferences and no daemons.
func LoadRegistry() (*Registry, error) {
	registryOnce.Do(func() {
		registry, registryErr = loadRegistryFromDisk()
	})
	return registry, registryErr
}

func loadRegistryFromDisk() (*Registry, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if reg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d (expected 1)", reg.Version)
	}

	if reg.Daemons == nil {
		reg.Daemons = make(map[string]*Daemon)
	}
	if reg.Preferences == nil {
		reg.Preferences = defaultPreferences()
	}
	if err := reg.Preferences.validate(); err != nil {
		return nil, fmt.Errorf("invalid preferences: %w", err)
	}
	return &reg, nil
}

// configHeader heads every saved config.yaml.
const configHeader = `# Backlight Configuration File
# Known daemons, their board labels, and palette preferences.
# Daemon credentials are read from BACKLIGHT_USERNAME and BACKLIGHT_PASSWORD,
# never from this file.

`

// Save writes the registry to config.yaml through a temporary file and a
// rename, so a crash leaves either the old or the new file.
func (r *Registry) Save() error {
	saveMu.Lock()
	defer saveMu.Unlock()

	path, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	body, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append([]byte(configHeader), body...), 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// validate rejects preference values no command could honor.
func (p *Preferences) validate() error {
	switch p.Transport {
	case "", "http", "ws":
	default:
		return fmt.Errorf("unknown transport %q (expected http or ws)", p.Transport)
	}
	if p.Board < 0 {
		return fmt.Errorf("board must not be negative, got %d", p.Board)
	}
	return nil
}

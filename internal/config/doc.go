// Package config provides user configuration management for backlight.
//
// This package manages a YAML-based configuration file that remembers known
// daemons (address, transport, nickname, board labels) and application
// preferences such as the default board and the palette a new session starts
// with. The configuration follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/backlight/config.yaml or $HOME/.config/backlight/config.yaml
//   - macOS: $HOME/.config/backlight/config.yaml
//   - Windows: %LOCALAPPDATA%\backlight\config.yaml
//
// # Security
//
// Daemon credentials are never stored. They come from BACKLIGHT_USERNAME and
// BACKLIGHT_PASSWORD.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.UpdateDaemonLastSeen("desk", "192.168.1.50:7878", "")
//	registry.SetBoardLabel("desk", 0, "Monitor")
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config

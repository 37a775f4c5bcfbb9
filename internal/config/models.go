package config

import (
	"time"

	"github.com/muurk/backlight/internal/color"
)

// Preference defaults.
const (
	DefaultDiscoverTimeout = 5    // seconds
	DefaultSyncTimeoutMS   = 2000 // milliseconds
	DefaultTransport       = "http"
)

// Registry represents the entire user configuration file.
// It remembers known daemons and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Daemons     map[string]*Daemon `yaml:"daemons,omitempty"` // Keyed by name (mDNS instance or user choice)
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Daemon represents a known backlight daemon.
type Daemon struct {
	Address     string         `yaml:"address"`                // host:port or URL
	Transport   string         `yaml:"transport,omitempty"`    // "http" or "ws"; empty uses the preference
	Nickname    string         `yaml:"nickname,omitempty"`     // User-friendly name
	ID          string         `yaml:"id,omitempty"`           // Daemon identity from its TXT record
	LastSeen    time.Time      `yaml:"last_seen,omitempty"`    // Last discovery/connection time
	BoardLabels map[int]string `yaml:"board_labels,omitempty"` // Client-side board names
}

// Preferences represents application-wide user preferences.
// Command-line flags override these.
type Preferences struct {
	AutoDiscover    bool        `yaml:"auto_discover"`             // Discover a daemon over mDNS when none is configured
	DiscoverTimeout int         `yaml:"discover_timeout"`          // mDNS discovery timeout in seconds
	DefaultDaemon   string      `yaml:"default_daemon,omitempty"`  // Name of the daemon to use without --daemon
	Transport       string      `yaml:"transport,omitempty"`       // "http" or "ws"
	Board           int         `yaml:"board"`                     // Board the palette drives
	SyncTimeoutMS   int         `yaml:"sync_timeout_ms,omitempty"` // Per-call daemon timeout
	DefaultPalette  []color.RGB `yaml:"default_palette,omitempty"` // Swatches a new palette starts with
}

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:    true,
		DiscoverTimeout: DefaultDiscoverTimeout,
		Transport:       DefaultTransport,
		SyncTimeoutMS:   DefaultSyncTimeoutMS,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Daemons:     make(map[string]*Daemon),
		Preferences: defaultPreferences(),
	}
}

// GetDaemon retrieves a daemon by name.
// Returns nil if the daemon doesn't exist in the registry.
func (r *Registry) GetDaemon(name string) *Daemon {
	return r.Daemons[name]
}

// EnsureDaemon ensures a daemon entry exists in the registry.
// If it doesn't exist, creates a new entry with default values.
func (r *Registry) EnsureDaemon(name string) *Daemon {
	if r.Daemons == nil {
		r.Daemons = make(map[string]*Daemon)
	}

	if d, exists := r.Daemons[name]; exists {
		return d
	}

	d := &Daemon{BoardLabels: make(map[int]string)}
	r.Daemons[name] = d
	return d
}

// UpdateDaemonLastSeen records a successful discovery or connection.
func (r *Registry) UpdateDaemonLastSeen(name, address, id string) {
	d := r.EnsureDaemon(name)
	d.LastSeen = time.Now()
	d.Address = address
	if id != "" {
		d.ID = id
	}
}

// SetBoardLabel names a board on a daemon. An empty label removes it.
func (r *Registry) SetBoardLabel(name string, board int, label string) {
	d := r.EnsureDaemon(name)
	if d.BoardLabels == nil {
		d.BoardLabels = make(map[int]string)
	}
	if label == "" {
		delete(d.BoardLabels, board)
		return
	}
	d.BoardLabels[board] = label
}

// SetDaemonNickname sets a user-friendly nickname for a daemon.
func (r *Registry) SetDaemonNickname(name, nickname string) {
	d := r.EnsureDaemon(name)
	d.Nickname = nickname
}

// ResolveDaemon finds a daemon by name, nickname or address.
func (r *Registry) ResolveDaemon(ref string) (string, *Daemon) {
	if d, ok := r.Daemons[ref]; ok {
		return ref, d
	}
	for name, d := range r.Daemons {
		if d.Nickname == ref || d.Address == ref {
			return name, d
		}
	}
	return "", nil
}

// Palette returns the configured default palette, or the built-in one.
func (p *Preferences) Palette() []color.RGB {
	if p == nil || len(p.DefaultPalette) == 0 {
		return color.DefaultPalette()
	}
	return append([]color.RGB(nil), p.DefaultPalette...)
}

// SyncTimeout returns the per-call daemon timeout.
func (p *Preferences) SyncTimeout() time.Duration {
	if p == nil || p.SyncTimeoutMS <= 0 {
		return DefaultSyncTimeoutMS * time.Millisecond
	}
	return time.Duration(p.SyncTimeoutMS) * time.Millisecond
}

// DiscoverDuration returns the mDNS discovery timeout.
func (p *Preferences) DiscoverDuration() time.Duration {
	if p == nil || p.DiscoverTimeout <= 0 {
		return DefaultDiscoverTimeout * time.Second
	}
	return time.Duration(p.DiscoverTimeout) * time.Second
}

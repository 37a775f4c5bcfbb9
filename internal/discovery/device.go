package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// TXT record keys published by backlight daemons.
const (
	TxtID        = "id"
	TxtBoards    = "boards"
	TxtVersion   = "version"
	TxtWebSocket = "ws"
)

// Device represents a backlight daemon found on the network
type Device struct {
	// ID is the daemon's instance id from its TXT record
	ID string

	// Instance is the mDNS instance name (e.g., "backlight-3f2a9c")
	Instance string

	// Hostname is the mDNS hostname (e.g., "studio.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the daemon's HTTP port
	Port int

	// Metadata contains the mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the daemon was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the daemon
func (d *Device) String() string {
	return fmt.Sprintf("backlight daemon %s (%s) at %s", d.Instance, d.Hostname, d.Address())
}

// Address returns "ip:port", bracketing IPv6 addresses
func (d *Device) Address() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// BaseURL returns the HTTP base URL for the daemon
func (d *Device) BaseURL() string {
	return "http://" + d.Address()
}

// Boards returns the advertised board count, 0 if unknown
func (d *Device) Boards() int {
	n, err := strconv.Atoi(d.GetMetadata(TxtBoards))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

package discovery

import (
	"fmt"
	"strconv"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/backlight/internal/logging"
	"github.com/muurk/backlight/internal/protocol"
)

// Advertisement publishes a daemon over mDNS until Shutdown.
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise registers a daemon instance on all interfaces.
func Advertise(instance, id string, port, boards int, version string) (*Advertisement, error) {
	txt := AdvertiseText(id, boards, version)

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising daemon over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertisement{server: server}, nil
}

// AdvertiseText builds the TXT records for a daemon.
func AdvertiseText(id string, boards int, version string) []string {
	return []string{
		TxtID + "=" + id,
		TxtBoards + "=" + strconv.Itoa(boards),
		TxtVersion + "=" + version,
		TxtWebSocket + "=" + protocol.PathWebSocket,
	}
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}

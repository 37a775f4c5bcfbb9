package daemon

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/protocol"
)

const (
	// DefaultPort is the port backlight-server listens on.
	DefaultPort = 7878

	// UsernameEnvVar and PasswordEnvVar hold optional basic auth credentials.
	UsernameEnvVar = "BACKLIGHT_USERNAME"
	PasswordEnvVar = "BACKLIGHT_PASSWORD"
)

// Transport names accepted by Dial.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "ws"
)

// Board describes one board of a daemon.
type Board = protocol.BoardInfo

// Daemon reads and writes the color of a board.
type Daemon interface {
	Color(ctx context.Context, board int) (color.RGB, error)
	SetColor(ctx context.Context, board int, c color.RGB) error
}

// Lister is implemented by daemons that can enumerate their boards.
type Lister interface {
	Boards(ctx context.Context) ([]Board, error)
}

// Credentials returns the basic auth credentials from the environment.
func Credentials() (username, password string) {
	return os.Getenv(UsernameEnvVar), os.Getenv(PasswordEnvVar)
}

// Dial returns a client for address over the named transport. address is
// "host:port" or a full http(s)/ws(s) URL.
func Dial(address, transport string) (Daemon, error) {
	username, password := Credentials()

	switch strings.ToLower(transport) {
	case "", TransportHTTP:
		c := NewClientWithURL(baseURL(address, "http"))
		c.SetAuth(username, password)
		return c, nil
	case TransportWebSocket:
		c := NewWSClient(baseURL(address, "ws") + protocol.PathWebSocket)
		c.SetAuth(username, password)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want %s or %s)", transport, TransportHTTP, TransportWebSocket)
	}
}

// baseURL turns address into a URL with scheme, converting between the
// http and ws families when address already carries a scheme.
func baseURL(address, scheme string) string {
	address = strings.TrimRight(address, "/")
	for _, prefix := range []string{"http://", "https://", "ws://", "wss://"} {
		if rest, ok := strings.CutPrefix(address, prefix); ok {
			address = rest
			if prefix == "https://" || prefix == "wss://" {
				scheme += "s"
			}
			break
		}
	}
	if !strings.Contains(address, ":") {
		address = fmt.Sprintf("%s:%d", address, DefaultPort)
	}
	return scheme + "://" + address
}

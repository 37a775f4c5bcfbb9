package daemon

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/logging"
	"github.com/muurk/backlight/internal/protocol"
)

// WSClient talks to a daemon over a single WebSocket connection.
//
// Requests are serialized: one request is in flight at a time and its reply
// is matched by id. The connection is only read during a request, so
// "changed" broadcasts from other clients reach OnChanged on the next
// request rather than as they happen. The daemon echoes a set_color back as
// a broadcast; that echo is dropped. The connection is dialed lazily and
// redialed after any I/O error.
type WSClient struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
	Dialer   *websocket.Dialer

	// OnChanged, when set, receives broadcasts seen between replies.
	OnChanged func(board int, c color.RGB)

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSClient creates a client for a daemon WebSocket URL such as
// "ws://127.0.0.1:7878/ws".
func NewWSClient(url string) *WSClient {
	return &WSClient{
		URL:     url,
		Timeout: DefaultTimeout,
		Dialer:  websocket.DefaultDialer,
	}
}

// SetAuth sets HTTP Basic Auth credentials sent with the upgrade request.
func (c *WSClient) SetAuth(username, password string) {
	c.Username = username
	c.Password = password
}

// Close closes the connection, if any.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *WSClient) closeLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Color reads the color of board.
func (c *WSClient) Color(ctx context.Context, board int) (color.RGB, error) {
	reply, err := c.roundTrip(ctx, protocol.NewGetColor(uuid.NewString(), board))
	if err != nil {
		return color.RGB{}, withBoard(err, board)
	}
	if reply.Op != protocol.OpColor || reply.Color == nil {
		return color.RGB{}, NewProtocolError(fmt.Sprintf("unexpected reply %s to get_color", reply.Op), nil)
	}
	return *reply.Color, nil
}

// SetColor writes the color of board.
func (c *WSClient) SetColor(ctx context.Context, board int, rgb color.RGB) error {
	reply, err := c.roundTrip(ctx, protocol.NewSetColor(uuid.NewString(), board, rgb))
	if err != nil {
		return withBoard(err, board)
	}
	if reply.Op != protocol.OpOK {
		return NewProtocolError(fmt.Sprintf("unexpected reply %s to set_color", reply.Op), nil)
	}
	return nil
}

// Boards lists the daemon's boards.
func (c *WSClient) Boards(ctx context.Context) ([]Board, error) {
	reply, err := c.roundTrip(ctx, protocol.NewListBoards(uuid.NewString()))
	if err != nil {
		return nil, err
	}
	if reply.Op != protocol.OpBoards {
		return nil, NewProtocolError(fmt.Sprintf("unexpected reply %s to list_boards", reply.Op), nil)
	}
	return reply.Boards, nil
}

func (c *WSClient) roundTrip(ctx context.Context, req *protocol.Message) (*protocol.Message, error) {
	data, err := protocol.Encode(req)
	if err != nil {
		return nil, NewProtocolError("failed to encode request", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	_ = c.conn.SetReadDeadline(deadline)

	logging.LogWebSocketMessage(c.URL, "send", data)
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = c.closeLocked()
		return nil, NewNetworkError("failed to send request", err)
	}

	echo := req.Op == protocol.OpSetColor
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			_ = c.closeLocked()
			return nil, NewNetworkError("failed to read reply", err)
		}
		logging.LogWebSocketMessage(c.URL, "recv", raw)

		msg, err := protocol.Decode(raw)
		if err != nil {
			return nil, NewProtocolError("invalid reply", err)
		}

		switch {
		case msg.Op == protocol.OpChanged && echo && isEcho(req, msg):
			echo = false
		case msg.Op == protocol.OpChanged:
			if c.OnChanged != nil {
				c.OnChanged(msg.Board, *msg.Color)
			}
		case msg.ID != req.ID:
			logging.Debug("Dropping stale reply", zap.String("id", msg.ID), zap.String("want", req.ID))
		case msg.Op == protocol.OpError:
			return nil, remoteError(msg.Board, msg.Code, msg.Error)
		default:
			return msg, nil
		}
	}
}

// isEcho reports whether a "changed" broadcast is the daemon repeating the
// set_color request back to its sender.
func isEcho(req, msg *protocol.Message) bool {
	return msg.Color != nil && req.Color != nil &&
		msg.Board == req.Board && *msg.Color == *req.Color
}

func (c *WSClient) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	header := http.Header{}
	if c.Username != "" {
		token := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
		header.Set("Authorization", "Basic "+token)
	}

	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, c.URL, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized {
				return NewAuthError("authentication failed (check credentials)")
			}
			return NewHTTPError(resp.StatusCode, fmt.Sprintf("websocket upgrade failed with status %d", resp.StatusCode))
		}
		devErr := NewNetworkError("failed to connect", err)
		devErr.Address = c.URL
		return devErr
	}

	logging.LogConnection(c.URL, "connected")
	c.conn = conn
	return nil
}

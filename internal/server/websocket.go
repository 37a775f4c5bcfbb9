package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/daemon"
	"github.com/muurk/backlight/internal/logging"
	"github.com/muurk/backlight/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Outgoing messages buffered per client before it is dropped
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Hosts connect from the CLI, not browsers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks WebSocket clients, answers their requests and fans out
// "changed" broadcasts.
type Hub struct {
	store *daemon.Memory

	mu      sync.RWMutex
	clients map[*wsClient]bool
}

type wsClient struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
}

// NewHub creates a hub serving store.
func NewHub(store *daemon.Memory) *Hub {
	return &Hub{
		store:   store,
		clients: make(map[*wsClient]bool),
	}
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	client := &wsClient{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		remoteAddr: r.RemoteAddr,
	}
	h.addClient(client)
	logging.LogConnection(client.remoteAddr, "websocket_connected")

	go client.writePump()
	go client.readPump()
}

// Broadcast sends msg to every client.
func (h *Hub) Broadcast(msg *protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		logging.Error("Failed to encode broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	var slow []*wsClient
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		logging.Warn("Dropping slow WebSocket client", zap.String("remote_addr", client.remoteAddr))
		h.removeClient(client)
	}
}

// BroadcastChanged implements the store's change hook.
func (h *Hub) BroadcastChanged(board int, c color.RGB) {
	h.Broadcast(protocol.NewChanged(board, c))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.removeClient(client)
	}
}

func (h *Hub) addClient(client *wsClient) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

// removeClient closes the client's send channel; writePump then closes the
// connection.
func (h *Hub) removeClient(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

// reply queues data for client if it is still connected.
func (h *Hub) reply(client *wsClient, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return false
	}
	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}

// handle answers one request.
func (h *Hub) handle(ctx context.Context, req *protocol.Message) *protocol.Message {
	switch req.Op {
	case protocol.OpGetColor:
		c, err := h.store.Color(ctx, req.Board)
		if err != nil {
			return errorReply(req, err)
		}
		return protocol.NewColorReply(req.ID, req.Board, c)

	case protocol.OpSetColor:
		if err := h.store.SetColor(ctx, req.Board, *req.Color); err != nil {
			return errorReply(req, err)
		}
		return protocol.NewOK(req.ID, req.Board)

	case protocol.OpListBoards:
		boards, _ := h.store.Boards(ctx)
		return protocol.NewBoardsReply(req.ID, boards)

	default:
		return &protocol.Message{ID: req.ID, Op: protocol.OpError, Board: req.Board,
			Code: protocol.CodeBadRequest, Error: "unexpected op " + string(req.Op)}
	}
}

func errorReply(req *protocol.Message, err error) *protocol.Message {
	code := protocol.CodeInternal
	if daemon.IsBoardError(err) {
		code = protocol.CodeUnknownBoard
	}
	return protocol.NewError(req.ID, req.Board, code, err)
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.removeClient(c)
		logging.LogConnection(c.remoteAddr, "websocket_closed")
	}()

	c.conn.SetReadLimit(protocol.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("WebSocket read error", zap.String("remote_addr", c.remoteAddr), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		logging.LogWebSocketMessage(c.remoteAddr, "recv", data)

		var reply *protocol.Message
		req, err := protocol.Decode(data)
		switch {
		case err != nil:
			reply = &protocol.Message{ID: "invalid", Op: protocol.OpError, Code: protocol.CodeBadRequest, Error: err.Error()}
		case !req.Op.IsRequest():
			reply = &protocol.Message{ID: req.ID, Op: protocol.OpError, Board: req.Board,
				Code: protocol.CodeBadRequest, Error: "not a request: " + string(req.Op)}
		default:
			reply = c.hub.handle(context.Background(), req)
		}

		out, err := protocol.Encode(reply)
		if err != nil {
			logging.Error("Failed to encode reply", zap.Error(err))
			continue
		}
		if !c.hub.reply(c, out) {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			logging.LogWebSocketMessage(c.remoteAddr, "send", message)
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/daemon"
	"github.com/muurk/backlight/internal/protocol"
)

func newTestServer(t *testing.T, config *Config) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().CloseAll()
		ts.Close()
	})
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + protocol.PathWebSocket
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *protocol.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", data, err)
	}
	return msg
}

func TestNewDefaults(t *testing.T) {
	srv, err := New(&Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	boards := srv.Store().Snapshot()
	if len(boards) != DefaultBoards || boards[0].Color != color.Black {
		t.Errorf("boards = %+v, want one black board", boards)
	}
	if srv.ID() == "" {
		t.Error("ID() should not be empty")
	}
	if srv.Addr() != nil {
		t.Error("Addr() should be nil before Listen")
	}
}

func TestHTTPColorRoundTrip(t *testing.T) {
	_, ts := newTestServer(t, &Config{Boards: 2})
	client := daemon.NewClientWithURL(ts.URL)
	ctx := context.Background()

	if err := client.SetColor(ctx, 1, color.New(0, 0, 255)); err != nil {
		t.Fatalf("SetColor() error = %v", err)
	}
	got, err := client.Color(ctx, 1)
	if err != nil {
		t.Fatalf("Color() error = %v", err)
	}
	if got != color.New(0, 0, 255) {
		t.Errorf("Color() = %v, want rgb(0, 0, 255)", got)
	}

	boards, err := client.Boards(ctx)
	if err != nil {
		t.Fatalf("Boards() error = %v", err)
	}
	if len(boards) != 2 || boards[0].Color != color.Black {
		t.Errorf("Boards() = %+v", boards)
	}
	if err := client.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestHTTPErrors(t *testing.T) {
	_, ts := newTestServer(t, &Config{Boards: 1})

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"unknown board", http.MethodGet, "/api/boards/4/color", "", http.StatusNotFound, protocol.CodeUnknownBoard},
		{"non-numeric board", http.MethodGet, "/api/boards/desk/color", "", http.StatusBadRequest, protocol.CodeBadRequest},
		{"negative board", http.MethodGet, "/api/boards/-1/color", "", http.StatusBadRequest, protocol.CodeBadRequest},
		{"bad color", http.MethodPut, "/api/boards/0/color", `{"board":0,"color":"#zzz"}`, http.StatusBadRequest, protocol.CodeBadRequest},
		{"board mismatch", http.MethodPut, "/api/boards/0/color", `{"board":3,"color":"#ffffff"}`, http.StatusBadRequest, protocol.CodeBadRequest},
		{"missing color", http.MethodPut, "/api/boards/0/color", `{"board":0}`, http.StatusBadRequest, protocol.CodeBadRequest},
		{"set unknown board", http.MethodPut, "/api/boards/2/color", `{"board":2,"color":"#ffffff"}`, http.StatusNotFound, protocol.CodeUnknownBoard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			var body protocol.ErrorBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Code != tt.wantErr || body.Error == "" {
				t.Errorf("error body = %+v, want code %s", body, tt.wantErr)
			}
		})
	}
}

func TestHTTPSetColorWithoutBoardInBody(t *testing.T) {
	srv, ts := newTestServer(t, &Config{Boards: 2})

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/boards/1/color", strings.NewReader(`{"color":"#00ffff"}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got, _ := srv.Store().Color(context.Background(), 1); got != color.New(0, 255, 255) {
		t.Errorf("board 1 = %v, want #00ffff", got)
	}
}

func TestBasicAuth(t *testing.T) {
	_, ts := newTestServer(t, &Config{Boards: 1, Username: "admin", Password: "secret"})
	ctx := context.Background()

	client := daemon.NewClientWithURL(ts.URL)
	if _, err := client.Color(ctx, 0); !daemon.IsAuthError(err) {
		t.Errorf("Color() without credentials error = %v, want auth error", err)
	}
	if err := client.Ping(ctx); err != nil {
		t.Errorf("health check should not need credentials: %v", err)
	}

	client.SetAuth("admin", "wrong")
	if _, err := client.Color(ctx, 0); !daemon.IsAuthError(err) {
		t.Errorf("Color() with wrong password error = %v, want auth error", err)
	}

	client.SetAuth("admin", "secret")
	if _, err := client.Color(ctx, 0); err != nil {
		t.Errorf("Color() with credentials error = %v", err)
	}

	ws := daemon.NewWSClient("ws" + strings.TrimPrefix(ts.URL, "http") + protocol.PathWebSocket)
	defer ws.Close()
	if _, err := ws.Color(ctx, 0); !daemon.IsAuthError(err) {
		t.Errorf("WebSocket without credentials error = %v, want auth error", err)
	}
	ws.SetAuth("admin", "secret")
	if _, err := ws.Color(ctx, 0); err != nil {
		t.Errorf("WebSocket with credentials error = %v", err)
	}
}

func TestWebSocketRequests(t *testing.T) {
	_, ts := newTestServer(t, &Config{Boards: 2})
	conn := dialWS(t, ts)

	_ = conn.WriteJSON(protocol.NewSetColor("a", 1, color.New(255, 0, 0)))

	// The writer sees its own broadcast as well as the reply.
	var gotOK, gotChanged bool
	for i := 0; i < 2; i++ {
		msg := readMessage(t, conn)
		switch msg.Op {
		case protocol.OpOK:
			gotOK = msg.ID == "a" && msg.Board == 1
		case protocol.OpChanged:
			gotChanged = msg.Board == 1 && *msg.Color == color.New(255, 0, 0)
		}
	}
	if !gotOK || !gotChanged {
		t.Errorf("ok=%v changed=%v, want both", gotOK, gotChanged)
	}

	_ = conn.WriteJSON(protocol.NewGetColor("b", 1))
	if msg := readMessage(t, conn); msg.Op != protocol.OpColor || *msg.Color != color.New(255, 0, 0) {
		t.Errorf("get_color reply = %v", msg)
	}

	_ = conn.WriteJSON(protocol.NewListBoards("c"))
	if msg := readMessage(t, conn); msg.Op != protocol.OpBoards || len(msg.Boards) != 2 {
		t.Errorf("list_boards reply = %v", msg)
	}

	_ = conn.WriteJSON(protocol.NewGetColor("d", 7))
	if msg := readMessage(t, conn); msg.Op != protocol.OpError || msg.Code != protocol.CodeUnknownBoard || msg.ID != "d" {
		t.Errorf("unknown board reply = %v", msg)
	}
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	_, ts := newTestServer(t, &Config{Boards: 1})
	conn := dialWS(t, ts)

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"op":`))
	if msg := readMessage(t, conn); msg.Op != protocol.OpError || msg.Code != protocol.CodeBadRequest {
		t.Errorf("invalid JSON reply = %v", msg)
	}

	_ = conn.WriteJSON(protocol.NewOK("e", 0))
	if msg := readMessage(t, conn); msg.Op != protocol.OpError || msg.ID != "e" {
		t.Errorf("non-request reply = %v", msg)
	}
}

func TestHTTPWriteBroadcastsToWebSocket(t *testing.T) {
	srv, ts := newTestServer(t, &Config{Boards: 1})
	conn := dialWS(t, ts)

	// Wait until the hub has registered the client.
	deadline := time.Now().Add(2 * time.Second)
	for srv.GetActiveConnections() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := daemon.NewClientWithURL(ts.URL).SetColor(context.Background(), 0, color.New(0, 255, 0)); err != nil {
		t.Fatalf("SetColor() error = %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Op != protocol.OpChanged || msg.Board != 0 || *msg.Color != color.New(0, 255, 0) {
		t.Errorf("broadcast = %v, want changed board 0 #00ff00", msg)
	}
}

func TestWSClientAgainstServer(t *testing.T) {
	_, ts := newTestServer(t, &Config{Boards: 3})

	d, err := daemon.Dial(ts.URL, daemon.TransportWebSocket)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	ws := d.(*daemon.WSClient)
	defer ws.Close()

	ctx := context.Background()
	for board := 0; board < 3; board++ {
		want := color.New(uint8(board*40), 10, 20)
		if err := ws.SetColor(ctx, board, want); err != nil {
			t.Fatalf("SetColor(%d) error = %v", board, err)
		}
		got, err := ws.Color(ctx, board)
		if err != nil || got != want {
			t.Errorf("Color(%d) = %v, %v; want %v", board, got, err, want)
		}
	}
}

func TestWSClientIgnoresOwnWrites(t *testing.T) {
	_, ts := newTestServer(t, &Config{Boards: 1})

	d, err := daemon.Dial(ts.URL, daemon.TransportWebSocket)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	ws := d.(*daemon.WSClient)
	defer ws.Close()

	var changed []color.RGB
	ws.OnChanged = func(_ int, c color.RGB) { changed = append(changed, c) }

	ctx := context.Background()
	if err := ws.SetColor(ctx, 0, color.New(1, 2, 3)); err != nil {
		t.Fatalf("SetColor() error = %v", err)
	}
	if _, err := ws.Color(ctx, 0); err != nil {
		t.Fatalf("Color() error = %v", err)
	}
	if len(changed) != 0 {
		t.Fatalf("OnChanged saw %v after only our own write", changed)
	}

	// Another client's write is seen on the next request.
	if err := daemon.NewClientWithURL(ts.URL).SetColor(ctx, 0, color.New(0, 0, 255)); err != nil {
		t.Fatalf("HTTP SetColor() error = %v", err)
	}
	if _, err := ws.Color(ctx, 0); err != nil {
		t.Fatalf("Color() error = %v", err)
	}
	if len(changed) != 1 || changed[0] != color.New(0, 0, 255) {
		t.Errorf("OnChanged saw %v, want the other client's blue", changed)
	}
}

func TestStatePersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	srv, err := New(&Config{Boards: 2, StatePath: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Store().SetColor(context.Background(), 1, color.New(1, 2, 3)); err != nil {
		t.Fatalf("SetColor() error = %v", err)
	}

	// Board count from the state file wins over the flag.
	restarted, err := New(&Config{Boards: 5, StatePath: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	boards := restarted.Store().Snapshot()
	if len(boards) != 2 || boards[1].Color != color.New(1, 2, 3) {
		t.Errorf("restored boards = %+v", boards)
	}
}

func TestReloadBroadcastsOnlyChangedBoards(t *testing.T) {
	srv, ts := newTestServer(t, &Config{Boards: 2})
	conn := dialWS(t, ts)

	deadline := time.Now().Add(2 * time.Second)
	for srv.GetActiveConnections() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	srv.Reload([]daemon.Board{
		{Color: color.Black},
		{Label: "shelf", Color: color.New(9, 9, 9)},
	})

	msg := readMessage(t, conn)
	if msg.Op != protocol.OpChanged || msg.Board != 1 {
		t.Errorf("broadcast = %v, want changed for board 1 only", msg)
	}
	if label := srv.Store().Snapshot()[1].Label; label != "shelf" {
		t.Errorf("label = %q, want shelf", label)
	}
}

func TestListenServeShutdown(t *testing.T) {
	srv, err := New(&Config{Host: "127.0.0.1", Port: 0, Boards: 1, StatePath: filepath.Join(t.TempDir(), "state.yaml")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	client := daemon.NewClientWithURL("http://" + srv.Addr().String())
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Serve() did not return after Shutdown")
	}
}

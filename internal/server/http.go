package server

import (
	"bufio"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/daemon"
	"github.com/muurk/backlight/internal/logging"
	"github.com/muurk/backlight/internal/protocol"
	"github.com/muurk/backlight/internal/version"
)

// Handler returns the daemon's HTTP handler: the REST API, the WebSocket
// endpoint and the health check, behind request logging and optional
// basic auth.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+protocol.PathHealth, s.handleHealth)
	mux.HandleFunc("GET "+protocol.PathBoards, s.handleBoards)
	mux.HandleFunc("GET "+protocol.PathBoards+"/{board}/color", s.handleGetColor)
	mux.HandleFunc("PUT "+protocol.PathBoards+"/{board}/color", s.handleSetColor)
	mux.HandleFunc("GET "+protocol.PathWebSocket, s.hub.ServeWS)

	return logRequests(s.requireAuth(mux))
}

type healthBody struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Version string `json:"version"`
	Boards  int    `json:"boards"`
	Clients int    `json:"clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{
		Status:  "ok",
		ID:      s.id,
		Version: version.Version,
		Boards:  len(s.store.Snapshot()),
		Clients: s.hub.ClientCount(),
	})
}

func (s *Server) handleBoards(w http.ResponseWriter, r *http.Request) {
	boards, _ := s.store.Boards(r.Context())
	writeJSON(w, http.StatusOK, protocol.BoardsBody{Boards: boards})
}

func (s *Server) handleGetColor(w http.ResponseWriter, r *http.Request) {
	board, ok := boardParam(w, r)
	if !ok {
		return
	}
	c, err := s.store.Color(r.Context(), board)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.ColorBody{Board: board, Color: c})
}

func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	board, ok := boardParam(w, r)
	if !ok {
		return
	}

	// board is optional in the body; the path is authoritative.
	var body struct {
		Board *int       `json:"board"`
		Color *color.RGB `json:"color"`
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, protocol.MaxMessageSize))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, protocol.CodeBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if body.Color == nil {
		writeError(w, http.StatusBadRequest, protocol.CodeBadRequest, "missing color")
		return
	}
	if body.Board != nil && *body.Board != board {
		writeError(w, http.StatusBadRequest, protocol.CodeBadRequest,
			fmt.Sprintf("body names board %d, path names board %d", *body.Board, board))
		return
	}

	if err := s.store.SetColor(r.Context(), board, *body.Color); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func boardParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("board")
	board, err := strconv.Atoi(raw)
	if err != nil || board < 0 {
		writeError(w, http.StatusBadRequest, protocol.CodeBadRequest, fmt.Sprintf("invalid board %q", raw))
		return 0, false
	}
	return board, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if daemon.IsBoardError(err) {
		writeError(w, http.StatusNotFound, protocol.CodeUnknownBoard, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, protocol.CodeInternal, err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, protocol.ErrorBody{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

// requireAuth enforces basic auth when a username is configured. The health
// check stays open so discovery can probe the daemon.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	if s.config.Username == "" {
		return next
	}
	user, pass := []byte(s.config.Username), []byte(s.config.Password)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == protocol.PathHealth {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), user) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pass) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="backlight"`)
			writeError(w, http.StatusUnauthorized, "", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}

package protocol

import (
	"strconv"

	"github.com/muurk/backlight/internal/color"
)

// HTTP API paths served by the daemon.
const (
	PathBoards    = "/api/boards"
	PathHealth    = "/healthz"
	PathWebSocket = "/ws"
)

// ColorPath returns the color resource path of board.
func ColorPath(board int) string {
	return PathBoards + "/" + strconv.Itoa(board) + "/color"
}

// ColorBody is the body of GET and PUT on a board's color resource.
type ColorBody struct {
	Board int       `json:"board"`
	Color color.RGB `json:"color"`
}

// BoardsBody is the body of GET /api/boards.
type BoardsBody struct {
	Boards []BoardInfo `json:"boards"`
}

// ErrorBody is returned with every non-2xx status.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

package protocol

import (
	"errors"
	"fmt"

	"github.com/muurk/backlight/internal/color"
)

// Op identifies the kind of message.
type Op string

// Request ops.
const (
	OpGetColor   Op = "get_color"
	OpSetColor   Op = "set_color"
	OpListBoards Op = "list_boards"
)

// Reply and broadcast ops.
const (
	OpColor   Op = "color"
	OpOK      Op = "ok"
	OpBoards  Op = "boards"
	OpError   Op = "error"
	OpChanged Op = "changed"
)

// IsRequest reports whether op is sent by clients.
func (op Op) IsRequest() bool {
	switch op {
	case OpGetColor, OpSetColor, OpListBoards:
		return true
	}
	return false
}

// IsReply reports whether op answers a request.
func (op Op) IsReply() bool {
	switch op {
	case OpColor, OpOK, OpBoards, OpError:
		return true
	}
	return false
}

func (op Op) valid() bool {
	return op.IsRequest() || op.IsReply() || op == OpChanged
}

// Error codes carried by error replies.
const (
	CodeBadRequest   = "bad_request"
	CodeUnknownBoard = "unknown_board"
	CodeInternal     = "internal"
)

// BoardInfo describes one board of a daemon.
type BoardInfo struct {
	Index int       `json:"index"`
	Label string    `json:"label,omitempty"`
	Color color.RGB `json:"color"`
}

// Message is the envelope shared by all ops.
type Message struct {
	ID     string      `json:"id,omitempty"`
	Op     Op          `json:"op"`
	Board  int         `json:"board"`
	Color  *color.RGB  `json:"color,omitempty"`
	Error  string      `json:"error,omitempty"`
	Code   string      `json:"code,omitempty"`
	Boards []BoardInfo `json:"boards,omitempty"`
}

// ErrRemote is wrapped by errors reported by the daemon in an error reply.
var ErrRemote = errors.New("daemon error")

// Err returns the remote error carried by an error reply, nil otherwise.
func (m *Message) Err() error {
	if m.Op != OpError {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRemote, m.Error)
}

// String returns a short description for logs.
func (m *Message) String() string {
	switch m.Op {
	case OpSetColor, OpColor, OpChanged:
		c := "<nil>"
		if m.Color != nil {
			c = m.Color.Hex()
		}
		return fmt.Sprintf("%s[%s] board=%d color=%s", m.Op, m.ID, m.Board, c)
	case OpError:
		return fmt.Sprintf("%s[%s] %s", m.Op, m.ID, m.Error)
	case OpBoards:
		return fmt.Sprintf("%s[%s] n=%d", m.Op, m.ID, len(m.Boards))
	default:
		return fmt.Sprintf("%s[%s] board=%d", m.Op, m.ID, m.Board)
	}
}

package protocol

import "github.com/muurk/backlight/internal/color"

// NewGetColor builds a get_color request.
func NewGetColor(id string, board int) *Message {
	return &Message{ID: id, Op: OpGetColor, Board: board}
}

// NewSetColor builds a set_color request.
func NewSetColor(id string, board int, c color.RGB) *Message {
	return &Message{ID: id, Op: OpSetColor, Board: board, Color: &c}
}

// NewListBoards builds a list_boards request.
func NewListBoards(id string) *Message {
	return &Message{ID: id, Op: OpListBoards}
}

// NewColorReply answers a get_color request.
func NewColorReply(id string, board int, c color.RGB) *Message {
	return &Message{ID: id, Op: OpColor, Board: board, Color: &c}
}

// NewOK answers a set_color request.
func NewOK(id string, board int) *Message {
	return &Message{ID: id, Op: OpOK, Board: board}
}

// NewBoardsReply answers a list_boards request.
func NewBoardsReply(id string, boards []BoardInfo) *Message {
	return &Message{ID: id, Op: OpBoards, Boards: boards}
}

// NewError answers any request with a failure. code is one of the Code
// constants.
func NewError(id string, board int, code string, err error) *Message {
	return &Message{ID: id, Op: OpError, Board: board, Code: code, Error: err.Error()}
}

// NewChanged is broadcast after a board's color changed.
func NewChanged(board int, c color.RGB) *Message {
	return &Message{Op: OpChanged, Board: board, Color: &c}
}

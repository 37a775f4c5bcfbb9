package daemon

import (
	"context"
	"sync"

	"github.com/muurk/backlight/internal/color"
)

// Memory is an in-memory daemon. It backs the reference server, the
// --offline host mode and tests. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	boards   []Board
	onChange []func(board int, c color.RGB)
}

// NewMemory creates n boards, all set to initial.
func NewMemory(n int, initial color.RGB) *Memory {
	m := &Memory{boards: make([]Board, n)}
	for i := range m.boards {
		m.boards[i] = Board{Index: i, Color: initial}
	}
	return m
}

// Color implements Daemon.
func (m *Memory) Color(_ context.Context, board int) (color.RGB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if board < 0 || board >= len(m.boards) {
		return color.RGB{}, NewBoardError(board)
	}
	return m.boards[board].Color, nil
}

// SetColor implements Daemon. Change observers run after the lock is
// released.
func (m *Memory) SetColor(_ context.Context, board int, c color.RGB) error {
	m.mu.Lock()
	if board < 0 || board >= len(m.boards) {
		m.mu.Unlock()
		return NewBoardError(board)
	}
	m.boards[board].Color = c
	observers := append([]func(int, color.RGB){}, m.onChange...)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(board, c)
	}
	return nil
}

// Boards implements Lister.
func (m *Memory) Boards(_ context.Context) ([]Board, error) {
	return m.Snapshot(), nil
}

// Snapshot returns a copy of every board.
func (m *Memory) Snapshot() []Board {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Board, len(m.boards))
	copy(out, m.boards)
	return out
}

// Restore replaces the board list, e.g. after loading a state file. Boards
// are re-indexed by position. Observers are not notified.
func (m *Memory) Restore(boards []Board) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards = make([]Board, len(boards))
	for i, b := range boards {
		b.Index = i
		m.boards[i] = b
	}
}

// SetLabel names a board.
func (m *Memory) SetLabel(board int, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if board < 0 || board >= len(m.boards) {
		return NewBoardError(board)
	}
	m.boards[board].Label = label
	return nil
}

// OnChange registers fn to run after every successful SetColor.
func (m *Memory) OnChange(fn func(board int, c color.RGB)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

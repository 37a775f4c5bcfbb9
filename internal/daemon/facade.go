package daemon

import (
	"context"
	"time"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/logging"
)

// DefaultSyncTimeout bounds one facade call.
const DefaultSyncTimeout = 2 * time.Second

// Facade binds a daemon to one board for the palette. Failures are wrapped
// in *SyncError and logged; the facade never retries.
type Facade struct {
	Daemon  Daemon
	Board   int
	Timeout time.Duration
}

// NewFacade returns a facade with the default timeout.
func NewFacade(d Daemon, board int) *Facade {
	return &Facade{Daemon: d, Board: board, Timeout: DefaultSyncTimeout}
}

// Read returns the board's current color.
func (f *Facade) Read(ctx context.Context) (color.RGB, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	c, err := f.Daemon.Color(ctx, f.Board)
	if err != nil {
		logging.LogDeviceSync("read", f.Board, "", err)
		return color.RGB{}, &SyncError{Op: "read", Board: f.Board, Err: err}
	}
	logging.LogDeviceSync("read", f.Board, c.Hex(), nil)
	return c, nil
}

// ReadOr returns the board's color, or fallback when the read fails.
func (f *Facade) ReadOr(ctx context.Context, fallback color.RGB) (color.RGB, error) {
	c, err := f.Read(ctx)
	if err != nil {
		return fallback, err
	}
	return c, nil
}

// Write sets the board's color.
func (f *Facade) Write(ctx context.Context, c color.RGB) error {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	if err := f.Daemon.SetColor(ctx, f.Board, c); err != nil {
		logging.LogDeviceSync("write", f.Board, c.Hex(), err)
		return &SyncError{Op: "write", Board: f.Board, Err: err}
	}
	logging.LogDeviceSync("write", f.Board, c.Hex(), nil)
	return nil
}

func (f *Facade) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.Timeout)
}

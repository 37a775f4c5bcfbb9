package tui

import (
	"context"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/palette"
)

// syncResultMsg reports the outcome of one push.
type syncResultMsg struct {
	color   color.RGB
	err     error
	skipped bool
}

// pusher runs pushes as commands. Bubble Tea runs commands concurrently, so
// writes are serialized and a push overtaken by a newer one is dropped: the
// last color issued is the last color written.
type pusher struct {
	sync   palette.Syncer
	issued atomic.Uint64
	write  sync.Mutex
}

func newPusher(s palette.Syncer) *pusher {
	return &pusher{sync: s}
}

func (p *pusher) push(ctx context.Context, c color.RGB) tea.Cmd {
	if p == nil || p.sync == nil {
		return nil
	}

	seq := p.issued.Add(1)
	return func() tea.Msg {
		p.write.Lock()
		defer p.write.Unlock()

		if seq < p.issued.Load() {
			return syncResultMsg{color: c, skipped: true}
		}
		return syncResultMsg{color: c, err: p.sync.Write(ctx, c)}
	}
}

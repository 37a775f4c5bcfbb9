package palette

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/logging"
)

// Picker is the modal color chooser. It returns false when the user cancels.
type Picker interface {
	Choose(ctx context.Context, initial *color.RGB, title string) (color.RGB, bool)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context, initial *color.RGB, title string) (color.RGB, bool)

// Choose calls f.
func (f PickerFunc) Choose(ctx context.Context, initial *color.RGB, title string) (color.RGB, bool) {
	return f(ctx, initial, title)
}

// Syncer pushes a color to the device.
type Syncer interface {
	Write(ctx context.Context, c color.RGB) error
}

// Driver runs palette transitions synchronously: it answers picker requests
// with Picker and performs pushes with Syncer before returning.
type Driver struct {
	Palette *Palette
	Picker  Picker
	Sync    Syncer

	// OnSyncError is told about every failed push. It must not block.
	OnSyncError func(error)
}

// NewDriver creates a driver for p.
func NewDriver(p *Palette, picker Picker, sync Syncer) *Driver {
	return &Driver{
		Palette: p,
		Picker:  picker,
		Sync:    sync,
	}
}

// Dispatch applies ev, resolves any picker it opens, pushes the resulting
// color and returns the palette snapshot afterwards.
func (d *Driver) Dispatch(ctx context.Context, ev Event) Snapshot {
	eff := d.Palette.Apply(ev)
	d.Execute(ctx, eff)
	return d.Palette.Snapshot()
}

// Execute carries out effects returned by Palette.Apply.
func (d *Driver) Execute(ctx context.Context, eff Effects) {
	if eff.Picker != nil {
		c, ok := color.RGB{}, false
		if d.Picker != nil {
			c, ok = d.Picker.Choose(ctx, eff.Picker.Initial, eff.Picker.Title)
		}
		// Answering may itself push (cancel confirms the current color).
		d.Execute(ctx, d.Palette.Apply(PickerClosed{Color: c, OK: ok}))
	}

	if eff.Push != nil {
		d.push(ctx, *eff.Push)
	}
}

func (d *Driver) push(ctx context.Context, c color.RGB) {
	if d.Sync == nil {
		return
	}
	if err := d.Sync.Write(ctx, c); err != nil {
		logging.Warn("Push failed, palette state kept",
			zap.String("color", c.Hex()),
			zap.Error(err),
		)
		if d.OnSyncError != nil {
			d.OnSyncError(err)
		}
	}
}

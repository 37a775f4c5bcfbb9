package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/palette"
)

type replayKind int

const (
	replaySelect replayKind = iota
	replayAdd
	replayEdit
	replayRemove
)

// replayStep is one scripted interaction. For add and edit, pick and ok
// are the picker's answer.
type replayStep struct {
	kind  replayKind
	index int
	pick  color.RGB
	ok    bool
}

// parseReplay parses events of the form select=N, add[=COLOR],
// edit[=COLOR] and remove.
func parseReplay(args []string) ([]replayStep, error) {
	steps := make([]replayStep, 0, len(args))
	for _, arg := range args {
		name, value, hasValue := strings.Cut(arg, "=")
		name = strings.ToLower(name)

		var step replayStep
		switch name {
		case "select":
			n, err := strconv.Atoi(value)
			if !hasValue || err != nil || n < 0 {
				return nil, fmt.Errorf("event %q: select needs a swatch index", arg)
			}
			step = replayStep{kind: replaySelect, index: n}

		case "add", "edit":
			step.kind = replayAdd
			if name == "edit" {
				step.kind = replayEdit
			}
			if hasValue {
				c, err := color.Parse(value)
				if err != nil {
					return nil, fmt.Errorf("event %q: %w", arg, err)
				}
				step.pick, step.ok = c, true
			}

		case "remove":
			if hasValue {
				return nil, fmt.Errorf("event %q: remove takes no value", arg)
			}
			step.kind = replayRemove

		default:
			return nil, fmt.Errorf("unknown event %q", arg)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// replay drives pal through steps synchronously, answering pickers from
// the script and pushing through sync.
func replay(ctx context.Context, pal *palette.Palette, sync palette.Syncer, steps []replayStep, onSyncError func(error)) (palette.Snapshot, error) {
	var current replayStep
	picker := palette.PickerFunc(func(context.Context, *color.RGB, string) (color.RGB, bool) {
		return current.pick, current.ok
	})

	driver := palette.NewDriver(pal, picker, sync)
	driver.OnSyncError = onSyncError

	snap := pal.Snapshot()
	for i, step := range steps {
		current = step

		var ev palette.Event
		switch step.kind {
		case replaySelect:
			if step.index >= len(snap.Swatches) {
				return snap, fmt.Errorf("event %d: no swatch at index %d (palette has %d)", i+1, step.index, len(snap.Swatches))
			}
			ev = palette.SelectSwatch{ID: snap.Swatches[step.index].ID}
		case replayAdd:
			ev = palette.AddSwatch{}
		case replayEdit:
			ev = palette.EditSwatch{}
		case replayRemove:
			ev = palette.RemoveSwatch{}
		}
		snap = driver.Dispatch(ctx, ev)
	}
	return snap, nil
}

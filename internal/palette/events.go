package palette

import "github.com/muurk/backlight/internal/color"

// Event is a user interaction fed to Palette.Apply.
type Event interface {
	eventName() string
}

// SelectSwatch is a click on a swatch.
type SelectSwatch struct {
	ID SwatchID
}

// AddSwatch is a click on the trailing add cell.
type AddSwatch struct{}

// RemoveSwatch is a click on the remove button.
type RemoveSwatch struct{}

// EditSwatch is a click on the edit button.
type EditSwatch struct{}

// PickerClosed answers the picker opened by AddSwatch or EditSwatch.
// OK is false when the user cancelled.
type PickerClosed struct {
	Color color.RGB
	OK    bool
}

func (SelectSwatch) eventName() string { return "select" }
func (AddSwatch) eventName() string    { return "add" }
func (RemoveSwatch) eventName() string { return "remove" }
func (EditSwatch) eventName() string   { return "edit" }
func (PickerClosed) eventName() string { return "picker_closed" }

// Purpose says why the picker was opened.
type Purpose int

const (
	PurposeAdd Purpose = iota + 1
	PurposeEdit
)

// PickerRequest asks the host to open the color picker.
type PickerRequest struct {
	Purpose Purpose
	Title   string
	Initial *color.RGB
}

// Effects is what a transition asks the host to do.
type Effects struct {
	// Picker, when set, must be answered with a PickerClosed event.
	Picker *PickerRequest

	// Push is a color to write to the daemon.
	Push *color.RGB

	// Relayout is set after a structural change to the swatch list.
	Relayout bool
}

// None reports whether the transition had no externally visible effect.
func (e Effects) None() bool {
	return e.Picker == nil && e.Push == nil && !e.Relayout
}

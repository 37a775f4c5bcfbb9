package palette

import (
	"fmt"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/grid"
	"github.com/muurk/backlight/internal/logging"
)

// Picker titles shown by hosts.
const (
	TitleAdd  = "Add Color"
	TitleEdit = "Edit Color"
)

// pendingPicker records the picker the palette is waiting on.
type pendingPicker struct {
	purpose Purpose
	target  SwatchID // edit target, NoSwatch for add
}

// Palette owns the swatch list and the current selection. It performs no I/O:
// Apply returns the effects the host must carry out.
//
// A Palette is not safe for concurrent use; it belongs to one host loop.
type Palette struct {
	swatches      []Swatch
	current       SwatchID
	nextID        SwatchID
	removeVisible bool
	published     color.RGB
	pending       *pendingPicker

	subscribers map[int]func(color.RGB)
	nextSub     int
}

// New seeds a palette with defaults in order. deviceColor is the color the
// daemon reported; it becomes the published color and is not added as a
// swatch.
func New(defaults []color.RGB, deviceColor color.RGB) (*Palette, error) {
	if len(defaults) == 0 {
		return nil, fmt.Errorf("palette needs at least one default color")
	}

	p := &Palette{
		swatches:    make([]Swatch, 0, len(defaults)),
		published:   deviceColor,
		subscribers: make(map[int]func(color.RGB)),
	}
	for _, c := range defaults {
		p.appendSwatch(c)
	}
	p.removeVisible = len(p.swatches) > 1

	p.checkInvariants()
	return p, nil
}

// Apply runs one transition to completion and returns its effects.
func (p *Palette) Apply(ev Event) Effects {
	// The picker is modal: nothing but its answer gets through.
	if _, closing := ev.(PickerClosed); p.pending != nil && !closing {
		logging.Debug("Palette event ignored while picker is open")
		return Effects{}
	}

	var eff Effects
	switch ev := ev.(type) {
	case SelectSwatch:
		eff = p.selectSwatch(ev.ID)
	case AddSwatch:
		eff = p.addSwatch()
	case RemoveSwatch:
		eff = p.removeSwatch()
	case EditSwatch:
		eff = p.editSwatch()
	case PickerClosed:
		eff = p.pickerClosed(ev)
	}

	p.checkInvariants()
	logging.LogTransition(ev.eventName(), int(p.current), len(p.swatches))
	return eff
}

func (p *Palette) selectSwatch(id SwatchID) Effects {
	i := p.indexOf(id)
	if i < 0 {
		return Effects{}
	}

	if prev := p.indexOf(p.current); prev >= 0 {
		p.swatches[prev].Symbol = SymbolNone
	}
	p.swatches[i].Symbol = SymbolSelected
	p.current = id

	c := p.swatches[i].Color
	p.publish(c)
	return Effects{Push: &c}
}

func (p *Palette) addSwatch() Effects {
	p.pending = &pendingPicker{purpose: PurposeAdd}
	return Effects{Picker: &PickerRequest{Purpose: PurposeAdd, Title: TitleAdd}}
}

func (p *Palette) removeSwatch() Effects {
	i := p.indexOf(p.current)
	if i < 0 || len(p.swatches) <= 1 {
		return Effects{}
	}

	p.swatches = append(p.swatches[:i], p.swatches[i+1:]...)

	// Predecessor, clamped to the first element.
	next := max(i-1, 0)
	p.swatches[next].Symbol = SymbolSelected
	p.current = p.swatches[next].ID
	p.removeVisible = len(p.swatches) > 1

	return Effects{Relayout: true}
}

func (p *Palette) editSwatch() Effects {
	i := p.indexOf(p.current)
	if i < 0 {
		return Effects{}
	}

	initial := p.swatches[i].Color
	p.pending = &pendingPicker{purpose: PurposeEdit, target: p.current}
	return Effects{Picker: &PickerRequest{Purpose: PurposeEdit, Title: TitleEdit, Initial: &initial}}
}

func (p *Palette) pickerClosed(ev PickerClosed) Effects {
	pending := p.pending
	p.pending = nil
	if pending == nil {
		return Effects{}
	}

	switch pending.purpose {
	case PurposeAdd:
		if ev.OK {
			p.appendSwatch(ev.Color)
			p.removeVisible = len(p.swatches) > 1
			return Effects{Relayout: true}
		}
		return p.confirmCurrent()

	case PurposeEdit:
		i := p.indexOf(pending.target)
		if i < 0 {
			return Effects{}
		}
		if ev.OK {
			// No push here: the picker previewed on the device while open.
			p.swatches[i].Color = ev.Color
			return Effects{}
		}
		return p.confirmCurrent()
	}

	return Effects{}
}

// confirmCurrent re-pushes the current color after a cancelled picker.
func (p *Palette) confirmCurrent() Effects {
	i := p.indexOf(p.current)
	if i < 0 {
		return Effects{}
	}
	c := p.swatches[i].Color
	return Effects{Push: &c}
}

func (p *Palette) appendSwatch(c color.RGB) {
	p.nextID++
	p.swatches = append(p.swatches, Swatch{ID: p.nextID, Color: c, Symbol: SymbolNone})
}

func (p *Palette) indexOf(id SwatchID) int {
	if id == NoSwatch {
		return -1
	}
	for i, s := range p.swatches {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (p *Palette) publish(c color.RGB) {
	p.published = c
	for _, fn := range p.subscribers {
		fn(c)
	}
}

// Subscribe registers fn to be called with the published color on every
// select. The returned func unsubscribes.
func (p *Palette) Subscribe(fn func(color.RGB)) func() {
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = fn
	return func() { delete(p.subscribers, id) }
}

// Published returns the palette's current published color.
func (p *Palette) Published() color.RGB {
	return p.published
}

// Current returns the current swatch, if any.
func (p *Palette) Current() (Swatch, bool) {
	i := p.indexOf(p.current)
	if i < 0 {
		return Swatch{}, false
	}
	return p.swatches[i], true
}

// Swatches returns a copy of the swatch list.
func (p *Palette) Swatches() []Swatch {
	out := make([]Swatch, len(p.swatches))
	copy(out, p.swatches)
	return out
}

// Len returns the number of swatches.
func (p *Palette) Len() int {
	return len(p.swatches)
}

// RemoveVisible reports whether the remove affordance is shown.
func (p *Palette) RemoveVisible() bool {
	return p.removeVisible
}

// PickerOpen reports whether the palette is waiting on a PickerClosed.
func (p *Palette) PickerOpen() bool {
	return p.pending != nil
}

// checkInvariants panics when the state machine has corrupted itself.
func (p *Palette) checkInvariants() {
	if len(p.swatches) == 0 {
		panic("palette invariant violated: no swatches")
	}

	selected := 0
	for _, s := range p.swatches {
		if s.Symbol == SymbolSelected {
			selected++
			if s.ID != p.current {
				panic(fmt.Sprintf("palette invariant violated: swatch %d marked selected but current is %d", s.ID, p.current))
			}
		}
	}

	if p.current != NoSwatch {
		if p.indexOf(p.current) < 0 {
			panic(fmt.Sprintf("palette invariant violated: current %d is not in the palette", p.current))
		}
		if selected != 1 {
			panic(fmt.Sprintf("palette invariant violated: %d swatches selected with current %d", selected, p.current))
		}
	} else if selected != 0 {
		panic(fmt.Sprintf("palette invariant violated: %d swatches selected with no current", selected))
	}

	if p.removeVisible != (len(p.swatches) > 1) {
		panic(fmt.Sprintf("palette invariant violated: remove visible=%v with %d swatches", p.removeVisible, len(p.swatches)))
	}
}

// Snapshot is a read-only view for rendering.
type Snapshot struct {
	Swatches      []Swatch
	Current       SwatchID
	Positions     []grid.Position // one per swatch
	AddPosition   grid.Position
	RemoveVisible bool
	Published     color.RGB
	PickerOpen    bool
}

// Snapshot lays out the swatches plus the trailing add cell.
func (p *Palette) Snapshot() Snapshot {
	swatches := p.Swatches()

	// Swatches followed by the add entry.
	entries := make([]SwatchID, 0, len(swatches)+1)
	for _, s := range swatches {
		entries = append(entries, s.ID)
	}
	entries = append(entries, NoSwatch)
	positions := grid.Layout(entries, grid.Columns)

	return Snapshot{
		Swatches:      swatches,
		Current:       p.current,
		Positions:     positions[:len(swatches)],
		AddPosition:   positions[len(swatches)],
		RemoveVisible: p.removeVisible,
		Published:     p.published,
		PickerOpen:    p.pending != nil,
	}
}

// Rows returns how many grid rows the snapshot occupies.
func (s Snapshot) Rows() int {
	return grid.Rows(len(s.Swatches)+1, grid.Columns)
}

// CurrentSwatch returns the current swatch of the snapshot, if any.
func (s Snapshot) CurrentSwatch() (Swatch, bool) {
	for _, sw := range s.Swatches {
		if sw.ID == s.Current && s.Current != NoSwatch {
			return sw, true
		}
	}
	return Swatch{}, false
}

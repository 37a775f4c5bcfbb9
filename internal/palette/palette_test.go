package palette

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/grid"
	"github.com/muurk/backlight/internal/logging"
)

var (
	red   = color.New(255, 0, 0)
	green = color.New(0, 255, 0)
	blue  = color.New(0, 0, 255)
)

// recordingSyncer records every write and optionally fails them.
type recordingSyncer struct {
	writes []color.RGB
	err    error
}

func (r *recordingSyncer) Write(_ context.Context, c color.RGB) error {
	r.writes = append(r.writes, c)
	return r.err
}

// scriptedPicker answers pickers from a queue; an empty queue cancels.
type scriptedPicker struct {
	answers  []*color.RGB
	titles   []string
	initials []*color.RGB
}

func (s *scriptedPicker) Choose(_ context.Context, initial *color.RGB, title string) (color.RGB, bool) {
	s.titles = append(s.titles, title)
	s.initials = append(s.initials, initial)
	if len(s.answers) == 0 {
		return color.RGB{}, false
	}
	next := s.answers[0]
	s.answers = s.answers[1:]
	if next == nil {
		return color.RGB{}, false
	}
	return *next, true
}

func newTestPalette(t *testing.T, colors ...color.RGB) *Palette {
	t.Helper()
	p, err := New(colors, color.Black)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func ids(p *Palette) []SwatchID {
	var out []SwatchID
	for _, s := range p.Swatches() {
		out = append(out, s.ID)
	}
	return out
}

func colorsOf(p *Palette) []color.RGB {
	var out []color.RGB
	for _, s := range p.Swatches() {
		out = append(out, s.Color)
	}
	return out
}

func selectedCount(p *Palette) int {
	n := 0
	for _, s := range p.Swatches() {
		if s.Symbol == SymbolSelected {
			n++
		}
	}
	return n
}

func TestNew(t *testing.T) {
	device := color.New(10, 20, 30)
	p, err := New(color.DefaultPalette(), device)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if p.Len() != 5 {
		t.Errorf("Len() = %d, want 5", p.Len())
	}
	if _, ok := p.Current(); ok {
		t.Error("new palette should have no current swatch")
	}
	if p.Published() != device {
		t.Errorf("Published() = %v, want device color %v", p.Published(), device)
	}
	for _, c := range colorsOf(p) {
		if c == device {
			t.Error("device color should not be inserted as a swatch")
		}
	}
	if !p.RemoveVisible() {
		t.Error("remove should be visible with 5 swatches")
	}
	if selectedCount(p) != 0 {
		t.Errorf("selected count = %d, want 0", selectedCount(p))
	}
}

func TestNewRejectsEmptyDefaults(t *testing.T) {
	if _, err := New(nil, color.Black); err == nil {
		t.Error("New(nil) should fail")
	}
}

func TestNewSingleSwatchHidesRemove(t *testing.T) {
	p := newTestPalette(t, red)
	if p.RemoveVisible() {
		t.Error("remove should be hidden with a single swatch")
	}
}

func TestSelectSwatch(t *testing.T) {
	p := newTestPalette(t, red, green, blue)
	swatchIDs := ids(p)

	var notified []color.RGB
	p.Subscribe(func(c color.RGB) { notified = append(notified, c) })

	eff := p.Apply(SelectSwatch{ID: swatchIDs[1]})
	if eff.Push == nil || *eff.Push != green {
		t.Fatalf("Select push = %v, want %v", eff.Push, green)
	}
	cur, ok := p.Current()
	if !ok || cur.ID != swatchIDs[1] {
		t.Fatalf("Current() = %v, %v, want swatch %d", cur, ok, swatchIDs[1])
	}
	if p.Published() != green {
		t.Errorf("Published() = %v, want %v", p.Published(), green)
	}

	p.Apply(SelectSwatch{ID: swatchIDs[2]})
	if selectedCount(p) != 1 {
		t.Errorf("selected count = %d, want 1", selectedCount(p))
	}
	if p.Swatches()[1].Symbol != SymbolNone {
		t.Error("previous current should lose its marker")
	}
	if len(notified) != 2 || notified[0] != green || notified[1] != blue {
		t.Errorf("subscriber saw %v, want [green blue]", notified)
	}
}

func TestSelectUnknownSwatchIsNoop(t *testing.T) {
	p := newTestPalette(t, red, green)
	eff := p.Apply(SelectSwatch{ID: 99})
	if !eff.None() {
		t.Errorf("Select(unknown) effects = %+v, want none", eff)
	}
	if _, ok := p.Current(); ok {
		t.Error("Select(unknown) should not set a current swatch")
	}
}

func TestUnsubscribe(t *testing.T) {
	p := newTestPalette(t, red, green)
	calls := 0
	cancel := p.Subscribe(func(color.RGB) { calls++ })
	p.Apply(SelectSwatch{ID: ids(p)[0]})
	cancel()
	p.Apply(SelectSwatch{ID: ids(p)[1]})
	if calls != 1 {
		t.Errorf("subscriber called %d times, want 1", calls)
	}
}

func TestRemoveNeighborRule(t *testing.T) {
	t.Run("middle removes to predecessor", func(t *testing.T) {
		p := newTestPalette(t, red, green, blue)
		a, b, c := ids(p)[0], ids(p)[1], ids(p)[2]

		p.Apply(SelectSwatch{ID: b})
		eff := p.Apply(RemoveSwatch{})

		if !eff.Relayout || eff.Push != nil {
			t.Errorf("Remove effects = %+v, want relayout and no push", eff)
		}
		got := ids(p)
		if len(got) != 2 || got[0] != a || got[1] != c {
			t.Errorf("swatches = %v, want [%d %d]", got, a, c)
		}
		if cur, _ := p.Current(); cur.ID != a {
			t.Errorf("current = %d, want %d", cur.ID, a)
		}
		if p.Swatches()[0].Symbol != SymbolSelected {
			t.Error("new current should carry the selected marker")
		}
	})

	t.Run("first removes to new first", func(t *testing.T) {
		p := newTestPalette(t, red, green, blue)
		b, c := ids(p)[1], ids(p)[2]

		p.Apply(SelectSwatch{ID: ids(p)[0]})
		p.Apply(RemoveSwatch{})

		got := ids(p)
		if len(got) != 2 || got[0] != b || got[1] != c {
			t.Errorf("swatches = %v, want [%d %d]", got, b, c)
		}
		if cur, _ := p.Current(); cur.ID != b {
			t.Errorf("current = %d, want %d", cur.ID, b)
		}
	})

	t.Run("last removes to predecessor", func(t *testing.T) {
		p := newTestPalette(t, red, green, blue)
		p.Apply(SelectSwatch{ID: ids(p)[2]})
		p.Apply(RemoveSwatch{})
		if cur, _ := p.Current(); cur.Color != green {
			t.Errorf("current color = %v, want %v", cur.Color, green)
		}
	})

	t.Run("repeated front removal lands on the new front", func(t *testing.T) {
		p := newTestPalette(t, red, green, blue)
		p.Apply(SelectSwatch{ID: ids(p)[0]})
		p.Apply(RemoveSwatch{})
		p.Apply(RemoveSwatch{})
		if cur, _ := p.Current(); cur.Color != blue {
			t.Errorf("current color = %v, want %v", cur.Color, blue)
		}
	})
}

func TestRemoveWithoutCurrentIsNoop(t *testing.T) {
	p := newTestPalette(t, red, green)
	eff := p.Apply(RemoveSwatch{})
	if !eff.None() || p.Len() != 2 {
		t.Errorf("Remove without current changed state: eff=%+v len=%d", eff, p.Len())
	}
}

func TestRemoveNeverEmptiesPalette(t *testing.T) {
	p := newTestPalette(t, red)
	p.Apply(SelectSwatch{ID: ids(p)[0]})
	eff := p.Apply(RemoveSwatch{})
	if !eff.None() {
		t.Errorf("Remove of last swatch effects = %+v, want none", eff)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestRemoveAffordanceVisibility(t *testing.T) {
	p := newTestPalette(t, red, green)
	p.Apply(SelectSwatch{ID: ids(p)[1]})
	p.Apply(RemoveSwatch{})

	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
	if p.RemoveVisible() {
		t.Error("remove should be hidden at one swatch")
	}

	p.Apply(AddSwatch{})
	p.Apply(PickerClosed{Color: blue, OK: true})
	if !p.RemoveVisible() {
		t.Error("remove should be visible again after adding a second swatch")
	}
}

func TestAddAppendsAndKeepsCurrent(t *testing.T) {
	p := newTestPalette(t, red, green)
	before := ids(p)
	p.Apply(SelectSwatch{ID: before[0]})

	eff := p.Apply(AddSwatch{})
	if eff.Picker == nil || eff.Picker.Purpose != PurposeAdd || eff.Picker.Initial != nil {
		t.Fatalf("Add picker request = %+v, want add with no initial color", eff.Picker)
	}
	if eff.Picker.Title != TitleAdd {
		t.Errorf("Add title = %q, want %q", eff.Picker.Title, TitleAdd)
	}
	if !p.PickerOpen() {
		t.Error("picker should be pending after Add")
	}

	eff = p.Apply(PickerClosed{Color: blue, OK: true})
	if !eff.Relayout || eff.Push != nil {
		t.Errorf("Add confirm effects = %+v, want relayout and no push", eff)
	}

	got := p.Swatches()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, id := range before {
		if got[i].ID != id {
			t.Errorf("swatch %d id = %d, want %d (existing order kept)", i, got[i].ID, id)
		}
	}
	if got[2].Color != blue || got[2].Symbol != SymbolNone {
		t.Errorf("appended swatch = %+v, want unselected blue", got[2])
	}
	if cur, _ := p.Current(); cur.ID != before[0] {
		t.Errorf("current = %d, want unchanged %d", cur.ID, before[0])
	}
}

func TestAddedIDsAreNeverReused(t *testing.T) {
	p := newTestPalette(t, red, green)
	p.Apply(SelectSwatch{ID: ids(p)[1]})
	removed := ids(p)[1]
	p.Apply(RemoveSwatch{})

	p.Apply(AddSwatch{})
	p.Apply(PickerClosed{Color: blue, OK: true})
	for _, id := range ids(p) {
		if id == removed {
			t.Errorf("id %d was reused after removal", removed)
		}
	}
}

func TestAddCancelConfirmsCurrent(t *testing.T) {
	p := newTestPalette(t, red, blue, green)
	p.Apply(SelectSwatch{ID: ids(p)[1]})

	p.Apply(AddSwatch{})
	eff := p.Apply(PickerClosed{OK: false})

	if eff.Push == nil || *eff.Push != blue {
		t.Errorf("Add cancel push = %v, want %v", eff.Push, blue)
	}
	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
}

func TestAddCancelWithoutCurrentIsNoop(t *testing.T) {
	p := newTestPalette(t, red, blue)
	p.Apply(AddSwatch{})
	eff := p.Apply(PickerClosed{OK: false})
	if !eff.None() {
		t.Errorf("Add cancel effects = %+v, want none", eff)
	}
}

func TestEditConfirmReplacesInPlaceWithoutPush(t *testing.T) {
	p := newTestPalette(t, red, green, blue)
	target := ids(p)[1]
	p.Apply(SelectSwatch{ID: target})
	published := p.Published()

	eff := p.Apply(EditSwatch{})
	if eff.Picker == nil || eff.Picker.Purpose != PurposeEdit {
		t.Fatalf("Edit picker request = %+v, want edit", eff.Picker)
	}
	if eff.Picker.Initial == nil || *eff.Picker.Initial != green {
		t.Errorf("Edit initial = %v, want %v", eff.Picker.Initial, green)
	}

	purple := color.New(128, 0, 128)
	eff = p.Apply(PickerClosed{Color: purple, OK: true})

	// Confirming an edit deliberately does not write to the daemon.
	if eff.Push != nil {
		t.Errorf("Edit confirm pushed %v, want no push", *eff.Push)
	}
	cur, _ := p.Current()
	if cur.ID != target || cur.Color != purple {
		t.Errorf("current = %+v, want id %d with %v", cur, target, purple)
	}
	if p.Swatches()[1].Color != purple {
		t.Error("edit should replace the color in place")
	}
	if p.Published() != published {
		t.Errorf("Published() = %v, want unchanged %v", p.Published(), published)
	}
}

func TestEditCancelConfirmsCurrent(t *testing.T) {
	p := newTestPalette(t, red, green)
	p.Apply(SelectSwatch{ID: ids(p)[0]})
	p.Apply(EditSwatch{})
	eff := p.Apply(PickerClosed{Color: blue, OK: false})
	if eff.Push == nil || *eff.Push != red {
		t.Errorf("Edit cancel push = %v, want %v", eff.Push, red)
	}
	if p.Swatches()[0].Color != red {
		t.Error("Edit cancel should not change the color")
	}
}

func TestEditWithoutCurrentIsNoop(t *testing.T) {
	p := newTestPalette(t, red, green)
	if eff := p.Apply(EditSwatch{}); !eff.None() {
		t.Errorf("Edit without current effects = %+v, want none", eff)
	}
	if p.PickerOpen() {
		t.Error("Edit without current should not open the picker")
	}
}

func TestEventsIgnoredWhilePickerOpen(t *testing.T) {
	p := newTestPalette(t, red, green)
	p.Apply(AddSwatch{})

	if eff := p.Apply(SelectSwatch{ID: ids(p)[0]}); !eff.None() {
		t.Errorf("Select while picker open effects = %+v, want none", eff)
	}
	if _, ok := p.Current(); ok {
		t.Error("Select while picker open should not change current")
	}

	p.Apply(PickerClosed{OK: false})
	if eff := p.Apply(SelectSwatch{ID: ids(p)[0]}); eff.Push == nil {
		t.Error("Select after the picker closed should push")
	}
}

func TestStrayPickerClosedIsNoop(t *testing.T) {
	p := newTestPalette(t, red, green)
	if eff := p.Apply(PickerClosed{Color: blue, OK: true}); !eff.None() {
		t.Errorf("stray PickerClosed effects = %+v, want none", eff)
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
}

func TestSnapshotLayout(t *testing.T) {
	p := newTestPalette(t, red, green, blue, red)
	snap := p.Snapshot()

	want := []grid.Position{{Col: 0, Row: 0}, {Col: 1, Row: 0}, {Col: 2, Row: 0}, {Col: 0, Row: 1}}
	for i, pos := range want {
		if snap.Positions[i] != pos {
			t.Errorf("Positions[%d] = %+v, want %+v", i, snap.Positions[i], pos)
		}
	}
	if snap.AddPosition != (grid.Position{Col: 1, Row: 1}) {
		t.Errorf("AddPosition = %+v, want {1 1}", snap.AddPosition)
	}
	if snap.Rows() != 2 {
		t.Errorf("Rows() = %d, want 2", snap.Rows())
	}

	p.Apply(SelectSwatch{ID: ids(p)[0]})
	p.Apply(RemoveSwatch{})
	snap = p.Snapshot()
	if snap.AddPosition != (grid.Position{Col: 0, Row: 1}) {
		t.Errorf("AddPosition after remove = %+v, want {0 1}", snap.AddPosition)
	}
	if sw, ok := snap.CurrentSwatch(); !ok || sw.ID != snap.Current {
		t.Errorf("CurrentSwatch() = %+v, %v", sw, ok)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	p := newTestPalette(t, red, green)
	snap := p.Snapshot()
	snap.Swatches[0].Color = blue
	if p.Swatches()[0].Color != red {
		t.Error("mutating a snapshot should not change the palette")
	}
}

// TestRandomSequencesPreserveInvariants drives random event sequences and
// checks the palette-level properties after every step.
func TestRandomSequencesPreserveInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(76))

	for run := 0; run < 200; run++ {
		p := newTestPalette(t, color.DefaultPalette()...)

		for step := 0; step < 60; step++ {
			var ev Event
			switch rng.Intn(6) {
			case 0, 1:
				all := ids(p)
				ev = SelectSwatch{ID: all[rng.Intn(len(all))]}
			case 2:
				ev = AddSwatch{}
			case 3:
				ev = RemoveSwatch{}
			case 4:
				ev = EditSwatch{}
			case 5:
				ev = PickerClosed{
					Color: color.New(uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256))),
					OK:    rng.Intn(2) == 0,
				}
			}
			p.Apply(ev)

			if p.Len() < 1 {
				t.Fatalf("run %d step %d: palette emptied", run, step)
			}
			cur, ok := p.Current()
			want := 0
			if ok {
				want = 1
				found := false
				for _, id := range ids(p) {
					if id == cur.ID {
						found = true
					}
				}
				if !found {
					t.Fatalf("run %d step %d: current %d not in palette", run, step, cur.ID)
				}
			}
			if got := selectedCount(p); got != want {
				t.Fatalf("run %d step %d: %d selected, want %d", run, step, got, want)
			}
			if p.RemoveVisible() != (p.Len() > 1) {
				t.Fatalf("run %d step %d: remove visible=%v with %d swatches", run, step, p.RemoveVisible(), p.Len())
			}
		}
	}
}

func TestCheckInvariantsPanicsOnCorruption(t *testing.T) {
	p := newTestPalette(t, red, green)
	p.current = 42

	defer func() {
		if recover() == nil {
			t.Error("checkInvariants should panic on a dangling current")
		}
	}()
	p.checkInvariants()
}

func TestDriverSelectSyncFailureKeepsSelection(t *testing.T) {
	p := newTestPalette(t, red, green)
	sync := &recordingSyncer{err: errors.New("device unplugged")}
	d := NewDriver(p, &scriptedPicker{}, sync)

	var reported []error
	d.OnSyncError = func(err error) { reported = append(reported, err) }

	snap := d.Dispatch(context.Background(), SelectSwatch{ID: ids(p)[1]})

	if snap.Current != ids(p)[1] {
		t.Errorf("current = %d, want %d despite sync failure", snap.Current, ids(p)[1])
	}
	if snap.Swatches[1].Symbol != SymbolSelected {
		t.Error("clicked swatch should be marked selected despite sync failure")
	}
	if len(reported) != 1 {
		t.Errorf("reported %d errors, want 1", len(reported))
	}
	if len(sync.writes) != 1 {
		t.Errorf("writes = %d, want exactly 1 (no retry)", len(sync.writes))
	}

	// The next transition is not blocked.
	snap = d.Dispatch(context.Background(), SelectSwatch{ID: ids(p)[0]})
	if snap.Current != ids(p)[0] {
		t.Errorf("current = %d, want %d", snap.Current, ids(p)[0])
	}
}

func TestDriverLogsSyncFailureAtWarn(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(zap.NewNop())

	p := newTestPalette(t, red, green)
	d := NewDriver(p, &scriptedPicker{}, &recordingSyncer{err: errors.New("device unplugged")})
	d.Dispatch(context.Background(), SelectSwatch{ID: ids(p)[1]})

	entries := logs.FilterMessage("Push failed, palette state kept").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d push failures at warn, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["color"]; got != green.Hex() {
		t.Errorf("color field = %v, want %s", got, green.Hex())
	}
}

func TestDriverAddCancelWritesCurrentOnce(t *testing.T) {
	p := newTestPalette(t, red, blue, green)
	sync := &recordingSyncer{}
	picker := &scriptedPicker{}
	d := NewDriver(p, picker, sync)

	d.Dispatch(context.Background(), SelectSwatch{ID: ids(p)[1]})
	sync.writes = nil

	snap := d.Dispatch(context.Background(), AddSwatch{})

	if len(sync.writes) != 1 || sync.writes[0] != color.New(0, 0, 255) {
		t.Errorf("writes = %v, want exactly [rgb(0, 0, 255)]", sync.writes)
	}
	if len(snap.Swatches) != 3 {
		t.Errorf("swatches = %d, want 3", len(snap.Swatches))
	}
	if len(picker.titles) != 1 || picker.titles[0] != TitleAdd || picker.initials[0] != nil {
		t.Errorf("picker called with %v / %v, want one Add call with no initial", picker.titles, picker.initials)
	}
}

func TestDriverAddConfirm(t *testing.T) {
	p := newTestPalette(t, red)
	sync := &recordingSyncer{}
	d := NewDriver(p, &scriptedPicker{answers: []*color.RGB{&green}}, sync)

	snap := d.Dispatch(context.Background(), AddSwatch{})

	if len(snap.Swatches) != 2 || snap.Swatches[1].Color != green {
		t.Errorf("swatches = %+v, want [red green]", snap.Swatches)
	}
	if !snap.RemoveVisible {
		t.Error("remove should be visible after the add")
	}
	if len(sync.writes) != 0 {
		t.Errorf("writes = %v, want none", sync.writes)
	}
}

func TestDriverEditConfirmDoesNotWrite(t *testing.T) {
	p := newTestPalette(t, red, green)
	sync := &recordingSyncer{}
	picker := &scriptedPicker{answers: []*color.RGB{&blue}}
	d := NewDriver(p, picker, sync)

	d.Dispatch(context.Background(), SelectSwatch{ID: ids(p)[0]})
	sync.writes = nil

	snap := d.Dispatch(context.Background(), EditSwatch{})

	if len(sync.writes) != 0 {
		t.Errorf("edit confirm wrote %v, want no writes", sync.writes)
	}
	if snap.Swatches[0].Color != blue {
		t.Errorf("edited color = %v, want %v", snap.Swatches[0].Color, blue)
	}
	if picker.initials[0] == nil || *picker.initials[0] != red {
		t.Errorf("picker initial = %v, want %v", picker.initials[0], red)
	}
}

func TestDriverEditCancelWrites(t *testing.T) {
	p := newTestPalette(t, red, green)
	sync := &recordingSyncer{}
	d := NewDriver(p, &scriptedPicker{}, sync)

	d.Dispatch(context.Background(), SelectSwatch{ID: ids(p)[1]})
	sync.writes = nil
	d.Dispatch(context.Background(), EditSwatch{})

	if len(sync.writes) != 1 || sync.writes[0] != green {
		t.Errorf("writes = %v, want [%v]", sync.writes, green)
	}
}

func TestDriverWithoutPickerCancels(t *testing.T) {
	p := newTestPalette(t, red, green)
	sync := &recordingSyncer{}
	d := NewDriver(p, nil, sync)

	d.Dispatch(context.Background(), SelectSwatch{ID: ids(p)[0]})
	snap := d.Dispatch(context.Background(), AddSwatch{})

	if snap.PickerOpen {
		t.Error("picker should be closed after dispatch")
	}
	if len(sync.writes) != 2 {
		t.Errorf("writes = %d, want 2 (select + cancel confirm)", len(sync.writes))
	}
}

func TestPickerFunc(t *testing.T) {
	var f Picker = PickerFunc(func(_ context.Context, _ *color.RGB, title string) (color.RGB, bool) {
		return red, title == TitleAdd
	})
	c, ok := f.Choose(context.Background(), nil, TitleAdd)
	if !ok || c != red {
		t.Errorf("Choose() = %v, %v, want %v, true", c, ok, red)
	}
}

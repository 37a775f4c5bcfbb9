package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/daemon"
	"github.com/muurk/backlight/internal/grid"
	"github.com/muurk/backlight/internal/logging"
	"github.com/muurk/backlight/internal/palette"
)

// Device is the board the palette drives. *daemon.Facade implements it.
type Device interface {
	Read(ctx context.Context) (color.RGB, error)
	Write(ctx context.Context, c color.RGB) error
}

// Options configures the palette screen.
type Options struct {
	Device   Device
	Defaults []color.RGB

	// Target names the daemon and board in the header, e.g. "desk/0".
	Target string

	// Watch, when set, is called once with a function that forwards
	// colors other clients set on the same board.
	Watch func(notify func(color.RGB))
}

// Messages
type deviceColorMsg struct {
	color color.RGB
	err   error
}

type remoteColorMsg struct {
	color color.RGB
}

// paletteKeyMap defines key bindings for the palette grid
type paletteKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Select key.Binding
	Add    key.Binding
	Edit   key.Binding
	Remove key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k paletteKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Add, k.Edit, k.Remove, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k paletteKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Select, k.Add, k.Edit, k.Remove},
		{k.Help, k.Quit},
	}
}

func newPaletteKeyMap() paletteKeyMap {
	return paletteKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "right"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "select"),
		),
		Add: key.NewBinding(
			key.WithKeys("a", "+"),
			key.WithHelp("a", "add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x", "delete", "backspace"),
			key.WithHelp("x", "remove"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Model is the palette screen. It hosts a palette.Palette: key presses become
// palette events and the returned effects become picker state and pushes.
type Model struct {
	ctx      context.Context
	device   Device
	defaults []color.RGB
	target   string
	pusher   *pusher

	palette *palette.Palette
	cursor  int // cell index; len(swatches) is the add cell
	picker  *pickerModel

	loading bool
	spinner spinner.Model
	remote  *color.RGB

	status    string
	statusErr bool
	err       error

	keys paletteKeyMap
	help help.Model

	width  int
	height int
}

// NewModel creates the palette screen. The palette is built once the
// device color has been read.
func NewModel(ctx context.Context, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	defaults := opts.Defaults
	if len(defaults) == 0 {
		defaults = color.DefaultPalette()
	}

	return Model{
		ctx:      ctx,
		device:   opts.Device,
		defaults: defaults,
		target:   opts.Target,
		pusher:   newPusher(opts.Device),
		loading:  true,
		spinner:  s,
		keys:     newPaletteKeyMap(),
		help:     help.New(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.readDevice())
}

func (m Model) readDevice() tea.Cmd {
	ctx, device := m.ctx, m.device
	return func() tea.Msg {
		if device == nil {
			return deviceColorMsg{color: color.Black}
		}
		c, err := device.Read(ctx)
		if err != nil {
			return deviceColorMsg{color: color.Black, err: err}
		}
		return deviceColorMsg{color: c}
	}
}

// Palette returns the hosted palette, nil while the device is being read.
func (m Model) Palette() *palette.Palette {
	return m.palette
}

// Err returns the error that ended the program, if any.
func (m Model) Err() error {
	return m.err
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

	case deviceColorMsg:
		return m.handleDeviceColor(msg)

	case syncResultMsg:
		m.handleSyncResult(msg)
		return m, nil

	case remoteColorMsg:
		c := msg.color
		m.remote = &c
		return m, nil

	case previewMsg:
		return m, m.pusher.push(m.ctx, msg.color)

	case pickerResultMsg:
		m.picker = nil
		// Confirm does not push, so the device must already show the color.
		var preview tea.Cmd
		if msg.ok && msg.unpreviewed {
			preview = m.pusher.push(m.ctx, msg.color)
		}
		return m, tea.Batch(preview, m.apply(palette.PickerClosed{Color: msg.color, OK: msg.ok}))

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.loading || m.palette == nil {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.picker != nil {
		picker, cmd := m.picker.Update(msg)
		m.picker = &picker
		return m, cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(keyMsg)
	}
	return m, nil
}

func (m Model) handleDeviceColor(msg deviceColorMsg) (tea.Model, tea.Cmd) {
	m.loading = false

	p, err := palette.New(m.defaults, msg.color)
	if err != nil {
		m.err = err
		return m, tea.Quit
	}
	m.palette = p
	m.syncKeys()

	if msg.err != nil {
		logging.Warn("Could not read device color, starting from black", zap.Error(msg.err))
		m.setStatus(fmt.Sprintf("Could not read %s: %s", m.target, daemon.GetShortErrorMessage(msg.err)), true)
	} else {
		m.setStatus("Current color "+msg.color.Hex(), false)
	}
	return m, nil
}

func (m *Model) handleSyncResult(msg syncResultMsg) {
	if msg.skipped {
		return
	}
	if msg.err != nil {
		// The palette keeps its state; only the status line reports it.
		m.setStatus(fmt.Sprintf("Sync %s failed: %s", msg.color.Hex(), daemon.GetShortErrorMessage(msg.err)), true)
		return
	}
	m.setStatus("Set "+msg.color.Hex(), false)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cells := m.palette.Len() + 1

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Left):
		m.cursor = clamp(m.cursor-1, cells)
	case key.Matches(msg, m.keys.Right):
		m.cursor = clamp(m.cursor+1, cells)
	case key.Matches(msg, m.keys.Up):
		if m.cursor-grid.Columns >= 0 {
			m.cursor -= grid.Columns
		}
	case key.Matches(msg, m.keys.Down):
		m.cursor = clamp(m.cursor+grid.Columns, cells)

	case key.Matches(msg, m.keys.Select):
		swatches := m.palette.Swatches()
		if m.cursor >= len(swatches) {
			return m, m.apply(palette.AddSwatch{})
		}
		return m, m.apply(palette.SelectSwatch{ID: swatches[m.cursor].ID})

	case key.Matches(msg, m.keys.Add):
		return m, m.apply(palette.AddSwatch{})

	case key.Matches(msg, m.keys.Edit):
		return m, m.apply(palette.EditSwatch{})

	case key.Matches(msg, m.keys.Remove):
		if !m.palette.RemoveVisible() {
			return m, nil
		}
		return m, m.apply(palette.RemoveSwatch{})
	}
	return m, nil
}

// apply feeds ev to the palette and turns its effects into commands.
func (m *Model) apply(ev palette.Event) tea.Cmd {
	eff := m.palette.Apply(ev)

	var cmds []tea.Cmd
	if eff.Picker != nil {
		picker := newPickerModel(*eff.Picker)
		m.picker = &picker
		cmds = append(cmds, textinput.Blink)
	}
	if eff.Push != nil {
		cmds = append(cmds, m.pusher.push(m.ctx, *eff.Push))
	}
	if eff.Relayout {
		m.cursor = clamp(m.cursor, m.palette.Len()+1)
	}
	m.syncKeys()
	return tea.Batch(cmds...)
}

// syncKeys hides bindings that do nothing in the current state.
func (m *Model) syncKeys() {
	if m.palette == nil {
		return
	}
	_, hasCurrent := m.palette.Current()
	m.keys.Edit.SetEnabled(hasCurrent)
	m.keys.Remove.SetEnabled(m.palette.RemoveVisible() && hasCurrent)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// View implements tea.Model
func (m Model) View() string {
	published := color.Black
	if m.palette != nil {
		published = m.palette.Published()
	}
	header := BuildHeaderContent(published, m.target)

	var content, footer string
	switch {
	case m.loading:
		content = m.spinner.View() + " " + SubtitleStyle.Render("Reading color from "+m.target+"...")
		footer = "q quit"
	case m.palette == nil:
		content = StatusErrorStyle.Render("No palette")
	default:
		content = m.renderPalette()
		if m.picker != nil {
			footer = m.help.View(m.picker.keys)
		} else {
			footer = m.help.View(m.keys)
		}
	}

	return RenderApplicationContainer(header, content, footer, m.width, m.height)
}

func (m Model) renderPalette() string {
	snap := m.palette.Snapshot()

	rows := make([][]string, snap.Rows())
	for i, sw := range snap.Swatches {
		pos := snap.Positions[i]
		label := sw.Symbol.String() + "\n" + sw.Color.Hex()
		rows[pos.Row] = append(rows[pos.Row], cellStyle(sw.Color, m.cursor == i).Render(label))
	}
	add := snap.AddPosition
	rows[add.Row] = append(rows[add.Row], addCellStyle(m.cursor == len(snap.Swatches)).Render("+"))

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	sections := []string{lipgloss.JoinVertical(lipgloss.Left, lines...), ""}

	if m.picker != nil {
		sections = append(sections, m.picker.View())
	} else {
		sections = append(sections, m.renderActions(snap))
	}

	if m.remote != nil && *m.remote != snap.Published {
		sections = append(sections, SubtitleStyle.Render("Another client set "+m.remote.Hex()))
	}
	if m.status != "" {
		style := StatusOKStyle
		if m.statusErr {
			style = StatusErrorStyle
		}
		sections = append(sections, style.Render(m.status))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderActions(snap palette.Snapshot) string {
	if _, ok := snap.CurrentSwatch(); !ok {
		return SubtitleStyle.Render("Select a color")
	}
	buttons := []string{ButtonStyle.Render("e Edit")}
	if snap.RemoveVisible {
		buttons = append(buttons, ButtonStyle.Render("x Remove"))
	}
	return strings.Join(buttons, " ")
}

// Run shows the palette until the user quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.Watch != nil {
		opts.Watch(func(c color.RGB) {
			p.Send(remoteColorMsg{color: c})
		})
	}

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}

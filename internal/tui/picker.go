package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/palette"
)

// pickerKeyMap defines key bindings while the picker is open
type pickerKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

func newPickerKeyMap() pickerKeyMap {
	return pickerKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// pickerModel is a modal hex color entry with live preview.
type pickerModel struct {
	request palette.PickerRequest
	input   textinput.Model
	keys    pickerKeyMap

	// preview is the last valid color typed, if any.
	preview *color.RGB
	invalid bool
}

// pickerResultMsg closes the picker. unpreviewed is set when the confirmed
// color was never pushed as a preview, e.g. a short form like "#0f0".
type pickerResultMsg struct {
	color       color.RGB
	ok          bool
	unpreviewed bool
}

// previewMsg asks the host to push a preview color to the daemon.
type previewMsg struct {
	color color.RGB
}

func newPickerModel(req palette.PickerRequest) pickerModel {
	ti := textinput.New()
	ti.Placeholder = "#rrggbb"
	ti.CharLimit = 7
	ti.Width = 9
	ti.Prompt = "› "
	if req.Initial != nil {
		ti.SetValue(req.Initial.Hex())
		ti.CursorEnd()
	}
	ti.Focus()

	m := pickerModel{request: req, input: ti, keys: newPickerKeyMap()}
	if req.Initial != nil {
		c := *req.Initial
		m.preview = &c
	}
	return m
}

func (m pickerModel) Update(msg tea.Msg) (pickerModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Cancel):
			return m, emit(pickerResultMsg{ok: false})

		case key.Matches(keyMsg, m.keys.Confirm):
			c, err := color.Parse(m.input.Value())
			if err != nil {
				m.invalid = true
				return m, nil
			}
			unpreviewed := m.preview == nil || *m.preview != c
			return m, emit(pickerResultMsg{color: c, ok: true, unpreviewed: unpreviewed})
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}

	m.invalid = false
	c, err := color.Parse(m.input.Value())
	if err != nil || !completeHex(m.input.Value()) {
		return m, cmd
	}
	if m.preview != nil && *m.preview == c {
		return m, cmd
	}
	m.preview = &c
	return m, tea.Batch(cmd, emit(previewMsg{color: c}))
}

// completeHex reports whether s is a full six-digit color, so typing
// "#ff" does not preview the short form "#ffffff".
func completeHex(s string) bool {
	return len(strings.TrimPrefix(strings.TrimSpace(s), "#")) == 6
}

func (m pickerModel) View() string {
	title := TitleStyle.Render(m.request.Title)

	chip := lipgloss.NewStyle().
		Width(CellWidth).
		Height(1).
		Border(lipgloss.NormalBorder()).
		BorderForeground(SubtleColor).
		Render("")
	if m.preview != nil {
		chip = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(SubtleColor).
			Render(renderChip(*m.preview, CellWidth))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Center, m.input.View(), "  ", chip)
	lines := []string{title, "", body}
	if m.invalid {
		lines = append(lines, PickerErrorStyle.Render("enter a color as #rrggbb"))
	}
	return PickerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// emit wraps a message in a command.
func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

package ui

import (
	"errors"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// spinnerModel shows a spinner until the wrapped operation finishes.
type spinnerModel struct {
	label   string
	spinner spinner.Model
	run     func() error
	err     error
	done    bool
}

type operationDoneMsg struct{ err error }

func newSpinnerModel(label string, run func() error) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return spinnerModel{label: label, spinner: s, run: run}
}

// Init implements tea.Model
func (m spinnerModel) Init() tea.Cmd {
	run := m.run
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return operationDoneMsg{err: run()}
	})
}

// Update implements tea.Model
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case operationDoneMsg:
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return "  " + m.spinner.View() + " " + SpinnerLabelStyle.Render(m.label) + "\n"
}

// RunWithSpinner runs fn while showing label with a spinner on out. When out
// is not a terminal fn simply runs. Interrupting the spinner returns
// ErrInterrupted while fn finishes in the background.
func RunWithSpinner(out io.Writer, interactive bool, label string, fn func() error) error {
	if !interactive {
		return fn()
	}

	p := tea.NewProgram(newSpinnerModel(label, fn), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return err
	}
	m := final.(spinnerModel)
	if !m.done {
		return ErrInterrupted
	}
	return m.err
}

// ErrInterrupted is returned when the user cancels a spinner with Ctrl+C.
var ErrInterrupted = errors.New("interrupted")

package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/backlight/internal/daemon"
	"github.com/muurk/backlight/internal/discovery"
	"github.com/muurk/backlight/internal/palette"
)

// Printer provides methods for printing UI components to a writer.
// This is the primary way commands should output styled content.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Field) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Field) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details ...Field) {
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips derived
// from the daemon error taxonomy.
func (p *Printer) PrintError(title string, err error) {
	p.Println(NewFailureResult(title, err, TroubleshootingTips(err)).SetWidth(p.width).Render())
}

// TroubleshootingTips extracts the bullet points of a daemon error hint.
func TroubleshootingTips(err error) []string {
	var tips []string
	for _, line := range strings.Split(daemon.GetTroubleshootingHint(err), "\n") {
		if tip, ok := strings.CutPrefix(strings.TrimSpace(line), "• "); ok {
			tips = append(tips, tip)
		}
	}
	return tips
}

// PrintBoards prints one row per board with a color chip.
func (p *Printer) PrintBoards(boards []daemon.Board, current int) {
	rows := make([][]string, 0, len(boards))
	for _, b := range boards {
		marker := " "
		if b.Index == current {
			marker = "●"
		}
		rows = append(rows, []string{marker, strconv.Itoa(b.Index), RenderChip(b.Color), b.Color.Hex(), b.Label})
	}
	p.Println(renderTable([]string{"", "BOARD", "", "COLOR", "LABEL"}, rows))
}

// PrintPalette prints the swatches of a palette snapshot in grid order.
func (p *Printer) PrintPalette(snap palette.Snapshot) {
	rows := make([][]string, 0, len(snap.Swatches))
	for i, sw := range snap.Swatches {
		pos := snap.Positions[i]
		cell := fmt.Sprintf("%d,%d", pos.Col, pos.Row)
		rows = append(rows, []string{strconv.Itoa(i), sw.Symbol.String(), RenderChip(sw.Color), sw.Color.Hex(), cell})
	}
	p.Println(renderTable([]string{"#", "", "", "COLOR", "CELL"}, rows))

	remove := "hidden"
	if snap.RemoveVisible {
		remove = "visible"
	}
	p.Println(fmt.Sprintf("  published %s %s  remove %s", RenderChip(snap.Published), snap.Published.Hex(), remove))
}

// PrintDaemons prints discovered daemons.
func (p *Printer) PrintDaemons(devices []*discovery.Device) {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		boards := "?"
		if n := d.Boards(); n > 0 {
			boards = strconv.Itoa(n)
		}
		rows = append(rows, []string{d.Instance, d.Address(), boards, d.GetMetadata(discovery.TxtVersion)})
	}
	p.Println(renderTable([]string{"INSTANCE", "ADDRESS", "BOARDS", "VERSION"}, rows))
}

// renderTable lays out rows in left-aligned columns.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	renderRow := func(cells []string, style *lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if style != nil {
				cell = style.Render(cell)
			}
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		return "  " + strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	lines := []string{renderRow(headers, &TableHeaderStyle)}
	for _, row := range rows {
		lines = append(lines, renderRow(row, nil))
	}
	return strings.Join(lines, "\n")
}

// Package grid maps palette entries to cells of a fixed-width grid.
//
// The mapping is row-major with no gaps: entry i lands in column i%columns of
// row i/columns. The palette passes its swatches followed by one trailing
// "add" entry, so the add cell always follows the last swatch.
package grid

// Columns is the width of the palette grid.
const Columns = 3

// Position is a cell in the grid.
type Position struct {
	Col int
	Row int
}

// At returns the position of entry i.
func At(i, columns int) Position {
	if columns <= 0 {
		columns = Columns
	}
	return Position{Col: i % columns, Row: i / columns}
}

// Layout returns the position of every entry, indexed like entries.
func Layout[T any](entries []T, columns int) []Position {
	positions := make([]Position, len(entries))
	for i := range entries {
		positions[i] = At(i, columns)
	}
	return positions
}

// Rows returns how many rows n entries occupy.
func Rows(n, columns int) int {
	if columns <= 0 {
		columns = Columns
	}
	if n <= 0 {
		return 0
	}
	return (n + columns - 1) / columns
}

package palette

import "github.com/muurk/backlight/internal/color"

// SwatchID identifies a swatch for its whole lifetime. IDs are never reused
// within a palette and carry no ordering meaning.
type SwatchID int

// NoSwatch is the zero SwatchID, used when nothing is current.
const NoSwatch SwatchID = 0

// Symbol is the marker drawn on a swatch.
type Symbol int

const (
	SymbolNone Symbol = iota
	SymbolSelected
)

// String returns the glyph rendered for the symbol.
func (s Symbol) String() string {
	if s == SymbolSelected {
		return "✓"
	}
	return ""
}

// Swatch is one palette entry.
type Swatch struct {
	ID     SwatchID
	Color  color.RGB
	Symbol Symbol
}

// Package color defines the RGB value carried between the palette, the daemon
// and the configuration file.
package color

import (
	"encoding/json"
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// RGB is an immutable 8-bit-per-channel color. Two values are equal when all
// three channels are equal, so RGB can be compared with ==.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// Black is used when the daemon cannot report a color.
var Black = RGB{0, 0, 0}

// New returns the color with the given channels.
func New(r, g, b uint8) RGB {
	return RGB{R: r, G: g, B: b}
}

// DefaultPalette is the fixed swatch set a new palette is seeded with.
func DefaultPalette() []RGB {
	return []RGB{
		New(255, 255, 255),
		New(0, 0, 255),
		New(255, 0, 0),
		New(255, 255, 0),
		New(0, 255, 0),
	}
}

// Hex returns the color as lowercase "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String returns the color as "rgb(r, g, b)".
func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Colorful converts to a go-colorful value for perceptual math.
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// IsLight reports whether dark text reads better than light text on c.
func (c RGB) IsLight() bool {
	l, _, _ := c.Colorful().Lab()
	return l > 0.6
}

// Parse reads "#rrggbb", "rrggbb", "#rgb" or "rgb".
func Parse(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RGB{}, fmt.Errorf("empty color")
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) == 4 {
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	}
	if len(s) != 7 {
		return RGB{}, fmt.Errorf("invalid color %q: expected #rrggbb", s)
	}
	cf, err := colorful.Hex(strings.ToLower(s))
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := cf.RGB255()
	return RGB{R: r, G: g, B: b}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) RGB {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// MarshalText implements encoding.TextMarshaler.
func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *RGB) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalJSON encodes the color as a hex string.
func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON decodes a hex string.
func (c *RGB) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("color must be a string: %w", err)
	}
	return c.UnmarshalText([]byte(s))
}

// MarshalYAML encodes the color as a hex string.
func (c RGB) MarshalYAML() (interface{}, error) {
	return c.Hex(), nil
}

// UnmarshalYAML decodes a hex string node.
func (c *RGB) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("color must be a string: %w", err)
	}
	return c.UnmarshalText([]byte(s))
}

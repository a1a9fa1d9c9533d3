package model

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/google/uuid"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// NewID returns a fresh 32 character hexadecimal id.
func NewID() string {
	u := uuid.New()
	return fmt.Sprintf("%x", u[:])
}

// Point is an integer pair persisted as [x, y].
type Point struct {
	X, Y int
}

func (p Point) MarshalJSON() ([]byte, error) { return json.Marshal([2]int{p.X, p.Y}) }

func (p *Point) UnmarshalJSON(b []byte) error {
	var v [2]int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	p.X, p.Y = v[0], v[1]
	return nil
}

func (p Point) Image() image.Point { return image.Pt(p.X, p.Y) }

// Vec is a fractional pair persisted as [x, y].
type Vec struct {
	X, Y float64
}

func (v Vec) MarshalJSON() ([]byte, error) { return json.Marshal([2]float64{v.X, v.Y}) }

func (v *Vec) UnmarshalJSON(b []byte) error {
	var a [2]float64
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	v.X, v.Y = a[0], a[1]
	return nil
}

func (v Vec) IsIdentity() bool { return v.X == 1 && v.Y == 1 }

// Margins are crop distances from each edge.
type Margins struct {
	Left  int `json:"left"`
	Right int `json:"right"`
	Up    int `json:"up"`
	Down  int `json:"down"`
}

func (m Margins) IsZero() bool { return m == Margins{} }

// Round rounds half away from zero, the way sizes are rounded everywhere.
func Round(f float64) int { return int(math.Round(f)) }

// RGB is an opaque colour persisted as "#rrggbb".
type RGB struct {
	R, G, B uint8
}

func ParseRGB(s string) (RGB, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("colour %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGB{r, g, b}, nil
}

func (c RGB) String() string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}

func (c RGB) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *RGB) UnmarshalText(b []byte) (err error) {
	*c, err = ParseRGB(string(b))
	return
}

// NRGBA returns c with the given alpha.
func (c RGB) NRGBA(a uint8) color.NRGBA { return color.NRGBA{c.R, c.G, c.B, a} }

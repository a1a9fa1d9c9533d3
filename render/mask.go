package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/32bitkid/minecursor/model"
)

// MaskFromAlpha starts a mask from an item's alpha channel.
func MaskFromAlpha(img image.Image) *image.Gray {
	src := model.ToNRGBA(img)
	m := image.NewGray(src.Rect)
	for i := range m.Pix {
		m.Pix[i] = src.Pix[i*4+3]
	}
	return m
}

// FillMask sets every mask pixel inside r to v. Filling with 0 erases.
func FillMask(m *image.Gray, r image.Rectangle, v uint8) {
	draw.Draw(m, r.Intersect(m.Rect), image.NewUniform(color.Gray{Y: v}), image.Point{}, draw.Src)
}

// InvertMask flips every mask value.
func InvertMask(m *image.Gray) {
	for i, v := range m.Pix {
		m.Pix[i] = 0xff - v
	}
}

type circle struct {
	p image.Point
	r int
}

func (c *circle) ColorModel() color.Model { return color.AlphaModel }

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.p.X-c.r, c.p.Y-c.r, c.p.X+c.r+1, c.p.Y+c.r+1)
}

func (c *circle) At(x, y int) color.Color {
	dx, dy := x-c.p.X, y-c.p.Y
	if dx*dx+dy*dy <= c.r*c.r {
		return color.Alpha{A: 0xff}
	}
	return color.Alpha{}
}

// BrushMask paints a filled disc of the given radius.
func BrushMask(m *image.Gray, at image.Point, radius int, v uint8) {
	if radius < 0 {
		return
	}
	c := &circle{at, radius}
	r := c.Bounds().Intersect(m.Rect)
	draw.DrawMask(m, r, image.NewUniform(color.Gray{Y: v}), image.Point{}, c, r.Min, draw.Over)
}

// Recolor fills the item with c, keeping only its alpha.
func Recolor(item *image.NRGBA, c model.RGB) *image.NRGBA {
	out := image.NewNRGBA(item.Rect)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.R, c.G, c.B
		out.Pix[i+3] = item.Pix[i+3]
	}
	return out
}

// MaskSizeError reports a mask that neither matches nor may be scaled.
type MaskSizeError struct {
	Mask, Item image.Point
}

func (e *MaskSizeError) Error() string {
	return fmt.Sprintf("mask %dx%d does not match item %dx%d", e.Mask.X, e.Mask.Y, e.Item.X, e.Item.Y)
}

// ApplyMask combines the element's mask with item's alpha in place.
// Sub-project items keep alpha only where the mask allows it; other items
// take the mask as their alpha.
func ApplyMask(item *image.NRGBA, e *model.Element) error {
	m := e.Mask
	if m == nil || m.Rect.Empty() {
		return nil
	}
	size := item.Rect.Size()
	if m.Rect.Size() != size {
		if !e.AllowMaskScale {
			return &MaskSizeError{Mask: m.Rect.Size(), Item: size}
		}
		m = resizeGray(m, size.X, size.Y, e.ScaleResample)
	}
	intersect := e.SubProject != nil
	for y := 0; y < size.Y; y++ {
		mrow := m.Pix[m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y+y):]
		irow := item.Pix[y*item.Stride:]
		for x := 0; x < size.X; x++ {
			mv := mrow[x]
			a := &irow[x*4+3]
			if intersect {
				*a = uint8((uint16(*a)*uint16(mv) + 127) / 255)
			} else {
				*a = mv
			}
		}
	}
	return nil
}

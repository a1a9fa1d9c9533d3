package render

import (
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"

	"github.com/32bitkid/minecursor/model"
)

// gifPalette reserves index 0 for transparency.
var gifPalette = append(color.Palette{color.NRGBA{}}, palette.WebSafe...)

// GIF builds an animated preview from frames and per-frame jiffy delays.
// Pixels under half alpha become transparent.
func GIF(frames []*image.NRGBA, rates []int) *gif.GIF {
	var images []*image.Paletted
	var delays []int
	var dispose []byte

	rect := image.Rectangle{}
	for _, f := range frames {
		rect = rect.Union(f.Bounds().Sub(f.Bounds().Min))
	}

	opaque := gifPalette[1:]
	for i, f := range frames {
		img := image.NewPaletted(rect, gifPalette)
		b := f.Bounds()
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := f.NRGBAAt(b.Min.X+x, b.Min.Y+y)
				if c.A < 0x80 {
					continue
				}
				img.SetColorIndex(x, y, uint8(opaque.Index(color.NRGBA{c.R, c.G, c.B, 0xff})+1))
			}
		}

		delay := 10
		if i < len(rates) {
			// jiffies are 1/60 s, GIF delays 1/100 s
			delay = (rates[i]*100 + 30) / 60
		}
		images = append(images, img)
		delays = append(delays, delay)
		dispose = append(dispose, gif.DisposalBackground)
	}

	return &gif.GIF{
		Image:    images,
		Delay:    delays,
		Disposal: dispose,
	}
}

// WriteGIF renders every output frame of p and encodes them as a GIF.
func WriteGIF(w io.Writer, p *model.Project) error {
	frames, _, err := RenderAll(p)
	if err != nil {
		return err
	}
	rates := p.RealAniRates()
	if !p.IsAniCursor {
		rates = nil
	}
	return gif.EncodeAll(w, GIF(frames, rates))
}

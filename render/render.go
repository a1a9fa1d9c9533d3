// Package render composites a project's element stack into cursor frames.
package render

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/32bitkid/minecursor/logx"
	"github.com/32bitkid/minecursor/model"
)

var ErrMissingFrame = errors.New("frame not loaded")

// Warning is an element-level failure. The element was left out and the
// rest of the frame rendered.
type Warning struct {
	ElementID string
	Frame     int
	Err       error
}

func (w Warning) Error() string {
	return fmt.Sprintf("element %s frame %d: %v", w.ElementID, w.Frame, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Placement is where an element landed on the raw canvas, with the item as
// it was before compositing. Editors use it for hit-testing.
type Placement struct {
	ElementID string
	Rect      image.Rectangle
	Image     *image.NRGBA
}

type Frame struct {
	Image      *image.NRGBA
	Placements []Placement
	Warnings   []Warning
	// Drawn counts elements that contributed to the frame.
	Drawn int
}

// RenderFrame composites frame f of p at p.CanvasSize. Elements are drawn
// back to front. With forExport set, a frame with nothing drawn is given
// alpha 1 throughout so cursor writers keep it.
func RenderFrame(p *model.Project, f int, forExport bool) (*Frame, error) {
	raw := p.RawCanvasSize.Image()
	canvas := image.NewNRGBA(image.Rect(0, 0, max(raw.X, 0), max(raw.Y, 0)))
	out := &Frame{}

	for i := len(p.Elements) - 1; i >= 0; i-- {
		e := p.Elements[i]
		item, err := elementItem(e, f, out)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.ID, err)
		}
		if item == nil {
			continue
		}

		processed, off, err := Process(item, e)
		if err != nil {
			out.warn(e, f, err)
			continue
		}
		if err := ApplyMask(processed, e); err != nil {
			out.warn(e, f, err)
		}

		at := e.Position.Image().Sub(off)
		rect := processed.Rect.Add(at)
		draw.Draw(canvas, rect, processed, image.Point{}, draw.Over)
		out.Placements = append(out.Placements, Placement{ElementID: e.ID, Rect: rect, Image: processed})
		out.Drawn++
	}

	size := p.CanvasSize()
	if size != raw {
		canvas = Resize(canvas, size.X, size.Y, p.Resample)
	}
	if forExport && out.Drawn == 0 {
		for i := 3; i < len(canvas.Pix); i += 4 {
			canvas.Pix[i] = 1
		}
	}
	out.Image = canvas
	return out, nil
}

// elementItem resolves the raster e shows at f, or nil when it is hidden or
// has degraded. Only animation overflow and sub-project failures are
// returned as errors.
func elementItem(e *model.Element, f int, out *Frame) (image.Image, error) {
	idx, visible, err := e.FrameIndex(f)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, nil
	}

	var item *image.NRGBA
	if e.SubProject != nil {
		sub, err := RenderFrame(e.SubProject, idx, false)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", e.ID, err)
		}
		out.Warnings = append(out.Warnings, sub.Warnings...)
		item = sub.Image
	} else {
		if idx >= len(e.Frames) || e.Frames[idx] == nil {
			out.warn(e, f, ErrMissingFrame)
			return nil, nil
		}
		item = e.Frames[idx]
	}

	if e.MaskColor != nil {
		item = Recolor(model.ToNRGBA(item), *e.MaskColor)
	}
	logx.Logger().Debug("render element", "id", e.ID, "frame", f, "index", idx)
	return item, nil
}

func (fr *Frame) warn(e *model.Element, f int, err error) {
	logx.Logger().Warn("element skipped", "id", e.ID, "frame", f, "err", err)
	fr.Warnings = append(fr.Warnings, Warning{ElementID: e.ID, Frame: f, Err: err})
}

// RenderAll renders the project's output frames for export: one for a
// static cursor, FrameCount for an animated one.
func RenderAll(p *model.Project) ([]*image.NRGBA, []Warning, error) {
	n := p.OutputFrameCount()
	frames := make([]*image.NRGBA, n)
	var warnings []Warning
	for f := 0; f < n; f++ {
		fr, err := RenderFrame(p, f, true)
		if err != nil {
			return nil, nil, err
		}
		frames[f] = fr.Image
		warnings = append(warnings, fr.Warnings...)
	}
	return frames, warnings, nil
}

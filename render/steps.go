package render

import (
	"fmt"
	"image"
	"math"

	"github.com/32bitkid/minecursor/model"
)

type stepFunc func(item *image.NRGBA, e *model.Element) (*image.NRGBA, image.Point, error)

// StepLUT dispatches each process step. Steps that do not apply to an
// element return the item unchanged.
var StepLUT = map[model.ProcessStep]stepFunc{
	model.StepTranspose: transposeStep,
	model.StepCrop:      cropStep,
	model.StepScale:     scaleStep,
	model.StepRotate:    rotateStep,
}

func transposeStep(item *image.NRGBA, e *model.Element) (*image.NRGBA, image.Point, error) {
	switch {
	case e.ReverseX && e.ReverseY && e.ReverseWay == model.ReverseBoth:
		return Transpose(item), image.Point{}, nil
	case e.ReverseX && e.ReverseY && e.ReverseWay == model.ReverseYFirst:
		return flipH(flipV(item)), image.Point{}, nil
	case e.ReverseX && e.ReverseY:
		return flipV(flipH(item)), image.Point{}, nil
	case e.ReverseX:
		return flipH(item), image.Point{}, nil
	case e.ReverseY:
		return flipV(item), image.Point{}, nil
	}
	return item, image.Point{}, nil
}

// flipH mirrors img left to right, moving whole pixels.
func flipH(img *image.NRGBA) *image.NRGBA {
	out := cloneNRGBA(img)
	w := out.Rect.Dx()
	for y := 0; y < out.Rect.Dy(); y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+w*4]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			a, b := row[l*4:l*4+4], row[r*4:r*4+4]
			a[0], a[1], a[2], a[3], b[0], b[1], b[2], b[3] = b[0], b[1], b[2], b[3], a[0], a[1], a[2], a[3]
		}
	}
	return out
}

// flipV mirrors img top to bottom.
func flipV(img *image.NRGBA) *image.NRGBA {
	out := cloneNRGBA(img)
	w, h := out.Rect.Dx()*4, out.Rect.Dy()
	tmp := make([]byte, w)
	for t, b := 0, h-1; t < b; t, b = t+1, b-1 {
		top := out.Pix[t*out.Stride : t*out.Stride+w]
		bot := out.Pix[b*out.Stride : b*out.Stride+w]
		copy(tmp, top)
		copy(top, bot)
		copy(bot, tmp)
	}
	return out
}

// CropError reports margins that leave nothing of the item.
type CropError struct {
	Margins model.Margins
	Size    image.Point
}

func (e *CropError) Error() string {
	return fmt.Sprintf("crop %+v empties %dx%d item", e.Margins, e.Size.X, e.Size.Y)
}

func cropStep(item *image.NRGBA, e *model.Element) (*image.NRGBA, image.Point, error) {
	m := e.Crop
	if m.IsZero() {
		return item, image.Point{}, nil
	}
	b := item.Bounds()
	if b.Dx()-m.Left-m.Right <= 0 || b.Dy()-m.Up-m.Down <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0)), image.Point{}, &CropError{Margins: m, Size: b.Size()}
	}
	r := image.Rect(b.Min.X+m.Left, b.Min.Y+m.Up, b.Max.X-m.Right, b.Max.Y-m.Down)
	// Negative margins are clipped to the item.
	return cloneNRGBA(item.SubImage(r)), image.Point{}, nil
}

func scaleStep(item *image.NRGBA, e *model.Element) (*image.NRGBA, image.Point, error) {
	if e.Scale.IsIdentity() {
		return item, image.Point{}, nil
	}
	if e.Scale.X <= 0 || e.Scale.Y <= 0 || math.IsNaN(e.Scale.X) || math.IsNaN(e.Scale.Y) {
		return item, image.Point{}, fmt.Errorf("invalid scale %v,%v", e.Scale.X, e.Scale.Y)
	}
	b := item.Bounds()
	w := model.Round(float64(b.Dx()) * e.Scale.X)
	h := model.Round(float64(b.Dy()) * e.Scale.Y)
	return Resize(item, max(w, 1), max(h, 1), e.ScaleResample), image.Point{}, nil
}

func rotateStep(item *image.NRGBA, e *model.Element) (*image.NRGBA, image.Point, error) {
	if e.Rotation == 0 || math.Mod(e.Rotation, 360) == 0 {
		return item, image.Point{}, nil
	}
	out, off := Rotate(item, e.Rotation, e.Resample)
	return out, off, nil
}

// Process runs the element's process steps in order over a private copy of
// item and returns the result with the accumulated paste offset.
func Process(item image.Image, e *model.Element) (*image.NRGBA, image.Point, error) {
	steps := e.ProcSteps
	if err := model.ValidateProcSteps(steps); err != nil {
		return nil, image.Point{}, err
	}
	out := cloneNRGBA(item)
	var off image.Point
	for _, s := range steps {
		next, o, err := StepLUT[s](out, e)
		if err != nil {
			return nil, image.Point{}, fmt.Errorf("%v: %w", s, err)
		}
		out = next
		off = off.Add(o)
	}
	return out, off, nil
}

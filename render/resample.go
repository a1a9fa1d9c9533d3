package render

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/32bitkid/minecursor/model"
)

// hamming is a one-lobe windowed sinc, the same shape image editors offer
// as "Hamming".
var hamming = transform.ResampleFilter{
	Support: 1,
	Fn: func(x float64) float64 {
		x = math.Abs(x)
		if x >= 1 {
			return 0
		}
		if x == 0 {
			return 1
		}
		px := math.Pi * x
		return math.Sin(px) / px * (0.54 + 0.46*math.Cos(px))
	},
}

// Interpolators maps the resamplers x/image/draw implements natively.
var Interpolators = map[model.Resample]draw.Interpolator{
	model.ResampleNearest:  draw.NearestNeighbor,
	model.ResampleBilinear: draw.BiLinear,
	model.ResampleBicubic:  draw.CatmullRom,
}

// box includes both edges, so a destination pixel centred exactly between
// two sources averages them instead of getting no weight at all.
var box = transform.ResampleFilter{
	Support: 0.5 + 1e-6,
	Fn: func(x float64) float64 {
		if math.Abs(x) <= 0.5 {
			return 1
		}
		return 0
	},
}

// Filters maps the remaining resamplers to bild's separable filters.
var Filters = map[model.Resample]transform.ResampleFilter{
	model.ResampleBox:     box,
	model.ResampleHamming: hamming,
	model.ResampleLanczos: transform.Lanczos,
}

// kernels are Filters run through x/image/draw, which scales NRGBA at
// 16 bits per channel instead of bild's 8-bit premultiplied RGBA.
var kernels = func() map[model.Resample]*draw.Kernel {
	m := make(map[model.Resample]*draw.Kernel, len(Filters))
	for r, f := range Filters {
		m[r] = &draw.Kernel{Support: f.Support, At: f.Fn}
	}
	return m
}()

// Resize scales img to w x h.
func Resize(img image.Image, w, h int, r model.Resample) *image.NRGBA {
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
		return cloneNRGBA(img)
	}
	var interp draw.Interpolator = draw.NearestNeighbor
	if k, ok := kernels[r]; ok {
		interp = k
	} else if i, ok := Interpolators[r]; ok {
		interp = i
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	interp.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func resizeGray(m *image.Gray, w, h int, r model.Resample) *image.Gray {
	tmp := image.NewNRGBA(m.Rect)
	for i, v := range m.Pix {
		tmp.Pix[i*4], tmp.Pix[i*4+1], tmp.Pix[i*4+2], tmp.Pix[i*4+3] = v, v, v, 0xff
	}
	scaled := Resize(tmp, w, h, r)
	out := image.NewGray(scaled.Rect)
	for i := range out.Pix {
		out.Pix[i] = scaled.Pix[i*4]
	}
	return out
}

// rotatedSize is the bounding box of a w x h rectangle turned by deg.
func rotatedSize(w, h int, deg float64) (int, int) {
	sin, cos := sincos(deg)
	const eps = 1e-9
	nw := math.Ceil(math.Abs(float64(w)*cos)+math.Abs(float64(h)*sin)-eps)
	nh := math.Ceil(math.Abs(float64(w)*sin)+math.Abs(float64(h)*cos)-eps)
	return int(nw), int(nh)
}

// sincos is exact at quarter turns so those rotations stay lossless.
func sincos(deg float64) (float64, float64) {
	if q := math.Mod(deg, 90); q == 0 {
		switch int(math.Mod(deg/90, 4)+4) % 4 {
		case 0:
			return 0, 1
		case 1:
			return 1, 0
		case 2:
			return 0, -1
		default:
			return -1, 0
		}
	}
	return math.Sincos(deg * math.Pi / 180)
}

// Rotate turns img counter-clockwise by deg about its centre into an
// expanded canvas. off is how far the result must shift up and left to stay
// centred on the original position; it is zero for quarter turns.
func Rotate(img *image.NRGBA, deg float64, r model.Resample) (out *image.NRGBA, off image.Point) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	nw, nh := rotatedSize(w, h, deg)
	sin, cos := sincos(deg)

	cx, cy := float64(w)/2, float64(h)/2
	ncx, ncy := float64(nw)/2, float64(nh)/2
	m := f64.Aff3{
		cos, sin, ncx - cos*cx - sin*cy,
		-sin, cos, ncy + sin*cx - cos*cy,
	}

	interp, ok := Interpolators[r.ForRotation()]
	if !ok {
		interp = draw.NearestNeighbor
	}
	src := img
	if b.Min != (image.Point{}) {
		src = model.ToNRGBA(img)
	}
	out = image.NewNRGBA(image.Rect(0, 0, nw, nh))
	interp.Transform(out, m, src, src.Bounds(), draw.Src, nil)

	if math.Mod(deg, 90) != 0 {
		off = image.Pt((nw-w)/2, (nh-h)/2)
	}
	return out, off
}

// Transpose swaps the axes of img.
func Transpose(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	m := f64.Aff3{
		0, 1, float64(-b.Min.Y),
		1, 0, float64(-b.Min.X),
	}
	draw.NearestNeighbor.Transform(out, m, img, b, draw.Src, nil)
	return out
}

// cloneNRGBA always allocates, so callers may write to the result.
func cloneNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	return dst
}

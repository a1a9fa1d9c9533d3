package render

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/32bitkid/minecursor/model"
)

var (
	red   = model.RGB{R: 255}
	green = model.RGB{G: 255}
	blue  = model.RGB{B: 255}
)

func solid(t *testing.T, w, h int, c model.RGB) *model.Element {
	t.Helper()
	e := model.NewElement("solid")
	require.NoError(t, e.AddFrame(model.RectInfo(w, h, c, 255), nil))
	return e
}

func project(w, h int, elems ...*model.Element) *model.Project {
	p := model.NewProject("test", model.KindArrow, w, h)
	p.Elements = elems
	return p
}

func alphaSum(img *image.NRGBA) int {
	sum := 0
	for i := 3; i < len(img.Pix); i += 4 {
		sum += int(img.Pix[i])
	}
	return sum
}

func TestEmptyStatic(t *testing.T) {
	p := project(16, 16)

	fr, err := RenderFrame(p, 0, false)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(16, 16), fr.Image.Rect.Size())
	assert.Zero(t, alphaSum(fr.Image))
	assert.Zero(t, fr.Drawn)

	frames, _, err := RenderAll(p)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	for i := 3; i < len(frames[0].Pix); i += 4 {
		require.EqualValues(t, 1, frames[0].Pix[i])
	}
}

func TestSingleRedSquare(t *testing.T) {
	e := solid(t, 16, 16, red)
	e.Position = model.Point{X: 8, Y: 8}
	p := project(32, 32, e)
	p.Scale = 2

	fr, err := RenderFrame(p, 0, false)
	require.NoError(t, err)
	img := fr.Image
	require.Equal(t, image.Pt(64, 64), img.Rect.Size())
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			c := img.NRGBAAt(x, y)
			if x >= 16 && x < 48 && y >= 16 && y < 48 {
				require.Equal(t, color.NRGBA{255, 0, 0, 255}, c, "(%d,%d)", x, y)
			} else {
				require.Zero(t, c.A, "(%d,%d)", x, y)
			}
		}
	}
	require.Len(t, fr.Placements, 1)
	assert.Equal(t, image.Rect(8, 8, 24, 24), fr.Placements[0].Rect)
}

func TestBottomUpOrder(t *testing.T) {
	front := solid(t, 4, 4, red)
	back := solid(t, 4, 4, blue)
	p := project(4, 4, front, back)

	fr, err := RenderFrame(p, 0, false)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, fr.Image.NRGBAAt(1, 1))
}

func TestFrameCountContract(t *testing.T) {
	e := solid(t, 2, 2, red)
	require.NoError(t, e.AddFrame(model.RectInfo(2, 2, green, 255), nil))
	p := project(2, 2, e)

	frames, _, err := RenderAll(p)
	require.NoError(t, err)
	assert.Len(t, frames, 1)

	p.IsAniCursor = true
	p.FrameCount = 2
	p.AniRate = 30
	frames, _, err = RenderAll(p)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, frames[0].NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, frames[1].NRGBAAt(0, 0))

	p.FrameCount = 5
	frames, _, err = RenderAll(p)
	require.NoError(t, err)
	assert.Len(t, frames, 5)
}

func TestDeterministic(t *testing.T) {
	e := solid(t, 10, 6, red)
	e.Rotation = 33
	e.Resample = model.ResampleBicubic
	e.Scale = model.Vec{X: 1.5, Y: 0.75}
	e.ScaleResample = model.ResampleLanczos
	e.Position = model.Point{X: 3, Y: 4}
	p := project(24, 24, e)
	p.Scale = 1.5
	p.Resample = model.ResampleHamming

	a, err := RenderFrame(p, 0, true)
	require.NoError(t, err)
	b, err := RenderFrame(p, 0, true)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a.Image.Pix, b.Image.Pix))
	assert.Equal(t, image.Pt(36, 36), a.Image.Rect.Size())
}

func TestCanvasSize(t *testing.T) {
	for _, tc := range []struct {
		raw   model.Point
		scale float64
		want  image.Point
	}{
		{model.Point{X: 32, Y: 32}, 1, image.Pt(32, 32)},
		{model.Point{X: 32, Y: 16}, 0.5, image.Pt(16, 8)},
		{model.Point{X: 15, Y: 15}, 1.5, image.Pt(23, 23)},
		{model.Point{X: 7, Y: 9}, 3, image.Pt(21, 27)},
	} {
		p := project(tc.raw.X, tc.raw.Y, solid(t, 4, 4, red))
		p.Scale = tc.scale
		fr, err := RenderFrame(p, 0, false)
		require.NoError(t, err)
		assert.Equal(t, tc.want, fr.Image.Rect.Size())
	}
}

func TestElementVisibility(t *testing.T) {
	e := solid(t, 4, 4, red)
	require.NoError(t, e.AddFrame(model.RectInfo(4, 4, green, 255), nil))
	e.AnimationStartOffset = 3
	e.LoopAnimation = false
	p := project(4, 4, e)

	for f := 0; f < 8; f++ {
		fr, err := RenderFrame(p, f, false)
		require.NoError(t, err)
		if f < 3 || f >= 5 {
			assert.Zero(t, alphaSum(fr.Image), "frame %d", f)
		} else {
			assert.NotZero(t, alphaSum(fr.Image), "frame %d", f)
		}
	}
}

// A left half red, right half green 4x2 frame.
func halves(t *testing.T) *model.Element {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				img.SetNRGBA(x, y, color.NRGBA{255, 0, 0, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{0, 255, 0, 255})
			}
		}
	}
	info, err := model.ImageInfo(img)
	require.NoError(t, err)
	e := model.NewElement("halves")
	require.NoError(t, e.AddFrame(info, nil))
	return e
}

func TestProcStepOrderObservable(t *testing.T) {
	cropThenScale := halves(t)
	cropThenScale.Crop = model.Margins{Left: 1}
	cropThenScale.Scale = model.Vec{X: 2, Y: 1}
	cropThenScale.ProcSteps = []model.ProcessStep{model.StepTranspose, model.StepCrop, model.StepScale, model.StepRotate}

	scaleThenCrop := halves(t)
	scaleThenCrop.Crop = model.Margins{Left: 1}
	scaleThenCrop.Scale = model.Vec{X: 2, Y: 1}
	scaleThenCrop.ProcSteps = []model.ProcessStep{model.StepTranspose, model.StepScale, model.StepCrop, model.StepRotate}

	a, _, err := Process(cropThenScale.Frames[0], cropThenScale)
	require.NoError(t, err)
	b, _, err := Process(scaleThenCrop.Frames[0], scaleThenCrop)
	require.NoError(t, err)

	assert.Equal(t, 6, a.Rect.Dx())
	assert.Equal(t, 7, b.Rect.Dx())
	assert.NotEqual(t, a.Pix, b.Pix)
}

func TestTranspose(t *testing.T) {
	e := halves(t)
	e.ReverseX = true
	out, _, err := Process(e.Frames[0], e)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, out.NRGBAAt(0, 0))

	e.ReverseY = true
	e.ReverseWay = model.ReverseBoth
	out, _, err = Process(e.Frames[0], e)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(2, 4), out.Rect.Size())
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(0, 1))
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, out.NRGBAAt(1, 3))

	e.ReverseWay = model.ReverseXFirst
	out, _, err = Process(e.Frames[0], e)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(4, 2), out.Rect.Size())
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(3, 1))
}

func TestStepsKeepSoftEdges(t *testing.T) {
	faint := color.NRGBA{100, 50, 25, 3}
	soft := color.NRGBA{200, 10, 90, 40}
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, faint)
	src.SetNRGBA(1, 0, soft)
	src.SetNRGBA(0, 1, soft)
	src.SetNRGBA(1, 1, faint)

	for _, tc := range []struct {
		name   string
		setup  func(e *model.Element)
		x0, x1 color.NRGBA
	}{
		{"none", func(e *model.Element) {}, faint, soft},
		{"reverse x", func(e *model.Element) { e.ReverseX = true }, soft, faint},
		{"reverse y", func(e *model.Element) { e.ReverseY = true }, soft, faint},
		{"outer crop", func(e *model.Element) { e.Crop = model.Margins{Left: -1, Up: -1} }, faint, soft},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := model.NewElement("edge")
			tc.setup(e)
			out, _, err := Process(src, e)
			require.NoError(t, err)
			require.Equal(t, image.Pt(2, 2), out.Rect.Size())
			assert.Equal(t, tc.x0, out.NRGBAAt(0, 0))
			assert.Equal(t, tc.x1, out.NRGBAAt(1, 0))
		})
	}

	e := model.NewElement("edge")
	e.Crop = model.Margins{Left: 1}
	out, _, err := Process(src, e)
	require.NoError(t, err)
	assert.Equal(t, soft, out.NRGBAAt(0, 0))
	assert.Equal(t, faint, out.NRGBAAt(0, 1))
}

func TestResizeKeepsSoftColour(t *testing.T) {
	soft := color.NRGBA{200, 10, 90, 40}
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 4; i++ {
		src.SetNRGBA(i%2, i/2, soft)
	}
	for _, r := range []model.Resample{model.ResampleBox, model.ResampleHamming, model.ResampleLanczos} {
		out := Resize(src, 3, 3, r)
		require.Equal(t, image.Pt(3, 3), out.Rect.Size())
		for i := 0; i < len(out.Pix); i += 4 {
			assert.InDelta(t, 200, int(out.Pix[i]), 1, "%v", r)
			assert.InDelta(t, 10, int(out.Pix[i+1]), 1, "%v", r)
			assert.InDelta(t, 90, int(out.Pix[i+2]), 1, "%v", r)
			assert.InDelta(t, 40, int(out.Pix[i+3]), 1, "%v", r)
		}
	}
}

func TestRotationExpansion(t *testing.T) {
	e := solid(t, 16, 16, red)
	e.Rotation = 45
	out, off, err := Process(e.Frames[0], e)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(23, 23), out.Rect.Size())
	assert.Equal(t, image.Pt(3, 3), off)

	e.Position = model.Point{X: 10, Y: 10}
	fr, err := RenderFrame(project(48, 48, e), 0, false)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(7, 7, 30, 30), fr.Placements[0].Rect)

	e.Rotation = 90
	out, off, err = Process(e.Frames[0], e)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(16, 16), out.Rect.Size())
	assert.Equal(t, image.Point{}, off)
	assert.Equal(t, 16*16*255, alphaSum(out))
}

func TestQuarterTurnIsExact(t *testing.T) {
	e := halves(t)
	e.Rotation = 90
	out, off, err := Process(e.Frames[0], e)
	require.NoError(t, err)
	assert.Equal(t, image.Point{}, off)
	require.Equal(t, image.Pt(2, 4), out.Rect.Size())
	// counter-clockwise: the right (green) half ends up on top
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(1, 3))
}

func TestMaskOverride(t *testing.T) {
	build := func(withMask bool) *model.Project {
		img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.SetNRGBA(x, y, color.NRGBA{200, 100, 50, uint8(x * 30)})
			}
		}
		info, err := model.ImageInfo(img)
		require.NoError(t, err)
		e := model.NewElement("masked")
		require.NoError(t, e.AddFrame(info, nil))
		if withMask {
			e.Mask = MaskFromAlpha(e.Frames[0])
		}
		e.Position = model.Point{X: 2, Y: 2}
		return project(12, 12, e)
	}
	a, err := RenderFrame(build(true), 0, false)
	require.NoError(t, err)
	b, err := RenderFrame(build(false), 0, false)
	require.NoError(t, err)
	assert.Equal(t, a.Image.Pix, b.Image.Pix)
}

func TestMaskModes(t *testing.T) {
	e := solid(t, 4, 4, red)
	e.Mask = image.NewGray(image.Rect(0, 0, 4, 4))
	FillMask(e.Mask, image.Rect(0, 0, 2, 4), 0xff)

	item := cloneNRGBA(e.Frames[0])
	require.NoError(t, ApplyMask(item, e))
	assert.EqualValues(t, 0xff, item.NRGBAAt(0, 0).A)
	assert.EqualValues(t, 0, item.NRGBAAt(3, 0).A)

	e.SubProject = project(4, 4)
	half := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 3; i < len(half.Pix); i += 4 {
		half.Pix[i] = 0x80
	}
	require.NoError(t, ApplyMask(half, e))
	assert.EqualValues(t, 0x80, half.NRGBAAt(0, 0).A)
	assert.EqualValues(t, 0, half.NRGBAAt(3, 0).A)

	e.SubProject = nil
	small := cloneNRGBA(e.Frames[0])
	e.Mask = image.NewGray(image.Rect(0, 0, 2, 2))
	var sizeErr *MaskSizeError
	assert.ErrorAs(t, ApplyMask(small, e), &sizeErr)

	e.AllowMaskScale = true
	require.NoError(t, ApplyMask(small, e))
	assert.Zero(t, alphaSum(small))
}

func TestMaskEditing(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 9, 9))
	BrushMask(m, image.Pt(4, 4), 2, 0xff)
	assert.EqualValues(t, 0xff, m.GrayAt(4, 4).Y)
	assert.EqualValues(t, 0xff, m.GrayAt(6, 4).Y)
	assert.EqualValues(t, 0, m.GrayAt(6, 6).Y)
	assert.EqualValues(t, 0, m.GrayAt(0, 0).Y)

	InvertMask(m)
	assert.EqualValues(t, 0, m.GrayAt(4, 4).Y)
	assert.EqualValues(t, 0xff, m.GrayAt(0, 0).Y)

	FillMask(m, image.Rect(-5, -5, 100, 100), 0)
	for _, v := range m.Pix {
		require.Zero(t, v)
	}
}

func TestMaskColor(t *testing.T) {
	e := solid(t, 4, 4, red)
	e.MaskColor = &blue
	fr, err := RenderFrame(project(4, 4, e), 0, false)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, fr.Image.NRGBAAt(2, 2))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, e.Frames[0].NRGBAAt(2, 2), "source frame untouched")
}

func TestSubProjectLoop(t *testing.T) {
	colours := []model.RGB{red, green, blue, {R: 255, G: 255}}
	inner := solid(t, 2, 2, colours[0])
	for _, c := range colours[1:] {
		require.NoError(t, inner.AddFrame(model.RectInfo(2, 2, c, 255), nil))
	}
	sub := project(2, 2, inner)
	sub.IsAniCursor = true
	sub.FrameCount = 4

	host := model.NewSubProjectElement("host", sub)
	host.AnimationStartOffset = 2
	p := project(2, 2, host)

	fr, err := RenderFrame(p, 10, false)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, fr.Image.NRGBAAt(0, 0))

	fr, err = RenderFrame(p, 11, false)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, fr.Image.NRGBAAt(0, 0))
}

func TestDegradedElement(t *testing.T) {
	broken := model.NewElement("broken")
	broken.SourceInfos = []model.AssetSourceInfo{model.ArchiveInfo("gone", "x.png")}
	broken.Frames = []*image.NRGBA{nil}
	p := project(4, 4, broken, solid(t, 4, 4, green))

	fr, err := RenderFrame(p, 0, false)
	require.NoError(t, err)
	require.Len(t, fr.Warnings, 1)
	assert.ErrorIs(t, fr.Warnings[0], ErrMissingFrame)
	assert.Equal(t, broken.ID, fr.Warnings[0].ElementID)
	assert.Equal(t, 1, fr.Drawn)
}

func TestAnimationOverflowAborts(t *testing.T) {
	e := solid(t, 2, 2, red)
	require.NoError(t, e.AddFrame(model.RectInfo(2, 2, green, 255), nil))
	assert.Error(t, e.SetAnimationData([]model.AnimationFrameData{{IndexIncrement: 0, FrameDelay: 1}}))

	_, err := RenderFrame(project(2, 2, e), 1, false)
	assert.ErrorIs(t, err, model.ErrAnimationOverflow)
}

func TestCropEmptiesItem(t *testing.T) {
	e := solid(t, 4, 4, red)
	e.Crop = model.Margins{Left: 3, Right: 3}
	fr, err := RenderFrame(project(4, 4, e), 0, false)
	require.NoError(t, err)
	require.Len(t, fr.Warnings, 1)
	var cropErr *CropError
	assert.ErrorAs(t, fr.Warnings[0], &cropErr)
}

func TestGIF(t *testing.T) {
	e := solid(t, 4, 4, red)
	require.NoError(t, e.AddFrame(model.RectInfo(4, 4, green, 255), nil))
	p := project(8, 8, e)
	p.IsAniCursor = true
	p.FrameCount = 2
	p.AniRates = []int{6, 60}

	var buf bytes.Buffer
	require.NoError(t, WriteGIF(&buf, p))
	g, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	require.Len(t, g.Image, 2)
	assert.Equal(t, []int{10, 100}, g.Delay)
	_, _, _, a := g.Image[0].At(7, 7).RGBA()
	assert.Zero(t, a)
	r, _, _, _ := g.Image[0].At(1, 1).RGBA()
	assert.EqualValues(t, 0xffff, r)
}

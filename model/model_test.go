package model

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = RGB{255, 0, 0}
	green = RGB{0, 255, 0}
)

func rectElement(t *testing.T, colors ...RGB) *Element {
	t.Helper()
	e := NewElement("layer")
	for _, c := range colors {
		require.NoError(t, e.AddFrame(RectInfo(4, 4, c, 255), nil))
	}
	return e
}

func TestAnimationIndexDefault(t *testing.T) {
	e := rectElement(t, red, green, red)
	for f, want := range []int{0, 1, 2, 0, 1, 2} {
		idx, visible, err := e.FrameIndex(f)
		require.NoError(t, err)
		assert.True(t, visible)
		assert.Equal(t, want, idx, "frame %d", f)
	}
}

func TestAnimationIndexDelays(t *testing.T) {
	e := rectElement(t, red, green)
	require.NoError(t, e.SetAnimationData([]AnimationFrameData{
		{IndexIncrement: 1, FrameDelay: 2},
		{IndexIncrement: 1, FrameDelay: 1},
	}))
	for f, want := range []int{0, 0, 1, 0, 0, 1} {
		idx, _, err := e.FrameIndex(f)
		require.NoError(t, err)
		assert.Equal(t, want, idx, "frame %d", f)
	}
}

func TestAnimationIndexReverse(t *testing.T) {
	e := rectElement(t, red, green, red)
	e.ReverseAnimation = true
	for f, want := range []int{2, 1, 0} {
		idx, _, err := e.FrameIndex(f)
		require.NoError(t, err)
		assert.Equal(t, want, idx)
	}
}

func TestAnimationOverflow(t *testing.T) {
	e := rectElement(t, red, green, red)
	err := e.SetAnimationData([]AnimationFrameData{
		{IndexIncrement: 0, FrameDelay: 1},
		{IndexIncrement: 0, FrameDelay: 3},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnimationOverflow))

	_, _, err = e.FrameIndex(1)
	var ae *AnimationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, e.ID, ae.ElementID)
}

func TestAnimationIndexLongElement(t *testing.T) {
	colors := make([]RGB, 1200)
	for i := range colors {
		colors[i] = RGB{uint8(i), 0, 0}
	}
	e := rectElement(t, colors...)
	for _, f := range []int{5, 999, 1199, 1205, 4805} {
		idx, visible, err := e.FrameIndex(f)
		require.NoError(t, err, "frame %d", f)
		assert.True(t, visible)
		assert.Equal(t, f%1200, idx, "frame %d", f)
	}

	require.NoError(t, e.SetKeyData(AnimationKeyData{FrameStart: 3, FrameInv: 2, FrameLength: 1200}))
	require.NoError(t, e.SetEnableKeyAni(true))
	idx, _, err := e.FrameIndex(700)
	require.NoError(t, err)
	assert.Equal(t, (3+2*700)%1200, idx)
}

func TestVisibility(t *testing.T) {
	e := rectElement(t, red, green)
	e.AnimationStartOffset = 3
	e.LoopAnimation = false

	cases := []struct {
		frame   int
		visible bool
		index   int
	}{
		{0, false, 0},
		{2, false, 0},
		{3, true, 0},
		{4, true, 1},
		{5, false, 0},
		{9, false, 0},
	}
	for _, c := range cases {
		idx, visible, err := e.FrameIndex(c.frame)
		require.NoError(t, err)
		assert.Equal(t, c.visible, visible, "frame %d", c.frame)
		if visible {
			assert.Equal(t, c.index, idx, "frame %d", c.frame)
		}
	}
}

func TestSubProjectLoop(t *testing.T) {
	sub := NewProject("sub", KindArrow, 8, 8)
	sub.IsAniCursor = true
	sub.FrameCount = 4

	e := NewSubProjectElement("nested", sub)
	e.AnimationStartOffset = 2
	e.LoopAnimation = true

	idx, visible, err := e.FrameIndex(10)
	require.NoError(t, err)
	assert.True(t, visible)
	assert.Equal(t, 0, idx)

	idx, _, err = e.FrameIndex(7)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestStaticSubProjectFrameCount(t *testing.T) {
	sub := NewProject("sub", KindArrow, 8, 8)
	sub.FrameCount = 3
	require.False(t, sub.IsAniCursor)

	e := NewSubProjectElement("nested", sub)
	assert.Equal(t, 3, e.FrameCount())
	idx, visible, err := e.FrameIndex(4)
	require.NoError(t, err)
	assert.True(t, visible)
	assert.Equal(t, 1, idx)

	sub.FrameCount = 0
	assert.Equal(t, 1, e.FrameCount())
}

func TestKeyDataExpand(t *testing.T) {
	data := AnimationKeyData{FrameStart: 1, FrameInv: 2, FrameLength: 5}.Expand()
	require.Len(t, data, 3)
	for _, d := range data {
		assert.Equal(t, AnimationFrameData{IndexIncrement: 2, FrameDelay: 1}, d)
	}
	assert.Nil(t, AnimationKeyData{FrameInv: 0, FrameLength: 3}.Expand())

	e := rectElement(t, red, green, red, green)
	require.NoError(t, e.SetKeyData(AnimationKeyData{FrameStart: 1, FrameInv: 2, FrameLength: 4}))
	require.NoError(t, e.SetEnableKeyAni(true))
	assert.Len(t, e.AnimationData, 2)
	for f, want := range []int{1, 3, 1, 3} {
		idx, _, err := e.FrameIndex(f)
		require.NoError(t, err)
		assert.Equal(t, want, idx)
	}
}

func TestRealAniRates(t *testing.T) {
	p := NewProject("p", KindWait, 32, 32)
	p.IsAniCursor = true
	p.FrameCount = 4
	p.AniRate = 30

	assert.Equal(t, []int{30, 30, 30, 30}, p.RealAniRates())

	p.AniRates = []int{5, 6}
	assert.Equal(t, []int{5, 6, 30, 30}, p.RealAniRates())

	p.AniRates = []int{1, 2, 3, 4, 5, 6}
	assert.Equal(t, []int{1, 2, 3, 4}, p.RealAniRates())
}

func TestCanvasAndHotspot(t *testing.T) {
	p := NewProject("p", KindArrow, 21, 32)
	p.Scale = 1.5
	p.CenterPos = Point{3, 5}
	assert.Equal(t, image.Pt(32, 48), p.CanvasSize())
	assert.Equal(t, image.Pt(5, 8), p.Hotspot())

	assert.Equal(t, 1, p.OutputFrameCount())
	p.FrameCount = 7
	assert.Equal(t, 1, p.OutputFrameCount())
	p.IsAniCursor = true
	assert.Equal(t, 7, p.OutputFrameCount())
}

func TestValidateProcSteps(t *testing.T) {
	assert.NoError(t, ValidateProcSteps([]ProcessStep{StepRotate, StepScale, StepCrop, StepTranspose}))
	assert.Error(t, ValidateProcSteps([]ProcessStep{StepRotate, StepScale, StepCrop}))
	assert.Error(t, ValidateProcSteps([]ProcessStep{StepRotate, StepScale, StepCrop, StepCrop}))
}

func TestCycleRejected(t *testing.T) {
	outer := NewProject("outer", KindArrow, 8, 8)
	inner := NewProject("inner", KindArrow, 8, 8)

	e := NewElement("wrap")
	require.NoError(t, outer.InsertElement(0, e))
	require.NoError(t, e.SetSubProject(inner, outer.ID))

	back := NewElement("back")
	require.NoError(t, inner.InsertElement(0, back))
	err := back.SetSubProject(outer, inner.ID, outer.ID)
	assert.True(t, errors.Is(err, ErrCycle))

	self := NewSubProjectElement("self", outer)
	assert.True(t, errors.Is(outer.InsertElement(0, self), ErrCycle))
}

func TestKindTable(t *testing.T) {
	require.Len(t, Kinds, 17)
	assert.Equal(t, "Hand", KindLink.RegistryName())
	assert.Equal(t, "IBeam", KindText.RegistryName())
	assert.Equal(t, uint32(32651), KindHelp.OCR())
	assert.Equal(t, uint32(0), KindPen.OCR())
	k, err := ParseCursorKind("size_nw_se")
	require.NoError(t, err)
	assert.Equal(t, KindSizeNWSE, k)
}

func sampleTheme(t *testing.T) *Theme {
	t.Helper()
	th := NewTheme("Sample", "someone", 32)
	th.Note = "note"

	p := NewProject("Arrow", KindArrow, 32, 32)
	p.CenterPos = Point{1, 2}
	p.IsAniCursor = true
	p.FrameCount = 3
	p.AniRates = []int{4, 5}

	e := rectElement(t, red, green)
	e.Position = Point{3, 4}
	e.Scale = Vec{1.5, 0.5}
	e.Rotation = 12.5
	e.Crop = Margins{Left: 1, Down: 2}
	e.ReverseX = true
	e.ReverseWay = ReverseBoth
	e.ScaleResample = ResampleLanczos
	e.ProcSteps = []ProcessStep{StepScale, StepCrop, StepTranspose, StepRotate}
	e.MaskColor = &RGB{10, 20, 30}
	e.Mask = image.NewGray(image.Rect(0, 0, 4, 4))
	e.Mask.SetGray(1, 1, color.Gray{Y: 200})
	require.NoError(t, e.SetAnimationData([]AnimationFrameData{{IndexIncrement: 1, FrameDelay: 2}}))

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 4})
	info, err := ImageInfo(img)
	require.NoError(t, err)
	require.NoError(t, e.AddFrame(info, nil))
	require.NoError(t, p.InsertElement(0, e))

	sub := NewProject("sub", KindArrow, 8, 8)
	sub.IsAniCursor = true
	sub.FrameCount = 2
	require.NoError(t, sub.InsertElement(0, rectElement(t, green)))
	wrap := NewElement("wrap")
	require.NoError(t, wrap.SetSubProject(sub, p.ID))
	require.NoError(t, p.InsertElement(1, wrap))

	require.NoError(t, th.AddProject(p))
	require.NoError(t, th.AddProject(NewProject("Wait", KindWait, 16, 16)))
	return th
}

func TestDocumentRoundTrip(t *testing.T) {
	th := sampleTheme(t)

	var buf bytes.Buffer
	require.NoError(t, th.WriteDocument(&buf))

	back, warnings, err := ReadDocument(&buf, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, th, back)
}

func TestDocumentDefaults(t *testing.T) {
	doc := `{"name":"t","id":"ab","type":"normal","base_size":32,"author":"a","description":"",
	"create_time":1,"projects":[{"name":"p","id":"cd","kind":"wait","elements":[{"name":"e","id":"ef"}]}]}`
	th, _, err := ReadDocument(bytes.NewBufferString(doc), nil)
	require.NoError(t, err)
	p := th.Projects[0]
	assert.Equal(t, 1.0, p.Scale)
	assert.Equal(t, 1, p.FrameCount)
	e := p.Elements[0]
	assert.Equal(t, Vec{1, 1}, e.Scale)
	assert.Equal(t, DefaultProcSteps, e.ProcSteps)
	assert.True(t, e.LoopAnimation)
}

func TestDocumentDuplicateIDs(t *testing.T) {
	doc := `{"name":"t","id":"ab","projects":[{"name":"p","id":"cd"},{"name":"q","id":"cd"}]}`
	_, _, err := ReadDocument(bytes.NewBufferString(doc), nil)
	assert.True(t, errors.Is(err, ErrDuplicateID))

	doc = `{"name":"t","id":"ab","projects":[{"name":"p","id":"cd","elements":[{"id":"x"},{"id":"x"}]}]}`
	_, _, err = ReadDocument(bytes.NewBufferString(doc), nil)
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestDocumentMissingArchiveWarns(t *testing.T) {
	doc := `{"name":"t","id":"ab","projects":[{"name":"p","id":"cd","elements":[
	{"id":"x","source_infos":[{"type":"archive","source_id":"gone","path":"block/stone.png"}]}]}]}`
	th, warnings, err := ReadDocument(bytes.NewBufferString(doc), nil)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.True(t, errors.Is(warnings[0], ErrNoFrameReader))
	e := th.Projects[0].Elements[0]
	assert.Len(t, e.Frames, 1)
	assert.Nil(t, e.Frames[0])
	assert.Equal(t, []string{"gone"}, th.MissingSources(func(string) bool { return false }))
}

func TestCloneFreshIDs(t *testing.T) {
	th := sampleTheme(t)
	p := th.Projects[0]
	c, err := th.CopyProject(p.ID)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, c.ID)
	require.Len(t, c.Elements, len(p.Elements))
	for i := range c.Elements {
		assert.NotEqual(t, p.Elements[i].ID, c.Elements[i].ID)
		assert.Equal(t, p.Elements[i].SourceInfos, c.Elements[i].SourceInfos)
		assert.Equal(t, p.Elements[i].Frames, c.Elements[i].Frames)
	}
	c.Elements[0].Frames[0].Pix[0] = 7
	assert.NotEqual(t, c.Elements[0].Frames[0].Pix[0], p.Elements[0].Frames[0].Pix[0])
	assert.NotEqual(t, p.Elements[1].SubProject.ID, c.Elements[1].SubProject.ID)
}

func TestSafeFileName(t *testing.T) {
	for _, tc := range []struct {
		in, want string
		changed  bool
	}{
		{"Arrow", "Arrow", false},
		{"a/b:c", "a_b_c", true},
		{"what?", "what_", true},
		{"dots..", "dots__", true},
		{"", "_", true},
		{"光标", "光标", false},
	} {
		got, changed := SafeFileName(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.changed, changed, tc.in)
	}
}

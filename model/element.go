package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/jinzhu/copier"

	"github.com/32bitkid/minecursor/logx"
)

// Element is one layer of a cursor.
type Element struct {
	Name string `json:"name"`
	ID   string `json:"id"`

	// Frames parallels SourceInfos. A frame that failed to load is nil.
	Frames      []*image.NRGBA    `json:"-"`
	SourceInfos []AssetSourceInfo `json:"source_infos"`

	Position      Point         `json:"position"`
	Scale         Vec           `json:"scale"`
	Rotation      float64       `json:"rotation"`
	Crop          Margins       `json:"crop"`
	ReverseX      bool          `json:"reverse_x"`
	ReverseY      bool          `json:"reverse_y"`
	ReverseWay    ReverseWay    `json:"reverse_way"`
	Resample      Resample      `json:"resample"`
	ScaleResample Resample      `json:"scale_resample"`
	ProcSteps     []ProcessStep `json:"proc_step"`

	Mask           *image.Gray `json:"-"`
	MaskColor      *RGB        `json:"mask_color"`
	AllowMaskScale bool        `json:"allow_mask_scale"`

	AnimationStartOffset int                  `json:"animation_start_offset"`
	LoopAnimation        bool                 `json:"loop_animation"`
	ReverseAnimation     bool                 `json:"reverse_animation"`
	EnableKeyAni         bool                 `json:"enable_key_ani"`
	AnimationKeyData     AnimationKeyData     `json:"animation_key_data"`
	AnimationData        []AnimationFrameData `json:"animation_data"`

	SubProject *Project `json:"sub_project"`

	index *animationIndex
}

// NewElement returns an element with identity transforms.
func NewElement(name string) *Element {
	return &Element{
		Name:             name,
		ID:               NewID(),
		Scale:            Vec{1, 1},
		ProcSteps:        append([]ProcessStep(nil), DefaultProcSteps...),
		LoopAnimation:    true,
		AnimationKeyData: AnimationKeyData{FrameStart: 0, FrameInv: 1, FrameLength: 1},
	}
}

// NewSubProjectElement wraps p as a layer.
func NewSubProjectElement(name string, p *Project) *Element {
	e := NewElement(name)
	e.SubProject = p
	return e
}

// AddFrame appends a source and its frame, keeping both lists in step.
func (e *Element) AddFrame(info AssetSourceInfo, r FrameReader) error {
	frame, err := info.LoadFrame(r)
	if err != nil {
		return fmt.Errorf("element %s: load %v: %w", e.ID, info, err)
	}
	e.SourceInfos = append(e.SourceInfos, info)
	e.Frames = append(e.Frames, frame)
	return e.RebuildIndex()
}

// RemoveFrame drops the i-th source and frame.
func (e *Element) RemoveFrame(i int) error {
	if i < 0 || i >= len(e.SourceInfos) {
		return fmt.Errorf("element %s: frame %d out of range", e.ID, i)
	}
	e.SourceInfos = append(e.SourceInfos[:i], e.SourceInfos[i+1:]...)
	if i < len(e.Frames) {
		e.Frames = append(e.Frames[:i], e.Frames[i+1:]...)
	}
	return e.RebuildIndex()
}

// LoadFrames re-derives Frames from SourceInfos. Frames that cannot be
// loaded are left nil; their errors are joined into the result.
func (e *Element) LoadFrames(r FrameReader) error {
	e.Frames = nil
	if len(e.SourceInfos) == 0 {
		return nil
	}
	e.Frames = make([]*image.NRGBA, len(e.SourceInfos))
	var errs []error
	for i, info := range e.SourceInfos {
		frame, err := info.LoadFrame(r)
		if err != nil {
			logx.Logger().Warn("frame skipped", "element", e.ID, "source", info.String(), "err", err)
			errs = append(errs, fmt.Errorf("element %s frame %d: %w", e.ID, i, err))
			continue
		}
		e.Frames[i] = frame
	}
	return errors.Join(errs...)
}

// FrameCount is the length of the element's own animation: the
// sub-project's frame_count, or the number of frames. A static sub-project
// still cycles through its frame_count frames.
func (e *Element) FrameCount() int {
	if e.SubProject != nil {
		return max(e.SubProject.FrameCount, 1)
	}
	return len(e.Frames)
}

// SetAnimationData replaces the per-step data and rebuilds the index.
func (e *Element) SetAnimationData(data []AnimationFrameData) error {
	e.AnimationData = data
	return e.RebuildIndex()
}

// SetKeyData replaces the key data; with key animation enabled the step
// data is regenerated.
func (e *Element) SetKeyData(k AnimationKeyData) error {
	e.AnimationKeyData = k
	if e.EnableKeyAni {
		e.AnimationData = k.Expand()
	}
	return e.RebuildIndex()
}

func (e *Element) SetEnableKeyAni(on bool) error {
	e.EnableKeyAni = on
	return e.SetKeyData(e.AnimationKeyData)
}

// RebuildIndex recomputes the cached frame index. It must be called after
// any change to frames or animation data.
func (e *Element) RebuildIndex() error {
	e.index = nil
	if e.SubProject != nil {
		return nil
	}
	table, err := e.buildIndex()
	if err != nil {
		return &AnimationError{ElementID: e.ID, Err: err}
	}
	e.index = table
	return nil
}

func (e *Element) buildIndex() (*animationIndex, error) {
	start := 0
	if e.EnableKeyAni {
		start = e.AnimationKeyData.FrameStart
	}
	return buildAnimationIndex(len(e.Frames), e.AnimationData, start)
}

// FrameIndex resolves which frame (or sub-project frame) the element shows
// at project frame f. visible is false when the element is not drawn.
func (e *Element) FrameIndex(f int) (index int, visible bool, err error) {
	if f < e.AnimationStartOffset {
		return 0, false, nil
	}
	local := f - e.AnimationStartOffset
	n := e.FrameCount()
	if n == 0 {
		return 0, false, nil
	}
	if !e.LoopAnimation && local >= n {
		return 0, false, nil
	}
	switch {
	case n == 1:
		index = 0
	case e.SubProject != nil:
		index = local % n
	default:
		idx := e.index
		if idx == nil || idx.n != n {
			if idx, err = e.buildIndex(); err != nil {
				return 0, false, &AnimationError{ElementID: e.ID, Err: err}
			}
		}
		index = idx.at(local)
	}
	if e.ReverseAnimation {
		index = n - 1 - index
	}
	return index, true, nil
}

// SetSubProject makes p the element's frame source. ancestors are the ids
// of every project that contains e, directly or through sub-projects.
func (e *Element) SetSubProject(p *Project, ancestors ...string) error {
	if p != nil {
		seen := make(map[string]bool, len(ancestors))
		for _, id := range ancestors {
			seen[id] = true
		}
		if err := p.checkCycle(seen); err != nil {
			return err
		}
	}
	e.SubProject = p
	return e.RebuildIndex()
}

// Clone returns a deep copy with fresh ids throughout.
func (e *Element) Clone() (*Element, error) {
	c := new(Element)
	if err := copier.CopyWithOption(c, e, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone element %s: %w", e.ID, err)
	}
	c.reassignIDs()
	if err := c.RebuildIndex(); err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Element) reassignIDs() {
	e.ID = NewID()
	if e.SubProject != nil {
		e.SubProject.reassignIDs()
	}
}

type elementAlias Element

type elementJSON struct {
	*elementAlias
	MaskPNG []byte `json:"mask,omitempty"`
}

func (e *Element) MarshalJSON() ([]byte, error) {
	out := elementJSON{elementAlias: (*elementAlias)(e)}
	if e.Mask != nil && !e.Mask.Rect.Empty() {
		var buf bytes.Buffer
		if err := png.Encode(&buf, e.Mask); err != nil {
			return nil, fmt.Errorf("element %s: encode mask: %w", e.ID, err)
		}
		out.MaskPNG = buf.Bytes()
	}
	return json.Marshal(out)
}

func (e *Element) UnmarshalJSON(b []byte) error {
	*e = *NewElement("")
	in := elementJSON{elementAlias: (*elementAlias)(e)}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if len(in.MaskPNG) > 0 {
		img, err := png.Decode(bytes.NewReader(in.MaskPNG))
		if err != nil {
			return fmt.Errorf("element %s: decode mask: %w", e.ID, err)
		}
		e.Mask = toGray(img)
	}
	if err := ValidateProcSteps(e.ProcSteps); err != nil {
		return fmt.Errorf("element %s: %w", e.ID, err)
	}
	return nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return g
}

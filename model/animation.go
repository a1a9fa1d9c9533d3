package model

import (
	"errors"
	"fmt"
)

// AnimationKeyData is the compact authoring form of an element animation:
// starting at FrameStart, step FrameInv frames per tick over FrameLength frames.
type AnimationKeyData struct {
	FrameStart  int `json:"frame_start"`
	FrameInv    int `json:"frame_inv"`
	FrameLength int `json:"frame_length"`
}

// AnimationFrameData is one step of an element animation: hold the current
// frame for FrameDelay ticks, then advance IndexIncrement frames.
type AnimationFrameData struct {
	IndexIncrement int `json:"index_increment"`
	FrameDelay     int `json:"frame_delay"`
}

// Expand regenerates per-step data: ceil(FrameLength/FrameInv) steps of
// (FrameInv, 1).
func (k AnimationKeyData) Expand() []AnimationFrameData {
	if k.FrameInv <= 0 || k.FrameLength <= 0 {
		return nil
	}
	n := (k.FrameLength + k.FrameInv - 1) / k.FrameInv
	data := make([]AnimationFrameData, n)
	for i := range data {
		data[i] = AnimationFrameData{IndexIncrement: k.FrameInv, FrameDelay: 1}
	}
	return data
}

// ErrAnimationOverflow reports animation data that never moves off its
// starting frame.
var ErrAnimationOverflow = errors.New("animation index overflow")

// AnimationError reports which element failed frame-index resolution.
type AnimationError struct {
	ElementID string
	Err       error
}

func (e *AnimationError) Error() string {
	return fmt.Sprintf("element %s: %v", e.ElementID, e.Err)
}

func (e *AnimationError) Unwrap() error { return e.Err }

var defaultFrameData = []AnimationFrameData{{IndexIncrement: 1, FrameDelay: 1}}

// animationIndex resolves a tick to a frame without materialising the
// cycle: whole passes over data are skipped arithmetically and only the
// final partial pass is walked.
type animationIndex struct {
	n, start int
	data     []AnimationFrameData
	ticks    int // per pass
	advance  int // per pass
}

func buildAnimationIndex(n int, data []AnimationFrameData, start int) (*animationIndex, error) {
	if n <= 0 {
		return nil, nil
	}
	if len(data) == 0 {
		data = defaultFrameData
	}
	idx := &animationIndex{n: n, start: start, data: data}
	moves := false
	for _, d := range data {
		idx.ticks += max(d.FrameDelay, 0)
		idx.advance += d.IndexIncrement
		moves = moves || d.IndexIncrement != 0
	}
	if idx.ticks == 0 || !moves {
		return nil, ErrAnimationOverflow
	}
	return idx, nil
}

// at is the frame showing at tick local: the step whose accumulated delay
// first exceeds local.
func (idx *animationIndex) at(local int) int {
	passes := local / idx.ticks
	rem := local % idx.ticks
	adv := mod(passes, idx.n) * mod(idx.advance, idx.n)
	for _, d := range idx.data {
		delay := max(d.FrameDelay, 0)
		if rem < delay {
			break
		}
		rem -= delay
		adv += d.IndexIncrement
	}
	return mod(idx.start+adv, idx.n)
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

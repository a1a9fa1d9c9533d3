package cursor

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/32bitkid/minecursor/model"
)

// ReadFile loads a .cur, .ico or .ani file. Static cursors come back as a
// one-frame animation.
func ReadFile(path string) (*Animation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, []byte("RIFF")) {
		a, err := DecodeANI(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return a, nil
	}
	c, err := decodeCUR(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Animation{Frames: []image.Image{c.Image}, Rates: []int{DefaultRate}, HotSpot: c.HotSpot}, nil
}

// SourceInfos embeds every frame of a as an IMAGE source, in step order.
func (a *Animation) SourceInfos() ([]model.AssetSourceInfo, error) {
	order := a.Sequence
	if order == nil {
		order = make([]int, len(a.Frames))
		for i := range order {
			order[i] = i
		}
	}
	infos := make([]model.AssetSourceInfo, 0, len(order))
	for _, i := range order {
		if i < 0 || i >= len(a.Frames) {
			return nil, fmt.Errorf("sequence step %d out of range", i)
		}
		info, err := model.ImageInfo(a.Frames[i])
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

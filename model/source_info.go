package model

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
)

// SourceKind tags an AssetSourceInfo.
type SourceKind uint8

const (
	SourceArchive SourceKind = iota
	SourceRect
	SourceImage
)

var sourceKindNames = [...]string{"archive", "rect", "image"}

func (k SourceKind) String() string {
	if int(k) < len(sourceKindNames) {
		return sourceKindNames[k]
	}
	return fmt.Sprintf("SourceKind(%d)", uint8(k))
}

func (k SourceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *SourceKind) UnmarshalText(b []byte) error {
	for i, n := range sourceKindNames {
		if strings.EqualFold(n, string(b)) {
			*k = SourceKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown source kind %q", b)
}

// FrameReader resolves archive-backed frames. The source registry
// implements it.
type FrameReader interface {
	ReadFrame(sourceID, path string) (*image.NRGBA, error)
}

// ErrNoFrameReader is returned when an archive frame is loaded without a reader.
var ErrNoFrameReader = errors.New("no frame reader for archive source")

// AssetSourceInfo records where one frame of an Element came from.
// Only the fields of its Kind are meaningful.
type AssetSourceInfo struct {
	Kind SourceKind `json:"type"`

	// archive
	SourceID string `json:"source_id,omitempty"`
	Path     string `json:"path,omitempty"`

	// rect and image
	Size  Point `json:"size"`
	Color RGB   `json:"color"`
	Alpha uint8 `json:"alpha"`

	// image, PNG encoded
	Image []byte `json:"image,omitempty"`
}

func ArchiveInfo(sourceID, path string) AssetSourceInfo {
	return AssetSourceInfo{Kind: SourceArchive, SourceID: sourceID, Path: path}
}

func RectInfo(w, h int, c RGB, alpha uint8) AssetSourceInfo {
	return AssetSourceInfo{Kind: SourceRect, Size: Point{w, h}, Color: c, Alpha: alpha}
}

// ImageInfo embeds img as PNG.
func ImageInfo(img image.Image) (AssetSourceInfo, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return AssetSourceInfo{}, fmt.Errorf("encode embedded image: %w", err)
	}
	b := img.Bounds()
	return AssetSourceInfo{Kind: SourceImage, Size: Point{b.Dx(), b.Dy()}, Image: buf.Bytes()}, nil
}

// LoadFrame materialises the frame described by the info.
func (info AssetSourceInfo) LoadFrame(r FrameReader) (*image.NRGBA, error) {
	switch info.Kind {
	case SourceArchive:
		if r == nil {
			return nil, ErrNoFrameReader
		}
		return r.ReadFrame(info.SourceID, info.Path)
	case SourceRect:
		if info.Size.X <= 0 || info.Size.Y <= 0 {
			return nil, fmt.Errorf("rect source has size %dx%d", info.Size.X, info.Size.Y)
		}
		img := image.NewNRGBA(image.Rect(0, 0, info.Size.X, info.Size.Y))
		draw.Draw(img, img.Bounds(), image.NewUniform(info.Color.NRGBA(info.Alpha)), image.Point{}, draw.Src)
		return img, nil
	case SourceImage:
		src, err := png.Decode(bytes.NewReader(info.Image))
		if err != nil {
			return nil, fmt.Errorf("decode embedded image: %w", err)
		}
		return ToNRGBA(src), nil
	}
	return nil, fmt.Errorf("unhandled source kind %v", info.Kind)
}

func (info AssetSourceInfo) String() string {
	switch info.Kind {
	case SourceArchive:
		return info.SourceID + ":" + info.Path
	case SourceRect:
		return fmt.Sprintf("rect %dx%d %v", info.Size.X, info.Size.Y, info.Color)
	}
	return fmt.Sprintf("image %dx%d", info.Size.X, info.Size.Y)
}

// ToNRGBA returns img as an NRGBA anchored at the origin, copying unless it
// already is one.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Package cursor reads and writes Windows .cur and .ani cursor files.
package cursor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/32bitkid/bitreader"

	"github.com/32bitkid/minecursor/model"
)

var ErrFormat = errors.New("not a cursor file")

const (
	typeIcon   = 1
	typeCursor = 2

	// Entries at or above this edge are stored as PNG.
	pngThreshold = 256
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

type HotSpot struct {
	X uint16
	Y uint16
}

type iconDir struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

type iconDirEntry struct {
	Width    uint8
	Height   uint8
	Colors   uint8
	Reserved uint8
	HotSpot
	Size   uint32
	Offset uint32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

const (
	iconDirSize   = 6
	dirEntrySize  = 16
	infoHeaderLen = 40
)

// Cursor is a single cursor image with its click point.
type Cursor struct {
	Image   *image.NRGBA
	HotSpot image.Point
}

func sizeByte(n int) uint8 {
	if n >= 256 {
		return 0
	}
	return uint8(n)
}

// Encode writes img as a one-entry .cur with the given hotspot.
func Encode(w io.Writer, img image.Image, hot image.Point) error {
	src := model.ToNRGBA(img)
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("empty %dx%d image", b.Dx(), b.Dy())
	}
	if hot.X < 0 || hot.Y < 0 || hot.X > 0xffff || hot.Y > 0xffff {
		return fmt.Errorf("hotspot %v out of range", hot)
	}

	payload, err := encodePayload(src)
	if err != nil {
		return err
	}

	dir := iconDir{Type: typeCursor, Count: 1}
	entry := iconDirEntry{
		Width:   sizeByte(b.Dx()),
		Height:  sizeByte(b.Dy()),
		HotSpot: HotSpot{uint16(hot.X), uint16(hot.Y)},
		Size:    uint32(len(payload)),
		Offset:  iconDirSize + dirEntrySize,
	}
	if err := binary.Write(w, binary.LittleEndian, &dir); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, &entry); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// encodePayload picks a 32-bit DIB for the sizes every Windows version
// accepts and PNG for 256 pixels and up.
func encodePayload(img *image.NRGBA) ([]byte, error) {
	var buf bytes.Buffer
	b := img.Bounds()
	if b.Dx() >= pngThreshold || b.Dy() >= pngThreshold {
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	w, h := b.Dx(), b.Dy()
	maskStride := ((w + 31) / 32) * 4
	hdr := bitmapInfoHeader{
		Size:      infoHeaderLen,
		Width:     int32(w),
		Height:    int32(h * 2),
		Planes:    1,
		BitCount:  32,
		SizeImage: uint32(w*h*4 + maskStride*h),
	}
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}

	row := make([]byte, w*4)
	for y := h - 1; y >= 0; y-- {
		for x := 0; x < w; x++ {
			c := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = c.B, c.G, c.R, c.A
		}
		buf.Write(row)
	}

	mask := make([]byte, maskStride)
	for y := h - 1; y >= 0; y-- {
		clear(mask)
		for x := 0; x < w; x++ {
			if img.NRGBAAt(b.Min.X+x, b.Min.Y+y).A == 0 {
				mask[x/8] |= 0x80 >> uint(x%8)
			}
		}
		buf.Write(mask)
	}
	return buf.Bytes(), nil
}

// Decode reads the largest image of a .cur or .ico file.
func Decode(r io.Reader) (*Cursor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeCUR(data)
}

func decodeCUR(data []byte) (*Cursor, error) {
	rd := bytes.NewReader(data)
	var dir iconDir
	if err := binary.Read(rd, binary.LittleEndian, &dir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if dir.Reserved != 0 || (dir.Type != typeCursor && dir.Type != typeIcon) || dir.Count == 0 {
		return nil, ErrFormat
	}
	entries := make([]iconDirEntry, dir.Count)
	if err := binary.Read(rd, binary.LittleEndian, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	best := entries[0]
	for _, e := range entries[1:] {
		if edge(e.Width) > edge(best.Width) {
			best = e
		}
	}
	end := uint64(best.Offset) + uint64(best.Size)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: entry exceeds file", ErrFormat)
	}
	img, err := decodePayload(data[best.Offset:end])
	if err != nil {
		return nil, err
	}
	c := &Cursor{Image: img}
	if dir.Type == typeCursor {
		c.HotSpot = image.Pt(int(best.HotSpot.X), int(best.HotSpot.Y))
	}
	return c, nil
}

func edge(b uint8) int {
	if b == 0 {
		return 256
	}
	return int(b)
}

func decodePayload(p []byte) (*image.NRGBA, error) {
	if bytes.HasPrefix(p, pngSignature) {
		img, err := png.Decode(bytes.NewReader(p))
		if err != nil {
			return nil, err
		}
		return model.ToNRGBA(img), nil
	}

	rd := bytes.NewReader(p)
	var hdr bitmapInfoHeader
	if err := binary.Read(rd, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if hdr.Size < infoHeaderLen || hdr.Compression != 0 {
		return nil, fmt.Errorf("%w: unsupported bitmap header", ErrFormat)
	}
	if _, err := rd.Seek(int64(hdr.Size), io.SeekStart); err != nil {
		return nil, err
	}

	w, h := int(hdr.Width), int(hdr.Height/2)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: bad bitmap size %dx%d", ErrFormat, w, h)
	}
	var bpp int
	switch hdr.BitCount {
	case 32:
		bpp = 4
	case 24:
		bpp = 3
	default:
		return nil, fmt.Errorf("%w: %d-bit bitmaps are not supported", ErrFormat, hdr.BitCount)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	stride := ((w*bpp + 3) / 4) * 4
	row := make([]byte, stride)
	hasAlpha := false
	for y := h - 1; y >= 0; y-- {
		if _, err := io.ReadFull(rd, row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		for x := 0; x < w; x++ {
			px := row[x*bpp:]
			a := uint8(0xff)
			if bpp == 4 {
				a = px[3]
				hasAlpha = hasAlpha || a != 0
			}
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = px[2], px[1], px[0], a
		}
	}

	// Without a usable alpha channel the AND mask decides transparency.
	if !hasAlpha {
		if err := applyANDMask(rd, img); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func applyANDMask(r io.Reader, img *image.NRGBA) error {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	row := make([]byte, ((w+31)/32)*4)
	for y := h - 1; y >= 0; y-- {
		if _, err := io.ReadFull(r, row); err != nil {
			return fmt.Errorf("%w: mask: %v", ErrFormat, err)
		}
		bits := bitreader.NewReader(bytes.NewReader(row))
		for x := 0; x < w; x++ {
			transparent, err := bits.Read1()
			if err != nil {
				return err
			}
			i := img.PixOffset(x, y) + 3
			if transparent {
				img.Pix[i] = 0
			} else {
				img.Pix[i] = 0xff
			}
		}
	}
	return nil
}

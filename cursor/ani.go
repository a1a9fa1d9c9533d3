package cursor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
)

const (
	afIcon     = 0x1
	afSequence = 0x2

	aniHeaderSize = 36
	// DefaultRate is used when no per-frame rates are given, in jiffies.
	DefaultRate = 6
)

type aniHeader struct {
	Size        uint32
	Frames      uint32
	Steps       uint32
	Width       uint32
	Height      uint32
	BitCount    uint32
	Planes      uint32
	DisplayRate uint32
	Flags       uint32
}

// Animation is the content of an .ani file. Rates are per step in jiffies
// (1/60 s); Sequence maps steps to frames and defaults to identity.
type Animation struct {
	Frames   []image.Image
	Rates    []int
	Sequence []int
	HotSpot  image.Point

	Title  string
	Artist string
}

type chunkWriter struct {
	buf bytes.Buffer
}

func (c *chunkWriter) chunk(id string, data []byte) {
	c.buf.WriteString(id)
	binary.Write(&c.buf, binary.LittleEndian, uint32(len(data)))
	c.buf.Write(data)
	if len(data)%2 == 1 {
		c.buf.WriteByte(0)
	}
}

func (c *chunkWriter) list(kind string, body *chunkWriter) {
	c.chunk("LIST", append([]byte(kind), body.buf.Bytes()...))
}

func u32s(vals []int) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}

func zstr(s string) []byte { return append([]byte(s), 0) }

// EncodeANI writes a as a RIFF ACON file. Every frame is stored as a
// complete .cur.
func EncodeANI(w io.Writer, a *Animation) error {
	n := len(a.Frames)
	if n == 0 {
		return fmt.Errorf("animation has no frames")
	}
	seq := a.Sequence
	if seq == nil {
		seq = make([]int, n)
		for i := range seq {
			seq[i] = i
		}
	}
	for _, s := range seq {
		if s < 0 || s >= n {
			return fmt.Errorf("sequence step %d out of range", s)
		}
	}
	steps := len(seq)
	if a.Rates != nil && len(a.Rates) != steps {
		return fmt.Errorf("%d rates for %d steps", len(a.Rates), steps)
	}

	rate := DefaultRate
	if len(a.Rates) > 0 {
		rate = a.Rates[0]
	}
	hdr := aniHeader{
		Size:        aniHeaderSize,
		Frames:      uint32(n),
		Steps:       uint32(steps),
		DisplayRate: uint32(rate),
		Flags:       afIcon | afSequence,
	}

	var body chunkWriter
	if a.Title != "" || a.Artist != "" {
		var info chunkWriter
		if a.Title != "" {
			info.chunk("INAM", zstr(a.Title))
		}
		if a.Artist != "" {
			info.chunk("IART", zstr(a.Artist))
		}
		body.list("INFO", &info)
	}
	var hb bytes.Buffer
	binary.Write(&hb, binary.LittleEndian, &hdr)
	body.chunk("anih", hb.Bytes())
	if a.Rates != nil {
		body.chunk("rate", u32s(a.Rates))
	}
	body.chunk("seq ", u32s(seq))

	var fram chunkWriter
	for i, f := range a.Frames {
		var cur bytes.Buffer
		if err := Encode(&cur, f, a.HotSpot); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		fram.chunk("icon", cur.Bytes())
	}
	body.list("fram", &fram)

	var riff chunkWriter
	riff.chunk("RIFF", append([]byte("ACON"), body.buf.Bytes()...))
	_, err := w.Write(riff.buf.Bytes())
	return err
}

// DecodeANI parses a RIFF ACON file.
func DecodeANI(r io.Reader) (*Animation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "ACON" {
		return nil, ErrFormat
	}
	size := int(binary.LittleEndian.Uint32(data[4:8]))
	if 8+size > len(data) {
		return nil, fmt.Errorf("%w: truncated RIFF", ErrFormat)
	}

	a := &Animation{}
	var hdr *aniHeader
	err = walkChunks(data[12:8+size], func(id string, body []byte) error {
		switch id {
		case "anih":
			hdr = new(aniHeader)
			return binary.Read(bytes.NewReader(body), binary.LittleEndian, hdr)
		case "rate":
			a.Rates = readU32s(body)
		case "seq ":
			a.Sequence = readU32s(body)
		case "LIST":
			if len(body) < 4 {
				return fmt.Errorf("%w: short LIST", ErrFormat)
			}
			return walkChunks(body[4:], func(id string, sub []byte) error {
				switch id {
				case "icon":
					c, err := decodeCUR(sub)
					if err != nil {
						return fmt.Errorf("frame %d: %w", len(a.Frames), err)
					}
					if len(a.Frames) == 0 {
						a.HotSpot = c.HotSpot
					}
					a.Frames = append(a.Frames, c.Image)
				case "INAM":
					a.Title = string(bytes.TrimRight(sub, "\x00"))
				case "IART":
					a.Artist = string(bytes.TrimRight(sub, "\x00"))
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if hdr == nil {
		return nil, fmt.Errorf("%w: missing anih", ErrFormat)
	}
	if int(hdr.Frames) != len(a.Frames) {
		return nil, fmt.Errorf("%w: anih reports %d frames, found %d", ErrFormat, hdr.Frames, len(a.Frames))
	}
	if a.Rates == nil {
		a.Rates = make([]int, hdr.Steps)
		for i := range a.Rates {
			a.Rates[i] = int(hdr.DisplayRate)
		}
	}
	return a, nil
}

func walkChunks(b []byte, fn func(id string, body []byte) error) error {
	for len(b) >= 8 {
		id := string(b[0:4])
		n := int(binary.LittleEndian.Uint32(b[4:8]))
		if 8+n > len(b) {
			return fmt.Errorf("%w: chunk %q overruns its parent", ErrFormat, id)
		}
		if err := fn(id, b[8:8+n]); err != nil {
			return err
		}
		b = b[8+n:]
		if n%2 == 1 && len(b) > 0 {
			b = b[1:]
		}
	}
	return nil
}

func readU32s(b []byte) []int {
	out := make([]int, len(b)/4)
	for i := range out {
		out[i] = int(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

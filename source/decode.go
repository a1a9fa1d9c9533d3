package source

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/32bitkid/minecursor/model"
)

var ErrDecode = errors.New("decode failure")

type Decoder = func(r io.Reader) (image.Image, error)

// DecoderLUT maps a lower-case file extension to its image decoder.
type DecoderLUT map[string]Decoder

var Decoders = DecoderLUT{
	"png":  png.Decode,
	"gif":  gif.Decode,
	"jpg":  jpeg.Decode,
	"jpeg": jpeg.Decode,
	"bmp":  bmp.Decode,
	"tif":  tiff.Decode,
	"tiff": tiff.Decode,
	"webp": webp.Decode,
}

// IsImagePath reports whether name has an extension the LUT can decode.
func (lut DecoderLUT) IsImagePath(name string) bool {
	_, ok := lut[ext(name)]
	return ok
}

// Decode picks a decoder by extension, falling back to sniffing the
// content, and returns the frame as NRGBA.
func (lut DecoderLUT) Decode(name string, data []byte) (*image.NRGBA, error) {
	dec, ok := lut[ext(name)]
	if !ok {
		kind, err := filetype.Match(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", name, ErrDecode, err)
		}
		if dec, ok = lut[kind.Extension]; !ok {
			return nil, fmt.Errorf("%s: %w: unsupported format %q", name, ErrDecode, kind.Extension)
		}
	}
	img, err := dec(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrDecode, err)
	}
	return model.ToNRGBA(img), nil
}

func ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

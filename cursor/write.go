package cursor

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/32bitkid/minecursor/logx"
	"github.com/32bitkid/minecursor/model"
)

var ErrWrite = errors.New("cursor write failed")

// WriteError names the project whose cursor could not be written.
type WriteError struct {
	ProjectID string
	Path      string
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write cursor for project %s to %s: %v", e.ProjectID, e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{ErrWrite, e.Err} }

// Ext is ".ani" for animated projects and ".cur" otherwise.
func Ext(p *model.Project) string {
	if p.IsAniCursor {
		return ".ani"
	}
	return ".cur"
}

// writeStaged encodes into a fresh directory next to path and renames the
// result over path. The staging directory never outlives the call.
func writeStaged(path string, encode func(io.Writer) error) (err error) {
	stage, err := os.MkdirTemp(filepath.Dir(path), ".stage-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.RemoveAll(stage); rmErr != nil {
			logx.Logger().Warn("staging directory left behind", "dir", stage, "err", rmErr)
		}
	}()

	tmp := filepath.Join(stage, filepath.Base(path))
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// WriteCUR writes a static cursor file.
func WriteCUR(path string, img image.Image, hot image.Point) error {
	return writeStaged(path, func(w io.Writer) error { return Encode(w, img, hot) })
}

// WriteANI writes an animated cursor file.
func WriteANI(path string, a *Animation) error {
	return writeStaged(path, func(w io.Writer) error { return EncodeANI(w, a) })
}

// WriteProject writes p's rendered frames to path as .cur or .ani. The
// hotspot is the project's centre scaled to the output size; author fills
// the ANI artist field.
func WriteProject(path string, p *model.Project, frames []*image.NRGBA, author string) error {
	var err error
	switch {
	case len(frames) == 0:
		err = errors.New("no frames rendered")
	case p.IsAniCursor:
		imgs := make([]image.Image, len(frames))
		for i, f := range frames {
			imgs[i] = f
		}
		err = WriteANI(path, &Animation{
			Frames:  imgs,
			Rates:   fitRates(p.RealAniRates(), len(frames), p.AniRate),
			HotSpot: p.Hotspot(),
			Title:   p.Name,
			Artist:  author,
		})
	default:
		err = WriteCUR(path, frames[0], p.Hotspot())
	}
	if err != nil {
		return &WriteError{ProjectID: p.ID, Path: path, Err: err}
	}
	logx.Logger().Debug("cursor written", "project", p.ID, "path", path, "frames", len(frames))
	return nil
}

func fitRates(rates []int, n, fill int) []int {
	out := make([]int, n)
	for i := range out {
		if i < len(rates) {
			out[i] = rates[i]
		} else {
			out[i] = fill
		}
	}
	return out
}

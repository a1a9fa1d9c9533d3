package source

import (
	"archive/zip"
	"fmt"
	"image"
	"io"
	"io/fs"
	"sync"
)

// Archive is a lazily opened texture archive. The zip is opened on first
// use and stays open; reads are safe from several goroutines.
type Archive struct {
	path     string
	decoders DecoderLUT

	once  sync.Once
	err   error
	zr    *zip.ReadCloser
	files map[string]*zip.File
	names []string
}

func newArchive(path string, decoders DecoderLUT) *Archive {
	return &Archive{path: path, decoders: decoders}
}

func (a *Archive) open() error {
	a.once.Do(func() {
		zr, err := zip.OpenReader(a.path)
		if err != nil {
			a.err = fmt.Errorf("open archive %s: %w", a.path, err)
			return
		}
		a.zr = zr
		a.files = make(map[string]*zip.File, len(zr.File))
		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			a.files[f.Name] = f
			a.names = append(a.names, f.Name)
		}
	})
	return a.err
}

// Names lists every file in archive order.
func (a *Archive) Names() ([]string, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	return a.names, nil
}

func (a *Archive) Has(name string) bool {
	if a.open() != nil {
		return false
	}
	_, ok := a.files[name]
	return ok
}

// ReadFile returns the raw bytes of an entry.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	f, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", a.path, name, fs.ErrNotExist)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Frame decodes an entry as an image.
func (a *Archive) Frame(name string) (*image.NRGBA, error) {
	b, err := a.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return a.decoders.Decode(name, b)
}

func (a *Archive) Close() error {
	if a.zr == nil {
		return nil
	}
	return a.zr.Close()
}

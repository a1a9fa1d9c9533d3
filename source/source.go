// Package source implements the catalogue of texture archives that cursor
// frames are drawn from.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrSourceNotFound = errors.New("source not found")

const (
	DescriptorFile = "source.json"
	TexturesFile   = "textures.zip"
	RecommendFile  = "recommend.json"
	IconFile       = "icon.png"
)

// Descriptor is the persisted form of source.json.
type Descriptor struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Version     string `json:"version"`
	Authors     string `json:"authors"`
	Description string `json:"description"`
	Note        string `json:"note,omitempty"`
}

// AssetSource is one named archive of textures.
type AssetSource struct {
	Descriptor

	Dir           string
	TexturesPath  string
	RecommendPath string
	IconPath      string
	BuiltIn       bool
}

// LoadDir reads the source rooted at dir.
func LoadDir(dir string, builtIn bool) (*AssetSource, error) {
	b, err := os.ReadFile(filepath.Join(dir, DescriptorFile))
	if err != nil {
		return nil, err
	}
	var d Descriptor
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, DescriptorFile), err)
	}
	if d.ID == "" {
		d.ID = filepath.Base(dir)
	}
	src := &AssetSource{
		Descriptor:   d,
		Dir:          dir,
		TexturesPath: filepath.Join(dir, TexturesFile),
		BuiltIn:      builtIn,
	}
	if p := filepath.Join(dir, RecommendFile); fileExists(p) {
		src.RecommendPath = p
	}
	if p := filepath.Join(dir, IconFile); fileExists(p) {
		src.IconPath = p
	}
	return src, nil
}

// WriteDescriptor persists d as dir/source.json.
func WriteDescriptor(dir string, d Descriptor) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, DescriptorFile), b, 0o644)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/32bitkid/minecursor/logx"
	"github.com/32bitkid/minecursor/model"
)

// Manifest maps a cursor kind to its preferred archive paths.
type Manifest map[model.CursorKind][]string

// ParseManifest decodes a recommend.json document. Keys that do not name a
// cursor kind are logged and dropped.
func ParseManifest(b []byte) (Manifest, error) {
	var raw map[string][]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	m := make(Manifest, len(raw))
	for k, paths := range raw {
		kind, err := model.ParseCursorKind(k)
		if err != nil {
			logx.Logger().Warn("recommend key ignored", "key", k)
			continue
		}
		m[kind] = paths
	}
	return m, nil
}

// Merge appends other's entries after m's, skipping paths m already lists.
func (m Manifest) Merge(other Manifest) Manifest {
	out := make(Manifest, len(m)+len(other))
	for _, k := range model.Kinds {
		seen := map[string]bool{}
		for _, src := range []Manifest{m, other} {
			for _, p := range src[k] {
				if seen[p] {
					continue
				}
				seen[p] = true
				out[k] = append(out[k], p)
			}
		}
	}
	return out
}

// LoadRecommend merges the global manifest with a source-local one. Either
// path may be empty or absent.
func LoadRecommend(global, local string) (Manifest, error) {
	m := Manifest{}
	for _, p := range []string{global, local} {
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		next, err := ParseManifest(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		m = m.Merge(next)
	}
	return m, nil
}

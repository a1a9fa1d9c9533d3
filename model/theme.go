package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jinzhu/copier"
)

// Theme is a named collection of Projects, one per cursor role.
type Theme struct {
	Name        string     `json:"name"`
	Type        ThemeType  `json:"type"`
	ID          string     `json:"id"`
	BaseSize    int        `json:"base_size"`
	Author      string     `json:"author"`
	Description string     `json:"description"`
	Projects    []*Project `json:"projects"`
	CreateTime  float64    `json:"create_time"`
	Note        string     `json:"note,omitempty"`
	LicenseInfo string     `json:"license_info,omitempty"`
}

func NewTheme(name, author string, baseSize int) *Theme {
	return &Theme{
		Name:       name,
		ID:         NewID(),
		BaseSize:   baseSize,
		Author:     author,
		CreateTime: now(),
	}
}

// Project returns the project with the given id.
func (t *Theme) Project(id string) *Project {
	for _, p := range t.Projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ProjectFor returns the first project of the given kind.
func (t *Theme) ProjectFor(kind CursorKind) *Project {
	for _, p := range t.Projects {
		if p.Kind == kind {
			return p
		}
	}
	return nil
}

func (t *Theme) AddProject(p *Project) error {
	if t.Project(p.ID) != nil {
		return fmt.Errorf("theme %s: project %s: %w", t.ID, p.ID, ErrDuplicateID)
	}
	t.Projects = append(t.Projects, p)
	return nil
}

func (t *Theme) RemoveProject(id string) bool {
	for i, p := range t.Projects {
		if p.ID == id {
			t.Projects = append(t.Projects[:i], t.Projects[i+1:]...)
			return true
		}
	}
	return false
}

// CopyProject appends a deep copy of the project with the given id.
func (t *Theme) CopyProject(id string) (*Project, error) {
	p := t.Project(id)
	if p == nil {
		return nil, fmt.Errorf("theme %s: no project %s", t.ID, id)
	}
	c, err := p.Clone()
	if err != nil {
		return nil, err
	}
	t.Projects = append(t.Projects, c)
	return c, nil
}

// Clone returns a deep copy with fresh ids throughout.
func (t *Theme) Clone() (*Theme, error) {
	c := new(Theme)
	if err := copier.CopyWithOption(c, t, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone theme %s: %w", t.ID, err)
	}
	c.ID = NewID()
	var errs []error
	for _, p := range c.Projects {
		p.reassignIDs()
		errs = append(errs, p.rebuild())
	}
	return c, errors.Join(errs...)
}

type themeAlias Theme

func (t *Theme) UnmarshalJSON(b []byte) error {
	*t = Theme{}
	if err := json.Unmarshal(b, (*themeAlias)(t)); err != nil {
		return err
	}
	if t.ID == "" {
		return errors.New("theme document has no id")
	}
	return nil
}

// Rehydrate derives frames and animation indexes for every element and
// validates ids and sub-project nesting. The returned warnings are
// per-frame load failures; err is set for structural problems.
func (t *Theme) Rehydrate(r FrameReader) (warnings []error, err error) {
	ids := make(map[string]bool, len(t.Projects))
	for _, p := range t.Projects {
		if p == nil {
			return warnings, fmt.Errorf("theme %s: null project", t.ID)
		}
		if ids[p.ID] {
			return warnings, fmt.Errorf("theme %s: project %s: %w", t.ID, p.ID, ErrDuplicateID)
		}
		ids[p.ID] = true
		if err := p.rehydrate(r, map[string]bool{}, &warnings); err != nil {
			return warnings, fmt.Errorf("theme %s: %w", t.ID, err)
		}
	}
	return warnings, nil
}

// WriteDocument writes t as an indented JSON theme document.
func (t *Theme) WriteDocument(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// ReadDocument parses a theme document and rehydrates it with r.
func ReadDocument(rd io.Reader, r FrameReader) (*Theme, []error, error) {
	t := new(Theme)
	if err := json.NewDecoder(rd).Decode(t); err != nil {
		return nil, nil, fmt.Errorf("parse theme document: %w", err)
	}
	warnings, err := t.Rehydrate(r)
	if err != nil {
		return nil, warnings, err
	}
	return t, warnings, nil
}

// MissingSources lists archive source ids referenced by t that known does
// not report as present.
func (t *Theme) MissingSources(known func(id string) bool) []string {
	seen := map[string]bool{}
	var missing []string
	t.walkElements(func(e *Element) {
		for _, info := range e.SourceInfos {
			if info.Kind != SourceArchive || seen[info.SourceID] {
				continue
			}
			seen[info.SourceID] = true
			if !known(info.SourceID) {
				missing = append(missing, info.SourceID)
			}
		}
	})
	return missing
}

// SubstituteSource repoints every archive frame from one source to another
// and reloads the affected elements.
func (t *Theme) SubstituteSource(from, to string, r FrameReader) error {
	var errs []error
	t.walkElements(func(e *Element) {
		changed := false
		for i := range e.SourceInfos {
			if e.SourceInfos[i].Kind == SourceArchive && e.SourceInfos[i].SourceID == from {
				e.SourceInfos[i].SourceID = to
				changed = true
			}
		}
		if changed {
			errs = append(errs, e.LoadFrames(r), e.RebuildIndex())
		}
	})
	return errors.Join(errs...)
}

func (t *Theme) walkElements(fn func(*Element)) {
	for _, p := range t.Projects {
		p.walkElements(fn)
	}
}

func (p *Project) walkElements(fn func(*Element)) {
	for _, e := range p.Elements {
		fn(e)
		if e.SubProject != nil {
			e.SubProject.walkElements(fn)
		}
	}
}

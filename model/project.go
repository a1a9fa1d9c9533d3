package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/jinzhu/copier"
)

var (
	// ErrCycle reports a project that would contain itself through sub-projects.
	ErrCycle = errors.New("sub-project cycle")
	// ErrDuplicateID reports two projects or elements sharing an id.
	ErrDuplicateID = errors.New("duplicate id")
)

// Project is a single cursor.
type Project struct {
	Name         string     `json:"name"`
	ExternalName string     `json:"external_name"`
	ID           string     `json:"id"`
	Kind         CursorKind `json:"kind"`

	// Elements are stored front-most first.
	Elements []*Element `json:"elements"`

	RawCanvasSize Point    `json:"raw_canvas_size"`
	Scale         float64  `json:"scale"`
	CenterPos     Point    `json:"center_pos"`
	Resample      Resample `json:"resample"`

	IsAniCursor bool  `json:"is_ani_cursor"`
	FrameCount  int   `json:"frame_count"`
	AniRate     int   `json:"ani_rate"`
	AniRates    []int `json:"ani_rates"`

	Note       string  `json:"note,omitempty"`
	License    string  `json:"license,omitempty"`
	CreateTime float64 `json:"create_time"`
	MakeTime   float64 `json:"make_time"`
}

// NewProject returns an empty static cursor of the given kind and size.
func NewProject(name string, kind CursorKind, w, h int) *Project {
	return &Project{
		Name:          name,
		ID:            NewID(),
		Kind:          kind,
		RawCanvasSize: Point{w, h},
		Scale:         1,
		FrameCount:    1,
		AniRate:       6,
		CreateTime:    now(),
	}
}

func now() float64 {
	return float64(time.Now().UnixNano()/int64(time.Millisecond)) / 1000
}

// CanvasSize is the output size: round(RawCanvasSize * Scale).
func (p *Project) CanvasSize() image.Point {
	return image.Pt(Round(float64(p.RawCanvasSize.X)*p.Scale), Round(float64(p.RawCanvasSize.Y)*p.Scale))
}

// Hotspot is CenterPos scaled to the output size.
func (p *Project) Hotspot() image.Point {
	return image.Pt(Round(float64(p.CenterPos.X)*p.Scale), Round(float64(p.CenterPos.Y)*p.Scale))
}

// OutputFrameCount is 1 for static cursors and FrameCount otherwise.
func (p *Project) OutputFrameCount() int {
	if !p.IsAniCursor {
		return 1
	}
	if p.FrameCount < 1 {
		return 1
	}
	return p.FrameCount
}

// RealAniRates returns exactly FrameCount per-frame delays in jiffies:
// AniRates truncated, or right-padded with AniRate.
func (p *Project) RealAniRates() []int {
	n := p.FrameCount
	if n < 0 {
		n = 0
	}
	rates := make([]int, n)
	for i := range rates {
		if i < len(p.AniRates) {
			rates[i] = p.AniRates[i]
		} else {
			rates[i] = p.AniRate
		}
	}
	return rates
}

// AddMakeTime accumulates authoring time.
func (p *Project) AddMakeTime(d time.Duration) {
	p.MakeTime += d.Seconds()
}

// Element returns the element with the given id, searching nested
// sub-projects too.
func (p *Project) Element(id string) *Element {
	for _, e := range p.Elements {
		if e.ID == id {
			return e
		}
		if e.SubProject != nil {
			if found := e.SubProject.Element(id); found != nil {
				return found
			}
		}
	}
	return nil
}

// InsertElement places e at position i of the front-first list.
func (p *Project) InsertElement(i int, e *Element) error {
	if i < 0 || i > len(p.Elements) {
		return fmt.Errorf("project %s: insert position %d out of range", p.ID, i)
	}
	for _, other := range p.Elements {
		if other.ID == e.ID {
			return fmt.Errorf("project %s: element %s: %w", p.ID, e.ID, ErrDuplicateID)
		}
	}
	if e.SubProject != nil {
		if err := e.SubProject.checkCycle(map[string]bool{p.ID: true}); err != nil {
			return err
		}
	}
	p.Elements = append(p.Elements, nil)
	copy(p.Elements[i+1:], p.Elements[i:])
	p.Elements[i] = e
	return nil
}

// RemoveElement drops the element with the given id.
func (p *Project) RemoveElement(id string) bool {
	for i, e := range p.Elements {
		if e.ID == id {
			p.Elements = append(p.Elements[:i], p.Elements[i+1:]...)
			return true
		}
	}
	return false
}

// MoveElement moves the element at from to index to.
func (p *Project) MoveElement(from, to int) error {
	if from < 0 || from >= len(p.Elements) || to < 0 || to >= len(p.Elements) {
		return fmt.Errorf("project %s: move %d->%d out of range", p.ID, from, to)
	}
	e := p.Elements[from]
	p.Elements = append(p.Elements[:from], p.Elements[from+1:]...)
	p.Elements = append(p.Elements[:to], append([]*Element{e}, p.Elements[to:]...)...)
	return nil
}

// Clone returns a deep copy with fresh ids.
func (p *Project) Clone() (*Project, error) {
	c := new(Project)
	if err := copier.CopyWithOption(c, p, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone project %s: %w", p.ID, err)
	}
	c.reassignIDs()
	return c, c.rebuild()
}

func (p *Project) reassignIDs() {
	p.ID = NewID()
	for _, e := range p.Elements {
		e.reassignIDs()
	}
}

func (p *Project) rebuild() error {
	var errs []error
	for _, e := range p.Elements {
		if e.SubProject != nil {
			if err := e.SubProject.rebuild(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := e.RebuildIndex(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// checkCycle fails when p, or any project nested under it, is in ancestors.
func (p *Project) checkCycle(ancestors map[string]bool) error {
	if ancestors[p.ID] {
		return fmt.Errorf("project %s: %w", p.ID, ErrCycle)
	}
	ancestors[p.ID] = true
	defer delete(ancestors, p.ID)
	for _, e := range p.Elements {
		if e.SubProject == nil {
			continue
		}
		if err := e.SubProject.checkCycle(ancestors); err != nil {
			return err
		}
	}
	return nil
}

// rehydrate loads frames, builds animation indexes and validates ids and
// nesting. Frame load failures are collected in warn and do not abort.
func (p *Project) rehydrate(r FrameReader, ancestors map[string]bool, warn *[]error) error {
	if ancestors[p.ID] {
		return fmt.Errorf("project %s: %w", p.ID, ErrCycle)
	}
	ancestors[p.ID] = true
	defer delete(ancestors, p.ID)

	ids := make(map[string]bool, len(p.Elements))
	for _, e := range p.Elements {
		if e == nil {
			return fmt.Errorf("project %s: null element", p.ID)
		}
		if ids[e.ID] {
			return fmt.Errorf("project %s: element %s: %w", p.ID, e.ID, ErrDuplicateID)
		}
		ids[e.ID] = true
		if e.SubProject != nil {
			if err := e.SubProject.rehydrate(r, ancestors, warn); err != nil {
				return err
			}
		} else if err := e.LoadFrames(r); err != nil {
			*warn = append(*warn, err)
		}
		if err := e.RebuildIndex(); err != nil {
			return err
		}
	}
	return nil
}

type projectAlias Project

func (p *Project) UnmarshalJSON(b []byte) error {
	*p = Project{Scale: 1, FrameCount: 1, AniRate: 6}
	if err := json.Unmarshal(b, (*projectAlias)(p)); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = NewID()
	}
	return nil
}

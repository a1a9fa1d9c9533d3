// Package store persists themes as documents under a data directory.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/32bitkid/minecursor/logx"
	"github.com/32bitkid/minecursor/model"
)

var (
	ErrParse    = errors.New("malformed theme document")
	ErrNotFound = errors.New("theme not found")
)

const (
	ThemeDataDir = "Theme Data"
	BackupDir    = "Deleted Theme Backup"
	Ext          = ".mctheme"
	filePrefix   = "MineCursor Theme_"
)

// ParseError reports a theme document that could not be read. The file is
// left untouched.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

type State uint8

const (
	Transient State = iota
	Persisted
	Dirty
	Deleted
	Gone
)

func (s State) String() string {
	switch s {
	case Transient:
		return "transient"
	case Persisted:
		return "persisted"
	case Dirty:
		return "dirty"
	case Deleted:
		return "deleted"
	case Gone:
		return "gone"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// FileName is the document name for t. changed reports that the theme
// name had to be altered to be usable as a file name.
func FileName(t *model.Theme) (name string, changed bool) {
	safe, changed := model.SafeFileName(t.Name)
	return filePrefix + t.ID + "_" + safe + Ext, changed
}

// fileID extracts the id segment of a document file name.
func fileID(name string) (string, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, Ext) {
		return "", false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), Ext)
	id, _, ok := strings.Cut(rest, "_")
	return id, ok
}

type entry struct {
	theme *model.Theme
	path  string
	state State
	stamp stamp

	// mu is held while the theme is written or installed.
	mu sync.Mutex
}

type Options struct {
	// Reader loads archive frames when documents are read.
	Reader model.FrameReader
}

type Store struct {
	dir  string
	opts Options

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
}

func New(dataDir string, options ...Options) *Store {
	s := &Store{dir: dataDir, entries: map[string]*entry{}}
	if len(options) > 0 {
		s.opts = options[0]
	}
	return s
}

func (s *Store) themeDir() string  { return filepath.Join(s.dir, ThemeDataDir) }
func (s *Store) backupDir() string { return filepath.Join(s.dir, BackupDir) }

// Load reads every document in the theme and backup directories. Documents
// that fail to parse are reported and skipped. Frame load failures are
// returned as warnings alongside them.
func (s *Store) Load() (warnings []error, err error) {
	for _, d := range []string{s.themeDir(), s.backupDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}
	log := logx.Logger()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range []struct {
		dir   string
		state State
	}{{s.themeDir(), Persisted}, {s.backupDir(), Deleted}} {
		files, err := os.ReadDir(d.dir)
		if err != nil {
			return warnings, err
		}
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != Ext {
				continue
			}
			path := filepath.Join(d.dir, f.Name())
			t, w, err := s.read(path)
			warnings = append(warnings, w...)
			if err != nil {
				log.Warn("theme skipped", "path", path, "err", err)
				warnings = append(warnings, err)
				continue
			}
			if _, dup := s.entries[t.ID]; dup {
				log.Warn("duplicate theme id", "path", path, "id", t.ID)
				warnings = append(warnings, fmt.Errorf("%s: %w", path, model.ErrDuplicateID))
				continue
			}
			if id, _ := fileID(f.Name()); id != t.ID {
				name, _ := FileName(t)
				want := filepath.Join(d.dir, name)
				log.Warn("theme file renamed to match id", "from", path, "to", want)
				if err := os.Rename(path, want); err != nil {
					warnings = append(warnings, err)
				} else {
					path = want
				}
			}
			e := &entry{theme: t, path: path, state: d.state}
			e.stamp, _ = stampOf(path)
			s.entries[t.ID] = e
			s.order = append(s.order, t.ID)
		}
	}
	log.Info("themes loaded", "count", len(s.order))
	return warnings, nil
}

func (s *Store) read(path string) (*model.Theme, []error, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &ParseError{Path: path, Err: err}
	}
	t, warnings, err := model.ReadDocument(bytes.NewReader(b), s.opts.Reader)
	if err != nil {
		return nil, warnings, &ParseError{Path: path, Err: err}
	}
	return t, warnings, nil
}

func (s *Store) list(keep func(State) bool) []*model.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Theme
	for _, id := range s.order {
		if e := s.entries[id]; keep(e.state) {
			out = append(out, e.theme)
		}
	}
	return out
}

// Themes lists the live themes in load order.
func (s *Store) Themes() []*model.Theme {
	return s.list(func(st State) bool { return st != Deleted })
}

// Deleted lists themes held in the backup directory.
func (s *Store) Deleted() []*model.Theme {
	return s.list(func(st State) bool { return st == Deleted })
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("theme %s: %w", id, ErrNotFound)
	}
	return e, nil
}

func (s *Store) Get(id string) (*model.Theme, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.theme, nil
}

// State reports Gone for ids the store does not hold.
func (s *Store) State(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e.state
	}
	return Gone
}

// Path is the backing file of a persisted theme, or "".
func (s *Store) Path(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok && e.state != Transient {
		return e.path
	}
	return ""
}

// Add registers a new, unsaved theme.
func (s *Store) Add(t *model.Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.entries[t.ID]; dup {
		return fmt.Errorf("theme %s: %w", t.ID, model.ErrDuplicateID)
	}
	s.entries[t.ID] = &entry{theme: t, state: Transient}
	s.order = append(s.order, t.ID)
	return nil
}

// MarkDirty records a structural edit of a persisted theme.
func (s *Store) MarkDirty(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("theme %s: %w", id, ErrNotFound)
	}
	if e.state == Persisted {
		e.state = Dirty
	}
	return nil
}

// Lock holds the theme against saves until unlock is called.
func (s *Store) Lock(id string) (unlock func(), err error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	return e.mu.Unlock, nil
}

// Save writes the theme to its document. A renamed theme moves its file.
func (s *Store) Save(id string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s.mu.Lock()
	st := e.state
	s.mu.Unlock()
	if st == Deleted {
		return fmt.Errorf("theme %s is deleted", id)
	}

	name, changed := FileName(e.theme)
	if changed {
		logx.Logger().Warn("theme name changed for file system", "theme", id, "name", e.theme.Name, "file", name)
	}
	path := filepath.Join(s.themeDir(), name)
	if err := writeAtomic(path, e.theme); err != nil {
		return fmt.Errorf("save theme %s: %w", id, err)
	}
	// On a case-insensitive file system a case-only rename leaves the old
	// name pointing at the document just written.
	if e.path != "" && e.path != path && !sameFile(e.path, path) {
		if err := os.Remove(e.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e.path = path
	e.state = Persisted
	e.stamp, _ = stampOf(path)
	return nil
}

// SaveAll saves every transient or dirty theme.
func (s *Store) SaveAll() error {
	s.mu.Lock()
	var ids []string
	for _, id := range s.order {
		if st := s.entries[id].state; st == Transient || st == Dirty {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range ids {
		errs = append(errs, s.Save(id))
	}
	return errors.Join(errs...)
}

// Delete moves a theme's document into the backup directory. Unsaved
// themes are simply dropped.
func (s *Store) Delete(id string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s.mu.Lock()
	st := e.state
	s.mu.Unlock()

	switch st {
	case Transient:
		s.remove(id)
		return nil
	case Deleted:
		return nil
	}

	name, _ := FileName(e.theme)
	path := filepath.Join(s.backupDir(), name)
	if err := writeAtomic(path, e.theme); err != nil {
		return fmt.Errorf("delete theme %s: %w", id, err)
	}
	if err := os.Remove(e.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e.path, e.state = path, Deleted
	return nil
}

// Restore moves a deleted theme back into the theme directory.
func (s *Store) Restore(id string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s.mu.Lock()
	st := e.state
	s.mu.Unlock()
	if st != Deleted {
		return fmt.Errorf("theme %s is %v, not deleted", id, st)
	}

	name, _ := FileName(e.theme)
	path := filepath.Join(s.themeDir(), name)
	if err := os.Rename(e.path, path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e.path, e.state = path, Persisted
	e.stamp, _ = stampOf(path)
	return nil
}

// Clear permanently removes every deleted theme.
func (s *Store) Clear() error {
	var errs []error
	for _, t := range s.Deleted() {
		p := s.Path(t.ID)
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		s.remove(t.ID)
	}
	return errors.Join(errs...)
}

func (s *Store) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func writeAtomic(path string, t *model.Theme) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".save-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := t.WriteDocument(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

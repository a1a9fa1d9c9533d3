package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/32bitkid/minecursor/logx"
	"github.com/32bitkid/minecursor/model"
)

// stamp identifies the file version the store last wrote or read.
type stamp struct {
	size int64
	mod  time.Time
}

func stampOf(path string) (stamp, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return stamp{}, err
	}
	return stamp{fi.Size(), fi.ModTime()}, nil
}

func (a stamp) equal(b stamp) bool { return a.size == b.size && a.mod.Equal(b.mod) }

// AutoSave saves dirty themes every interval until ctx is done.
func (s *Store) AutoSave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := s.SaveAll(); err != nil {
				logx.Logger().Warn("autosave failed", "err", err)
			}
		}
	}
}

// Watch reloads documents changed in the theme directory by other
// programs. Themes with unsaved edits are left alone. onChange, when set,
// receives every reloaded or newly found theme. Watch blocks until ctx is
// done.
func (s *Store) Watch(ctx context.Context, onChange func(*model.Theme)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(s.themeDir()); err != nil {
		return err
	}
	log := logx.Logger()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Write == fsnotify.Write:
				if filepath.Ext(event.Name) != Ext {
					continue
				}
				t, err := s.reload(event.Name)
				if err != nil {
					log.Warn("theme reload failed", "path", event.Name, "err", err)
					continue
				}
				if t != nil && onChange != nil {
					onChange(t)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("theme watch", "err", err)
		}
	}
}

// reload returns nil when the file is one the store already has in memory.
func (s *Store) reload(path string) (*model.Theme, error) {
	st, err := stampOf(path)
	if err != nil {
		return nil, err
	}
	if id, ok := fileID(filepath.Base(path)); ok {
		s.mu.Lock()
		e, known := s.entries[id]
		skip := known && (e.stamp.equal(st) || e.state == Dirty || e.state == Transient)
		s.mu.Unlock()
		if skip {
			return nil, nil
		}
	}

	t, _, err := s.read(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[t.ID]; ok {
		if e.state == Dirty || e.state == Deleted {
			return nil, nil
		}
		e.theme, e.path, e.stamp = t, path, st
	} else {
		s.entries[t.ID] = &entry{theme: t, path: path, state: Persisted, stamp: st}
		s.order = append(s.order, t.ID)
	}
	logx.Logger().Info("theme reloaded", "theme", t.ID, "path", path)
	return t, nil
}

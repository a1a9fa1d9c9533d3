package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/32bitkid/minecursor/model"
)

func newStore(t *testing.T) (*Store, string) {
	dir := t.TempDir()
	s := New(dir)
	_, err := s.Load()
	require.NoError(t, err)
	return s, dir
}

func writeTheme(t *testing.T, path string, th *model.Theme) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, th.WriteDocument(f))
}

func TestFileName(t *testing.T) {
	th := model.NewTheme("Ores", "", 32)
	name, changed := FileName(th)
	assert.Equal(t, "MineCursor Theme_"+th.ID+"_Ores.mctheme", name)
	assert.False(t, changed)

	th.Name = "a/b?"
	name, changed = FileName(th)
	assert.Equal(t, "MineCursor Theme_"+th.ID+"_a_b_.mctheme", name)
	assert.True(t, changed)

	id, ok := fileID(name)
	assert.True(t, ok)
	assert.Equal(t, th.ID, id)

	_, ok = fileID("notes.txt")
	assert.False(t, ok)
}

func TestSaveAndLoad(t *testing.T) {
	s, dir := newStore(t)
	th := model.NewTheme("Ores", "steve", 32)
	th.Projects = append(th.Projects, model.NewProject("arrow", model.KindArrow, 16, 16))
	require.NoError(t, s.Add(th))
	assert.Equal(t, Transient, s.State(th.ID))
	assert.Empty(t, s.Path(th.ID))

	require.NoError(t, s.Save(th.ID))
	assert.Equal(t, Persisted, s.State(th.ID))
	name, _ := FileName(th)
	assert.Equal(t, filepath.Join(dir, ThemeDataDir, name), s.Path(th.ID))
	assert.FileExists(t, s.Path(th.ID))

	require.NoError(t, s.MarkDirty(th.ID))
	assert.Equal(t, Dirty, s.State(th.ID))

	again := New(dir)
	warnings, err := again.Load()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	got, err := again.Get(th.ID)
	require.NoError(t, err)
	assert.Equal(t, "steve", got.Author)
	require.Len(t, got.Projects, 1)
	assert.Equal(t, model.KindArrow, got.Projects[0].Kind)
	assert.Equal(t, Persisted, again.State(th.ID))
}

func TestRenameMovesFile(t *testing.T) {
	s, _ := newStore(t)
	th := model.NewTheme("Old", "", 32)
	require.NoError(t, s.Add(th))
	require.NoError(t, s.Save(th.ID))
	old := s.Path(th.ID)

	th.Name = "New"
	require.NoError(t, s.MarkDirty(th.ID))
	require.NoError(t, s.Save(th.ID))
	assert.NoFileExists(t, old)
	assert.FileExists(t, s.Path(th.ID))
	assert.NotEqual(t, old, s.Path(th.ID))
}

func TestRenameCaseOnly(t *testing.T) {
	s, dir := newStore(t)
	th := model.NewTheme("foo", "", 32)
	require.NoError(t, s.Add(th))
	require.NoError(t, s.Save(th.ID))

	th.Name = "Foo"
	require.NoError(t, s.MarkDirty(th.ID))
	require.NoError(t, s.Save(th.ID))
	require.FileExists(t, s.Path(th.ID))

	reloaded := New(dir)
	_, err := reloaded.Load()
	require.NoError(t, err)
	got, err := reloaded.Get(th.ID)
	require.NoError(t, err)
	assert.Equal(t, "Foo", got.Name)
}

func TestRenameKeepsAliasedDocument(t *testing.T) {
	s, dir := newStore(t)
	th := model.NewTheme("foo", "", 32)
	require.NoError(t, s.Add(th))
	require.NoError(t, s.Save(th.ID))
	old := s.Path(th.ID)

	// Make the old name resolve to the new document, as a case-insensitive
	// file system does for "foo" and "Foo".
	th.Name = "Foo"
	name, _ := FileName(th)
	require.NoError(t, os.Rename(old, filepath.Join(dir, ThemeDataDir, name)))
	if err := os.Symlink(name, old); err != nil {
		t.Skip("symlinks unavailable:", err)
	}

	require.NoError(t, s.MarkDirty(th.ID))
	require.NoError(t, s.Save(th.ID))
	assert.FileExists(t, s.Path(th.ID))
	assert.FileExists(t, old)
}

func TestDeleteRestoreClear(t *testing.T) {
	s, dir := newStore(t)
	keep := model.NewTheme("Keep", "", 32)
	drop := model.NewTheme("Drop", "", 32)
	for _, th := range []*model.Theme{keep, drop} {
		require.NoError(t, s.Add(th))
		require.NoError(t, s.Save(th.ID))
	}

	live := s.Path(drop.ID)
	require.NoError(t, s.Delete(drop.ID))
	assert.Equal(t, Deleted, s.State(drop.ID))
	assert.NoFileExists(t, live)
	assert.Equal(t, filepath.Join(dir, BackupDir), filepath.Dir(s.Path(drop.ID)))
	assert.Equal(t, []*model.Theme{keep}, s.Themes())
	assert.Equal(t, []*model.Theme{drop}, s.Deleted())

	require.NoError(t, s.Restore(drop.ID))
	assert.Equal(t, Persisted, s.State(drop.ID))
	assert.FileExists(t, live)
	assert.Error(t, s.Restore(drop.ID))

	require.NoError(t, s.Delete(drop.ID))
	backup := s.Path(drop.ID)
	require.NoError(t, s.Clear())
	assert.Equal(t, Gone, s.State(drop.ID))
	assert.NoFileExists(t, backup)
	_, err := s.Get(drop.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, s.Themes(), 1)
}

func TestDeleteTransient(t *testing.T) {
	s, _ := newStore(t)
	th := model.NewTheme("Scratch", "", 32)
	require.NoError(t, s.Add(th))
	require.NoError(t, s.Delete(th.ID))
	assert.Equal(t, Gone, s.State(th.ID))
	assert.ErrorIs(t, s.Delete(th.ID), ErrNotFound)
}

func TestLoadSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ThemeDataDir), 0o755))
	bad := filepath.Join(dir, ThemeDataDir, "MineCursor Theme_abc_broken.mctheme")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	good := model.NewTheme("Good", "", 32)
	name, _ := FileName(good)
	writeTheme(t, filepath.Join(dir, ThemeDataDir, name), good)

	s := New(dir)
	warnings, err := s.Load()
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrParse)
	var pe *ParseError
	require.ErrorAs(t, warnings[0], &pe)
	assert.Equal(t, bad, pe.Path)
	assert.FileExists(t, bad, "malformed documents are never deleted")
	assert.Len(t, s.Themes(), 1)
}

func TestLoadRenamesMismatchedID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ThemeDataDir), 0o755))
	th := model.NewTheme("Ores", "", 32)
	wrong := filepath.Join(dir, ThemeDataDir, "MineCursor Theme_deadbeef_Ores.mctheme")
	writeTheme(t, wrong, th)

	s := New(dir)
	_, err := s.Load()
	require.NoError(t, err)
	name, _ := FileName(th)
	assert.NoFileExists(t, wrong)
	assert.Equal(t, filepath.Join(dir, ThemeDataDir, name), s.Path(th.ID))
	assert.FileExists(t, s.Path(th.ID))
}

func TestLockHoldsSave(t *testing.T) {
	s, _ := newStore(t)
	th := model.NewTheme("Locked", "", 32)
	require.NoError(t, s.Add(th))

	unlock, err := s.Lock(th.ID)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- s.Save(th.ID) }()

	select {
	case <-done:
		t.Fatal("save finished while locked")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, Transient, s.State(th.ID))
	unlock()
	require.NoError(t, <-done)
	assert.Equal(t, Persisted, s.State(th.ID))
}

func TestAutoSave(t *testing.T) {
	s, _ := newStore(t)
	th := model.NewTheme("Auto", "", 32)
	require.NoError(t, s.Add(th))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.AutoSave(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return s.State(th.ID) == Persisted }, time.Second, 5*time.Millisecond)
}

func TestWatchReloads(t *testing.T) {
	s, dir := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	found := make(chan *model.Theme, 16)
	go s.Watch(ctx, func(th *model.Theme) { found <- th })

	outside := model.NewTheme("Outside", "", 48)
	name, _ := FileName(outside)
	path := filepath.Join(dir, ThemeDataDir, name)

	require.Eventually(t, func() bool {
		if s.State(outside.ID) == Persisted {
			return true
		}
		writeTheme(t, path, outside)
		return false
	}, 2*time.Second, 20*time.Millisecond)

	got, err := s.Get(outside.ID)
	require.NoError(t, err)
	assert.Equal(t, 48, got.BaseSize)
	assert.Equal(t, outside.ID, (<-found).ID)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/32bitkid/minecursor/model"
)

func TestLoadMissingUsesDefaults(t *testing.T) {
	c, warnings, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, Default(), c)
	assert.True(t, c.SourceEnabled("anything"))
	assert.Equal(t, 30*time.Second, c.SaveInterval())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	doc := `{
  "first_launch": false,
  "live_save_time": 2.5,
  "theme_kind_order": ["template", "normal"],
  "enabled_sources": [],
  "window_size": [800, 600]
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, warnings, err := Load(path)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), "window_size")

	assert.False(t, c.FirstLaunch)
	assert.Equal(t, 2500*time.Millisecond, c.SaveInterval())
	assert.Equal(t, []model.ThemeType{model.ThemeTemplate, model.ThemeNormal}, c.ThemeKindOrder)
	assert.NotNil(t, c.EnabledSources)
	assert.False(t, c.SourceEnabled("vanilla"))
	assert.Equal(t, "", c.DefaultAuthor, "missing keys keep defaults")
}

func TestLoadNullSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"enabled_sources": null}`), 0o644))
	c, _, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, c.EnabledSources)
	assert.True(t, c.SourceEnabled("vanilla"))
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"live_save_time": "soon"}`), 0o644))
	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	c := Default()
	c.DefaultAuthor = "alex"
	c.EnabledSources = []string{"vanilla"}
	require.NoError(t, c.Save(path))

	got, warnings, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, c, got)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("MC_TEST_ROOT", "/data")
	home, err := homedir.Dir()
	require.NoError(t, err)

	for _, tc := range []struct {
		in, want string
	}{
		{"$MC_TEST_ROOT/cursors", "/data/cursors"},
		{"${MC_TEST_ROOT}/cursors", "/data/cursors"},
		{"%MC_TEST_ROOT%/cursors", "/data/cursors"},
		{"%MC_TEST_UNSET%/cursors", "%MC_TEST_UNSET%/cursors"},
		{"~/mc", filepath.Join(home, "mc")},
		{"plain", "plain"},
	} {
		got, err := ExpandPath(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.in)
	}

	c := Default()
	p, err := c.DataPath("/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", p)
	c.DataDir = "$MC_TEST_ROOT"
	p, err = c.DataPath("/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/data", p)
}

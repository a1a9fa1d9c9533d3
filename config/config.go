// Package config reads and writes config.json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/32bitkid/minecursor/logx"
	"github.com/32bitkid/minecursor/model"
)

const FileName = "config.json"

type Config struct {
	FirstLaunch      bool              `json:"first_launch"`
	DataDir          string            `json:"data_dir"`
	ShowHiddenThemes bool              `json:"show_hidden_themes"`
	LiveSaveTime     float64           `json:"live_save_time"`
	ThemeKindOrder   []model.ThemeType `json:"theme_kind_order"`
	DefaultAuthor    string            `json:"default_author"`

	// EnabledSources is nil when every known source is enabled.
	EnabledSources []string `json:"enabled_sources"`
}

var knownKeys = map[string]bool{
	"first_launch":       true,
	"data_dir":           true,
	"show_hidden_themes": true,
	"live_save_time":     true,
	"theme_kind_order":   true,
	"default_author":     true,
	"enabled_sources":    true,
}

func Default() *Config {
	return &Config{
		FirstLaunch:    true,
		LiveSaveTime:   30,
		ThemeKindOrder: []model.ThemeType{model.ThemeNormal, model.ThemePreDefine, model.ThemeTemplate},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Unknown keys are returned as warnings.
func Load(path string) (*Config, []error, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	var warnings []error
	var unknown []string
	for k := range raw {
		if !knownKeys[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		logx.Logger().Warn("unknown config key ignored", "key", k, "path", path)
		warnings = append(warnings, fmt.Errorf("%s: unknown key %q", path, k))
	}

	if err := json.Unmarshal(b, c); err != nil {
		return nil, warnings, fmt.Errorf("%s: %w", path, err)
	}
	return c, warnings, nil
}

// Save writes c to path through a temporary file.
func (c *Config) Save(path string) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".config-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// SourceEnabled reports whether the source id is enabled.
func (c *Config) SourceEnabled(id string) bool {
	if c.EnabledSources == nil {
		return true
	}
	for _, s := range c.EnabledSources {
		if s == id {
			return true
		}
	}
	return false
}

// SaveInterval is LiveSaveTime as a duration; zero disables autosave.
func (c *Config) SaveInterval() time.Duration {
	if c.LiveSaveTime <= 0 {
		return 0
	}
	return time.Duration(c.LiveSaveTime * float64(time.Second))
}

// DataPath is DataDir with variables and a leading ~ expanded, or fallback
// when DataDir is empty.
func (c *Config) DataPath(fallback string) (string, error) {
	if c.DataDir == "" {
		return fallback, nil
	}
	return ExpandPath(c.DataDir)
}

var percentVar = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_()]*)%`)

// ExpandPath expands %VAR%, $VAR, ${VAR} and a leading ~. Unset %VAR%
// references are left as written.
func ExpandPath(p string) (string, error) {
	p = percentVar.ReplaceAllStringFunc(p, func(m string) string {
		if v, ok := os.LookupEnv(m[1 : len(m)-1]); ok {
			return v
		}
		return m
	})
	p = os.ExpandEnv(p)
	return homedir.Expand(p)
}

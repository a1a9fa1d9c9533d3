// Package minecursor builds Windows cursor themes from the textures of
// Minecraft resource packs and mods.
//
// A theme is a set of projects, one per cursor role. Each project layers
// elements drawn from asset sources (zipped texture archives), solid
// rectangles and embedded images, then renders them through a per-element
// transform pipeline into .cur or .ani files. Themes live as documents in a
// data directory and can be installed as a cursor scheme for the current
// user or the whole machine.

package minecursor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/32bitkid/minecursor/config"
	"github.com/32bitkid/minecursor/install"
	"github.com/32bitkid/minecursor/logx"
	"github.com/32bitkid/minecursor/source"
	"github.com/32bitkid/minecursor/store"
)

const (
	UserSourcesDir = "User Sources"
	// RecommendFile under the built-in source directory applies to every source.
	RecommendFile = "recommend.json"
)

// Root is the data directory of a MineCursor installation and the
// services loaded from it.
type Root struct {
	Path    string
	Config  *config.Config
	Sources *source.Registry
	Themes  *store.Store

	configPath string
}

type Options struct {
	// BuiltInSources is the directory of shipped sources.
	BuiltInSources string
	Decoders       source.DecoderLUT
}

// Open loads config, sources and themes from dataDir. The returned
// warnings cover everything that was skipped or degraded while loading;
// err is set only when the directory itself cannot be used.
func Open(dataDir string, options ...Options) (*Root, []error, error) {
	var opts Options
	if len(options) > 0 {
		opts = options[0]
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, err
	}
	configPath := filepath.Join(dataDir, config.FileName)
	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		return nil, warnings, err
	}
	path, err := cfg.DataPath(dataDir)
	if err != nil {
		return nil, warnings, err
	}

	var global string
	if opts.BuiltInSources != "" {
		global = filepath.Join(opts.BuiltInSources, RecommendFile)
	}
	reg := source.NewRegistry(opts.BuiltInSources, filepath.Join(path, UserSourcesDir), source.Options{
		Decoders:        opts.Decoders,
		Enabled:         cfg.EnabledSources,
		GlobalRecommend: global,
	})
	if err := reg.Load(); err != nil {
		return nil, warnings, err
	}

	themes := store.New(path, store.Options{Reader: reg})
	w, err := themes.Load()
	warnings = append(warnings, w...)
	if err != nil {
		return nil, warnings, err
	}

	root := &Root{Path: path, Config: cfg, Sources: reg, Themes: themes, configPath: configPath}
	warnings = append(warnings, root.missingSources()...)
	logx.Logger().Info("data directory opened", "path", path, "sources", len(reg.Sources()), "themes", len(themes.Themes()))
	return root, warnings, nil
}

func (r *Root) missingSources() []error {
	var errs []error
	for _, t := range r.Themes.Themes() {
		for _, id := range t.MissingSources(r.Sources.Has) {
			errs = append(errs, fmt.Errorf("theme %s: %s: %w", t.ID, id, source.ErrSourceNotFound))
		}
	}
	return errs
}

// Install installs a stored theme. Saves of the theme wait until the
// install has finished.
func (r *Root) Install(ctx context.Context, themeID string, opts install.Options) (*install.Result, error) {
	unlock, err := r.Themes.Lock(themeID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	t, err := r.Themes.Get(themeID)
	if err != nil {
		return nil, err
	}
	opts.DataDir = r.Path
	return install.New(opts).Install(ctx, t)
}

// ImportSource turns an archive into a user source and registers it.
func (r *Root) ImportSource(archivePath string, options ...source.ImportOptions) (*source.AssetSource, error) {
	src, err := source.Import(archivePath, filepath.Join(r.Path, UserSourcesDir), options...)
	if err != nil {
		return nil, err
	}
	r.Sources.Add(src)
	return src, nil
}

// AutoSave saves dirty themes on the configured interval until ctx is done.
func (r *Root) AutoSave(ctx context.Context) {
	r.Themes.AutoSave(ctx, r.Config.SaveInterval())
}

// Close saves pending themes and the config, and releases open archives.
func (r *Root) Close() error {
	var errs []error
	if err := r.Themes.SaveAll(); err != nil {
		errs = append(errs, err)
	}
	r.Config.FirstLaunch = false
	if err := r.Config.Save(r.configPath); err != nil {
		errs = append(errs, err)
	}
	if err := r.Sources.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

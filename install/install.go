// Package install writes a theme's cursor files and registers them as a
// Windows cursor scheme.
package install

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/32bitkid/minecursor/cursor"
	"github.com/32bitkid/minecursor/logx"
	"github.com/32bitkid/minecursor/model"
	"github.com/32bitkid/minecursor/render"
)

type Target uint

const (
	UserTarget Target = iota
	SystemTarget
)

func (t Target) String() string {
	switch t {
	case UserTarget:
		return "user"
	case SystemTarget:
		return "system"
	default:
		return fmt.Sprintf("Target(%d)", uint(t))
	}
}

// keys are the registry locations a target writes to.
type keys struct {
	hive    Hive
	cursors string
	schemes string
}

var targetKeys = map[Target]keys{
	UserTarget: {
		hive:    CurrentUser,
		cursors: `Control Panel\Cursors`,
		schemes: `Control Panel\Cursors\Schemes`,
	},
	SystemTarget: {
		hive:    LocalMachine,
		cursors: `SOFTWARE\Microsoft\Windows\CurrentVersion\Control Panel\Cursors\Default`,
		schemes: `SOFTWARE\Microsoft\Windows\CurrentVersion\Control Panel\Cursors\Schemes`,
	},
}

// MissingPolicy decides what the live cursor becomes for kinds the theme
// does not supply.
type MissingPolicy uint

const (
	CopyDefault MissingPolicy = iota
	AeroDefault
)

const (
	ThemeCursorsDir = "Theme Cursors"
	schemePrefix    = "&MineCursor_"
)

type Progress struct {
	Done    int
	Total   int
	Project string
}

type RenderFunc func(p *model.Project) ([]*image.NRGBA, []render.Warning, error)

type Options struct {
	DataDir  string
	Target   Target
	Missing  MissingPolicy
	Registry Registry
	Cursors  SystemCursors
	Render   RenderFunc

	// Progress is called from the installing goroutine after each project.
	Progress func(Progress)

	// SystemRoot locates the Aero cursors; defaults to %SystemRoot%.
	SystemRoot string
}

type Installer struct {
	opts Options
}

func New(opts Options) *Installer {
	if opts.Render == nil {
		opts.Render = render.RenderAll
	}
	if opts.SystemRoot == "" {
		opts.SystemRoot = os.Getenv("SystemRoot")
	}
	return &Installer{opts: opts}
}

type Result struct {
	Dir      string
	Scheme   string
	Paths    map[model.CursorKind]string
	INF      string
	Warnings []error
}

func safe(name string) string {
	s, _ := model.SafeFileName(name)
	return s
}

// SchemeName is the registry value naming the theme's scheme.
func SchemeName(t *model.Theme) string {
	return schemePrefix + t.ID + "_" + t.Name
}

func ThemeDirName(t *model.Theme) string {
	return "Theme_" + t.ID + "_" + safe(t.Name)
}

func CursorFileName(p *model.Project) string {
	return "Cursor_" + p.ID + "_" + safe(p.Name) + cursor.Ext(p)
}

// SchemeLine joins the cursor paths in canonical kind order; absent kinds
// are empty.
func SchemeLine(paths map[model.CursorKind]string) string {
	entries := make([]string, len(model.Kinds))
	for i, k := range model.Kinds {
		entries[i] = paths[k]
	}
	return strings.Join(entries, ",")
}

// Install renders every project, writes the cursor files and the .inf, then
// registers the scheme. Cancellation is honoured between projects.
func (in *Installer) Install(ctx context.Context, t *model.Theme) (*Result, error) {
	if in.opts.Registry == nil {
		return nil, ErrUnsupported
	}
	log := logx.Logger().With("theme", t.ID, "target", in.opts.Target)
	log.Info("install started", "projects", len(t.Projects))

	res := &Result{
		Dir:    filepath.Join(in.opts.DataDir, ThemeCursorsDir, ThemeDirName(t)),
		Scheme: SchemeName(t),
		Paths:  map[model.CursorKind]string{},
	}
	if err := in.removeThemeDirs(t); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(res.Dir, 0o755); err != nil {
		return nil, err
	}

	for i, p := range t.Projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, dup := res.Paths[p.Kind]; dup {
			res.Warnings = append(res.Warnings, fmt.Errorf("project %s: kind %v already supplied", p.ID, p.Kind))
			continue
		}
		frames, warnings, err := in.opts.Render(p)
		if err != nil {
			return nil, fmt.Errorf("render project %s: %w", p.ID, err)
		}
		for _, w := range warnings {
			res.Warnings = append(res.Warnings, w)
		}
		path := filepath.Join(res.Dir, CursorFileName(p))
		if err := cursor.WriteProject(path, p, frames, t.Author); err != nil {
			return nil, err
		}
		res.Paths[p.Kind] = path
		if in.opts.Progress != nil {
			in.opts.Progress(Progress{Done: i + 1, Total: len(t.Projects), Project: p.Name})
		}
	}

	res.INF = filepath.Join(res.Dir, INFName)
	inf, err := EncodeINF(BuildINF(res.Scheme, ThemeDirName(t), res.Paths))
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(res.INF, inf, 0o644); err != nil {
		return nil, err
	}

	if err := in.register(t, res); err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, in.refresh(res.Paths)...)
	log.Info("install finished", "dir", res.Dir, "warnings", len(res.Warnings))
	return res, nil
}

// removeSchemes deletes every scheme value this theme id ever wrote, so a
// renamed theme does not leave its old entry behind.
func removeSchemes(k Key, themeID string) error {
	names, err := k.ValueNames()
	if err != nil {
		return err
	}
	prefix := schemePrefix + themeID + "_"
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			if err := k.DeleteValue(n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (in *Installer) register(t *model.Theme, res *Result) error {
	tk, ok := targetKeys[in.opts.Target]
	if !ok {
		return fmt.Errorf("unknown install target %v", in.opts.Target)
	}

	schemes, err := in.opts.Registry.Create(tk.hive, tk.schemes)
	if err != nil {
		return err
	}
	defer schemes.Close()
	if err := removeSchemes(schemes, t.ID); err != nil {
		return err
	}
	if err := schemes.SetExpandString(res.Scheme, SchemeLine(res.Paths)); err != nil {
		return err
	}

	cursors, err := in.opts.Registry.Create(tk.hive, tk.cursors)
	if err != nil {
		return err
	}
	defer cursors.Close()
	if err := cursors.SetString("", res.Scheme); err != nil {
		return err
	}
	if err := cursors.SetDWord("CursorBaseSize", uint32(t.BaseSize)); err != nil {
		return err
	}
	if err := cursors.SetDWord("Scheme Source", 1); err != nil {
		return err
	}
	for _, k := range model.Kinds {
		if err := cursors.SetExpandString(k.RegistryName(), res.Paths[k]); err != nil {
			return err
		}
	}
	return nil
}

// refresh pushes the new cursors into the running session. Failures are
// reported but do not undo the install.
func (in *Installer) refresh(paths map[model.CursorKind]string) []error {
	if in.opts.Cursors == nil {
		return nil
	}
	var errs []error
	for _, k := range model.Kinds {
		ocr := k.OCR()
		if ocr == 0 {
			continue
		}
		var err error
		switch p, ok := paths[k]; {
		case ok:
			err = in.opts.Cursors.SetFromFile(ocr, p)
		case in.opts.Missing == AeroDefault && k.AeroFile() != "":
			err = in.opts.Cursors.SetFromFile(ocr, filepath.Join(in.opts.SystemRoot, "cursors", k.AeroFile()))
		default:
			err = in.opts.Cursors.SetDefault(ocr)
		}
		if err != nil {
			logx.Logger().Warn("system cursor not refreshed", "kind", k, "err", err)
			errs = append(errs, fmt.Errorf("%v: %w", k, err))
		}
	}
	return errs
}

// Uninstall removes the theme's scheme values and its cursor directory.
// The active cursor values are left alone.
func (in *Installer) Uninstall(t *model.Theme) error {
	if in.opts.Registry == nil {
		return ErrUnsupported
	}
	tk, ok := targetKeys[in.opts.Target]
	if !ok {
		return fmt.Errorf("unknown install target %v", in.opts.Target)
	}
	schemes, err := in.opts.Registry.Create(tk.hive, tk.schemes)
	if err != nil {
		return err
	}
	defer schemes.Close()
	var errs []error
	errs = append(errs, removeSchemes(schemes, t.ID))
	errs = append(errs, in.removeThemeDirs(t))
	return errors.Join(errs...)
}

// removeThemeDirs deletes every cursor directory written for the theme id,
// whatever name the theme had at the time.
func (in *Installer) removeThemeDirs(t *model.Theme) error {
	dirs, err := filepath.Glob(filepath.Join(in.opts.DataDir, ThemeCursorsDir, "Theme_"+t.ID+"_*"))
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			return err
		}
	}
	return nil
}

package source

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/32bitkid/minecursor/logx"
)

// Options tune a Registry.
type Options struct {
	Decoders DecoderLUT
	// Enabled restricts the registry to these source ids; nil means all.
	Enabled []string
	// GlobalRecommend is the recommend.json merged under every source's own.
	GlobalRecommend string
	Roots           []Root
}

// Registry catalogues built-in and user sources and memoises their archives.
type Registry struct {
	builtInDir string
	userDir    string
	opts       Options

	mu       sync.Mutex
	sources  map[string]*AssetSource
	archives map[string]*Archive
	indexes  map[string]*Index
}

// NewRegistry prepares a registry over builtInDir (assets/sources) and
// userDir (<data-dir>/User Sources). Call Load to scan them.
func NewRegistry(builtInDir, userDir string, options ...Options) *Registry {
	r := &Registry{
		builtInDir: builtInDir,
		userDir:    userDir,
		sources:    map[string]*AssetSource{},
		archives:   map[string]*Archive{},
		indexes:    map[string]*Index{},
	}
	for _, o := range options {
		if o.Decoders != nil {
			r.opts.Decoders = o.Decoders
		}
		if o.Enabled != nil {
			r.opts.Enabled = o.Enabled
		}
		if o.GlobalRecommend != "" {
			r.opts.GlobalRecommend = o.GlobalRecommend
		}
		if o.Roots != nil {
			r.opts.Roots = o.Roots
		}
	}
	if r.opts.Decoders == nil {
		r.opts.Decoders = Decoders
	}
	if r.opts.Roots == nil {
		r.opts.Roots = DefaultRoots
	}
	return r
}

// Load scans both source directories. Directories without source.json are
// ignored; unreadable descriptors are logged and skipped.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range []struct {
		dir     string
		builtIn bool
	}{{r.builtInDir, true}, {r.userDir, false}} {
		if d.dir == "" {
			continue
		}
		entries, err := os.ReadDir(d.dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("scan sources %s: %w", d.dir, err)
		}
		for _, ent := range entries {
			if !ent.IsDir() {
				continue
			}
			dir := filepath.Join(d.dir, ent.Name())
			if !fileExists(filepath.Join(dir, DescriptorFile)) {
				continue
			}
			src, err := LoadDir(dir, d.builtIn)
			if err != nil {
				logx.Logger().Warn("source skipped", "dir", dir, "err", err)
				continue
			}
			r.addLocked(src)
		}
	}
	return nil
}

// Add registers a source, replacing any with the same id.
func (r *Registry) Add(src *AssetSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(src)
}

func (r *Registry) addLocked(src *AssetSource) {
	if !r.enabled(src.ID) {
		logx.Logger().Debug("source disabled", "id", src.ID)
		return
	}
	if old, ok := r.archives[src.ID]; ok {
		old.Close()
		delete(r.archives, src.ID)
		delete(r.indexes, src.ID)
	}
	r.sources[src.ID] = src
}

func (r *Registry) enabled(id string) bool {
	if r.opts.Enabled == nil {
		return true
	}
	for _, e := range r.opts.Enabled {
		if e == id {
			return true
		}
	}
	return false
}

func (r *Registry) Get(id string) (*AssetSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrSourceNotFound)
	}
	return src, nil
}

func (r *Registry) Has(id string) bool {
	_, err := r.Get(id)
	return err == nil
}

// Sources lists built-in sources first, then user sources, each by name.
func (r *Registry) Sources() []*AssetSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*AssetSource, 0, len(r.sources))
	for _, s := range r.sources {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].BuiltIn != list[j].BuiltIn {
			return list[i].BuiltIn
		}
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// Open returns the cached archive handle for a source.
func (r *Registry) Open(id string) (*Archive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrSourceNotFound)
	}
	a, ok := r.archives[id]
	if !ok {
		a = newArchive(src.TexturesPath, r.opts.Decoders)
		r.archives[id] = a
	}
	return a, nil
}

// ReadFrame decodes path from the source's archive.
func (r *Registry) ReadFrame(id, path string) (*image.NRGBA, error) {
	a, err := r.Open(id)
	if err != nil {
		return nil, err
	}
	return a.Frame(path)
}

// Index returns the asset tree index of a source, building it on first use.
func (r *Registry) Index(id string) (*Index, error) {
	a, err := r.Open(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	idx, ok := r.indexes[id]
	src := r.sources[id]
	r.mu.Unlock()
	if ok {
		return idx, nil
	}

	manifest, err := LoadRecommend(r.opts.GlobalRecommend, src.RecommendPath)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", id, err)
	}
	idx, err = NewIndex(a, r.opts.Roots, manifest)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.indexes[id]; ok {
		return existing, nil
	}
	r.indexes[id] = idx
	return idx, nil
}

// Close releases every opened archive.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for id, a := range r.archives {
		errs = append(errs, a.Close())
		delete(r.archives, id)
	}
	r.indexes = map[string]*Index{}
	return errors.Join(errs...)
}

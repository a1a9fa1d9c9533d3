package source

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/32bitkid/minecursor/logx"
	"github.com/32bitkid/minecursor/model"
)

type Strategy uint

const (
	FlatExpand Strategy = iota
	AsTree
	AsRecommend
)

func (s Strategy) String() string {
	switch s {
	case FlatExpand:
		return "flat-expand"
	case AsTree:
		return "as-tree"
	case AsRecommend:
		return "as-recommend"
	default:
		return fmt.Sprintf("Strategy(%d)", uint(s))
	}
}

// Root is one top-level folder in the asset browser. Prefix selects the
// archive entries under it; it is ignored for AsRecommend.
type Root struct {
	Name     string
	Prefix   string
	Strategy Strategy
}

var DefaultRoots = []Root{
	{Name: "recommend", Strategy: AsRecommend},
	{Name: "block", Prefix: "block/", Strategy: FlatExpand},
	{Name: "item", Prefix: "item/", Strategy: FlatExpand},
	{Name: "entity", Prefix: "entity/", Strategy: AsTree},
	{Name: "gui", Prefix: "gui/", Strategy: AsTree},
	{Name: "particle", Prefix: "particle/", Strategy: FlatExpand},
	{Name: "mob_effect", Prefix: "mob_effect/", Strategy: FlatExpand},
}

// MoreFolder holds the recommendations for the other cursor kinds.
const MoreFolder = "More"

// Node is a folder (Children set) or a leaf. A leaf with several Frames is
// an animation group; Path is then the un-numbered path.
type Node struct {
	Name     string
	Path     string
	Frames   []string
	Children []*Node
}

func (n *Node) IsDir() bool { return n.Frames == nil }

func (n *Node) IsAnimation() bool { return len(n.Frames) > 1 }

// Child finds a direct child by name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (n *Node) Infos(sourceID string) []model.AssetSourceInfo {
	infos := make([]model.AssetSourceInfo, len(n.Frames))
	for i, f := range n.Frames {
		infos[i] = model.ArchiveInfo(sourceID, f)
	}
	return infos
}

// Index is the precomputed asset tree of one archive. It is read-only once
// built.
type Index struct {
	roots    []*Node
	recRoot  *Root
	manifest Manifest
	lookup   map[string]*Node
}

// NewIndex builds every non-recommend root up front; recommend views are
// assembled per kind from the same leaves.
func NewIndex(a *Archive, roots []Root, manifest Manifest) (*Index, error) {
	names, err := a.Names()
	if err != nil {
		return nil, err
	}
	var images []string
	for _, n := range names {
		if a.decoders.IsImagePath(n) {
			images = append(images, n)
		}
	}

	idx := &Index{manifest: manifest, lookup: map[string]*Node{}}
	for _, leaf := range groupAnimations(images) {
		idx.lookup[leaf.Path] = leaf
		for _, f := range leaf.Frames {
			if _, ok := idx.lookup[f]; !ok {
				idx.lookup[f] = &Node{Name: path.Base(f), Path: f, Frames: []string{f}}
			}
		}
	}

	for i := range roots {
		r := roots[i]
		switch r.Strategy {
		case AsRecommend:
			idx.recRoot = &r
			continue
		case FlatExpand, AsTree:
		default:
			return nil, fmt.Errorf("root %s: unknown strategy %v", r.Name, r.Strategy)
		}
		var scoped []string
		for _, n := range images {
			if strings.HasPrefix(n, r.Prefix) {
				scoped = append(scoped, n)
			}
		}
		node := &Node{Name: r.Name, Path: r.Prefix}
		if r.Strategy == FlatExpand {
			node.Children = groupAnimations(scoped)
		} else {
			node.Children = buildTree(scoped, r.Prefix)
		}
		idx.roots = append(idx.roots, node)
	}
	return idx, nil
}

// Roots lists the prebuilt roots in configuration order.
func (idx *Index) Roots() []*Node { return idx.roots }

func (idx *Index) Root(name string) *Node {
	for _, r := range idx.roots {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Lookup resolves an archive path or an animation group path to a leaf.
func (idx *Index) Lookup(p string) (*Node, bool) {
	n, ok := idx.lookup[p]
	return n, ok
}

// Recommend builds the recommend root for kind: that kind's entries
// directly, every other kind under MoreFolder. Entries absent from the
// archive are skipped.
func (idx *Index) Recommend(kind model.CursorKind) *Node {
	name := "recommend"
	if idx.recRoot != nil {
		name = idx.recRoot.Name
	}
	root := &Node{Name: name}
	root.Children = idx.leaves(idx.manifest[kind])

	more := &Node{Name: MoreFolder}
	for _, k := range model.Kinds {
		if k == kind || len(idx.manifest[k]) == 0 {
			continue
		}
		if leaves := idx.leaves(idx.manifest[k]); len(leaves) > 0 {
			more.Children = append(more.Children, &Node{Name: k.String(), Children: leaves})
		}
	}
	if len(more.Children) > 0 {
		root.Children = append(root.Children, more)
	}
	return root
}

func (idx *Index) leaves(paths []string) []*Node {
	var out []*Node
	for _, p := range paths {
		n, ok := idx.lookup[p]
		if !ok {
			logx.Logger().Debug("recommended path missing", "path", p)
			continue
		}
		out = append(out, n)
	}
	return out
}

// animationStem splits "dir/fire_3.png" into ("dir/fire.png", 3, true).
func animationStem(p string) (string, int, bool) {
	ext := path.Ext(p)
	stem := strings.TrimSuffix(p, ext)
	i := strings.LastIndexByte(stem, '_')
	if i < 0 || i == len(stem)-1 || strings.ContainsRune(stem[i:], '/') {
		return "", 0, false
	}
	digits := stem[i+1:]
	if strings.TrimLeft(digits, "0123456789") != "" {
		return "", 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return "", 0, false
	}
	return stem[:i] + ext, n, true
}

// groupAnimations produces a flat leaf list in insertion order, merging
// runs of consecutive siblings named base_0 .. base_<k-1> into one group.
func groupAnimations(names []string) []*Node {
	var out []*Node
	single := func(p string) {
		out = append(out, &Node{Name: path.Base(p), Path: p, Frames: []string{p}})
	}

	for i := 0; i < len(names); {
		base, _, ok := animationStem(names[i])
		if !ok {
			single(names[i])
			i++
			continue
		}
		j := i + 1
		for j < len(names) {
			b, _, ok := animationStem(names[j])
			if !ok || b != base {
				break
			}
			j++
		}
		run := names[i:j]
		if frames, ok := exactSequence(run); ok {
			out = append(out, &Node{Name: path.Base(base), Path: base, Frames: frames})
		} else {
			for _, p := range run {
				single(p)
			}
		}
		i = j
	}
	return out
}

// exactSequence orders run by suffix and accepts it only when the suffixes
// are exactly 0..k-1 with k >= 2.
func exactSequence(run []string) ([]string, bool) {
	if len(run) < 2 {
		return nil, false
	}
	frames := make([]string, len(run))
	copy(frames, run)
	sort.SliceStable(frames, func(a, b int) bool {
		_, na, _ := animationStem(frames[a])
		_, nb, _ := animationStem(frames[b])
		return na < nb
	})
	for i, f := range frames {
		if _, n, _ := animationStem(f); n != i {
			return nil, false
		}
	}
	return frames, true
}

// buildTree mirrors the directory structure below prefix.
func buildTree(names []string, prefix string) []*Node {
	root := &Node{}
	dirs := map[string]*Node{"": root}
	var dirFor func(d string) *Node
	dirFor = func(d string) *Node {
		if n, ok := dirs[d]; ok {
			return n
		}
		parent := dirFor(parentDir(d))
		n := &Node{Name: path.Base(d), Path: prefix + d + "/"}
		parent.Children = append(parent.Children, n)
		dirs[d] = n
		return n
	}
	for _, name := range names {
		rel := strings.TrimPrefix(name, prefix)
		d := dirFor(parentDir(rel))
		d.Children = append(d.Children, &Node{Name: path.Base(rel), Path: name, Frames: []string{name}})
	}
	return root.Children
}

func parentDir(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

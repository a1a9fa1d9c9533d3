package source

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	"github.com/nwaples/rardecode/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/32bitkid/minecursor/logx"
)

var (
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	ErrNoTextures         = errors.New("archive has no assets/<namespace>/textures directory")
)

const maxImportBytes int64 = 512 << 20

type ImportOptions struct {
	// ID overrides the id read from the archive metadata.
	ID   string
	Name string
}

type entry struct {
	name string
	data []byte
}

type modsToml struct {
	Mods []struct {
		ModID       string `toml:"modId"`
		Version     string `toml:"version"`
		DisplayName string `toml:"displayName"`
		Authors     string `toml:"authors"`
		Description string `toml:"description"`
		LogoFile    string `toml:"logoFile"`
	} `toml:"mods"`
}

type packMeta struct {
	Pack struct {
		Description json.RawMessage `json:"description"`
	} `json:"pack"`
}

// Import converts a mod JAR, a texture pack ZIP or a RAR of either into a
// user source under userDir, replacing any source with the same id.
func Import(archivePath, userDir string, options ...ImportOptions) (*AssetSource, error) {
	var opts ImportOptions
	for _, o := range options {
		opts = o
	}

	entries, err := readEntries(archivePath)
	if err != nil {
		return nil, err
	}

	ns, err := largestNamespace(entries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", archivePath, err)
	}
	prefix := "assets/" + ns + "/textures/"

	d, icon := describe(entries, archivePath)
	if opts.ID != "" {
		d.ID = opts.ID
	}
	if opts.Name != "" {
		d.Name = opts.Name
	}
	d.ID = sanitizeID(d.ID)
	if d.ID == "" {
		return nil, fmt.Errorf("%s: cannot derive a source id", archivePath)
	}
	if d.Name == "" {
		d.Name = d.ID
	}

	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.MkdirTemp(userDir, ".import-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	n, err := writeTextures(filepath.Join(tmp, TexturesFile), entries, prefix)
	if err != nil {
		return nil, err
	}
	if err := WriteDescriptor(tmp, d); err != nil {
		return nil, err
	}
	if icon != nil {
		if err := os.WriteFile(filepath.Join(tmp, IconFile), icon, 0o644); err != nil {
			return nil, err
		}
	}

	dir := filepath.Join(userDir, d.ID)
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, dir); err != nil {
		return nil, err
	}
	logx.Logger().Info("source imported", "id", d.ID, "namespace", ns, "files", n)
	return LoadDir(dir, false)
}

func readEntries(archivePath string) ([]entry, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 262)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(archivePath)), ".")
	if kind, err := filetype.Match(head[:n]); err == nil && kind != filetype.Unknown {
		format = kind.Extension
	}

	switch format {
	case "zip", "jar":
		fi, err := f.Stat()
		if err != nil {
			return nil, err
		}
		return readZip(f, fi.Size())
	case "rar":
		return readRar(f)
	default:
		return nil, fmt.Errorf("%s: %w", archivePath, ErrUnsupportedArchive)
	}
}

func readZip(r io.ReaderAt, size int64) ([]entry, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("parse zip archive: %w", err)
	}
	var out []entry
	var total int64
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, ok := cleanEntryName(f.Name)
		if !ok {
			continue
		}
		total += int64(f.UncompressedSize64)
		if total > maxImportBytes {
			return nil, fmt.Errorf("archive exceeds %d bytes", maxImportBytes)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		out = append(out, entry{name, b})
	}
	return out, nil
}

func readRar(r io.Reader) ([]entry, error) {
	rr, err := rardecode.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse rar archive: %w", err)
	}
	var out []entry
	var total int64
	for {
		h, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read rar entry: %w", err)
		}
		if h.IsDir {
			continue
		}
		b, err := io.ReadAll(io.LimitReader(rr, maxImportBytes-total+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", h.Name, err)
		}
		total += int64(len(b))
		if total > maxImportBytes {
			return nil, fmt.Errorf("archive exceeds %d bytes", maxImportBytes)
		}
		if name, ok := cleanEntryName(h.Name); ok {
			out = append(out, entry{name, b})
		}
	}
	return out, nil
}

// cleanEntryName normalises separators and rejects traversal and macOS
// resource forks.
func cleanEntryName(name string) (string, bool) {
	n := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	n = strings.TrimPrefix(path.Clean(n), "./")
	switch {
	case n == "." || n == "":
		return "", false
	case n == ".." || strings.HasPrefix(n, "../") || strings.HasPrefix(n, "/"):
		return "", false
	case strings.HasPrefix(strings.ToLower(n), "__macosx/"):
		return "", false
	}
	return n, true
}

// largestNamespace picks the assets/<ns>/textures directory holding the
// most bytes. Ties go to the lexically first namespace.
func largestNamespace(entries []entry) (string, error) {
	sizes := map[string]int{}
	for _, e := range entries {
		parts := strings.SplitN(e.name, "/", 4)
		if len(parts) == 4 && parts[0] == "assets" && parts[2] == "textures" {
			sizes[parts[1]] += len(e.data)
		}
	}
	if len(sizes) == 0 {
		return "", ErrNoTextures
	}
	names := make([]string, 0, len(sizes))
	for ns := range sizes {
		names = append(names, ns)
	}
	sort.Strings(names)
	best := names[0]
	for _, ns := range names[1:] {
		if sizes[ns] > sizes[best] {
			best = ns
		}
	}
	return best, nil
}

func writeTextures(dst string, entries []entry, prefix string) (int, error) {
	f, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	zw := zip.NewWriter(f)
	n := 0
	for _, e := range entries {
		rel, ok := strings.CutPrefix(e.name, prefix)
		if !ok || rel == "" {
			continue
		}
		w, err := zw.Create(rel)
		if err != nil {
			f.Close()
			return 0, err
		}
		if _, err := w.Write(e.data); err != nil {
			f.Close()
			return 0, err
		}
		n++
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return 0, err
	}
	return n, f.Close()
}

// describe reads mods.toml or pack.mcmeta, gathers README and LICENSE text
// into the note and returns the icon bytes if the archive ships one.
func describe(entries []entry, archivePath string) (Descriptor, []byte) {
	base := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	d := Descriptor{ID: base, Name: base}
	files := map[string][]byte{}
	for _, e := range entries {
		files[e.name] = e.data
	}

	var icon []byte
	if b, ok := files["META-INF/mods.toml"]; ok {
		var m modsToml
		if err := toml.Unmarshal(b, &m); err != nil {
			logx.Logger().Warn("mods.toml unreadable", "archive", archivePath, "err", err)
		} else if len(m.Mods) > 0 {
			mod := m.Mods[0]
			d.ID = firstNonEmpty(mod.ModID, d.ID)
			d.Name = firstNonEmpty(mod.DisplayName, d.Name)
			d.Version = mod.Version
			d.Authors = mod.Authors
			d.Description = strings.TrimSpace(mod.Description)
			if mod.LogoFile != "" {
				icon = files[strings.TrimPrefix(mod.LogoFile, "/")]
			}
		}
	} else if b, ok := files["pack.mcmeta"]; ok {
		var m packMeta
		if err := json.Unmarshal(b, &m); err != nil {
			logx.Logger().Warn("pack.mcmeta unreadable", "archive", archivePath, "err", err)
		} else {
			d.Description = packDescription(m.Pack.Description)
		}
	}
	if icon == nil {
		icon = files["pack.png"]
	}
	if icon != nil && !filetype.IsImage(icon) {
		icon = nil
	}

	var notes []string
	for _, e := range entries {
		if strings.Contains(e.name, "/") {
			continue
		}
		upper := strings.ToUpper(e.name)
		if strings.HasPrefix(upper, "README") || strings.HasPrefix(upper, "LICENSE") {
			notes = append(notes, strings.TrimSpace(string(bytes.ToValidUTF8(e.data, nil))))
		}
	}
	d.Note = strings.Join(notes, "\n\n")
	return d, icon
}

// packDescription accepts the plain string form and the text component
// forms of pack.mcmeta's description.
func packDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var comp struct {
		Text string `json:"text"`
	}
	if json.Unmarshal(raw, &comp) == nil && comp.Text != "" {
		return comp.Text
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		var sb strings.Builder
		for _, part := range list {
			sb.WriteString(packDescription(part))
		}
		return sb.String()
	}
	return ""
}

func sanitizeID(id string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('_')
		}
	}
	return strings.Trim(sb.String(), ".")
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}

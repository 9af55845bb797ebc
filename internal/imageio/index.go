package imageio

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// extRank orders formats when two files share a stem; lossless formats win.
var extRank = map[string]int{
	".png":  5,
	".webp": 5,
	".tga":  4,
	".bmp":  3,
	".tif":  2,
	".tiff": 2,
	".gif":  1,
	".jpg":  0,
	".jpeg": 0,
}

// Index maps lowercase file stems to image paths in one directory tree.
type Index struct {
	entries map[string]string // stem.lower() -> full path
}

// BuildIndex walks dir for decodable images.
func BuildIndex(dir string) (*Index, error) {
	idx := &Index{entries: make(map[string]string)}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		rank, ok := extRank[ext]
		if !ok {
			return nil
		}
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

		existing, exists := idx.entries[stem]
		if !exists || rank > extRank[strings.ToLower(filepath.Ext(existing))] {
			idx.entries[stem] = path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// ResolvePath returns the path stored for a file name or stem, or ("", false).
func (idx *Index) ResolvePath(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	path, ok := idx.entries[stem]
	return path, ok
}

// Stems returns all indexed stems in sorted order.
func (idx *Index) Stems() []string {
	stems := make([]string, 0, len(idx.entries))
	for s := range idx.entries {
		stems = append(stems, s)
	}
	sort.Strings(stems)
	return stems
}

// Len returns the number of indexed images.
func (idx *Index) Len() int {
	return len(idx.entries)
}

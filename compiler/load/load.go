package load

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dir loads every .xml schema file under root, recursively, and returns the
// parsed items in generation order: the version marker first, then data
// entries ordered by data type and path. The order is deterministic for a
// given tree, so generated output is reproducible.
func Dir(root string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".xml") {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("load: read %q: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		item, err := parseItem(data)
		if err != nil {
			return fmt.Errorf("load: parse %q: %w", rel, err)
		}
		files = append(files, File{Path: rel, Item: item})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		ri, rj := sortRank(files[i].Item), sortRank(files[j].Item)
		if ri != rj {
			return ri < rj
		}
		return files[i].Path < files[j].Path
	})

	slog.Debug("schema directory loaded", "root", root, "files", len(files))
	return files, nil
}

// sortRank places version markers before any data entry, then orders data
// entries by type so definitions precede their uses.
func sortRank(it Item) int {
	if it.Version != nil {
		return -1
	}
	return it.Data.Type.rank()
}

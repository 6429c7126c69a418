package database

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modforge-dev/modforge/container"
	"github.com/modforge-dev/modforge/diagnostic"
	"github.com/modforge-dev/modforge/output"
)

// ContainerSettings is implemented by the generated settings record that
// carries the mod's container metadata. Packaging cannot proceed without it.
type ContainerSettings interface {
	Item
	ContainerInfo() container.Info
}

// Save drains the database to disk exactly once: persists the id mapping
// table, validates and serializes every record, hands the bytes to the
// incremental output writer, and optionally packages the container.
//
// Save panics if any handle or iterator is still outstanding; the database
// contents would not be fully observable otherwise. After Save the database
// is unusable.
func (db *DB) Save() (*diagnostic.Context, error) {
	if n := db.live.Load(); n != 0 {
		panic(fmt.Sprintf("database: %d item handles are still outstanding at save time, check for leaked handles or iterators", n))
	}
	if db.consumed.Swap(true) {
		panic("database: Save called twice")
	}

	slog.Info("saving database", "path", db.root)

	if err := db.persistMappings(); err != nil {
		return nil, err
	}

	inverse := db.ids.InverseIDs()
	diags := diagnostic.NewContext()

	writer, err := output.NewWriter(db.root)
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte)
	var settings ContainerSettings

	for _, kind := range sortedKeys(db.collections) {
		c := db.collections[kind]
		for _, s := range c.sortedSlots() {
			item := c.items[s].item
			rel := db.itemPath(item, inverse[kind])

			// Diagnostics are advisory: one invalid record must not
			// block output for everything else.
			item.Validate(diags.EnterNew(rel))

			data, err := json.MarshalIndent(item, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("database: serialize %s: %w", rel, err)
			}
			data = append(data, '\n')

			if err := writer.Add(rel, data); err != nil {
				return nil, err
			}
			files[rel] = data

			if s.settings {
				if cs, ok := item.(ContainerSettings); ok {
					settings = cs
				}
			}
		}
	}

	if err := writer.Flush(); err != nil {
		return nil, err
	}

	if db.container != "" {
		if settings == nil {
			panic("database: container output requested but no settings record with container metadata is present")
		}
		if err := db.writeContainer(files, settings.ContainerInfo()); err != nil {
			return nil, err
		}
	}

	if err := os.Remove(filepath.Join(db.root, mappingsBackupName)); err != nil {
		return nil, fmt.Errorf("database: remove mapping backup: %w", err)
	}

	slog.Info("database saved", "records", len(files))
	return diags, nil
}

// itemPath computes the relative output path of a record: the inverse-mapped
// string key (':' replaced for filesystem safety), an auto/ fallback when no
// key maps to the id, or the settings/ subtree for singletons.
func (db *DB) itemPath(item Item, inverse map[int32]string) string {
	kind := item.ItemKind()
	id, ok := item.ItemID()
	if !ok {
		return path.Join("settings", kind+".json")
	}
	key, ok := inverse[id]
	if !ok {
		return path.Join("auto", fmt.Sprintf("%s_%d.json", kind, id))
	}
	key = strings.ReplaceAll(key, ":", "-")
	return fmt.Sprintf("%s_%s.json", key, kind)
}

// persistMappings writes the id table with a backup-then-overwrite-then
// delete-backup sequence, so an interrupted save leaves either the old or
// the new table intact, never a torn file. The backup is removed at the very
// end of Save; finding one on the next run aborts it.
func (db *DB) persistMappings() error {
	mappingsPath := filepath.Join(db.root, mappingsName)
	backupPath := filepath.Join(db.root, mappingsBackupName)
	checkNoBackup(backupPath)

	data, err := json.MarshalIndent(db.ids.Serializable(), "", "  ")
	if err != nil {
		return fmt.Errorf("database: serialize id mappings: %w", err)
	}
	data = append(data, '\n')

	if prev, err := os.ReadFile(mappingsPath); err == nil {
		if err := os.WriteFile(backupPath, prev, 0o644); err != nil {
			return fmt.Errorf("database: create mapping backup: %w", err)
		}
		if err := os.WriteFile(mappingsPath, data, 0o644); err != nil {
			return fmt.Errorf("database: write id mappings: %w", err)
		}
	} else if os.IsNotExist(err) {
		if err := os.WriteFile(mappingsPath, data, 0o644); err != nil {
			return fmt.Errorf("database: write id mappings: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return fmt.Errorf("database: create mapping backup: %w", err)
		}
	} else {
		return fmt.Errorf("database: read id mappings: %w", err)
	}
	return nil
}

func (db *DB) writeContainer(files map[string][]byte, info container.Info) error {
	if err := os.MkdirAll(filepath.Dir(db.container), 0o755); err != nil {
		return fmt.Errorf("database: create container directory: %w", err)
	}
	f, err := os.Create(db.container)
	if err != nil {
		return fmt.Errorf("database: create container: %w", err)
	}
	defer f.Close()

	if err := container.Write(f, files, info); err != nil {
		return fmt.Errorf("database: package container: %w", err)
	}
	slog.Info("container packaged", "path", db.container, "name", info.Name)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

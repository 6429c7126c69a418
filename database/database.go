package database

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
)

const (
	mappingsName       = "id_mappings.json"
	mappingsBackupName = "id_mappings.json.backup"
)

// slot addresses one record inside a kind collection: either a numeric id or
// the kind's single settings slot.
type slot struct {
	id       int32
	settings bool
}

func slotFor(item Item) slot {
	if id, ok := item.ItemID(); ok {
		return slot{id: id}
	}
	return slot{settings: true}
}

// record is one stored item behind its own lock, so two goroutines can
// mutate two different records of the same kind without contending.
type record struct {
	mu   sync.RWMutex
	item Item
}

type collection struct {
	mu    sync.RWMutex
	items map[slot]*record
}

// sortedSlots returns the collection's slots in deterministic order:
// the settings slot first, then ascending numeric ids.
func (c *collection) sortedSlots() []slot {
	slots := make([]slot, 0, len(c.items))
	for s := range c.items {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].settings != slots[j].settings {
			return slots[i].settings
		}
		return slots[i].id < slots[j].id
	})
	return slots
}

// DB is the in-memory content database. It is populated by build scripts via
// typed constructors and handles, then drained exactly once by Save.
//
// The top-level mutex guards only structural operations (collection and
// mapping lookups); individual records carry their own locks.
type DB struct {
	mu          sync.Mutex
	root        string
	container   string
	ids         *Mapping
	collections map[string]*collection

	// live counts outstanding handles and iterators; Save asserts zero so
	// the database contents are fully observable when drained.
	live     atomic.Int64
	consumed atomic.Bool
}

// Open loads (or starts) a database rooted at dir. A persisted id mapping
// table is reloaded so ids stay stable across rebuilds. A stale mapping
// backup from a previously interrupted save is a hard abort: it signals
// unverified corruption that needs manual attention.
func Open(dir string) (*DB, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("database: output directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("database: output path %q is not a directory", dir)
	}

	checkNoBackup(filepath.Join(dir, mappingsBackupName))

	persisted := map[string]map[string]int32{}
	data, err := os.ReadFile(filepath.Join(dir, mappingsName))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &persisted); err != nil {
			return nil, fmt.Errorf("database: decode %s: %w", mappingsName, err)
		}
	case os.IsNotExist(err):
		// First run against this directory.
	default:
		return nil, fmt.Errorf("database: read %s: %w", mappingsName, err)
	}

	return &DB{
		root:        dir,
		ids:         NewMapping(persisted),
		collections: make(map[string]*collection),
	}, nil
}

func checkNoBackup(path string) {
	if _, err := os.Stat(path); err == nil {
		panic(fmt.Sprintf("database: mapping backup file exists at %q; a previous save was interrupted, verify the id files manually and remove the backup", path))
	}
}

// WithContainer configures the path of the packaged container produced on
// save. An empty path disables packaging.
func (db *DB) WithContainer(path string) *DB {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.container = path
	return db
}

// AddRange adds an allocatable id range shared by all kinds.
func (db *DB) AddRange(r Range) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.ids.AddRange(r)
}

// AddRangeFor adds an allocatable id range for a single kind.
func (db *DB) AddRangeFor(kind string, r Range) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.ids.AddRangeFor(kind, r)
}

// ClearRangesFor removes a kind's id space until new ranges are added.
func (db *DB) ClearRangesFor(kind string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.ids.ClearRangesFor(kind)
}

// Mapping operations, locked pass-throughs. The typed package-level helpers
// (NewID, ExistingID, ...) are the surface generated code calls.

func (db *DB) newID(kind, key string) int32 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.ids.NewID(kind, key)
}

func (db *DB) existingID(kind, key string) int32 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.ids.ExistingID(kind, key)
}

func (db *DB) getIDRaw(kind, key string) int32 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.ids.GetIDRaw(kind, key)
}

func (db *DB) setID(kind, key string, id int32) int32 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.ids.SetID(kind, key, id)
}

// UsedIDs returns the string keys registered for kind during this run.
func (db *DB) UsedIDs(kind string) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.ids.UsedIDs(kind)
}

// UsedIDsFiltered returns the registered keys for kind matching pattern.
func (db *DB) UsedIDsFiltered(kind, pattern string) ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.ids.UsedIDsFiltered(kind, pattern)
}

func kindOf[T Item]() string {
	var zero T
	return zero.ItemKind()
}

// NewID registers key for T's kind and returns its stable id. Panics if the
// key was already registered this run.
func NewID[T Item](db *DB, key string) ID[T] {
	return ID[T](db.newID(kindOf[T](), key))
}

// ExistingID resolves a key registered earlier in this run. Panics if the
// key was never registered.
func ExistingID[T Item](db *DB, key string) ID[T] {
	return ID[T](db.existingID(kindOf[T](), key))
}

// GetID resolves or allocates the id for key without used-key bookkeeping.
func GetID[T Item](db *DB, key string) ID[T] {
	return ID[T](db.getIDRaw(kindOf[T](), key))
}

// SetID pins key to a fixed numeric id for T's kind.
func SetID[T Item](db *DB, key string, id int32) ID[T] {
	return ID[T](db.setID(kindOf[T](), key, id))
}

func (db *DB) checkUsable() {
	if db.consumed.Load() {
		panic("database: use after Save")
	}
}

// lookup returns the collection for kind, creating it if needed.
func (db *DB) lookup(kind string) *collection {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.collections[kind]
	if !ok {
		c = &collection{items: make(map[slot]*record)}
		db.collections[kind] = c
	}
	return c
}

// insert stores an item under its kind and slot. A collision keeps the
// record that arrived first and logs the rejection; losing either record
// silently would be worse than refusing the newcomer.
func (db *DB) insert(item Item) {
	db.checkUsable()
	kind := item.ItemKind()
	c := db.lookup(kind)
	s := slotFor(item)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[s]; exists {
		if s.settings {
			slog.Error("duplicate setting rejected", "kind", kind)
		} else {
			slog.Error("item id collision detected, keeping the first record", "kind", kind, "id", s.id)
		}
		return
	}
	c.items[s] = &record{item: item}
}

// Add wraps item in a handle that must be resolved with Commit or Forget
// before the database is saved.
func Add[T Item](db *DB, item T) *Handle[T] {
	db.checkUsable()
	db.live.Add(1)
	return &Handle[T]{db: db, item: item, open: true}
}

// Get returns a live handle to the stored record with the given id.
func Get[T Item](db *DB, id ID[T]) (*Stored[T], bool) {
	return getSlot[T](db, slot{id: int32(id)})
}

// GetByKey resolves key through the id mapping (without registering it) and
// returns the record bound to the resulting id, if stored.
func GetByKey[T Item](db *DB, key string) (*Stored[T], bool) {
	return Get[T](db, GetID[T](db, key))
}

// GetSingleton returns the settings-slot record of T's kind.
func GetSingleton[T Item](db *DB) (*Stored[T], bool) {
	return getSlot[T](db, slot{settings: true})
}

func getSlot[T Item](db *DB, s slot) (*Stored[T], bool) {
	db.checkUsable()
	c := db.lookup(kindOf[T]())
	c.mu.RLock()
	rec, ok := c.items[s]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	db.live.Add(1)
	return &Stored[T]{db: db, rec: rec, open: true}, true
}

// Iter visits every stored record of T's kind under a read lock, in
// deterministic slot order. It must not be nested with IterMut of the same
// kind: the collection lock is held for the duration of the pass.
func Iter[T Item](db *DB, fn func(T)) {
	db.checkUsable()
	c := db.lookup(kindOf[T]())
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.sortedSlots() {
		rec := c.items[s]
		rec.mu.RLock()
		fn(rec.item.(T))
		rec.mu.RUnlock()
	}
}

// IterMut visits every stored record of T's kind for mutation, holding the
// collection lock exclusively. Must not be nested for the same kind.
func IterMut[T Item](db *DB, fn func(*T)) {
	db.checkUsable()
	c := db.lookup(kindOf[T]())
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.sortedSlots() {
		rec := c.items[s]
		rec.mu.Lock()
		v := rec.item.(T)
		fn(&v)
		rec.item = v
		rec.mu.Unlock()
	}
}

package database

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
)

// Range is a half-open [Start, End) interval of allocatable numeric ids.
type Range struct {
	Start int32
	End   int32
}

// rangeCursor walks a Range front to back, remembering how far allocation
// has progressed.
type rangeCursor struct {
	next int32
	end  int32
}

func cursors(ranges []Range) []rangeCursor {
	cs := make([]rangeCursor, len(ranges))
	for i, r := range ranges {
		cs[i] = rangeCursor{next: r.Start, end: r.End}
	}
	return cs
}

// Mapping assigns stable numeric ids to human-readable string keys, one
// namespace per kind. Ids are drawn from caller-provided ranges and are never
// reissued while occupied; a key, once used, stays bound to one id for the
// lifetime of the mapping.
//
// Mapping is not safe for concurrent use; the owning DB serializes access.
type Mapping struct {
	ids       map[string]map[string]int32
	usedKeys  map[string]map[string]struct{}
	occupied  map[string]map[int32]struct{}
	available map[string][]rangeCursor
	defaults  []rangeCursor
}

// NewMapping builds a mapping seeded with previously-persisted id tables.
// Every persisted numeric value is marked occupied so new allocations can
// never collide with content saved by earlier runs.
func NewMapping(persisted map[string]map[string]int32) *Mapping {
	m := &Mapping{
		ids:       make(map[string]map[string]int32),
		usedKeys:  make(map[string]map[string]struct{}),
		occupied:  make(map[string]map[int32]struct{}),
		available: make(map[string][]rangeCursor),
	}
	for kind, table := range persisted {
		ids := make(map[string]int32, len(table))
		occ := make(map[int32]struct{}, len(table))
		for key, id := range table {
			ids[key] = id
			occ[id] = struct{}{}
		}
		m.ids[kind] = ids
		m.occupied[kind] = occ
	}
	return m
}

// Serializable returns the persistent form: kind → {key → id}. The returned
// maps alias the mapping's internal state and must not be mutated.
func (m *Mapping) Serializable() map[string]map[string]int32 {
	return m.ids
}

// AddRange appends a range to the shared default pool and to every kind that
// already has a dedicated pool.
func (m *Mapping) AddRange(r Range) {
	for kind := range m.available {
		m.available[kind] = append(m.available[kind], rangeCursor{next: r.Start, end: r.End})
	}
	m.defaults = append(m.defaults, rangeCursor{next: r.Start, end: r.End})
}

// AddRangeFor appends a range to one kind's dedicated pool, seeding the pool
// from the defaults if the kind had none.
func (m *Mapping) AddRangeFor(kind string, r Range) {
	m.ensureRanges(kind)
	m.available[kind] = append(m.available[kind], rangeCursor{next: r.Start, end: r.End})
}

// ClearRangesFor removes all allocatable ranges for a kind. Allocation for
// the kind fails until new space is added.
func (m *Mapping) ClearRangesFor(kind string) {
	m.ensureRanges(kind)
	m.available[kind] = m.available[kind][:0]
}

func (m *Mapping) ensureRanges(kind string) {
	if _, ok := m.available[kind]; !ok {
		m.available[kind] = append([]rangeCursor(nil), m.defaults...)
	}
}

// GetIDRaw resolves key to its numeric id, allocating one if the key has
// never been mapped. It performs no used-key bookkeeping: the same call is
// safe to repeat and always yields the same id.
func (m *Mapping) GetIDRaw(kind, key string) int32 {
	table, ok := m.ids[kind]
	if !ok {
		table = make(map[string]int32)
		m.ids[kind] = table
	}
	if id, ok := table[key]; ok {
		return id
	}
	id := m.nextIDRaw(kind)
	table[key] = id
	return id
}

// ExistingID resolves a key that must already have been registered via NewID
// or SetID during this run. Referencing unknown content is a build-script
// bug, so the lookup panics rather than inventing an id.
func (m *Mapping) ExistingID(kind, key string) int32 {
	if !m.IsUsed(kind, key) {
		panic(fmt.Sprintf("database: id %q is not present for kind %q", key, kind))
	}
	return m.ids[kind][key]
}

// NewID registers key and allocates (or re-binds, if persisted) its numeric
// id. Registering the same key twice panics to catch accidental
// re-definitions of the same content.
func (m *Mapping) NewID(kind, key string) int32 {
	used, ok := m.usedKeys[kind]
	if !ok {
		used = make(map[string]struct{})
		m.usedKeys[kind] = used
	}
	if _, dup := used[key]; dup {
		panic(fmt.Sprintf("database: id %q is already in use for kind %q", key, kind))
	}
	used[key] = struct{}{}
	return m.GetIDRaw(kind, key)
}

// SetID forcibly binds key to a caller-chosen numeric id, marking the id
// occupied and the key used. Used to pin vanilla or otherwise fixed ids.
func (m *Mapping) SetID(kind, key string, id int32) int32 {
	table, ok := m.ids[kind]
	if !ok {
		table = make(map[string]int32)
		m.ids[kind] = table
	}
	table[key] = id
	occ, ok := m.occupied[kind]
	if !ok {
		occ = make(map[int32]struct{})
		m.occupied[kind] = occ
	}
	occ[id] = struct{}{}
	used, ok := m.usedKeys[kind]
	if !ok {
		used = make(map[string]struct{})
		m.usedKeys[kind] = used
	}
	used[key] = struct{}{}
	return id
}

// UnstableID allocates a fresh id with no key binding. Such ids may differ
// between runs and must not end up in savefile-persistent data.
func (m *Mapping) UnstableID(kind string) int32 {
	return m.nextIDRaw(kind)
}

// IsUsed reports whether key was registered for kind during this run.
func (m *Mapping) IsUsed(kind, key string) bool {
	_, ok := m.usedKeys[kind][key]
	return ok
}

// ForgetUsedID releases the used mark on a key so it can be registered
// again. The key's numeric binding is untouched.
func (m *Mapping) ForgetUsedID(kind, key string) {
	delete(m.usedKeys[kind], key)
}

// InverseID recovers the string key bound to a numeric id, scanning the
// kind's table. Used to name output files after content keys.
func (m *Mapping) InverseID(kind string, id int32) (string, bool) {
	for key, v := range m.ids[kind] {
		if v == id {
			return key, true
		}
	}
	return "", false
}

// InverseIDs builds the full id → key table for every kind.
func (m *Mapping) InverseIDs() map[string]map[int32]string {
	out := make(map[string]map[int32]string, len(m.ids))
	for kind, table := range m.ids {
		inv := make(map[int32]string, len(table))
		for key, id := range table {
			inv[id] = key
		}
		out[kind] = inv
	}
	return out
}

// UsedIDs returns all keys registered for kind during this run, sorted.
func (m *Mapping) UsedIDs(kind string) []string {
	used := m.usedKeys[kind]
	keys := make([]string, 0, len(used))
	for key := range used {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// UsedIDsFiltered returns the registered keys matching the regexp pattern.
func (m *Mapping) UsedIDsFiltered(kind, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("database: bad id filter %q: %w", pattern, err)
	}
	var keys []string
	for _, key := range m.UsedIDs(kind) {
		if re.MatchString(key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// nextIDRaw draws the next free id for kind, walking the kind's ranges front
// to back and skipping ids already occupied. Exhaustion is fatal: silently
// wrapping or reusing ids would corrupt the stable-id guarantee existing
// saves depend on.
func (m *Mapping) nextIDRaw(kind string) int32 {
	m.ensureRanges(kind)
	ranges := m.available[kind]
	if len(ranges) == 0 {
		slog.Error("no id ranges configured", "kind", kind)
		panic(fmt.Sprintf("database: no id ranges were given for kind %q, use AddRange", kind))
	}

	occ, ok := m.occupied[kind]
	if !ok {
		occ = make(map[int32]struct{})
		m.occupied[kind] = occ
	}

	for i := range ranges {
		for ranges[i].next < ranges[i].end {
			id := ranges[i].next
			ranges[i].next++
			if _, taken := occ[id]; taken {
				continue
			}
			occ[id] = struct{}{}
			return id
		}
	}

	panic(fmt.Sprintf("database: no free ids are left for kind %q", kind))
}

// Package database implements the content store behind generated record
// types: stable string-to-numeric identifier mapping, a concurrency-safe
// in-memory item store, and the save pipeline that validates, serializes and
// hands records to the incremental output writer.
package database

import (
	"fmt"
	"sort"
	"sync"

	"github.com/modforge-dev/modforge/diagnostic"
)

// Item is the contract every stored record satisfies. Generated object and
// settings types implement it; the database itself never inspects anything
// beyond this surface.
type Item interface {
	// ItemKind returns the kind name the record is partitioned under,
	// equal to the generated type's schema name.
	ItemKind() string
	// ItemID returns the record's numeric id. Settings singletons report
	// ok=false and occupy the kind's single settings slot instead.
	ItemID() (int32, bool)
	// Validate checks field invariants and reports findings on ref.
	Validate(ref *diagnostic.Ref)
}

// ID is a numeric identifier tagged with its owning record type. Two IDs of
// different kinds are distinct types and never interconvertible implicitly.
type ID[K Item] int32

// Int32 returns the untagged numeric value.
func (id ID[K]) Int32() int32 { return int32(id) }

// Kind describes one generated record kind. The code generator emits a
// RegisterKind call per kind in an init function, so the full set is known
// as soon as the generated package is linked in.
type Kind struct {
	// Name is the schema name, used as the mapping and store partition key.
	Name string
	// Settings marks singleton kinds that live in the settings slot.
	Settings bool
	// New returns a zero value of the kind, used by tooling that needs an
	// instance without going through a typed constructor.
	New func() Item
}

var registry = struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}{kinds: make(map[string]Kind)}

// RegisterKind adds a kind to the global registry. Registering the same name
// twice panics: it means two generated types claimed one schema name.
func RegisterKind(k Kind) {
	if k.Name == "" {
		panic("database: RegisterKind with empty name")
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.kinds[k.Name]; ok {
		panic(fmt.Sprintf("database: kind %q registered twice", k.Name))
	}
	registry.kinds[k.Name] = k
}

// LookupKind returns the registered kind with the given name.
func LookupKind(name string) (Kind, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	k, ok := registry.kinds[name]
	return k, ok
}

// Kinds returns all registered kind names in sorted order.
func Kinds() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.kinds))
	for name := range registry.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resetRegistry clears the registry between tests.
func resetRegistry() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.kinds = make(map[string]Kind)
}

package diagnostic

import (
	"fmt"
	"sort"
)

// Context accumulates diagnostics grouped by an entry name, normally the
// relative path of the output file a record is saved under.
type Context struct {
	entries map[string][]Diagnostic
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{entries: make(map[string][]Diagnostic)}
}

// Enter opens (or reopens) the entry with the given name and returns a ref
// rooted at an empty path.
func (c *Context) Enter(name string) *Ref {
	if _, ok := c.entries[name]; !ok {
		c.entries[name] = nil
	}
	return &Ref{ctx: c, entry: name}
}

// EnterNew opens the entry with the given name, panicking if it already
// exists. Save passes compute one entry per output file, so a duplicate
// means two records resolved to the same path.
func (c *Context) EnterNew(name string) *Ref {
	if _, ok := c.entries[name]; ok {
		panic(fmt.Sprintf("diagnostic: context already exists for %q", name))
	}
	return c.Enter(name)
}

// Entries returns the entry names in sorted order.
func (c *Context) Entries() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the diagnostics recorded for an entry.
func (c *Context) Get(name string) []Diagnostic {
	return c.entries[name]
}

// Len returns the total number of recorded diagnostics.
func (c *Context) Len() int {
	n := 0
	for _, ds := range c.entries {
		n += len(ds)
	}
	return n
}

// Ref is a cursor into a context entry at some path depth. Refs are cheap
// copies; entering a segment returns a child ref and leaves the parent usable,
// so validation code never has to unwind anything.
type Ref struct {
	ctx   *Context
	entry string
	path  Path
}

// Emit records a finding at the ref's current path.
func (r *Ref) Emit(kind Kind) {
	r.ctx.entries[r.entry] = append(r.ctx.entries[r.entry], Diagnostic{
		Path: r.path,
		Kind: kind,
	})
}

// Enter descends into an arbitrary segment.
func (r *Ref) Enter(seg Segment) *Ref {
	return &Ref{ctx: r.ctx, entry: r.entry, path: r.path.Push(seg)}
}

// Field descends into a named field.
func (r *Ref) Field(name string) *Ref {
	return r.Enter(Field(name))
}

// Index descends into a list element.
func (r *Ref) Index(i int) *Ref {
	return r.Enter(Index(i))
}

// Variant descends into a switch variant.
func (r *Ref) Variant(name string) *Ref {
	return r.Enter(Variant(name))
}

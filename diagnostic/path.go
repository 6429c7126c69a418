package diagnostic

import (
	"fmt"
	"strings"
)

// SegmentKind discriminates the forms a path segment can take.
type SegmentKind int

const (
	// SegmentField is a named struct field.
	SegmentField SegmentKind = iota
	// SegmentIndex is a position inside a list field.
	SegmentIndex
	// SegmentVariant is the active variant of a switch type.
	SegmentVariant
)

// Segment is one step of a Path.
type Segment struct {
	Kind  SegmentKind
	Field string
	Index int
}

// Field returns a field segment.
func Field(name string) Segment {
	return Segment{Kind: SegmentField, Field: name}
}

// Index returns a list-index segment.
func Index(i int) Segment {
	return Segment{Kind: SegmentIndex, Index: i}
}

// Variant returns a switch-variant segment.
func Variant(name string) Segment {
	return Segment{Kind: SegmentVariant, Field: name}
}

func (s Segment) format(prefixed bool) string {
	switch s.Kind {
	case SegmentIndex:
		return fmt.Sprintf("[%d]", s.Index)
	case SegmentVariant:
		return fmt.Sprintf("<%s>", s.Field)
	default:
		if prefixed {
			return "." + s.Field
		}
		return s.Field
	}
}

// Path locates a diagnostic inside a record, e.g. `loot.items[2].weight`.
// Paths are immutable; Push returns an extended copy.
type Path []Segment

// Push returns a new path with seg appended. The receiver is not modified,
// so sibling refs can extend the same parent safely.
func (p Path) Push(seg Segment) Path {
	next := make(Path, len(p), len(p)+1)
	copy(next, p)
	return append(next, seg)
}

// LastIsField reports whether the innermost segment is the named field.
func (p Path) LastIsField(name string) bool {
	if len(p) == 0 {
		return false
	}
	last := p[len(p)-1]
	return last.Kind == SegmentField && last.Field == name
}

func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p[0].format(false))
	for _, seg := range p[1:] {
		b.WriteString(seg.format(true))
	}
	return b.String()
}

// Package diagnostic collects non-fatal content validation findings keyed by
// output file, with structural paths pointing at the offending value.
package diagnostic

import "fmt"

// Code identifies a diagnostic kind.
type Code int

const (
	// CodeObsoleteField flags a non-default value in a field marked obsolete.
	CodeObsoleteField Code = iota
	// CodeValueTooSmall flags a numeric value below its declared minimum.
	CodeValueTooSmall
	// CodeValueTooLarge flags a numeric value above its declared maximum.
	CodeValueTooLarge
	// CodeLayoutNotSquare flags a layout whose cell count is not a perfect square.
	CodeLayoutNotSquare
)

// Kind is one concrete finding, parameterized by the observed values.
type Kind struct {
	Code   Code
	Min    float64
	Max    float64
	Value  float64
	Length int
}

// ObsoleteField reports usage of an obsolete field.
func ObsoleteField() Kind {
	return Kind{Code: CodeObsoleteField}
}

// TooSmall reports a value below the declared minimum.
func TooSmall(min, value float64) Kind {
	return Kind{Code: CodeValueTooSmall, Min: min, Value: value}
}

// TooLarge reports a value above the declared maximum.
func TooLarge(max, value float64) Kind {
	return Kind{Code: CodeValueTooLarge, Max: max, Value: value}
}

// LayoutNotSquare reports a layout with a non-square cell count.
func LayoutNotSquare(length int) Kind {
	return Kind{Code: CodeLayoutNotSquare, Length: length}
}

// IsError reports whether the finding is an error rather than a warning.
// Only broken layouts are errors; everything else is content-quality advice.
func (k Kind) IsError() bool {
	return k.Code == CodeLayoutNotSquare
}

func (k Kind) String() string {
	switch k.Code {
	case CodeObsoleteField:
		return "obsolete field usage detected"
	case CodeValueTooSmall:
		return fmt.Sprintf("value %v is too small, expected at least %v", k.Value, k.Min)
	case CodeValueTooLarge:
		return fmt.Sprintf("value %v is too large, expected at most %v", k.Value, k.Max)
	case CodeLayoutNotSquare:
		return fmt.Sprintf("expected a square layout, but got a layout with length %d", k.Length)
	default:
		return fmt.Sprintf("unknown diagnostic code %d", k.Code)
	}
}

// Diagnostic is a finding attached to a location inside a record.
type Diagnostic struct {
	Path Path
	Kind Kind
}

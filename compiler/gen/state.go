package gen

import (
	"strconv"
	"strings"

	"github.com/modforge-dev/modforge/compiler/load"
)

// State accumulates cross-references over one generation run. Entries are
// processed in the load order, so enums land here before any struct that
// names them and objects are registered before the final union pass.
type State struct {
	enums   map[string]*EnumData
	objects map[string]*StructData // keyed by typeid
}

// NewState returns an empty accumulator.
func NewState() *State {
	return &State{
		enums:   make(map[string]*EnumData),
		objects: make(map[string]*StructData),
	}
}

// Enum returns the analyzed enum with the given name, or nil.
func (s *State) Enum(name string) *EnumData { return s.enums[name] }

// Object returns the analyzed object or settings entry registered under the
// given typeid, or nil.
func (s *State) Object(typeid string) *StructData { return s.objects[typeid] }

// EnumData is an analyzed enum: ordered variants with resolved discriminants.
// Char is set when any item used the single-quoted character form, which
// flips the whole enum to a one-character-string wire encoding.
type EnumData struct {
	Name  string
	Char  bool
	Items []EnumValue
}

// EnumValue is one resolved enum variant.
type EnumValue struct {
	Name  string
	Value int32
	Char  byte
	Doc   string
}

// ConstName returns the emitted constant identifier for the variant.
func (e *EnumData) ConstName(variant string) string { return e.Name + variant }

// Has reports whether the enum declares the named variant.
func (e *EnumData) Has(variant string) bool {
	for _, it := range e.Items {
		if it.Name == variant {
			return true
		}
	}
	return false
}

// StructData is an analyzed struct, settings or object entry with its final
// deduplicated field list.
type StructData struct {
	Name     string
	TypeID   string
	Settings bool
	Object   bool
	Fields   []*Field
}

// Field is one analyzed member.
type Field struct {
	Name     string
	Member   load.Member
	NotNull  bool
	Obsolete bool
}

var knownOptions = map[string]struct{}{
	"notnull":   {},
	"obsolete":  {},
	"localized": {},
}

// analyzeEnum resolves discriminants: explicit integers, explicit 'c'
// characters, or an implicit counter continuing from the last explicit
// value. A single character item switches the whole enum to character form.
func analyzeEnum(data *load.Data) (*EnumData, error) {
	e := &EnumData{Name: data.Name}
	next := int32(0)
	for _, item := range data.Items {
		v := EnumValue{Name: item.Name, Doc: strings.TrimSpace(item.Description)}
		if item.Name == "" {
			return nil, NewSchemaError(data.Name, "", "enum item without a name", nil)
		}
		switch {
		case item.Value == nil:
			v.Value = next
		case strings.HasPrefix(*item.Value, "'"):
			// Only the exact 'c' form is a character discriminant.
			raw := *item.Value
			if len(raw) != 3 || raw[2] != '\'' {
				return nil, NewSchemaError(data.Name, item.Name, "malformed character value "+strconv.Quote(raw), nil)
			}
			e.Char = true
			v.Char = raw[1]
			v.Value = next
		default:
			n, err := strconv.ParseInt(*item.Value, 10, 32)
			if err != nil {
				return nil, NewSchemaError(data.Name, item.Name, "bad enum value "+strconv.Quote(*item.Value), err)
			}
			v.Value = int32(n)
		}
		next = v.Value + 1
		e.Items = append(e.Items, v)
	}
	if len(e.Items) == 0 {
		return nil, NewSchemaError(data.Name, "", "enum has no items", nil)
	}
	if e.Char {
		if err := checkCharEnum(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// checkCharEnum guards the character wire form: every variant needs a
// character, and two variants sharing one would collide in the decoder.
func checkCharEnum(e *EnumData) error {
	seen := make(map[byte]string, len(e.Items))
	for _, it := range e.Items {
		if it.Char == 0 {
			return NewSchemaError(e.Name, it.Name, "character-coded enum has a variant without a character value", nil)
		}
		if prev, ok := seen[it.Char]; ok {
			return NewSchemaError(e.Name, it.Name,
				"character "+strconv.QuoteRune(rune(it.Char))+" already used by variant "+prev, nil)
		}
		seen[it.Char] = it.Name
	}
	return nil
}

// analyzeStruct builds the final field list for a struct, settings or object
// entry: options validated, same-named fields deduplicated keeping the first
// occurrence, and for objects the implicit self-referencing Id field
// prepended.
func analyzeStruct(data *load.Data) (*StructData, error) {
	sd := &StructData{
		Name:     data.Name,
		TypeID:   data.TypeID,
		Settings: data.Type == load.TypeSettings,
		Object:   data.Type == load.TypeObject,
	}

	members := data.Members
	if sd.Object {
		members = append([]load.Member{{
			Name:    "Id",
			Type:    load.MemberObject,
			TypeID:  data.Name,
			Options: "notnull",
		}}, members...)
	}

	seen := make(map[string]int)
	for _, m := range members {
		if m.Name == "" {
			return nil, NewSchemaError(data.Name, "", "member without a name", nil)
		}
		if i, dup := seen[m.Name]; dup {
			// Identical re-declarations are a common copy-paste artifact;
			// the first wins. Conflicting ones are a real schema bug.
			if !sameMember(sd.Fields[i].Member, m) {
				return nil, NewSchemaError(data.Name, m.Name, "duplicate member with conflicting declaration", nil)
			}
			continue
		}
		f := &Field{Name: m.Name, Member: m}
		for _, opt := range strings.Split(m.Options, ",") {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				continue
			}
			if _, ok := knownOptions[opt]; !ok {
				return nil, NewSchemaError(data.Name, m.Name, "unknown option "+strconv.Quote(opt), nil)
			}
		}
		f.NotNull = m.HasOption("notnull")
		f.Obsolete = m.HasOption("obsolete")
		seen[m.Name] = len(sd.Fields)
		sd.Fields = append(sd.Fields, f)
	}
	return sd, nil
}

func sameMember(a, b load.Member) bool {
	eqF := func(x, y *float64) bool {
		if (x == nil) != (y == nil) {
			return false
		}
		return x == nil || *x == *y
	}
	eqS := func(x, y *string) bool {
		if (x == nil) != (y == nil) {
			return false
		}
		return x == nil || *x == *y
	}
	return a.Type == b.Type && a.TypeID == b.TypeID && a.Options == b.Options &&
		a.Case == b.Case && eqF(a.MinValue, b.MinValue) && eqF(a.MaxValue, b.MaxValue) &&
		eqS(a.Default, b.Default)
}

// Package load parses XML schema files into the in-memory model consumed by
// the code generator.
//
// Each schema file holds exactly one top-level element: either a <schema>
// version marker or a <data type="..."> definition of an enum, expression,
// struct, settings or object kind.
package load

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// DataType classifies a <data> element. The declared order is the generation
// order: enums first, objects last, so cross-references by typeid always
// resolve to already-generated types.
type DataType string

// Schema data types in generation order.
const (
	TypeEnum       DataType = "enum"
	TypeExpression DataType = "expression"
	TypeStruct     DataType = "struct"
	TypeSettings   DataType = "settings"
	TypeObject     DataType = "object"
)

var dataTypeRank = map[DataType]int{
	TypeEnum:       0,
	TypeExpression: 1,
	TypeStruct:     2,
	TypeSettings:   3,
	TypeObject:     4,
}

func (t DataType) rank() int { return dataTypeRank[t] }

// UnmarshalXMLAttr validates the type attribute against the known set.
func (t *DataType) UnmarshalXMLAttr(attr xml.Attr) error {
	v := DataType(strings.ToLower(attr.Value))
	if _, ok := dataTypeRank[v]; !ok {
		return fmt.Errorf("load: unknown data type %q", attr.Value)
	}
	*t = v
	return nil
}

// MemberType is the semantic type of one schema member.
type MemberType string

// Member types as they appear in schema files.
const (
	MemberStruct     MemberType = "struct"
	MemberStructList MemberType = "structlist"
	MemberObject     MemberType = "object"
	MemberObjectList MemberType = "objectlist"
	MemberEnum       MemberType = "enum"
	MemberEnumFlags  MemberType = "enumflags"
	MemberExpression MemberType = "expression"
	MemberVector     MemberType = "vector"
	MemberFloat      MemberType = "float"
	MemberInt        MemberType = "int"
	MemberColor      MemberType = "color"
	MemberBool       MemberType = "bool"
	MemberString     MemberType = "string"
	MemberImage      MemberType = "image"
	MemberAudioClip  MemberType = "audioclip"
	MemberPrefab     MemberType = "prefab"
	MemberLayout     MemberType = "layout"
)

var memberTypes = map[MemberType]struct{}{
	MemberStruct: {}, MemberStructList: {}, MemberObject: {}, MemberObjectList: {},
	MemberEnum: {}, MemberEnumFlags: {}, MemberExpression: {}, MemberVector: {},
	MemberFloat: {}, MemberInt: {}, MemberColor: {}, MemberBool: {},
	MemberString: {}, MemberImage: {}, MemberAudioClip: {}, MemberPrefab: {},
	MemberLayout: {},
}

// UnmarshalXMLAttr validates the member type attribute against the known set.
func (t *MemberType) UnmarshalXMLAttr(attr xml.Attr) error {
	v := MemberType(strings.ToLower(attr.Value))
	if _, ok := memberTypes[v]; !ok {
		return fmt.Errorf("load: unknown member type %q", attr.Value)
	}
	*t = v
	return nil
}

// Version is the schema version marker carried by <schema> files.
type Version struct {
	Name  string `xml:"name,attr"`
	Major string `xml:"major,attr"`
	Minor string `xml:"minor,attr"`
}

// Data is one named schema entry. Which child lists are populated depends on
// Type: enums carry Items, expressions carry Params, everything else carries
// Members.
type Data struct {
	Type   DataType `xml:"type,attr"`
	Name   string   `xml:"name,attr"`
	Switch string   `xml:"switch,attr"`
	TypeID string   `xml:"typeid,attr"`

	Members []Member   `xml:"member"`
	Params  []Param    `xml:"param"`
	Items   []EnumItem `xml:"item"`
}

// IsSwitch reports whether the entry declares a tagged union over the named
// enum member.
func (d *Data) IsSwitch() bool { return d.Switch != "" }

// Member is one typed field of a struct, settings or object entry.
type Member struct {
	Name      string     `xml:"name,attr"`
	Type      MemberType `xml:"type,attr"`
	MinValue  *float64   `xml:"minvalue,attr"`
	MaxValue  *float64   `xml:"maxvalue,attr"`
	TypeID    string     `xml:"typeid,attr"`
	Options   string     `xml:"options,attr"`
	Case      string     `xml:"case,attr"`
	Alias     string     `xml:"alias,attr"`
	Default   *string    `xml:"default,attr"`
	Arguments string     `xml:"arguments,attr"`

	Description string `xml:",chardata"`
}

// HasOption reports whether the comma-separated options attribute contains
// the named flag.
func (m Member) HasOption(name string) bool {
	for _, opt := range strings.Split(m.Options, ",") {
		if strings.TrimSpace(opt) == name {
			return true
		}
	}
	return false
}

// CaseList returns the trimmed union variant names this member belongs to.
// Empty means the member is shared across every variant.
func (m Member) CaseList() []string {
	if strings.TrimSpace(m.Case) == "" {
		return nil
	}
	var cases []string
	for _, c := range strings.Split(m.Case, ",") {
		cases = append(cases, strings.TrimSpace(c))
	}
	return cases
}

// Doc returns the whitespace-trimmed member description.
func (m Member) Doc() string { return strings.TrimSpace(m.Description) }

// Param is one expression parameter declaration.
type Param struct {
	Name        string `xml:"name,attr"`
	Type        string `xml:"type,attr"`
	TypeID      string `xml:"typeid,attr"`
	Description string `xml:",chardata"`
}

// EnumItem is one enum variant. Value is either a decimal integer or a
// single-quoted character; absent values auto-increment.
type EnumItem struct {
	Name        string  `xml:"name,attr"`
	Value       *string `xml:"value,attr"`
	Description string  `xml:",chardata"`
}

// Item is one parsed schema document. Exactly one of Version or Data is set.
type Item struct {
	Version *Version
	Data    *Data
}

// File pairs a parsed item with the slash-separated path it came from, which
// is the ordering tiebreaker within a data type.
type File struct {
	Path string
	Item Item
}

type versionDoc struct {
	Version Version `xml:"version"`
}

// parseItem decodes a single schema document, dispatching on the root
// element name.
func parseItem(data []byte) (Item, error) {
	root, err := rootName(data)
	if err != nil {
		return Item{}, err
	}
	switch root {
	case "schema":
		var doc versionDoc
		if err := xml.Unmarshal(data, &doc); err != nil {
			return Item{}, fmt.Errorf("load: decode schema marker: %w", err)
		}
		return Item{Version: &doc.Version}, nil
	case "data":
		var doc Data
		if err := xml.Unmarshal(data, &doc); err != nil {
			return Item{}, fmt.Errorf("load: decode data element: %w", err)
		}
		if doc.Name == "" {
			return Item{}, fmt.Errorf("load: data element has no name")
		}
		return Item{Data: &doc}, nil
	default:
		return Item{}, fmt.Errorf("load: unexpected root element <%s>", root)
	}
}

func rootName(data []byte) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("load: malformed XML: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

package gen

import (
	"strconv"

	"github.com/dave/jennifer/jen"

	"github.com/modforge-dev/modforge/compiler/load"
)

// Import paths stamped into generated files.
const (
	databasePkg   = "github.com/modforge-dev/modforge/database"
	diagnosticPkg = "github.com/modforge-dev/modforge/diagnostic"
)

// goType maps one analyzed member to its emitted Go type.
func (g *Generator) goType(owner *StructData, f *Field) (jen.Code, error) {
	m := f.Member
	switch m.Type {
	case load.MemberStruct:
		if m.TypeID == "" {
			return nil, NewSchemaError(owner.Name, f.Name, "struct member without a typeid", nil)
		}
		if m.TypeID == owner.Name {
			// Self reference must break the value cycle.
			return jen.Op("*").Id(m.TypeID), nil
		}
		return jen.Id(m.TypeID), nil
	case load.MemberStructList:
		if m.TypeID == "" {
			return nil, NewSchemaError(owner.Name, f.Name, "structlist member without a typeid", nil)
		}
		return jen.Index().Id(m.TypeID), nil
	case load.MemberObject:
		if m.TypeID == "" {
			return nil, NewSchemaError(owner.Name, f.Name, "object member without a typeid", nil)
		}
		if f.NotNull {
			return jen.Id(m.TypeID + "ID"), nil
		}
		return jen.Op("*").Id(m.TypeID + "ID"), nil
	case load.MemberObjectList:
		if m.TypeID == "" {
			return nil, NewSchemaError(owner.Name, f.Name, "objectlist member without a typeid", nil)
		}
		return jen.Index().Id(m.TypeID + "ID"), nil
	case load.MemberEnum, load.MemberEnumFlags:
		if g.state.Enum(m.TypeID) == nil {
			return nil, NewSchemaError(owner.Name, f.Name, "unknown enum "+strconv.Quote(m.TypeID), nil)
		}
		if m.Type == load.MemberEnumFlags {
			return jen.Index().Id(m.TypeID), nil
		}
		return jen.Id(m.TypeID), nil
	case load.MemberExpression:
		return jen.Id("Expression"), nil
	case load.MemberVector:
		return jen.Id("Vector"), nil
	case load.MemberFloat:
		return jen.Float64(), nil
	case load.MemberInt:
		return jen.Int32(), nil
	case load.MemberColor:
		return jen.Id("Color"), nil
	case load.MemberBool:
		return jen.Bool(), nil
	case load.MemberString, load.MemberImage, load.MemberAudioClip, load.MemberPrefab:
		return jen.String(), nil
	case load.MemberLayout:
		// A layout serializes as a string of digit characters, one cell
		// per character, matching the loader's wire format.
		return jen.String(), nil
	default:
		return nil, NewSchemaError(owner.Name, f.Name, "unsupported member type "+strconv.Quote(string(m.Type)), nil)
	}
}

// defaultValue computes the member's default expression. A nil code with
// required=false means the Go zero value already is the default. Required
// members have no default and become constructor parameters.
func (g *Generator) defaultValue(owner *StructData, f *Field) (jen.Code, bool, error) {
	m := f.Member
	if m.Default != nil {
		code, err := g.explicitDefault(owner, f, *m.Default)
		return code, false, err
	}
	switch m.Type {
	case load.MemberObject:
		if f.NotNull {
			return nil, true, nil
		}
		return nil, false, nil
	case load.MemberStruct:
		if m.TypeID == owner.Name {
			return nil, false, nil
		}
		return jen.Id("Default" + m.TypeID).Call(), false, nil
	case load.MemberEnum:
		e := g.state.Enum(m.TypeID)
		return jen.Id(e.ConstName(e.Items[0].Name)), false, nil
	default:
		return nil, false, nil
	}
}

// explicitDefault parses a declared default literal per the member type.
func (g *Generator) explicitDefault(owner *StructData, f *Field, raw string) (jen.Code, error) {
	m := f.Member
	switch m.Type {
	case load.MemberInt:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, NewSchemaError(owner.Name, f.Name, "bad integer default "+strconv.Quote(raw), err)
		}
		return jen.Lit(int(n)), nil
	case load.MemberFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, NewSchemaError(owner.Name, f.Name, "bad float default "+strconv.Quote(raw), err)
		}
		return jen.Lit(v), nil
	case load.MemberBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, NewSchemaError(owner.Name, f.Name, "bad bool default "+strconv.Quote(raw), err)
		}
		return jen.Lit(b), nil
	case load.MemberString, load.MemberImage, load.MemberAudioClip, load.MemberPrefab:
		return jen.Lit(raw), nil
	case load.MemberExpression:
		return jen.Id("Expression").Call(jen.Lit(raw)), nil
	case load.MemberEnum:
		e := g.state.Enum(m.TypeID)
		if e == nil || !e.Has(raw) {
			return nil, NewSchemaError(owner.Name, f.Name, "default names unknown enum variant "+strconv.Quote(raw), nil)
		}
		return jen.Id(e.ConstName(raw)), nil
	default:
		return nil, NewSchemaError(owner.Name, f.Name,
			"default value not supported for member type "+strconv.Quote(string(m.Type)), nil)
	}
}

// notDefault builds the "field differs from its default" expression used by
// obsolete-member flagging.
func (g *Generator) notDefault(owner *StructData, f *Field, def jen.Code) jen.Code {
	m := f.Member
	field := jen.Id("v").Dot(f.Name)
	switch m.Type {
	case load.MemberStructList, load.MemberObjectList, load.MemberEnumFlags, load.MemberLayout:
		return jen.Len(field).Op("!=").Lit(0)
	case load.MemberStruct:
		if m.TypeID == owner.Name {
			return field.Clone().Op("!=").Nil()
		}
		// Nested structs may hold slices, so identity comparison is out.
		return jen.Op("!").Qual("reflect", "DeepEqual").Call(field, jen.Id("Default"+m.TypeID).Call())
	case load.MemberObject:
		if !f.NotNull {
			return field.Clone().Op("!=").Nil()
		}
		return field.Clone().Op("!=").Lit(0)
	default:
		if def == nil {
			return field.Clone().Op("!=").Add(g.zeroLiteral(m.Type))
		}
		return field.Clone().Op("!=").Add(def)
	}
}

func (g *Generator) zeroLiteral(t load.MemberType) jen.Code {
	switch t {
	case load.MemberVector:
		return jen.Id("Vector").Values()
	case load.MemberColor:
		return jen.Id("Color").Values()
	case load.MemberBool:
		return jen.False()
	case load.MemberString, load.MemberImage, load.MemberAudioClip, load.MemberPrefab, load.MemberExpression:
		return jen.Lit("")
	default:
		return jen.Lit(0)
	}
}

// validation emits the Validate statements for one member: bounds checks,
// obsolete flagging, square-layout check and recursion into nested structs.
func (g *Generator) validation(owner *StructData, f *Field, def jen.Code) []jen.Code {
	m := f.Member
	field := func() *jen.Statement { return jen.Id("v").Dot(f.Name) }
	refField := func() *jen.Statement {
		return jen.Id("ref").Dot("Field").Call(jen.Lit(f.Name))
	}
	var out []jen.Code

	numeric := m.Type == load.MemberInt || m.Type == load.MemberFloat
	asFloat := func() jen.Code {
		if m.Type == load.MemberInt {
			return jen.Float64().Call(field())
		}
		return field()
	}
	if numeric && m.MinValue != nil {
		min := *m.MinValue
		out = append(out, jen.If(jen.Add(asFloat()).Op("<").Lit(min)).Block(
			refField().Dot("Emit").Call(
				jen.Qual(diagnosticPkg, "TooSmall").Call(jen.Lit(min), asFloat())),
		))
	}
	if numeric && m.MaxValue != nil {
		max := *m.MaxValue
		out = append(out, jen.If(jen.Add(asFloat()).Op(">").Lit(max)).Block(
			refField().Dot("Emit").Call(
				jen.Qual(diagnosticPkg, "TooLarge").Call(jen.Lit(max), asFloat())),
		))
	}

	if f.Obsolete {
		out = append(out, jen.If(g.notDefault(owner, f, def)).Block(
			refField().Dot("Emit").Call(jen.Qual(diagnosticPkg, "ObsoleteField").Call()),
		))
	}

	switch m.Type {
	case load.MemberLayout:
		out = append(out, jen.Block(
			jen.Id("n").Op(":=").Len(field()),
			jen.Id("r").Op(":=").Int().Call(jen.Qual("math", "Sqrt").Call(jen.Float64().Call(jen.Id("n")))),
			jen.If(jen.Id("r").Op("*").Id("r").Op("!=").Id("n")).Block(
				refField().Dot("Emit").Call(jen.Qual(diagnosticPkg, "LayoutNotSquare").Call(jen.Id("n"))),
			),
		))
	case load.MemberStruct:
		if m.TypeID == owner.Name {
			out = append(out, jen.If(field().Op("!=").Nil()).Block(
				field().Dot("Validate").Call(refField()),
			))
		} else {
			out = append(out, field().Dot("Validate").Call(refField()))
		}
	case load.MemberStructList:
		out = append(out, jen.For(jen.Id("i").Op(":=").Range().Add(field())).Block(
			field().Index(jen.Id("i")).Dot("Validate").Call(refField().Dot("Index").Call(jen.Id("i"))),
		))
	}
	return out
}

// jsonTag returns the member's struct tag for owner. Optional references,
// lists and self-referencing pointers are dropped from output when empty,
// which keeps serialized records minimal and round-trip stable.
func jsonTag(owner *StructData, f *Field) map[string]string {
	m := f.Member
	switch m.Type {
	case load.MemberStructList, load.MemberObjectList, load.MemberEnumFlags, load.MemberLayout:
		return map[string]string{"json": f.Name + ",omitempty"}
	case load.MemberObject:
		if !f.NotNull {
			return map[string]string{"json": f.Name + ",omitempty"}
		}
	case load.MemberStruct:
		if m.TypeID == owner.Name {
			return map[string]string{"json": f.Name + ",omitempty"}
		}
	}
	return map[string]string{"json": f.Name}
}

package gen

import (
	"strconv"

	"github.com/dave/jennifer/jen"

	"github.com/modforge-dev/modforge/compiler/load"
)

// SwitchData is an analyzed tagged union: the discriminating enum plus one
// generated struct per enum variant, each holding the shared members and the
// members whose case list names that variant.
type SwitchData struct {
	Name     string
	TagField string
	Enum     *EnumData
	Variants []*SwitchVariant
	Shared   []load.Member
}

// SwitchVariant pairs one enum variant with its generated struct shape.
type SwitchVariant struct {
	Name   string
	Struct *StructData
}

// StructName returns the emitted variant struct identifier.
func (v *SwitchVariant) StructName() string { return v.Struct.Name }

// variantMethod returns the unexported per-union marker method name, so two
// unions in one package never share an interface.
func (sw *SwitchData) variantMethod() string {
	return string(sw.Name[0]|0x20) + sw.Name[1:] + "Kind"
}

func (sw *SwitchData) interfaceName() string {
	return string(sw.Name[0]|0x20) + sw.Name[1:] + "Variant"
}

// analyzeSwitch partitions a switch entry's members into shared and
// per-variant sets and runs every variant through the struct analysis.
func (g *Generator) analyzeSwitch(data *load.Data) (*SwitchData, error) {
	var tag *load.Member
	for i := range data.Members {
		if data.Members[i].Name == data.Switch {
			tag = &data.Members[i]
			break
		}
	}
	if tag == nil {
		return nil, NewSchemaError(data.Name, data.Switch, "switch field is not a member", nil)
	}
	if tag.Type != load.MemberEnum {
		return nil, NewSchemaError(data.Name, tag.Name, "switch field must be enum-typed", nil)
	}
	enum := g.state.Enum(tag.TypeID)
	if enum == nil {
		return nil, NewSchemaError(data.Name, tag.Name, "switch enum "+strconv.Quote(tag.TypeID)+" is unknown", nil)
	}

	sw := &SwitchData{Name: data.Name, TagField: tag.Name, Enum: enum}

	for _, m := range data.Members {
		if m.Name == tag.Name {
			continue
		}
		if cases := m.CaseList(); len(cases) > 0 {
			for _, c := range cases {
				if !enum.Has(c) {
					return nil, NewSchemaError(data.Name, m.Name,
						"case "+strconv.Quote(c)+" is not a variant of "+enum.Name, nil)
				}
			}
		} else {
			sw.Shared = append(sw.Shared, m)
		}
	}

	for _, item := range enum.Items {
		var members []load.Member
		for _, m := range data.Members {
			if m.Name == tag.Name {
				continue
			}
			cases := m.CaseList()
			if len(cases) == 0 {
				members = append(members, m)
				continue
			}
			for _, c := range cases {
				if c == item.Name {
					members = append(members, m)
					break
				}
			}
		}
		sd, err := analyzeStruct(&load.Data{
			Type:    load.TypeStruct,
			Name:    data.Name + item.Name,
			Members: members,
		})
		if err != nil {
			return nil, err
		}
		sw.Variants = append(sw.Variants, &SwitchVariant{Name: item.Name, Struct: sd})
	}
	return sw, nil
}

// emitSwitch writes the closed sum type: per-variant structs, conversion
// constructors, shared accessors dispatching over the variants, and the
// tag-aware JSON codec that flattens variant members beside the tag.
func (g *Generator) emitSwitch(f *jen.File, sw *SwitchData) error {
	iface := sw.interfaceName()
	marker := sw.variantMethod()
	zero := sw.Variants[0]

	f.Commentf("%s is a closed union discriminated by %s.", sw.Name, sw.Enum.Name)
	f.Type().Id(sw.Name).Struct(jen.Id("v").Id(iface))

	f.Type().Id(iface).Interface(
		jen.Id(marker).Params().Id(sw.Enum.Name),
		jen.Id("Validate").Params(jen.Id("ref").Op("*").Qual(diagnosticPkg, "Ref")),
	)

	for _, v := range sw.Variants {
		if err := g.emitStruct(f, v.Struct); err != nil {
			return err
		}
		f.Func().Params(jen.Id("v").Id(v.StructName())).Id(marker).Params().Id(sw.Enum.Name).Block(
			jen.Return(jen.Id(sw.Enum.ConstName(v.Name))),
		)
		f.Commentf("As%s wraps the variant into the union.", sw.Name)
		f.Func().Params(jen.Id("v").Id(v.StructName())).Id("As"+sw.Name).Params().Id(sw.Name).Block(
			jen.Return(jen.Id(sw.Name).Values(jen.Dict{jen.Id("v"): jen.Id("v")})),
		)
	}

	f.Commentf("Default%s returns the union holding the default %s variant.", sw.Name, zero.Name)
	f.Func().Id("Default"+sw.Name).Params().Id(sw.Name).Block(
		jen.Return(jen.Id("Default" + zero.StructName()).Call().Dot("As" + sw.Name).Call()),
	)

	// A zero union value behaves as the default variant everywhere.
	f.Func().Params(jen.Id("e").Id(sw.Name)).Id("variant").Params().Id(iface).Block(
		jen.If(jen.Id("e").Dot("v").Op("==").Nil()).Block(
			jen.Return(jen.Id("Default"+zero.StructName()).Call()),
		),
		jen.Return(jen.Id("e").Dot("v")),
	)

	f.Commentf("%s returns the union's discriminant.", sw.TagField)
	f.Func().Params(jen.Id("e").Id(sw.Name)).Id(sw.TagField).Params().Id(sw.Enum.Name).Block(
		jen.Return(jen.Id("e").Dot("variant").Call().Dot(marker).Call()),
	)

	for _, v := range sw.Variants {
		f.Commentf("%s narrows the union to its %s variant.", v.Name, v.Name)
		f.Func().Params(jen.Id("e").Id(sw.Name)).Id(v.Name).Params().
			Params(jen.Id(v.StructName()), jen.Bool()).Block(
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").
				Id("e").Dot("variant").Call().Op(".").Parens(jen.Id(v.StructName())),
			jen.Return(jen.Id("v"), jen.Id("ok")),
		)
	}

	for _, m := range sw.Shared {
		fld := &Field{Name: m.Name, Member: m, NotNull: m.HasOption("notnull")}
		typ, err := g.goType(&StructData{Name: sw.Name}, fld)
		if err != nil {
			return err
		}
		f.Commentf("%s reads the shared %s member of whichever variant is held.", m.Name, m.Name)
		f.Func().Params(jen.Id("e").Id(sw.Name)).Id(m.Name).Params().Add(typ).Block(
			jen.Switch(jen.Id("v").Op(":=").Id("e").Dot("variant").Call().Op(".").Parens(jen.Type())).
				BlockFunc(func(s *jen.Group) {
					for _, v := range sw.Variants {
						s.Case(jen.Id(v.StructName())).Block(jen.Return(jen.Id("v").Dot(m.Name)))
					}
					s.Default().Block(jen.Panic(jen.Lit("unreachable")))
				}),
		)
	}

	g.emitSwitchCodec(f, sw)

	f.Comment("Validate reports diagnostics for the held variant.")
	f.Func().Params(jen.Id("e").Id(sw.Name)).Id("Validate").
		Params(jen.Id("ref").Op("*").Qual(diagnosticPkg, "Ref")).Block(
		jen.Switch(jen.Id("v").Op(":=").Id("e").Dot("variant").Call().Op(".").Parens(jen.Type())).
			BlockFunc(func(s *jen.Group) {
				for _, v := range sw.Variants {
					s.Case(jen.Id(v.StructName())).Block(
						jen.Id("v").Dot("Validate").Call(
							jen.Id("ref").Dot("Variant").Call(jen.Lit(v.Name))),
					)
				}
			}),
	)
	return nil
}

// emitSwitchCodec writes the tag-aware JSON codec: the discriminant is
// stored under the tag member name beside the flattened variant members. A
// missing tag decodes as the default variant; an unknown tag fails.
func (g *Generator) emitSwitchCodec(f *jen.File, sw *SwitchData) {
	zero := sw.Variants[0]

	f.Comment("MarshalJSON flattens the variant's members beside the discriminant tag.")
	f.Func().Params(jen.Id("e").Id(sw.Name)).Id("MarshalJSON").Params().
		Params(jen.Index().Byte(), jen.Error()).Block(
		jen.List(jen.Id("raw"), jen.Id("err")).Op(":=").
			Qual("encoding/json", "Marshal").Call(jen.Id("e").Dot("variant").Call()),
		jen.If(jen.Id("err").Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Id("err"))),
		jen.Var().Id("m").Map(jen.String()).Qual("encoding/json", "RawMessage"),
		jen.If(
			jen.Id("err").Op(":=").Qual("encoding/json", "Unmarshal").Call(jen.Id("raw"), jen.Op("&").Id("m")),
			jen.Id("err").Op("!=").Nil(),
		).Block(jen.Return(jen.Nil(), jen.Id("err"))),
		jen.If(jen.Id("m").Op("==").Nil()).Block(
			jen.Id("m").Op("=").Make(jen.Map(jen.String()).Qual("encoding/json", "RawMessage")),
		),
		jen.List(jen.Id("tag"), jen.Id("err")).Op(":=").
			Qual("encoding/json", "Marshal").Call(jen.Id("e").Dot(sw.TagField).Call()),
		jen.If(jen.Id("err").Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Id("err"))),
		jen.Id("m").Index(jen.Lit(sw.TagField)).Op("=").Id("tag"),
		jen.Return(jen.Qual("encoding/json", "Marshal").Call(jen.Id("m"))),
	)

	f.Comment("UnmarshalJSON inspects the discriminant tag, defaulting to the zero")
	f.Comment("variant when absent, and decodes the remaining members against the")
	f.Comment("selected variant's shape.")
	f.Func().Params(jen.Id("e").Op("*").Id(sw.Name)).Id("UnmarshalJSON").
		Params(jen.Id("data").Index().Byte()).Error().Block(
		jen.Var().Id("m").Map(jen.String()).Qual("encoding/json", "RawMessage"),
		jen.If(
			jen.Id("err").Op(":=").Qual("encoding/json", "Unmarshal").Call(jen.Id("data"), jen.Op("&").Id("m")),
			jen.Id("err").Op("!=").Nil(),
		).Block(jen.Return(jen.Id("err"))),
		jen.Id("kind").Op(":=").Id(sw.Enum.ConstName(zero.Name)),
		jen.If(
			jen.List(jen.Id("raw"), jen.Id("ok")).Op(":=").Id("m").Index(jen.Lit(sw.TagField)),
			jen.Id("ok"),
		).Block(
			jen.If(
				jen.Id("err").Op(":=").Qual("encoding/json", "Unmarshal").Call(jen.Id("raw"), jen.Op("&").Id("kind")),
				jen.Id("err").Op("!=").Nil(),
			).Block(jen.Return(jen.Id("err"))),
			jen.Delete(jen.Id("m"), jen.Lit(sw.TagField)),
		),
		jen.List(jen.Id("body"), jen.Id("err")).Op(":=").
			Qual("encoding/json", "Marshal").Call(jen.Id("m")),
		jen.If(jen.Id("err").Op("!=").Nil()).Block(jen.Return(jen.Id("err"))),
		jen.Switch(jen.Id("kind")).BlockFunc(func(s *jen.Group) {
			for _, v := range sw.Variants {
				s.Case(jen.Id(sw.Enum.ConstName(v.Name))).Block(
					jen.Var().Id("v").Id(v.StructName()),
					jen.If(
						jen.Id("err").Op(":=").Qual("encoding/json", "Unmarshal").Call(jen.Id("body"), jen.Op("&").Id("v")),
						jen.Id("err").Op("!=").Nil(),
					).Block(jen.Return(jen.Id("err"))),
					jen.Id("e").Dot("v").Op("=").Id("v"),
				)
			}
			s.Default().Block(jen.Return(jen.Qual("fmt", "Errorf").Call(
				jen.Lit("unknown "+sw.Name+" "+sw.TagField+" %v"), jen.Id("kind"))))
		}),
		jen.Return(jen.Nil()),
	)
}

package gen

import (
	"github.com/dave/jennifer/jen"

	"github.com/modforge-dev/modforge/compiler/load"
)

const containerPkg = "github.com/modforge-dev/modforge/container"

// goKeywords guards generated parameter names against the reserved words.
var goKeywords = map[string]struct{}{
	"break": {}, "case": {}, "chan": {}, "const": {}, "continue": {},
	"default": {}, "defer": {}, "else": {}, "fallthrough": {}, "for": {},
	"func": {}, "go": {}, "goto": {}, "if": {}, "import": {}, "interface": {},
	"map": {}, "package": {}, "range": {}, "return": {}, "select": {},
	"struct": {}, "switch": {}, "type": {}, "var": {},
}

func paramName(field string) string {
	name := string(field[0]|0x20) + field[1:]
	if _, bad := goKeywords[name]; bad {
		name += "Arg"
	}
	return name
}

// emitStruct writes the full surface for one struct, settings or object
// entry: the type, its default constructor, the builder methods, the
// Validate routine and, for database-resident kinds, the record contract.
func (g *Generator) emitStruct(f *jen.File, sd *StructData) error {
	type fieldPlan struct {
		field    *Field
		typ      jen.Code
		def      jen.Code
		required bool
	}
	plans := make([]fieldPlan, 0, len(sd.Fields))
	for _, fld := range sd.Fields {
		typ, err := g.goType(sd, fld)
		if err != nil {
			return err
		}
		def, required, err := g.defaultValue(sd, fld)
		if err != nil {
			return err
		}
		plans = append(plans, fieldPlan{field: fld, typ: typ, def: def, required: required})
	}

	if sd.Object {
		f.Commentf("%sID identifies a %s record in the content database.", sd.Name, sd.Name)
		f.Type().Id(sd.Name + "ID").Op("=").Qual(databasePkg, "ID").Index(jen.Id(sd.Name))
	}

	switch {
	case sd.Object:
		f.Commentf("%s is a generated content record.", sd.Name)
	case sd.Settings:
		f.Commentf("%s is the generated singleton settings record.", sd.Name)
	default:
		f.Commentf("%s is a generated value type.", sd.Name)
	}
	f.Type().Id(sd.Name).StructFunc(func(s *jen.Group) {
		for _, p := range plans {
			line := s.Id(p.field.Name).Add(p.typ).Tag(jsonTag(sd, p.field))
			if doc := p.field.Member.Doc(); doc != "" {
				line.Comment(doc)
			}
		}
	})

	f.Commentf("Default%s returns a %s with every defaulted member filled in.", sd.Name, sd.Name)
	f.Func().Id("Default"+sd.Name).Params().Id(sd.Name).Block(
		jen.Return(jen.Id(sd.Name).Values(jen.DictFunc(func(d jen.Dict) {
			for _, p := range plans {
				if p.def != nil {
					d[jen.Id(p.field.Name)] = p.def
				}
			}
		}))),
	)

	g.emitConstructor(f, sd, func(yield func(name string, fld *Field, typ jen.Code)) {
		for _, p := range plans {
			if p.required && !(sd.Object && p.field.Name == "Id") {
				yield(paramName(p.field.Name), p.field, p.typ)
			}
		}
	})

	for _, p := range plans {
		if sd.Object && p.field.Name == "Id" {
			continue
		}
		arg := paramName(p.field.Name)
		f.Commentf("With%s returns a copy with %s replaced.", p.field.Name, p.field.Name)
		f.Func().Params(jen.Id("v").Id(sd.Name)).Id("With"+p.field.Name).
			Params(jen.Id(arg).Add(p.typ)).Id(sd.Name).Block(
			jen.Id("v").Dot(p.field.Name).Op("=").Id(arg),
			jen.Return(jen.Id("v")),
		)
		f.Commentf("Set%s replaces %s in place.", p.field.Name, p.field.Name)
		f.Func().Params(jen.Id("v").Op("*").Id(sd.Name)).Id("Set"+p.field.Name).
			Params(jen.Id(arg).Add(p.typ)).Block(
			jen.Id("v").Dot(p.field.Name).Op("=").Id(arg),
		)
	}

	if sd.Object {
		f.Commentf("ID returns the record's %s database id.", sd.Name)
		f.Func().Params(jen.Id("v").Id(sd.Name)).Id("ID").Params().Id(sd.Name + "ID").Block(
			jen.Return(jen.Id("v").Dot("Id")),
		)
	}
	if sd.Object || sd.Settings {
		g.emitItemContract(f, sd)
	}

	f.Comment("Validate reports content diagnostics for the record's members.")
	f.Func().Params(jen.Id("v").Id(sd.Name)).Id("Validate").
		Params(jen.Id("ref").Op("*").Qual(diagnosticPkg, "Ref")).BlockFunc(func(b *jen.Group) {
		empty := true
		for _, p := range plans {
			for _, stmt := range g.validation(sd, p.field, p.def) {
				b.Add(stmt)
				empty = false
			}
		}
		if empty {
			b.Id("_").Op("=").Id("ref")
		}
	})

	if sd.Settings && hasContainerMembers(sd) {
		f.Comment("ContainerInfo exposes the mod identity used for container packaging.")
		f.Func().Params(jen.Id("v").Id(sd.Name)).Id("ContainerInfo").Params().
			Qual(containerPkg, "Info").Block(
			jen.Return(jen.Qual(containerPkg, "Info").Values(jen.Dict{
				jen.Id("Name"):         jen.Id("v").Dot("Name"),
				jen.Id("GUID"):         jen.Id("v").Dot("Guid"),
				jen.Id("VersionMajor"): jen.Id("v").Dot("VersionMajor"),
				jen.Id("VersionMinor"): jen.Id("v").Dot("VersionMinor"),
			})),
		)
	}
	return nil
}

// emitConstructor writes New<Name>. Objects allocate their id from the
// database by string key and return a pending handle; settings return a
// pending handle for the singleton slot; plain value types construct
// directly.
func (g *Generator) emitConstructor(f *jen.File, sd *StructData, required func(func(string, *Field, jen.Code))) {
	var params []jen.Code
	var assigns []jen.Code
	required(func(name string, fld *Field, typ jen.Code) {
		params = append(params, jen.Id(name).Add(typ))
		assigns = append(assigns, jen.Id("v").Dot(fld.Name).Op("=").Id(name))
	})

	switch {
	case sd.Object:
		f.Commentf("New%s allocates an id for key and registers a pending %s record.", sd.Name, sd.Name)
		f.Commentf("The returned handle must be resolved with Commit or Forget.")
		f.Func().Id("New"+sd.Name).
			Params(append([]jen.Code{
				jen.Id("db").Op("*").Qual(databasePkg, "DB"),
				jen.Id("key").String(),
			}, params...)...).
			Op("*").Qual(databasePkg, "Handle").Index(jen.Id(sd.Name)).
			BlockFunc(func(b *jen.Group) {
				b.Id("v").Op(":=").Id("Default" + sd.Name).Call()
				b.Id("v").Dot("Id").Op("=").Qual(databasePkg, "NewID").Index(jen.Id(sd.Name)).
					Call(jen.Id("db"), jen.Id("key"))
				for _, a := range assigns {
					b.Add(a)
				}
				b.Return(jen.Qual(databasePkg, "Add").Call(jen.Id("db"), jen.Id("v")))
			})
	case sd.Settings:
		f.Commentf("New%s registers the pending %s singleton.", sd.Name, sd.Name)
		f.Func().Id("New"+sd.Name).
			Params(append([]jen.Code{jen.Id("db").Op("*").Qual(databasePkg, "DB")}, params...)...).
			Op("*").Qual(databasePkg, "Handle").Index(jen.Id(sd.Name)).
			BlockFunc(func(b *jen.Group) {
				b.Id("v").Op(":=").Id("Default" + sd.Name).Call()
				for _, a := range assigns {
					b.Add(a)
				}
				b.Return(jen.Qual(databasePkg, "Add").Call(jen.Id("db"), jen.Id("v")))
			})
	default:
		f.Commentf("New%s builds a %s from its required members and defaults.", sd.Name, sd.Name)
		f.Func().Id("New"+sd.Name).Params(params...).Id(sd.Name).
			BlockFunc(func(b *jen.Group) {
				b.Id("v").Op(":=").Id("Default" + sd.Name).Call()
				for _, a := range assigns {
					b.Add(a)
				}
				b.Return(jen.Id("v"))
			})
	}
}

// emitItemContract writes the database record contract methods.
func (g *Generator) emitItemContract(f *jen.File, sd *StructData) {
	f.Comment("ItemKind names the record's database kind.")
	f.Func().Params(jen.Id("v").Id(sd.Name)).Id("ItemKind").Params().String().Block(
		jen.Return(jen.Lit(sd.Name)),
	)
	f.Comment("ItemID returns the record's numeric id; settings have none.")
	if sd.Object {
		f.Func().Params(jen.Id("v").Id(sd.Name)).Id("ItemID").Params().
			Params(jen.Int32(), jen.Bool()).Block(
			jen.Return(jen.Int32().Call(jen.Id("v").Dot("Id")), jen.True()),
		)
	} else {
		f.Func().Params(jen.Id("v").Id(sd.Name)).Id("ItemID").Params().
			Params(jen.Int32(), jen.Bool()).Block(
			jen.Return(jen.Lit(0), jen.False()),
		)
	}
}

func hasContainerMembers(sd *StructData) bool {
	want := map[string]load.MemberType{
		"Name":         load.MemberString,
		"Guid":         load.MemberString,
		"VersionMajor": load.MemberInt,
		"VersionMinor": load.MemberInt,
	}
	for _, f := range sd.Fields {
		if t, ok := want[f.Name]; ok && f.Member.Type == t {
			delete(want, f.Name)
		}
	}
	return len(want) == 0
}

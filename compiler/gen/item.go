package gen

import (
	"log/slog"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
)

// itemTypeEnum names the schema enum that enumerates every database kind.
// Its Undefined placeholder variant is skipped.
const (
	itemTypeEnum      = "ItemType"
	undefinedItemKind = "Undefined"
)

// emitItemRegistry is the second generation pass: after every schema entry
// has been processed, the ItemType enum is walked to produce the kind
// registrations and the per-kind database access surface. Variants with no
// matching object typeid are skipped with a warning, mirroring schema
// entries that exist in the enum but are not content-bearing yet.
func (g *Generator) emitItemRegistry(f *jen.File) bool {
	itemType := g.state.Enum(itemTypeEnum)
	if itemType == nil {
		slog.Debug("no ItemType enum in schema, skipping kind registry")
		return false
	}

	var kinds []*StructData
	for _, variant := range itemType.Items {
		if variant.Name == undefinedItemKind {
			continue
		}
		sd := g.state.Object(variant.Name)
		if sd == nil {
			slog.Warn("item kind has no object with matching typeid", "kind", variant.Name)
			continue
		}
		kinds = append(kinds, sd)
	}
	if len(kinds) == 0 {
		return false
	}

	f.Comment("init registers every generated kind with the database registry.")
	f.Func().Id("init").Params().BlockFunc(func(b *jen.Group) {
		for _, sd := range kinds {
			b.Qual(databasePkg, "RegisterKind").Call(jen.Qual(databasePkg, "Kind").Values(jen.Dict{
				jen.Id("Name"):     jen.Lit(sd.Name),
				jen.Id("Settings"): jen.Lit(sd.Settings),
				jen.Id("New"): jen.Func().Params().Qual(databasePkg, "Item").Block(
					jen.Return(jen.Id("Default" + sd.Name).Call())),
			}))
		}
	})

	for _, sd := range kinds {
		if sd.Settings {
			g.emitSingletonAccess(f, sd)
		} else {
			g.emitKindAccess(f, sd)
		}
	}
	return true
}

// emitKindAccess writes the per-kind lookup, iteration and key enumeration
// helpers for an identified object kind.
func (g *Generator) emitKindAccess(f *jen.File, sd *StructData) {
	plural := inflect.Pluralize(sd.Name)

	f.Commentf("Get%s returns a live view of the %s stored under id.", sd.Name, sd.Name)
	f.Func().Id("Get"+sd.Name).
		Params(jen.Id("db").Op("*").Qual(databasePkg, "DB"), jen.Id("id").Id(sd.Name+"ID")).
		Params(jen.Op("*").Qual(databasePkg, "Stored").Index(jen.Id(sd.Name)), jen.Bool()).Block(
		jen.Return(jen.Qual(databasePkg, "Get").Call(jen.Id("db"), jen.Id("id"))),
	)

	f.Commentf("Get%sByKey resolves key through the id mapping first.", sd.Name)
	f.Func().Id("Get"+sd.Name+"ByKey").
		Params(jen.Id("db").Op("*").Qual(databasePkg, "DB"), jen.Id("key").String()).
		Params(jen.Op("*").Qual(databasePkg, "Stored").Index(jen.Id(sd.Name)), jen.Bool()).Block(
		jen.Return(jen.Qual(databasePkg, "GetByKey").Index(jen.Id(sd.Name)).
			Call(jen.Id("db"), jen.Id("key"))),
	)

	f.Commentf("Iter%s visits every stored %s record.", plural, sd.Name)
	f.Func().Id("Iter"+plural).
		Params(jen.Id("db").Op("*").Qual(databasePkg, "DB"), jen.Id("fn").Func().Params(jen.Id(sd.Name))).Block(
		jen.Qual(databasePkg, "Iter").Call(jen.Id("db"), jen.Id("fn")),
	)

	f.Commentf("Iter%sMut runs a bulk mutation pass over every stored %s record.", plural, sd.Name)
	f.Func().Id("Iter"+plural+"Mut").
		Params(jen.Id("db").Op("*").Qual(databasePkg, "DB"), jen.Id("fn").Func().Params(jen.Op("*").Id(sd.Name))).Block(
		jen.Qual(databasePkg, "IterMut").Call(jen.Id("db"), jen.Id("fn")),
	)

	f.Commentf("%sKeys lists every registered %s string key.", sd.Name, sd.Name)
	f.Func().Id(sd.Name+"Keys").
		Params(jen.Id("db").Op("*").Qual(databasePkg, "DB")).Index().String().Block(
		jen.Return(jen.Id("db").Dot("UsedIDs").Call(jen.Lit(sd.Name))),
	)

	f.Commentf("%sKeysFiltered lists the %s keys matching the pattern.", sd.Name, sd.Name)
	f.Func().Id(sd.Name+"KeysFiltered").
		Params(jen.Id("db").Op("*").Qual(databasePkg, "DB"), jen.Id("pattern").String()).
		Params(jen.Index().String(), jen.Error()).Block(
		jen.Return(jen.Id("db").Dot("UsedIDsFiltered").Call(jen.Lit(sd.Name), jen.Id("pattern"))),
	)
}

// emitSingletonAccess writes the settings lookup helper.
func (g *Generator) emitSingletonAccess(f *jen.File, sd *StructData) {
	f.Commentf("Get%s returns a live view of the %s singleton.", sd.Name, sd.Name)
	f.Func().Id("Get"+sd.Name).
		Params(jen.Id("db").Op("*").Qual(databasePkg, "DB")).
		Params(jen.Op("*").Qual(databasePkg, "Stored").Index(jen.Id(sd.Name)), jen.Bool()).Block(
		jen.Return(jen.Qual(databasePkg, "GetSingleton").Index(jen.Id(sd.Name)).Call(jen.Id("db"))),
	)
}

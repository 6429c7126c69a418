package gen

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
)

// emitEnum writes the declarations for one analyzed enum: an int32-backed
// type with one constant per variant and a String method. Character-coded
// enums additionally get a one-character-string JSON codec.
func (g *Generator) emitEnum(f *jen.File, e *EnumData) {
	f.Commentf("%s enumerates the schema-declared %s variants.", e.Name, e.Name)
	f.Type().Id(e.Name).Int32()

	f.Const().DefsFunc(func(d *jen.Group) {
		for _, it := range e.Items {
			c := d.Id(e.ConstName(it.Name)).Id(e.Name).Op("=").Lit(int(it.Value))
			if it.Doc != "" {
				c.Comment(it.Doc)
			}
		}
	})

	f.Comment("String returns the variant name.")
	f.Func().Params(jen.Id("e").Id(e.Name)).Id("String").Params().String().Block(
		jen.Switch(jen.Id("e")).BlockFunc(func(s *jen.Group) {
			for _, it := range e.Items {
				s.Case(jen.Id(e.ConstName(it.Name))).Block(jen.Return(jen.Lit(it.Name)))
			}
		}),
		jen.Return(jen.Qual("fmt", "Sprintf").Call(jen.Lit(e.Name+"(%d)"), jen.Int32().Call(jen.Id("e")))),
	)

	if e.Char {
		g.emitCharCodec(f, e)
	}
}

// emitCharCodec writes the character wire form: each variant serializes as a
// one-character string and unknown characters are rejected with the valid
// variant set named in the error.
func (g *Generator) emitCharCodec(f *jen.File, e *EnumData) {
	valid := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		valid = append(valid, it.Name)
	}
	validList := strings.Join(valid, ", ")

	f.Comment("MarshalJSON encodes the variant as its one-character code.")
	f.Func().Params(jen.Id("e").Id(e.Name)).Id("MarshalJSON").Params().
		Params(jen.Index().Byte(), jen.Error()).Block(
		jen.Switch(jen.Id("e")).BlockFunc(func(s *jen.Group) {
			for _, it := range e.Items {
				s.Case(jen.Id(e.ConstName(it.Name))).Block(
					jen.Return(jen.Qual("encoding/json", "Marshal").Call(jen.Lit(string(it.Char)))),
				)
			}
		}),
		jen.Return(jen.Nil(), jen.Qual("fmt", "Errorf").Call(
			jen.Lit(fmt.Sprintf("unknown %s value %%d", e.Name)), jen.Int32().Call(jen.Id("e")))),
	)

	f.Comment("UnmarshalJSON decodes the one-character code, rejecting characters")
	f.Comment("outside the declared variant set.")
	f.Func().Params(jen.Id("e").Op("*").Id(e.Name)).Id("UnmarshalJSON").
		Params(jen.Id("data").Index().Byte()).Error().Block(
		jen.Var().Id("s").String(),
		jen.If(
			jen.Id("err").Op(":=").Qual("encoding/json", "Unmarshal").Call(jen.Id("data"), jen.Op("&").Id("s")),
			jen.Id("err").Op("!=").Nil(),
		).Block(jen.Return(jen.Id("err"))),
		jen.Switch(jen.Id("s")).BlockFunc(func(s *jen.Group) {
			for _, it := range e.Items {
				s.Case(jen.Lit(string(it.Char))).Block(
					jen.Op("*").Id("e").Op("=").Id(e.ConstName(it.Name)),
				)
			}
			s.Default().Block(jen.Return(jen.Qual("fmt", "Errorf").Call(
				jen.Lit(fmt.Sprintf("unknown %s code %%q (valid: %s)", e.Name, validList)), jen.Id("s"))))
		}),
		jen.Return(jen.Nil()),
	)
}

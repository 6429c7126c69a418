package gen

import (
	"context"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/modforge-dev/modforge/compiler/load"
)

// Generator runs one schema-to-code pass: a sequential semantic pass over
// the loaded entries (order matters, enums must land before their users),
// then a parallel render-and-write of the resulting files.
type Generator struct {
	state   *State
	outDir  string
	pkg     string
	workers int
	version *load.Version

	files []genFile
	names map[string]string // emitted file name -> schema path
}

type genFile struct {
	name string
	file *jen.File
}

// New creates a generator targeting the output directory. The package name
// defaults to the directory base and can be overridden with WithPackage.
func New(outDir string) *Generator {
	return &Generator{
		state:   NewState(),
		outDir:  outDir,
		pkg:     inflect.Underscore(filepath.Base(outDir)),
		workers: runtime.GOMAXPROCS(0),
		names:   make(map[string]string),
	}
}

// WithPackage sets the generated package name.
func (g *Generator) WithPackage(pkg string) *Generator {
	if pkg != "" {
		g.pkg = pkg
	}
	return g
}

// WithWorkers sets the number of parallel render workers.
func (g *Generator) WithWorkers(n int) *Generator {
	if n > 0 {
		g.workers = n
	}
	return g
}

// State exposes the accumulated cross-references, mainly for tests.
func (g *Generator) State() *State { return g.state }

// Run generates code for every loaded schema entry and writes the output
// tree. Any structural inconsistency aborts the run with a path-annotated
// error before anything is written.
func (g *Generator) Run(ctx context.Context, files []load.File) error {
	for _, f := range files {
		if err := g.process(f); err != nil {
			return err
		}
	}

	registry := g.newFile()
	if g.emitItemRegistry(registry) {
		if err := g.addFile("item.go", "", registry); err != nil {
			return err
		}
	}
	if err := g.addFile("helpers.go", "", g.helpersFile()); err != nil {
		return err
	}

	return g.writeAll(ctx)
}

// process handles one schema document in load order.
func (g *Generator) process(f load.File) error {
	if f.Item.Version != nil {
		g.version = f.Item.Version
		return nil
	}
	data := f.Item.Data

	switch data.Type {
	case load.TypeEnum:
		e, err := analyzeEnum(data)
		if err != nil {
			return pathError(f.Path, err)
		}
		if prev := g.state.Enum(e.Name); prev != nil {
			return pathError(f.Path, NewSchemaError(e.Name, "", "enum already defined", nil))
		}
		g.state.enums[e.Name] = e
		file := g.newFile()
		g.emitEnum(file, e)
		return g.addFile(g.fileName(e.Name), f.Path, file)

	case load.TypeExpression:
		// Expression entries declare runtime formula parameters only; they
		// produce no generated code.
		return nil

	case load.TypeStruct:
		if data.IsSwitch() {
			sw, err := g.analyzeSwitch(data)
			if err != nil {
				return pathError(f.Path, err)
			}
			file := g.newFile()
			if err := g.emitSwitch(file, sw); err != nil {
				return pathError(f.Path, err)
			}
			return g.addFile(g.fileName(data.Name), f.Path, file)
		}
		sd, err := analyzeStruct(data)
		if err != nil {
			return pathError(f.Path, err)
		}
		if sd.TypeID != "" {
			g.state.objects[sd.TypeID] = sd
		}
		file := g.newFile()
		if err := g.emitStruct(file, sd); err != nil {
			return pathError(f.Path, err)
		}
		return g.addFile(g.fileName(data.Name), f.Path, file)

	case load.TypeSettings, load.TypeObject:
		if data.IsSwitch() {
			return pathError(f.Path, NewSchemaError(data.Name, "", "switch is only valid on struct entries", nil))
		}
		if data.TypeID == "" {
			return pathError(f.Path, NewSchemaError(data.Name, "", "database kinds require a typeid", nil))
		}
		sd, err := analyzeStruct(data)
		if err != nil {
			return pathError(f.Path, err)
		}
		g.state.objects[sd.TypeID] = sd
		file := g.newFile()
		if err := g.emitStruct(file, sd); err != nil {
			return pathError(f.Path, err)
		}
		return g.addFile(g.fileName(data.Name), f.Path, file)

	default:
		return pathError(f.Path, NewSchemaError(data.Name, "", "unsupported data type "+strconv.Quote(string(data.Type)), nil))
	}
}

func (g *Generator) newFile() *jen.File {
	f := jen.NewFile(g.pkg)
	f.HeaderComment("Code generated by modforge. DO NOT EDIT.")
	return f
}

func (g *Generator) fileName(entry string) string {
	return inflect.Underscore(entry) + ".go"
}

// addFile queues a rendered file, rejecting two schema entries that map to
// the same output file name.
func (g *Generator) addFile(name, schemaPath string, file *jen.File) error {
	if prev, dup := g.names[name]; dup {
		return pathError(schemaPath, NewGenerationError("render", name,
			"output file already produced by "+strconv.Quote(prev), nil))
	}
	g.names[name] = schemaPath
	g.files = append(g.files, genFile{name: name, file: file})
	return nil
}

// helpersFile emits the small fixed support surface shared by all generated
// types, plus the recorded schema version constants.
func (g *Generator) helpersFile() *jen.File {
	f := g.newFile()

	if v := g.version; v != nil {
		f.Comment("Source schema version.")
		f.Const().Defs(
			jen.Id("SchemaName").Op("=").Lit(v.Name),
			jen.Id("SchemaMajor").Op("=").Lit(v.Major),
			jen.Id("SchemaMinor").Op("=").Lit(v.Minor),
		)
	}

	f.Comment("Vector is a 2-component float pair.")
	f.Type().Id("Vector").Struct(
		jen.Id("X").Float64().Tag(map[string]string{"json": "X"}),
		jen.Id("Y").Float64().Tag(map[string]string{"json": "Y"}),
	)

	f.Comment("Color is an RGBA color; the zero value is fully transparent.")
	f.Type().Id("Color").Struct(
		jen.Id("R").Float64().Tag(map[string]string{"json": "R"}),
		jen.Id("G").Float64().Tag(map[string]string{"json": "G"}),
		jen.Id("B").Float64().Tag(map[string]string{"json": "B"}),
		jen.Id("A").Float64().Tag(map[string]string{"json": "A"}),
	)

	f.Comment("Expression is an opaque formula string evaluated by the game runtime.")
	f.Type().Id("Expression").String()

	return f
}

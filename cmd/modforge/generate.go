package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/modforge-dev/modforge/compiler/gen"
	"github.com/modforge-dev/modforge/compiler/load"
	"github.com/modforge-dev/modforge/config"
)

var (
	configPath string
	schemaDir  string
	outputDir  string
	outputPkg  string
	watch      bool
)

func init() {
	generateCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultFile, "project file to read")
	generateCmd.Flags().StringVarP(&schemaDir, "schema", "s", "", "schema directory (overrides the project file)")
	generateCmd.Flags().StringVarP(&outputDir, "output", "o", "", "generated code directory (overrides the project file)")
	generateCmd.Flags().StringVarP(&outputPkg, "package", "p", "", "generated package name (overrides the project file)")
	generateCmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and regenerate on schema changes")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate typed Go code from the XML schema",
	Long: `Generate reads every XML schema file under the schema directory and
writes the typed Go content package.

The schema and output locations come from the project file when present,
from the MODFORGE_SCHEMA and MODFORGE_OUTPUT environment variables, or
from flags, in increasing order of precedence.

Examples:
  modforge generate
  modforge generate -s defs -o gen/content -p content
  modforge generate --watch
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, out, pkg, err := resolveDirs()
		if err != nil {
			return err
		}
		if !watch {
			return runGeneration(cmd.Context(), schema, out, pkg)
		}
		if err := runGeneration(cmd.Context(), schema, out, pkg); err != nil {
			slog.Error("generation failed", "error", err)
		}
		return watchSchema(cmd.Context(), schema, out, pkg)
	},
}

// resolveDirs layers the project file, environment and flags.
func resolveDirs() (schema, out, pkg string, err error) {
	if c, cerr := config.Load(configPath); cerr == nil {
		schema, out, pkg = c.Schema, c.Output.Dir, c.Output.Package
	} else if !errors.Is(cerr, os.ErrNotExist) {
		return "", "", "", cerr
	}
	if v := os.Getenv("MODFORGE_SCHEMA"); v != "" {
		schema = v
	}
	if v := os.Getenv("MODFORGE_OUTPUT"); v != "" {
		out = v
	}
	if schemaDir != "" {
		schema = schemaDir
	}
	if outputDir != "" {
		out = outputDir
	}
	if outputPkg != "" {
		pkg = outputPkg
	}
	if schema == "" {
		schema = "schema"
	}
	if out == "" {
		out = "content"
	}
	return schema, out, pkg, nil
}

func runGeneration(ctx context.Context, schema, out, pkg string) error {
	start := time.Now()
	files, err := load.Dir(schema)
	if err != nil {
		return err
	}
	g := gen.New(out)
	if pkg != "" {
		g = g.WithPackage(pkg)
	}
	if err := g.Run(ctx, files); err != nil {
		return err
	}
	slog.Info("generation finished", "schema", schema, "output", out, "elapsed", time.Since(start))
	return nil
}

// watchSchema blocks, regenerating whenever an XML file under the schema
// tree changes. Events are debounced so editors that write in several
// steps trigger a single run.
func watchSchema(ctx context.Context, schema, out, pkg string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	addTree := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return watcher.Add(path)
			}
			return nil
		})
	}
	if err := addTree(schema); err != nil {
		return err
	}
	slog.Info("watching for schema changes", "dir", schema)

	var (
		debounce = 250 * time.Millisecond
		timer    *time.Timer
		fire     = make(chan struct{}, 1)
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-watcher.Errors:
			slog.Error("watch error", "error", err)
		case <-fire:
			if err := runGeneration(ctx, schema, out, pkg); err != nil {
				slog.Error("generation failed", "error", err)
			}
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addTree(ev.Name)
				}
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".xml") {
				continue
			}
			slog.Debug("schema changed", "file", ev.Name, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		}
	}
}

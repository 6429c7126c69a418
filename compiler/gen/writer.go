package gen

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// writeAll renders every queued file and writes it to the output directory.
// Rendering, formatting and writing are independent per file, so they fan
// out across the worker pool and join at the end.
func (g *Generator) writeAll(ctx context.Context) error {
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return NewGenerationError("write", g.outDir, "create output directory", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for _, f := range g.files {
		f := f
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return g.writeFile(f)
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	slog.Info("code generated", "dir", g.outDir, "files", len(g.files), "package", g.pkg)
	return nil
}

// writeFile renders one file and runs it through goimports, which both
// formats and prunes any imports a particular schema shape did not need.
func (g *Generator) writeFile(f genFile) error {
	var buf bytes.Buffer
	if err := f.file.Render(&buf); err != nil {
		return NewGenerationError("render", f.name, "", err)
	}

	fullPath := filepath.Join(g.outDir, f.name)
	formatted, err := imports.Process(fullPath, buf.Bytes(), nil)
	if err != nil {
		// Keep the unformatted output next to the target for debugging.
		debugPath := fullPath + ".error"
		_ = os.WriteFile(debugPath, buf.Bytes(), 0o644)
		return NewGenerationError("format", f.name, "unformatted output written to "+debugPath, err)
	}

	if err := os.WriteFile(fullPath, formatted, 0o644); err != nil {
		return NewGenerationError("write", f.name, "", err)
	}
	return nil
}

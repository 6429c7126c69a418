package diagnostic

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// builtinPrefixes mark entries derived from vanilla or auto-generated content.
// Warnings on data the operator does not own are noise, so those entries only
// surface hard errors.
var builtinPrefixes = []string{"auto/", "vanilla-"}

func isBuiltin(entry string) bool {
	for _, p := range builtinPrefixes {
		if strings.HasPrefix(entry, p) {
			return true
		}
	}
	return false
}

// Report prints every recorded diagnostic grouped per entry, colored by
// severity. Returns the number of diagnostics shown.
func Report(w io.Writer, ctx *Context) int {
	header := color.New(color.Faint)
	entryName := color.New(color.Bold)
	pathStyle := color.New(color.Bold)
	warn := color.New(color.FgYellow)
	errStyle := color.New(color.FgRed)

	shown := 0
	for _, entry := range ctx.Entries() {
		diagnostics := ctx.Get(entry)
		builtin := isBuiltin(entry)

		var filtered []Diagnostic
		for _, d := range diagnostics {
			if builtin && !d.Kind.IsError() {
				continue
			}
			filtered = append(filtered, d)
		}
		if len(filtered) == 0 {
			continue
		}

		fmt.Fprintf(w, "\n%s %s:\n", header.Sprint("Diagnostics for"), entryName.Sprint(entry))
		for _, d := range filtered {
			style := warn
			if d.Kind.IsError() {
				style = errStyle
			}
			fmt.Fprintf(w, "%s: %s\n", pathStyle.Sprint(d.Path.String()), style.Sprint(d.Kind.String()))
			shown++
		}
	}
	return shown
}

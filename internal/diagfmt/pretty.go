package diagfmt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"prism/internal/diag"
	"prism/internal/source"
)

var (
	errColor    = color.New(color.FgRed, color.Bold)
	warnColor   = color.New(color.FgYellow, color.Bold)
	infoColor   = color.New(color.FgCyan, color.Bold)
	codeColor   = color.New(color.Bold)
	gutterColor = color.New(color.FgBlue)
	caretColor  = color.New(color.FgRed, color.Bold)
)

func sevColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return errColor
	case diag.SevWarning:
		return warnColor
	}
	return infoColor
}

func paint(c *color.Color, on bool, s string) string {
	if !on {
		return s
	}
	return c.Sprint(s)
}

// Pretty renders each diagnostic as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message> [<analyzer>]
//
// optionally followed by the source line with a ^~~~ underline and by the
// notes. The bag is expected to be sorted already.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeOne(w, d, fs, opts)
	}
}

func writeOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	var start, end source.LineCol
	loc := ""
	if fs != nil && int(d.Primary.File) < fs.Len() {
		start, end = fs.Resolve(d.Primary)
		path := displayPath(fs.Get(d.Primary.File).Path, opts.PathMode)
		loc = fmt.Sprintf("%s:%d:%d: ", path, start.Line, start.Col)
	}
	header := fmt.Sprintf("%s%s %s: %s",
		loc,
		paint(sevColor(d.Severity), opts.Color, d.Severity.String()),
		paint(codeColor, opts.Color, d.Code.String()),
		d.Message)
	if d.Analyzer != "" {
		header += " [" + d.Analyzer + "]"
	}
	fmt.Fprintln(w, header)

	if opts.ShowSource && loc != "" {
		writeSourceLine(w, fs.Get(d.Primary.File), start, end, opts.Color)
	}
	if opts.ShowNotes {
		for _, n := range d.Notes {
			nloc := ""
			if fs != nil && int(n.Span.File) < fs.Len() {
				ns, _ := fs.Resolve(n.Span)
				nloc = fmt.Sprintf("%s:%d:%d: ", displayPath(fs.Get(n.Span.File).Path, opts.PathMode), ns.Line, ns.Col)
			}
			fmt.Fprintf(w, "  note: %s%s\n", nloc, n.Msg)
		}
	}
}

// writeSourceLine prints the first line of the span with a caret underline.
// Column arithmetic is byte-based; runewidth converts the prefix and the
// underlined text to display cells so carets line up under wide runes.
func writeSourceLine(w io.Writer, f *source.File, start, end source.LineCol, colored bool) {
	line := f.GetLine(start.Line)
	if line == "" {
		return
	}
	gutter := fmt.Sprintf("%5d | ", start.Line)
	fmt.Fprintf(w, "%s%s\n", paint(gutterColor, colored, gutter), line)

	startCol := int(start.Col) - 1
	if startCol > len(line) {
		startCol = len(line)
	}
	pad := strings.Repeat(" ", runewidth.StringWidth(line[:startCol]))

	marked := line[startCol:]
	if end.Line == start.Line && int(end.Col)-1 >= startCol && int(end.Col)-1 <= len(line) {
		marked = line[startCol : end.Col-1]
	}
	width := runewidth.StringWidth(marked)
	if width < 1 {
		width = 1
	}
	caret := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "%s%s%s\n", paint(gutterColor, colored, "      | "), pad, paint(caretColor, colored, caret))
}

func displayPath(path string, mode PathMode) string {
	switch mode {
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeAuto:
		if wd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
				return rel
			}
		}
	}
	return path
}

package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"chocc/pkg/source"
)

// Printer renders diagnostics with an excerpt of the offending line when the
// source file is known.
type Printer struct {
	w     io.Writer
	files map[string]*source.File

	sevColor map[Severity]*color.Color
	bold     *color.Color
	gutter   *color.Color
}

// NewPrinter returns a Printer writing to w. Colors are only emitted when
// useColor is true.
func NewPrinter(w io.Writer, useColor bool) *Printer {
	p := &Printer{
		w:     w,
		files: make(map[string]*source.File),
		sevColor: map[Severity]*color.Color{
			Error:   color.New(color.FgRed, color.Bold),
			Warning: color.New(color.FgYellow, color.Bold),
			Note:    color.New(color.FgCyan),
		},
		bold:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{p.sevColor[Error], p.sevColor[Warning], p.sevColor[Note], p.bold, p.gutter} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// AddSource registers f so diagnostics in it can show the source line.
func (p *Printer) AddSource(f *source.File) {
	p.files[f.Name] = f
}

// Print writes d followed by a source excerpt if one is available. When the
// logical line was joined from several physical lines, or earlier splices
// shifted its number, the physical position is shown below the caret.
func (p *Printer) Print(d Diagnostic) {
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.bold.Sprintf("%s:%s:", d.File, d.Pos),
		p.sevColor[d.Severity].Sprintf("%s:", d.Severity),
		d.Message)

	f := p.files[d.File]
	if f == nil {
		return
	}
	ln := f.Line(d.Pos.Line)
	if ln == nil {
		return
	}

	width := len(fmt.Sprint(ln.Number))
	text := strings.ReplaceAll(string(ln.Text), "\t", " ")
	fmt.Fprintf(p.w, "%s%s\n", p.gutter.Sprintf("%*d | ", width, ln.Number), text)

	col := d.Pos.Column
	if col < 1 {
		col = 1
	}
	if col > len(text)+1 {
		col = len(text) + 1
	}
	fmt.Fprintf(p.w, "%s%s%s\n",
		p.gutter.Sprintf("%*s | ", width, ""),
		strings.Repeat(" ", col-1),
		p.sevColor[d.Severity].Sprint("^"))

	if pl, pc := ln.PhysicalPos(col); pl != ln.Number || pc != col {
		fmt.Fprintf(p.w, "%sphysical line %d, column %d\n",
			p.gutter.Sprintf("%*s = ", width, ""), pl, pc)
	}
}

// Summary writes the error and warning totals of b, if any.
func (p *Printer) Summary(b *Bag) {
	switch {
	case b.ErrorCount() > 0 && b.WarningCount() > 0:
		fmt.Fprintf(p.w, "%d error(s) and %d warning(s)\n", b.ErrorCount(), b.WarningCount())
	case b.ErrorCount() > 0:
		fmt.Fprintf(p.w, "%d error(s)\n", b.ErrorCount())
	case b.WarningCount() > 0:
		fmt.Fprintf(p.w, "%d warning(s)\n", b.WarningCount())
	}
}

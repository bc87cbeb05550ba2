package diag

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"chocc/pkg/source"
)

func TestBagCounts(t *testing.T) {
	b := NewBag()
	require.NoError(t, b.Err())

	b.Report(Errorf(LexicalError, "a.c", source.Location{Line: 1, Column: 3}, "bad byte %q", '@'))
	b.Report(Warnf(MacroError, "a.c", source.Location{Line: 2, Column: 1}, "%s redefined", "X"))
	b.Report(Errorf(DirectiveError, "a.c", source.Location{Line: 4, Column: 2}, "stray #endif"))
	b.Report(Diagnostic{Kind: MacroError, Severity: Note, File: "a.c", Message: "previous definition"})

	assert.Equal(t, 4, b.Len())
	assert.Equal(t, 2, b.ErrorCount())
	assert.Equal(t, 1, b.WarningCount())
	assert.True(t, b.HasErrors())
	assert.Len(t, b.OfKind(MacroError), 2)

	err := b.Err()
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "a.c:1:3: error: bad byte '@'", errs[0].Error())
	assert.Equal(t, "a.c:4:2: error: stray #endif", errs[1].Error())
}

func TestFatalIsError(t *testing.T) {
	var err error = &Fatal{Errorf(FatalDirective, "a.c", source.Location{Line: 1, Column: 2}, "#error stop")}
	var f *Fatal
	require.True(t, errors.As(err, &f))
	assert.Equal(t, FatalDirective, f.Kind)
	assert.Equal(t, "a.c:1:2: error: #error stop", err.Error())
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.AddSource(source.New("a.c", []byte("int x;\nchar c = \"abc;\n")))

	p.Print(Errorf(LexicalError, "a.c", source.Location{Line: 2, Column: 10}, "unterminated string literal"))
	want := "a.c:2:10: error: unterminated string literal\n" +
		"2 | char c = \"abc;\n" +
		"  |          ^\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	p.Print(Warnf(DirectiveError, "other.c", source.Location{Line: 1, Column: 1}, "unknown directive"))
	assert.Equal(t, "other.c:1:1: warning: unknown directive\n", buf.String())

	buf.Reset()
	b := NewBag()
	b.Report(Errorf(LexicalError, "a.c", source.Location{Line: 1, Column: 1}, "x"))
	p.Summary(b)
	assert.Equal(t, "1 error(s)\n", buf.String())
}

func TestPrinterPhysicalPosition(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.AddSource(source.New("a.c", []byte("a\\\nb @\nc @\n")))

	p.Print(Errorf(LexicalError, "a.c", source.Location{Line: 1, Column: 4}, "stray '@'"))
	want := "a.c:1:4: error: stray '@'\n" +
		"1 | ab @\n" +
		"  |    ^\n" +
		"  = physical line 2, column 3\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	p.Print(Errorf(LexicalError, "a.c", source.Location{Line: 2, Column: 3}, "stray '@'"))
	want = "a.c:2:3: error: stray '@'\n" +
		"2 | c @\n" +
		"  |   ^\n" +
		"  = physical line 3, column 3\n"
	assert.Equal(t, want, buf.String())
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard.Report(Diagnostic{}) })
	assert.Equal(t, "macro", MacroError.String())
	assert.Equal(t, "warning", Warning.String())
}

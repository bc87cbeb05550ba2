// Package source loads C source text into logical lines and provides the
// character cursor the lexer reads them through.
//
// Loading implements the first two translation phases: optional trigraph
// replacement and the deletion of backslash-newline sequences. The result is a
// File whose lines are already spliced, so the scanner never has to look at
// physical line boundaries again.
package source

import (
	"errors"
	"fmt"
	"os"
)

// ErrFileAccess is matched by every error returned when source bytes cannot
// be obtained.
var ErrFileAccess = errors.New("file access")

// AccessError reports a path that could not be read.
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() []error {
	return []error{ErrFileAccess, e.Err}
}

// LogicalLine is one line of source after continuation lines were joined.
type LogicalLine struct {
	Number int    // 1-based, no gaps
	Text   []byte // line content without terminator or splice backslashes

	// Spliced is set when two or more physical lines were merged.
	Spliced bool
	// Directive is set when the first non-blank byte is '#'.
	Directive bool
	// Unterminated is set when the last physical line of the input ended in
	// a continuation backslash with nothing to join.
	Unterminated bool

	// Physical is the number of the first physical line.
	Physical int
	// Splices holds the offsets in Text where each joined physical line
	// starts, in increasing order.
	Splices []int
}

// Len returns the length of the line in bytes.
func (ln *LogicalLine) Len() int {
	return len(ln.Text)
}

// PhysicalPos maps a column of the logical line to the physical line and
// column it was read from.
func (ln *LogicalLine) PhysicalPos(col int) (line, column int) {
	line, start := ln.Physical, 0
	for _, off := range ln.Splices {
		if col-1 < off {
			break
		}
		line++
		start = off
	}
	return line, col - start
}

// File is a loaded source file: its logical lines and a scan cursor.
type File struct {
	Name   string
	Lines  []LogicalLine
	Cursor Location
}

type options struct {
	trigraphs     bool
	lenientSplice bool
	charset       string
}

// Option configures loading.
type Option func(*options)

// WithTrigraphs replaces the nine ??x trigraph sequences before splicing.
func WithTrigraphs() Option {
	return func(o *options) { o.trigraphs = true }
}

// WithLenientSplice accepts blanks between a continuation backslash and the
// end of the line.
func WithLenientSplice() Option {
	return func(o *options) { o.lenientSplice = true }
}

// WithCharset decodes the input to UTF-8 before splitting it into lines.
// "auto" detects the encoding of input that is not valid UTF-8; any other
// non-empty label names the encoding to decode from.
func WithCharset(label string) Option {
	return func(o *options) { o.charset = label }
}

// New builds a File from in-memory source. It never fails; bytes that cannot
// be decoded are kept as they are.
func New(name string, src []byte, opts ...Option) *File {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	src = stripBOM(src)
	if o.charset != "" {
		if decoded, err := toUTF8(src, o.charset); err == nil {
			src = decoded
		}
	}
	if o.trigraphs {
		src = replaceTrigraphs(src)
	}

	f := &File{
		Name:  name,
		Lines: splitLines(src, o.lenientSplice),
	}
	f.Reset()
	return f
}

// Load reads path and builds a File from its contents.
func Load(path string, opts ...Option) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &AccessError{Path: path, Err: err}
	}
	return New(path, data, opts...), nil
}

// Line returns the logical line numbered n, or nil if there is none.
func (f *File) Line(n int) *LogicalLine {
	if n < 1 || n > len(f.Lines) {
		return nil
	}
	return &f.Lines[n-1]
}

// Reset moves the cursor back to the start of the file.
func (f *File) Reset() {
	f.Cursor = Location{Line: 1, Column: 1}
	if len(f.Lines) == 0 {
		f.Cursor = f.eofCursor()
	}
}

// End returns the position of the end-of-line marker of the last line, or
// 1:1 for an empty file.
func (f *File) End() Location {
	if len(f.Lines) == 0 {
		return Location{Line: 1, Column: 1}
	}
	last := f.Lines[len(f.Lines)-1]
	return Location{Line: last.Number, Column: last.Len() + 1}
}

// AtEOF reports whether the cursor is at the end-of-file sentinel.
func (f *File) AtEOF() bool {
	return f.Cursor.Line > len(f.Lines)
}

func (f *File) eofCursor() Location {
	return Location{Line: len(f.Lines) + 1, Column: 1}
}

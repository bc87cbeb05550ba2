package source

import "unicode/utf8"

// EOF is the rune returned once the cursor has passed the last line.
const EOF rune = -1

// Char is one character read from a File.
type Char struct {
	Rune    rune
	Pos     Location
	Width   int  // bytes consumed from the line, 0 for markers
	Invalid bool // the byte at Pos is not valid UTF-8
}

// IsEOF reports whether c is the end-of-file sentinel.
func (c Char) IsEOF() bool {
	return c.Rune == EOF
}

// Advance returns the character at loc and moves loc past it. The last
// character of every logical line is followed by a '\n' marker at column
// Len()+1, after which loc moves to column 1 of the next line. Past the last
// line Advance keeps returning EOF and leaves loc at the sentinel position.
//
// Advance only reads the line table of f.
func Advance(f *File, loc *Location) Char {
	if loc.Line < 1 || loc.Line > len(f.Lines) {
		*loc = f.eofCursor()
		return Char{Rune: EOF, Pos: f.End()}
	}

	ln := &f.Lines[loc.Line-1]
	if loc.Column > ln.Len() {
		c := Char{Rune: '\n', Pos: Location{Line: loc.Line, Column: ln.Len() + 1}}
		*loc = Location{Line: loc.Line + 1, Column: 1}
		return c
	}

	pos := *loc
	r, w := utf8.DecodeRune(ln.Text[loc.Column-1:])
	c := Char{Rune: r, Pos: pos, Width: w}
	if r == utf8.RuneError && w <= 1 {
		c.Invalid = true
		c.Width = 1
	}
	loc.Column += c.Width
	return c
}

// Next reads the character under the file cursor and advances the cursor.
func (f *File) Next() Char {
	return Advance(f, &f.Cursor)
}

// Peek returns the character under the file cursor without moving it.
func (f *File) Peek() Char {
	loc := f.Cursor
	return Advance(f, &loc)
}

// PeekN returns the character n positions after the cursor; PeekN(0) is
// Peek().
func (f *File) PeekN(n int) Char {
	loc := f.Cursor
	c := Advance(f, &loc)
	for ; n > 0; n-- {
		c = Advance(f, &loc)
	}
	return c
}

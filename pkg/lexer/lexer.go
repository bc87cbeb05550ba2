// Package lexer turns the logical lines of a source.File into tokens.
package lexer

import (
	"strings"
	"unicode/utf8"

	"chocc/pkg/diag"
	"chocc/pkg/source"
	"chocc/pkg/token"
)

// keywords is the C11 reserved-word set.
var keywords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true,
	"const": true, "continue": true, "default": true, "do": true,
	"double": true, "else": true, "enum": true, "extern": true,
	"float": true, "for": true, "goto": true, "if": true,
	"inline": true, "int": true, "long": true, "register": true,
	"restrict": true, "return": true, "short": true, "signed": true,
	"sizeof": true, "static": true, "struct": true, "switch": true,
	"typedef": true, "union": true, "unsigned": true, "void": true,
	"volatile": true, "while": true,
	"_Alignas": true, "_Alignof": true, "_Atomic": true, "_Bool": true,
	"_Complex": true, "_Generic": true, "_Imaginary": true, "_Noreturn": true,
	"_Static_assert": true, "_Thread_local": true,
}

// puncts holds every punctuator; lookup goes longest first.
var puncts = map[string]bool{
	"...": true, "<<=": true, ">>=": true,
	"->": true, "++": true, "--": true, "<<": true, ">>": true,
	"<=": true, ">=": true, "==": true, "!=": true, "&&": true,
	"||": true, "*=": true, "/=": true, "%=": true, "+=": true,
	"-=": true, "&=": true, "^=": true, "|=": true, "##": true,
	"[": true, "]": true, "(": true, ")": true, "{": true, "}": true,
	".": true, "&": true, "*": true, "+": true, "-": true, "~": true,
	"!": true, "/": true, "%": true, "<": true, ">": true, "^": true,
	"|": true, "?": true, ":": true, ";": true, "=": true, ",": true,
	"#": true,
}

// Option configures a Lexer.
type Option func(*Lexer)

// KeepComments makes the lexer emit comments as Comment tokens.
func KeepComments() Option {
	return func(l *Lexer) { l.keepComments = true }
}

// Lexer holds the state of a single pass over a File. The File's cursor
// belongs to the Lexer until EOF is returned.
type Lexer struct {
	f    *source.File
	sink diag.Sink

	keepComments bool

	lineStart   bool // no token emitted yet on the current logical line
	inDirective bool // between a DirectiveHash and its Newline
}

// New returns a Lexer reading f from its cursor. Diagnostics go to sink,
// which may be nil.
func New(f *source.File, sink diag.Sink, opts ...Option) *Lexer {
	if sink == nil {
		sink = diag.Discard
	}
	l := &Lexer{f: f, sink: sink, lineStart: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lex tokenizes all of f. The returned Unit always ends with an EOF token;
// malformed input shows up as Invalid tokens and diagnostics.
func Lex(f *source.File, sink diag.Sink, opts ...Option) *token.Unit {
	l := New(f, sink, opts...)
	u := token.NewUnit(f.Name, len(f.Lines)*8)
	for {
		tok := l.Next()
		u.Append(tok)
		if tok.Kind == token.EOF {
			return u
		}
	}
}

// Next returns the next token. Once the input is exhausted it keeps
// returning EOF.
func (l *Lexer) Next() token.Token {
	for {
		c := l.f.Peek()
		switch {
		case c.IsEOF():
			return tok(token.EOF, c.Pos, "")

		case c.Rune == '\n':
			l.f.Next()
			l.lineStart = true
			if ln := l.f.Line(c.Pos.Line); ln != nil && ln.Unterminated {
				l.sink.Report(diag.Warnf(diag.LexicalError, l.f.Name, c.Pos, "backslash-newline at end of file"))
			}
			if l.inDirective {
				l.inDirective = false
				return tok(token.Newline, c.Pos, "\n")
			}

		case isSpace(c.Rune):
			l.f.Next()

		case c.Rune == '/' && l.f.PeekN(1).Rune == '/':
			t := l.lineComment()
			if l.keepComments {
				return t
			}

		case c.Rune == '/' && l.f.PeekN(1).Rune == '*':
			t, ok := l.blockComment()
			if !ok {
				l.lineStart = false
				return t
			}
			if l.keepComments {
				return t
			}

		default:
			t := l.lexToken(c)
			l.lineStart = false
			return t
		}
	}
}

func (l *Lexer) lexToken(c source.Char) token.Token {
	start := c.Pos
	switch {
	case isIdentStart(c.Rune):
		return l.identifier(start)

	case isDigit(c.Rune), c.Rune == '.' && isDigit(l.f.PeekN(1).Rune):
		return l.number(start)

	case c.Rune == '"':
		return l.quoted(start, '"')

	case c.Rune == '\'':
		return l.quoted(start, '\'')

	case c.Rune == '#' && l.lineStart && l.f.PeekN(1).Rune != '#' && l.directiveLine(start.Line):
		l.f.Next()
		l.inDirective = true
		return tok(token.DirectiveHash, start, "#")
	}

	for n := 3; n >= 1; n-- {
		if s, ok := l.ahead(n); ok && puncts[s] {
			for i := 0; i < n; i++ {
				l.f.Next()
			}
			return tok(token.Punct, start, s)
		}
	}

	l.f.Next()
	text := l.raw(c)
	if c.Invalid {
		l.errorf(start, "invalid UTF-8 byte %#x", text[0])
	} else {
		l.errorf(start, "unexpected character %q", c.Rune)
	}
	return tok(token.Invalid, start, text)
}

func (l *Lexer) identifier(start source.Location) token.Token {
	for isIdentChar(l.f.Peek().Rune) {
		l.f.Next()
	}
	text := l.text(start)

	switch next := l.f.Peek().Rune; {
	case next == '"' && (text == "L" || text == "u" || text == "U" || text == "u8"):
		return l.quoted(start, '"')
	case next == '\'' && (text == "L" || text == "u" || text == "U"):
		return l.quoted(start, '\'')
	}

	if keywords[text] {
		return tok(token.Keyword, start, text)
	}
	return tok(token.Identifier, start, text)
}

// lineComment consumes a // comment up to, not including, the end of line.
func (l *Lexer) lineComment() token.Token {
	start := l.f.Cursor
	for c := l.f.Peek(); c.Rune != '\n' && !c.IsEOF(); c = l.f.Peek() {
		l.f.Next()
	}
	return tok(token.Comment, start, l.text(start))
}

// blockComment consumes a /* */ comment, which may span several lines. It
// returns false, and an Invalid token, if the comment is never closed.
func (l *Lexer) blockComment() (token.Token, bool) {
	start := l.f.Cursor
	var sb strings.Builder
	sb.WriteString("/*")
	l.f.Next()
	l.f.Next()
	for {
		c := l.f.Next()
		switch {
		case c.IsEOF():
			l.errorf(start, "unterminated comment")
			return tok(token.Invalid, start, "/*"), false
		case c.Rune == '*' && l.f.Peek().Rune == '/':
			l.f.Next()
			sb.WriteString("*/")
			return tok(token.Comment, start, sb.String()), true
		case c.Rune == '\n':
			sb.WriteByte('\n')
		default:
			sb.WriteString(l.raw(c))
		}
	}
}

// ahead returns the next n characters as a string if they are ASCII and on
// the current line.
func (l *Lexer) ahead(n int) (string, bool) {
	var buf [3]byte
	for i := 0; i < n; i++ {
		r := l.f.PeekN(i).Rune
		if r == '\n' || r < 0 || r >= utf8.RuneSelf {
			return "", false
		}
		buf[i] = byte(r)
	}
	return string(buf[:n]), true
}

// text returns the source from start up to the cursor. Both must be on the
// same logical line.
func (l *Lexer) text(start source.Location) string {
	ln := l.f.Line(start.Line)
	end := l.f.Cursor.Column
	if l.f.Cursor.Line != start.Line {
		end = ln.Len() + 1
	}
	return string(ln.Text[start.Column-1 : end-1])
}

// raw returns the bytes c was decoded from.
func (l *Lexer) raw(c source.Char) string {
	ln := l.f.Line(c.Pos.Line)
	return string(ln.Text[c.Pos.Column-1 : c.Pos.Column-1+c.Width])
}

func (l *Lexer) directiveLine(n int) bool {
	ln := l.f.Line(n)
	return ln != nil && ln.Directive
}

func (l *Lexer) errorf(pos source.Location, format string, args ...any) {
	l.sink.Report(diag.Errorf(diag.LexicalError, l.f.Name, pos, format, args...))
}

func (l *Lexer) warnf(pos source.Location, format string, args ...any) {
	l.sink.Report(diag.Warnf(diag.LexicalError, l.f.Name, pos, format, args...))
}

func tok(k token.Kind, pos source.Location, text string) token.Token {
	return token.Token{Kind: k, Line: pos.Line, Column: pos.Column, Text: text}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\v' || r == '\f' || r == '\r'
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_'
}

func isIdentChar(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}

// Package token defines the tokens produced by the lexer and the Unit that
// carries them between pipeline stages.
package token

import (
	"fmt"

	"chocc/pkg/source"
)

// Kind identifies the category of a lexed token.
type Kind uint8

const (
	Identifier Kind = iota
	Keyword
	IntLit
	FloatLit
	CharLit
	StringLit
	Punct
	DirectiveHash // '#' opening a directive line
	Newline       // end of a directive line
	Comment
	EOF
	Invalid
)

// kindNames is indexed by Kind.
var kindNames = [...]string{
	Identifier:    "identifier",
	Keyword:       "keyword",
	IntLit:        "integer-literal",
	FloatLit:      "float-literal",
	CharLit:       "char-literal",
	StringLit:     "string-literal",
	Punct:         "punctuator",
	DirectiveHash: "directive-hash",
	Newline:       "newline-marker",
	Comment:       "comment",
	EOF:           "eof",
	Invalid:       "invalid",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a single lexical unit.
type Token struct {
	Kind   Kind
	Line   int    // 1-based logical line
	Column int    // 1-based byte column
	Text   string // exact spelling
}

// Pos returns the location of the first character of t.
func (t Token) Pos() source.Location {
	return source.Location{Line: t.Line, Column: t.Column}
}

// Is reports whether t has the given kind and spelling.
func (t Token) Is(k Kind, text string) bool {
	return t.Kind == k && t.Text == text
}

// IsPunct reports whether t is the punctuator spelled text.
func (t Token) IsPunct(text string) bool {
	return t.Is(Punct, text)
}

// IsIdent reports whether t is an identifier or keyword. The preprocessor
// treats both the same way.
func (t Token) IsIdent() bool {
	return t.Kind == Identifier || t.Kind == Keyword
}

// Adjacent reports whether next starts right where prev ends, with no
// whitespace in between.
func Adjacent(prev, next Token) bool {
	return prev.Line == next.Line && prev.Column+len(prev.Text) == next.Column
}

func (t Token) String() string {
	return fmt.Sprintf("%-15s %-14q %d:%d", t.Kind, t.Text, t.Line, t.Column)
}

package token

import "strings"

const minUnitCap = 64

// Unit is an ordered, growable sequence of tokens. A Unit owns its tokens;
// appending never changes tokens already stored.
type Unit struct {
	Name string
	toks []Token
}

// NewUnit returns an empty Unit with room for at least n tokens.
func NewUnit(name string, n int) *Unit {
	if n < minUnitCap {
		n = minUnitCap
	}
	return &Unit{Name: name, toks: make([]Token, 0, n)}
}

// Append adds tokens to the end of u, doubling the capacity when full.
func (u *Unit) Append(toks ...Token) {
	need := len(u.toks) + len(toks)
	if need > cap(u.toks) {
		c := cap(u.toks)
		if c < minUnitCap {
			c = minUnitCap
		}
		for c < need {
			c *= 2
		}
		grown := make([]Token, len(u.toks), c)
		copy(grown, u.toks)
		u.toks = grown
	}
	u.toks = append(u.toks, toks...)
}

// Len returns the number of tokens in u.
func (u *Unit) Len() int { return len(u.toks) }

// Cap returns the number of tokens u can hold before growing.
func (u *Unit) Cap() int { return cap(u.toks) }

// At returns the i-th token.
func (u *Unit) At(i int) Token { return u.toks[i] }

// Tokens returns a copy of the tokens in u.
func (u *Unit) Tokens() []Token {
	out := make([]Token, len(u.toks))
	copy(out, u.toks)
	return out
}

// Last returns the final token, or an EOF token for an empty Unit.
func (u *Unit) Last() Token {
	if len(u.toks) == 0 {
		return Token{Kind: EOF, Line: 1, Column: 1}
	}
	return u.toks[len(u.toks)-1]
}

// String joins the spellings of all tokens except EOF with single spaces.
func (u *Unit) String() string {
	var sb strings.Builder
	for _, t := range u.toks {
		if t.Kind == EOF {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

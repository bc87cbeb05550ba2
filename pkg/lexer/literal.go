package lexer

import (
	"strings"

	"chocc/pkg/source"
	"chocc/pkg/token"
)

// number consumes a preprocessing number and classifies it.
func (l *Lexer) number(start source.Location) token.Token {
	var prev rune
	for {
		r := l.f.Peek().Rune
		if !isIdentChar(r) && r != '.' && !((r == '+' || r == '-') && strings.ContainsRune("eEpP", prev)) {
			break
		}
		l.f.Next()
		prev = r
	}

	text := l.text(start)
	kind, ok := ClassifyNumber(text)
	if !ok {
		l.errorf(start, "invalid numeric literal %q", text)
	}
	return tok(kind, start, text)
}

// ClassifyNumber reports whether s is an integer or floating literal. It
// returns Invalid and false when s is not a valid C numeric literal.
func ClassifyNumber(s string) (token.Kind, bool) {
	base, i := 10, 0
	if len(s) > 1 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base, i = 16, 2
		case 'b', 'B':
			base, i = 2, 2
		}
	}

	j := skipDigits(s, i, base)
	digits := j - i
	intEnd := j
	i = j

	float, exp := false, false
	if i < len(s) && s[i] == '.' {
		if base == 2 {
			return token.Invalid, false
		}
		float = true
		j = skipDigits(s, i+1, base)
		digits += j - (i + 1)
		i = j
	}
	if digits == 0 {
		return token.Invalid, false
	}

	if i < len(s) {
		e := s[i]
		if base == 10 && (e == 'e' || e == 'E') || base == 16 && (e == 'p' || e == 'P') {
			j = i + 1
			if j < len(s) && (s[j] == '+' || s[j] == '-') {
				j++
			}
			k := skipDigits(s, j, 10)
			if k == j {
				return token.Invalid, false
			}
			float, exp = true, true
			i = k
		}
	}
	suffix := s[i:]

	if float {
		if base == 16 && !exp {
			return token.Invalid, false
		}
		switch suffix {
		case "", "f", "F", "l", "L":
			return token.FloatLit, true
		}
		return token.Invalid, false
	}

	if base == 10 && (suffix == "f" || suffix == "F") {
		return token.FloatLit, true
	}
	if !validIntSuffix(suffix) {
		return token.Invalid, false
	}
	if base == 10 && s[0] == '0' {
		for _, c := range s[1:intEnd] {
			if c > '7' {
				return token.Invalid, false
			}
		}
	}
	return token.IntLit, true
}

func skipDigits(s string, i, base int) int {
	for i < len(s) {
		c := s[i]
		ok := false
		switch base {
		case 16:
			ok = isHexDigit(rune(c))
		case 2:
			ok = c == '0' || c == '1'
		default:
			ok = c >= '0' && c <= '9'
		}
		if !ok {
			break
		}
		i++
	}
	return i
}

func validIntSuffix(s string) bool {
	if strings.Contains(s, "lL") || strings.Contains(s, "Ll") {
		return false
	}
	switch strings.ToLower(s) {
	case "", "u", "l", "ll", "ul", "lu", "ull", "llu":
		return true
	}
	return false
}

func isHexDigit(r rune) bool {
	return isDigit(r) || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
}

func isOctDigit(r rune) bool {
	return r >= '0' && r <= '7'
}

// quoted consumes a character or string literal whose opening quote is
// under the cursor. start is the beginning of the token, which is before
// the quote when the literal has an encoding prefix.
func (l *Lexer) quoted(start source.Location, quote rune) token.Token {
	open := l.f.Next().Pos
	kind, what := token.StringLit, "string"
	if quote == '\'' {
		kind, what = token.CharLit, "character"
	}

	for {
		c := l.f.Peek()
		switch {
		case c.Rune == '\n' || c.IsEOF():
			l.errorf(open, "unterminated %s literal", what)
			return tok(token.Invalid, start, l.text(start))

		case c.Rune == quote:
			l.f.Next()
			text := l.text(start)
			if kind == token.CharLit && c.Pos.Column == open.Column+1 {
				l.errorf(open, "empty character constant")
				return tok(token.Invalid, start, text)
			}
			return tok(kind, start, text)

		case c.Rune == '\\':
			l.f.Next()
			l.escape()

		default:
			l.f.Next()
		}
	}
}

// escape checks the escape sequence after a backslash. Problems are
// warnings; the literal itself stays valid.
func (l *Lexer) escape() {
	c := l.f.Peek()
	switch {
	case c.Rune == '\n' || c.IsEOF():
		// reported as unterminated by the caller
	case strings.ContainsRune(`'"?\abfnrtv`, c.Rune):
		l.f.Next()
	case isOctDigit(c.Rune):
		for n := 0; n < 3 && isOctDigit(l.f.Peek().Rune); n++ {
			l.f.Next()
		}
	case c.Rune == 'x':
		l.f.Next()
		n := 0
		for isHexDigit(l.f.Peek().Rune) {
			l.f.Next()
			n++
		}
		if n == 0 {
			l.warnf(c.Pos, `\x used with no following hex digits`)
		}
	case c.Rune == 'u' || c.Rune == 'U':
		want := 4
		if c.Rune == 'U' {
			want = 8
		}
		l.f.Next()
		n := 0
		for n < want && isHexDigit(l.f.Peek().Rune) {
			l.f.Next()
			n++
		}
		if n < want {
			l.warnf(c.Pos, "incomplete universal character name")
		}
	default:
		l.f.Next()
		l.warnf(c.Pos, "unknown escape sequence '\\%c'", c.Rune)
	}
}

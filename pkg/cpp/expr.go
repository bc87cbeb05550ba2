package cpp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"chocc/pkg/diag"
	"chocc/pkg/token"
)

// value is the result of a #if subexpression. All arithmetic is done in
// 64 bits, as intmax_t or uintmax_t.
type value struct {
	v        uint64
	unsigned bool
}

func truth(b bool) value {
	if b {
		return value{v: 1}
	}
	return value{}
}

func (v value) less(o value, unsigned bool) bool {
	if unsigned {
		return v.v < o.v
	}
	return int64(v.v) < int64(o.v)
}

// evalCond evaluates the controlling expression of #if or #elif. Errors
// are reported and make the condition false.
func (p *Preprocessor) evalCond(hash ppToken, args []ppToken) bool {
	toks, ok := p.condTokens(args)
	if !ok {
		return false
	}
	if len(toks) == 0 {
		p.errorAt(diag.DirectiveError, hash, "#if with no expression")
		return false
	}

	e := &evaluator{toks: toks, end: hash}
	v := e.conditional()
	if e.err == nil && e.pos < len(e.toks) {
		t := e.toks[e.pos]
		e.fail(t, "missing binary operator before token %q", t.Text)
	}
	if e.err != nil {
		p.errorAt(diag.DirectiveError, e.errAt, "%v", e.err)
		return false
	}
	return v.v != 0
}

// condTokens replaces defined operators and macro-expands the rest.
func (p *Preprocessor) condTokens(args []ppToken) ([]ppToken, bool) {
	pre := make([]ppToken, 0, len(args))
	for i := 0; i < len(args); i++ {
		t := args[i]
		if !t.Is(token.Identifier, "defined") {
			pre = append(pre, t)
			continue
		}

		j := i + 1
		paren := j < len(args) && args[j].IsPunct("(")
		if paren {
			j++
		}
		if j >= len(args) || !args[j].IsIdent() {
			p.errorAt(diag.DirectiveError, t, `operator "defined" requires an identifier`)
			return nil, false
		}
		name := args[j]
		if paren {
			j++
			if j >= len(args) || !args[j].IsPunct(")") {
				p.errorAt(diag.DirectiveError, t, `missing ')' after "defined"`)
				return nil, false
			}
		}

		v := "0"
		if p.macros[name.Text] != nil {
			v = "1"
		}
		pre = append(pre, ppToken{
			Token: token.Token{Kind: token.IntLit, Line: t.Line, Column: t.Column, Text: v},
			space: t.space,
		})
		i = j
	}
	return p.expandList(pre), true
}

// evaluator is a precedence-climbing parser over the expanded tokens of a
// #if line. Only the first error is kept.
type evaluator struct {
	toks []ppToken
	pos  int
	end  ppToken // reported when the expression ends early

	// dead counts enclosing operands that are not evaluated, such as the
	// right side of 0 && x.
	dead int

	err   error
	errAt ppToken
}

func (e *evaluator) peek() ppToken {
	if e.pos < len(e.toks) {
		return e.toks[e.pos]
	}
	return ppToken{Token: token.Token{Kind: token.EOF, Line: e.end.Line, Column: e.end.Column}}
}

func (e *evaluator) next() ppToken {
	t := e.peek()
	if e.pos < len(e.toks) {
		e.pos++
	}
	return t
}

func (e *evaluator) fail(at ppToken, format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf(format, args...)
		e.errAt = at
	}
}

func (e *evaluator) conditional() value {
	c := e.binary(1)
	if !e.peek().IsPunct("?") {
		return c
	}
	q := e.next()

	if c.v == 0 {
		e.dead++
	}
	a := e.conditional()
	if c.v == 0 {
		e.dead--
	}

	if !e.peek().IsPunct(":") {
		e.fail(q, "'?' without following ':'")
		return value{}
	}
	e.next()

	if c.v != 0 {
		e.dead++
	}
	b := e.conditional()
	if c.v != 0 {
		e.dead--
	}

	r := b
	if c.v != 0 {
		r = a
	}
	r.unsigned = a.unsigned || b.unsigned
	return r
}

var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (e *evaluator) binary(min int) value {
	lhs := e.unary()
	for e.err == nil {
		op := e.peek()
		prec := 0
		if op.Kind == token.Punct {
			prec = precedence[op.Text]
		}
		if prec == 0 || prec < min {
			return lhs
		}
		e.next()

		switch op.Text {
		case "&&", "||":
			// The right operand is only evaluated when the left one does not
			// decide the result.
			short := (op.Text == "&&") == (lhs.v == 0)
			if short {
				e.dead++
			}
			rhs := e.binary(prec + 1)
			if short {
				e.dead--
				lhs = truth(op.Text == "||")
			} else {
				lhs = truth(rhs.v != 0)
			}
		default:
			rhs := e.binary(prec + 1)
			lhs = e.apply(op, lhs, rhs)
		}
	}
	return lhs
}

func (e *evaluator) apply(op ppToken, l, r value) value {
	u := l.unsigned || r.unsigned
	switch op.Text {
	case "*":
		return value{l.v * r.v, u}
	case "/", "%":
		if r.v == 0 {
			if e.dead == 0 {
				e.fail(op, "division by zero in #if")
			}
			return value{unsigned: u}
		}
		if u {
			if op.Text == "/" {
				return value{l.v / r.v, true}
			}
			return value{l.v % r.v, true}
		}
		if op.Text == "/" {
			return value{uint64(int64(l.v) / int64(r.v)), false}
		}
		return value{uint64(int64(l.v) % int64(r.v)), false}
	case "+":
		return value{l.v + r.v, u}
	case "-":
		return value{l.v - r.v, u}
	case "<<":
		return shift(l, r, true)
	case ">>":
		return shift(l, r, false)
	case "<":
		return truth(l.less(r, u))
	case ">":
		return truth(r.less(l, u))
	case "<=":
		return truth(!r.less(l, u))
	case ">=":
		return truth(!l.less(r, u))
	case "==":
		return truth(l.v == r.v)
	case "!=":
		return truth(l.v != r.v)
	case "&":
		return value{l.v & r.v, u}
	case "^":
		return value{l.v ^ r.v, u}
	case "|":
		return value{l.v | r.v, u}
	}
	e.fail(op, "token %q is not valid in preprocessor expressions", op.Text)
	return value{}
}

// shift shifts l by r. A negative count shifts the other way. The result
// has the type of l.
func shift(l, r value, left bool) value {
	n := r.v
	if !r.unsigned && int64(n) < 0 {
		n = uint64(-int64(n))
		left = !left
	}
	switch {
	case left && n >= 64:
		return value{0, l.unsigned}
	case left:
		return value{l.v << n, l.unsigned}
	case l.unsigned && n >= 64:
		return value{0, true}
	case l.unsigned:
		return value{l.v >> n, true}
	case n >= 64:
		n = 63
	}
	return value{uint64(int64(l.v) >> n), false}
}

func (e *evaluator) unary() value {
	t := e.next()
	switch {
	case t.IsPunct("+"):
		return e.unary()
	case t.IsPunct("-"):
		v := e.unary()
		v.v = -v.v
		return v
	case t.IsPunct("~"):
		v := e.unary()
		v.v = ^v.v
		return v
	case t.IsPunct("!"):
		return truth(e.unary().v == 0)
	case t.IsPunct("("):
		v := e.conditional()
		if !e.peek().IsPunct(")") {
			e.fail(t, "missing ')' in expression")
			return value{}
		}
		e.next()
		return v
	case t.Kind == token.IntLit:
		v, err := intValue(t.Text)
		if err != nil {
			e.fail(t, "%v", err)
		}
		return v
	case t.Kind == token.CharLit:
		v, err := charValue(t.Text)
		if err != nil {
			e.fail(t, "%v", err)
		}
		return v
	case t.IsIdent():
		return value{}
	case t.Kind == token.FloatLit:
		e.fail(t, "floating constant in preprocessor expression")
	case t.Kind == token.EOF:
		e.fail(t, "expected value in expression")
	default:
		e.fail(t, "token %q is not valid in preprocessor expressions", t.Text)
	}
	return value{}
}

// intValue converts an integer literal. Values that do not fit intmax_t
// are unsigned.
func intValue(text string) (value, error) {
	body := strings.TrimRight(text, "uUlL")
	unsigned := strings.ContainsAny(text[len(body):], "uU")
	n, err := strconv.ParseUint(body, 0, 64)
	if err != nil {
		return value{}, fmt.Errorf("integer constant %s is too large", text)
	}
	return value{n, unsigned || n > math.MaxInt64}, nil
}

// charValue computes the value of a character constant. Plain constants
// have type int and their characters are signed chars; multi-character
// constants combine their bytes.
func charValue(text string) (value, error) {
	open := strings.IndexByte(text, '\'')
	if open < 0 || len(text) < open+2 || text[len(text)-1] != '\'' {
		return value{}, fmt.Errorf("invalid character constant %s", text)
	}
	prefix, body := text[:open], text[open+1:len(text)-1]
	if body == "" {
		return value{}, fmt.Errorf("empty character constant")
	}

	var chars []uint64
	for body != "" {
		var c uint64
		var ok bool
		c, body, ok = unescape(body, prefix == "")
		if !ok {
			return value{}, fmt.Errorf("invalid escape sequence in %s", text)
		}
		chars = append(chars, c)
	}

	switch prefix {
	case "":
		if len(chars) == 1 {
			return value{uint64(int64(int8(chars[0]))), false}, nil
		}
		var v uint32
		for _, c := range chars {
			v = v<<8 | uint32(c&0xff)
		}
		return value{uint64(int64(int32(v))), false}, nil
	case "L":
		return value{uint64(int64(int32(chars[0]))), false}, nil
	case "u":
		return value{chars[0] & 0xffff, false}, nil
	case "u8":
		return value{chars[0] & 0xff, false}, nil
	default:
		return value{chars[0] & 0xffffffff, false}, nil
	}
}

var simpleEscapes = map[byte]uint64{
	'n': '\n', 't': '\t', 'r': '\r', 'a': '\a', 'b': '\b', 'f': '\f', 'v': '\v',
	'e': 27, 'E': 27, '\\': '\\', '\'': '\'', '"': '"', '?': '?',
}

// unescape decodes the first character of s. In narrow mode an unescaped
// character is a single byte.
func unescape(s string, narrow bool) (c uint64, rest string, ok bool) {
	if s[0] != '\\' {
		if narrow {
			return uint64(s[0]), s[1:], true
		}
		r, n := utf8.DecodeRuneInString(s)
		return uint64(r), s[n:], true
	}
	if len(s) < 2 {
		return 0, "", false
	}
	esc, s := s[1], s[2:]
	switch {
	case esc == 'x':
		n := 0
		for n < len(s) && isHex(s[n]) {
			n++
		}
		if n == 0 {
			return 0, "", false
		}
		v, _ := strconv.ParseUint(s[:n], 16, 64)
		return v, s[n:], true
	case esc >= '0' && esc <= '7':
		v := uint64(esc - '0')
		for i := 0; i < 2 && s != "" && s[0] >= '0' && s[0] <= '7'; i++ {
			v = v*8 + uint64(s[0]-'0')
			s = s[1:]
		}
		return v, s, true
	case esc == 'u' || esc == 'U':
		n := 4
		if esc == 'U' {
			n = 8
		}
		if len(s) < n {
			return 0, "", false
		}
		v, err := strconv.ParseUint(s[:n], 16, 32)
		if err != nil {
			return 0, "", false
		}
		return v, s[n:], true
	}
	if v, ok := simpleEscapes[esc]; ok {
		return v, s, true
	}
	return uint64(esc), s, true
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

package cpp

import (
	"strings"

	"chocc/pkg/diag"
	"chocc/pkg/lexer"
	"chocc/pkg/source"
	"chocc/pkg/token"
)

// expand tries to expand t as a macro invocation. When it returns true, t
// and any arguments were consumed and the expansion was pushed back onto s
// for rescanning.
func (p *Preprocessor) expand(s *stream, t ppToken) bool {
	if !t.IsIdent() {
		return false
	}
	m := p.macros[t.Text]
	if m == nil || t.hide.has(m.Name) {
		return false
	}
	if len(t.hide) >= p.maxExpansion {
		p.errorAt(diag.MacroError, t, "expansion of %q exceeds the maximum depth of %d", m.Name, p.maxExpansion)
		return false
	}

	if m.dynamic != nil {
		s.push(m.dynamic(p, t))
		return true
	}

	if !m.FuncLike {
		body := p.subst(m, nil)
		s.push(place(body, t.hide.with(m.Name), t)...)
		return true
	}

	// A function-like macro name not followed by '(' is an ordinary
	// identifier.
	if !s.peek().IsPunct("(") {
		return false
	}
	lparen := s.next()
	args, rparen, ok := p.collectArgs(s, m, t, lparen)
	if !ok {
		return false
	}

	hs := t.hide.intersect(rparen.hide).with(m.Name)
	body := p.subst(m, args)
	s.push(place(body, hs, t)...)
	return true
}

// place gives the tokens of an expansion the invocation's location and adds
// hs to their hide-sets.
func place(body []ppToken, hs hideset, at ppToken) []ppToken {
	for i := range body {
		body[i].hide = body[i].hide.union(hs)
		body[i].Line, body[i].Column = at.Line, at.Column
	}
	if len(body) > 0 {
		body[0].space = at.space
	}
	return body
}

// collectArgs reads the arguments of an invocation of m whose '(' has been
// consumed. On failure every consumed token is pushed back.
func (p *Preprocessor) collectArgs(s *stream, m *Macro, name, lparen ppToken) (args [][]ppToken, rparen ppToken, ok bool) {
	consumed := []ppToken{lparen}
	var cur []ppToken
	depth := 0
	n := len(m.Params)

collect:
	for {
		t := s.next()
		consumed = append(consumed, t)
		switch {
		case t.Kind == token.EOF || t.Kind == token.DirectiveHash:
			p.errorAt(diag.MacroError, name, "unterminated argument list invoking macro %q", m.Name)
			s.push(consumed...)
			return nil, ppToken{}, false
		case t.Kind == token.Newline:
		case t.IsPunct("("):
			depth++
			cur = append(cur, t)
		case t.IsPunct(")") && depth > 0:
			depth--
			cur = append(cur, t)
		case t.IsPunct(")"):
			args = append(args, cur)
			rparen = t
			break collect
		case t.IsPunct(",") && depth == 0 && !(m.Variadic && len(args) == n-1):
			args = append(args, cur)
			cur = nil
		default:
			cur = append(cur, t)
		}
	}

	if n == 0 && len(args) == 1 && len(args[0]) == 0 {
		args = nil
	}
	if m.Variadic && len(args) == n-1 {
		args = append(args, nil)
	}
	if len(args) != n {
		if m.Variadic {
			p.errorAt(diag.MacroError, name, "macro %q requires at least %d arguments, but only %d given", m.Name, n-1, len(args))
		} else {
			p.errorAt(diag.MacroError, name, "macro %q passed %d arguments, but takes %d", m.Name, len(args), n)
		}
		s.push(consumed...)
		return nil, ppToken{}, false
	}
	return args, rparen, true
}

// subst builds the replacement list of m with args substituted. Arguments
// are fully expanded first unless they are operands of # or ##.
func (p *Preprocessor) subst(m *Macro, args [][]ppToken) []ppToken {
	body := m.Body
	out := make([]ppToken, 0, len(body))
	expanded := make([][]ppToken, len(args))
	done := make([]bool, len(args))

	// placemarker is set when the left operand of a pending ## was an empty
	// argument.
	placemarker := false

	for i := 0; i < len(body); i++ {
		t := body[i]
		pasteNext := i+1 < len(body) && body[i+1].IsPunct("##")

		switch {
		case m.FuncLike && t.IsPunct("#"):
			i++
			out = append(out, p.stringize(args[m.param(body[i])], t))
			placemarker = false

		case t.IsPunct("##"):
			i++
			rhs := body[i]
			var rtoks []ppToken
			variadicTail := false
			switch idx := m.param(rhs); {
			case idx >= 0:
				rtoks = withSpace(args[idx], rhs.space)
				variadicTail = m.Variadic && idx == len(m.Params)-1
			case m.FuncLike && rhs.IsPunct("#") && i+1 < len(body) && m.param(body[i+1]) >= 0:
				i++
				rtoks = []ppToken{p.stringize(args[m.param(body[i])], rhs)}
			default:
				rtoks = []ppToken{rhs}
			}

			lhsComma := !placemarker && len(out) > 0 && out[len(out)-1].IsPunct(",")
			switch {
			case variadicTail && lhsComma && len(rtoks) == 0:
				// GNU extension: ", ## __VA_ARGS__" drops the comma when the
				// variable arguments are empty.
				out = out[:len(out)-1]
			case variadicTail && lhsComma:
				out = append(out, rtoks...)
			case len(rtoks) == 0:
			case placemarker || len(out) == 0:
				out = append(out, rtoks...)
				placemarker = false
			default:
				if pasted, ok := p.paste(out[len(out)-1], rtoks[0]); ok {
					out[len(out)-1] = pasted
				} else {
					out = append(out, rtoks[0])
				}
				out = append(out, rtoks[1:]...)
			}

		default:
			idx := m.param(t)
			if idx < 0 {
				out = append(out, t)
				placemarker = false
				continue
			}
			if pasteNext {
				out = append(out, withSpace(args[idx], t.space)...)
				placemarker = len(args[idx]) == 0
				continue
			}
			if !done[idx] {
				expanded[idx] = p.expandList(args[idx])
				done[idx] = true
			}
			out = append(out, withSpace(expanded[idx], t.space)...)
			placemarker = false
		}
	}
	return out
}

// withSpace returns a copy of toks whose first token has the given space
// flag.
func withSpace(toks []ppToken, space bool) []ppToken {
	out := make([]ppToken, len(toks))
	copy(out, toks)
	if len(out) > 0 {
		out[0].space = space
	}
	return out
}

// expandList fully macro-expands toks in isolation.
func (p *Preprocessor) expandList(toks []ppToken) []ppToken {
	s := newStream(toks, ppToken{})
	out := make([]ppToken, 0, len(toks))
	for {
		t := s.next()
		if t.Kind == token.EOF {
			return out
		}
		if p.expand(s, t) {
			continue
		}
		out = append(out, t)
	}
}

// paste concatenates lhs and rhs and re-lexes the result, which must be a
// single token.
func (p *Preprocessor) paste(lhs, rhs ppToken) (ppToken, bool) {
	text := lhs.Text + rhs.Text
	u := lexer.Lex(source.New("<paste>", []byte(text)), diag.Discard)
	if u.Len() != 2 || u.At(0).Text != text || u.At(0).Kind == token.Invalid {
		p.errorAt(diag.MacroError, lhs, "pasting %q and %q does not give a valid preprocessing token", lhs.Text, rhs.Text)
		return lhs, false
	}
	t := u.At(0)
	if t.Kind == token.DirectiveHash {
		t.Kind = token.Punct
	}
	return ppToken{
		Token: token.Token{Kind: t.Kind, Line: lhs.Line, Column: lhs.Column, Text: text},
		hide:  lhs.hide.union(rhs.hide),
		space: lhs.space,
	}, true
}

// stringize spells arg as a string literal.
func (p *Preprocessor) stringize(arg []ppToken, at ppToken) ppToken {
	var sb strings.Builder
	sb.WriteByte('"')
	for i, t := range arg {
		if i > 0 && t.space {
			sb.WriteByte(' ')
		}
		if t.Kind == token.StringLit || t.Kind == token.CharLit {
			sb.WriteString(escape(t.Text))
			continue
		}
		sb.WriteString(t.Text)
	}
	sb.WriteByte('"')
	return ppToken{
		Token: token.Token{Kind: token.StringLit, Line: at.Line, Column: at.Column, Text: sb.String()},
		space: at.space,
	}
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escape(s string) string {
	return escaper.Replace(s)
}

package cpp

import (
	"fmt"

	"chocc/pkg/token"
)

// Macro is one entry of the macro table.
type Macro struct {
	Name     string
	FuncLike bool
	Params   []string // for variadic macros the last entry names the tail
	Variadic bool
	Body     []ppToken

	File string
	Pos  token.Token // the name in the defining directive

	// dynamic macros compute their expansion from the invocation token.
	dynamic func(p *Preprocessor, at ppToken) ppToken
}

// param returns the index of t in m's parameter list, or -1.
func (m *Macro) param(t ppToken) int {
	if !m.FuncLike || !t.IsIdent() {
		return -1
	}
	for i, name := range m.Params {
		if name == t.Text {
			return i
		}
	}
	return -1
}

// BodyText returns the replacement list as source text.
func (m *Macro) BodyText() string {
	return spelling(m.Body)
}

// String renders m as it would appear in a #define.
func (m *Macro) String() string {
	s := m.Name
	if m.FuncLike {
		s += "("
		for i, p := range m.Params {
			if i > 0 {
				s += ", "
			}
			if m.Variadic && i == len(m.Params)-1 {
				if p == vaArgs {
					p = "..."
				} else {
					p += "..."
				}
			}
			s += p
		}
		s += ")"
	}
	if len(m.Body) > 0 {
		s += " " + m.BodyText()
	}
	return s
}

const vaArgs = "__VA_ARGS__"

// sameDefinition reports whether a and b are identical in the sense of C11
// 6.10.3p2: same parameters and the same replacement list, including
// whitespace separation.
func sameDefinition(a, b *Macro) bool {
	if a.FuncLike != b.FuncLike || a.Variadic != b.Variadic ||
		len(a.Params) != len(b.Params) || len(a.Body) != len(b.Body) {
		return false
	}
	if a.dynamic != nil || b.dynamic != nil {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Body {
		if a.Body[i].Text != b.Body[i].Text {
			return false
		}
		if i > 0 && a.Body[i].space != b.Body[i].space {
			return false
		}
	}
	return true
}

// parseDefine builds a Macro from the tokens after "define".
func parseDefine(line []ppToken) (*Macro, *defineError) {
	if len(line) == 0 {
		return nil, &defineError{msg: "macro names must be identifiers"}
	}
	name := line[0]
	if !name.IsIdent() {
		return nil, &defineError{at: name, msg: "macro names must be identifiers"}
	}
	if name.Text == "defined" {
		return nil, &defineError{at: name, msg: `"defined" cannot be used as a macro name`}
	}

	m := &Macro{Name: name.Text, Pos: name.Token}
	rest := line[1:]

	if len(rest) > 0 && rest[0].IsPunct("(") && !rest[0].space {
		m.FuncLike = true
		n, err := m.parseParams(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
	} else if len(rest) > 0 && !rest[0].space {
		// C99 requires whitespace after the name of an object-like macro;
		// accept it anyway as compilers do.
		rest[0].space = true
	}

	body := make([]ppToken, len(rest))
	copy(body, rest)
	if len(body) > 0 {
		body[0].space = false
	}
	m.Body = body

	if err := m.checkBody(); err != nil {
		return nil, err
	}
	return m, nil
}

// parseParams reads "(a, b, ...)" from toks and returns the number of
// tokens consumed.
func (m *Macro) parseParams(toks []ppToken) (int, *defineError) {
	open := toks[0]
	i := 1
	seen := map[string]bool{}
	for {
		if i >= len(toks) {
			return 0, &defineError{at: open, msg: "missing ')' in macro parameter list"}
		}
		t := toks[i]
		switch {
		case t.IsPunct(")") && len(m.Params) == 0:
			return i + 1, nil

		case t.IsPunct("..."):
			m.Params = append(m.Params, vaArgs)
			m.Variadic = true
			i++

		case t.IsIdent():
			if t.Text == vaArgs {
				return 0, &defineError{at: t, msg: "__VA_ARGS__ can only appear in the expansion of a C99 variadic macro"}
			}
			if seen[t.Text] {
				return 0, &defineError{at: t, msg: fmt.Sprintf("duplicate macro parameter %q", t.Text)}
			}
			seen[t.Text] = true
			m.Params = append(m.Params, t.Text)
			i++
			if i < len(toks) && toks[i].IsPunct("...") {
				m.Variadic = true
				i++
			}

		default:
			return 0, &defineError{at: t, msg: fmt.Sprintf("expected parameter name, found %q", t.Text)}
		}

		if i >= len(toks) {
			return 0, &defineError{at: open, msg: "missing ')' in macro parameter list"}
		}
		switch t := toks[i]; {
		case t.IsPunct(")"):
			return i + 1, nil
		case t.IsPunct(",") && !m.Variadic:
			i++
		case m.Variadic:
			return 0, &defineError{at: t, msg: "missing ')' after \"...\""}
		default:
			return 0, &defineError{at: t, msg: fmt.Sprintf("expected ',' or ')', found %q", t.Text)}
		}
	}
}

func (m *Macro) checkBody() *defineError {
	n := len(m.Body)
	if n == 0 {
		return nil
	}
	if m.Body[0].IsPunct("##") {
		return &defineError{at: m.Body[0], msg: "'##' cannot appear at either end of a macro expansion"}
	}
	if m.Body[n-1].IsPunct("##") {
		return &defineError{at: m.Body[n-1], msg: "'##' cannot appear at either end of a macro expansion"}
	}
	if !m.FuncLike {
		return nil
	}
	for i, t := range m.Body {
		if t.IsPunct("#") && (i+1 >= n || m.param(m.Body[i+1]) < 0) {
			return &defineError{at: t, msg: "'#' is not followed by a macro parameter"}
		}
	}
	return nil
}

type defineError struct {
	at  ppToken
	msg string
}

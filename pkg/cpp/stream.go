package cpp

import (
	"sort"

	"chocc/pkg/token"
)

// hideset is a sorted set of macro names. Values are never modified after
// construction, so they can be shared between tokens.
type hideset []string

func (h hideset) has(name string) bool {
	i := sort.SearchStrings(h, name)
	return i < len(h) && h[i] == name
}

func (h hideset) with(name string) hideset {
	i := sort.SearchStrings(h, name)
	if i < len(h) && h[i] == name {
		return h
	}
	out := make(hideset, 0, len(h)+1)
	out = append(out, h[:i]...)
	out = append(out, name)
	return append(out, h[i:]...)
}

func (h hideset) union(o hideset) hideset {
	switch {
	case len(o) == 0:
		return h
	case len(h) == 0:
		return o
	}
	out := make(hideset, 0, len(h)+len(o))
	i, j := 0, 0
	for i < len(h) && j < len(o) {
		switch {
		case h[i] < o[j]:
			out = append(out, h[i])
			i++
		case h[i] > o[j]:
			out = append(out, o[j])
			j++
		default:
			out = append(out, h[i])
			i++
			j++
		}
	}
	out = append(out, h[i:]...)
	return append(out, o[j:]...)
}

func (h hideset) intersect(o hideset) hideset {
	var out hideset
	for _, name := range h {
		if o.has(name) {
			out = append(out, name)
		}
	}
	return out
}

// ppToken is a token on its way through the preprocessor.
type ppToken struct {
	token.Token
	hide  hideset
	space bool // preceded by whitespace or at the start of a line
}

// tokensOf converts the tokens of u, dropping comments.
func tokensOf(u *token.Unit) (toks []ppToken, eof ppToken) {
	toks = make([]ppToken, 0, u.Len())
	var prev token.Token
	havePrev := false
	for i := 0; i < u.Len(); i++ {
		t := u.At(i)
		switch t.Kind {
		case token.EOF:
			return toks, ppToken{Token: t, space: true}
		case token.Comment:
			continue
		}
		space := !havePrev || prev.Kind == token.Newline || !token.Adjacent(prev, t)
		toks = append(toks, ppToken{Token: t, space: space})
		prev, havePrev = t, true
	}
	last := u.Last()
	return toks, ppToken{Token: token.Token{Kind: token.EOF, Line: last.Line, Column: last.Column}, space: true}
}

// stream reads tokens from a base slice, after any tokens pushed back in
// front of it.
type stream struct {
	base    []ppToken
	pos     int
	pending []ppToken // pushed back tokens, last to be read first
	eof     ppToken
}

func newStream(toks []ppToken, eof ppToken) *stream {
	eof.Kind = token.EOF
	return &stream{base: toks, eof: eof}
}

func (s *stream) next() ppToken {
	if n := len(s.pending); n > 0 {
		t := s.pending[n-1]
		s.pending = s.pending[:n-1]
		return t
	}
	if s.pos < len(s.base) {
		t := s.base[s.pos]
		s.pos++
		return t
	}
	return s.eof
}

func (s *stream) peek() ppToken {
	if n := len(s.pending); n > 0 {
		return s.pending[n-1]
	}
	if s.pos < len(s.base) {
		return s.base[s.pos]
	}
	return s.eof
}

// push puts toks back so that toks[0] is read next.
func (s *stream) push(toks ...ppToken) {
	for i := len(toks) - 1; i >= 0; i-- {
		if toks[i].Kind == token.EOF {
			continue
		}
		s.pending = append(s.pending, toks[i])
	}
}

// line reads the rest of a directive line. The terminating Newline is
// consumed and returned separately.
func (s *stream) line() (toks []ppToken, end ppToken) {
	for {
		t := s.next()
		if t.Kind == token.Newline || t.Kind == token.EOF {
			return toks, t
		}
		toks = append(toks, t)
	}
}

func spelling(toks []ppToken) string {
	var n int
	for _, t := range toks {
		n += len(t.Text) + 1
	}
	buf := make([]byte, 0, n)
	for i, t := range toks {
		if i > 0 && t.space {
			buf = append(buf, ' ')
		}
		buf = append(buf, t.Text...)
	}
	return string(buf)
}

package cpp

import (
	"strconv"

	"chocc/pkg/token"
)

const builtinFile = "<built-in>"

// definePredefined installs the macros every translation unit starts with.
func (p *Preprocessor) definePredefined() {
	now := p.now()
	for _, def := range []string{
		"__STDC__ 1",
		"__STDC_VERSION__ 201112L",
		"__STDC_HOSTED__ 1",
		"__chocc__ 1",
		`__DATE__ "` + now.Format("Jan _2 2006") + `"`,
		`__TIME__ "` + now.Format("15:04:05") + `"`,
	} {
		p.defineText(builtinFile, def)
	}

	p.dynamic("__FILE__", func(p *Preprocessor, at ppToken) token.Token {
		return token.Token{Kind: token.StringLit, Text: strconv.Quote(p.file)}
	})
	p.dynamic("__LINE__", func(p *Preprocessor, at ppToken) token.Token {
		return token.Token{Kind: token.IntLit, Text: strconv.Itoa(at.Line)}
	})
}

// dynamic defines a macro whose single-token expansion depends on where it
// is used.
func (p *Preprocessor) dynamic(name string, fn func(p *Preprocessor, at ppToken) token.Token) {
	p.macros[name] = &Macro{
		Name: name,
		File: builtinFile,
		dynamic: func(p *Preprocessor, at ppToken) ppToken {
			t := fn(p, at)
			t.Line, t.Column = at.Line, at.Column
			return ppToken{Token: t, hide: at.hide.with(name), space: at.space}
		},
	}
}

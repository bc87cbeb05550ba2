package cpp

import (
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"chocc/pkg/diag"
	"chocc/pkg/include"
	"chocc/pkg/lexer"
	"chocc/pkg/token"
)

// directive handles the line introduced by hash. base is the depth of the
// conditional stack when the current file was entered.
func (p *Preprocessor) directive(s *stream, hash ppToken, base int) error {
	line, end := s.line()
	if len(line) == 0 {
		return nil // null directive
	}
	name, args := line[0], line[1:]

	if !p.active() {
		switch name.Text {
		case "if", "ifdef", "ifndef":
			p.pushCond(hash, false)
		case "elif":
			p.doElif(hash, args, base)
		case "else":
			p.doElse(hash, args, base)
		case "endif":
			p.doEndif(hash, args, base)
		}
		return nil
	}

	if name.Kind == token.IntLit {
		p.doLine(hash, line, true)
		return nil
	}
	if !name.IsIdent() {
		p.errorAt(diag.DirectiveError, name, "invalid preprocessing directive")
		return nil
	}

	switch name.Text {
	case "define":
		p.doDefine(hash, args)
	case "undef":
		p.doUndef(hash, args)
	case "include":
		return p.doInclude(hash, args)
	case "if":
		p.pushCond(hash, p.evalCond(hash, args))
	case "ifdef", "ifndef":
		p.doIfdef(hash, name, args)
	case "elif":
		p.doElif(hash, args, base)
	case "else":
		p.doElse(hash, args, base)
	case "endif":
		p.doEndif(hash, args, base)
	case "error":
		return p.fatalAt(hash, "#error %s", spelling(args))
	case "warning":
		p.warnAt(diag.DirectiveError, hash, "#warning %s", spelling(args))
	case "pragma":
		p.doPragma(hash, line, end)
	case "line":
		p.doLine(hash, args, false)
	default:
		p.errorAt(diag.DirectiveError, name, "invalid preprocessing directive #%s", name.Text)
	}
	return nil
}

func (p *Preprocessor) extraTokens(args []ppToken, directive string) {
	if len(args) > 0 {
		p.warnAt(diag.DirectiveError, args[0], "extra tokens at end of #%s directive", directive)
	}
}

func (p *Preprocessor) doDefine(hash ppToken, args []ppToken) {
	m, derr := parseDefine(args)
	if derr != nil {
		at := derr.at
		if at.Line == 0 {
			at = hash
		}
		p.errorAt(diag.MacroError, at, "%s", derr.msg)
		return
	}
	m.File = p.file

	if old := p.macros[m.Name]; old != nil && !sameDefinition(old, m) {
		p.warnAt(diag.MacroError, args[0], "%q redefined", m.Name)
		if old.File != "" && old.Pos.Line > 0 {
			p.report(diag.Diagnostic{
				Kind:     diag.MacroError,
				Severity: diag.Note,
				File:     old.File,
				Pos:      old.Pos.Pos(),
				Message:  "this is the location of the previous definition",
			})
		}
	}
	p.macros[m.Name] = m
	p.log.Debug("define", zap.String("macro", m.String()), zap.String("file", p.file))
}

func (p *Preprocessor) doUndef(hash ppToken, args []ppToken) {
	if len(args) == 0 || !args[0].IsIdent() {
		p.errorAt(diag.MacroError, hash, "no macro name given in #undef directive")
		return
	}
	p.extraTokens(args[1:], "undef")
	if _, ok := p.macros[args[0].Text]; ok {
		delete(p.macros, args[0].Text)
		p.log.Debug("undef", zap.String("macro", args[0].Text))
	}
}

func (p *Preprocessor) pushCond(at ppToken, value bool) {
	outer := p.active()
	p.conds = append(p.conds, cond{
		active: outer && value,
		taken:  !outer || value,
		at:     at,
		file:   p.file,
	})
}

// top returns the innermost conditional opened in the current file.
func (p *Preprocessor) top(base int) *cond {
	if len(p.conds) <= base {
		return nil
	}
	return &p.conds[len(p.conds)-1]
}

func (p *Preprocessor) doIfdef(hash, name ppToken, args []ppToken) {
	if len(args) == 0 || !args[0].IsIdent() {
		p.errorAt(diag.DirectiveError, hash, "no macro name given in #%s directive", name.Text)
		p.pushCond(hash, false)
		return
	}
	p.extraTokens(args[1:], name.Text)
	_, defined := p.macros[args[0].Text]
	if name.Text == "ifndef" {
		defined = !defined
	}
	p.pushCond(hash, defined)
}

func (p *Preprocessor) doElif(hash ppToken, args []ppToken, base int) {
	c := p.top(base)
	switch {
	case c == nil:
		p.errorAt(diag.DirectiveError, hash, "#elif without #if")
	case c.seenElse:
		p.errorAt(diag.DirectiveError, hash, "#elif after #else")
		c.active = false
	case c.taken:
		c.active = false
	default:
		v := p.evalCond(hash, args)
		c.active, c.taken = v, v
	}
}

func (p *Preprocessor) doElse(hash ppToken, args []ppToken, base int) {
	c := p.top(base)
	switch {
	case c == nil:
		p.errorAt(diag.DirectiveError, hash, "#else without #if")
		return
	case c.seenElse:
		p.errorAt(diag.DirectiveError, hash, "#else after #else")
		c.active = false
		return
	}
	p.extraTokens(args, "else")
	c.seenElse = true
	c.active = !c.taken
	c.taken = true
}

func (p *Preprocessor) doEndif(hash ppToken, args []ppToken, base int) {
	if p.top(base) == nil {
		p.errorAt(diag.DirectiveError, hash, "#endif without #if")
		return
	}
	p.extraTokens(args, "endif")
	p.conds = p.conds[:len(p.conds)-1]
}

func (p *Preprocessor) doInclude(hash ppToken, args []ppToken) error {
	name, angled, ok := p.headerName(args, true)
	if !ok {
		p.errorAt(diag.DirectiveError, hash, `#include expects "FILENAME" or <FILENAME>`)
		return nil
	}
	if p.depth >= p.maxInclude {
		return p.fatalAt(hash, "#include nested depth %d exceeds maximum of %d", p.depth+1, p.maxInclude)
	}
	if p.resolver == nil {
		p.errorAt(diag.DirectiveError, hash, "'%s' file not found", name)
		return nil
	}

	f, err := p.resolver.Resolve(name, angled, p.file)
	if err != nil {
		if errors.Is(err, include.ErrNotFound) {
			p.errorAt(diag.DirectiveError, hash, "'%s' file not found", name)
		} else {
			p.report(diag.Errorf(diag.FileAccess, p.file, hash.Pos(), "%v", err))
		}
		return nil
	}
	if p.once[f.Name] {
		p.log.Debug("include skipped by #pragma once", zap.String("file", f.Name))
		return nil
	}

	p.log.Debug("include", zap.String("name", name), zap.String("file", f.Name), zap.Int("depth", p.depth+1))
	toks, eof := tokensOf(lexer.Lex(f, p.sink))
	p.depth++
	err = p.run(newStream(toks, eof), f.Name)
	p.depth--
	return err
}

// headerName extracts the name from "name" or <name>. Other forms are
// macro-expanded once and tried again.
func (p *Preprocessor) headerName(args []ppToken, expand bool) (name string, angled, ok bool) {
	if len(args) == 0 {
		return "", false, false
	}
	first := args[0]
	switch {
	case first.Kind == token.StringLit && strings.HasPrefix(first.Text, `"`):
		p.extraTokens(args[1:], "include")
		return first.Text[1 : len(first.Text)-1], false, true
	case first.IsPunct("<"):
		for i := 1; i < len(args); i++ {
			if args[i].IsPunct(">") {
				p.extraTokens(args[i+1:], "include")
				return spelling(args[1:i]), true, true
			}
		}
		return "", false, false
	case expand:
		return p.headerName(p.expandList(args), false)
	}
	return "", false, false
}

func (p *Preprocessor) doPragma(hash ppToken, line []ppToken, end ppToken) {
	args := line[1:]
	if len(args) > 0 && args[0].Text == "once" {
		p.once[p.file] = true
		return
	}
	ns := ""
	if len(args) > 0 {
		ns = args[0].Text
	}
	if !p.pragmas[ns] {
		p.log.Debug("dropping pragma", zap.String("namespace", ns), zap.String("text", spelling(args)))
		return
	}

	if end.Kind != token.Newline {
		last := line[len(line)-1]
		end = ppToken{Token: token.Token{Kind: token.Newline, Line: last.Line, Column: last.Column + len(last.Text), Text: "\n"}}
	}
	p.out = append(p.out, hash)
	p.out = append(p.out, line...)
	p.out = append(p.out, end)
}

// doLine validates #line and GNU line markers. Locations are not remapped.
func (p *Preprocessor) doLine(hash ppToken, args []ppToken, marker bool) {
	if !marker {
		args = p.expandList(args)
	}
	if len(args) == 0 || args[0].Kind != token.IntLit || strings.Trim(args[0].Text, "0123456789") != "" {
		text := ""
		if len(args) > 0 {
			text = args[0].Text
		}
		p.errorAt(diag.DirectiveError, hash, "%q after #line is not a positive integer", text)
		return
	}
	n, err := strconv.ParseUint(args[0].Text, 10, 64)
	if err != nil || n > 2147483647 || (n == 0 && !marker) {
		p.errorAt(diag.DirectiveError, args[0], "line number out of range")
		return
	}

	rest := args[1:]
	file := ""
	if len(rest) > 0 {
		if rest[0].Kind != token.StringLit || !strings.HasPrefix(rest[0].Text, `"`) {
			p.errorAt(diag.DirectiveError, rest[0], "invalid filename %q", rest[0].Text)
			return
		}
		file = rest[0].Text
		rest = rest[1:]
	}
	if marker {
		for _, flag := range rest {
			if f, err := strconv.Atoi(flag.Text); err != nil || f < 1 || f > 4 {
				p.errorAt(diag.DirectiveError, flag, "invalid flag %q in line directive", flag.Text)
				return
			}
		}
	} else {
		p.extraTokens(rest, "line")
	}
	p.log.Debug("line directive", zap.Uint64("line", n), zap.String("file", file), zap.Bool("marker", marker))
}

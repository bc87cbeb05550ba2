// Package cpp implements the C preprocessor: directives, conditional
// compilation and macro expansion over lexed token Units.
//
// Macro expansion follows Prosser's algorithm. Every token carries the set
// of macro names it was produced by (its hide-set); a name is never
// expanded again inside its own expansion, so recursive definitions
// terminate. Tokens produced by an expansion take the location of the
// invocation that produced them.
package cpp

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"chocc/pkg/diag"
	"chocc/pkg/include"
	"chocc/pkg/lexer"
	"chocc/pkg/source"
	"chocc/pkg/token"
)

const (
	DefaultMaxIncludeDepth   = 200
	DefaultMaxExpansionDepth = 256
)

// DefaultPragmas are the pragma namespaces passed through to later stages.
var DefaultPragmas = []string{"STDC", "GCC", "clang", "pack", "message"}

// Preprocessor holds the macro table and conditional state of one
// translation unit. It is not safe for concurrent use.
type Preprocessor struct {
	log      *zap.Logger
	sink     diag.Sink
	resolver include.Resolver
	now      func() time.Time

	maxInclude   int
	maxExpansion int
	pragmas      map[string]bool
	defines      []string
	undefs       []string

	macros map[string]*Macro
	conds  []cond
	once   map[string]bool
	depth  int
	file   string // file being processed
	out    []ppToken
}

type cond struct {
	active   bool // tokens in the current group are kept
	taken    bool // some group of this #if chain was selected
	seenElse bool
	at       ppToken
	file     string
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *zap.Logger) Option {
	return func(p *Preprocessor) { p.log = l }
}

// WithSink sets where diagnostics go.
func WithSink(s diag.Sink) Option {
	return func(p *Preprocessor) { p.sink = s }
}

// WithResolver sets the service that finds #include files.
func WithResolver(r include.Resolver) Option {
	return func(p *Preprocessor) { p.resolver = r }
}

// WithMaxIncludeDepth bounds #include nesting.
func WithMaxIncludeDepth(n int) Option {
	return func(p *Preprocessor) { p.maxInclude = n }
}

// WithMaxExpansionDepth bounds the size of a token's hide-set.
func WithMaxExpansionDepth(n int) Option {
	return func(p *Preprocessor) { p.maxExpansion = n }
}

// WithDefines adds -D style definitions: "NAME", "NAME=VALUE" or
// "NAME(ARGS)=BODY".
func WithDefines(defs ...string) Option {
	return func(p *Preprocessor) { p.defines = append(p.defines, defs...) }
}

// WithUndefs removes definitions after the predefined and -D macros were
// installed.
func WithUndefs(names ...string) Option {
	return func(p *Preprocessor) { p.undefs = append(p.undefs, names...) }
}

// WithPragmas replaces the list of pragma namespaces that are passed
// through.
func WithPragmas(namespaces ...string) Option {
	return func(p *Preprocessor) {
		p.pragmas = make(map[string]bool, len(namespaces))
		for _, ns := range namespaces {
			p.pragmas[ns] = true
		}
	}
}

// WithClock sets the clock used for __DATE__ and __TIME__.
func WithClock(now func() time.Time) Option {
	return func(p *Preprocessor) { p.now = now }
}

// New returns a Preprocessor with the predefined macros installed.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		log:          zap.NewNop(),
		sink:         diag.Discard,
		now:          time.Now,
		maxInclude:   DefaultMaxIncludeDepth,
		maxExpansion: DefaultMaxExpansionDepth,
		macros:       make(map[string]*Macro),
		once:         make(map[string]bool),
	}
	WithPragmas(DefaultPragmas...)(p)
	for _, opt := range opts {
		opt(p)
	}

	p.definePredefined()
	for _, d := range p.defines {
		p.Define(d)
	}
	for _, name := range p.undefs {
		p.Undefine(name)
	}
	return p
}

// Preprocess runs a fresh Preprocessor over u.
func Preprocess(u *token.Unit, opts ...Option) (*token.Unit, error) {
	return New(opts...).Preprocess(u)
}

// Preprocess consumes the raw tokens of u and returns a new Unit with all
// directives processed and macros expanded. u is not modified. Macro
// definitions persist across calls on the same Preprocessor.
//
// A fatal directive returns a *diag.Fatal and no Unit.
func (p *Preprocessor) Preprocess(u *token.Unit) (*token.Unit, error) {
	p.out = p.out[:0]
	p.conds = p.conds[:0]

	toks, eof := tokensOf(u)
	if err := p.run(newStream(toks, eof), u.Name); err != nil {
		return nil, err
	}

	out := token.NewUnit(u.Name, len(p.out)+1)
	for _, t := range p.out {
		out.Append(t.Token)
	}
	out.Append(eof.Token)
	return out, nil
}

// Macro returns the definition of name, or nil.
func (p *Preprocessor) Macro(name string) *Macro {
	return p.macros[name]
}

// Define installs a -D style definition.
func (p *Preprocessor) Define(def string) {
	name, value, hasValue := strings.Cut(def, "=")
	if !hasValue {
		value = "1"
	}
	p.defineText("<command line>", name+" "+value)
}

// Undefine removes name from the macro table.
func (p *Preprocessor) Undefine(name string) {
	delete(p.macros, name)
}

// defineText processes "#define " + text as if it were a source line.
func (p *Preprocessor) defineText(file, text string) {
	f := source.New(file, []byte("#define "+text+"\n"))
	u := lexer.Lex(f, p.sink)
	toks, eof := tokensOf(u)

	if err := p.run(newStream(toks, eof), file); err != nil {
		p.log.Warn("definition failed", zap.String("text", text), zap.Error(err))
	}
}

// run processes one file's token stream, appending to p.out.
func (p *Preprocessor) run(s *stream, file string) error {
	saved := p.file
	p.file = file
	defer func() { p.file = saved }()
	base := len(p.conds)

	for {
		t := s.next()
		switch {
		case t.Kind == token.EOF:
			for len(p.conds) > base {
				c := p.conds[len(p.conds)-1]
				p.errorAt(diag.DirectiveError, c.at, "unterminated conditional directive")
				p.conds = p.conds[:len(p.conds)-1]
			}
			return nil

		case t.Kind == token.DirectiveHash:
			if err := p.directive(s, t, base); err != nil {
				return err
			}

		case !p.active(), t.Kind == token.Newline, t.Kind == token.Comment:

		default:
			if p.expand(s, t) {
				continue
			}
			p.out = append(p.out, t)
		}
	}
}

func (p *Preprocessor) active() bool {
	return len(p.conds) == 0 || p.conds[len(p.conds)-1].active
}

func (p *Preprocessor) report(d diag.Diagnostic) {
	p.sink.Report(d)
}

func (p *Preprocessor) errorAt(kind diag.Kind, at ppToken, format string, args ...any) {
	p.report(diag.Errorf(kind, p.file, at.Pos(), format, args...))
}

func (p *Preprocessor) warnAt(kind diag.Kind, at ppToken, format string, args ...any) {
	p.report(diag.Warnf(kind, p.file, at.Pos(), format, args...))
}

func (p *Preprocessor) fatalAt(at ppToken, format string, args ...any) error {
	d := diag.Errorf(diag.FatalDirective, p.file, at.Pos(), format, args...)
	p.report(d)
	return &diag.Fatal{Diagnostic: d}
}

// IsFatal reports whether err aborted preprocessing.
func IsFatal(err error) bool {
	var f *diag.Fatal
	return errors.As(err, &f)
}

package lexer

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chocc/pkg/diag"
	"chocc/pkg/source"
	"chocc/pkg/token"
)

func lexString(t *testing.T, src string, opts ...Option) ([]token.Token, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag()
	u := Lex(source.New("t.c", []byte(src)), bag, opts...)
	toks := u.Tokens()
	require.NotEmpty(t, toks)
	require.Equal(t, token.EOF, toks[len(toks)-1].Kind)
	return toks, bag
}

// kinds strips positions so tables only compare kind and spelling.
func kinds(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for _, tk := range toks {
		if tk.Kind == token.EOF {
			continue
		}
		out = append(out, token.Token{Kind: tk.Kind, Text: tk.Text})
	}
	return out
}

func kt(k token.Kind, text string) token.Token {
	return token.Token{Kind: k, Text: text}
}

func TestLexIntX(t *testing.T) {
	toks, bag := lexString(t, "int x;")
	assert.Equal(t, []token.Token{
		{Kind: token.Keyword, Line: 1, Column: 1, Text: "int"},
		{Kind: token.Identifier, Line: 1, Column: 5, Text: "x"},
		{Kind: token.Punct, Line: 1, Column: 6, Text: ";"},
		{Kind: token.EOF, Line: 1, Column: 7, Text: ""},
	}, toks)
	assert.Zero(t, bag.Len())
}

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []token.Token
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []token.Token{},
		},
		{
			name:  "Maximal munch",
			input: "a>>=b>>c>d",
			expected: []token.Token{
				kt(token.Identifier, "a"), kt(token.Punct, ">>="), kt(token.Identifier, "b"),
				kt(token.Punct, ">>"), kt(token.Identifier, "c"), kt(token.Punct, ">"),
				kt(token.Identifier, "d"),
			},
		},
		{
			name:  "Increment plus",
			input: "x+++y",
			expected: []token.Token{
				kt(token.Identifier, "x"), kt(token.Punct, "++"), kt(token.Punct, "+"), kt(token.Identifier, "y"),
			},
		},
		{
			name:  "Dots",
			input: "f(a, ...) s.m ..",
			expected: []token.Token{
				kt(token.Identifier, "f"), kt(token.Punct, "("), kt(token.Identifier, "a"),
				kt(token.Punct, ","), kt(token.Punct, "..."), kt(token.Punct, ")"),
				kt(token.Identifier, "s"), kt(token.Punct, "."), kt(token.Identifier, "m"),
				kt(token.Punct, "."), kt(token.Punct, "."),
			},
		},
		{
			name:  "Keywords and identifiers",
			input: "_Bool while x1_2 _y Int",
			expected: []token.Token{
				kt(token.Keyword, "_Bool"), kt(token.Keyword, "while"), kt(token.Identifier, "x1_2"),
				kt(token.Identifier, "_y"), kt(token.Identifier, "Int"),
			},
		},
		{
			name:  "Literals",
			input: `'a' '\n' L'x' "abc" L"wide" u8"utf" "a\"b" u'c'`,
			expected: []token.Token{
				kt(token.CharLit, "'a'"), kt(token.CharLit, `'\n'`), kt(token.CharLit, "L'x'"),
				kt(token.StringLit, `"abc"`), kt(token.StringLit, `L"wide"`), kt(token.StringLit, `u8"utf"`),
				kt(token.StringLit, `"a\"b"`), kt(token.CharLit, "u'c'"),
			},
		},
		{
			name:  "Prefix letters alone",
			input: "L u8 U + L",
			expected: []token.Token{
				kt(token.Identifier, "L"), kt(token.Identifier, "u8"), kt(token.Identifier, "U"),
				kt(token.Punct, "+"), kt(token.Identifier, "L"),
			},
		},
		{
			name:  "Comments dropped",
			input: "a /* x\n y */ b // c\nd",
			expected: []token.Token{
				kt(token.Identifier, "a"), kt(token.Identifier, "b"), kt(token.Identifier, "d"),
			},
		},
		{
			name:  "Directive line",
			input: "#define X 1\nint y;",
			expected: []token.Token{
				kt(token.DirectiveHash, "#"), kt(token.Identifier, "define"), kt(token.Identifier, "X"),
				kt(token.IntLit, "1"), kt(token.Newline, "\n"),
				kt(token.Keyword, "int"), kt(token.Identifier, "y"), kt(token.Punct, ";"),
			},
		},
		{
			name:  "Hash inside a line",
			input: "a # b ## c",
			expected: []token.Token{
				kt(token.Identifier, "a"), kt(token.Punct, "#"), kt(token.Identifier, "b"),
				kt(token.Punct, "##"), kt(token.Identifier, "c"),
			},
		},
		{
			name:  "Paste in a directive body",
			input: "#define A(x) x##1",
			expected: []token.Token{
				kt(token.DirectiveHash, "#"), kt(token.Identifier, "define"), kt(token.Identifier, "A"),
				kt(token.Punct, "("), kt(token.Identifier, "x"), kt(token.Punct, ")"),
				kt(token.Identifier, "x"), kt(token.Punct, "##"), kt(token.IntLit, "1"),
				kt(token.Newline, "\n"),
			},
		},
		{
			name:  "Spliced directive",
			input: "#define X \\\n  1\nX",
			expected: []token.Token{
				kt(token.DirectiveHash, "#"), kt(token.Identifier, "define"), kt(token.Identifier, "X"),
				kt(token.IntLit, "1"), kt(token.Newline, "\n"), kt(token.Identifier, "X"),
			},
		},
		{
			name:  "Comment continues a directive",
			input: "#if 1 /* a\n b */ + 1\nx",
			expected: []token.Token{
				kt(token.DirectiveHash, "#"), kt(token.Keyword, "if"), kt(token.IntLit, "1"),
				kt(token.Punct, "+"), kt(token.IntLit, "1"), kt(token.Newline, "\n"),
				kt(token.Identifier, "x"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, bag := lexString(t, tt.input)
			assert.Equal(t, tt.expected, kinds(toks))
			assert.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
		})
	}
}

func TestClassifyNumber(t *testing.T) {
	tests := []struct {
		text string
		kind token.Kind
	}{
		{"0", token.IntLit},
		{"42", token.IntLit},
		{"0x1F", token.IntLit},
		{"0XffUL", token.IntLit},
		{"0b101", token.IntLit},
		{"017", token.IntLit},
		{"10uL", token.IntLit},
		{"10llu", token.IntLit},
		{"1.5", token.FloatLit},
		{".5", token.FloatLit},
		{"1.", token.FloatLit},
		{"1e10", token.FloatLit},
		{"1E-3", token.FloatLit},
		{"0x1p-3", token.FloatLit},
		{"0x1.8p1", token.FloatLit},
		{"3.0f", token.FloatLit},
		{"2.5L", token.FloatLit},
		{"1f", token.FloatLit},
		{"08", token.Invalid},
		{"0x", token.Invalid},
		{"0b", token.Invalid},
		{"0b102", token.Invalid},
		{"1e", token.Invalid},
		{"12abc", token.Invalid},
		{"1lL", token.Invalid},
		{"1uu", token.Invalid},
		{"0x1.8", token.Invalid},
		{"1.5u", token.Invalid},
		{"1..2", token.Invalid},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ClassifyNumber(tt.text)
			assert.Equal(t, tt.kind, got)
			assert.Equal(t, tt.kind != token.Invalid, ok)
		})
	}
}

func TestLexNumbersInContext(t *testing.T) {
	toks, bag := lexString(t, "x=1+2e+3-0x1p-4*.5;y=08;")
	assert.Equal(t, []token.Token{
		kt(token.Identifier, "x"), kt(token.Punct, "="), kt(token.IntLit, "1"),
		kt(token.Punct, "+"), kt(token.FloatLit, "2e+3"), kt(token.Punct, "-"),
		kt(token.FloatLit, "0x1p-4"), kt(token.Punct, "*"), kt(token.FloatLit, ".5"),
		kt(token.Punct, ";"), kt(token.Identifier, "y"), kt(token.Punct, "="),
		kt(token.Invalid, "08"), kt(token.Punct, ";"),
	}, kinds(toks))
	require.Equal(t, 1, bag.ErrorCount())
	assert.Equal(t, source.Location{Line: 1, Column: 22}, bag.Diagnostics()[0].Pos)
}

func TestUnterminatedString(t *testing.T) {
	toks, bag := lexString(t, "char c = \"abc;")
	require.Len(t, toks, 5)
	assert.Equal(t, token.Token{Kind: token.Invalid, Line: 1, Column: 10, Text: `"abc;`}, toks[3])

	errs := bag.OfKind(diag.LexicalError)
	require.Len(t, errs, 1)
	assert.Equal(t, diag.Error, errs[0].Severity)
	assert.Equal(t, source.Location{Line: 1, Column: 10}, errs[0].Pos)
	assert.Contains(t, errs[0].Message, "unterminated string")
}

func TestUnterminatedLiteralStopsAtLineEnd(t *testing.T) {
	toks, bag := lexString(t, "x = L'a\ny;")
	assert.Equal(t, []token.Token{
		kt(token.Identifier, "x"), kt(token.Punct, "="), kt(token.Invalid, "L'a"),
		kt(token.Identifier, "y"), kt(token.Punct, ";"),
	}, kinds(toks))
	require.Equal(t, 1, bag.ErrorCount())
	assert.Equal(t, source.Location{Line: 1, Column: 6}, bag.Diagnostics()[0].Pos)
}

func TestLexicalErrorsContinue(t *testing.T) {
	toks, bag := lexString(t, "a @ b ` '' \xff c")
	assert.Equal(t, []token.Token{
		kt(token.Identifier, "a"), kt(token.Invalid, "@"), kt(token.Identifier, "b"),
		kt(token.Invalid, "`"), kt(token.Invalid, "''"), kt(token.Invalid, "\xff"),
		kt(token.Identifier, "c"),
	}, kinds(toks))
	assert.Equal(t, 4, bag.ErrorCount())
}

func TestUnterminatedComment(t *testing.T) {
	toks, bag := lexString(t, "a /* never\nclosed")
	assert.Equal(t, []token.Token{
		kt(token.Identifier, "a"), kt(token.Invalid, "/*"),
	}, kinds(toks))
	require.Equal(t, 1, bag.ErrorCount())
	assert.Equal(t, source.Location{Line: 1, Column: 3}, bag.Diagnostics()[0].Pos)
}

func TestEscapeWarnings(t *testing.T) {
	toks, bag := lexString(t, `"\q" '\x' "\u12" "\101\x41é"`)
	for _, tk := range toks[:len(toks)-1] {
		assert.NotEqual(t, token.Invalid, tk.Kind, tk.Text)
	}
	assert.Equal(t, 0, bag.ErrorCount())
	assert.Equal(t, 3, bag.WarningCount())
}

func TestKeepComments(t *testing.T) {
	toks, _ := lexString(t, "a /* x\ny */ b // tail", KeepComments())
	assert.Equal(t, []token.Token{
		kt(token.Identifier, "a"), kt(token.Comment, "/* x\ny */"),
		kt(token.Identifier, "b"), kt(token.Comment, "// tail"),
	}, kinds(toks))
}

func TestPositions(t *testing.T) {
	toks, _ := lexString(t, "#define TWO 2\nint x = TWO;")
	var got []source.Location
	for _, tk := range toks {
		got = append(got, tk.Pos())
	}
	assert.Equal(t, []source.Location{
		{Line: 1, Column: 1}, {Line: 1, Column: 2}, {Line: 1, Column: 9}, {Line: 1, Column: 13}, {Line: 1, Column: 14},
		{Line: 2, Column: 1}, {Line: 2, Column: 5}, {Line: 2, Column: 7}, {Line: 2, Column: 9}, {Line: 2, Column: 12},
		{Line: 2, Column: 13},
	}, got)
}

func TestUnterminatedSpliceWarning(t *testing.T) {
	toks, bag := lexString(t, "int x; \\")
	assert.Len(t, kinds(toks), 3)
	require.Equal(t, 1, bag.WarningCount())
	assert.Equal(t, source.Location{Line: 1, Column: 8}, bag.Diagnostics()[0].Pos)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"int x;",
		"int main(void) {\n\treturn a+++b >>= 2;\n}\n",
		"#define MAX(a, b) ((a) > (b) ? (a) : (b))\nint m = MAX(1, 2);\n",
		"char *s = \"two words\"; float f = 1.5e-3f;",
		"x->y[0] = ~z ^ 0x1F;",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			toks, _ := lexString(t, in)
			u := token.NewUnit("t.c", 0)
			u.Append(toks...)
			joined := u.String()

			assert.Equal(t, stripSpace(in), stripSpace(joined))

			again, _ := lexString(t, joined)
			assert.Equal(t, kinds(toks), kinds(again))
		})
	}
}

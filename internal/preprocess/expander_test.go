package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mincc/internal/token"
)

// runPreprocessor feeds src through a fresh Preprocessor and returns the
// concatenated spelling of every expanded token (EOF excluded), which is
// enough to assert against for these tests without needing a parser.
func runPreprocessor(t *testing.T, src string, predefines ...string) []token.Token {
	t.Helper()
	p := NewPreprocessor(SearchPaths{}, NewMacroTable())
	for _, d := range predefines {
		p.Define(d)
	}
	p.inputs.PushSource("t.c", []byte(src))

	var out []token.Token
	for {
		tok := p.Next()
		if tok.Kind == token.EOF {
			break
		}
		out = append(out, tok)
	}
	return out
}

func texts(toks []token.Token) []string {
	var out []string
	for _, t := range toks {
		out = append(out, t.Text)
	}
	return out
}

func TestObjectLikeMacroExpansion(t *testing.T) {
	out := runPreprocessor(t, "#define N 42\nN + N")
	assert.Equal(t, []string{"42", "+", "42"}, texts(out))
}

func TestFunctionLikeMacroArgumentParenthesization(t *testing.T) {
	// spec.md concrete scenario: SQ(x) must parenthesize its argument so
	// SQ(1+2) expands to ((1+2)*(1+2)), not 1+2*1+2.
	out := runPreprocessor(t, "#define SQ(x) ((x)*(x))\nSQ(1+2)")
	assert.Equal(t, []string{"(", "(", "1", "+", "2", ")", "*", "(", "1", "+", "2", ")", ")"}, texts(out))
}

func TestMacroExpansionIsIdempotentUnderRescan(t *testing.T) {
	// Self-referential object-like macro: the painted-blue hideset must
	// prevent infinite recursion while still letting other macros expand.
	out := runPreprocessor(t, "#define A A + 1\nA")
	assert.Equal(t, []string{"A", "+", "1"}, texts(out))
}

func TestMutuallyRecursiveMacrosStopExpanding(t *testing.T) {
	out := runPreprocessor(t, "#define X Y\n#define Y X\nX")
	// Whichever name the rescan lands on last must survive unexpanded.
	last := texts(out)
	assert.Len(t, last, 1)
	assert.Contains(t, []string{"X", "Y"}, last[0])
}

func TestStringizeOperator(t *testing.T) {
	out := runPreprocessor(t, `#define STR(x) #x`+"\n"+`STR(hello world)`)
	assert.Equal(t, []string{`"hello world"`}, texts(out))
}

func TestTokenPasteOperator(t *testing.T) {
	out := runPreprocessor(t, "#define CAT(a,b) a##b\nCAT(foo,bar)")
	assert.Equal(t, []string{"foobar"}, texts(out))
	assert.Equal(t, token.Ident, out[0].Kind)
}

func TestVariadicMacro(t *testing.T) {
	out := runPreprocessor(t, `#define LOG(fmt,...) fmt, __VA_ARGS__`+"\n"+`LOG("x", 1, 2)`)
	assert.Equal(t, []string{`"x"`, ",", "1", ",", "2"}, texts(out))
}

func TestFunctionLikeMacroRequiresParen(t *testing.T) {
	out := runPreprocessor(t, "#define F(x) x\nF")
	assert.Equal(t, []string{"F"}, texts(out))
}

func TestCommandLineDefine(t *testing.T) {
	out := runPreprocessor(t, "VERSION", "VERSION=7")
	assert.Equal(t, []string{"7"}, texts(out))
}

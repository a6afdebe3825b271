package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mincc/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	var out []token.Kind
	for _, t := range toks {
		out = append(out, t.Kind)
	}
	return out
}

func TestTokenizeAllRoundTrip(t *testing.T) {
	toks := TokenizeAll("t.c", []byte(`int main(void) { return 0; }`))
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)
	assert.Equal(t, []token.Kind{
		token.KwInt, token.Ident, token.LParen, token.KwVoid, token.RParen,
		token.LBrace, token.KwReturn, token.IntLit, token.Semi, token.RBrace, token.EOF,
	}, kinds(toks))
}

func TestTokenizeUCNIdentifier(t *testing.T) {
	toks := TokenizeAll("t.c", []byte(`int école = 1;`))
	assert.Equal(t, token.KwInt, toks[0].Kind)
	assert.Equal(t, token.Ident, toks[1].Kind)
	assert.Equal(t, "école", toks[1].Text)
}

func TestTokenizeStringAndCharPrefixes(t *testing.T) {
	toks := TokenizeAll("t.c", []byte(`u8"hi" L'a' U"wide" u'x'`))
	assert.Equal(t, token.StringLit, toks[0].Kind)
	assert.Equal(t, `u8"hi"`, toks[0].Text)
	assert.Equal(t, token.CharLit, toks[1].Kind)
	assert.Equal(t, `L'a'`, toks[1].Text)
	assert.Equal(t, token.StringLit, toks[2].Kind)
	assert.Equal(t, `U"wide"`, toks[2].Text)
	assert.Equal(t, token.CharLit, toks[3].Kind)
	assert.Equal(t, `u'x'`, toks[3].Text)
}

func TestTokenizePlainIdentifierNotMistakenForPrefix(t *testing.T) {
	toks := TokenizeAll("t.c", []byte(`Utility`))
	assert.Equal(t, token.Ident, toks[0].Kind)
	assert.Equal(t, "Utility", toks[0].Text)
}

func TestTokenizePunctuatorLongestMatch(t *testing.T) {
	toks := TokenizeAll("t.c", []byte(`a <<= b >> c`))
	assert.Equal(t, []token.Kind{token.Ident, token.ShlEq, token.Ident, token.Shr, token.Ident, token.EOF}, kinds(toks))
}

func TestTokenizeFirstOfLineFlag(t *testing.T) {
	toks := TokenizeAll("t.c", []byte("int a;\nint b;"))
	assert.True(t, toks[0].FirstOfLine)
	var secondLineFirst token.Token
	for _, tok := range toks {
		if tok.Pos.Line == 2 {
			secondLineFirst = tok
			break
		}
	}
	assert.True(t, secondLineFirst.FirstOfLine)
}

func TestTokenizePPNumberWithExponent(t *testing.T) {
	toks := TokenizeAll("t.c", []byte(`1e+10 0x1p-3 3.14`))
	assert.Equal(t, token.FloatLit, toks[0].Kind)
	assert.Equal(t, "1e+10", toks[0].Text)
	assert.Equal(t, token.FloatLit, toks[1].Kind)
	assert.Equal(t, token.FloatLit, toks[2].Kind)
}

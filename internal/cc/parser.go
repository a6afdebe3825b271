package cc

import (
	"fmt"

	"mincc/internal/diag"
	"mincc/internal/token"
	"mincc/internal/types"
)

// Parser turns a fully-expanded token stream into a TranslationUnit,
// resolving identifiers against a nested scope stack as it goes (spec.md
// §4.2 "Parsing and semantic analysis are interleaved: ... each construct
// is typed as soon as it is built").
//
// Grounded on the teacher's one-token-lookahead shape (ast/parser.go's
// token/nextToken pair), generalized to an arbitrary-depth lookahead buffer
// since type-name disambiguation occasionally needs to peek past more than
// one token (e.g. `(` then a typedef-name to tell a cast from a
// parenthesized expression).
type Parser struct {
	pull func() token.Token
	buf  []token.Token

	arena  *types.Arena
	scopes *ScopeStack

	// lastVLABound is set by parseDeclaratorSuffixes when a declarator's
	// array bound is not a compile-time constant, and consumed immediately
	// by the declaration-statement parser that invoked it.
	lastVLABound Expr

	// lastParamNames is set by parseDeclaratorSuffixes's function-suffix
	// case so parseExternalDecl can recover parameter names (the type
	// alone, per internal/types, does not carry them).
	lastParamNames []string

	stringLits []*StringExpr
	labelSeq   int
}

// NewParser wraps pull (normally a preprocess.Preprocessor.Next) into a
// parser sharing arena for every type it constructs.
func NewParser(pull func() token.Token, arena *types.Arena) *Parser {
	return &Parser{pull: pull, arena: arena, scopes: NewScopeStack()}
}

func (p *Parser) fill(n int) {
	for len(p.buf) <= n {
		p.buf = append(p.buf, p.pull())
	}
}

func (p *Parser) cur() token.Token {
	p.fill(0)
	return p.buf[0]
}

func (p *Parser) peek(n int) token.Token {
	p.fill(n)
	return p.buf[n]
}

func (p *Parser) advance() token.Token {
	p.fill(0)
	t := p.buf[0]
	p.buf = p.buf[1:]
	return t
}

func (p *Parser) expect(k token.Kind) token.Token {
	if p.cur().Kind != k {
		diag.Fatalf(diag.Parse, p.cur().Pos, "unexpected token %q", p.cur().Text)
	}
	return p.advance()
}

func (p *Parser) expectIdent() string {
	t := p.expect(token.Ident)
	return t.Text
}

func (p *Parser) newLabel(prefix string) string {
	p.labelSeq++
	return fmt.Sprintf("%s.%d", prefix, p.labelSeq)
}

// StringLiterals returns every string literal encountered during parsing,
// each already labeled, for the lowering layer's read-only-data section.
func (p *Parser) StringLiterals() []*StringExpr { return p.stringLits }

// Parse consumes the entire token stream, producing one TranslationUnit
// (spec.md §4.2 top-level entry point).
func (p *Parser) Parse() *TranslationUnit {
	tu := &TranslationUnit{}
	for p.cur().Kind != token.EOF {
		p.parseExternalDecl(tu)
	}
	return tu
}

// parseExternalDecl parses one top-level declaration: a function
// definition/prototype, or one or more global variable declarations
// sharing a specifier sequence (spec.md §4.2).
func (p *Parser) parseExternalDecl(tu *TranslationUnit) {
	pos := p.cur().Pos
	base, flags := p.parseDeclSpecifiers()

	if p.cur().Kind == token.Semi {
		p.advance()
		return
	}

	p.lastVLABound = nil
	p.lastParamNames = nil
	name, ty := p.parseDeclarator(base)

	if flags.isTypedef {
		p.scopes.Declare(&Symbol{Kind: SymTypedef, Name: name, Ty: ty})
		for p.cur().Kind == token.Comma {
			p.advance()
			n2, t2 := p.parseDeclarator(base)
			p.scopes.Declare(&Symbol{Kind: SymTypedef, Name: n2, Ty: t2})
		}
		p.expect(token.Semi)
		return
	}

	if ty.IsFunction() && (p.cur().Kind == token.LBrace || p.cur().Kind == token.Semi) {
		fd := &FuncDecl{Pos: pos, Name: name, Ty: ty, ParamNames: p.lastParamNames, External: !flags.isStatic}
		p.scopes.Declare(&Symbol{Kind: SymFunc, Name: name, Ty: ty})
		if p.cur().Kind == token.Semi {
			p.advance()
			tu.Funcs = append(tu.Funcs, fd)
			return
		}
		p.scopes.Push()
		fd.ParamSyms = make([]*Symbol, len(ty.Params))
		for i := range ty.Params {
			sym := &Symbol{Kind: SymVar, Ty: ty.Params[i]}
			if i < len(fd.ParamNames) {
				sym.Name = fd.ParamNames[i]
			}
			fd.ParamSyms[i] = sym
			if sym.Name != "" {
				p.scopes.Declare(sym)
			}
		}
		fd.Body = p.parseBlock()
		p.scopes.Pop()
		tu.Funcs = append(tu.Funcs, fd)
		return
	}

	for {
		vd := &VarDecl{Pos: pos, Name: name, Ty: ty, IsGlobal: true, IsStatic: flags.isStatic, VLABound: p.lastVLABound}
		if p.cur().Kind == token.Eq {
			p.advance()
			vd.Init = p.parseAssignExpr()
		}
		p.scopes.Declare(&Symbol{Kind: SymGlobalVar, Name: name, Ty: ty, Label: name})
		tu.Vars = append(tu.Vars, vd)
		if p.cur().Kind != token.Comma {
			break
		}
		p.advance()
		p.lastVLABound = nil
		name, ty = p.parseDeclarator(base)
	}
	p.expect(token.Semi)
}

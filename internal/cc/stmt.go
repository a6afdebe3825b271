package cc

import (
	"mincc/internal/diag"
	"mincc/internal/token"
)

// parseBlock parses a `{ ... }` compound statement, pushing a fresh scope
// for the block's own declarations (spec.md §3 "Scopes nest LIFO across
// blocks").
func (p *Parser) parseBlock() *BlockStmt {
	pos := p.expect(token.LBrace).Pos
	p.scopes.Push()
	b := &BlockStmt{StmtBase: StmtBase{Pos: pos}}
	for p.cur().Kind != token.RBrace {
		b.Stmts = append(b.Stmts, p.parseStatement())
	}
	p.expect(token.RBrace)
	p.scopes.Pop()
	return b
}

// parseStatement dispatches on the statement-leading token, mirroring the
// teacher's parseStatement switch (ast/parser.go) generalized to the full
// C11 statement grammar this subset supports.
func (p *Parser) parseStatement() Stmt {
	tok := p.cur()
	switch tok.Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwDo:
		return p.parseDoWhile()
	case token.KwFor:
		return p.parseFor()
	case token.KwReturn:
		return p.parseReturn()
	case token.KwBreak:
		p.advance()
		p.expect(token.Semi)
		return &BreakStmt{StmtBase: StmtBase{Pos: tok.Pos}}
	case token.KwContinue:
		p.advance()
		p.expect(token.Semi)
		return &ContinueStmt{StmtBase: StmtBase{Pos: tok.Pos}}
	case token.KwGoto:
		p.advance()
		label := p.expectIdent()
		p.expect(token.Semi)
		return &GotoStmt{StmtBase: StmtBase{Pos: tok.Pos}, Label: label}
	case token.KwSwitch:
		return p.parseSwitch()
	case token.KwCase:
		p.advance()
		v := p.parseConstIntExprValue()
		p.expect(token.Colon)
		return &CaseStmt{StmtBase: StmtBase{Pos: tok.Pos}, Value: v, Stmt: p.parseStatement()}
	case token.KwDefault:
		p.advance()
		p.expect(token.Colon)
		return &DefaultStmt{StmtBase: StmtBase{Pos: tok.Pos}, Stmt: p.parseStatement()}
	case token.Semi:
		p.advance()
		return &EmptyStmt{StmtBase: StmtBase{Pos: tok.Pos}}
	case token.Ident:
		if p.peek(1).Kind == token.Colon {
			p.advance()
			p.advance()
			return &LabelStmt{StmtBase: StmtBase{Pos: tok.Pos}, Label: tok.Text, Stmt: p.parseStatement()}
		}
		return p.parseExprOrDeclStmt()
	default:
		return p.parseExprOrDeclStmt()
	}
}

// parseExprOrDeclStmt parses either a local declaration (when the current
// token starts a type) or an expression statement.
func (p *Parser) parseExprOrDeclStmt() Stmt {
	if p.isTypeStartTok(p.cur()) {
		return p.parseDeclarationStmt()
	}
	pos := p.cur().Pos
	e := p.parseExpression()
	p.expect(token.Semi)
	return &ExprStmt{StmtBase: StmtBase{Pos: pos}, X: e}
}

// parseDeclarationStmt parses a block-scope declaration: a shared specifier
// sequence followed by one or more declarators, each optionally initialized
// (spec.md §4.2, and the VLA bound-tracking design for the `[*]`-sized
// case).
func (p *Parser) parseDeclarationStmt() Stmt {
	pos := p.cur().Pos
	base, flags := p.parseDeclSpecifiers()
	ds := &DeclStmt{StmtBase: StmtBase{Pos: pos}}

	if p.cur().Kind == token.Semi {
		p.advance()
		return ds
	}

	for {
		p.lastVLABound = nil
		name, ty := p.parseDeclarator(base)
		vd := &VarDecl{Pos: pos, Name: name, Ty: ty, IsStatic: flags.isStatic, VLABound: p.lastVLABound}
		if flags.isTypedef {
			p.scopes.Declare(&Symbol{Kind: SymTypedef, Name: name, Ty: ty})
		} else {
			if p.cur().Kind == token.Eq {
				p.advance()
				if p.cur().Kind == token.LBrace {
					vd.Init = p.parseCompoundLiteral(p.cur().Pos, ty)
				} else {
					vd.Init = p.parseAssignExpr()
				}
			}
			sym := &Symbol{Kind: SymVar, Name: name, Ty: ty}
			if flags.isStatic {
				sym.Kind = SymGlobalVar
				sym.Label = p.newLabel("static_" + name)
			}
			p.scopes.Declare(sym)
			vd.Sym = sym
			ds.Decls = append(ds.Decls, vd)
		}
		if p.cur().Kind != token.Comma {
			break
		}
		p.advance()
	}
	p.expect(token.Semi)
	return ds
}

func (p *Parser) parseIf() Stmt {
	pos := p.advance().Pos
	p.expect(token.LParen)
	cond := p.parseExpression()
	p.expect(token.RParen)
	then := p.parseStatement()
	var els Stmt
	if p.cur().Kind == token.KwElse {
		p.advance()
		els = p.parseStatement()
	}
	return &IfStmt{StmtBase: StmtBase{Pos: pos}, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhile() Stmt {
	pos := p.advance().Pos
	p.expect(token.LParen)
	cond := p.parseExpression()
	p.expect(token.RParen)
	body := p.parseStatement()
	return &WhileStmt{StmtBase: StmtBase{Pos: pos}, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() Stmt {
	pos := p.advance().Pos
	body := p.parseStatement()
	p.expect(token.KwWhile)
	p.expect(token.LParen)
	cond := p.parseExpression()
	p.expect(token.RParen)
	p.expect(token.Semi)
	return &DoWhileStmt{StmtBase: StmtBase{Pos: pos}, Cond: cond, Body: body}
}

// parseFor parses `for (init; cond; post) body`, pushing a scope so an
// init-declaration's variables are only visible to the loop.
func (p *Parser) parseFor() Stmt {
	pos := p.advance().Pos
	p.expect(token.LParen)
	p.scopes.Push()
	var init Stmt
	if p.cur().Kind != token.Semi {
		if p.isTypeStartTok(p.cur()) {
			init = p.parseDeclarationStmt()
		} else {
			e := p.parseExpression()
			p.expect(token.Semi)
			init = &ExprStmt{StmtBase: StmtBase{Pos: e.GetPos()}, X: e}
		}
	} else {
		p.advance()
	}
	var cond Expr
	if p.cur().Kind != token.Semi {
		cond = p.parseExpression()
	}
	p.expect(token.Semi)
	var post Expr
	if p.cur().Kind != token.RParen {
		post = p.parseExpression()
	}
	p.expect(token.RParen)
	body := p.parseStatement()
	p.scopes.Pop()
	return &ForStmt{StmtBase: StmtBase{Pos: pos}, Init: init, Cond: cond, Post: post, Body: body}
}

func (p *Parser) parseReturn() Stmt {
	pos := p.advance().Pos
	var x Expr
	if p.cur().Kind != token.Semi {
		x = p.parseExpression()
	}
	p.expect(token.Semi)
	return &ReturnStmt{StmtBase: StmtBase{Pos: pos}, X: x}
}

func (p *Parser) parseSwitch() Stmt {
	pos := p.advance().Pos
	p.expect(token.LParen)
	tag := p.parseExpression()
	p.expect(token.RParen)
	if !tag.GetType().IsInteger() {
		diag.Fatalf(diag.Semantic, pos, "switch tag must have integer type")
	}
	body := p.parseStatement()
	return &SwitchStmt{StmtBase: StmtBase{Pos: pos}, Tag: tag, Body: body}
}

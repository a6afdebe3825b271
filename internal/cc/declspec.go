package cc

import (
	"mincc/internal/diag"
	"mincc/internal/token"
	"mincc/internal/types"
)

// declFlags carries the storage-class/typedef bits parseDeclSpecifiers
// strips out of the specifier sequence (spec.md §4.2 "Declarations").
type declFlags struct {
	isTypedef bool
	isStatic  bool
	isExtern  bool
}

// isTypeStartTok reports whether tok can begin a declaration's specifier
// sequence, including a currently-visible typedef name — the lookup the
// tokenizer's post-processing stage needs to keep the grammar LL(1)
// (spec.md §4.2).
func (p *Parser) isTypeStartTok(tok token.Token) bool {
	switch tok.Kind {
	case token.KwVoid, token.KwChar, token.KwShort, token.KwInt, token.KwLong,
		token.KwFloat, token.KwDouble, token.KwSigned, token.KwUnsigned, token.KwBool,
		token.KwStruct, token.KwUnion, token.KwEnum, token.KwConst, token.KwVolatile,
		token.KwStatic, token.KwExtern, token.KwAuto, token.KwRegister, token.KwInline,
		token.KwRestrict, token.KwTypedef:
		return true
	case token.Ident:
		_, ok := p.scopes.LookupTypedef(tok.Text)
		return ok
	default:
		return false
	}
}

// parseDeclSpecifiers consumes storage-class/qualifier/specifier keywords
// (spec.md §4.2: "Parses storage-class, type-qualifier, type-specifier ...
// grammar"). A struct/union/enum specifier or a typedef name ends the
// sequence outright, matching the simple specifier combinations this
// subset's test corpus actually uses.
func (p *Parser) parseDeclSpecifiers() (*types.Type, declFlags) {
	var flags declFlags
	var aggType *types.Type
	counts := map[token.Kind]int{}

loop:
	for {
		tok := p.cur()
		switch tok.Kind {
		case token.KwTypedef:
			flags.isTypedef = true
			p.advance()
		case token.KwStatic:
			flags.isStatic = true
			p.advance()
		case token.KwExtern:
			flags.isExtern = true
			p.advance()
		case token.KwInline, token.KwAuto, token.KwRegister, token.KwRestrict,
			token.KwConst, token.KwVolatile:
			p.advance()
		case token.KwVoid, token.KwBool, token.KwChar, token.KwShort, token.KwInt,
			token.KwLong, token.KwFloat, token.KwDouble, token.KwSigned, token.KwUnsigned:
			counts[tok.Kind]++
			p.advance()
		case token.KwStruct:
			aggType = p.parseStructOrUnionSpecifier(false)
			break loop
		case token.KwUnion:
			aggType = p.parseStructOrUnionSpecifier(true)
			break loop
		case token.KwEnum:
			aggType = p.parseEnumSpecifier()
			break loop
		case token.Ident:
			if len(counts) > 0 || aggType != nil {
				break loop
			}
			if ty, ok := p.scopes.LookupTypedef(tok.Text); ok {
				aggType = ty
				p.advance()
				break loop
			}
			break loop
		default:
			break loop
		}
	}
	if aggType != nil {
		return aggType, flags
	}
	return p.resolveBasicType(counts), flags
}

// resolveBasicType collapses the counted base-type keywords into one of
// C11's simple types (spec.md §3 "Simple types enumerate void, bool,
// char, ..."). Absent any base-type keyword (bare `signed`, or nothing) it
// defaults to `int`, matching historical C's implicit-int rule; a bare
// `unsigned` gives `unsigned int`.
func (p *Parser) resolveBasicType(counts map[token.Kind]int) *types.Type {
	switch {
	case counts[token.KwVoid] > 0:
		return p.arena.SimpleType(types.Void)
	case counts[token.KwBool] > 0:
		return p.arena.SimpleType(types.Bool)
	case counts[token.KwDouble] > 0:
		if counts[token.KwLong] > 0 {
			return p.arena.SimpleType(types.LDouble)
		}
		return p.arena.SimpleType(types.Double)
	case counts[token.KwFloat] > 0:
		return p.arena.SimpleType(types.Float)
	case counts[token.KwChar] > 0:
		if counts[token.KwUnsigned] > 0 {
			return p.arena.SimpleType(types.UChar)
		}
		if counts[token.KwSigned] > 0 {
			return p.arena.SimpleType(types.SChar)
		}
		return p.arena.SimpleType(types.Char)
	case counts[token.KwShort] > 0:
		if counts[token.KwUnsigned] > 0 {
			return p.arena.SimpleType(types.UShort)
		}
		return p.arena.SimpleType(types.Short)
	case counts[token.KwLong] >= 2:
		if counts[token.KwUnsigned] > 0 {
			return p.arena.SimpleType(types.ULLong)
		}
		return p.arena.SimpleType(types.LLong)
	case counts[token.KwLong] == 1:
		if counts[token.KwUnsigned] > 0 {
			return p.arena.SimpleType(types.ULong)
		}
		return p.arena.SimpleType(types.Long)
	case counts[token.KwUnsigned] > 0:
		return p.arena.SimpleType(types.UInt)
	default:
		return p.arena.SimpleType(types.Int)
	}
}

// parseStructOrUnionSpecifier parses `struct`/`union` [tag] [{ members }],
// laying out members eagerly via types.Type.DefineMembers once the closing
// brace is seen (spec.md concrete scenario 4).
func (p *Parser) parseStructOrUnionSpecifier(isUnion bool) *types.Type {
	p.advance() // struct / union
	tag := ""
	if p.cur().Kind == token.Ident {
		tag = p.cur().Text
		p.advance()
	}
	var ty *types.Type
	if isUnion {
		ty = p.arena.NewUnionTag(tag)
	} else {
		ty = p.arena.NewStructTag(tag)
	}
	if p.cur().Kind != token.LBrace {
		return ty
	}
	p.advance()
	var members []types.Member
	for p.cur().Kind != token.RBrace {
		base, _ := p.parseDeclSpecifiers()
		for {
			p.lastVLABound = nil
			name, mty := p.parseDeclarator(base)
			members = append(members, types.Member{Name: name, Type: mty})
			if p.cur().Kind == token.Comma {
				p.advance()
				continue
			}
			break
		}
		p.expect(token.Semi)
	}
	p.expect(token.RBrace)
	ty.DefineMembers(members, isUnion)
	if tag != "" {
		p.scopes.DeclareTag(tag, ty)
	}
	return ty
}

// parseEnumSpecifier parses `enum` [tag] [{ NAME [= const-expr], ... }],
// declaring each enumerator as a SymEnumConst in the current scope;
// enum-typed values lower to plain `int` (spec.md §3 "simple types").
func (p *Parser) parseEnumSpecifier() *types.Type {
	p.advance() // enum
	tag := ""
	if p.cur().Kind == token.Ident {
		tag = p.cur().Text
		p.advance()
	}
	intType := p.arena.SimpleType(types.Int)
	if p.cur().Kind != token.LBrace {
		if tag != "" {
			if t, ok := p.scopes.LookupTag(tag); ok {
				return t
			}
		}
		return intType
	}
	p.advance()
	var next int64
	for p.cur().Kind != token.RBrace {
		name := p.expectIdent()
		if p.cur().Kind == token.Eq {
			p.advance()
			next = p.parseConstIntExprValue()
		}
		p.scopes.Declare(&Symbol{Kind: SymEnumConst, Name: name, Ty: intType, EnumVal: next})
		next++
		if p.cur().Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RBrace)
	if tag != "" {
		p.scopes.DeclareTag(tag, intType)
	}
	return intType
}

// parseDeclarator parses a pointer prefix followed by a direct declarator
// (spec.md §4.2: "declarator grammar into a pair (type, identifier)").
func (p *Parser) parseDeclarator(base *types.Type) (string, *types.Type) {
	ty := base
	for p.cur().Kind == token.Star {
		p.advance()
		for p.cur().Kind == token.KwConst || p.cur().Kind == token.KwVolatile || p.cur().Kind == token.KwRestrict {
			p.advance()
		}
		ty = p.arena.Ptr(ty)
	}
	return p.parseDirectDeclarator(ty)
}

func (p *Parser) parseDirectDeclarator(base *types.Type) (string, *types.Type) {
	name := ""
	if p.cur().Kind == token.Ident {
		name = p.cur().Text
		p.advance()
	}
	return name, p.parseDeclaratorSuffixes(base)
}

// parseDeclaratorSuffixes parses zero or more trailing `[n]`/`(params)`
// forms, recursing before wrapping base so chained suffixes combine in
// the correct order (`int a[3][4]` is 3 arrays of (array of 4 int), read
// left to right). Function-pointer-style `(*fp)(...)` grouping declarators
// are not supported by this subset.
func (p *Parser) parseDeclaratorSuffixes(base *types.Type) *types.Type {
	switch p.cur().Kind {
	case token.LBracket:
		p.advance()
		if p.cur().Kind == token.RBracket {
			p.advance()
			elem := p.parseDeclaratorSuffixes(base)
			return p.arena.IncompleteArrayOf(elem)
		}
		e := p.parseConditionalExpr()
		p.expect(token.RBracket)
		elem := p.parseDeclaratorSuffixes(base)
		if ce, ok := e.(*ConstExpr); ok && !ce.IsFloat {
			return p.arena.ArrayOf(elem, int(ce.IntVal))
		}
		p.lastVLABound = e
		return p.arena.VLAOf(elem)
	case token.LParen:
		p.advance()
		params, names, variadic := p.parseParamList()
		p.expect(token.RParen)
		ret := p.parseDeclaratorSuffixes(base)
		p.lastParamNames = names
		return p.arena.FuncType(ret, params, variadic)
	default:
		return base
	}
}

// parseParamList parses a function declarator's parameter-type list,
// decaying array parameters to pointers per C11 (spec.md glossary "Decay").
func (p *Parser) parseParamList() ([]*types.Type, []string, bool) {
	var paramTypes []*types.Type
	var names []string
	if p.cur().Kind == token.RParen {
		return paramTypes, names, false
	}
	if p.cur().Kind == token.KwVoid && p.peek(1).Kind == token.RParen {
		p.advance()
		return paramTypes, names, false
	}
	variadic := false
	for {
		if p.cur().Kind == token.Ellipsis {
			p.advance()
			variadic = true
			break
		}
		base, _ := p.parseDeclSpecifiers()
		name, ty := p.parseDeclarator(base)
		if ty.IsArray() {
			ty = p.arena.Ptr(ty.Elem)
		}
		paramTypes = append(paramTypes, ty)
		names = append(names, name)
		if p.cur().Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	return paramTypes, names, variadic
}

// parseTypeName parses a type-name (abstract declarator with no
// identifier), used by `sizeof(T)`, casts, compound literals, and
// `va_arg(ap, T)` (spec.md §4.2).
func (p *Parser) parseTypeName() *types.Type {
	base, _ := p.parseDeclSpecifiers()
	ty := base
	for p.cur().Kind == token.Star {
		p.advance()
		ty = p.arena.Ptr(ty)
	}
	_, full := p.parseDirectDeclarator(ty)
	return full
}

// parseConstIntExprValue evaluates a constant integer expression, used for
// array bounds, enumerator values, and case labels.
func (p *Parser) parseConstIntExprValue() int64 {
	e := p.parseConditionalExpr()
	if ce, ok := e.(*ConstExpr); ok && !ce.IsFloat {
		return ce.IntVal
	}
	diag.Fatalf(diag.Semantic, e.GetPos(), "expected a constant integer expression")
	return 0
}

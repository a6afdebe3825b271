package preprocess

import (
	"mincc/internal/diag"
	"mincc/internal/source"
	"mincc/internal/token"
)

// Expander expands a stream of unexpanded tokens into a stream of expanded
// tokens (spec.md §4.1). It sits directly on top of the raw token source
// (post-directive-stripping, see directive.go) and recursively rescans
// its own output, the standard way to implement recursive macro expansion:
// an expansion's result tokens are pushed back onto the raw stream and
// re-read through the same Next() loop, so a macro invocation nested
// inside another macro's body is expanded exactly like one written by the
// programmer.
type Expander struct {
	raw    *pushbackReader // raw pp-tokens, pre-expansion
	macros *MacroTable
}

func NewExpander(macros *MacroTable, rawNext func() token.Token) *Expander {
	return &Expander{raw: newPushbackReader(rawNext), macros: macros}
}

// PushFront re-queues tokens at the front of the raw stream, so they are
// read (and expanded) next. Nothing in this package calls it.
func (e *Expander) PushFront(toks ...token.Token) { e.raw.pushFront(toks...) }

// NextUnexpanded returns the next token without attempting macro expansion
// (spec.md §4.1: NEXT_U() in the grounding source). Directive processing
// does not use it: directive.go reads raw tokens off the tokenizer itself.
func (e *Expander) NextUnexpanded() token.Token { return e.raw.next() }

// Next returns the next fully macro-expanded token.
func (e *Expander) Next() token.Token {
	for {
		tok := e.raw.next()
		if tok.Kind == token.EOF || tok.Kind != token.Ident {
			return tok
		}
		if tok.Hidden(tok.Text) {
			return tok
		}
		m, ok := e.macros.Lookup(tok.Text)
		if !ok {
			return tok
		}
		if !m.IsFunction {
			result := e.substituteObjectLike(tok, m)
			e.raw.pushFront(result...)
			continue
		}

		// Function-like macros require an immediately following '(' —
		// if it is not there, the identifier is not a macro invocation.
		next := e.raw.next()
		if next.Kind != token.LParen {
			e.raw.pushFront(next)
			return tok
		}
		argList := e.parseArgs(m)
		result := e.substituteFunctionLike(tok, m, argList)
		e.raw.pushFront(result...)
	}
}

// expandTokenList runs a nested expansion pass over an isolated token
// list (used for macro-argument pre-expansion) without disturbing the
// outer raw stream.
func (e *Expander) expandTokenList(toks []token.Token) []token.Token {
	sub := NewExpander(e.macros, sliceSource(toks))
	var out []token.Token
	for {
		t := sub.Next()
		if t.Kind == token.EOF {
			break
		}
		out = append(out, t)
	}
	return out
}

func sliceSource(toks []token.Token) func() token.Token {
	i := 0
	return func() token.Token {
		if i >= len(toks) {
			return token.Token{Kind: token.EOF}
		}
		t := toks[i]
		i++
		return t
	}
}

func (e *Expander) substituteObjectLike(trigger token.Token, m *Macro) []token.Token {
	pasted := pasteTokens(trigger.Pos, m.Body)
	out := make([]token.Token, len(pasted))
	for i, t := range pasted {
		out[i] = t.UnionHideset(trigger.Hideset).WithHidden(m.Name)
	}
	return out
}

// parseArgs splits the comma-separated, paren-nested argument list
// following a function-like macro's '(' (already consumed) into raw,
// unexpanded token lists, one per top-level comma (spec.md §4.1).
func (e *Expander) parseArgs(m *Macro) [][]token.Token {
	var argsList [][]token.Token
	var cur []token.Token
	depth := 0
	sawAny := false
	for {
		t := e.raw.next()
		if t.Kind == token.EOF {
			diag.Fatalf(diag.Preprocessor, t.Pos, "unterminated argument list invoking macro %q", m.Name)
		}
		switch {
		case t.Kind == token.LParen:
			depth++
			cur = append(cur, t)
			sawAny = true
		case t.Kind == token.RParen:
			if depth == 0 {
				if sawAny || len(cur) > 0 || len(argsList) > 0 {
					argsList = append(argsList, cur)
				}
				return argsList
			}
			depth--
			cur = append(cur, t)
		case t.Kind == token.Comma && depth == 0:
			argsList = append(argsList, cur)
			cur = nil
			sawAny = true
		default:
			cur = append(cur, t)
			sawAny = true
		}
	}
}

// substituteFunctionLike implements stringification (#param), token
// concatenation (##), __VA_ARGS__ binding, and argument pre-expansion
// (spec.md §4.1).
func (e *Expander) substituteFunctionLike(trigger token.Token, m *Macro, argsList [][]token.Token) []token.Token {
	bound := bindArgs(m, argsList)

	var expandedCache = map[string][]token.Token{}
	expandedArg := func(name string) []token.Token {
		if v, ok := expandedCache[name]; ok {
			return v
		}
		raw := bound[name]
		v := e.expandTokenList(raw)
		expandedCache[name] = v
		return v
	}

	var body []token.Token
	n := len(m.Body)
	for i := 0; i < n; i++ {
		t := m.Body[i]

		if t.Kind == token.Hash && i+1 < n && isParamRef(m, m.Body[i+1].Text) {
			argToks := bound[m.Body[i+1].Text]
			body = append(body, stringize(t.Pos, argToks))
			i++
			continue
		}

		isParam := t.Kind == token.Ident && isParamRef(m, t.Text)

		pastesNext := i+1 < n && m.Body[i+1].Kind == token.HashHash
		pastesPrev := i > 0 && m.Body[i-1].Kind == token.HashHash

		if isParam && (pastesNext || pastesPrev) {
			// Operand of ## uses the unexpanded argument tokens.
			argToks := bound[t.Text]
			if len(argToks) == 0 {
				body = append(body, token.Token{Kind: token.PlaceMarker, Pos: t.Pos})
			} else {
				body = append(body, argToks...)
			}
			continue
		}
		if t.Kind == token.HashHash {
			body = append(body, t)
			continue
		}
		if isParam {
			body = append(body, expandedArg(t.Text)...)
			continue
		}
		body = append(body, t)
	}

	pasted := pasteTokens(trigger.Pos, body)
	out := make([]token.Token, 0, len(pasted))
	for _, t := range pasted {
		if t.Kind == token.PlaceMarker {
			continue
		}
		out = append(out, t.UnionHideset(trigger.Hideset).WithHidden(m.Name))
	}
	return out
}

func isParamRef(m *Macro, name string) bool {
	if m.IsVariadic && name == "__VA_ARGS__" {
		return true
	}
	for _, p := range m.Params {
		if p == name {
			return true
		}
	}
	return false
}

// bindArgs maps each formal parameter name (and __VA_ARGS__, when
// variadic) to its raw argument token list, per spec.md §4.1: "a variadic
// parameter ... binds the rest as __VA_ARGS__".
func bindArgs(m *Macro, argsList [][]token.Token) map[string][]token.Token {
	bound := make(map[string][]token.Token)
	for i, p := range m.Params {
		if i < len(argsList) {
			bound[p] = trimArgWhitespace(argsList[i])
		} else {
			bound[p] = nil
		}
	}
	if m.IsVariadic {
		var rest []token.Token
		start := len(m.Params)
		for i := start; i < len(argsList); i++ {
			if i > start {
				rest = append(rest, token.Token{Kind: token.Comma, Text: ","})
			}
			rest = append(rest, argsList[i]...)
		}
		bound["__VA_ARGS__"] = trimArgWhitespace(rest)
	}
	return bound
}

func trimArgWhitespace(toks []token.Token) []token.Token {
	start, end := 0, len(toks)
	for start < end && toks[start].Kind == token.EOF {
		start++
	}
	return toks[start:end]
}

// stringize implements the # operator: render the unexpanded argument
// tokens as a single string literal, per the usual pp-token spelling
// rules (whitespace collapsed to a single space between tokens, embedded
// quotes/backslashes in string/char literal tokens escaped).
func stringize(pos source.Position, toks []token.Token) token.Token {
	var b []byte
	b = append(b, '"')
	for i, t := range toks {
		if i > 0 && t.WhitespaceBefore {
			b = append(b, ' ')
		}
		if t.Kind == token.StringLit || t.Kind == token.CharLit {
			for _, c := range []byte(t.Text) {
				if c == '"' || c == '\\' {
					b = append(b, '\\')
				}
				b = append(b, c)
			}
		} else {
			b = append(b, []byte(t.Text)...)
		}
	}
	b = append(b, '"')
	return token.Token{Kind: token.StringLit, Pos: pos, Text: string(b)}
}

// pasteTokens implements the ## operator: adjacent operand/##/operand
// triples are merged by concatenating their spelling and retokenizing the
// result, which must itself form a single valid preprocessing token
// (spec.md §4.1).
func pasteTokens(pos source.Position, toks []token.Token) []token.Token {
	var out []token.Token
	for i := 0; i < len(toks); i++ {
		if toks[i].Kind == token.HashHash {
			continue
		}
		if i+1 < len(toks) && toks[i+1].Kind == token.HashHash {
			left := toks[i]
			// find right operand, skipping the ## itself; a run of
			// consecutive ## (e.g. a ## ## b, not legal C but defensive)
			// is treated as pasting left directly to the next operand.
			j := i + 2
			for j < len(toks) && toks[j].Kind == token.HashHash {
				j++
			}
			if j >= len(toks) {
				out = append(out, left)
				i = j - 1
				continue
			}
			right := toks[j]
			merged := pasteOne(pos, left, right)
			// the merged token may itself be adjacent to another ##,
			// so feed it back through the loop rather than appending.
			rest := append([]token.Token{merged}, toks[j+1:]...)
			toks = append(toks[:i], rest...)
			i--
			continue
		}
		out = append(out, toks[i])
	}
	return out
}

func pasteOne(pos source.Position, left, right token.Token) token.Token {
	if left.Kind == token.PlaceMarker {
		return right
	}
	if right.Kind == token.PlaceMarker {
		return left
	}
	text := left.Text + right.Text
	toks := TokenizeAll("<paste>", []byte(text))
	nonEOF := 0
	for _, t := range toks {
		if t.Kind != token.EOF {
			nonEOF++
		}
	}
	if nonEOF != 1 {
		diag.Fatalf(diag.Preprocessor, pos, "pasting %q and %q does not form a valid preprocessing token", left.Text, right.Text)
	}
	merged := toks[0]
	merged.Pos = left.Pos
	merged.WhitespaceBefore = left.WhitespaceBefore
	return merged
}

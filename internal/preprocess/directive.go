package preprocess

import (
	"mincc/internal/diag"
	"mincc/internal/source"
	"mincc/internal/token"
)

// condState tracks one level of #if/#ifdef/#ifndef nesting.
type condState struct {
	active       bool // this branch's tokens should be passed through
	everActive   bool // some branch of this chain has already been taken
	parentActive bool // the enclosing conditional, if any, was active
}

// Preprocessor is the top-level driver: it owns the include stack, the
// macro table, the conditional-inclusion stack, and wraps everything in an
// Expander so that Next() yields the fully macro-expanded token stream the
// parser consumes (spec.md §4.1).
type Preprocessor struct {
	inputs   *InputStack
	macros   *MacroTable
	expander *Expander

	pending []token.Token // raw-level pushback, used while scanning directive lines
	conds   []condState
}

func NewPreprocessor(paths SearchPaths, macros *MacroTable) *Preprocessor {
	p := &Preprocessor{
		inputs: NewInputStack(paths),
		macros: macros,
	}
	p.expander = NewExpander(macros, p.rawNext)
	return p
}

func (p *Preprocessor) Open(path string) error { return p.inputs.PushMain(path) }

// Define predefines a macro from the command line (-D NAME[=VAL], spec.md
// §6); an omitted VAL defines NAME as 1, matching the usual cc1 behavior.
func (p *Preprocessor) Define(nameEqVal string) {
	name, body := splitDefine(nameEqVal)
	toks := TokenizeAll("<command-line>", []byte(body))
	var bodyToks []token.Token
	for _, t := range toks {
		if t.Kind == token.EOF {
			break
		}
		bodyToks = append(bodyToks, t)
	}
	p.macros.Define(source.Position{File: "<command-line>"}, &Macro{Name: name, Body: bodyToks})
}

func (p *Preprocessor) Undef(name string) { p.macros.Undef(name) }

func splitDefine(s string) (name, body string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:]
		}
	}
	return s, "1"
}

// Next returns the next fully expanded token for the parser.
func (p *Preprocessor) Next() token.Token { return p.expander.Next() }

func (p *Preprocessor) skipping() bool {
	for _, c := range p.conds {
		if !c.active {
			return true
		}
	}
	return false
}

func (p *Preprocessor) pushRaw(t token.Token) { p.pending = append(p.pending, t) }

func (p *Preprocessor) tokenizerNext() token.Token {
	for {
		top := p.inputs.Top()
		if top == nil {
			return token.Token{Kind: token.EOF}
		}
		t := top.Tok.Next()
		if t.Kind == token.EOF {
			p.inputs.Pop()
			continue
		}
		return t
	}
}

// rawNext is the bottom of the pipeline: it pulls tokens straight off the
// active input's tokenizer, intercepting '#' directive lines and
// conditional-skip regions before anything reaches the Expander.
func (p *Preprocessor) rawNext() token.Token {
	for {
		var t token.Token
		if n := len(p.pending); n > 0 {
			t = p.pending[n-1]
			p.pending = p.pending[:n-1]
		} else {
			t = p.tokenizerNext()
		}

		if t.Kind == token.EOF {
			return t
		}

		if t.FirstOfLine && t.Kind == token.Hash {
			p.handleDirectiveLine()
			continue
		}

		if p.skipping() {
			continue
		}
		return t
	}
}

// readLine collects raw tokens up to (not including) the next
// first-of-line token, which is pushed back for the following rawNext
// call.
func (p *Preprocessor) readLine() []token.Token {
	var out []token.Token
	for {
		t := p.tokenizerNext()
		if t.Kind == token.EOF {
			return out
		}
		if t.FirstOfLine {
			p.pushRaw(t)
			return out
		}
		out = append(out, t)
	}
}

func (p *Preprocessor) handleDirectiveLine() {
	name := p.tokenizerNext()
	if name.FirstOfLine {
		// a bare '#' on its own line is a null directive; the directive
		// name token already belongs to the next line.
		p.pushRaw(name)
		return
	}
	if name.Kind != token.Ident {
		if p.skipping() {
			p.readLine()
			return
		}
		diag.Fatalf(diag.Preprocessor, name.Pos, "invalid preprocessing directive")
	}

	switch name.Text {
	case "define":
		if p.skipping() {
			p.readLine()
			return
		}
		p.directiveDefine(name.Pos)
	case "undef":
		if p.skipping() {
			p.readLine()
			return
		}
		p.directiveUndef(name.Pos)
	case "include":
		if p.skipping() {
			p.readLine()
			return
		}
		p.directiveInclude(name.Pos)
	case "if":
		p.directiveIf(name.Pos)
	case "ifdef":
		p.directiveIfdef(name.Pos, true)
	case "ifndef":
		p.directiveIfdef(name.Pos, false)
	case "elif":
		p.directiveElif(name.Pos)
	case "else":
		p.directiveElse(name.Pos)
	case "endif":
		p.directiveEndif(name.Pos)
	case "error":
		if p.skipping() {
			p.readLine()
			return
		}
		p.directiveError(name.Pos)
	case "pragma", "line":
		// Not part of this subset's testable surface; consume and ignore.
		p.readLine()
	default:
		if p.skipping() {
			p.readLine()
			return
		}
		diag.Fatalf(diag.Preprocessor, name.Pos, "unknown directive %q", name.Text)
	}
}

func (p *Preprocessor) directiveDefine(pos source.Position) {
	line := p.readLine()
	if len(line) == 0 {
		diag.Fatalf(diag.Preprocessor, pos, "macro name missing")
	}
	nameTok := line[0]
	if nameTok.Kind != token.Ident {
		diag.Fatalf(diag.Preprocessor, nameTok.Pos, "macro name must be an identifier")
	}
	rest := line[1:]

	m := &Macro{Name: nameTok.Text}
	if len(rest) > 0 && rest[0].Kind == token.LParen && !rest[0].WhitespaceBefore {
		m.IsFunction = true
		i := 1
		for i < len(rest) && rest[i].Kind != token.RParen {
			if rest[i].Kind == token.Ellipsis {
				m.IsVariadic = true
				i++
				continue
			}
			if rest[i].Kind == token.Ident {
				m.Params = append(m.Params, rest[i].Text)
			}
			i++
			if i < len(rest) && rest[i].Kind == token.Comma {
				i++
			}
		}
		if i >= len(rest) {
			diag.Fatalf(diag.Preprocessor, pos, "unterminated macro parameter list")
		}
		rest = rest[i+1:]
	}
	m.Body = rest
	p.macros.Define(pos, m)
}

func (p *Preprocessor) directiveUndef(pos source.Position) {
	line := p.readLine()
	if len(line) == 0 || line[0].Kind != token.Ident {
		diag.Fatalf(diag.Preprocessor, pos, "macro name missing after #undef")
	}
	p.macros.Undef(line[0].Text)
}

func (p *Preprocessor) directiveInclude(pos source.Position) {
	top := p.inputs.Top()
	if top == nil {
		diag.Fatalf(diag.Preprocessor, pos, "#include outside any input")
	}
	top.Tok.SetHeaderMode(true)
	t := p.tokenizerNext()
	top.Tok.SetHeaderMode(false)

	var header string
	var system bool
	if t.Kind == token.Header {
		header = t.Text
		system = header[0] == '<'
	} else {
		// The operand was not a literal header-name token (e.g. it came
		// from a macro-expanded #include); macro-expand the rest of the
		// line and re-render it as a header-name string.
		rest := append([]token.Token{t}, p.readLine()...)
		expanded := p.expander.expandTokenList(rest)
		if len(expanded) == 0 {
			diag.Fatalf(diag.Preprocessor, pos, "malformed #include operand")
		}
		var b []byte
		for _, et := range expanded {
			b = append(b, []byte(et.Text)...)
		}
		header = string(b)
		system = len(header) > 0 && header[0] == '<'
	}
	// drain the rest of the physical line.
	p.readLine()
	p.inputs.Open(pos, header, system)
}

func (p *Preprocessor) directiveError(pos source.Position) {
	line := p.readLine()
	msg := ""
	for i, t := range line {
		if i > 0 {
			msg += " "
		}
		msg += t.Text
	}
	diag.Fatalf(diag.Preprocessor, pos, "#error %s", msg)
}

func (p *Preprocessor) directiveIf(pos source.Position) {
	parentActive := !p.skipping()
	line := p.readLine()
	var val int64
	if parentActive {
		val = p.evalConstExpr(pos, line)
	}
	p.conds = append(p.conds, condState{
		active:       parentActive && val != 0,
		everActive:   parentActive && val != 0,
		parentActive: parentActive,
	})
}

func (p *Preprocessor) directiveIfdef(pos source.Position, wantDefined bool) {
	parentActive := !p.skipping()
	line := p.readLine()
	defined := false
	if len(line) > 0 && line[0].Kind == token.Ident {
		defined = p.macros.Defined(line[0].Text)
	}
	active := parentActive && (defined == wantDefined)
	p.conds = append(p.conds, condState{active: active, everActive: active, parentActive: parentActive})
}

func (p *Preprocessor) directiveElif(pos source.Position) {
	if len(p.conds) == 0 {
		diag.Fatalf(diag.Preprocessor, pos, "#elif without #if")
	}
	top := &p.conds[len(p.conds)-1]
	line := p.readLine()
	if !top.parentActive || top.everActive {
		top.active = false
		return
	}
	val := p.evalConstExpr(pos, line)
	top.active = val != 0
	top.everActive = top.everActive || top.active
}

func (p *Preprocessor) directiveElse(pos source.Position) {
	if len(p.conds) == 0 {
		diag.Fatalf(diag.Preprocessor, pos, "#else without #if")
	}
	p.readLine()
	top := &p.conds[len(p.conds)-1]
	top.active = top.parentActive && !top.everActive
	top.everActive = true
}

func (p *Preprocessor) directiveEndif(pos source.Position) {
	if len(p.conds) == 0 {
		diag.Fatalf(diag.Preprocessor, pos, "#endif without #if")
	}
	p.readLine()
	p.conds = p.conds[:len(p.conds)-1]
}

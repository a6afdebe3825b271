package preprocess

import (
	"mincc/internal/diag"
	"mincc/internal/source"
	"mincc/internal/token"
)

// Macro is one #define'd name: {parameters, body-tokens, is_function_like,
// is_variadic} (spec.md §4.1).
type Macro struct {
	Name        string
	Params      []string
	Body        []token.Token
	IsFunction  bool
	IsVariadic  bool
}

// MacroTable maps name -> definition, mutated by #define/#undef.
type MacroTable struct {
	defs map[string]*Macro
}

func NewMacroTable() *MacroTable {
	return &MacroTable{defs: make(map[string]*Macro)}
}

func (mt *MacroTable) Lookup(name string) (*Macro, bool) {
	m, ok := mt.defs[name]
	return m, ok
}

func (mt *MacroTable) Defined(name string) bool {
	_, ok := mt.defs[name]
	return ok
}

// Define installs m, unless name is already defined with a materially
// different body/signature, which is a hard error (spec.md §4.1:
// "Redefinition with a different body fails").
func (mt *MacroTable) Define(pos source.Position, m *Macro) {
	if existing, ok := mt.defs[m.Name]; ok && !sameDefinition(existing, m) {
		diag.Fatalf(diag.Preprocessor, pos, "redefinition of macro %q with a different body", m.Name)
	}
	mt.defs[m.Name] = m
}

func sameDefinition(a, b *Macro) bool {
	if a.IsFunction != b.IsFunction || a.IsVariadic != b.IsVariadic {
		return false
	}
	if len(a.Params) != len(b.Params) || len(a.Body) != len(b.Body) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Body {
		if a.Body[i].Kind != b.Body[i].Kind || a.Body[i].Text != b.Body[i].Text {
			return false
		}
		if a.Body[i].WhitespaceBefore != b.Body[i].WhitespaceBefore {
			return false
		}
	}
	return true
}

func (mt *MacroTable) Undef(name string) {
	delete(mt.defs, name)
}

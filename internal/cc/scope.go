package cc

import "mincc/internal/types"

// SymbolKind tags what an identifier resolves to (spec.md §3 "Symbol
// tables": "mapping identifiers to one of {variable, global variable,
// function, enum constant, typedef}").
type SymbolKind int

const (
	SymVar SymbolKind = iota
	SymGlobalVar
	SymFunc
	SymEnumConst
	SymTypedef
)

// Symbol is one scope entry.
type Symbol struct {
	Kind SymbolKind
	Name string
	Ty   *types.Type

	// SymVar/SymGlobalVar: the IR variable once a function body is being
	// lowered. Left nil for globals and for declarations seen only at
	// parse time before lowering assigns one.
	VarID int
	HasVarID bool

	EnumVal int64 // SymEnumConst

	// Label is the assembler symbol backing a SymGlobalVar: the source
	// name itself for file-scope globals, a mangled per-declaration label
	// for a block-scope static (spec.md §3: static-storage-duration
	// locals share a global's addressing, not a frame slot).
	Label string
}

// Scope is one nested lexical scope (spec.md §3: "Scopes nest LIFO across
// blocks and function bodies").
type Scope struct {
	parent  *Scope
	symbols map[string]*Symbol
	tags    map[string]*types.Type // struct/union/enum tags declared in this scope
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, symbols: make(map[string]*Symbol), tags: make(map[string]*types.Type)}
}

// ScopeStack is the parser's nested-scope table (spec.md §3 "Symbol
// tables").
type ScopeStack struct {
	top *Scope
}

func NewScopeStack() *ScopeStack {
	s := &ScopeStack{}
	s.Push()
	return s
}

func (s *ScopeStack) Push() { s.top = newScope(s.top) }
func (s *ScopeStack) Pop()  { s.top = s.top.parent }

// Declare installs sym in the innermost scope, overwriting any prior entry
// of the same name in that scope (redeclaration diagnostics, if desired,
// are the caller's job; this layer just stores).
func (s *ScopeStack) Declare(sym *Symbol) {
	s.top.symbols[sym.Name] = sym
}

// Lookup walks outward from the innermost scope.
func (s *ScopeStack) Lookup(name string) (*Symbol, bool) {
	for sc := s.top; sc != nil; sc = sc.parent {
		if sym, ok := sc.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupTypedef reports whether name currently names a typedef, which the
// tokenizer's post-processing stage (per spec.md §4.2) needs to keep the
// grammar LL(1): the parser consults this before deciding whether a bare
// identifier starts a declaration or an expression.
func (s *ScopeStack) LookupTypedef(name string) (*types.Type, bool) {
	sym, ok := s.Lookup(name)
	if !ok || sym.Kind != SymTypedef {
		return nil, false
	}
	return sym.Ty, true
}

func (s *ScopeStack) DeclareTag(name string, t *types.Type) {
	if name == "" {
		return
	}
	s.top.tags[name] = t
}

func (s *ScopeStack) LookupTag(name string) (*types.Type, bool) {
	for sc := s.top; sc != nil; sc = sc.parent {
		if t, ok := sc.tags[name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (s *ScopeStack) AtFileScope() bool { return s.top.parent == nil }

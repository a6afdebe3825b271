// Package types implements the C type system: an interned, arena-indexed
// recursive Type graph (spec.md §3, §9 Design Notes: "arena + indices, not
// ownership-sharing: each type node identifier refers to an arena slot,
// pointer-to-self is a recursive index").
//
// Generalized from y1yang0-falcon/ast/type.go's TypeKind enum and
// pointer-identity singleton basic types (TInt, TLong, ...; t == TInt),
// extended from 10 toy-language kinds to the full C11 simple-type and
// aggregate-type lattice.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the recursive Type node (spec.md §3).
type Kind int

const (
	Simple Kind = iota
	Pointer
	Array
	VLA           // variable-length array; size is an expression evaluated at block entry
	IncompleteArray
	Function
	Struct
	Union
)

// Simple enumerates the C11 arithmetic/void/bool basic types.
type Simple int

const (
	Void Simple = iota
	Bool
	Char
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LLong
	ULLong
	Float
	Double
	LDouble
)

var simpleNames = map[Simple]string{
	Void: "void", Bool: "_Bool", Char: "char", SChar: "signed char",
	UChar: "unsigned char", Short: "short", UShort: "unsigned short",
	Int: "int", UInt: "unsigned int", Long: "long", ULong: "unsigned long",
	LLong: "long long", ULLong: "unsigned long long",
	Float: "float", Double: "double", LDouble: "long double",
}

// sizes / alignments for the LP64 SysV data model this compiler targets
// (spec.md concrete scenario 4: sizeof(struct S) == 24 on LP64).
var simpleSizes = map[Simple]int{
	Void: 0, Bool: 1, Char: 1, SChar: 1, UChar: 1,
	Short: 2, UShort: 2, Int: 4, UInt: 4,
	Long: 8, ULong: 8, LLong: 8, ULLong: 8,
	Float: 4, Double: 8, LDouble: 16,
}

var simpleRank = map[Simple]int{
	Bool: 0, Char: 1, SChar: 1, UChar: 1,
	Short: 2, UShort: 2, Int: 3, UInt: 3,
	Long: 4, ULong: 4, LLong: 5, ULLong: 5,
}

func (s Simple) IsFloating() bool { return s == Float || s == Double || s == LDouble }
func (s Simple) IsUnsigned() bool {
	switch s {
	case Bool, UChar, UShort, UInt, ULong, ULLong:
		return true
	default:
		return false
	}
}
func (s Simple) IsInteger() bool { return !s.IsFloating() && s != Void }
func (s Simple) Size() int       { return simpleSizes[s] }
func (s Simple) Rank() int       { return simpleRank[s] }

// Member is one field of a struct/union type, with its byte offset already
// computed (structs are laid out eagerly at construction, matching the
// spec's "computed type is nonempty after construction" invariant).
type Member struct {
	Name   string
	Type   *Type
	Offset int
}

// Type is the recursive node. Equal types share identity: pointer equality
// == structural equality, enforced by always constructing types through the
// interning constructors below (Ptr, ArrayOf, ...) rather than with &Type{}
// literals outside this package.
type Type struct {
	Kind Kind

	Simple Simple // valid when Kind == Simple

	// Pointer / Array / VLA / IncompleteArray: one child type.
	Elem *Type
	// Array: fixed length. VLA: length is resolved at IR-build time and
	// is not representable in the type itself (spec.md §3: the type only
	// discriminates VLA from Array; the actual bound is an IR value).
	ArrayLen int

	// Function
	Params      []*Type
	Return      *Type
	IsVariadic  bool

	// Struct / Union
	Tag     string
	Members []Member
	size    int
	align   int
}

// arena interns every constructed Type by a structural key so that two
// requests for "pointer to int" return the identical *Type.
type arena struct {
	pointers map[*Type]*Type
	arrays   map[arrayKey]*Type
	vlas     map[*Type]*Type
	incompletes map[*Type]*Type
	functions   map[string]*Type
	structsByTag map[string]*Type
	unionsByTag  map[string]*Type
	anonSeq      int
}

type arrayKey struct {
	elem *Type
	n    int
}

func newArena() *arena {
	return &arena{
		pointers:     make(map[*Type]*Type),
		arrays:       make(map[arrayKey]*Type),
		vlas:         make(map[*Type]*Type),
		incompletes:  make(map[*Type]*Type),
		functions:    make(map[string]*Type),
		structsByTag: make(map[string]*Type),
		unionsByTag:  make(map[string]*Type),
	}
}

// Arena is the per-translation-unit interning table. One Arena lives for
// the lifetime of a compilation, matching spec.md §3 Lifecycle ("Types are
// interned for the life of the compilation unit").
type Arena struct {
	a        *arena
	simples  map[Simple]*Type
}

func NewArena() *Arena {
	ar := &Arena{a: newArena(), simples: make(map[Simple]*Type)}
	for s := Void; s <= LDouble; s++ {
		ar.simples[s] = &Type{Kind: Simple, Simple: s}
	}
	return ar
}

func (ar *Arena) SimpleType(s Simple) *Type { return ar.simples[s] }

func (ar *Arena) Ptr(elem *Type) *Type {
	if t, ok := ar.a.pointers[elem]; ok {
		return t
	}
	t := &Type{Kind: Pointer, Elem: elem, size: 8, align: 8}
	ar.a.pointers[elem] = t
	return t
}

func (ar *Arena) ArrayOf(elem *Type, n int) *Type {
	k := arrayKey{elem, n}
	if t, ok := ar.a.arrays[k]; ok {
		return t
	}
	t := &Type{Kind: Array, Elem: elem, ArrayLen: n}
	t.size = elem.Size() * n
	t.align = elem.Align()
	ar.a.arrays[k] = t
	return t
}

func (ar *Arena) VLAOf(elem *Type) *Type {
	if t, ok := ar.a.vlas[elem]; ok {
		return t
	}
	t := &Type{Kind: VLA, Elem: elem, align: elem.Align()}
	ar.a.vlas[elem] = t
	return t
}

func (ar *Arena) IncompleteArrayOf(elem *Type) *Type {
	if t, ok := ar.a.incompletes[elem]; ok {
		return t
	}
	t := &Type{Kind: IncompleteArray, Elem: elem, align: elem.Align()}
	ar.a.incompletes[elem] = t
	return t
}

// FuncType interns by a structural signature string; function types are
// rare enough in a translation unit that this is cheap and simple.
func (ar *Arena) FuncType(ret *Type, params []*Type, variadic bool) *Type {
	key := funcKey(ret, params, variadic)
	if t, ok := ar.a.functions[key]; ok {
		return t
	}
	t := &Type{Kind: Function, Return: ret, Params: params, IsVariadic: variadic}
	ar.a.functions[key] = t
	return t
}

func funcKey(ret *Type, params []*Type, variadic bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%p(", ret)
	for _, p := range params {
		fmt.Fprintf(&b, "%p,", p)
	}
	if variadic {
		b.WriteString("...")
	}
	b.WriteByte(')')
	return b.String()
}

// NewStructTag either returns the existing (possibly still-incomplete)
// struct type for tag, or creates a fresh incomplete one. Self-referential
// structs (struct Node *next inside struct Node) are representable because
// the *Type pointer is stable across DefineMembers.
func (ar *Arena) NewStructTag(tag string) *Type {
	return ar.tagType(ar.a.structsByTag, Struct, tag)
}

func (ar *Arena) NewUnionTag(tag string) *Type {
	return ar.tagType(ar.a.unionsByTag, Union, tag)
}

func (ar *Arena) tagType(table map[string]*Type, kind Kind, tag string) *Type {
	if tag == "" {
		ar.a.anonSeq++
		tag = fmt.Sprintf("<anon%d>", ar.a.anonSeq)
		return &Type{Kind: kind, Tag: tag}
	}
	if t, ok := table[tag]; ok {
		return t
	}
	t := &Type{Kind: kind, Tag: tag}
	table[tag] = t
	return t
}

// DefineMembers lays out m eagerly (SysV alignment rules: each member is
// aligned to its own alignment, struct size rounds up to its alignment),
// completing a previously-incomplete struct/union type in place so that
// every outstanding pointer to it observes the same layout.
func (t *Type) DefineMembers(members []Member, isUnion bool) {
	offset := 0
	align := 1
	for i := range members {
		m := &members[i]
		a := m.Type.Align()
		if a > align {
			align = a
		}
		if isUnion {
			m.Offset = 0
			if m.Type.Size() > t.size {
				t.size = m.Type.Size()
			}
			continue
		}
		offset = roundUp(offset, a)
		m.Offset = offset
		offset += m.Type.Size()
	}
	t.Members = members
	t.align = align
	if !isUnion {
		t.size = roundUp(offset, align)
	}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// Size returns the type's size in bytes. Incomplete aggregate/array types
// report 0 until completed.
func (t *Type) Size() int {
	switch t.Kind {
	case Simple:
		return t.Simple.Size()
	case Pointer:
		return 8
	case Array:
		return t.size
	case Struct, Union:
		return t.size
	default:
		return t.size
	}
}

func (t *Type) Align() int {
	switch t.Kind {
	case Simple:
		return t.Simple.Size()
	case Pointer:
		return 8
	default:
		if t.align == 0 {
			return 1
		}
		return t.align
	}
}

func (t *Type) IsInteger() bool { return t.Kind == Simple && t.Simple.IsInteger() }
func (t *Type) IsFloating() bool {
	return t.Kind == Simple && t.Simple.IsFloating()
}
func (t *Type) IsArithmetic() bool { return t.Kind == Simple && t.Simple != Void }
func (t *Type) IsPointer() bool    { return t.Kind == Pointer }
func (t *Type) IsVoidPointer() bool {
	return t.Kind == Pointer && t.Elem.Kind == Simple && t.Elem.Simple == Void
}
func (t *Type) IsArray() bool { return t.Kind == Array || t.Kind == VLA || t.Kind == IncompleteArray }
func (t *Type) IsScalar() bool {
	return t.IsArithmetic() || t.IsPointer()
}
func (t *Type) IsAggregate() bool { return t.Kind == Struct || t.Kind == Union }
func (t *Type) IsFunction() bool  { return t.Kind == Function }
func (t *Type) IsVoid() bool      { return t.Kind == Simple && t.Simple == Void }
func (t *Type) IsUnsigned() bool  { return t.Kind == Simple && t.Simple.IsUnsigned() }

// Member looks up a named field, returning nil if absent. Used by the
// get-member construction step (spec.md §4.2).
func (t *Type) Member(name string) *Member {
	for i := range t.Members {
		if t.Members[i].Name == name {
			return &t.Members[i]
		}
	}
	return nil
}

func (t *Type) String() string {
	switch t.Kind {
	case Simple:
		return simpleNames[t.Simple]
	case Pointer:
		return t.Elem.String() + " *"
	case Array:
		return fmt.Sprintf("%s[%d]", t.Elem.String(), t.ArrayLen)
	case VLA:
		return fmt.Sprintf("%s[*]", t.Elem.String())
	case IncompleteArray:
		return fmt.Sprintf("%s[]", t.Elem.String())
	case Function:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		variadicSuffix := ""
		if t.IsVariadic {
			variadicSuffix = ", ..."
		}
		return fmt.Sprintf("%s(%s%s)", t.Return.String(), strings.Join(parts, ", "), variadicSuffix)
	case Struct:
		return "struct " + t.Tag
	case Union:
		return "union " + t.Tag
	default:
		return "<bad type>"
	}
}

// Equal reports structural equality. Because every Type used by the
// compiler flows through an Arena's interning constructors, this almost
// always degenerates to pointer equality (spec.md §3); it is still defined
// structurally so two distinct Arenas (a theoretical possibility, not used
// in this single-TU compiler) compare sanely.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Simple:
		return t.Simple == o.Simple
	case Pointer, VLA, IncompleteArray:
		return t.Elem.Equal(o.Elem)
	case Array:
		return t.ArrayLen == o.ArrayLen && t.Elem.Equal(o.Elem)
	case Struct, Union:
		return t.Tag == o.Tag
	case Function:
		if len(t.Params) != len(o.Params) || t.IsVariadic != o.IsVariadic {
			return false
		}
		if !t.Return.Equal(o.Return) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		return true
	}
	return false
}

package token

// Assoc is operator associativity.
type Assoc int

const (
	LeftAssoc Assoc = iota
	RightAssoc
)

// Prec is one entry of the Pratt precedence table: a binding power and an
// associativity. Higher Level binds tighter.
type Prec struct {
	Level int
	Assoc Assoc
}

// Precedence is the single source of truth for infix operator binding
// power, consulted by both the real expression parser (internal/cc) and the
// preprocessor's #if/#elif constant-expression evaluator
// (internal/preprocess), per spec.md §9 Design Notes: "Keep as data...
// This matches both the expression parser and the #if evaluator."
//
// Levels follow C11's grammar precedence, high to low:
// 12 * / %   11 + -   10 << >>   9 < <= > >=   8 == !=
// 7 &   6 ^   5 |   4 &&   3 ||   2 ?:   1 = += ...   0 ,
var Precedence = map[Kind]Prec{
	Star:    {12, LeftAssoc},
	Slash:   {12, LeftAssoc},
	Percent: {12, LeftAssoc},

	Plus:  {11, LeftAssoc},
	Minus: {11, LeftAssoc},

	Shl: {10, LeftAssoc},
	Shr: {10, LeftAssoc},

	Lt: {9, LeftAssoc},
	Le: {9, LeftAssoc},
	Gt: {9, LeftAssoc},
	Ge: {9, LeftAssoc},

	EqEq: {8, LeftAssoc},
	Ne:   {8, LeftAssoc},

	Amp: {7, LeftAssoc},

	Caret: {6, LeftAssoc},

	Pipe: {5, LeftAssoc},

	AmpAmp: {4, LeftAssoc},

	PipePipe: {3, LeftAssoc},

	Question: {2, RightAssoc},

	Eq:        {1, RightAssoc},
	PlusEq:    {1, RightAssoc},
	MinusEq:   {1, RightAssoc},
	StarEq:    {1, RightAssoc},
	SlashEq:   {1, RightAssoc},
	PercentEq: {1, RightAssoc},
	ShlEq:     {1, RightAssoc},
	ShrEq:     {1, RightAssoc},
	AmpEq:     {1, RightAssoc},
	CaretEq:   {1, RightAssoc},
	PipeEq:    {1, RightAssoc},

	Comma: {0, LeftAssoc},
}

// BindingPower returns the precedence of k as an infix operator, and
// whether k participates in the precedence table at all.
func BindingPower(k Kind) (Prec, bool) {
	p, ok := Precedence[k]
	return p, ok
}

// IsAssignment reports whether k is one of the `=`, `+=`, ... family, which
// the construction pipeline (spec.md §4.2) retargets specially for pointer
// lhs operands.
func IsAssignment(k Kind) bool {
	switch k {
	case Eq, PlusEq, MinusEq, StarEq, SlashEq, PercentEq, ShlEq, ShrEq, AmpEq, CaretEq, PipeEq:
		return true
	default:
		return false
	}
}

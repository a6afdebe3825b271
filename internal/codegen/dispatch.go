package codegen

import "mincc/internal/ir"

// arithEntry is one dispatch-table row: the integer and floating-point
// mnemonics for a binary/unary arithmetic opcode (spec.md §4.5 "A dispatch
// table maps simple arithmetic IR opcodes to a short sequence of assembly
// templates parameterized by operand size").
type arithEntry struct {
	intMnemonic   string // suffix-less; intSuffix appends b/w/l/q
	floatMnemonicS string // single-precision (ss) form
	floatMnemonicD string // double-precision (sd) form
	isFloatOnly   bool
	isIntOnly     bool
	isCompare     bool
	setcc         string // for compare ops: the setCC suffix (e, ne, l, le, g, ge)
}

// arithTable is the dispatch table itself (spec.md §4.5), indexed by
// opcode. Comparison opcodes lower to cmp + setcc + movzbl, matching the
// conventional x86-64 boolean-result idiom.
var arithTable = map[ir.Op]arithEntry{
	ir.OpAdd: {intMnemonic: "add", floatMnemonicS: "addss", floatMnemonicD: "addsd"},
	ir.OpSub: {intMnemonic: "sub", floatMnemonicS: "subss", floatMnemonicD: "subsd"},
	ir.OpMul: {intMnemonic: "imul", floatMnemonicS: "mulss", floatMnemonicD: "mulsd"},
	ir.OpDiv: {intMnemonic: "idiv", floatMnemonicS: "divss", floatMnemonicD: "divsd"},
	ir.OpMod: {intMnemonic: "idiv", isIntOnly: true},
	ir.OpAnd: {intMnemonic: "and", isIntOnly: true},
	ir.OpOr:  {intMnemonic: "or", isIntOnly: true},
	ir.OpXor: {intMnemonic: "xor", isIntOnly: true},
	ir.OpShl: {intMnemonic: "shl", isIntOnly: true},
	ir.OpShr: {intMnemonic: "sar", isIntOnly: true},

	ir.OpEq: {isCompare: true, setcc: "e"},
	ir.OpNe: {isCompare: true, setcc: "ne"},
	ir.OpLt: {isCompare: true, setcc: "l"},
	ir.OpLe: {isCompare: true, setcc: "le"},
	ir.OpGt: {isCompare: true, setcc: "g"},
	ir.OpGe: {isCompare: true, setcc: "ge"},
}

// intSuffix returns the AT&T size suffix (b/w/l/q) for a byte size.
func intSuffix(size int64) string {
	switch {
	case size == 1:
		return "b"
	case size == 2:
		return "w"
	case size == 4:
		return "l"
	default:
		return "q"
	}
}

// legacyRegNames holds the irregular sub-register spellings for the eight
// original x86 registers (al/ax/eax/rax, not a uniform suffix scheme); r8-r15
// get uniform b/w/d suffixes instead and fall through the default case.
var legacyRegNames = map[string][4]string{
	"rax": {"al", "ax", "eax", "rax"},
	"rbx": {"bl", "bx", "ebx", "rbx"},
	"rcx": {"cl", "cx", "ecx", "rcx"},
	"rdx": {"dl", "dx", "edx", "rdx"},
	"rsi": {"sil", "si", "esi", "rsi"},
	"rdi": {"dil", "di", "edi", "rdi"},
	"rbp": {"bpl", "bp", "ebp", "rbp"},
	"rsp": {"spl", "sp", "esp", "rsp"},
}

// regForSize returns the sub-register name for base at the given byte
// width. base is the 64-bit name, e.g. "r10" or "rax".
func regForSize(base string, size int64) string {
	idx := 3
	switch size {
	case 1:
		idx = 0
	case 2:
		idx = 1
	case 4:
		idx = 2
	}
	if names, ok := legacyRegNames[base]; ok {
		return names[idx]
	}
	// r8-r15: uniform suffix scheme (r10b/r10w/r10d/r10).
	switch size {
	case 1:
		return base + "b"
	case 2:
		return base + "w"
	case 4:
		return base + "d"
	default:
		return base
	}
}

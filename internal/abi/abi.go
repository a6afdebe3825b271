// Package abi implements the pluggable calling-convention layer: System V
// AMD64 and Microsoft x64, behind one capability interface consulted both
// while IR is built (to shape calls/returns) and during code generation
// (for preamble and va_arg), per spec.md §4.4 and Design Notes §9 ("model
// as a capability object passed through the IR and codegen layers, not as
// global function pointers"). Grounded on the six-hook interface in
// original_source/src/abi/abi.h and on y1yang0-falcon/compile/codegen/
// arch_x86.go's ArchABI interface.
package abi

import (
	"mincc/internal/ir"
	"mincc/internal/types"
)

// Emitter is the small slice of internal/asmtext's writer that ABI hooks
// need to emit a preamble or a va_arg sequence. Kept local to this package
// (rather than importing internal/asmtext) so abi has no dependency on the
// text emitter's own formatting concerns.
type Emitter interface {
	Instr(mnemonic string, operands ...string)
	Comment(text string)
	Label(name string, exported bool)
}

// Class is a SysV-style eightbyte classification (spec.md §4.4 "classified
// by eightbyte (INTEGER/SSE/MEMORY)"). The Microsoft ABI reuses the same
// enum for its coarser per-argument classification.
type Class int

const (
	ClassInteger Class = iota
	ClassSSE
	ClassMemory
)

// ArgKind says where one argument ultimately lives after call lowering.
type ArgKind int

const (
	ArgInReg    ArgKind = iota // one or two eightbytes in integer/SSE registers
	ArgOnStack                 // passed on the stack, at StackOffset
	ArgByPointer               // too large for registers; passed by hidden pointer
)

// ArgLocation describes where one source-level argument is placed, the
// result of LowerCall's classification pass (spec.md §4.4 "Call lowering").
type ArgLocation struct {
	Kind        ArgKind
	IntRegs     []string // e.g. ["rdi"] or ["rdi","rsi"] for a two-eightbyte INTEGER/INTEGER aggregate
	SSERegs     []string
	StackOffset int64
	Size        int64
}

// ReturnLocation describes where a function's return value lives.
type ReturnLocation struct {
	ByHiddenPointer bool   // true: caller passes a pointer, callee writes through it
	HiddenPtrReg    string // the register carrying that pointer (SysV: rdi, MS: rcx)
	IntRegs         []string
	SSERegs         []string
}

// CallPlan is the full result of classifying one call's arguments, enough
// for internal/codegen to actually place values and adjust the stack
// (spec.md §4.4 "Call lowering": "compute a stack-adjust ... place each
// argument ... set registers, emit the call, pull the return value, undo").
type CallPlan struct {
	Args        []ArgLocation
	Return      ReturnLocation
	StackAdjust int64 // bytes to reserve above rsp before the call, already 16-aligned
}

// FuncABIData is the opaque per-function record spec.md §3/§4.4 describes
// ("an opaque ABI-data pointer whose layout is defined by the active
// ABI"), attached to ir.Function.ABIData by NewFunction.
type FuncABIData struct {
	ParamLocs    []ArgLocation
	ReturnLoc    ReturnLocation
	IsVariadic   bool
	RegSaveWords int   // SysV: number of integer/SSE register-save slots reserved for va_start
	RegSaveBytes int64 // SysV: size in bytes of the register-save area BuildFrame must reserve (0 if not variadic)
	ShadowSpace  int64 // MS: 32, SysV: 0
}

// ABI is the fixed capability interface both calling conventions implement
// (spec.md §4.4 / §9): call lowering, function entry/return shaping,
// preamble emission, and the two va_arg-family hooks. Exactly one Go method
// per hook makes the "duplicated hook assignment" bug class (see
// SPEC_FULL.md §11) structurally impossible — there is no field to
// shadow.
type ABI interface {
	Name() string

	// LowerCall classifies argTypes (the static types of a call's actual
	// arguments) and retTyp (the callee's return type) into a CallPlan.
	LowerCall(argTypes []*types.Type, retTyp *types.Type, variadic bool) CallPlan

	// NewFunction classifies fn's own parameters/return type and attaches
	// the resulting FuncABIData to fn.ABIData.
	NewFunction(fn *ir.Function, paramTypes []*types.Type)

	// LowerReturn reports where fn must place its return value, reading
	// back the FuncABIData NewFunction attached.
	LowerReturn(fn *ir.Function) ReturnLocation

	// EmitPreamble writes the ABI-specific part of function entry (SysV:
	// the register-save area spill for a variadic function, based at
	// regSaveBase relative to rbp; MS: none beyond the shadow space
	// codegen already reserves). regSaveBase is internal/codegen's
	// BuildFrame-computed Frame.RegSaveAreaOffset, passed through rather
	// than assumed, so the save area is never laid out twice.
	EmitPreamble(e Emitter, fn *ir.Function, regSaveBase int64)

	// EmitVaStart writes the instructions initializing a va_list at the
	// IR's va_start site. regSaveBase is Frame.RegSaveAreaOffset, as above.
	EmitVaStart(e Emitter, fn *ir.Function, vaListBase string, regSaveBase int64)

	// EmitVaArg writes the instructions advancing vaListBase and leaving
	// the next argument's address in scratch, for argument type t. seq is
	// a value unique to this va_arg site within fn (internal/codegen
	// passes the result var's id), used to name the local labels an
	// overflow-area branch needs.
	EmitVaArg(e Emitter, fn *ir.Function, vaListBase string, t *types.Type, scratch string, seq int)
}

// roundUp16 rounds n up to the next multiple of 16, used by both ABIs'
// stack-adjust computation (spec.md §4.4).
func roundUp16(n int64) int64 {
	return (n + 15) &^ 15
}

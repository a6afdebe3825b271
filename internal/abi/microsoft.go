package abi

import (
	"fmt"

	"mincc/internal/ir"
	"mincc/internal/types"
)

var msIntArgRegs = []string{"rcx", "rdx", "r8", "r9"}
var msSSEArgRegs = []string{"xmm0", "xmm1", "xmm2", "xmm3"}

// Microsoft implements the Microsoft x64 ABI (spec.md §4.4). Unlike SysV,
// argument position is shared between the integer and SSE register files:
// the Nth argument consumes the Nth slot of *both* arrays, using whichever
// one matches its class.
type Microsoft struct{}

func NewMicrosoft() *Microsoft { return &Microsoft{} }

func (*Microsoft) Name() string { return "ms" }

// fitsRegister reports whether t can be passed/returned in a single 8-byte
// register as-is (spec.md §4.4: "aggregates that don't fit a single
// 1/2/4/8-byte register are passed by pointer").
func fitsRegister(t *types.Type) bool {
	if !t.IsAggregate() {
		return true
	}
	switch t.Size() {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}

func (m *Microsoft) LowerCall(argTypes []*types.Type, retTyp *types.Type, variadic bool) CallPlan {
	var locs []ArgLocation
	var stackOff int64

	for i, at := range argTypes {
		size := int64(at.Size())
		byPointer := at.IsAggregate() && !fitsRegister(at)

		if i < len(msIntArgRegs) {
			loc := ArgLocation{Kind: ArgInReg, Size: size}
			if byPointer {
				loc.Kind = ArgByPointer
				loc.IntRegs = []string{msIntArgRegs[i]}
			} else if classifySimple(at) == ClassSSE {
				loc.SSERegs = []string{msSSEArgRegs[i]}
			} else {
				loc.IntRegs = []string{msIntArgRegs[i]}
			}
			locs = append(locs, loc)
			continue
		}

		if byPointer {
			locs = append(locs, ArgLocation{Kind: ArgByPointer, StackOffset: stackOff, Size: size})
		} else {
			locs = append(locs, ArgLocation{Kind: ArgOnStack, StackOffset: stackOff, Size: size})
		}
		stackOff += 8
	}

	ret := m.classifyReturn(retTyp)

	// spec.md §4.4: "A 32-byte shadow space is reserved above stack
	// arguments." The overall adjust is the larger of the shadow space and
	// the stack-argument area, 16-aligned.
	adjust := roundUp16(max64(32, stackOff))

	return CallPlan{Args: locs, Return: ret, StackAdjust: adjust}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func (m *Microsoft) classifyReturn(t *types.Type) ReturnLocation {
	if t == nil || t.IsVoid() {
		return ReturnLocation{}
	}
	if !fitsRegister(t) {
		return ReturnLocation{ByHiddenPointer: true, HiddenPtrReg: "rcx"}
	}
	if classifySimple(t) == ClassSSE && !t.IsAggregate() {
		return ReturnLocation{SSERegs: []string{"xmm0"}}
	}
	return ReturnLocation{IntRegs: []string{"rax"}}
}

func (m *Microsoft) NewFunction(fn *ir.Function, paramTypes []*types.Type) {
	plan := m.LowerCall(paramTypes, fn.ReturnType, fn.IsVariadic)
	fn.ABIData = &FuncABIData{
		ParamLocs:   plan.Args,
		ReturnLoc:   plan.Return,
		IsVariadic:  fn.IsVariadic,
		ShadowSpace: 32,
	}
}

func (m *Microsoft) LowerReturn(fn *ir.Function) ReturnLocation {
	return fn.ABIData.(*FuncABIData).ReturnLoc
}

// EmitPreamble spills the four integer argument registers into the
// caller-reserved shadow space, the conventional MS x64 home-and-spill
// pattern used so a variadic callee can address its named+variadic
// arguments uniformly through rbp-relative offsets. The shadow space lives
// above rbp, not in internal/codegen's Frame-managed region below it, so
// regSaveBase (SysV-only) goes unused here.
func (m *Microsoft) EmitPreamble(e Emitter, fn *ir.Function, regSaveBase int64) {
	data, ok := fn.ABIData.(*FuncABIData)
	if !ok || !data.IsVariadic {
		return
	}
	e.Comment("ms x64: home variadic integer argument registers")
	for i, reg := range msIntArgRegs {
		e.Instr("movq", fmt.Sprintf("%%%s", reg), fmt.Sprintf("%d(%%rbp)", 16+i*8))
	}
}

// EmitVaStart sets vaListBase to point just past the named arguments, in
// the home area (spec.md §4.4: "va_list is a pointer"). regSaveBase is
// unused: MS x64 has no separate register-save area.
func (m *Microsoft) EmitVaStart(e Emitter, fn *ir.Function, vaListBase string, regSaveBase int64) {
	data := fn.ABIData.(*FuncABIData)
	e.Comment("va_start: ms va_list is a plain pointer into the home area")
	e.Instr("leaq", fmt.Sprintf("%d(%%rbp)", 16+len(data.ParamLocs)*8), "%rax")
	e.Instr("movq", "%rax", fmt.Sprintf("(%%%s)", vaListBase))
}

// EmitVaArg advances vaListBase by 8 bytes and leaves the argument's
// address in scratch, dereferencing once more if t is passed by pointer
// under this ABI (spec.md §4.4: "va_arg advances by 8 bytes and loads (by
// pointer if the argument is aggregate)"). seq is unused: this ABI's
// va_arg is a single straight-line sequence, no overflow-area branch.
func (m *Microsoft) EmitVaArg(e Emitter, fn *ir.Function, vaListBase string, t *types.Type, scratch string, seq int) {
	e.Instr("movq", fmt.Sprintf("(%%%s)", vaListBase), fmt.Sprintf("%%%s", scratch))
	if !fitsRegister(t) {
		e.Instr("movq", fmt.Sprintf("(%%%s)", scratch), fmt.Sprintf("%%%s", scratch))
	}
	e.Instr("addq", "$8", fmt.Sprintf("(%%%s)", vaListBase))
}

package abi

import (
	"fmt"

	"mincc/internal/ir"
	"mincc/internal/types"
)

var sysvIntArgRegs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
var sysvSSEArgRegs = []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"}

// SysV implements the System V AMD64 ABI (spec.md §4.4).
type SysV struct{}

func NewSysV() *SysV { return &SysV{} }

func (*SysV) Name() string { return "sysv" }

func (s *SysV) LowerCall(argTypes []*types.Type, retTyp *types.Type, variadic bool) CallPlan {
	intUsed, sseUsed := 0, 0
	var stackOff int64
	var locs []ArgLocation

	for _, at := range argTypes {
		classes, memory := classifyArgSysV(at)
		size := int64(at.Size())
		if memory {
			locs = append(locs, ArgLocation{Kind: ArgByPointer, Size: size})
			continue
		}
		nInt, nSSE := 0, 0
		for _, c := range classes {
			if c == ClassInteger {
				nInt++
			} else {
				nSSE++
			}
		}
		if intUsed+nInt <= len(sysvIntArgRegs) && sseUsed+nSSE <= len(sysvSSEArgRegs) {
			loc := ArgLocation{Kind: ArgInReg, Size: size}
			for _, c := range classes {
				if c == ClassInteger {
					loc.IntRegs = append(loc.IntRegs, sysvIntArgRegs[intUsed])
					intUsed++
				} else {
					loc.SSERegs = append(loc.SSERegs, sysvSSEArgRegs[sseUsed])
					sseUsed++
				}
			}
			locs = append(locs, loc)
		} else {
			locs = append(locs, ArgLocation{Kind: ArgOnStack, StackOffset: stackOff, Size: size})
			stackOff += roundUp16At8(size)
		}
	}

	ret := s.classifyReturn(retTyp)

	return CallPlan{
		Args:        locs,
		Return:      ret,
		StackAdjust: roundUp16(stackOff),
	}
}

// roundUp16At8 rounds a per-argument stack slot size up to 8 bytes (the
// SysV stack-argument slot granularity); the overall adjustment is rounded
// to 16 separately.
func roundUp16At8(n int64) int64 { return (n + 7) &^ 7 }

func (s *SysV) classifyReturn(t *types.Type) ReturnLocation {
	if t == nil || t.IsVoid() {
		return ReturnLocation{}
	}
	if t.IsAggregate() && t.Size() > 16 {
		return ReturnLocation{ByHiddenPointer: true, HiddenPtrReg: "rdi"}
	}
	if t.IsAggregate() {
		classes := classifyEightbytes(t)
		var ret ReturnLocation
		intRegs := []string{"rax", "rdx"}
		sseRegs := []string{"xmm0", "xmm1"}
		ii, si := 0, 0
		for _, c := range classes {
			if c == ClassInteger {
				ret.IntRegs = append(ret.IntRegs, intRegs[ii])
				ii++
			} else {
				ret.SSERegs = append(ret.SSERegs, sseRegs[si])
				si++
			}
		}
		return ret
	}
	if classifySimple(t) == ClassSSE {
		return ReturnLocation{SSERegs: []string{"xmm0"}}
	}
	return ReturnLocation{IntRegs: []string{"rax"}}
}

func (s *SysV) NewFunction(fn *ir.Function, paramTypes []*types.Type) {
	plan := s.LowerCall(paramTypes, fn.ReturnType, fn.IsVariadic)
	regSaveWords := 0
	var regSaveBytes int64
	if fn.IsVariadic {
		regSaveWords = len(sysvIntArgRegs) + len(sysvSSEArgRegs)
		regSaveBytes = int64(len(sysvIntArgRegs))*8 + int64(len(sysvSSEArgRegs))*16
	}
	fn.ABIData = &FuncABIData{
		ParamLocs:    plan.Args,
		ReturnLoc:    plan.Return,
		IsVariadic:   fn.IsVariadic,
		RegSaveWords: regSaveWords,
		RegSaveBytes: regSaveBytes,
	}
}

func (s *SysV) LowerReturn(fn *ir.Function) ReturnLocation {
	return fn.ABIData.(*FuncABIData).ReturnLoc
}

// EmitPreamble spills the integer and SSE argument registers into the
// register-save area for a variadic function, so va_start/va_arg can walk
// it later (spec.md §4.4 "va_list is the 24-byte register-save-area/
// overflow-arg-area record"). regSaveBase is internal/codegen's
// Frame.RegSaveAreaOffset, which BuildFrame reserves 176 bytes for
// whenever fn is variadic, so this spill can never land on top of an
// ordinary variable's slot.
func (s *SysV) EmitPreamble(e Emitter, fn *ir.Function, regSaveBase int64) {
	data, ok := fn.ABIData.(*FuncABIData)
	if !ok || !data.IsVariadic {
		return
	}
	e.Comment("sysv register-save area spill for va_start")
	for i, reg := range sysvIntArgRegs {
		e.Instr("movq", fmt.Sprintf("%%%s", reg), fmt.Sprintf("%d(%%rbp)", regSaveBase+int64(i)*8))
	}
	for i, reg := range sysvSSEArgRegs {
		e.Instr("movaps", fmt.Sprintf("%%%s", reg), fmt.Sprintf("%d(%%rbp)", regSaveBase+48+int64(i)*16))
	}
}

// EmitVaStart initializes the register-save-area/overflow-arg-area record
// at vaListBase (spec.md §4.4). regSaveBase is Frame.RegSaveAreaOffset, the
// same base EmitPreamble spilled into.
func (s *SysV) EmitVaStart(e Emitter, fn *ir.Function, vaListBase string, regSaveBase int64) {
	data := fn.ABIData.(*FuncABIData)
	nInt, nSSE := 0, 0
	for _, l := range data.ParamLocs {
		nInt += len(l.IntRegs)
		nSSE += len(l.SSERegs)
	}
	e.Comment("va_start: gp_offset/fp_offset/overflow_arg_area/reg_save_area")
	e.Instr("movl", fmt.Sprintf("$%d", nInt*8), fmt.Sprintf("(%%%s)", vaListBase))
	e.Instr("movl", fmt.Sprintf("$%d", 48+nSSE*16), fmt.Sprintf("4(%%%s)", vaListBase))
	e.Instr("leaq", "16(%rbp)", "%rax")
	e.Instr("movq", "%rax", fmt.Sprintf("8(%%%s)", vaListBase))
	e.Instr("leaq", fmt.Sprintf("%d(%%rbp)", regSaveBase), "%rax")
	e.Instr("movq", "%rax", fmt.Sprintf("16(%%%s)", vaListBase))
}

// EmitVaArg advances the appropriate offset field and leaves the next
// argument's address in scratch (spec.md §4.4), branching to the
// overflow_arg_area path once gp_offset/fp_offset has exhausted the
// register-save area (spec.md §4.4 "advance the offset or load from the
// overflow area"). seq names this call site's pair of local labels so
// multiple va_arg sites in the same function don't collide.
func (s *SysV) EmitVaArg(e Emitter, fn *ir.Function, vaListBase string, t *types.Type, scratch string, seq int) {
	overflowLabel := fmt.Sprintf(".Lvaarg_overflow%d", seq)
	doneLabel := fmt.Sprintf(".Lvaarg_done%d", seq)

	var offsetField string
	var limit, bump int
	if classifySimple(t) == ClassSSE && !t.IsAggregate() {
		e.Comment("va_arg: SSE class, bump fp_offset or fall through to overflow area")
		offsetField = fmt.Sprintf("4(%%%s)", vaListBase)
		limit, bump = 176, 16
	} else {
		e.Comment("va_arg: INTEGER class, bump gp_offset or fall through to overflow area")
		offsetField = fmt.Sprintf("(%%%s)", vaListBase)
		limit, bump = 48, 8
	}

	e.Instr("movl", offsetField, "%eax")
	e.Instr("cmpl", fmt.Sprintf("$%d", limit), "%eax")
	e.Instr("jae", overflowLabel)

	e.Instr("movq", fmt.Sprintf("16(%%%s)", vaListBase), fmt.Sprintf("%%%s", scratch))
	e.Instr("addq", "%rax", fmt.Sprintf("%%%s", scratch))
	e.Instr("addl", fmt.Sprintf("$%d", bump), offsetField)
	e.Instr("jmp", doneLabel)

	e.Label(overflowLabel, false)
	e.Instr("movq", fmt.Sprintf("8(%%%s)", vaListBase), fmt.Sprintf("%%%s", scratch))
	e.Instr("addq", "$8", fmt.Sprintf("8(%%%s)", vaListBase))

	e.Label(doneLabel, false)
}

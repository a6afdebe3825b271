package codegen

import (
	"mincc/internal/abi"
	"mincc/internal/asmtext"
	"mincc/internal/ir"
	"mincc/internal/types"
)

// lowerCall lowers one call instruction through the active ABI's
// LowerCall classification (spec.md §4.4 "Call lowering"): adjust the
// stack, place each argument, set the hidden-pointer/al-count
// conventions, emit the call, and pull the result back into its slot.
func (e *Emitter) lowerCall(fn *ir.Function, frame *Frame, instr *ir.Instr) {
	call := instr.Call
	if call == nil {
		return
	}
	argTypes := make([]*types.Type, len(call.Args))
	for i, v := range call.Args {
		argTypes[i] = fn.Var(v).Type
	}
	plan := e.ABI.LowerCall(argTypes, call.ResultTyp, call.IsVariadic)

	if plan.StackAdjust > 0 {
		e.W.Instr("subq", asmtext.Imm(plan.StackAdjust), asmtext.Reg("rsp"))
	}

	for i, loc := range plan.Args {
		v := call.Args[i]
		switch loc.Kind {
		case abi.ArgInReg:
			if isFloatVar(fn, v) {
				for _, r := range loc.SSERegs {
					e.loadFloat(fn, frame, v, r)
				}
			} else {
				for _, r := range loc.IntRegs {
					e.loadInt(fn, frame, v, r)
				}
			}
		case abi.ArgOnStack:
			size := int64(fn.Var(v).Size)
			if isFloatVar(fn, v) {
				e.loadFloat(fn, frame, v, scratchFloat0)
				mnemonic := "movss"
				if size == 8 {
					mnemonic = "movsd"
				}
				e.W.Instr(mnemonic, asmtext.XMM(scratchFloat0), asmtext.Mem(loc.StackOffset, "rsp"))
			} else {
				e.loadInt(fn, frame, v, scratchInt0)
				e.W.Instr("mov"+intSuffix(size), asmtext.Reg(regForSize(scratchInt0, size)), asmtext.Mem(loc.StackOffset, "rsp"))
			}
		case abi.ArgByPointer:
			e.W.Instr("leaq", e.varMem(frame, v), asmtext.Reg(scratchInt0))
			if len(loc.IntRegs) > 0 {
				e.W.Instr("movq", asmtext.Reg(scratchInt0), asmtext.Reg(loc.IntRegs[0]))
			} else {
				e.W.Instr("movq", asmtext.Reg(scratchInt0), asmtext.Mem(loc.StackOffset, "rsp"))
			}
		}
	}

	if plan.Return.ByHiddenPointer {
		e.W.Instr("leaq", e.varMem(frame, instr.Result), asmtext.Reg(scratchInt0))
		e.W.Instr("movq", asmtext.Reg(scratchInt0), asmtext.Reg(plan.Return.HiddenPtrReg))
	}
	if call.IsVariadic {
		// SysV: %al carries the count of vector registers used for
		// variadic arguments, per the calling convention's own va_start
		// contract; harmless (ignored) under the Microsoft ABI.
		e.W.Instr("movb", asmtext.Imm(int64(countSSEArgs(plan))), asmtext.Reg("al"))
	}

	if call.Indirect {
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		e.W.Instr("call", asmtext.IndirectCall(scratchInt0))
	} else {
		e.W.Instr("call", call.Callee)
	}

	if plan.StackAdjust > 0 {
		e.W.Instr("addq", asmtext.Imm(plan.StackAdjust), asmtext.Reg("rsp"))
	}

	if !instr.HasResult || call.ResultTyp == nil || call.ResultTyp.IsVoid() || plan.Return.ByHiddenPointer {
		return
	}
	if len(plan.Return.SSERegs) > 0 {
		mnemonic := "movss"
		if fn.Var(instr.Result).Size == 8 {
			mnemonic = "movsd"
		}
		e.W.Instr(mnemonic, asmtext.XMM("xmm0"), e.varMem(frame, instr.Result))
		return
	}
	size := int64(fn.Var(instr.Result).Size)
	e.W.Instr("mov"+intSuffix(size), asmtext.Reg(regForSize("rax", size)), e.varMem(frame, instr.Result))
}

// countSSEArgs counts how many of plan's arguments were placed in SSE
// registers, for the SysV variadic %al convention.
func countSSEArgs(plan abi.CallPlan) int {
	n := 0
	for _, a := range plan.Args {
		if a.Kind == abi.ArgInReg && len(a.SSERegs) > 0 {
			n++
		}
	}
	return n
}

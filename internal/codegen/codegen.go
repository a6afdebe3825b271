package codegen

import (
	"fmt"
	"math"

	"mincc/internal/abi"
	"mincc/internal/asmtext"
	"mincc/internal/ir"
	"mincc/internal/types"
)

// Fixed scratch registers (spec.md §1 explicit non-goal: "register
// allocation beyond a fixed scratch-register scheme"). Every operand lives
// in its stack slot between instructions; these two integer and two SSE
// registers carry operands mid-instruction (rax, rcx and rdx are also used
// where an instruction needs them: division, shift counts, byte copies),
// mirroring
// y1yang0-falcon/compile/codegen/asm_x86.go's own scratch-register
// rationale (it reserves r10 and xmm15 as caller-saved scratch that no
// calling convention assigns a meaning to).
const (
	scratchInt0   = "r10"
	scratchInt1   = "r11"
	scratchFloat0 = "xmm14"
	scratchFloat1 = "xmm15"
)

// CodeModel selects how label references are materialized (spec.md §4.5).
type CodeModel int

const (
	ModelSmall CodeModel = iota
	ModelLarge
)

// Emitter lowers one ir.Function at a time to assembly text, consulting
// the active ABI for calling-convention-shaped pieces (spec.md §4.4/§4.5).
type Emitter struct {
	W         *asmtext.Writer
	ABI       abi.ABI
	Model     CodeModel
	HalfAssemble bool
}

func NewEmitter(w *asmtext.Writer, a abi.ABI, model CodeModel) *Emitter {
	return &Emitter{W: w, ABI: a, Model: model}
}

// EmitFunction lowers fn's prologue, every block, and the epilogue
// (spec.md §4.5 "Prologue ... Epilogue per return block").
func (e *Emitter) EmitFunction(fn *ir.Function) {
	frame := BuildFrame(fn)

	e.W.Section(asmtext.Text)
	e.W.Label(fn.Name, fn.External)
	e.W.Instr("pushq", asmtext.Reg("rbp"))
	e.W.Instr("movq", asmtext.Reg("rsp"), asmtext.Reg("rbp"))
	if frame.Size > 0 {
		e.W.Instr("subq", asmtext.Imm(frame.Size), asmtext.Reg("rsp"))
	}
	e.ABI.EmitPreamble(e.W, fn, frame.RegSaveAreaOffset)
	e.emitParamSpill(fn, frame)

	for _, b := range fn.Blocks {
		e.W.Label(b.Label, false)
		for _, instr := range b.Instrs {
			if instr.Op == ir.OpPhi {
				continue // realized at the predecessor edge, not in place
			}
			e.lowerInstr(fn, frame, &instr)
		}
		e.lowerExit(fn, frame, b)
	}
}

// emitParamSpill copies every parameter out of its ABI-assigned entry-time
// register or caller stack slot into its own permanent frame slot, so the
// rest of a function's body can address parameters exactly like any other
// local (spec.md §4.5 "Prologue"). Var 0 is reserved by internal/cc's
// lowering pass as the hidden return-pointer parameter whenever
// ReturnLoc.ByHiddenPointer is set, spilled first and excluded from the
// ordinary per-declaration loop below.
func (e *Emitter) emitParamSpill(fn *ir.Function, frame *Frame) {
	data, ok := fn.ABIData.(*abi.FuncABIData)
	if !ok {
		return
	}
	if data.ReturnLoc.ByHiddenPointer {
		e.storeInt(fn, frame, 0, data.ReturnLoc.HiddenPtrReg)
	}
	params := paramVarsInOrder(fn)
	for i, loc := range data.ParamLocs {
		if i >= len(params) {
			break
		}
		e.spillOneParam(fn, frame, params[i], loc)
	}
}

// paramVarsInOrder returns fn's declared-parameter vars in declaration
// order, matching the order ABI.LowerCall classified them in.
func paramVarsInOrder(fn *ir.Function) []ir.VarID {
	var out []ir.VarID
	for i, v := range fn.Vars {
		if v.IsParam {
			out = append(out, ir.VarID(i))
		}
	}
	return out
}

func (e *Emitter) spillOneParam(fn *ir.Function, frame *Frame, v ir.VarID, loc abi.ArgLocation) {
	switch loc.Kind {
	case abi.ArgInReg:
		// A struct classified into more than one eightbyte register
		// shares the single-eightbyte limitation noted in call.go's own
		// ArgInReg placement: only the first register of each class is
		// actually restored.
		for _, r := range loc.IntRegs {
			e.storeInt(fn, frame, v, r)
		}
		for _, r := range loc.SSERegs {
			e.storeFloat(fn, frame, v, r)
		}
	case abi.ArgOnStack:
		size := int64(fn.Var(v).Size)
		if isFloatVar(fn, v) {
			mnemonic := "movss"
			if size == 8 {
				mnemonic = "movsd"
			}
			e.W.Instr(mnemonic, asmtext.Mem(16+loc.StackOffset, "rbp"), asmtext.XMM(scratchFloat0))
			e.storeFloat(fn, frame, v, scratchFloat0)
		} else {
			e.W.Instr("mov"+intSuffix(size), asmtext.Mem(16+loc.StackOffset, "rbp"), asmtext.Reg(regForSize(scratchInt0, size)))
			e.storeInt(fn, frame, v, scratchInt0)
		}
	case abi.ArgByPointer:
		if len(loc.IntRegs) > 0 {
			e.W.Instr("movq", asmtext.Reg(loc.IntRegs[0]), asmtext.Reg(scratchInt0))
		} else {
			e.W.Instr("movq", asmtext.Mem(16+loc.StackOffset, "rbp"), asmtext.Reg(scratchInt0))
		}
		e.copyParamByPointer(fn, frame, v, scratchInt0, loc.Size)
	}
}

// copyParamByPointer materializes a function's own local copy of an
// aggregate parameter the caller passed by hidden pointer, preserving C's
// pass-by-value semantics: writes through the parameter inside the
// function body must never be visible to the caller.
func (e *Emitter) copyParamByPointer(fn *ir.Function, frame *Frame, dst ir.VarID, srcAddrReg string, size int64) {
	e.W.Instr("leaq", e.varMem(frame, dst), asmtext.Reg(scratchInt1))
	remaining := size
	var off int64
	step := func(n int64, suf string) {
		for remaining >= n {
			tmp := regForSize("rax", n)
			e.W.Instr("mov"+suf, asmtext.Mem(off, srcAddrReg), asmtext.Reg(tmp))
			e.W.Instr("mov"+suf, asmtext.Reg(tmp), asmtext.Mem(off, scratchInt1))
			off += n
			remaining -= n
		}
	}
	step(8, "q")
	step(4, "l")
	step(2, "w")
	step(1, "b")
}

func (e *Emitter) varMem(frame *Frame, id ir.VarID) string {
	off, ok := frame.VarOffset[id]
	if !ok {
		off = 0
	}
	return asmtext.Mem(off, "rbp")
}

func (e *Emitter) loadInt(fn *ir.Function, frame *Frame, id ir.VarID, scratch string) {
	size := int64(fn.Var(id).Size)
	suf := intSuffix(size)
	e.W.Instr("mov"+suf, e.varMem(frame, id), asmtext.Reg(regForSize(scratch, size)))
}

func (e *Emitter) storeInt(fn *ir.Function, frame *Frame, id ir.VarID, scratch string) {
	size := int64(fn.Var(id).Size)
	suf := intSuffix(size)
	e.W.Instr("mov"+suf, asmtext.Reg(regForSize(scratch, size)), e.varMem(frame, id))
}

func (e *Emitter) loadFloat(fn *ir.Function, frame *Frame, id ir.VarID, scratch string) {
	mnemonic := "movss"
	if fn.Var(id).Type.Simple == types.Double || fn.Var(id).Type.Simple == types.LDouble {
		mnemonic = "movsd"
	}
	e.W.Instr(mnemonic, e.varMem(frame, id), asmtext.XMM(scratch))
}

func (e *Emitter) storeFloat(fn *ir.Function, frame *Frame, id ir.VarID, scratch string) {
	mnemonic := "movss"
	if fn.Var(id).Type.Simple == types.Double || fn.Var(id).Type.Simple == types.LDouble {
		mnemonic = "movsd"
	}
	e.W.Instr(mnemonic, asmtext.XMM(scratch), e.varMem(frame, id))
}

func isFloatVar(fn *ir.Function, id ir.VarID) bool {
	return fn.Var(id).Type.IsFloating()
}

// lowerInstr lowers one non-phi, non-terminator instruction (spec.md §4.5
// "Instruction lowering").
func (e *Emitter) lowerInstr(fn *ir.Function, frame *Frame, instr *ir.Instr) {
	switch instr.Op {
	case ir.OpConst:
		e.lowerConst(fn, frame, instr)
	case ir.OpLoad:
		e.copyVar(fn, frame, instr.Result, instr.Arg0)
	case ir.OpStore:
		e.copyVar(fn, frame, instr.Arg0, instr.Arg1)
	case ir.OpZeroMem:
		e.lowerZeroMem(fn, frame, instr)
	case ir.OpCopyMem:
		e.lowerCopyMem(fn, frame, instr)
	case ir.OpAddr:
		e.lowerAddr(fn, frame, instr)
	case ir.OpGetMember, ir.OpLoadOff, ir.OpStoreOff, ir.OpLoadBase, ir.OpStoreBase:
		e.lowerOffsetOp(fn, frame, instr)
	case ir.OpNeg, ir.OpNegF, ir.OpNot, ir.OpBool:
		e.lowerUnary(fn, frame, instr)
	case ir.OpIToF, ir.OpFToI, ir.OpFToF, ir.OpSExt, ir.OpZExt, ir.OpTrunc, ir.OpCast:
		e.lowerCast(fn, frame, instr)
	case ir.OpCall:
		e.lowerCall(fn, frame, instr)
	case ir.OpAlloca:
		// storage is pre-assigned its own frame slot; nothing to emit.
	case ir.OpVLAAlloc:
		e.lowerVLAAlloc(fn, frame, instr)
	case ir.OpVaStart:
		e.W.Instr("leaq", e.varMem(frame, instr.Arg0), asmtext.Reg(scratchInt0))
		e.ABI.EmitVaStart(e.W, fn, scratchInt0, frame.RegSaveAreaOffset)
	case ir.OpVaArg:
		e.W.Instr("leaq", e.varMem(frame, instr.Arg0), asmtext.Reg(scratchInt0))
		e.ABI.EmitVaArg(e.W, fn, scratchInt0, instr.CastTyp, scratchInt1, int(instr.Result))
		// EmitVaArg leaves the argument's address in scratchInt1; load the
		// value through it into the result slot.
		size := int64(fn.Var(instr.Result).Size)
		if isFloatVar(fn, instr.Result) {
			mnemonic := "movss"
			if size == 8 {
				mnemonic = "movsd"
			}
			e.W.Instr(mnemonic, asmtext.Mem(0, scratchInt1), asmtext.XMM(scratchFloat0))
			e.storeFloat(fn, frame, instr.Result, scratchFloat0)
		} else {
			e.W.Instr("mov"+intSuffix(size), asmtext.Mem(0, scratchInt1), asmtext.Reg(regForSize(scratchInt1, size)))
			e.storeInt(fn, frame, instr.Result, scratchInt1)
		}
	case ir.OpVaEnd, ir.OpVaCopy:
		// no-op on both ABIs' va_list representations used here.
	case ir.OpStackAdj:
		if instr.Delta < 0 {
			e.W.Instr("subq", asmtext.Imm(-instr.Delta), asmtext.Reg("rsp"))
		} else if instr.Delta > 0 {
			e.W.Instr("addq", asmtext.Imm(instr.Delta), asmtext.Reg("rsp"))
		}
	case ir.OpVLAAdjust:
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		e.W.Instr("addq", asmtext.Imm(15), asmtext.Reg(scratchInt0))
		e.W.Instr("andq", asmtext.Imm(-16), asmtext.Reg(scratchInt0))
		e.W.Instr("subq", asmtext.Reg(scratchInt0), asmtext.Reg("rsp"))
	default:
		e.lowerArith(fn, frame, instr)
	}
}

func (e *Emitter) copyVar(fn *ir.Function, frame *Frame, dst, src ir.VarID) {
	if isFloatVar(fn, src) {
		e.loadFloat(fn, frame, src, scratchFloat0)
		e.storeFloat(fn, frame, dst, scratchFloat0)
		return
	}
	e.loadInt(fn, frame, src, scratchInt0)
	e.storeInt(fn, frame, dst, scratchInt0)
}

func (e *Emitter) lowerConst(fn *ir.Function, frame *Frame, instr *ir.Instr) {
	c := instr.Const
	if c == nil {
		return
	}
	if c.Label != "" {
		if e.Model == ModelLarge {
			e.W.Instr("movabsq", asmtext.ImmLabel(c.Label, c.IntVal), asmtext.Reg(scratchInt0))
		} else {
			e.W.Instr("leaq", asmtext.RIPRelative(c.Label), asmtext.Reg(scratchInt0))
		}
		e.W.Instr("movq", asmtext.Reg(scratchInt0), e.varMem(frame, instr.Result))
		return
	}
	if c.IsFloat {
		// Floating constants are materialized via the integer scratch
		// register's bit pattern then stored to the slot, since no x86
		// instruction loads an immediate directly into an xmm register.
		size := int64(fn.Var(instr.Result).Size)
		if size == 4 {
			bits := math.Float32bits(float32(c.FloatVal))
			e.W.Instr("movl", asmtext.Imm(int64(bits)), asmtext.Reg(regForSize(scratchInt0, 4)))
		} else {
			bits := math.Float64bits(c.FloatVal)
			e.W.Instr("movabsq", asmtext.Imm(int64(bits)), asmtext.Reg(scratchInt0))
		}
		e.W.Instr("mov"+intSuffix(size), asmtext.Reg(regForSize(scratchInt0, size)), e.varMem(frame, instr.Result))
		return
	}
	size := int64(fn.Var(instr.Result).Size)
	e.W.Instr("mov"+intSuffix(size), asmtext.Imm(c.IntVal), e.varMem(frame, instr.Result))
}

func (e *Emitter) lowerAddr(fn *ir.Function, frame *Frame, instr *ir.Instr) {
	e.W.Instr("leaq", e.varMem(frame, instr.Arg0), asmtext.Reg(scratchInt0))
	e.W.Instr("movq", asmtext.Reg(scratchInt0), e.varMem(frame, instr.Result))
}

func (e *Emitter) lowerUnary(fn *ir.Function, frame *Frame, instr *ir.Instr) {
	switch instr.Op {
	case ir.OpNeg:
		size := int64(fn.Var(instr.Arg0).Size)
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		e.W.Instr("neg"+intSuffix(size), asmtext.Reg(regForSize(scratchInt0, size)))
		e.storeInt(fn, frame, instr.Result, scratchInt0)
	case ir.OpNegF:
		e.loadFloat(fn, frame, instr.Arg0, scratchFloat0)
		e.W.Instr("xorps", asmtext.XMM(scratchFloat1), asmtext.XMM(scratchFloat1))
		e.W.Instr("subss", asmtext.XMM(scratchFloat0), asmtext.XMM(scratchFloat1))
		e.storeFloat(fn, frame, instr.Result, scratchFloat1)
	case ir.OpNot:
		size := int64(fn.Var(instr.Arg0).Size)
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		e.W.Instr("not"+intSuffix(size), asmtext.Reg(regForSize(scratchInt0, size)))
		e.storeInt(fn, frame, instr.Result, scratchInt0)
	case ir.OpBool:
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		size := int64(fn.Var(instr.Arg0).Size)
		e.W.Instr("cmp"+intSuffix(size), asmtext.Imm(0), asmtext.Reg(regForSize(scratchInt0, size)))
		e.W.Instr("setne", asmtext.Reg(regForSize(scratchInt1, 1)))
		e.W.Instr("movzbl", asmtext.Reg(regForSize(scratchInt1, 1)), asmtext.Reg(regForSize(scratchInt1, 4)))
		e.storeInt(fn, frame, instr.Result, scratchInt1)
	}
}

func (e *Emitter) lowerArith(fn *ir.Function, frame *Frame, instr *ir.Instr) {
	entry, ok := arithTable[instr.Op]
	if !ok {
		return
	}
	if entry.isCompare {
		e.lowerCompare(fn, frame, instr, entry)
		return
	}

	if isFloatVar(fn, instr.Arg0) && !entry.isIntOnly {
		mnemonic := entry.floatMnemonicS
		if fn.Var(instr.Arg0).Type.Simple == types.Double || fn.Var(instr.Arg0).Type.Simple == types.LDouble {
			mnemonic = entry.floatMnemonicD
		}
		e.loadFloat(fn, frame, instr.Arg0, scratchFloat0)
		e.loadFloat(fn, frame, instr.Arg1, scratchFloat1)
		e.W.Instr(mnemonic, asmtext.XMM(scratchFloat1), asmtext.XMM(scratchFloat0))
		e.storeFloat(fn, frame, instr.Result, scratchFloat0)
		return
	}

	size := int64(fn.Var(instr.Arg0).Size)
	suf := intSuffix(size)
	e.loadInt(fn, frame, instr.Arg0, scratchInt0)
	e.loadInt(fn, frame, instr.Arg1, scratchInt1)

	switch instr.Op {
	case ir.OpDiv, ir.OpMod:
		e.W.Instr("mov"+suf, asmtext.Reg(regForSize(scratchInt0, size)), asmtext.Reg(regForSize("rax", size)))
		if size == 8 {
			e.W.Instr("cqto")
		} else {
			e.W.Instr("cltd")
		}
		e.W.Instr("idiv"+suf, asmtext.Reg(regForSize(scratchInt1, size)))
		if instr.Op == ir.OpDiv {
			e.W.Instr("movq", asmtext.Reg("rax"), asmtext.Reg(scratchInt0))
		} else {
			e.W.Instr("movq", asmtext.Reg("rdx"), asmtext.Reg(scratchInt0))
		}
	case ir.OpShl, ir.OpShr:
		e.W.Instr("movq", asmtext.Reg(scratchInt1), asmtext.Reg("rcx"))
		e.W.Instr(entry.intMnemonic+suf, asmtext.Reg(regForSize("rcx", 1)), asmtext.Reg(regForSize(scratchInt0, size)))
	default:
		e.W.Instr(entry.intMnemonic+suf, asmtext.Reg(regForSize(scratchInt1, size)), asmtext.Reg(regForSize(scratchInt0, size)))
	}
	e.storeInt(fn, frame, instr.Result, scratchInt0)
}

func (e *Emitter) lowerCompare(fn *ir.Function, frame *Frame, instr *ir.Instr, entry arithEntry) {
	if isFloatVar(fn, instr.Arg0) {
		mnemonic := "ucomiss"
		if fn.Var(instr.Arg0).Type.Simple == types.Double || fn.Var(instr.Arg0).Type.Simple == types.LDouble {
			mnemonic = "ucomisd"
		}
		e.loadFloat(fn, frame, instr.Arg0, scratchFloat0)
		e.loadFloat(fn, frame, instr.Arg1, scratchFloat1)
		e.W.Instr(mnemonic, asmtext.XMM(scratchFloat1), asmtext.XMM(scratchFloat0))
		e.W.Instr("set"+entry.setcc, asmtext.Reg(regForSize(scratchInt0, 1)))
		e.W.Instr("movzbl", asmtext.Reg(regForSize(scratchInt0, 1)), asmtext.Reg(regForSize(scratchInt0, 4)))
		e.storeInt(fn, frame, instr.Result, scratchInt0)
		return
	}
	size := int64(fn.Var(instr.Arg0).Size)
	e.loadInt(fn, frame, instr.Arg0, scratchInt0)
	e.loadInt(fn, frame, instr.Arg1, scratchInt1)
	e.W.Instr("cmp"+intSuffix(size), asmtext.Reg(regForSize(scratchInt1, size)), asmtext.Reg(regForSize(scratchInt0, size)))
	e.W.Instr("set"+entry.setcc, asmtext.Reg(regForSize(scratchInt0, 1)))
	e.W.Instr("movzbl", asmtext.Reg(regForSize(scratchInt0, 1)), asmtext.Reg(regForSize(scratchInt0, 4)))
	e.storeInt(fn, frame, instr.Result, scratchInt0)
}

func (e *Emitter) lowerOffsetOp(fn *ir.Function, frame *Frame, instr *ir.Instr) {
	switch instr.Op {
	case ir.OpGetMember:
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		if instr.Offset != 0 {
			e.W.Instr("addq", asmtext.Imm(instr.Offset), asmtext.Reg(scratchInt0))
		}
		e.storeInt(fn, frame, instr.Result, scratchInt0)
	case ir.OpLoadOff:
		size := int64(fn.Var(instr.Result).Size)
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		e.W.Instr("mov"+intSuffix(size), asmtext.Mem(instr.Offset, scratchInt0), asmtext.Reg(regForSize(scratchInt1, size)))
		e.storeInt(fn, frame, instr.Result, scratchInt1)
	case ir.OpStoreOff:
		size := int64(fn.Var(instr.Arg1).Size)
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		e.loadInt(fn, frame, instr.Arg1, scratchInt1)
		e.W.Instr("mov"+intSuffix(size), asmtext.Reg(regForSize(scratchInt1, size)), asmtext.Mem(instr.Offset, scratchInt0))
	case ir.OpLoadBase:
		size := int64(fn.Var(instr.Result).Size)
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		e.W.Instr("mov"+intSuffix(size), asmtext.Mem(0, scratchInt0), asmtext.Reg(regForSize(scratchInt1, size)))
		e.storeInt(fn, frame, instr.Result, scratchInt1)
	case ir.OpStoreBase:
		size := int64(fn.Var(instr.Arg1).Size)
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		e.loadInt(fn, frame, instr.Arg1, scratchInt1)
		e.W.Instr("mov"+intSuffix(size), asmtext.Reg(regForSize(scratchInt1, size)), asmtext.Mem(0, scratchInt0))
	}
}

func (e *Emitter) lowerVLAAlloc(fn *ir.Function, frame *Frame, instr *ir.Instr) {
	slot, ok := frame.VLAOffset[instr.VLAIdx]
	if !ok {
		return
	}
	e.W.Comment(fmt.Sprintf("vla-alloc dominance index %d", instr.VLAIdx))
	e.W.Instr("movq", asmtext.Reg("rsp"), asmtext.Reg(scratchInt0))
	e.W.Instr("movq", asmtext.Reg(scratchInt0), asmtext.Mem(slot, "rbp"))
	e.storeInt(fn, frame, instr.Result, scratchInt0)
}

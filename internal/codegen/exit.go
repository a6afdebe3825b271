package codegen

import (
	"mincc/internal/asmtext"
	"mincc/internal/ir"
)

// blockByID finds a block by id; fn.Blocks is small enough per function
// that a linear scan is simpler than threading a map through the builder.
func (e *Emitter) blockByID(fn *ir.Function, id ir.BlockID) *ir.Block {
	for _, b := range fn.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// realizePhis writes the incoming-edge value of every phi at the head of
// to into its result slot, for the edge originating at from (spec.md
// §4.3: "phi realization happens at the edge, before the branch"). Since
// every var that can be a phi result spans a block and so owns a
// permanent frame slot, writing an untaken edge's phi copy is harmless —
// the slot is simply never read.
func (e *Emitter) realizePhis(fn *ir.Function, frame *Frame, from ir.BlockID, to *ir.Block) {
	if to == nil {
		return
	}
	for _, instr := range to.Instrs {
		if instr.Op != ir.OpPhi {
			break
		}
		var src ir.VarID
		switch from {
		case instr.PhiBlockA:
			src = instr.PhiArgA
		case instr.PhiBlockB:
			src = instr.PhiArgB
		default:
			continue
		}
		e.copyVar(fn, frame, instr.Result, src)
	}
}

// lowerExit lowers b's terminator (spec.md §3 exit variants / §4.5 "block
// exit lowering"). Switch lowers to a linear cmp/je compare chain,
// matching original_source's switch codegen rather than a jump table.
func (e *Emitter) lowerExit(fn *ir.Function, frame *Frame, b *ir.Block) {
	switch b.Exit.Kindof() {
	case ir.ExitNone:
		e.W.Instr("ud2")

	case ir.ExitJump:
		target := e.blockByID(fn, b.Exit.Jump)
		e.realizePhis(fn, frame, b.ID, target)
		e.W.Instr("jmp", target.Label)

	case ir.ExitIf:
		trueBlk := e.blockByID(fn, b.Exit.IfTrue)
		falseBlk := e.blockByID(fn, b.Exit.IfFalse)
		size := int64(fn.Var(b.Exit.Cond).Size)
		e.loadInt(fn, frame, b.Exit.Cond, scratchInt0)
		e.W.Instr("cmp"+intSuffix(size), asmtext.Imm(0), asmtext.Reg(regForSize(scratchInt0, size)))
		e.realizePhis(fn, frame, b.ID, trueBlk)
		e.realizePhis(fn, frame, b.ID, falseBlk)
		e.W.Instr("jne", trueBlk.Label)
		e.W.Instr("jmp", falseBlk.Label)

	case ir.ExitSwitch:
		size := int64(fn.Var(b.Exit.Cond).Size)
		e.loadInt(fn, frame, b.Exit.Cond, scratchInt0)
		for _, c := range b.Exit.Cases {
			target := e.blockByID(fn, c.Target)
			e.realizePhis(fn, frame, b.ID, target)
			e.W.Instr("cmp"+intSuffix(size), asmtext.Imm(c.Value), asmtext.Reg(regForSize(scratchInt0, size)))
			e.W.Instr("je", target.Label)
		}
		if b.Exit.HasDefault {
			def := e.blockByID(fn, b.Exit.Default)
			e.realizePhis(fn, frame, b.ID, def)
			e.W.Instr("jmp", def.Label)
		}

	case ir.ExitReturn:
		if fn.Var(b.Exit.RetVal).Type.IsFloating() {
			e.loadFloat(fn, frame, b.Exit.RetVal, "xmm0")
		} else {
			size := int64(fn.Var(b.Exit.RetVal).Size)
			e.loadInt(fn, frame, b.Exit.RetVal, scratchInt0)
			e.W.Instr("mov"+intSuffix(size), asmtext.Reg(regForSize(scratchInt0, size)), asmtext.Reg(regForSize("rax", size)))
		}
		e.W.Instr("leave")
		e.W.Instr("ret")

	case ir.ExitReturnZero:
		e.W.Instr("xorl", asmtext.Reg(regForSize("rax", 4)), asmtext.Reg(regForSize("rax", 4)))
		e.W.Instr("leave")
		e.W.Instr("ret")
	}
}

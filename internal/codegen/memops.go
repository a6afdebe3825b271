package codegen

import (
	"mincc/internal/asmtext"
	"mincc/internal/ir"
)

// lowerZeroMem and lowerCopyMem expand OpZeroMem/OpCopyMem as an inline
// unrolled sequence of 8/4/2/1-byte moves (spec.md §4.5: "memcpy/memzero
// expansion: unrolled moves sized 8/4/2/1 bytes, no library call"). Both
// opcodes repurpose Instr.Offset as the byte count, since it is otherwise
// only used by the *Off/getmember family.

func (e *Emitter) lowerZeroMem(fn *ir.Function, frame *Frame, instr *ir.Instr) {
	e.loadInt(fn, frame, instr.Arg0, scratchInt0)
	remaining := instr.Offset
	var off int64
	for remaining >= 8 {
		e.W.Instr("movq", asmtext.Imm(0), asmtext.Mem(off, scratchInt0))
		off += 8
		remaining -= 8
	}
	if remaining >= 4 {
		e.W.Instr("movl", asmtext.Imm(0), asmtext.Mem(off, scratchInt0))
		off += 4
		remaining -= 4
	}
	if remaining >= 2 {
		e.W.Instr("movw", asmtext.Imm(0), asmtext.Mem(off, scratchInt0))
		off += 2
		remaining -= 2
	}
	if remaining >= 1 {
		e.W.Instr("movb", asmtext.Imm(0), asmtext.Mem(off, scratchInt0))
	}
}

func (e *Emitter) lowerCopyMem(fn *ir.Function, frame *Frame, instr *ir.Instr) {
	e.loadInt(fn, frame, instr.Arg0, scratchInt0) // destination address
	e.loadInt(fn, frame, instr.Arg1, scratchInt1) // source address
	remaining := instr.Offset
	var off int64

	step := func(size int64, suf string) {
		for remaining >= size {
			tmp := regForSize("rax", size)
			e.W.Instr("mov"+suf, asmtext.Mem(off, scratchInt1), asmtext.Reg(tmp))
			e.W.Instr("mov"+suf, asmtext.Reg(tmp), asmtext.Mem(off, scratchInt0))
			off += size
			remaining -= size
		}
	}
	step(8, "q")
	step(4, "l")
	step(2, "w")
	step(1, "b")
}

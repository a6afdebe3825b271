package codegen

import (
	"mincc/internal/asmtext"
	"mincc/internal/ir"
	"mincc/internal/types"
)

// lowerCast lowers the int<->float/widen/narrow cast family (spec.md §4.5
// "float<->int casts through xmm0"; integer widen/narrow opcodes reuse the
// standard movsx/movzx/truncating-store idiom).
func (e *Emitter) lowerCast(fn *ir.Function, frame *Frame, instr *ir.Instr) {
	switch instr.Op {
	case ir.OpIToF:
		srcSize := int64(fn.Var(instr.Arg0).Size)
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		mnemonic := "cvtsi2ss"
		if instr.CastTyp != nil && (instr.CastTyp.Simple == types.Double || instr.CastTyp.Simple == types.LDouble) {
			mnemonic = "cvtsi2sd"
		}
		if srcSize < 4 {
			srcSize = 4
		}
		e.W.Instr(mnemonic, asmtext.Reg(regForSize(scratchInt0, srcSize)), asmtext.XMM(scratchFloat0))
		e.storeFloat(fn, frame, instr.Result, scratchFloat0)

	case ir.OpFToI:
		e.loadFloat(fn, frame, instr.Arg0, scratchFloat0)
		mnemonic := "cvttss2si"
		if fn.Var(instr.Arg0).Type.Simple == types.Double || fn.Var(instr.Arg0).Type.Simple == types.LDouble {
			mnemonic = "cvttsd2si"
		}
		dstSize := int64(fn.Var(instr.Result).Size)
		if dstSize < 4 {
			dstSize = 4
		}
		e.W.Instr(mnemonic, asmtext.XMM(scratchFloat0), asmtext.Reg(regForSize(scratchInt0, dstSize)))
		e.storeInt(fn, frame, instr.Result, scratchInt0)

	case ir.OpFToF:
		e.loadFloat(fn, frame, instr.Arg0, scratchFloat0)
		if fn.Var(instr.Arg0).Type.Simple == types.Float {
			e.W.Instr("cvtss2sd", asmtext.XMM(scratchFloat0), asmtext.XMM(scratchFloat0))
		} else {
			e.W.Instr("cvtsd2ss", asmtext.XMM(scratchFloat0), asmtext.XMM(scratchFloat0))
		}
		e.storeFloat(fn, frame, instr.Result, scratchFloat0)

	case ir.OpSExt:
		srcSize := int64(fn.Var(instr.Arg0).Size)
		dstSize := int64(fn.Var(instr.Result).Size)
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		e.W.Instr(movsxMnemonic(srcSize, dstSize), asmtext.Reg(regForSize(scratchInt0, srcSize)), asmtext.Reg(regForSize(scratchInt0, dstSize)))
		e.storeInt(fn, frame, instr.Result, scratchInt0)

	case ir.OpZExt:
		srcSize := int64(fn.Var(instr.Arg0).Size)
		dstSize := int64(fn.Var(instr.Result).Size)
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		if srcSize == 4 && dstSize == 8 {
			// A plain 32-bit mov already zero-extends into the full
			// 64-bit register; no movzx needed.
			e.W.Instr("movl", asmtext.Reg(regForSize(scratchInt0, 4)), asmtext.Reg(regForSize(scratchInt0, 4)))
		} else if srcSize < dstSize {
			e.W.Instr(movzxMnemonic(srcSize, dstSize), asmtext.Reg(regForSize(scratchInt0, srcSize)), asmtext.Reg(regForSize(scratchInt0, dstSize)))
		}
		e.storeInt(fn, frame, instr.Result, scratchInt0)

	case ir.OpTrunc, ir.OpCast:
		dstSize := int64(fn.Var(instr.Result).Size)
		e.loadInt(fn, frame, instr.Arg0, scratchInt0)
		e.W.Instr("mov"+intSuffix(dstSize), asmtext.Reg(regForSize(scratchInt0, dstSize)), e.varMem(frame, instr.Result))
	}
}

func movsxMnemonic(src, dst int64) string {
	switch {
	case src == 1 && dst == 2:
		return "movsbw"
	case src == 1 && dst == 4:
		return "movsbl"
	case src == 1 && dst == 8:
		return "movsbq"
	case src == 2 && dst == 4:
		return "movswl"
	case src == 2 && dst == 8:
		return "movswq"
	case src == 4 && dst == 8:
		return "movslq"
	default:
		return "movq"
	}
}

func movzxMnemonic(src, dst int64) string {
	switch {
	case src == 1 && dst == 2:
		return "movzbw"
	case src == 1 && dst == 4:
		return "movzbl"
	case src == 1 && dst == 8:
		return "movzbq"
	case src == 2 && dst == 4:
		return "movzwl"
	case src == 2 && dst == 8:
		return "movzwq"
	default:
		return "movq"
	}
}

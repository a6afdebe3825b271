package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mincc/internal/abi"
	"mincc/internal/ir"
	"mincc/internal/types"
)

func TestFrameSizeIsSixteenByteAligned(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("f", true)
	a := fn.NewVar("a", arena.SimpleType(types.Int))
	fn.Vars[a].SpansBlock = true
	b := fn.NewVar("b", arena.SimpleType(types.Char))
	fn.Vars[b].SpansBlock = true

	entry := fn.NewBlock("entry")
	entry.SetTerminator(ir.ReturnExit(a))

	frame := BuildFrame(fn)
	assert.Equal(t, int64(0), frame.Size%16)
}

func TestFrameAssignsDistinctOffsetsToSpanningVars(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("f", true)
	a := fn.NewVar("a", arena.SimpleType(types.Long))
	fn.Vars[a].SpansBlock = true
	b := fn.NewVar("b", arena.SimpleType(types.Long))
	fn.Vars[b].SpansBlock = true

	entry := fn.NewBlock("entry")
	entry.SetTerminator(ir.ReturnExit(a))

	frame := BuildFrame(fn)
	assert.NotEqual(t, frame.VarOffset[a], frame.VarOffset[b])
}

func TestFrameReusesScratchSlotsAcrossBlocks(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("f", true)
	intType := arena.SimpleType(types.Int)

	b0 := fn.NewBlock("b0")
	b1 := fn.NewBlock("b1")
	tmp0 := fn.NewVar("", intType)
	b0.Emit(ir.Instr{Op: ir.OpConst, Result: tmp0, HasResult: true, Const: &ir.ConstPayload{IntVal: 1}})
	b0.SetTerminator(ir.JumpExit(b1.ID))

	tmp1 := fn.NewVar("", intType)
	b1.Emit(ir.Instr{Op: ir.OpConst, Result: tmp1, HasResult: true, Const: &ir.ConstPayload{IntVal: 2}})
	b1.SetTerminator(ir.ReturnExit(tmp1))

	frame := BuildFrame(fn)
	assert.Equal(t, frame.VarOffset[tmp0], frame.VarOffset[tmp1])
}

func TestFrameGivesVLAsDistinctTrackingSlots(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("f", true)
	ptrType := arena.Ptr(arena.SimpleType(types.Int))

	entry := fn.NewBlock("entry")
	v0 := fn.NewVar("vla0", ptrType)
	entry.Emit(ir.Instr{Op: ir.OpVLAAlloc, Result: v0, HasResult: true, VLAIdx: 0})
	v1 := fn.NewVar("vla1", ptrType)
	entry.Emit(ir.Instr{Op: ir.OpVLAAlloc, Result: v1, HasResult: true, VLAIdx: 1})
	entry.SetTerminator(ir.ReturnZeroExit())

	frame := BuildFrame(fn)
	assert.NotEqual(t, frame.VLAOffset[0], frame.VLAOffset[1])
}

func TestFrameReservesRegSaveAreaAheadOfOrdinaryVars(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("sum", true)
	fn.IsVariadic = true
	s := abi.NewSysV()
	s.NewFunction(fn, []*types.Type{arena.SimpleType(types.Int)})

	n := fn.NewVar("n", arena.SimpleType(types.Int))
	fn.Vars[n].SpansBlock = true
	ap := fn.NewVar("ap", arena.Ptr(arena.SimpleType(types.Char)))
	fn.Vars[ap].SpansBlock = true

	entry := fn.NewBlock("entry")
	entry.SetTerminator(ir.ReturnExit(n))

	frame := BuildFrame(fn)
	require.NotZero(t, frame.RegSaveAreaOffset)

	data := fn.ABIData.(*abi.FuncABIData)
	regSaveTop := frame.RegSaveAreaOffset + data.RegSaveBytes
	// every ordinary variable slot must sit at or below the register-save
	// area's lower bound, never inside [RegSaveAreaOffset, regSaveTop).
	for _, off := range frame.VarOffset {
		inSaveArea := off >= frame.RegSaveAreaOffset && off < regSaveTop
		assert.False(t, inSaveArea, "var offset %d overlaps the register-save area [%d, %d)", off, frame.RegSaveAreaOffset, regSaveTop)
	}
}

func TestFrameNonVariadicHasNoRegSaveArea(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("add", true)
	s := abi.NewSysV()
	s.NewFunction(fn, []*types.Type{arena.SimpleType(types.Int)})

	entry := fn.NewBlock("entry")
	entry.SetTerminator(ir.ReturnZeroExit())

	frame := BuildFrame(fn)
	assert.Equal(t, int64(0), frame.RegSaveAreaOffset)
}

package abi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mincc/internal/ir"
	"mincc/internal/types"
)

func TestSysVIntegerArgsUseRegistersInOrder(t *testing.T) {
	arena := types.NewArena()
	s := NewSysV()
	intT := arena.SimpleType(types.Int)
	plan := s.LowerCall([]*types.Type{intT, intT, intT}, intT, false)
	require.Len(t, plan.Args, 3)
	assert.Equal(t, []string{"rdi"}, plan.Args[0].IntRegs)
	assert.Equal(t, []string{"rsi"}, plan.Args[1].IntRegs)
	assert.Equal(t, []string{"rdx"}, plan.Args[2].IntRegs)
	assert.Equal(t, []string{"rax"}, plan.Return.IntRegs)
}

func TestSysVStructSizeMatchesLP64Alignment(t *testing.T) {
	// struct S { int a; char b; double c; } -> 24 bytes, per spec.md
	// concrete scenario 4.
	arena := types.NewArena()
	s := arena.NewStructTag("S")
	s.DefineMembers([]types.Member{
		{Name: "a", Type: arena.SimpleType(types.Int)},
		{Name: "b", Type: arena.SimpleType(types.Char)},
		{Name: "c", Type: arena.SimpleType(types.Double)},
	}, false)
	assert.Equal(t, 24, s.Size())

	abi := NewSysV()
	ret := abi.classifyReturn(s)
	// 24 bytes > 16 -> returned via hidden pointer.
	assert.True(t, ret.ByHiddenPointer)
	assert.Equal(t, "rdi", ret.HiddenPtrReg)
}

func TestSysVSmallAggregateClassifiesByEightbyte(t *testing.T) {
	arena := types.NewArena()
	pair := arena.NewStructTag("pair")
	pair.DefineMembers([]types.Member{
		{Name: "a", Type: arena.SimpleType(types.Int)},
		{Name: "b", Type: arena.SimpleType(types.Int)},
	}, false)
	assert.Equal(t, 8, pair.Size())

	s := NewSysV()
	plan := s.LowerCall([]*types.Type{pair}, arena.SimpleType(types.Int), false)
	require.Len(t, plan.Args, 1)
	assert.Equal(t, ArgInReg, plan.Args[0].Kind)
	assert.Equal(t, []string{"rdi"}, plan.Args[0].IntRegs)
}

func TestMicrosoftFirstFourArgsUseRcxRdxR8R9(t *testing.T) {
	arena := types.NewArena()
	intT := arena.SimpleType(types.Int)
	m := NewMicrosoft()
	plan := m.LowerCall([]*types.Type{intT, intT, intT, intT, intT}, intT, false)
	require.Len(t, plan.Args, 5)
	assert.Equal(t, []string{"rcx"}, plan.Args[0].IntRegs)
	assert.Equal(t, []string{"rdx"}, plan.Args[1].IntRegs)
	assert.Equal(t, []string{"r8"}, plan.Args[2].IntRegs)
	assert.Equal(t, []string{"r9"}, plan.Args[3].IntRegs)
	assert.Equal(t, ArgOnStack, plan.Args[4].Kind)
}

func TestMicrosoftShadowSpaceIsAtLeast32(t *testing.T) {
	arena := types.NewArena()
	m := NewMicrosoft()
	plan := m.LowerCall(nil, arena.SimpleType(types.Int), false)
	assert.Equal(t, int64(32), plan.StackAdjust)
}

func TestMicrosoftLargeAggregatePassedByPointer(t *testing.T) {
	arena := types.NewArena()
	big := arena.NewStructTag("big")
	big.DefineMembers([]types.Member{
		{Name: "data", Type: arena.ArrayOf(arena.SimpleType(types.Char), 32)},
	}, false)

	m := NewMicrosoft()
	plan := m.LowerCall([]*types.Type{big}, arena.SimpleType(types.Void), false)
	require.Len(t, plan.Args, 1)
	assert.Equal(t, ArgByPointer, plan.Args[0].Kind)
	assert.Equal(t, []string{"rcx"}, plan.Args[0].IntRegs)
}

func TestABIInterfaceIsSatisfiedByBothImplementations(t *testing.T) {
	var _ ABI = NewSysV()
	var _ ABI = NewMicrosoft()
}

func TestNewFunctionAttachesFuncABIData(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("add", true)
	fn.ReturnType = arena.SimpleType(types.Int)
	s := NewSysV()
	s.NewFunction(fn, []*types.Type{arena.SimpleType(types.Int), arena.SimpleType(types.Int)})
	data, ok := fn.ABIData.(*FuncABIData)
	require.True(t, ok)
	assert.Len(t, data.ParamLocs, 2)
}

func TestSysVVariadicNewFunctionReservesRegSaveBytes(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("sum", true)
	fn.ReturnType = arena.SimpleType(types.Long)
	fn.IsVariadic = true
	s := NewSysV()
	s.NewFunction(fn, []*types.Type{arena.SimpleType(types.Int)})
	data := fn.ABIData.(*FuncABIData)
	assert.Equal(t, int64(6*8+8*16), data.RegSaveBytes)
}

func TestSysVNonVariadicNewFunctionReservesNoRegSaveBytes(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("add", true)
	fn.ReturnType = arena.SimpleType(types.Int)
	s := NewSysV()
	s.NewFunction(fn, []*types.Type{arena.SimpleType(types.Int)})
	data := fn.ABIData.(*FuncABIData)
	assert.Equal(t, int64(0), data.RegSaveBytes)
}

// recordingEmitter implements Emitter, recording everything written so
// tests can inspect the emitted instruction/label sequence.
type recordingEmitter struct {
	lines []string
}

func (r *recordingEmitter) Instr(mnemonic string, operands ...string) {
	line := mnemonic
	for i, op := range operands {
		if i == 0 {
			line += " " + op
		} else {
			line += ", " + op
		}
	}
	r.lines = append(r.lines, line)
}

func (r *recordingEmitter) Comment(text string) { r.lines = append(r.lines, "# "+text) }

func (r *recordingEmitter) Label(name string, exported bool) {
	r.lines = append(r.lines, name+":")
}

func (r *recordingEmitter) has(s string) bool {
	for _, l := range r.lines {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}

func TestSysVEmitPreambleUsesRegSaveBaseNotAMagicConstant(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("sum", true)
	fn.IsVariadic = true
	s := NewSysV()
	s.NewFunction(fn, []*types.Type{arena.SimpleType(types.Int)})

	e := &recordingEmitter{}
	s.EmitPreamble(e, fn, -200)
	assert.True(t, e.has("-200(%rbp)"))
	assert.False(t, e.has("-176(%rbp)"))
}

func TestSysVEmitVaStartUsesRegSaveBase(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("sum", true)
	fn.IsVariadic = true
	s := NewSysV()
	s.NewFunction(fn, []*types.Type{arena.SimpleType(types.Int)})

	e := &recordingEmitter{}
	s.EmitVaStart(e, fn, "r10", -200)
	assert.True(t, e.has("-200(%rbp)"))
}

func TestSysVEmitVaArgBranchesToOverflowArea(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("sum", true)
	fn.IsVariadic = true
	s := NewSysV()
	s.NewFunction(fn, []*types.Type{arena.SimpleType(types.Int)})

	e := &recordingEmitter{}
	s.EmitVaArg(e, fn, "r10", arena.SimpleType(types.Int), "r11", 7)

	assert.True(t, e.has("jae .Lvaarg_overflow7"))
	assert.True(t, e.has(".Lvaarg_overflow7:"))
	assert.True(t, e.has(".Lvaarg_done7:"))
	assert.True(t, e.has("jmp .Lvaarg_done7"))
}

func TestSysVEmitVaArgDistinctSeqsDontCollide(t *testing.T) {
	arena := types.NewArena()
	fn := ir.NewFunction("sum", true)
	fn.IsVariadic = true
	s := NewSysV()
	s.NewFunction(fn, []*types.Type{arena.SimpleType(types.Int)})

	e := &recordingEmitter{}
	s.EmitVaArg(e, fn, "r10", arena.SimpleType(types.Int), "r11", 1)
	s.EmitVaArg(e, fn, "r10", arena.SimpleType(types.Int), "r11", 2)

	assert.True(t, e.has(".Lvaarg_overflow1:"))
	assert.True(t, e.has(".Lvaarg_overflow2:"))
}

package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mincc/internal/abi"
	"mincc/internal/asmtext"
	"mincc/internal/ir"
	"mincc/internal/types"
)

// buildAddFunction constructs `int add(int a, int b) { return a + b; }`
// directly at the IR level (internal/cc isn't wired into this test; the
// IR builder API is exercised the way internal/cc's lowering would use it).
func buildAddFunction(arena *types.Arena) *ir.Function {
	intType := arena.SimpleType(types.Int)
	fn := ir.NewFunction("add", true)
	fn.ReturnType = intType

	a := fn.NewVar("a", intType)
	fn.Vars[a].IsParam = true
	b := fn.NewVar("b", intType)
	fn.Vars[b].IsParam = true
	sum := fn.NewVar("", intType)
	fn.Vars[sum].SpansBlock = true

	entry := fn.NewBlock("entry")
	entry.Emit(ir.Instr{Op: ir.OpAdd, Arg0: a, Arg1: b, Result: sum, HasArg0: true, HasArg1: true, HasResult: true})
	entry.SetTerminator(ir.ReturnExit(sum))

	sysv := abi.NewSysV()
	sysv.NewFunction(fn, []*types.Type{intType, intType})
	return fn
}

func TestEmitFunctionProducesPrologueAndEpilogue(t *testing.T) {
	arena := types.NewArena()
	fn := buildAddFunction(arena)

	w := asmtext.NewWriter()
	e := NewEmitter(w, abi.NewSysV(), ModelSmall)
	e.EmitFunction(fn)
	out := w.String()

	assert.True(t, strings.Contains(out, "\t.globl add\n"))
	assert.True(t, strings.Contains(out, "add:\n"))
	assert.True(t, strings.Contains(out, "pushq %rbp"))
	assert.True(t, strings.Contains(out, "movq %rsp, %rbp"))
	assert.True(t, strings.Contains(out, "leave"))
	assert.True(t, strings.Contains(out, "ret"))
}

func TestEmitFunctionLowersAddViaDispatchTable(t *testing.T) {
	arena := types.NewArena()
	fn := buildAddFunction(arena)

	w := asmtext.NewWriter()
	e := NewEmitter(w, abi.NewSysV(), ModelSmall)
	e.EmitFunction(fn)
	out := w.String()

	assert.True(t, strings.Contains(out, "addl"), "expected an addl instruction, got:\n%s", out)
}

func TestEmitFunctionFrameSizeAppearsInSub(t *testing.T) {
	arena := types.NewArena()
	fn := buildAddFunction(arena)
	frame := BuildFrame(fn)
	require.Greater(t, frame.Size, int64(0))

	w := asmtext.NewWriter()
	e := NewEmitter(w, abi.NewSysV(), ModelSmall)
	e.EmitFunction(fn)
	out := w.String()

	assert.Contains(t, out, "subq")
}

func TestLowerExitRealizesPhiBeforeJump(t *testing.T) {
	arena := types.NewArena()
	intType := arena.SimpleType(types.Int)
	fn := ir.NewFunction("pick", true)
	fn.ReturnType = intType

	left := fn.NewBlock("left")
	right := fn.NewBlock("right")
	join := fn.NewBlock("join")

	lv := fn.NewVar("", intType)
	left.Emit(ir.Instr{Op: ir.OpConst, Result: lv, HasResult: true, Const: &ir.ConstPayload{IntVal: 1}})
	left.SetTerminator(ir.JumpExit(join.ID))

	rv := fn.NewVar("", intType)
	right.Emit(ir.Instr{Op: ir.OpConst, Result: rv, HasResult: true, Const: &ir.ConstPayload{IntVal: 2}})
	right.SetTerminator(ir.JumpExit(join.ID))

	phi := fn.NewVar("", intType)
	fn.Vars[phi].SpansBlock = true
	join.Emit(ir.Instr{Op: ir.OpPhi, Result: phi, HasResult: true, PhiBlockA: left.ID, PhiBlockB: right.ID, PhiArgA: lv, PhiArgB: rv})
	join.SetTerminator(ir.ReturnExit(phi))

	require.NoError(t, fn.Verify())

	w := asmtext.NewWriter()
	e := NewEmitter(w, abi.NewSysV(), ModelSmall)
	e.EmitFunction(fn)
	out := w.String()

	assert.Contains(t, out, "jmp "+join.Label)
	assert.NotContains(t, out, "op(")
}

func TestEmitFunctionSwitchLowersToCompareChain(t *testing.T) {
	arena := types.NewArena()
	intType := arena.SimpleType(types.Int)
	fn := ir.NewFunction("classify", true)
	fn.ReturnType = intType

	entry := fn.NewBlock("entry")
	tag := fn.NewVar("tag", intType)
	fn.Vars[tag].IsParam = true
	caseA := fn.NewBlock("caseA")
	def := fn.NewBlock("default")

	entry.SetTerminator(ir.SwitchExit(tag, []ir.SwitchCase{{Value: 1, Target: caseA.ID}}, def.ID, true))

	retA := fn.NewVar("", intType)
	caseA.Emit(ir.Instr{Op: ir.OpConst, Result: retA, HasResult: true, Const: &ir.ConstPayload{IntVal: 10}})
	caseA.SetTerminator(ir.ReturnExit(retA))

	retDef := fn.NewVar("", intType)
	def.Emit(ir.Instr{Op: ir.OpConst, Result: retDef, HasResult: true, Const: &ir.ConstPayload{IntVal: 0}})
	def.SetTerminator(ir.ReturnExit(retDef))

	sysv := abi.NewSysV()
	sysv.NewFunction(fn, []*types.Type{intType})

	w := asmtext.NewWriter()
	e := NewEmitter(w, sysv, ModelSmall)
	e.EmitFunction(fn)
	out := w.String()

	assert.Contains(t, out, "je "+caseA.Label)
	assert.Contains(t, out, "jmp "+def.Label)
}

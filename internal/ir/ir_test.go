package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mincc/internal/types"
)

func TestFunctionBuilderRoundTrip(t *testing.T) {
	arena := types.NewArena()
	f := NewFunction("add", true)
	a := f.NewVar("a", arena.SimpleType(types.Int))
	b := f.NewVar("b", arena.SimpleType(types.Int))
	sum := f.NewVar("", arena.SimpleType(types.Int))

	entry := f.NewBlock("entry")
	entry.Emit(Instr{Op: OpAdd, Arg0: a, Arg1: b, Result: sum, HasArg0: true, HasArg1: true, HasResult: true})
	entry.SetTerminator(ReturnExit(sum))

	assert.NoError(t, f.Verify())
	assert.Len(t, f.Blocks, 1)
	assert.Equal(t, ExitReturn, entry.Exit.Kindof())
}

func TestVerifyRejectsMissingTerminator(t *testing.T) {
	f := NewFunction("f", true)
	f.NewBlock("entry")
	err := f.Verify()
	assert.Error(t, err)
}

func TestVerifyRejectsDuplicatePhiPredecessor(t *testing.T) {
	arena := types.NewArena()
	f := NewFunction("f", true)
	v := f.NewVar("v", arena.SimpleType(types.Int))
	b0 := f.NewBlock("b0")
	b1 := f.NewBlock("b1")
	join := f.NewBlock("join")
	b0.SetTerminator(JumpExit(join.ID))
	b1.SetTerminator(JumpExit(join.ID))
	join.Emit(Instr{Op: OpPhi, Result: v, HasResult: true, PhiBlockA: b0.ID, PhiBlockB: b0.ID, PhiArgA: v, PhiArgB: v})
	join.SetTerminator(ReturnExit(v))

	err := f.Verify()
	assert.Error(t, err)
}

func TestSwitchExitCarriesCases(t *testing.T) {
	arena := types.NewArena()
	f := NewFunction("f", true)
	cond := f.NewVar("tag", arena.SimpleType(types.Int))
	b := f.NewBlock("entry")
	def := f.NewBlock("default")
	target := f.NewBlock("case1")
	b.SetTerminator(SwitchExit(cond, []SwitchCase{{Value: 1, Target: target.ID}}, def.ID, true))
	assert.Equal(t, ExitSwitch, b.Exit.Kindof())
	assert.Equal(t, cond, b.Exit.Cond)
	assert.Len(t, b.Exit.Cases, 1)
	assert.True(t, b.Exit.HasDefault)
}

package cc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mincc/internal/abi"
	"mincc/internal/ir"
	"mincc/internal/preprocess"
	"mincc/internal/types"
)

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}

// lowerSource feeds src through a fresh preprocessor, parser, and the
// lowering pass under test, the same three-stage pipeline
// internal/compiler.Run drives, matching the teacher's own style of
// testing the parser against the lexer's real output rather than a
// hand-built token slice (src/test/parser_test.go).
func lowerSource(t *testing.T, src string) (*Module, *types.Arena) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.c")
	require.NoError(t, writeFile(path, src))

	pp := preprocess.NewPreprocessor(preprocess.SearchPaths{}, preprocess.NewMacroTable())
	require.NoError(t, pp.Open(path))

	arena := types.NewArena()
	p := NewParser(pp.Next, arena)
	tu := p.Parse()
	mod := Lower(tu, arena, abi.NewSysV(), p.StringLiterals())
	return mod, arena
}

func findFunc(t *testing.T, mod *Module, name string) *ir.Function {
	t.Helper()
	for _, fn := range mod.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function named %q in lowered module", name)
	return nil
}

func TestLowerSimpleReturnEndsWithAdd(t *testing.T) {
	mod, _ := lowerSource(t, "int add(int a, int b) { return a + b; }")
	fn := findFunc(t, mod, "add")
	require.Len(t, fn.Blocks, 1)
	entry := fn.Blocks[0]
	require.Equal(t, ir.ExitReturn, entry.Exit.Kindof())
	require.True(t, entry.Exit.HasRetVal)
	require.NotEmpty(t, entry.Instrs)
	assert.Equal(t, ir.OpAdd, entry.Instrs[len(entry.Instrs)-1].Op)
}

func TestLowerFallsOffEndReturnsZero(t *testing.T) {
	mod, _ := lowerSource(t, "int f(void) { int x = 1; }")
	fn := findFunc(t, mod, "f")
	last := fn.Blocks[len(fn.Blocks)-1]
	assert.Equal(t, ir.ExitReturnZero, last.Exit.Kindof())
}

func TestLowerIfBuildsThreeBlocks(t *testing.T) {
	mod, _ := lowerSource(t, "int f(int a) { if (a) { return 1; } return 0; }")
	fn := findFunc(t, mod, "f")
	// entry (cond), then-block, end-block at minimum.
	assert.GreaterOrEqual(t, len(fn.Blocks), 3)
	entry := fn.Blocks[0]
	assert.Equal(t, ir.ExitIf, entry.Exit.Kindof())
}

func TestLowerWhileLoopBackEdge(t *testing.T) {
	mod, _ := lowerSource(t, "int f(int n) { int i = 0; while (i < n) { i = i + 1; } return i; }")
	fn := findFunc(t, mod, "f")
	foundBackEdge := false
	for _, b := range fn.Blocks {
		if b.Exit.Kindof() == ir.ExitJump && int(b.Exit.Jump) < int(b.ID) {
			foundBackEdge = true
		}
	}
	assert.True(t, foundBackEdge, "expected a jump back to an earlier block for the loop head")
}

func TestLowerBreakContinueTargetLoopEnds(t *testing.T) {
	src := `int f(int n) {
		int i = 0;
		int sum = 0;
		while (i < n) {
			i = i + 1;
			if (i == 5) { break; }
			if (i == 2) { continue; }
			sum = sum + i;
		}
		return sum;
	}`
	mod, _ := lowerSource(t, src)
	fn := findFunc(t, mod, "f")
	assert.NotEmpty(t, fn.Blocks)
}

func TestLowerSwitchFallthroughToNextGroup(t *testing.T) {
	src := `int f(int x) {
		int r = 0;
		switch (x) {
		case 1:
			r = 1;
		case 2:
			r = r + 2;
			break;
		default:
			r = -1;
		}
		return r;
	}`
	mod, _ := lowerSource(t, src)
	fn := findFunc(t, mod, "f")
	entry := fn.Blocks[0]
	require.Equal(t, ir.ExitSwitch, entry.Exit.Kindof())
	assert.True(t, entry.Exit.HasDefault)
	require.Len(t, entry.Exit.Cases, 2)
	caseOne := fn.Blocks[entry.Exit.Cases[0].Target]
	require.Equal(t, ir.ExitJump, caseOne.Exit.Kindof())
	assert.Equal(t, entry.Exit.Cases[1].Target, caseOne.Exit.Jump)
}

func TestLowerGotoForwardReference(t *testing.T) {
	src := `int f(void) {
		goto done;
		return 1;
	done:
		return 2;
	}`
	mod, _ := lowerSource(t, src)
	fn := findFunc(t, mod, "f")
	entry := fn.Blocks[0]
	assert.Equal(t, ir.ExitJump, entry.Exit.Kindof())
}

func TestLowerHiddenReturnPointerIsFirstVar(t *testing.T) {
	src := `struct Pair { long a; long b; long c; };
	struct Pair make(long a, long b, long c) {
		struct Pair p;
		p.a = a;
		p.b = b;
		p.c = c;
		return p;
	}`
	mod, _ := lowerSource(t, src)
	fn := findFunc(t, mod, "make")
	data, ok := fn.ABIData.(*abi.FuncABIData)
	require.True(t, ok)
	if data.ReturnLoc.ByHiddenPointer {
		require.NotEmpty(t, fn.Vars)
		assert.False(t, fn.Vars[0].IsParam)
	}
}

func TestLowerCallWithAggregateArgCopiesIntoTemp(t *testing.T) {
	src := `struct Pair { long a; long b; };
	long sum(struct Pair p);
	long f(void) {
		struct Pair p;
		p.a = 1;
		p.b = 2;
		return sum(p);
	}`
	mod, _ := lowerSource(t, src)
	fn := findFunc(t, mod, "f")
	foundCall := false
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == ir.OpCall {
				foundCall = true
			}
		}
	}
	assert.True(t, foundCall)
}

func TestLowerAggregateReturningCallAsRValue(t *testing.T) {
	// Regression test: an aggregate-returning call used as an rvalue (here,
	// nested as another call's argument) must not reach lowerAddrOf's
	// "not an lvalue" path.
	src := `struct Pair { long a; long b; };
	struct Pair make(long a, long b);
	long consume(struct Pair p);
	long f(void) {
		return consume(make(1, 2));
	}`
	mod, _ := lowerSource(t, src)
	fn := findFunc(t, mod, "f")
	callCount := 0
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == ir.OpCall {
				callCount++
			}
		}
	}
	assert.Equal(t, 2, callCount)
}

func TestLowerVaArgUsesVaListVariableSlotDirectly(t *testing.T) {
	src := `typedef char *va_list;
	#define va_start __builtin_va_start
	#define va_arg __builtin_va_arg
	#define va_end __builtin_va_end
	long sum(int n, ...) {
		va_list ap;
		va_start(ap, n);
		long total = 0;
		int i = 0;
		while (i < n) {
			total = total + va_arg(ap, int);
			i = i + 1;
		}
		va_end(ap);
		return total;
	}`
	mod, _ := lowerSource(t, src)
	fn := findFunc(t, mod, "sum")

	var apVar ir.VarID
	foundStart := false
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == ir.OpVaStart {
				apVar = instr.Arg0
				foundStart = true
			}
		}
	}
	require.True(t, foundStart)

	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == ir.OpVaArg || instr.Op == ir.OpVaEnd {
				assert.Equal(t, apVar, instr.Arg0, "va_arg/va_end must address the same va_list slot va_start used")
			}
		}
	}
}

func TestLowerCompoundLiteralZeroesThenStores(t *testing.T) {
	src := `struct Point { int x; int y; };
	int f(void) {
		struct Point p = (struct Point){ .x = 1, .y = 2 };
		return p.x + p.y;
	}`
	mod, _ := lowerSource(t, src)
	fn := findFunc(t, mod, "f")
	sawZero := false
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == ir.OpZeroMem {
				sawZero = true
			}
		}
	}
	assert.True(t, sawZero)
}

func TestLowerBlockScopeStaticBecomesGlobal(t *testing.T) {
	src := `int counter(void) {
		static int n = 0;
		n = n + 1;
		return n;
	}`
	mod, _ := lowerSource(t, src)
	require.Len(t, mod.Globals, 1)
	assert.True(t, mod.Globals[0].IsGlobal)
	assert.NotEqual(t, "n", mod.Globals[0].Name, "a block-scope static must get a mangled label, not the bare source name")
}

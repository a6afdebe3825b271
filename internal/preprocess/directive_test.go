package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mincc/internal/diag"
)

func TestIfdefSelectsActiveBranch(t *testing.T) {
	out := runPreprocessor(t, "#define FEATURE\n#ifdef FEATURE\n1\n#else\n2\n#endif\n")
	assert.Equal(t, []string{"1"}, texts(out))
}

func TestIfndefSelectsElseBranch(t *testing.T) {
	out := runPreprocessor(t, "#ifndef FEATURE\n1\n#else\n2\n#endif\n")
	assert.Equal(t, []string{"1"}, texts(out))
}

func TestIfElifElseChain(t *testing.T) {
	out := runPreprocessor(t, "#define V 2\n#if V == 1\na\n#elif V == 2\nb\n#else\nc\n#endif\n")
	assert.Equal(t, []string{"b"}, texts(out))
}

func TestDefinedOperatorDoesNotExpandItsOperand(t *testing.T) {
	// FOO is defined to something that would blow up constant evaluation
	// if it were macro-expanded rather than treated purely as a name test.
	out := runPreprocessor(t, `#define FOO )))`+"\n"+`#if defined(FOO)`+"\n"+`yes`+"\n"+`#endif`+"\n")
	assert.Equal(t, []string{"yes"}, texts(out))
}

func TestNestedConditionalsInSkippedRegionDoNotLeak(t *testing.T) {
	src := "#if 0\n#if 1\ninner\n#endif\nshould-not-appear\n#endif\nafter\n"
	out := runPreprocessor(t, src)
	assert.Equal(t, []string{"after"}, texts(out))
}

func TestUndefRemovesMacro(t *testing.T) {
	out := runPreprocessor(t, "#define X 1\n#undef X\n#ifdef X\nyes\n#else\nno\n#endif\n")
	assert.Equal(t, []string{"no"}, texts(out))
}

func TestErrorDirectivePanicsWithPreprocessorDiagnostic(t *testing.T) {
	var caught error
	func() {
		defer diag.Recover(&caught)
		runPreprocessor(t, "#error something is wrong\n")
	}()
	assert.Error(t, caught)
	assert.Contains(t, caught.Error(), "something is wrong")
}

func TestConstExprArithmeticAndTernary(t *testing.T) {
	out := runPreprocessor(t, "#if (1 + 2 * 3) > 5 ? 1 : 0\nyes\n#endif\n")
	assert.Equal(t, []string{"yes"}, texts(out))
}

func TestConstExprDivisionByZeroIsFatal(t *testing.T) {
	var caught error
	func() {
		defer diag.Recover(&caught)
		runPreprocessor(t, "#if 1 / 0\nx\n#endif\n")
	}()
	assert.Error(t, caught)
}

func TestRedefinitionWithDifferentBodyIsFatal(t *testing.T) {
	var caught error
	func() {
		defer diag.Recover(&caught)
		runPreprocessor(t, "#define N 1\n#define N 2\nN")
	}()
	assert.Error(t, caught)
}

func TestRedefinitionWithSameBodyIsAllowed(t *testing.T) {
	out := runPreprocessor(t, "#define N 1\n#define N 1\nN")
	assert.Equal(t, []string{"1"}, texts(out))
}

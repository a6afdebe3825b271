package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.c")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func runAndCapture(t *testing.T, src string, cfg Config) string {
	t.Helper()
	cfg.Input = writeSource(t, src)
	out := filepath.Join(t.TempDir(), "t.s")
	cfg.Output = out
	require.NoError(t, Run(cfg))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	return string(data)
}

func TestRunEmitsFunctionAndReturnsZeroOnSuccess(t *testing.T) {
	out := runAndCapture(t, "int add(int a, int b) { return a + b; }", Config{})
	assert.Contains(t, out, "add:")
	assert.Contains(t, out, "\t.globl add\n")
	assert.Contains(t, out, "ret")
}

func TestRunEmitsRoDataForStringLiteral(t *testing.T) {
	src := `const char *greeting(void) { return "hi"; }`
	out := runAndCapture(t, src, Config{})
	assert.Contains(t, out, ".rodata")
	assert.Contains(t, out, ".byte")
}

func TestRunEmitsDataSectionForInitializedGlobal(t *testing.T) {
	src := "int counter = 42;\nint get(void) { return counter; }"
	out := runAndCapture(t, src, Config{})
	assert.Contains(t, out, ".data")
	assert.Contains(t, out, "counter:")
}

func TestRunEmitsBssForUninitializedGlobal(t *testing.T) {
	src := "int total;\nint get(void) { return total; }"
	out := runAndCapture(t, src, Config{})
	assert.Contains(t, out, ".bss")
	assert.Contains(t, out, ".zero 4")
}

func TestRunRejectsUnknownTarget(t *testing.T) {
	cfg := Config{Target: "bogus"}
	cfg.Input = writeSource(t, "int f(void) { return 0; }")
	err := Run(cfg)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown target"))
}

func TestRunWithMicrosoftTarget(t *testing.T) {
	out := runAndCapture(t, "long add(long a, long b) { return a + b; }", Config{Target: TargetMicrosoft})
	assert.Contains(t, out, "add:")
}

func TestRunAppliesDefines(t *testing.T) {
	src := `#if VALUE == 7
	int f(void) { return 1; }
	#else
	int f(void) { return 0; }
	#endif`
	out := runAndCapture(t, src, Config{Defines: []string{"VALUE=7"}})
	assert.Contains(t, out, "f:")
}

func TestRunHalfAssembleFlagIsAccepted(t *testing.T) {
	out := runAndCapture(t, "int f(void) { return 1; }", Config{HalfAssemble: true})
	assert.Contains(t, out, "f:")
}

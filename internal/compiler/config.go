// Package compiler wires the pipeline stages (preprocess -> parse/sema ->
// lower to IR -> codegen -> assembly text) into the single entry point a
// driver calls, mirroring the teacher's own top-level orchestration
// (compile/compiler.go's CompileTheWorld) generalized from "shell out to
// gcc and link" to "stop at emitted assembly text" (spec.md §1's explicit
// non-goal on linking).
package compiler

import (
	"fmt"
	"os"
	"strings"

	"mincc/internal/abi"
	"mincc/internal/asmtext"
	"mincc/internal/cc"
	"mincc/internal/codegen"
	"mincc/internal/diag"
	"mincc/internal/preprocess"
	"mincc/internal/types"
)

// Target selects the calling-convention/ABI the code generator targets
// (spec.md §4.4).
type Target string

const (
	TargetSysV      Target = "sysv"
	TargetMicrosoft Target = "ms"
)

// Config is everything cmd/mincc gathers from flags and the environment
// before invoking Run (spec.md §8 "CONFIGURATION").
type Config struct {
	// Input is the translation unit's source path; Output is where the
	// emitted assembly text goes ("-" or "" means stdout).
	Input  string
	Output string

	Target    Target
	CodeModel codegen.CodeModel

	// IncludePaths/SystemIncludePaths are -I/-isystem, in the order given.
	// C_INCLUDE_PATH (spec.md §6.3) is appended to IncludePaths by Run,
	// not by the caller, so cmd/mincc only has to pass through flags.
	IncludePaths       []string
	SystemIncludePaths []string

	// Defines/Undefines are -D NAME[=VAL] / -U NAME, applied in order.
	Defines   []string
	Undefines []string

	// HalfAssemble records the --half-assemble flag (spec.md §4.5). It is
	// copied into codegen.Emitter.HalfAssemble, which the emitter does not
	// read: output is mnemonic text either way, and internal/codegen does
	// not call internal/encode.
	HalfAssemble bool
}

func (c Config) resolveABI() (abi.ABI, error) {
	switch c.Target {
	case "", TargetSysV:
		return abi.NewSysV(), nil
	case TargetMicrosoft:
		return abi.NewMicrosoft(), nil
	default:
		return nil, fmt.Errorf("unknown target %q (want %q or %q)", c.Target, TargetSysV, TargetMicrosoft)
	}
}

// includePathsWithEnv appends C_INCLUDE_PATH (colon-separated, spec.md
// §6.3) to the user include path, matching the teacher's habit of reading
// auxiliary OS state at the driver boundary (compile.CompileTheWorld's use
// of utils.ExecuteCmd against the ambient environment).
func includePathsWithEnv(flagPaths []string) []string {
	env := os.Getenv("C_INCLUDE_PATH")
	if env == "" {
		return flagPaths
	}
	out := append([]string(nil), flagPaths...)
	for _, p := range strings.Split(env, ":") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Run executes the full pipeline for cfg, returning the single top-level
// *diag.Error (or a plain I/O error) on failure. It is the one place a
// panicking diagnostic is recovered (spec.md §7), mirroring the teacher's
// single os.Exit(1) exit point in compile/compiler.go.
func Run(cfg Config) (err error) {
	defer diag.Recover(&err)

	a, err := cfg.resolveABI()
	if err != nil {
		return err
	}

	paths := preprocess.SearchPaths{
		User:   includePathsWithEnv(cfg.IncludePaths),
		System: cfg.SystemIncludePaths,
	}
	macros := preprocess.NewMacroTable()
	pp := preprocess.NewPreprocessor(paths, macros)
	for _, d := range cfg.Defines {
		pp.Define(d)
	}
	for _, u := range cfg.Undefines {
		pp.Undef(u)
	}
	if openErr := pp.Open(cfg.Input); openErr != nil {
		return fmt.Errorf("opening %s: %w", cfg.Input, openErr)
	}

	arena := types.NewArena()
	parser := cc.NewParser(pp.Next, arena)
	tu := parser.Parse()

	mod := cc.Lower(tu, arena, a, parser.StringLiterals())

	w := asmtext.NewWriter()
	emitStrings(w, mod.Strings)
	emitGlobals(w, mod.Globals)

	e := codegen.NewEmitter(w, a, cfg.CodeModel)
	e.HalfAssemble = cfg.HalfAssemble
	for _, fn := range mod.Functions {
		e.EmitFunction(fn)
	}

	return writeOutput(cfg.Output, w.String())
}

func writeOutput(path, text string) error {
	if path == "" || path == "-" {
		_, err := fmt.Print(text)
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

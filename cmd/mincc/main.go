// Command mincc is the compiler's driver: a single cobra root command that
// gathers flags into an internal/compiler.Config and invokes Run (spec.md
// §6.1). The teacher's own main.go is three lines of raw os.Args parsing
// with no flag library, too thin for this spec's surface (-o, repeatable
// -I/-isystem/-D/-U, --target, --code-model, --half-assemble); this
// follows the cobra+pflag convention instead, the way a C compiler written
// in Go in the retrieved pack does.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mincc/internal/codegen"
	"mincc/internal/compiler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mincc:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		output       string
		includeDirs  []string
		systemDirs   []string
		defines      []string
		undefines    []string
		target       string
		codeModel    string
		halfAssemble bool
	)

	cmd := &cobra.Command{
		Use:   "mincc <file.c>",
		Short: "compile a C11 subset translation unit to x86-64 AT&T assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := parseCodeModel(codeModel)
			if err != nil {
				return err
			}
			cfg := compiler.Config{
				Input:              args[0],
				Output:             output,
				Target:             compiler.Target(target),
				CodeModel:          model,
				IncludePaths:       includeDirs,
				SystemIncludePaths: systemDirs,
				Defines:            defines,
				Undefines:          undefines,
				HalfAssemble:       halfAssemble,
			}
			return compiler.Run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&output, "output", "o", "", "output path for the emitted assembly (default stdout)")
	flags.StringArrayVarP(&includeDirs, "include", "I", nil, "add a user include search path (repeatable)")
	flags.StringArrayVar(&systemDirs, "isystem", nil, "add a system include search path (repeatable)")
	flags.StringArrayVarP(&defines, "define", "D", nil, "predefine a macro, NAME or NAME=VALUE (repeatable)")
	flags.StringArrayVarP(&undefines, "undefine", "U", nil, "undefine a macro before compiling (repeatable)")
	flags.StringVar(&target, "target", string(compiler.TargetSysV), "calling convention: sysv or ms")
	flags.StringVar(&codeModel, "code-model", "small", "label addressing strategy: small or large")
	flags.BoolVar(&halfAssemble, "half-assemble", false, "prefer internal byte-level encoding over mnemonic text where supported")

	return cmd
}

func parseCodeModel(s string) (codegen.CodeModel, error) {
	switch s {
	case "", "small":
		return codegen.ModelSmall, nil
	case "large":
		return codegen.ModelLarge, nil
	default:
		return 0, fmt.Errorf("unknown code model %q (want \"small\" or \"large\")", s)
	}
}

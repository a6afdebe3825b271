package preprocess

import (
	"os"
	"path/filepath"

	"mincc/internal/diag"
	"mincc/internal/source"
)

// Input is one entry of the push-down include stack: an owned file's
// contents together with the tokenizer scanning it. Grounded on spec.md
// §4.1's input_open(parent, path, system) contract.
type Input struct {
	Path string
	Tok  *Tokenizer
}

// SearchPaths holds the two include-path lists the CLI builds
// (spec.md §6: -I and -isystem).
type SearchPaths struct {
	User   []string
	System []string
}

// InputStack implements the nested #include push-down stack (spec.md
// §4.1/§5: "a push-down stack of inputs supports #include nesting").
type InputStack struct {
	paths SearchPaths
	stack []*Input
}

func NewInputStack(paths SearchPaths) *InputStack {
	return &InputStack{paths: paths}
}

func (is *InputStack) Top() *Input {
	if len(is.stack) == 0 {
		return nil
	}
	return is.stack[len(is.stack)-1]
}

func (is *InputStack) Empty() bool { return len(is.stack) == 0 }

// PushMain opens the primary translation unit file.
func (is *InputStack) PushMain(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	is.stack = append(is.stack, &Input{Path: path, Tok: NewTokenizer(path, data)})
	return nil
}

// PushSource pushes in-memory source text under a synthetic path; the
// package's tests feed their input through it.
func (is *InputStack) PushSource(path string, src []byte) {
	is.stack = append(is.stack, &Input{Path: path, Tok: NewTokenizer(path, src)})
}

// Pop removes the top input, e.g. when its tokenizer is exhausted.
func (is *InputStack) Pop() {
	if len(is.stack) > 0 {
		is.stack = is.stack[:len(is.stack)-1]
	}
}

// Open implements input_open(parent, path, system): if system is true,
// only the system include path list is searched; otherwise the directory
// of parent is tried first, then the user include path list (spec.md
// §4.1). header is the raw header-name token text including its
// delimiters, e.g. `<stdio.h>` or `"foo.h"`.
func (is *InputStack) Open(pos source.Position, header string, system bool) {
	if len(header) < 2 {
		diag.Fatalf(diag.Preprocessor, pos, "malformed include operand %q", header)
	}
	name := header[1 : len(header)-1]
	if filepath.IsAbs(name) {
		is.openPath(pos, name)
		return
	}

	var candidates []string
	if system {
		for _, d := range is.paths.System {
			candidates = append(candidates, filepath.Join(d, name))
		}
	} else {
		if parent := is.Top(); parent != nil {
			candidates = append(candidates, filepath.Join(filepath.Dir(parent.Path), name))
		}
		for _, d := range is.paths.User {
			candidates = append(candidates, filepath.Join(d, name))
		}
		for _, d := range is.paths.System {
			candidates = append(candidates, filepath.Join(d, name))
		}
	}

	for _, c := range candidates {
		if data, err := os.ReadFile(c); err == nil {
			is.stack = append(is.stack, &Input{Path: c, Tok: NewTokenizer(c, data)})
			return
		}
	}
	diag.Fatalf(diag.Preprocessor, pos, "include file not found: %s", name)
}

func (is *InputStack) openPath(pos source.Position, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		diag.Fatalf(diag.Preprocessor, pos, "include file not found: %s", path)
	}
	is.stack = append(is.stack, &Input{Path: path, Tok: NewTokenizer(path, data)})
}

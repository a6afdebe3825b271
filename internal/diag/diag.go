// Package diag carries compiler diagnostics. It keeps the teacher's
// panic/recover shape (utils.Assert/Unimplement/Fatal in
// y1yang0-falcon/utils/util.go: one fatal swim lane, no statement-level
// recovery) but gives the payload a type, per the error taxonomy in
// spec.md §7.
package diag

import (
	"fmt"

	"mincc/internal/source"
)

// Stage names where in the pipeline a diagnostic originated.
type Stage int

const (
	Lexical Stage = iota
	Preprocessor
	Parse
	Semantic
	ICEStage
)

func (s Stage) String() string {
	switch s {
	case Lexical:
		return "lexical error"
	case Preprocessor:
		return "preprocessor error"
	case Parse:
		return "parse error"
	case Semantic:
		return "semantic error"
	case ICEStage:
		return "internal compiler error"
	default:
		return "error"
	}
}

// Error is the single typed diagnostic carrier. Pipeline stages raise it by
// panicking (Fatalf, ICE); internal/compiler.Run recovers it and returns it
// as its error, the one place that turns it into a process exit message.
type Error struct {
	Stage   Stage
	Pos     source.Position
	Message string
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func New(stage Stage, pos source.Position, format string, args ...interface{}) *Error {
	return &Error{Stage: stage, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Fatalf panics with a typed *Error. Every pipeline stage in this compiler
// reports diagnostics immediately and does not recover across statements
// (spec.md §7), so a panic/recover pair at the top of internal/compiler.Run
// is the only place this is ever caught.
func Fatalf(stage Stage, pos source.Position, format string, args ...interface{}) {
	panic(New(stage, pos, format, args...))
}

// ICE panics with an internal-compiler-error diagnostic: a reached-
// unimplemented path or invariant violation (spec.md §7).
func ICE(pos source.Position, format string, args ...interface{}) {
	panic(New(ICEStage, pos, format, args...))
}

// Unreachable panics with an ICE at an unqualified position; used in
// contexts (e.g. deep inside codegen helpers) where threading a Position
// through is not worth the noise, mirroring
// y1yang0-falcon/utils.ShouldNotReachHere.
func Unreachable(format string, args ...interface{}) {
	panic(New(ICEStage, source.Position{}, format, args...))
}

// Recover must be deferred at the single top-level entry point of the
// pipeline (internal/compiler.Run). It converts a panicking *Error into a
// returned error, and re-panics anything else (a genuine Go bug, not a
// diagnosed compiler error).
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok {
		*errp = e
		return
	}
	panic(r)
}

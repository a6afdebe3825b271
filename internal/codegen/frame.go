// Package codegen translates ir.Function to x86-64 AT&T assembly text: a
// stack-slot frame layout (no general register allocation — an explicit
// non-goal, spec.md §1), VLA/alloca slot management, a dispatch-table
// arithmetic lowering, structured block exits, and phi realization at
// edges (spec.md §4.5). Grounded on y1yang0-falcon/compile/codegen/
// asm_x86.go's scratch-register stack-slot scheme (kept as the actual
// generalization target; the teacher's separate linear-scan allocator is
// dropped, see DESIGN.md) and codegen/lower_x86.go's dispatch-table shape;
// VLA dominance-index slot reuse and switch-as-compare-chain behavior
// follow original_source/src/codegen/codegen.c.
package codegen

import (
	"mincc/internal/abi"
	"mincc/internal/ir"
)

// wordAlign rounds n up to align bytes (align must be a power of two).
func wordAlign(n int64, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// Frame is the computed stack layout for one function (spec.md §4.5
// "Stack layout per function").
type Frame struct {
	// VarOffset[v] is v's offset relative to rbp (negative: below rbp).
	VarOffset map[ir.VarID]int64

	// VLAOffset[idx] is the tracking-slot offset for the VLA with
	// dominance index idx (spec.md: "one 8-byte pointer per VLA-alloc
	// instruction").
	VLAOffset map[int]int64

	// AllocaRestoreOffset, if set, is the slot flagged for the preamble
	// restore on VLA rollback (spec.md: "one may be flagged for the
	// preamble").
	AllocaRestoreOffset int64
	HasAllocaRestore    bool

	// RegSaveAreaOffset is the rbp-relative base (most negative byte) of
	// the SysV variadic register-save area, reserved as the very first
	// slab of the frame so it can never overlap a var/VLA/alloca/scratch
	// slot allocated afterward. Zero (and unused by either ABI's preamble)
	// for a non-variadic function or under the Microsoft ABI, which homes
	// its variadic registers above rbp instead.
	RegSaveAreaOffset int64

	// Size is the total frame size, already rounded to 16 bytes
	// (spec.md: "The total frame is rounded up to 16 bytes").
	Size int64
}

// scratchAlign is the alignment a scratch/temporary stack slot is rounded
// to; matching the teacher's 8-byte scratch granularity.
const scratchAlign = 8

// BuildFrame lays out fn's stack frame per spec.md §4.5:
//
//  1. variables whose live range spans blocks get a permanent slot
//  2. VLA tracking slots (8 bytes each, one per vla-alloc instruction)
//  3. alloca slots
//  4. a single scratch overlap region sized to the maximum per-block
//     scratch usage, reused by every block in turn
func BuildFrame(fn *ir.Function) *Frame {
	f := &Frame{VarOffset: map[ir.VarID]int64{}, VLAOffset: map[int]int64{}}
	var cursor int64

	// 0. SysV variadic register-save area, reserved first (closest to rbp)
	// so every slot handed out below is guaranteed to sit beneath it; the
	// ABI's EmitPreamble/EmitVaStart hooks are given f.RegSaveAreaOffset
	// rather than assuming a fixed layout.
	if data, ok := fn.ABIData.(*abi.FuncABIData); ok && data.RegSaveBytes > 0 {
		cursor = wordAlign(cursor+data.RegSaveBytes, 16)
		f.RegSaveAreaOffset = -cursor
	}

	// 1. Permanent slots for cross-block (and parameter) variables.
	for id, v := range fn.Vars {
		if !v.SpansBlock && !v.IsParam {
			continue
		}
		size := int64(v.Size)
		if size <= 0 {
			size = 8
		}
		align := v.Type.Align()
		cursor = wordAlign(cursor+size, int64(align))
		f.VarOffset[ir.VarID(id)] = -cursor
	}

	// 2. VLA tracking slots, one 8-byte pointer per distinct vla-alloc
	// dominance index encountered.
	vlaIdx := collectVLAIndices(fn)
	for _, idx := range vlaIdx {
		cursor = wordAlign(cursor+8, 8)
		f.VLAOffset[idx] = -cursor
	}

	// 3. alloca slots: one per non-VLA alloca instruction's result var,
	// sized to the allocation's own type (itself, not a pointer wrapper,
	// per the teacher's direct-slot-addressing style).
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op != ir.OpAlloca {
				continue
			}
			if _, already := f.VarOffset[instr.Result]; already {
				continue
			}
			v := fn.Var(instr.Result)
			size := int64(v.Size)
			if size <= 0 {
				size = 8
			}
			cursor = wordAlign(cursor+size, int64(v.Type.Align()))
			f.VarOffset[instr.Result] = -cursor
			if !f.HasAllocaRestore {
				f.AllocaRestoreOffset = -cursor
				f.HasAllocaRestore = true
			}
		}
	}

	// 4. Per-block scratch overlap region: every block's own non-spanning,
	// non-alloca temporaries are packed from offset 0 within one shared
	// region sized to the largest block's usage, since no two blocks'
	// scratch temporaries are simultaneously live.
	overlapBase := cursor
	maxBlockUsage := int64(0)
	for _, b := range fn.Blocks {
		var blockCursor int64
		for _, instr := range b.Instrs {
			assignScratch := func(id ir.VarID, has bool) {
				if !has {
					return
				}
				if _, already := f.VarOffset[id]; already {
					return
				}
				v := fn.Var(id)
				size := int64(v.Size)
				if size <= 0 {
					size = 8
				}
				blockCursor = wordAlign(blockCursor+size, int64(v.Type.Align()))
				f.VarOffset[id] = -(overlapBase + blockCursor)
			}
			assignScratch(instr.Result, instr.HasResult)
		}
		if blockCursor > maxBlockUsage {
			maxBlockUsage = blockCursor
		}
	}
	cursor = overlapBase + maxBlockUsage

	f.Size = wordAlign(cursor, 16)
	return f
}

// collectVLAIndices returns the distinct VLA dominance indices used by fn,
// in ascending order, so each gets a stable tracking slot (spec.md §4.5
// "vla-alloc: slot-based ... each VLA has a dominance index").
func collectVLAIndices(fn *ir.Function) []int {
	seen := map[int]bool{}
	var out []int
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == ir.OpVLAAlloc && !seen[instr.VLAIdx] {
				seen[instr.VLAIdx] = true
				out = append(out, instr.VLAIdx)
			}
		}
	}
	// insertion order already ascends with dominance index by
	// construction in internal/cc, so no further sort is required here.
	return out
}

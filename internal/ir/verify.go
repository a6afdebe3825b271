package ir

import "fmt"

// Verify checks the structural invariants spec.md §8 calls out under
// "IR well-formedness": every block has exactly one terminator, and every
// phi has both predecessors recorded. (Def-before-use across all paths is
// not checked, here or in internal/cc: it requires dominance information
// the IR layer does not retain.)
func (f *Function) Verify() error {
	for _, b := range f.Blocks {
		if !b.sealed {
			return fmt.Errorf("block %s has no terminator", b.Label)
		}
		for i, instr := range b.Instrs {
			if instr.Op == OpPhi && i > 0 {
				for _, prior := range b.Instrs[:i] {
					if prior.Op != OpPhi {
						return fmt.Errorf("block %s: phi at index %d is not in the block's phi prefix", b.Label, i)
					}
				}
			}
			if instr.Op == OpPhi {
				if instr.PhiBlockA == instr.PhiBlockB {
					return fmt.Errorf("block %s: phi has duplicate predecessor %d", b.Label, instr.PhiBlockA)
				}
			}
		}
	}
	return nil
}

package compiler

import (
	"encoding/binary"
	"fmt"
	"math"

	"mincc/internal/asmtext"
	"mincc/internal/cc"
	"mincc/internal/diag"
	"mincc/internal/types"
)

// emitStrings writes every string literal collected during parsing into
// .rodata as a labeled byte blob (spec.md §4.6's section/label shapes),
// grounded on the teacher's emitRoData/text (compile/codegen/asm_x86.go):
// one label per literal, contents written verbatim. Unlike the teacher
// (which trusts the source escape sequences to round-trip through the
// assembler's own ".string" directive), decodeCString has already decoded
// escapes to raw bytes including the terminating NUL, so this emits them
// as a `.byte` list instead of re-quoting text: safe for embedded NULs and
// non-printable bytes a literal `\xNN` escape might produce.
func emitStrings(w *asmtext.Writer, strings []*cc.StringExpr) {
	if len(strings) == 0 {
		return
	}
	w.Section(asmtext.RoData)
	for _, s := range strings {
		w.Label(s.Label, false)
		w.Bytes([]byte(s.Value))
	}
}

// emitGlobals writes every file-scope global and block-scope static
// (spec.md §3's static-storage-duration objects, collected into
// cc.Module.Globals by cc.Lower) into .data (has an initializer) or .bss
// (zero-initialized), mirroring the teacher's .data/.bss section handling
// generalized from scalars to full aggregate initializer lists.
func emitGlobals(w *asmtext.Writer, globals []*cc.VarDecl) {
	for _, vd := range globals {
		exported := vd.IsGlobal && !vd.IsStatic
		size := int64(vd.Ty.Size())
		align := int64(vd.Ty.Align())

		if vd.Init == nil {
			w.Section(asmtext.BSS)
			if align > 1 {
				w.Raw(fmt.Sprintf("\t.align %d", align))
			}
			w.Label(vd.Name, exported)
			w.Raw(fmt.Sprintf("\t.zero %d", size))
			continue
		}

		w.Section(asmtext.Data)
		if align > 1 {
			w.Raw(fmt.Sprintf("\t.align %d", align))
		}
		w.Label(vd.Name, exported)
		emitInitializer(w, vd.Ty, vd.Init, size)
	}
}

// dataEntry is one resolved piece of a global's initial value: either a
// run of literal bytes or a pointer-sized relocation against another
// label (e.g. `int *p = &g;`, `void (*f)(void) = callee;`).
type dataEntry struct {
	offset   int
	size     int
	bytes    []byte
	labelRef string
	labelOff int64
}

// emitInitializer flattens init's constant-expression tree into a list of
// byte runs and label relocations, then streams it out in offset order,
// filling any gap between entries (padding inserted by struct layout, or a
// partial aggregate initializer) with `.zero`.
func emitInitializer(w *asmtext.Writer, ty *types.Type, init cc.Expr, size int64) {
	entries := flattenInit(ty, init, 0)
	cursor := 0
	for _, e := range entries {
		if e.offset > cursor {
			w.Raw(fmt.Sprintf("\t.zero %d", e.offset-cursor))
		}
		if e.labelRef != "" {
			if e.labelOff == 0 {
				w.Raw(fmt.Sprintf("\t.quad %s", e.labelRef))
			} else {
				w.Raw(fmt.Sprintf("\t.quad %s+%d", e.labelRef, e.labelOff))
			}
		} else {
			w.Bytes(e.bytes)
		}
		cursor = e.offset + e.size
	}
	if int64(cursor) < size {
		w.Raw(fmt.Sprintf("\t.zero %d", size-int64(cursor)))
	}
}

func flattenInit(ty *types.Type, init cc.Expr, base int) []dataEntry {
	switch x := init.(type) {
	case *cc.ConstExpr:
		return []dataEntry{{offset: base, size: ty.Size(), bytes: encodeScalarConst(ty, x)}}
	case *cc.StringExpr:
		if ty.IsPointer() {
			return []dataEntry{{offset: base, size: 8, labelRef: x.Label}}
		}
		data := []byte(x.Value)
		n := ty.Size()
		if len(data) > n {
			data = data[:n]
		} else if len(data) < n {
			data = append(append([]byte(nil), data...), make([]byte, n-len(data))...)
		}
		return []dataEntry{{offset: base, size: n, bytes: data}}
	case *cc.CompoundLiteralExpr:
		var out []dataEntry
		for _, sub := range x.Inits {
			out = append(out, flattenInit(sub.Value.GetType(), sub.Value, base+sub.Offset)...)
		}
		return out
	case *cc.AddrExpr:
		ref, ok := x.X.(*cc.VarRefExpr)
		if !ok || ref.Sym.Kind != cc.SymGlobalVar {
			diag.ICE(init.GetPos(), "unsupported global initializer: address of a non-global lvalue")
		}
		return []dataEntry{{offset: base, size: 8, labelRef: ref.Sym.Label}}
	case *cc.DecayExpr:
		ref, ok := x.X.(*cc.VarRefExpr)
		if !ok {
			diag.ICE(init.GetPos(), "unsupported global initializer: decay of a non-name expression")
		}
		var label string
		switch ref.Sym.Kind {
		case cc.SymFunc:
			label = ref.Name
		case cc.SymGlobalVar:
			label = ref.Sym.Label
		default:
			diag.ICE(init.GetPos(), "unsupported global initializer: decay of a non-global, non-function name")
		}
		return []dataEntry{{offset: base, size: 8, labelRef: label}}
	default:
		diag.ICE(init.GetPos(), "unsupported global initializer expression")
		return nil
	}
}

func encodeScalarConst(ty *types.Type, c *cc.ConstExpr) []byte {
	buf := make([]byte, ty.Size())
	if ty.IsFloating() {
		if ty.Size() == 4 {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(c.FloatVal)))
		} else {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(c.FloatVal))
		}
		return buf
	}
	v := c.IntVal
	for i := 0; i < len(buf); i++ {
		buf[i] = byte(v >> (8 * uint(i)))
	}
	return buf
}

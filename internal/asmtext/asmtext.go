// Package asmtext is the minimal AT&T-syntax assembly text emitter:
// section directives (deduped via a current-section cache), labels,
// tab-indented instructions, comments, and an operand pretty-printer
// (spec.md §4.6). Grounded on y1yang0-falcon/compile/codegen/asm_x86.go's
// Assembler struct (string-builder buffer, comment() helper, suffix
// table), adapted to this spec's explicit section/label/operand rules.
package asmtext

import (
	"fmt"
	"strings"
)

// Section names the handful of sections this compiler ever emits into.
type Section string

const (
	Text Section = ".text"
	Data Section = ".data"
	BSS  Section = ".bss"
	RoData Section = ".rodata"
)

// Writer accumulates assembly text. One Writer per translation unit.
type Writer struct {
	buf        strings.Builder
	curSection Section
	haveSection bool
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) String() string { return w.buf.String() }

// Section switches the current section, suppressing a redundant directive
// if already in sect (spec.md §4.6 "tracks current section to suppress
// redundant switches").
func (w *Writer) Section(sect Section) {
	if w.haveSection && w.curSection == sect {
		return
	}
	w.curSection = sect
	w.haveSection = true
	fmt.Fprintf(&w.buf, "\t%s\n", sect)
}

// Label emits a label, flush-left, optionally preceded by a .globl
// directive for external linkage (spec.md §4.6 "labels ... prefixed with
// .global if exported").
func (w *Writer) Label(name string, exported bool) {
	if exported {
		fmt.Fprintf(&w.buf, "\t.globl %s\n", name)
	}
	fmt.Fprintf(&w.buf, "%s:\n", name)
}

// Instr emits one tab-indented instruction (spec.md §4.6).
func (w *Writer) Instr(mnemonic string, operands ...string) {
	if len(operands) == 0 {
		fmt.Fprintf(&w.buf, "\t%s\n", mnemonic)
		return
	}
	fmt.Fprintf(&w.buf, "\t%s %s\n", mnemonic, strings.Join(operands, ", "))
}

// Comment emits a '#'-prefixed comment line (spec.md §4.6).
func (w *Writer) Comment(text string) {
	fmt.Fprintf(&w.buf, "\t# %s\n", text)
}

// Bytes emits a raw encoded instruction as a `.byte` directive, used when
// --half-assemble replaces mnemonic emission (spec.md §4.5).
func (w *Writer) Bytes(raw []byte) {
	parts := make([]string, len(raw))
	for i, b := range raw {
		parts[i] = fmt.Sprintf("0x%02x", b)
	}
	fmt.Fprintf(&w.buf, "\t.byte %s\n", strings.Join(parts, ", "))
}

// Raw emits a preformatted directive line verbatim (e.g. .size, .align),
// for the handful of directives that don't fit the label/instr/comment
// shapes above.
func (w *Writer) Raw(line string) {
	fmt.Fprintf(&w.buf, "%s\n", line)
}

// --- operand pretty-printer (spec.md §4.6) ---

// Reg formats a general-purpose register operand, e.g. Reg("rax") -> "%rax".
func Reg(name string) string { return "%" + name }

// XMM formats an SSE register operand, e.g. XMM("xmm0") -> "%xmm0".
func XMM(name string) string { return "%" + name }

// IndirectCall formats a register used as an indirect call/jump target,
// e.g. IndirectCall("rax") -> "*%rax".
func IndirectCall(reg string) string { return "*%" + reg }

// Imm formats an immediate integer literal, e.g. Imm(7) -> "$7".
func Imm(v int64) string { return fmt.Sprintf("$%d", v) }

// ImmLabel formats an immediate referencing a symbolic label with an
// optional byte offset, e.g. ImmLabel("foo", 4) -> "$foo+4".
func ImmLabel(label string, offset int64) string {
	if offset == 0 {
		return fmt.Sprintf("$%s", label)
	}
	if offset > 0 {
		return fmt.Sprintf("$%s+%d", label, offset)
	}
	return fmt.Sprintf("$%s%d", label, offset)
}

// Mem formats a base+offset memory operand: `offset(%base)` (spec.md §4.6
// "only base+offset; no scaled-index in MVP").
func Mem(offset int64, base string) string {
	if offset == 0 {
		return fmt.Sprintf("(%%%s)", base)
	}
	return fmt.Sprintf("%d(%%%s)", offset, base)
}

// RIPRelative formats a `label(%rip)` operand, used by the small
// code-model lowering of label references (spec.md §4.5 "small uses
// RIP-relative movq").
func RIPRelative(label string) string { return fmt.Sprintf("%s(%%rip)", label) }

// Package encode is the optional byte-level x86-64 instruction encoder
// boundary. spec.md §1/§4.5 specifies only its interface ("the optional
// in-process x86-64 instruction encoder ... is an auxiliary boundary: only
// its interface is specified"); no pack example implements an in-process
// x86 encoder, so this package is a stub that always reports ok=false,
// meaning internal/codegen should fall back to ordinary mnemonic emission.
package encode

// Operand is one already-resolved operand of an instruction to encode:
// a register name, an immediate, or a displacement-plus-base memory form.
// internal/codegen builds these from the same data it would otherwise hand
// to internal/asmtext.
type Operand struct {
	Reg    string
	Imm    int64
	HasImm bool
	Disp   int64
	Base   string
	IsMem  bool
}

// Encoder is the byte-encoding boundary for --half-assemble (spec.md §4.5
// "Optional byte-level encoding"). internal/codegen does not call it.
type Encoder interface {
	// Encode attempts to produce the raw bytes for mnemonic applied to
	// operands. ok is false whenever the encoder does not (yet) support
	// the requested form, in which case the caller must fall back to
	// mnemonic text emission.
	Encode(mnemonic string, operands []Operand) (bytes []byte, ok bool)
}

// Unimplemented is the always-stub Encoder: every call reports ok=false.
type Unimplemented struct{}

func (Unimplemented) Encode(mnemonic string, operands []Operand) ([]byte, bool) {
	return nil, false
}

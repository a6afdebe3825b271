package asmtext

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mincc/internal/abi"
)

func TestSectionDedupesRedundantSwitches(t *testing.T) {
	w := NewWriter()
	w.Section(Text)
	w.Section(Text)
	w.Section(Data)
	assert.Equal(t, "\t.text\n\t.data\n", w.String())
}

func TestLabelExportsGloblDirective(t *testing.T) {
	w := NewWriter()
	w.Label("main", true)
	w.Label("helper", false)
	assert.Equal(t, "\t.globl main\nmain:\nhelper:\n", w.String())
}

func TestInstrAndComment(t *testing.T) {
	w := NewWriter()
	w.Instr("movq", Imm(7), Reg("rax"))
	w.Comment("return 7")
	assert.Equal(t, "\tmovq $7, %rax\n\t# return 7\n", w.String())
}

func TestOperandPrettyPrinters(t *testing.T) {
	assert.Equal(t, "%rax", Reg("rax"))
	assert.Equal(t, "%xmm0", XMM("xmm0"))
	assert.Equal(t, "*%rax", IndirectCall("rax"))
	assert.Equal(t, "$7", Imm(7))
	assert.Equal(t, "$foo+4", ImmLabel("foo", 4))
	assert.Equal(t, "$foo-4", ImmLabel("foo", -4))
	assert.Equal(t, "-8(%rbp)", Mem(-8, "rbp"))
	assert.Equal(t, "(%rax)", Mem(0, "rax"))
}

func TestBytesEmitsHalfAssembleDirective(t *testing.T) {
	w := NewWriter()
	w.Bytes([]byte{0x48, 0x89, 0xe5})
	assert.Equal(t, "\t.byte 0x48, 0x89, 0xe5\n", w.String())
}

func TestWriterSatisfiesABIEmitter(t *testing.T) {
	var _ abi.Emitter = NewWriter()
}

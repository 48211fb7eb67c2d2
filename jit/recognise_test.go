package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/frobware/ebpfcore/isa"
)

func TestRecogniseAcceptsMovAddExit(t *testing.T) {
	steps, ok := recognise([]isa.Instruction{
		isa.Mov64Imm(isa.R0, 10),
		isa.ALU64Imm(isa.ALUAdd, isa.R0, 5),
		isa.Exit(),
	})
	assert.True(t, ok)
	assert.Equal(t, []op{{mov: true, imm: 10}, {alu: isa.ALUAdd, imm: 5}}, steps)
}

func TestRecogniseAcceptsLoadImm64(t *testing.T) {
	pair := isa.LoadImm64Pair(isa.R0, 0x1122334455667788)
	steps, ok := recognise([]isa.Instruction{pair[0], pair[1], isa.Exit()})
	assert.True(t, ok)
	assert.Equal(t, []op{{mov: true, imm: 0x1122334455667788}}, steps)
}

func TestRecogniseRejectsNonExitTail(t *testing.T) {
	_, ok := recognise([]isa.Instruction{isa.Mov64Imm(isa.R0, 1)})
	assert.False(t, ok)
}

func TestRecogniseRejectsOtherRegisters(t *testing.T) {
	_, ok := recognise([]isa.Instruction{
		isa.Mov64Imm(isa.R1, 1),
		isa.Exit(),
	})
	assert.False(t, ok)
}

func TestRecogniseRejectsRegisterSourcedALU(t *testing.T) {
	_, ok := recognise([]isa.Instruction{
		isa.Mov64Imm(isa.R0, 1),
		isa.Mov64Imm(isa.R1, 2),
		isa.ALU64Reg(isa.ALUAdd, isa.R0, isa.R1),
		isa.Exit(),
	})
	assert.False(t, ok)
}

func TestRecogniseRejectsDivision(t *testing.T) {
	_, ok := recognise([]isa.Instruction{
		isa.Mov64Imm(isa.R0, 10),
		isa.ALU64Imm(isa.ALUDiv, isa.R0, 2),
		isa.Exit(),
	})
	assert.False(t, ok)
}

func TestRecogniseRejectsEmptyProgram(t *testing.T) {
	_, ok := recognise(nil)
	assert.False(t, ok)
}

func TestRecogniseAcceptsBareExit(t *testing.T) {
	steps, ok := recognise([]isa.Instruction{isa.Exit()})
	assert.True(t, ok)
	assert.Empty(t, steps)
}

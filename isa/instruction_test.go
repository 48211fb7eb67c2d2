package isa_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/ebpfcore/isa"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := isa.Instruction{
		Op:     isa.MakeALU(isa.ClassALU64, isa.ALUAdd, isa.SrcReg),
		Dst:    isa.R3,
		Src:    isa.R7,
		Offset: -12,
		Imm:    0,
	}

	out := isa.Decode(in.Encode())
	assert.Equal(t, in, out)
}

func TestLoadImm64Pair(t *testing.T) {
	pair := isa.LoadImm64Pair(isa.R1, 0x1122334455667788)
	assert.True(t, pair[0].IsLoadImm64())
	assert.Equal(t, int64(0x1122334455667788), isa.Imm64(pair[0], pair[1]))
}

func TestNextPCSkipsLoadImm64Pair(t *testing.T) {
	prog := []isa.Instruction{
		isa.LoadImm64Pair(isa.R1, 42)[0],
		{},
		isa.Exit(),
	}
	pc := 0
	pc = isa.NextPC(prog, pc)
	require.Equal(t, 2, pc)
	pc = isa.NextPC(prog, pc)
	require.Equal(t, 3, pc)
}

func TestOpCodeFieldAccessors(t *testing.T) {
	op := isa.MakeLoadStore(isa.ClassLdX, isa.ModeMem, isa.SizeH)
	assert.Equal(t, isa.ClassLdX, op.Class())
	assert.Equal(t, isa.ModeMem, op.Mode())
	assert.Equal(t, isa.SizeH, op.Size())
	assert.Equal(t, 2, op.Size().Bytes())
}

func TestEncodeProgramRoundTrip(t *testing.T) {
	prog := []isa.Instruction{
		isa.Mov64Imm(isa.R0, 7),
		isa.Exit(),
	}
	buf := isa.EncodeProgram(prog)
	require.Len(t, buf, len(prog)*isa.InstructionSize)

	decoded, ok := isa.DecodeProgram(buf)
	require.True(t, ok)
	assert.Equal(t, prog, decoded)
}

//go:build amd64

package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/ebpfcore/isa"
	"github.com/frobware/ebpfcore/program"
	"github.com/frobware/ebpfcore/vm"
)

func TestCompileMatchesInterpreterForArithmetic(t *testing.T) {
	insts := []isa.Instruction{
		isa.Mov64Imm(isa.R0, 10),
		isa.ALU64Imm(isa.ALUAdd, isa.R0, 5),
		isa.ALU64Imm(isa.ALUMul, isa.R0, 2),
		isa.ALU64Imm(isa.ALUSub, isa.R0, 3),
		isa.ALU64Imm(isa.ALUAnd, isa.R0, 0xff),
		isa.ALU64Imm(isa.ALUOr, isa.R0, 0x100),
		isa.ALU64Imm(isa.ALUXor, isa.R0, 0x10),
		isa.Exit(),
	}

	interp, err := program.Init(program.Attr{Type: program.Test, Insts: insts}, nil)
	require.NoError(t, err)
	want := vm.Exec(interp, nil, nil)

	exec, err := Compile(insts, nil)
	require.NoError(t, err)
	jitExecutor := exec.(*executor)
	defer jitExecutor.Release()

	got, err := exec.Exec(nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCompileMatchesInterpreterForLoadImm64(t *testing.T) {
	pair := isa.LoadImm64Pair(isa.R0, 0x1122334455667788)
	insts := []isa.Instruction{pair[0], pair[1], isa.Exit()}

	interp, err := program.Init(program.Attr{Type: program.Test, Insts: insts}, nil)
	require.NoError(t, err)
	want := vm.Exec(interp, nil, nil)

	exec, err := Compile(insts, nil)
	require.NoError(t, err)
	defer exec.(*executor).Release()

	got, err := exec.Exec(nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCompileRejectsProgramsOutsideTemplate(t *testing.T) {
	insts := []isa.Instruction{
		isa.Mov64Imm(isa.R1, 1),
		isa.JumpImm(isa.JumpJEq, isa.R1, 1, 1),
		isa.Mov64Imm(isa.R0, 99),
		isa.Exit(),
	}
	_, err := Compile(insts, nil)
	assert.Error(t, err)
}

func TestProgramInitFallsBackWhenTemplateDoesNotMatch(t *testing.T) {
	insts := []isa.Instruction{
		isa.Mov64Imm(isa.R1, 1),
		isa.JumpImm(isa.JumpJEq, isa.R1, 1, 1),
		isa.Mov64Imm(isa.R0, 99),
		isa.Exit(),
	}
	p, err := program.Init(program.Attr{Type: program.Test, Insts: insts, JITFn: Compile}, nil)
	require.NoError(t, err)
	_, ok := p.JIT()
	assert.False(t, ok)
}

func TestProgramInitUsesJITWhenTemplateMatches(t *testing.T) {
	insts := []isa.Instruction{
		isa.Mov64Imm(isa.R0, 42),
		isa.Exit(),
	}
	p, err := program.Init(program.Attr{Type: program.Test, Insts: insts, JITFn: Compile}, nil)
	require.NoError(t, err)
	exec, ok := p.JIT()
	require.True(t, ok)

	got, err := exec.Exec(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)
}

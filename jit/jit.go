// Package jit compiles a narrow, recognisable template of verified
// programs directly to x86_64 machine code, skipping the interpreter's
// decode-dispatch loop for the common case of straight-line scalar
// arithmetic on R0. Anything outside the template - jumps, memory
// access, helper calls, any register but R0 - is reported as
// unsupported so the caller falls back to the interpreter, per the
// two-backend contract in package program.
//
// The template covers: zero or more MOV64/ALU64 instructions on R0
// (immediate source only) or LOAD_IMM64 pairs into R0, followed by a
// single trailing EXIT. This is
// enough to JIT the constant-folding and counter-style programs that
// dominate simple policy checks without taking on a general register
// allocator.
package jit

import (
	"github.com/frobware/ebpfcore/ebpferrors"
	"github.com/frobware/ebpfcore/isa"
)

// op is one recognised arithmetic step on R0.
type op struct {
	alu isa.ALUOp
	mov bool // true for MOV64 (alu ignored), false for an ALU64 step
	imm int64
}

// recognise walks insts and reports the step sequence if the whole
// program matches the template, or ok=false if it doesn't.
func recognise(insts []isa.Instruction) (steps []op, ok bool) {
	if len(insts) == 0 {
		return nil, false
	}
	last := insts[len(insts)-1]
	if last.Op.Class() != isa.ClassJmp || last.Op.JumpOp() != isa.JumpExit {
		return nil, false
	}

	body := insts[:len(insts)-1]
	steps = make([]op, 0, len(body))

	for i := 0; i < len(body); i++ {
		ins := body[i]

		if ins.IsLoadImm64() {
			if ins.Dst != isa.R0 || i+1 >= len(body) {
				return nil, false
			}
			steps = append(steps, op{mov: true, imm: isa.Imm64(ins, body[i+1])})
			i++
			continue
		}

		class := ins.Op.Class()
		if class != isa.ClassALU64 {
			return nil, false
		}
		if ins.Op.Source() != isa.SrcImm {
			return nil, false
		}
		if ins.Dst != isa.R0 {
			return nil, false
		}

		aluOp := ins.Op.ALUOp()
		switch aluOp {
		case isa.ALUMov:
			steps = append(steps, op{mov: true, imm: int64(ins.Imm)})
		case isa.ALUAdd, isa.ALUSub, isa.ALUMul, isa.ALUOr, isa.ALUAnd, isa.ALUXor:
			steps = append(steps, op{alu: aluOp, imm: int64(ins.Imm)})
		default:
			// DIV/MOD/shift/NEG/END/ARSH need either a zero-check
			// or bit-width games this template doesn't bother
			// with; bail to the interpreter.
			return nil, false
		}
	}

	return steps, true
}

// errUnsupported is returned when insts falls outside the template
// this package can compile. Callers (package program) treat any
// non-nil error as "no JIT available" and use the interpreter.
var errUnsupported = ebpferrors.InvalidArgument("program does not match the jit template")

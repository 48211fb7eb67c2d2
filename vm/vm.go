// Package vm implements the decode-and-dispatch interpreter: the
// reference execution back-end every verified program runs on when a
// JIT image is unavailable. Its entry point, Exec, matches the
// contract the x86_64 JIT in package jit must reproduce bit-for-bit.
package vm

import (
	"log/slog"

	"github.com/frobware/ebpfcore/isa"
	"github.com/frobware/ebpfcore/program"
)

// MaxInstructionCount bounds how many instructions a single Exec call
// will run before aborting; it is the sole watchdog against runaway
// or maliciously crafted loops.
const MaxInstructionCount = 1_000_000

// Exec runs prog against ctx with the default MaxInstructionCount
// watchdog. See ExecWithCap.
func Exec(prog *program.Program, ctx []byte, logger *slog.Logger) uint64 {
	return ExecWithCap(prog, ctx, MaxInstructionCount, logger)
}

// ExecWithCap runs prog against ctx and returns R0 at EXIT. R1 is
// seeded with the address of ctx within the program's memory space,
// R10 with the top of its scratch stack; every other register starts
// at zero. Running past cap instructions, or a memory access outside
// the program's address space, ends execution early and returns zero
// — matching the spec's "runtime faults are represented as R0=0 and
// early termination", not a Go error. Callers load cap from
// config.Runtime.InstructionCountCap; Exec uses the compiled default.
// logger may be nil, in which case slog.Default() is used.
func ExecWithCap(prog *program.Program, ctx []byte, cap uint64, logger *slog.Logger) uint64 {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "vm")

	insts := prog.Instructions()
	mem := newMemory(ctx)

	var regs [isa.NumRegisters]uint64
	regs[isa.R1] = 0 // ctx begins at address 0 in the program's memory space
	regs[isa.FP] = uint64(mem.stackTop)

	pc := 0
	for steps := uint64(0); steps < cap; steps++ {
		if pc < 0 || pc >= len(insts) {
			return 0
		}
		ins := insts[pc]

		if ins.IsLoadImm64() {
			if pc+1 >= len(insts) {
				return 0
			}
			regs[ins.Dst] = uint64(isa.Imm64(ins, insts[pc+1]))
			pc += 2
			continue
		}

		class := ins.Op.Class()
		switch {
		case class.IsALU():
			execALU(&regs, ins, class == isa.ClassALU)
			pc++
		case class.IsLoadStore():
			if !execLoadStore(mem, &regs, ins, class) {
				return 0
			}
			pc++
		case class.IsJump():
			switch ins.Op.JumpOp() {
			case isa.JumpExit:
				return regs[isa.R0]
			case isa.JumpCall:
				if !callHelper(prog, mem, &regs, isa.Helper(ins.Imm)) {
					return 0
				}
				pc++
			default:
				taken, target := evalJump(regs, ins, pc)
				if taken {
					if target < 0 || target >= len(insts) {
						return 0
					}
					pc = target
				} else {
					pc++
				}
			}
		default:
			return 0
		}
	}

	logger.Warn("instruction cap exceeded", "cap", cap, "program", prog.ID)
	return 0
}

func evalJump(regs [isa.NumRegisters]uint64, ins isa.Instruction, pc int) (bool, int) {
	dst := regs[ins.Dst]
	var src uint64
	if ins.Op.Source() == isa.SrcReg {
		src = regs[ins.Src]
	} else {
		src = uint64(int64(ins.Imm))
	}

	var taken bool
	switch ins.Op.JumpOp() {
	case isa.JumpJA:
		taken = true
	case isa.JumpJEq:
		taken = dst == src
	case isa.JumpJNE:
		taken = dst != src
	case isa.JumpJGT:
		taken = dst > src
	case isa.JumpJGE:
		taken = dst >= src
	case isa.JumpJLT:
		taken = dst < src
	case isa.JumpJLE:
		taken = dst <= src
	case isa.JumpJSGT:
		taken = int64(dst) > int64(src)
	case isa.JumpJSGE:
		taken = int64(dst) >= int64(src)
	case isa.JumpJSLT:
		taken = int64(dst) < int64(src)
	case isa.JumpJSLE:
		taken = int64(dst) <= int64(src)
	case isa.JumpJSet:
		taken = dst&src != 0
	}

	return taken, pc + 1 + int(ins.Offset)
}

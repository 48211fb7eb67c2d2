// Package verifier performs the single-pass structural check that decides
// whether a bytecode program is admissible for execution. It proves
// structural soundness only (valid opcodes, in-range registers, resolvable
// branch targets) - it does not perform data-flow type inference or
// pointer/bounds tracking. That extension is out of scope (see §9 of the
// design).
package verifier

import (
	"fmt"
	"log/slog"

	"github.com/frobware/ebpfcore/ebpferrors"
	"github.com/frobware/ebpfcore/isa"
)

// Verify checks prog against the structural rules and returns a non-nil
// error describing the first violation found, or nil if the program is
// accepted. Every returned error is, or wraps (register-check failures
// are wrapped with their pc), an ebpferrors.ErrInvalidArgument.
// logger may be nil, in which case slog.Default() is used; a rejection
// is logged against it at debug level.
func Verify(prog []isa.Instruction, logger *slog.Logger) (err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "verifier")
	defer func() {
		if err != nil {
			logger.Debug("program rejected", "error", err)
		}
	}()

	if len(prog) == 0 || len(prog) > isa.MaxInstructions {
		return invalidf("program length %d out of range [1, %d]", len(prog), isa.MaxInstructions)
	}

	if err := checkLastIsExit(prog); err != nil {
		return err
	}

	pcs, err := instructionBoundaries(prog)
	if err != nil {
		return err
	}

	for pc := 0; pc < len(prog); {
		ins := prog[pc]
		class := ins.Op.Class()

		if err := checkRegisters(class, ins); err != nil {
			return fmt.Errorf("pc %d: %w", pc, err)
		}

		if ins.IsLoadImm64() {
			if pc+1 >= len(prog) {
				return invalidf("pc %d: LOAD_IMM64 missing its second slot", pc)
			}
			pc += 2
			continue
		}

		switch {
		case class.IsJump():
			if err := checkJump(prog, pc, ins, pcs); err != nil {
				return err
			}
		case class.IsALU():
			if err := checkALU(pc, ins); err != nil {
				return err
			}
		case class.IsLoadStore():
			if err := checkLoadStore(pc, ins); err != nil {
				return err
			}
		default:
			return invalidf("pc %d: opcode 0x%02x outside defined class table", pc, ins.Op)
		}

		pc++
	}

	return nil
}

func checkLastIsExit(prog []isa.Instruction) error {
	last := prog[len(prog)-1]
	if last.Op.Class() != isa.ClassJmp || last.Op.JumpOp() != isa.JumpExit {
		return invalidf("final instruction must be EXIT")
	}
	return nil
}

// instructionBoundaries returns the set of valid program counters: every
// index that is the start of an instruction (accounting for LOAD_IMM64
// occupying two slots).
func instructionBoundaries(prog []isa.Instruction) (map[int]bool, error) {
	pcs := make(map[int]bool, len(prog))
	for pc := 0; pc < len(prog); {
		pcs[pc] = true
		if prog[pc].IsLoadImm64() {
			if pc+1 >= len(prog) {
				return nil, invalidf("pc %d: LOAD_IMM64 missing its second slot", pc)
			}
			pc += 2
		} else {
			pc++
		}
	}
	return pcs, nil
}

// checkRegisters validates dst_reg/src_reg range and read-only-FP use.
// dst_reg names the register a register-writing instruction assigns
// to, but for ClassSt/ClassStX it instead names the pointer base of a
// store's memory address — R10 is legitimately used there to address
// the scratch stack via negative offsets (§4.5), so the read-only
// check does not apply to those two classes.
func checkRegisters(class isa.Class, ins isa.Instruction) error {
	if !ins.Dst.Valid() {
		return invalidf("dst_reg %d out of range [0, 10]", ins.Dst)
	}
	if !ins.Src.Valid() {
		return invalidf("src_reg %d out of range [0, 10]", ins.Src)
	}
	if ins.Dst == isa.FP && class != isa.ClassSt && class != isa.ClassStX {
		return invalidf("dst_reg is read-only frame pointer (R10)")
	}
	return nil
}

func checkJump(prog []isa.Instruction, pc int, ins isa.Instruction, pcs map[int]bool) error {
	op := ins.Op.JumpOp()
	switch op {
	case isa.JumpJA, isa.JumpJEq, isa.JumpJGT, isa.JumpJGE, isa.JumpJSet,
		isa.JumpJNE, isa.JumpJSGT, isa.JumpJSGE, isa.JumpCall, isa.JumpExit,
		isa.JumpJLT, isa.JumpJLE, isa.JumpJSLT, isa.JumpJSLE:
	default:
		return invalidf("pc %d: jump op 0x%02x outside defined table", pc, uint8(op))
	}

	if op == isa.JumpExit {
		return nil
	}
	if op == isa.JumpCall {
		return nil
	}

	target := pc + 1 + int(ins.Offset)
	if target < 0 || target >= len(prog) || !pcs[target] {
		return invalidf("pc %d: branch target %d out of range or mid-instruction", pc, target)
	}
	return nil
}

func checkALU(pc int, ins isa.Instruction) error {
	switch ins.Op.ALUOp() {
	case isa.ALUAdd, isa.ALUSub, isa.ALUMul, isa.ALUDiv, isa.ALUOr, isa.ALUAnd,
		isa.ALULsh, isa.ALURsh, isa.ALUNeg, isa.ALUMod, isa.ALUXor, isa.ALUMov,
		isa.ALUArsh, isa.ALUEnd:
	default:
		return invalidf("pc %d: ALU op 0x%02x outside defined table", pc, uint8(ins.Op.ALUOp()))
	}

	if ins.Op.Source() == isa.SrcImm {
		switch ins.Op.ALUOp() {
		case isa.ALUDiv, isa.ALUMod:
			if ins.Imm == 0 {
				return invalidf("pc %d: division/modulo by literal zero immediate", pc)
			}
		}
	}
	return nil
}

func checkLoadStore(pc int, ins isa.Instruction) error {
	switch ins.Op.Size() {
	case isa.SizeW, isa.SizeH, isa.SizeB, isa.SizeDW:
		return nil
	default:
		return invalidf("pc %d: invalid load/store size", pc)
	}
}

func invalidf(format string, args ...any) error {
	return ebpferrors.InvalidArgument(format, args...)
}

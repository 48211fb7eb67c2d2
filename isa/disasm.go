package isa

import "fmt"

func (c Class) String() string {
	switch c {
	case ClassLd:
		return "ld"
	case ClassLdX:
		return "ldx"
	case ClassSt:
		return "st"
	case ClassStX:
		return "stx"
	case ClassALU:
		return "alu"
	case ClassJmp:
		return "jmp"
	case ClassJmp32:
		return "jmp32"
	case ClassALU64:
		return "alu64"
	default:
		return "unknown"
	}
}

func (op ALUOp) String() string {
	switch op {
	case ALUAdd:
		return "add"
	case ALUSub:
		return "sub"
	case ALUMul:
		return "mul"
	case ALUDiv:
		return "div"
	case ALUOr:
		return "or"
	case ALUAnd:
		return "and"
	case ALULsh:
		return "lsh"
	case ALURsh:
		return "rsh"
	case ALUNeg:
		return "neg"
	case ALUMod:
		return "mod"
	case ALUXor:
		return "xor"
	case ALUMov:
		return "mov"
	case ALUArsh:
		return "arsh"
	case ALUEnd:
		return "end"
	default:
		return "unknown"
	}
}

func (op JumpOp) String() string {
	switch op {
	case JumpJA:
		return "ja"
	case JumpJEq:
		return "jeq"
	case JumpJGT:
		return "jgt"
	case JumpJGE:
		return "jge"
	case JumpJSet:
		return "jset"
	case JumpJNE:
		return "jne"
	case JumpJSGT:
		return "jsgt"
	case JumpJSGE:
		return "jsge"
	case JumpCall:
		return "call"
	case JumpExit:
		return "exit"
	case JumpJLT:
		return "jlt"
	case JumpJLE:
		return "jle"
	case JumpJSLT:
		return "jslt"
	case JumpJSLE:
		return "jsle"
	default:
		return "unknown"
	}
}

// aluSymbol renders the compound-assignment operator bpftool-style
// disassembly uses for an ALU op, e.g. ALUAdd -> "+=".
func aluSymbol(op ALUOp) string {
	switch op {
	case ALUAdd:
		return "+="
	case ALUSub:
		return "-="
	case ALUMul:
		return "*="
	case ALUDiv:
		return "/="
	case ALUMod:
		return "%="
	case ALUOr:
		return "|="
	case ALUAnd:
		return "&="
	case ALULsh:
		return "<<="
	case ALURsh:
		return ">>="
	case ALUArsh:
		return "s>>="
	case ALUXor:
		return "^="
	default:
		return "?="
	}
}

func (r Register) String() string {
	if r == FP {
		return "r10"
	}
	return fmt.Sprintf("r%d", uint8(r))
}

// String renders ins in a form resembling standard eBPF disassembly
// output (e.g. `r0 += 5 (64-bit)`, `if r1 jeq 1 goto +1`, `exit`). It
// is a single-instruction view; LOAD_IMM64's second slot is not
// rendered separately by cmd/ebpfdump, which steps with NextPC, since
// it carries no opcode of its own.
func (ins Instruction) String() string {
	class := ins.Op.Class()

	switch {
	case ins.IsLoadImm64():
		return fmt.Sprintf("%s = imm64", ins.Dst)

	case class.IsALU():
		width := "64"
		if class == ClassALU {
			width = "32"
		}
		op := ins.Op.ALUOp()
		if op == ALUMov {
			if ins.Op.Source() == SrcReg {
				return fmt.Sprintf("%s = %s (%s-bit)", ins.Dst, ins.Src, width)
			}
			return fmt.Sprintf("%s = %d (%s-bit)", ins.Dst, ins.Imm, width)
		}
		if op == ALUNeg {
			return fmt.Sprintf("%s = -%s (%s-bit)", ins.Dst, ins.Dst, width)
		}
		if op == ALUEnd {
			return fmt.Sprintf("%s = %s(%s, %d) (%s-bit)", ins.Dst, op, ins.Dst, ins.Imm, width)
		}
		sym := aluSymbol(op)
		if ins.Op.Source() == SrcReg {
			return fmt.Sprintf("%s %s %s (%s-bit)", ins.Dst, sym, ins.Src, width)
		}
		return fmt.Sprintf("%s %s %d (%s-bit)", ins.Dst, sym, ins.Imm, width)

	case class.IsLoadStore():
		size := ins.Op.Size()
		switch class {
		case ClassLdX:
			return fmt.Sprintf("%s = *(%s *)(%s + %d)", ins.Dst, size, ins.Src, ins.Offset)
		case ClassStX:
			return fmt.Sprintf("*(%s *)(%s + %d) = %s", size, ins.Dst, ins.Offset, ins.Src)
		case ClassSt:
			return fmt.Sprintf("*(%s *)(%s + %d) = %d", size, ins.Dst, ins.Offset, ins.Imm)
		default:
			return "ld <imm64 lo>"
		}

	case class.IsJump():
		switch ins.Op.JumpOp() {
		case JumpExit:
			return "exit"
		case JumpCall:
			return fmt.Sprintf("call %s", Helper(ins.Imm))
		case JumpJA:
			return fmt.Sprintf("goto +%d", ins.Offset)
		default:
			if ins.Op.Source() == SrcReg {
				return fmt.Sprintf("if %s %s %s goto +%d", ins.Dst, ins.Op.JumpOp(), ins.Src, ins.Offset)
			}
			return fmt.Sprintf("if %s %s %d goto +%d", ins.Dst, ins.Op.JumpOp(), ins.Imm, ins.Offset)
		}
	}

	return fmt.Sprintf("unknown opcode 0x%02x", uint8(ins.Op))
}

func (s Size) String() string {
	switch s {
	case SizeW:
		return "u32"
	case SizeH:
		return "u16"
	case SizeB:
		return "u8"
	case SizeDW:
		return "u64"
	default:
		return "u?"
	}
}

package vm

import "github.com/frobware/ebpfcore/isa"

// execALU performs an ALU32/ALU64 instruction in place on regs.
// ALU32 operates on the low 32 bits of Dst and zero-extends the
// result into the full 64-bit register, per the spec.
func execALU(regs *[isa.NumRegisters]uint64, ins isa.Instruction, is32 bool) {
	dst := ins.Dst

	var operand uint64
	if ins.Op.Source() == isa.SrcReg {
		operand = regs[ins.Src]
	} else {
		operand = uint64(int64(ins.Imm))
	}
	if is32 {
		operand = uint64(uint32(operand))
	}

	v := regs[dst]
	if is32 {
		v = uint64(uint32(v))
	}

	switch ins.Op.ALUOp() {
	case isa.ALUAdd:
		v += operand
	case isa.ALUSub:
		v -= operand
	case isa.ALUMul:
		v *= operand
	case isa.ALUDiv:
		if operand == 0 {
			v = 0
		} else {
			v /= operand
		}
	case isa.ALUMod:
		if operand == 0 {
			// dividend unchanged, per spec §4.4 rule 6
		} else {
			v %= operand
		}
	case isa.ALUOr:
		v |= operand
	case isa.ALUAnd:
		v &= operand
	case isa.ALULsh:
		v <<= operand & 63
	case isa.ALURsh:
		v >>= operand & 63
	case isa.ALUNeg:
		v = -v
	case isa.ALUXor:
		v ^= operand
	case isa.ALUMov:
		v = operand
	case isa.ALUArsh:
		if is32 {
			v = uint64(uint32(int32(v) >> (operand & 31)))
		} else {
			v = uint64(int64(v) >> (operand & 63))
		}
	case isa.ALUEnd:
		v = endianConvert(v, ins)
	}

	if is32 {
		v = uint64(uint32(v))
	}
	regs[dst] = v
}

func endianConvert(v uint64, ins isa.Instruction) uint64 {
	if ins.Op.Source() == isa.SrcImm {
		// to-LE: the VM's memory is little-endian, so this only truncates.
		switch ins.Imm {
		case 16:
			return uint64(uint16(v))
		case 32:
			return uint64(uint32(v))
		default:
			return v
		}
	}
	switch ins.Imm {
	case 16:
		return uint64(uint16(v>>8) | uint16(v)<<8)
	case 32:
		b := uint32(v)
		return uint64((b>>24)&0xff | (b>>8)&0xff00 | (b<<8)&0xff0000 | (b<<24)&0xff000000)
	case 64:
		var out uint64
		for i := 0; i < 8; i++ {
			out = out<<8 | (v & 0xff)
			v >>= 8
		}
		return out
	default:
		return v
	}
}

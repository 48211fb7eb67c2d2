package vm

import "github.com/frobware/ebpfcore/isa"

// execLoadStore performs one LD/LDX/ST/STX instruction. Addresses are
// register value plus signed offset, interpreted as an index into the
// program's flat memory space (see memory.go). It returns false on an
// out-of-bounds access, which the caller treats as a runtime fault.
func execLoadStore(mem *memory, regs *[isa.NumRegisters]uint64, ins isa.Instruction, class isa.Class) bool {
	switch class {
	case isa.ClassLdX:
		addr := int(regs[ins.Src]) + int(ins.Offset)
		switch ins.Op.Size() {
		case isa.SizeB:
			v, ok := mem.read8(addr)
			if !ok {
				return false
			}
			regs[ins.Dst] = uint64(v)
		case isa.SizeH:
			v, ok := mem.read16(addr)
			if !ok {
				return false
			}
			regs[ins.Dst] = uint64(v)
		case isa.SizeW:
			v, ok := mem.read32(addr)
			if !ok {
				return false
			}
			regs[ins.Dst] = uint64(v)
		case isa.SizeDW:
			v, ok := mem.read64(addr)
			if !ok {
				return false
			}
			regs[ins.Dst] = v
		}
		return true

	case isa.ClassStX:
		addr := int(regs[ins.Dst]) + int(ins.Offset)
		return storeSized(mem, addr, ins.Op.Size(), regs[ins.Src])

	case isa.ClassSt:
		addr := int(regs[ins.Dst]) + int(ins.Offset)
		return storeSized(mem, addr, ins.Op.Size(), uint64(int64(ins.Imm)))

	case isa.ClassLd:
		// Only LOAD_IMM64 belongs to this class in this core; it is
		// handled by the caller before dispatch ever reaches here.
		return false

	default:
		return false
	}
}

func storeSized(mem *memory, addr int, size isa.Size, v uint64) bool {
	switch size {
	case isa.SizeB:
		return mem.write8(addr, uint8(v))
	case isa.SizeH:
		return mem.write16(addr, uint16(v))
	case isa.SizeW:
		return mem.write32(addr, uint32(v))
	case isa.SizeDW:
		return mem.write64(addr, v)
	default:
		return false
	}
}

package isa

import "encoding/binary"

// InstructionSize is the width in bytes of a single encoded instruction
// slot. LOAD_IMM64 occupies two consecutive slots.
const InstructionSize = 8

// MaxInstructions bounds the length of a program's instruction vector
// (§3 Program, MAX_INSTS).
const MaxInstructions = 4096

// LoadImm64 is the opcode for the two-slot 64-bit immediate load:
// dst = (int64)imm, where imm is assembled from this instruction's Imm
// (low 32 bits) and the following slot's Imm (high 32 bits).
var LoadImm64 = MakeLoadStore(ClassLd, ModeImm, SizeDW)

// Instruction is the decoded form of one 64-bit bytecode word.
type Instruction struct {
	Op     OpCode
	Dst    Register
	Src    Register
	Offset int16
	Imm    int32
}

// IsLoadImm64 reports whether ins is the first slot of a two-slot
// 64-bit immediate load.
func (ins Instruction) IsLoadImm64() bool {
	return ins.Op == LoadImm64
}

// Encode packs ins into its 8-byte little-endian wire form.
func (ins Instruction) Encode() [InstructionSize]byte {
	var buf [InstructionSize]byte
	buf[0] = byte(ins.Op)
	buf[1] = byte(ins.Dst&0x0f) | byte(ins.Src&0x0f)<<4
	binary.LittleEndian.PutUint16(buf[2:4], uint16(ins.Offset))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(ins.Imm))
	return buf
}

// Decode unpacks an 8-byte little-endian wire word into an Instruction.
func Decode(buf [InstructionSize]byte) Instruction {
	return Instruction{
		Op:     OpCode(buf[0]),
		Dst:    Register(buf[1] & 0x0f),
		Src:    Register(buf[1] >> 4),
		Offset: int16(binary.LittleEndian.Uint16(buf[2:4])),
		Imm:    int32(binary.LittleEndian.Uint32(buf[4:8])),
	}
}

// EncodeProgram packs a full instruction vector into its flat byte form.
func EncodeProgram(prog []Instruction) []byte {
	out := make([]byte, 0, len(prog)*InstructionSize)
	for _, ins := range prog {
		enc := ins.Encode()
		out = append(out, enc[:]...)
	}
	return out
}

// DecodeProgram unpacks a flat byte buffer into an instruction vector.
// The buffer length must be a multiple of InstructionSize.
func DecodeProgram(buf []byte) ([]Instruction, bool) {
	if len(buf)%InstructionSize != 0 {
		return nil, false
	}
	prog := make([]Instruction, 0, len(buf)/InstructionSize)
	for i := 0; i < len(buf); i += InstructionSize {
		var slot [InstructionSize]byte
		copy(slot[:], buf[i:i+InstructionSize])
		prog = append(prog, Decode(slot))
	}
	return prog, true
}

// Imm64 assembles the 64-bit immediate encoded across a LOAD_IMM64
// instruction (lo) and its paired second slot (hi). The second slot's
// Imm field supplies the high 32 bits; its other fields are ignored.
func Imm64(lo, hi Instruction) int64 {
	return int64(uint64(uint32(hi.Imm))<<32 | uint64(uint32(lo.Imm)))
}

// NextPC returns the program counter to resume at after executing the
// instruction at pc, given that LOAD_IMM64 consumes two slots.
func NextPC(prog []Instruction, pc int) int {
	if prog[pc].IsLoadImm64() {
		return pc + 2
	}
	return pc + 1
}

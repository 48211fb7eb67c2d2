package isa

// Exit returns the instruction that terminates execution, returning R0.
func Exit() Instruction {
	return Instruction{Op: MakeJump(JumpExit, SrcImm)}
}

// Call returns the instruction that invokes the given helper.
func Call(h Helper) Instruction {
	return Instruction{Op: MakeJump(JumpCall, SrcImm), Imm: int32(h)}
}

// Mov64Imm returns `dst = imm` (64-bit).
func Mov64Imm(dst Register, imm int32) Instruction {
	return Instruction{Op: MakeALU(ClassALU64, ALUMov, SrcImm), Dst: dst, Imm: imm}
}

// Mov64Reg returns `dst = src` (64-bit).
func Mov64Reg(dst, src Register) Instruction {
	return Instruction{Op: MakeALU(ClassALU64, ALUMov, SrcReg), Dst: dst, Src: src}
}

// ALU64Imm returns a 64-bit ALU instruction with an immediate operand.
func ALU64Imm(op ALUOp, dst Register, imm int32) Instruction {
	return Instruction{Op: MakeALU(ClassALU64, op, SrcImm), Dst: dst, Imm: imm}
}

// ALU64Reg returns a 64-bit ALU instruction with a register operand.
func ALU64Reg(op ALUOp, dst, src Register) Instruction {
	return Instruction{Op: MakeALU(ClassALU64, op, SrcReg), Dst: dst, Src: src}
}

// ALU32Imm returns a 32-bit ALU instruction with an immediate operand.
func ALU32Imm(op ALUOp, dst Register, imm int32) Instruction {
	return Instruction{Op: MakeALU(ClassALU, op, SrcImm), Dst: dst, Imm: imm}
}

// ALU32Reg returns a 32-bit ALU instruction with a register operand.
func ALU32Reg(op ALUOp, dst, src Register) Instruction {
	return Instruction{Op: MakeALU(ClassALU, op, SrcReg), Dst: dst, Src: src}
}

// JumpImm returns a conditional jump comparing dst against an immediate,
// branching offset instructions relative to the next PC if true.
func JumpImm(op JumpOp, dst Register, imm int32, offset int16) Instruction {
	return Instruction{Op: MakeJump(op, SrcImm), Dst: dst, Imm: imm, Offset: offset}
}

// JumpReg returns a conditional jump comparing dst against src.
func JumpReg(op JumpOp, dst, src Register, offset int16) Instruction {
	return Instruction{Op: MakeJump(op, SrcReg), Dst: dst, Src: src, Offset: offset}
}

// Goto returns an unconditional jump.
func Goto(offset int16) Instruction {
	return Instruction{Op: MakeJump(JumpJA, SrcImm), Offset: offset}
}

// LoadImm64Pair returns the two instruction slots that load a 64-bit
// immediate into dst.
func LoadImm64Pair(dst Register, imm int64) [2]Instruction {
	return [2]Instruction{
		{Op: LoadImm64, Dst: dst, Imm: int32(uint32(imm))},
		{Imm: int32(uint32(imm >> 32))},
	}
}

// LoadMem returns `dst = *(size *)(src + offset)`.
func LoadMem(dst, src Register, offset int16, size Size) Instruction {
	return Instruction{Op: MakeLoadStore(ClassLdX, ModeMem, size), Dst: dst, Src: src, Offset: offset}
}

// StoreMem returns `*(size *)(dst + offset) = src`.
func StoreMem(dst Register, offset int16, src Register, size Size) Instruction {
	return Instruction{Op: MakeLoadStore(ClassStX, ModeMem, size), Dst: dst, Src: src, Offset: offset}
}

// StoreImm returns `*(size *)(dst + offset) = imm`.
func StoreImm(dst Register, offset int16, imm int32, size Size) Instruction {
	return Instruction{Op: MakeLoadStore(ClassSt, ModeMem, size), Dst: dst, Offset: offset, Imm: imm}
}

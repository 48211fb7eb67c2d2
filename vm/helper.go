package vm

import (
	"github.com/frobware/ebpfcore/bpfmap"
	"github.com/frobware/ebpfcore/epoch"
	"github.com/frobware/ebpfcore/isa"
	"github.com/frobware/ebpfcore/program"
)

// callHelper dispatches a CALL instruction to the helper named by h.
// Calling convention follows the spec: R1 carries the attached-map
// slot index, R2 and R3 carry addresses into the program's memory
// space for the key and value arguments, R4 carries the update flag
// value itself, and R0 receives the result. A
// map_lookup_elem success returns, in R0, the address of a
// helper-scratch copy of the value (0 means "not found" or error,
// matching a null pointer); map_update_elem/map_delete_elem return 1
// for success and 0 for any error.
func callHelper(prog *program.Program, mem *memory, regs *[isa.NumRegisters]uint64, h isa.Helper) bool {
	m := prog.MapAt(int(regs[isa.R1]))
	if m == nil {
		regs[isa.R0] = 0
		return true
	}

	switch h {
	case isa.HelperMapLookupElem:
		return helperLookup(m, mem, regs)
	case isa.HelperMapUpdateElem:
		return helperUpdate(m, mem, regs)
	case isa.HelperMapDeleteElem:
		return helperDelete(m, mem, regs)
	default:
		regs[isa.R0] = 0
		return true
	}
}

func helperLookup(m bpfmap.Map, mem *memory, regs *[isa.NumRegisters]uint64) bool {
	keySize := int(m.Attr().KeySize)
	key, ok := mem.readN(int(regs[isa.R2]), keySize)
	if !ok {
		regs[isa.R0] = 0
		return true
	}

	var tok epoch.Token
	if d := m.Domain(); d != nil {
		tok = d.Enter()
		defer d.Exit(tok)
	}

	value, err := m.LookupFromKern(tok, key)
	if err != nil {
		regs[isa.R0] = 0
		return true
	}

	n := len(value)
	if n > HelperScratchSize {
		n = HelperScratchSize
	}
	copy(mem.buf[mem.scratchOff:mem.scratchOff+n], value[:n])
	regs[isa.R0] = uint64(mem.scratchOff)
	return true
}

func helperUpdate(m bpfmap.Map, mem *memory, regs *[isa.NumRegisters]uint64) bool {
	attr := m.Attr()
	key, ok := mem.readN(int(regs[isa.R2]), int(attr.KeySize))
	if !ok {
		regs[isa.R0] = 0
		return true
	}
	value, ok := mem.readN(int(regs[isa.R3]), int(attr.ValueSize))
	if !ok {
		regs[isa.R0] = 0
		return true
	}

	err := m.UpdateFromUser(key, value, bpfmap.Flag(regs[isa.R4]))
	if err != nil {
		regs[isa.R0] = 0
		return true
	}
	regs[isa.R0] = 1
	return true
}

func helperDelete(m bpfmap.Map, mem *memory, regs *[isa.NumRegisters]uint64) bool {
	key, ok := mem.readN(int(regs[isa.R2]), int(m.Attr().KeySize))
	if !ok {
		regs[isa.R0] = 0
		return true
	}

	if err := m.DeleteFromUser(key); err != nil {
		regs[isa.R0] = 0
		return true
	}
	regs[isa.R0] = 1
	return true
}

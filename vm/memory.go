package vm

import "encoding/binary"

// memory is the single flat address space a running program sees.
// Layout, low to high: the caller's context buffer, a fixed-size
// scratch stack (addressed through R10 with negative offsets, per the
// spec's frame-pointer convention), and a small helper-result region
// map_lookup_elem copies found values into so it can return an
// address in R0 the way the instruction set expects.
type memory struct {
	buf        []byte
	ctxLen     int
	stackBase  int
	stackTop   int // one past the end of the stack, R10's initial value
	scratchOff int
}

// StackSize is the scratch stack every program gets, addressed
// through R10 with negative offsets.
const StackSize = 512

// HelperScratchSize bounds the value map_lookup_elem can return a
// pointer to; a value larger than this is truncated to its first
// HelperScratchSize bytes. Nothing rejects a larger value_size.
const HelperScratchSize = 256

func newMemory(ctx []byte) *memory {
	m := &memory{
		ctxLen:    len(ctx),
		stackBase: len(ctx),
		stackTop:  len(ctx) + StackSize,
	}
	m.scratchOff = m.stackTop
	m.buf = make([]byte, m.stackTop+HelperScratchSize)
	copy(m.buf, ctx)
	return m
}

// inBounds reports whether [addr, addr+n) lies within the addressable buffer.
func (m *memory) inBounds(addr, n int) bool {
	return addr >= 0 && n >= 0 && addr+n <= len(m.buf)
}

func (m *memory) readN(addr, n int) ([]byte, bool) {
	if !m.inBounds(addr, n) {
		return nil, false
	}
	return m.buf[addr : addr+n], true
}

func (m *memory) read64(addr int) (uint64, bool) {
	b, ok := m.readN(addr, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func (m *memory) read32(addr int) (uint32, bool) {
	b, ok := m.readN(addr, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (m *memory) read16(addr int) (uint16, bool) {
	b, ok := m.readN(addr, 2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

func (m *memory) read8(addr int) (uint8, bool) {
	b, ok := m.readN(addr, 1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (m *memory) write64(addr int, v uint64) bool {
	b, ok := m.readN(addr, 8)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint64(b, v)
	return true
}

func (m *memory) write32(addr int, v uint32) bool {
	b, ok := m.readN(addr, 4)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint32(b, v)
	return true
}

func (m *memory) write16(addr int, v uint16) bool {
	b, ok := m.readN(addr, 2)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint16(b, v)
	return true
}

func (m *memory) write8(addr int, v uint8) bool {
	b, ok := m.readN(addr, 1)
	if !ok {
		return false
	}
	b[0] = v
	return true
}

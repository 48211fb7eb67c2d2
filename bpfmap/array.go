package bpfmap

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/frobware/ebpfcore/ebpferrors"
	"github.com/frobware/ebpfcore/epoch"
)

// arrayMap is the fixed-capacity backend keyed by a 32-bit index.
// Storage is a contiguous slice of value_size-byte slots plus an
// occupancy bitmap; there is no allocator involved because capacity
// is fixed for the lifetime of the map.
type arrayMap struct {
	attr   Attr
	logger *slog.Logger

	mu       sync.RWMutex
	values   [][]byte
	occupied []bool
}

func newArray(attr Attr, logger *slog.Logger) (Map, error) {
	m := &arrayMap{
		attr:     attr,
		logger:   logger,
		values:   make([][]byte, attr.MaxEntries),
		occupied: make([]bool, attr.MaxEntries),
	}
	for i := range m.values {
		m.values[i] = make([]byte, attr.ValueSize)
	}
	return m, nil
}

func (m *arrayMap) Type() Type             { return Array }
func (m *arrayMap) Attr() Attr             { return m.attr }
func (m *arrayMap) Domain() *epoch.Domain { return nil }

func (m *arrayMap) index(key []byte) (uint32, error) {
	if len(key) != 4 {
		return 0, ebpferrors.InvalidArgument("array key must be 4 bytes, got %d", len(key))
	}
	idx := binary.LittleEndian.Uint32(key)
	if idx >= m.attr.MaxEntries {
		return 0, ebpferrors.InvalidArgument("index %d out of range [0, %d)", idx, m.attr.MaxEntries)
	}
	return idx, nil
}

func (m *arrayMap) LookupFromUser(key []byte) ([]byte, error) {
	idx, err := m.index(key)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.occupied[idx] {
		return nil, ebpferrors.NotFound("index %d", idx)
	}
	out := make([]byte, len(m.values[idx]))
	copy(out, m.values[idx])
	return out, nil
}

func (m *arrayMap) LookupFromKern(_ epoch.Token, key []byte) ([]byte, error) {
	idx, err := m.index(key)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.occupied[idx] {
		return nil, ebpferrors.NotFound("index %d", idx)
	}
	return m.values[idx], nil
}

func (m *arrayMap) UpdateFromUser(key, value []byte, flag Flag) error {
	idx, err := m.index(key)
	if err != nil {
		return err
	}
	if uint32(len(value)) != m.attr.ValueSize {
		return ebpferrors.InvalidArgument("value size %d does not match map value_size %d", len(value), m.attr.ValueSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch flag {
	case NoExist:
		if m.occupied[idx] {
			return ebpferrors.Exists("index %d", idx)
		}
	case Exist:
		if !m.occupied[idx] {
			return ebpferrors.NotFound("index %d", idx)
		}
	}

	copy(m.values[idx], value)
	m.occupied[idx] = true
	return nil
}

func (m *arrayMap) DeleteFromUser(key []byte) error {
	idx, err := m.index(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.occupied[idx] {
		return ebpferrors.NotFound("index %d", idx)
	}
	m.occupied[idx] = false
	for i := range m.values[idx] {
		m.values[idx][i] = 0
	}
	return nil
}

func (m *arrayMap) GetNextKey(prevKey []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := uint32(0)
	if prevKey != nil {
		idx, err := m.index(prevKey)
		if err != nil {
			return nil, err
		}
		start = idx + 1
	}

	for i := start; i < m.attr.MaxEntries; i++ {
		if m.occupied[i] {
			out := make([]byte, 4)
			binary.LittleEndian.PutUint32(out, i)
			return out, nil
		}
	}
	return nil, ebpferrors.NotFound("no more keys")
}

func (m *arrayMap) Deinit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = nil
	m.occupied = nil
	m.logger.Info("map deinitialised", "type", Array)
}

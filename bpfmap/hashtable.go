package bpfmap

import (
	"bytes"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/frobware/ebpfcore/allocator"
	"github.com/frobware/ebpfcore/ebpferrors"
	"github.com/frobware/ebpfcore/epoch"
)

// hashEntry is one bucket-chain link. block is a key_size+value_size
// buffer drawn from the backend's allocator; key and value are
// subslices of it rather than independent copies.
type hashEntry struct {
	next  *hashEntry
	block []byte
}

// hashTableMap is the chained bucket-table backend. Entries are drawn
// from a fixed-block allocator sized to key_size+value_size so that
// capacity accounting happens in one place; bucket count is the next
// power of two at or above max_entries.
type hashTableMap struct {
	attr   Attr
	logger *slog.Logger

	keySize, valueSize uint32

	alloc  *allocator.Allocator
	domain *epoch.Domain

	mu      sync.Mutex
	buckets []*hashEntry
	count   uint32
}

func newHashTable(attr Attr, domain *epoch.Domain, logger *slog.Logger) (Map, error) {
	alloc, err := allocator.New(alignUpEntrySize(attr.KeySize+attr.ValueSize), logger)
	if err != nil {
		return nil, err
	}
	return &hashTableMap{
		attr:      attr,
		logger:    logger,
		keySize:   attr.KeySize,
		valueSize: attr.ValueSize,
		alloc:     alloc,
		domain:    domain,
		buckets:   make([]*hashEntry, bucketCount(attr.MaxEntries)),
	}, nil
}

func alignUpEntrySize(n uint32) uint32 {
	const align = 8
	if n%align == 0 {
		return n
	}
	return n + (align - n%align)
}

func bucketCount(maxEntries uint32) uint32 {
	n := uint32(1)
	for n < maxEntries {
		n <<= 1
	}
	if n == 0 {
		n = 1
	}
	return n
}

func (m *hashTableMap) Type() Type             { return HashTable }
func (m *hashTableMap) Attr() Attr             { return m.attr }
func (m *hashTableMap) Domain() *epoch.Domain { return m.domain }

func (m *hashTableMap) checkKey(key []byte) error {
	if uint32(len(key)) != m.keySize {
		return ebpferrors.InvalidArgument("key size %d does not match map key_size %d", len(key), m.keySize)
	}
	return nil
}

func (m *hashTableMap) bucketIndex(key []byte) uint32 {
	return uint32(xxhash.Sum64(key) % uint64(len(m.buckets)))
}

// find returns the entry for key in its bucket, or nil.
func (m *hashTableMap) find(key []byte) *hashEntry {
	idx := m.bucketIndex(key)
	for e := m.buckets[idx]; e != nil; e = e.next {
		if bytes.Equal(e.block[:m.keySize], key) {
			return e
		}
	}
	return nil
}

func (m *hashTableMap) LookupFromUser(key []byte) ([]byte, error) {
	if err := m.checkKey(key); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.find(key)
	if e == nil {
		return nil, ebpferrors.NotFound("key not present")
	}
	out := make([]byte, m.valueSize)
	copy(out, e.block[m.keySize:])
	return out, nil
}

// LookupFromKern returns an interior pointer into the live entry
// storage. The caller must hold t for as long as the returned slice
// is used; Delete only returns the entry's block to the allocator
// after a Synchronize on the same domain has drained every token
// outstanding at delete time.
func (m *hashTableMap) LookupFromKern(_ epoch.Token, key []byte) ([]byte, error) {
	if err := m.checkKey(key); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.find(key)
	if e == nil {
		return nil, ebpferrors.NotFound("key not present")
	}
	return e.block[m.keySize:], nil
}

func (m *hashTableMap) UpdateFromUser(key, value []byte, flag Flag) error {
	if err := m.checkKey(key); err != nil {
		return err
	}
	if uint32(len(value)) != m.valueSize {
		return ebpferrors.InvalidArgument("value size %d does not match map value_size %d", len(value), m.valueSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.find(key)

	switch flag {
	case NoExist:
		if existing != nil {
			return ebpferrors.Exists("key already present")
		}
	case Exist:
		if existing == nil {
			return ebpferrors.NotFound("key not present")
		}
	}

	if existing != nil {
		copy(existing.block[m.keySize:], value)
		return nil
	}

	if m.count >= m.attr.MaxEntries {
		return ebpferrors.Busy("map at capacity (%d entries)", m.attr.MaxEntries)
	}

	block, err := m.alloc.Alloc()
	if err != nil {
		return err
	}
	copy(block, key)
	copy(block[m.keySize:], value)

	idx := m.bucketIndex(key)
	m.buckets[idx] = &hashEntry{next: m.buckets[idx], block: block}
	m.count++
	return nil
}

func (m *hashTableMap) DeleteFromUser(key []byte) error {
	if err := m.checkKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.bucketIndex(key)
	var prev *hashEntry
	for e := m.buckets[idx]; e != nil; e = e.next {
		if bytes.Equal(e.block[:m.keySize], key) {
			if prev == nil {
				m.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			m.count--
			block := e.block
			if m.domain != nil {
				m.domain.Defer(func() { m.alloc.Free(block) })
			} else {
				m.alloc.Free(block)
			}
			return nil
		}
		prev = e
	}
	return ebpferrors.NotFound("key not present")
}

func (m *hashTableMap) GetNextKey(prevKey []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	startBucket := uint32(0)
	var resumeAfter *hashEntry

	if prevKey != nil {
		if err := m.checkKey(prevKey); err != nil {
			return nil, err
		}
		e := m.find(prevKey)
		if e == nil {
			return nil, ebpferrors.NotFound("prev key not present")
		}
		startBucket = m.bucketIndex(prevKey)
		resumeAfter = e
	}

	if resumeAfter != nil {
		if next := resumeAfter.next; next != nil {
			return cloneKey(next.block, m.keySize), nil
		}
		startBucket++
	}

	for i := startBucket; i < uint32(len(m.buckets)); i++ {
		if e := m.buckets[i]; e != nil {
			return cloneKey(e.block, m.keySize), nil
		}
	}
	return nil, ebpferrors.NotFound("no more keys")
}

func cloneKey(block []byte, keySize uint32) []byte {
	out := make([]byte, keySize)
	copy(out, block[:keySize])
	return out
}

func (m *hashTableMap) Deinit() {
	if m.domain != nil {
		m.domain.Synchronize()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alloc.Deinit()
	m.buckets = nil
	m.logger.Info("map deinitialised", "type", HashTable)
}

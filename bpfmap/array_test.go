package bpfmap_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/ebpfcore/bpfmap"
)

func key(i uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, i)
	return b
}

func newArrayMap(t *testing.T, maxEntries uint32) bpfmap.Map {
	t.Helper()
	m, err := bpfmap.New(bpfmap.Attr{
		Type:       bpfmap.Array,
		KeySize:    4,
		ValueSize:  4,
		MaxEntries: maxEntries,
	}, nil, nil)
	require.NoError(t, err)
	return m
}

func TestArrayInsertLookupRoundTrip(t *testing.T) {
	m := newArrayMap(t, 10)

	require.NoError(t, m.UpdateFromUser(key(3), []byte{1, 2, 3, 4}, bpfmap.Any))

	v, err := m.LookupFromUser(key(3))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, v)
}

func TestArrayLookupMissingReturnsNotFound(t *testing.T) {
	m := newArrayMap(t, 10)
	_, err := m.LookupFromUser(key(0))
	require.Error(t, err)
}

func TestArrayIndexOutOfRange(t *testing.T) {
	m := newArrayMap(t, 10)
	err := m.UpdateFromUser(key(10), []byte{0, 0, 0, 0}, bpfmap.Any)
	require.Error(t, err)
}

func TestArrayUpdateFlags(t *testing.T) {
	m := newArrayMap(t, 10)

	require.NoError(t, m.UpdateFromUser(key(1), []byte{1, 0, 0, 0}, bpfmap.NoExist))
	require.Error(t, m.UpdateFromUser(key(1), []byte{2, 0, 0, 0}, bpfmap.NoExist))

	require.Error(t, m.UpdateFromUser(key(2), []byte{1, 0, 0, 0}, bpfmap.Exist))
	require.NoError(t, m.UpdateFromUser(key(1), []byte{3, 0, 0, 0}, bpfmap.Exist))

	v, err := m.LookupFromUser(key(1))
	require.NoError(t, err)
	assert.Equal(t, byte(3), v[0])
}

func TestArrayDelete(t *testing.T) {
	m := newArrayMap(t, 10)
	require.NoError(t, m.UpdateFromUser(key(5), []byte{9, 9, 9, 9}, bpfmap.Any))

	require.NoError(t, m.DeleteFromUser(key(5)))
	require.Error(t, m.DeleteFromUser(key(5)))
	_, err := m.LookupFromUser(key(5))
	require.Error(t, err)
}

func TestArrayGetNextKeyEnumeratesAscending(t *testing.T) {
	m := newArrayMap(t, 10)
	require.NoError(t, m.UpdateFromUser(key(7), []byte{0, 0, 0, 0}, bpfmap.Any))
	require.NoError(t, m.UpdateFromUser(key(2), []byte{0, 0, 0, 0}, bpfmap.Any))

	k, err := m.GetNextKey(nil)
	require.NoError(t, err)
	assert.Equal(t, key(2), k)

	k, err = m.GetNextKey(k)
	require.NoError(t, err)
	assert.Equal(t, key(7), k)

	_, err = m.GetNextKey(k)
	require.Error(t, err)
}

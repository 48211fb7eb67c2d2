// Package bpfmap implements the polymorphic Map container: a typed,
// bounded-capacity key-value store visible to both host callers and
// running bytecode. Two backends are provided, Array and HashTable,
// selected by Attr.Type at construction. There is no stub backend for
// Bad or any other type outside the closed enumeration: New rejects
// such an Attr with an invalid-argument error.
package bpfmap

import "github.com/frobware/ebpfcore/ebpferrors"

// Type is the closed set of map backends.
type Type int

const (
	Bad Type = iota
	Array
	HashTable
	typeMax
)

// String returns a human-readable backend name, used by the CLI and
// disassembler.
func (t Type) String() string {
	switch t {
	case Array:
		return "array"
	case HashTable:
		return "hashtable"
	case Bad:
		return "bad"
	default:
		return "unknown"
	}
}

// Flag selects update semantics.
type Flag int

const (
	// Any inserts a new key or overwrites an existing one.
	Any Flag = iota
	// NoExist requires the key be absent; fails with ErrExists otherwise.
	NoExist
	// Exist requires the key already be present; fails with ErrNotFound otherwise.
	Exist
)

// Attr describes a map to be constructed by New.
type Attr struct {
	Type       Type
	KeySize    uint32
	ValueSize  uint32
	MaxEntries uint32
}

func (a Attr) validate() error {
	if a.Type <= Bad || a.Type >= typeMax {
		return ebpferrors.InvalidArgument("map type %d outside the closed enumeration", a.Type)
	}
	if a.KeySize == 0 {
		return ebpferrors.InvalidArgument("key_size must be non-zero")
	}
	if a.KeySize > 64 {
		return ebpferrors.InvalidArgument("key_size %d exceeds the 64-byte cap", a.KeySize)
	}
	if a.ValueSize == 0 {
		return ebpferrors.InvalidArgument("value_size must be non-zero")
	}
	if a.MaxEntries == 0 {
		return ebpferrors.InvalidArgument("max_entries must be non-zero")
	}
	if a.Type == Array && a.KeySize != 4 {
		return ebpferrors.InvalidArgument("array map key_size must be 4, got %d", a.KeySize)
	}
	return nil
}

func badTypeErr() error {
	return ebpferrors.InvalidArgument("operation not supported on the bad map type")
}

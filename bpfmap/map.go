package bpfmap

import (
	"log/slog"

	"github.com/frobware/ebpfcore/ebpferrors"
	"github.com/frobware/ebpfcore/epoch"
)

// Map is the polymorphic container every backend implements. All
// operations copy keys and values by value; no backend retains a
// reference into a caller-supplied buffer.
type Map interface {
	// Type reports the backend's type.
	Type() Type

	// Attr returns the attributes the map was constructed with.
	Attr() Attr

	// LookupFromUser copies the value stored for key into a new
	// buffer and returns it. Returns ErrNotFound if key is absent.
	LookupFromUser(key []byte) ([]byte, error)

	// LookupFromKern returns an interior pointer to the value stored
	// for key, valid only for the duration of the epoch token t was
	// obtained under. Returns ErrNotFound if key is absent.
	LookupFromKern(t epoch.Token, key []byte) ([]byte, error)

	// UpdateFromUser inserts or overwrites key/value according to flag.
	UpdateFromUser(key, value []byte, flag Flag) error

	// DeleteFromUser removes key. Returns ErrNotFound if absent.
	DeleteFromUser(key []byte) error

	// GetNextKey returns the key that follows prevKey in iteration
	// order, or the first key if prevKey is nil. Returns ErrNotFound
	// once iteration is exhausted.
	GetNextKey(prevKey []byte) ([]byte, error)

	// Deinit releases all backend state. The caller must ensure no
	// program referencing this map is executing; Deinit synchronizes
	// the epoch domain before releasing storage.
	Deinit()

	// Domain returns the epoch domain LookupFromKern's result is
	// guarded by, or nil if the backend needs no epoch protection
	// (the array backend never reclaims element storage). Callers
	// doing a kernel-context lookup should Enter it before calling
	// LookupFromKern and Exit once done with the returned bytes.
	Domain() *epoch.Domain
}

// New constructs a Map of the type named by attr.Type, validating
// attr and dispatching to the concrete backend. domain supplies the
// epoch mechanism the backend uses to guard LookupFromKern pointers
// against concurrent deletion; pass the same domain to every map a
// program may be attached to. logger may be nil, in which case
// slog.Default() is used.
func New(attr Attr, domain *epoch.Domain, logger *slog.Logger) (Map, error) {
	if err := attr.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "bpfmap")

	var m Map
	var err error
	switch attr.Type {
	case Array:
		m, err = newArray(attr, logger)
	case HashTable:
		m, err = newHashTable(attr, domain, logger)
	default:
		// Unreachable: attr.validate rejects every Type outside
		// {Array, HashTable} above. Kept as a defensive default
		// rather than a stub vtable, per the closed-enum guidance
		// for this port.
		return nil, ebpferrors.InvalidArgument("map type %d outside the closed enumeration", attr.Type)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("map created", "type", attr.Type, "max_entries", attr.MaxEntries)
	return m, nil
}

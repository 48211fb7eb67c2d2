// Package program implements the Program object: the envelope that
// binds a verified instruction vector, its type, its attached maps,
// and an optional JIT image into a single loadable unit with a
// defined init/attach/deinit lifecycle.
package program

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/frobware/ebpfcore/bpfmap"
	"github.com/frobware/ebpfcore/ebpferrors"
	"github.com/frobware/ebpfcore/isa"
	"github.com/frobware/ebpfcore/verifier"
)

// Type is the closed set of program types. TEST is the only concrete
// type this core defines; Bad and the sentinel max bound the
// enumeration so construction outside it is rejected.
type Type int

const (
	Bad Type = iota
	Test
	typeMax
)

func (t Type) String() string {
	switch t {
	case Test:
		return "test"
	case Bad:
		return "bad"
	default:
		return "unknown"
	}
}

// MaxAttachedMaps bounds the program's attached-map slot table.
const MaxAttachedMaps = 64

// Attr describes a program to be constructed by Init.
type Attr struct {
	Type  Type
	Insts []isa.Instruction
	JITFn JITCompiler // optional; nil falls back to the interpreter
}

// JITCompiler produces a native executor for a verified instruction
// vector. It is a function rather than an interface so that callers
// outside the jit package (notably tests) can supply a stub. logger
// may be nil, in which case the implementation falls back to
// slog.Default().
type JITCompiler func(insts []isa.Instruction, logger *slog.Logger) (Executor, error)

// Executor runs a verified program against a context buffer and
// returns the 64-bit result, matching both the interpreter's and the
// JIT's entry contract.
type Executor interface {
	Exec(ctxPtr []byte) (uint64, error)
}

// Program is a verified, loadable unit. The zero value is not usable;
// construct with Init.
type Program struct {
	ID    uuid.UUID
	Type  Type
	insts []isa.Instruction

	slots [MaxAttachedMaps]bpfmap.Map

	jit Executor
}

// Init validates attr, verifies the instruction vector, copies it into
// an owned buffer, and (if attr.JITFn is set) attempts to compile it.
// A JIT compilation failure is not fatal: the program falls back to
// the interpreter, matching the spec's "two back-ends are
// interchangeable at the call site" contract. logger may be nil, in
// which case slog.Default() is used.
func Init(attr Attr, logger *slog.Logger) (*Program, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "program")

	if attr.Type <= Bad || attr.Type >= typeMax {
		return nil, ebpferrors.InvalidArgument("program type %d outside the closed enumeration", attr.Type)
	}
	if len(attr.Insts) == 0 {
		return nil, ebpferrors.InvalidArgument("program must contain at least one instruction")
	}
	if len(attr.Insts) > isa.MaxInstructions {
		return nil, ebpferrors.InvalidArgument("program length %d exceeds MaxInstructions", len(attr.Insts))
	}
	if err := verifier.Verify(attr.Insts, logger); err != nil {
		return nil, err
	}

	owned := make([]isa.Instruction, len(attr.Insts))
	copy(owned, attr.Insts)

	p := &Program{
		ID:    uuid.New(),
		Type:  attr.Type,
		insts: owned,
	}

	if attr.JITFn != nil {
		if exec, err := attr.JITFn(owned, logger); err == nil {
			p.jit = exec
		} else {
			logger.Debug("jit compile declined, falling back to interpreter", "error", err)
		}
	}

	return p, nil
}

// Instructions returns the program's verified, owned instruction
// vector. Callers must not mutate the returned slice.
func (p *Program) Instructions() []isa.Instruction {
	return p.insts
}

// JIT returns the program's compiled executor and whether one is
// available. When false, callers should fall back to the interpreter.
func (p *Program) JIT() (Executor, bool) {
	return p.jit, p.jit != nil
}

// AttachMap binds m into the attached-map slot table at slot. Fails
// invalid-argument if slot is out of range, exists-error if the slot
// is already bound.
func (p *Program) AttachMap(slot int, m bpfmap.Map) error {
	if slot < 0 || slot >= MaxAttachedMaps {
		return ebpferrors.InvalidArgument("slot %d out of range [0, %d)", slot, MaxAttachedMaps)
	}
	if p.slots[slot] != nil {
		return ebpferrors.Exists("slot %d already bound", slot)
	}
	p.slots[slot] = m
	return nil
}

// MapAt returns the map bound to slot, or nil if unbound. Used by the
// VM to resolve a CALL helper's map argument.
func (p *Program) MapAt(slot int) bpfmap.Map {
	if slot < 0 || slot >= MaxAttachedMaps {
		return nil
	}
	return p.slots[slot]
}

// Deinit drops attached-map references, drops the reference to the JIT
// executor, and frees the instruction buffer. It does not call any
// Release method on the executor, so a native code mapping stays
// mapped. It does not deinit the attached maps themselves; their
// lifecycle is independent of any one program.
func (p *Program) Deinit() {
	for i := range p.slots {
		p.slots[i] = nil
	}
	p.jit = nil
	p.insts = nil
}

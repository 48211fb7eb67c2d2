// Package controlplane exposes the core's operations as a plain Go API
// surface: the set of commands a real ioctl character device or a gRPC
// front door would marshal requests into. It owns the handle tables -
// small integer IDs standing in for program and map objects - the way
// the teacher's bpf.Manager owns kernel-ID-to-state tables for pinned
// programs and links; object identity and lifecycle still live in
// package program and package bpfmap, this package only tracks which
// handle refers to which object.
package controlplane

import (
	"log/slog"
	"sync"

	"github.com/frobware/ebpfcore/bpfmap"
	"github.com/frobware/ebpfcore/config"
	"github.com/frobware/ebpfcore/ebpferrors"
	"github.com/frobware/ebpfcore/epoch"
	"github.com/frobware/ebpfcore/isa"
	"github.com/frobware/ebpfcore/program"
	"github.com/frobware/ebpfcore/vm"
)

// Manager is the handle-table front door. A process constructs one
// Manager per epoch domain; every map it creates shares that domain so
// that Manager.RunProgramTest's map_lookup_elem helper and
// Manager.DeleteMap race correctly against each other.
type Manager struct {
	cfg    config.Config
	logger *slog.Logger
	domain *epoch.Domain
	jitFn  program.JITCompiler // nil when cfg.Runtime.JITEnabled is false

	mu         sync.RWMutex
	programs   map[uint32]*program.Program
	maps       map[uint32]bpfmap.Map
	nextProgID uint32
	nextMapID  uint32
}

// New constructs a Manager. jitFn is consulted for every LoadProgram
// call when cfg.Runtime.JITEnabled is true; pass nil (or a config with
// JITEnabled false) to force every program onto the interpreter, e.g.
// on a platform package jit has no native backend for.
func New(cfg config.Config, logger *slog.Logger, jitFn program.JITCompiler) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:        cfg,
		logger:     logger.With("component", "controlplane"),
		domain:     epoch.NewDomain(),
		programs:   make(map[uint32]*program.Program),
		maps:       make(map[uint32]bpfmap.Map),
		nextProgID: 1,
		nextMapID:  1,
	}
	if cfg.Runtime.JITEnabled {
		m.jitFn = jitFn
	}
	return m
}

// LoadProgramRequest mirrors the ioctl load-program command.
type LoadProgramRequest struct {
	Type  program.Type
	Insts []isa.Instruction
}

// LoadProgram verifies and loads a program, returning a handle a
// caller uses for every subsequent command against it.
func (m *Manager) LoadProgram(req LoadProgramRequest) (uint32, error) {
	if len(req.Insts) > m.cfg.Runtime.MaxInsts {
		return 0, ebpferrors.InvalidArgument("program length %d exceeds configured max_insts %d", len(req.Insts), m.cfg.Runtime.MaxInsts)
	}

	p, err := program.Init(program.Attr{Type: req.Type, Insts: req.Insts, JITFn: m.jitFn}, m.logger)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextProgID
	m.nextProgID++
	m.programs[id] = p

	m.logger.Info("program loaded", "handle", id, "uuid", p.ID, "insts", len(req.Insts))
	return id, nil
}

// UnloadProgram releases a program handle. The program's attached
// maps are not themselves deinitialised; their lifecycle is tracked by
// their own handles.
func (m *Manager) UnloadProgram(handle uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.programs[handle]
	if !ok {
		return ebpferrors.NotFound("program handle %d", handle)
	}
	p.Deinit()
	delete(m.programs, handle)
	return nil
}

// CreateMapRequest mirrors the ioctl create-map command.
type CreateMapRequest struct {
	Attr bpfmap.Attr
}

// CreateMap constructs a map backend and returns a handle for it.
// Every map created through a single Manager shares that Manager's
// epoch domain, so readers in one program's CALL helper are correctly
// drained before a concurrent delete on any other program's handle to
// the same map reclaims storage.
func (m *Manager) CreateMap(req CreateMapRequest) (uint32, error) {
	mp, err := bpfmap.New(req.Attr, m.domain, m.logger)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextMapID
	m.nextMapID++
	m.maps[id] = mp

	m.logger.Info("map created", "handle", id, "type", req.Attr.Type, "max_entries", req.Attr.MaxEntries)
	return id, nil
}

// DeleteMap deinitialises and releases a map handle.
func (m *Manager) DeleteMap(handle uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mp, ok := m.maps[handle]
	if !ok {
		return ebpferrors.NotFound("map handle %d", handle)
	}
	mp.Deinit()
	delete(m.maps, handle)
	return nil
}

func (m *Manager) lookupMap(handle uint32) (bpfmap.Map, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mp, ok := m.maps[handle]
	if !ok {
		return nil, ebpferrors.NotFound("map handle %d", handle)
	}
	return mp, nil
}

func (m *Manager) lookupProgram(handle uint32) (*program.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.programs[handle]
	if !ok {
		return nil, ebpferrors.NotFound("program handle %d", handle)
	}
	return p, nil
}

// MapLookup services the ioctl map-lookup command.
func (m *Manager) MapLookup(handle uint32, key []byte) ([]byte, error) {
	mp, err := m.lookupMap(handle)
	if err != nil {
		return nil, err
	}
	return mp.LookupFromUser(key)
}

// MapUpdate services the ioctl map-update command.
func (m *Manager) MapUpdate(handle uint32, key, value []byte, flag bpfmap.Flag) error {
	mp, err := m.lookupMap(handle)
	if err != nil {
		return err
	}
	return mp.UpdateFromUser(key, value, flag)
}

// MapDelete services the ioctl map-delete command.
func (m *Manager) MapDelete(handle uint32, key []byte) error {
	mp, err := m.lookupMap(handle)
	if err != nil {
		return err
	}
	return mp.DeleteFromUser(key)
}

// MapGetNextKey services the ioctl map-get-next-key command.
func (m *Manager) MapGetNextKey(handle uint32, prevKey []byte) ([]byte, error) {
	mp, err := m.lookupMap(handle)
	if err != nil {
		return nil, err
	}
	return mp.GetNextKey(prevKey)
}

// AttachMapToProgram services the ioctl attach-map-to-program command,
// binding a map handle into a program's attached-map slot table.
func (m *Manager) AttachMapToProgram(progHandle uint32, slot int, mapHandle uint32) error {
	if slot >= m.cfg.Runtime.MaxAttachedMaps {
		return ebpferrors.InvalidArgument("slot %d exceeds configured max_attached_maps %d", slot, m.cfg.Runtime.MaxAttachedMaps)
	}
	p, err := m.lookupProgram(progHandle)
	if err != nil {
		return err
	}
	mp, err := m.lookupMap(mapHandle)
	if err != nil {
		return err
	}
	return p.AttachMap(slot, mp)
}

// RunProgramTest services the ioctl run-program-test command: execute
// a loaded program against a context buffer and return its R0 result.
// The JIT image is used when present; otherwise the interpreter runs
// with the configured instruction-count cap.
func (m *Manager) RunProgramTest(progHandle uint32, ctx []byte) (uint64, error) {
	p, err := m.lookupProgram(progHandle)
	if err != nil {
		return 0, err
	}

	if exec, ok := p.JIT(); ok {
		return exec.Exec(ctx)
	}
	return vm.ExecWithCap(p, ctx, m.cfg.Runtime.InstructionCountCap, m.logger), nil
}

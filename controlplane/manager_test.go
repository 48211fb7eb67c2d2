package controlplane_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/ebpfcore/bpfmap"
	"github.com/frobware/ebpfcore/config"
	"github.com/frobware/ebpfcore/controlplane"
	"github.com/frobware/ebpfcore/isa"
	"github.com/frobware/ebpfcore/program"
)

func newManager(t *testing.T) *controlplane.Manager {
	t.Helper()
	return controlplane.New(config.DefaultConfig(), nil, nil)
}

func TestLoadProgramAndRunTest(t *testing.T) {
	m := newManager(t)

	handle, err := m.LoadProgram(controlplane.LoadProgramRequest{
		Type: program.Test,
		Insts: []isa.Instruction{
			isa.Mov64Imm(isa.R0, 7),
			isa.ALU64Imm(isa.ALUAdd, isa.R0, 35),
			isa.Exit(),
		},
	})
	require.NoError(t, err)

	result, err := m.RunProgramTest(handle, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), result)
}

func TestLoadProgramRejectsOversizeAgainstConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Runtime.MaxInsts = 1
	m := controlplane.New(cfg, nil, nil)

	_, err := m.LoadProgram(controlplane.LoadProgramRequest{
		Type: program.Test,
		Insts: []isa.Instruction{
			isa.Mov64Imm(isa.R0, 1),
			isa.Exit(),
		},
	})
	assert.Error(t, err)
}

func TestUnloadProgramThenHandleIsGone(t *testing.T) {
	m := newManager(t)
	handle, err := m.LoadProgram(controlplane.LoadProgramRequest{
		Type:  program.Test,
		Insts: []isa.Instruction{isa.Exit()},
	})
	require.NoError(t, err)

	require.NoError(t, m.UnloadProgram(handle))
	_, err = m.RunProgramTest(handle, nil)
	assert.Error(t, err)
}

func TestCreateMapUpdateLookupDelete(t *testing.T) {
	m := newManager(t)

	handle, err := m.CreateMap(controlplane.CreateMapRequest{
		Attr: bpfmap.Attr{Type: bpfmap.Array, KeySize: 4, ValueSize: 4, MaxEntries: 4},
	})
	require.NoError(t, err)

	key := []byte{2, 0, 0, 0}
	require.NoError(t, m.MapUpdate(handle, key, []byte{9, 9, 9, 9}, bpfmap.Any))

	value, err := m.MapLookup(handle, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9, 9}, value)

	require.NoError(t, m.MapDelete(handle, key))
	_, err = m.MapLookup(handle, key)
	assert.Error(t, err)
}

func TestMapGetNextKeyEnumerates(t *testing.T) {
	m := newManager(t)
	handle, err := m.CreateMap(controlplane.CreateMapRequest{
		Attr: bpfmap.Attr{Type: bpfmap.Array, KeySize: 4, ValueSize: 4, MaxEntries: 4},
	})
	require.NoError(t, err)

	require.NoError(t, m.MapUpdate(handle, []byte{0, 0, 0, 0}, []byte{1, 1, 1, 1}, bpfmap.Any))
	require.NoError(t, m.MapUpdate(handle, []byte{2, 0, 0, 0}, []byte{2, 2, 2, 2}, bpfmap.Any))

	first, err := m.MapGetNextKey(handle, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, first)

	second, err := m.MapGetNextKey(handle, first)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0, 0, 0}, second)

	_, err = m.MapGetNextKey(handle, second)
	assert.Error(t, err)
}

func TestAttachMapToProgramAndRunHelper(t *testing.T) {
	m := newManager(t)

	mapHandle, err := m.CreateMap(controlplane.CreateMapRequest{
		Attr: bpfmap.Attr{Type: bpfmap.Array, KeySize: 4, ValueSize: 4, MaxEntries: 4},
	})
	require.NoError(t, err)
	require.NoError(t, m.MapUpdate(mapHandle, []byte{1, 0, 0, 0}, []byte{9, 9, 9, 9}, bpfmap.Any))

	progHandle, err := m.LoadProgram(controlplane.LoadProgramRequest{
		Type: program.Test,
		Insts: []isa.Instruction{
			isa.Mov64Reg(isa.R2, isa.FP),
			isa.ALU64Imm(isa.ALUSub, isa.R2, 4),
			isa.StoreImm(isa.R2, 0, 1, isa.SizeW),
			isa.Mov64Imm(isa.R1, 0),
			isa.Call(isa.HelperMapLookupElem),
			isa.Exit(),
		},
	})
	require.NoError(t, err)
	require.NoError(t, m.AttachMapToProgram(progHandle, 0, mapHandle))

	result, err := m.RunProgramTest(progHandle, nil)
	require.NoError(t, err)
	assert.NotEqual(t, uint64(0), result)
}

func TestDeleteMapThenHandleIsGone(t *testing.T) {
	m := newManager(t)
	handle, err := m.CreateMap(controlplane.CreateMapRequest{
		Attr: bpfmap.Attr{Type: bpfmap.Array, KeySize: 4, ValueSize: 4, MaxEntries: 1},
	})
	require.NoError(t, err)

	require.NoError(t, m.DeleteMap(handle))
	_, err = m.MapLookup(handle, []byte{0, 0, 0, 0})
	assert.Error(t, err)
}

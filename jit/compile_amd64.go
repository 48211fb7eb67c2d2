//go:build amd64

package jit

import (
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/frobware/ebpfcore/ebpferrors"
	"github.com/frobware/ebpfcore/isa"
	"github.com/frobware/ebpfcore/program"
)

// callJIT jumps into the native code at code, passing ctx in RDI per
// the System V AMD64 calling convention, and returns the callee's RAX.
// Implemented in trampoline_amd64.s.
//
//go:noescape
func callJIT(code, ctx uintptr) uint64

// accumulator-form one-byte x86_64 opcodes (REX.W <op> id), operating
// directly on RAX. There is no such form for IMUL, which instead uses
// the three-operand 0x69 /r id encoding below.
const (
	opAddRAX = 0x05
	opOrRAX  = 0x0d
	opAndRAX = 0x25
	opSubRAX = 0x2d
	opXorRAX = 0x35
)

const (
	rexW     = 0x48
	opMovRAX = 0xb8 // REX.W B8+rd: MOV RAX, imm64
	opImulR  = 0x69 // REX.W 69 /r id: IMUL r64, r/m64, imm32
	opRet    = 0xc3
)

func emit32(buf []byte, v int32) []byte {
	u := uint32(v)
	return append(buf, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
}

func emit64(buf []byte, v int64) []byte {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(u>>(8*i)))
	}
	return buf
}

// assemble renders steps into a standalone x86_64 function body: every
// step operates on RAX (the R0 accumulator), the function ends with
// RET and the return value in RAX, matching the System V convention
// package program's Executor expects of callJIT.
func assemble(steps []op) []byte {
	code := make([]byte, 0, 16*len(steps)+1)
	for _, s := range steps {
		if s.mov {
			code = append(code, rexW, opMovRAX)
			code = emit64(code, s.imm)
			continue
		}
		switch s.alu {
		case isa.ALUAdd:
			code = append(code, rexW, opAddRAX)
			code = emit32(code, int32(s.imm))
		case isa.ALUSub:
			code = append(code, rexW, opSubRAX)
			code = emit32(code, int32(s.imm))
		case isa.ALUOr:
			code = append(code, rexW, opOrRAX)
			code = emit32(code, int32(s.imm))
		case isa.ALUAnd:
			code = append(code, rexW, opAndRAX)
			code = emit32(code, int32(s.imm))
		case isa.ALUXor:
			code = append(code, rexW, opXorRAX)
			code = emit32(code, int32(s.imm))
		case isa.ALUMul:
			// IMUL RAX, RAX, imm32: ModRM C0 = mod11 reg000(RAX) rm000(RAX).
			code = append(code, rexW, opImulR, 0xc0)
			code = emit32(code, int32(s.imm))
		}
	}
	code = append(code, opRet)
	return code
}

// executor owns one mmap'd, PROT_READ|PROT_EXEC page of machine code.
// It never touches the Go heap for the code itself, so the GC never
// moves or scans it.
type executor struct {
	code []byte
}

func (e *executor) Exec(ctxPtr []byte) (uint64, error) {
	var ctxAddr uintptr
	if len(ctxPtr) > 0 {
		ctxAddr = uintptr(unsafe.Pointer(&ctxPtr[0]))
	}
	return callJIT(uintptr(unsafe.Pointer(&e.code[0])), ctxAddr), nil
}

// Release unmaps the executable page. Programs that fall back to the
// interpreter never allocate one; programs that do should call this
// from their own teardown once the JIT image is no longer reachable
// from any in-flight Exec call.
func (e *executor) Release() error {
	return unix.Munmap(e.code)
}

// Compile is the program.JITCompiler entry point for amd64. It
// recognises the scalar-R0 template, emits native code into an
// anonymous executable mapping, and returns an Executor wrapping it.
// Anything outside the template yields errUnsupported so program.Init
// falls back to the interpreter. logger may be nil, in which case
// slog.Default() is used.
func Compile(insts []isa.Instruction, logger *slog.Logger) (program.Executor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "jit")

	steps, ok := recognise(insts)
	if !ok {
		logger.Debug("program does not match jit template")
		return nil, errUnsupported
	}

	native := assemble(steps)

	pageSize := unix.Getpagesize()
	n := (len(native) + pageSize - 1) / pageSize * pageSize
	if n == 0 {
		n = pageSize
	}

	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, ebpferrors.NoMemory("mmap jit page: %v", err)
	}
	copy(mem, native)

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, ebpferrors.NoMemory("mprotect jit page: %v", err)
	}

	logger.Debug("jit compile succeeded", "native_bytes", len(native), "steps", len(steps))
	return &executor{code: mem}, nil
}

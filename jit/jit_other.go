//go:build !amd64

package jit

import (
	"log/slog"

	"github.com/frobware/ebpfcore/ebpferrors"
	"github.com/frobware/ebpfcore/isa"
	"github.com/frobware/ebpfcore/program"
)

// Compile on non-amd64 platforms always declines, so program.Init
// falls back to the interpreter unconditionally. logger may be nil.
func Compile(insts []isa.Instruction, logger *slog.Logger) (program.Executor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.With("component", "jit").Debug("no native jit backend for this architecture")
	return nil, ebpferrors.InvalidArgument("jit: no native backend for this architecture")
}

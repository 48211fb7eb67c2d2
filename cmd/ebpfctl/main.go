// Command ebpfctl is a standalone front end for the runtime core: it
// loads a bytecode file, builds a Manager from package controlplane,
// and issues the same commands a real ioctl/gRPC control plane would
// - load-program, run-program-test, and (via the stats subcommand) a
// block-allocator sizing report.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/frobware/ebpfcore/allocator"
	"github.com/frobware/ebpfcore/config"
	"github.com/frobware/ebpfcore/controlplane"
	"github.com/frobware/ebpfcore/isa"
	"github.com/frobware/ebpfcore/jit"
	"github.com/frobware/ebpfcore/logging"
	"github.com/frobware/ebpfcore/program"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "stats":
		err = statsCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "ebpfctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <run|stats> [flags]\n", os.Args[0])
}

// runCmd loads a flat bytecode file, verifies and executes it, and
// prints the R0 result. It does not report whether the JIT or the
// interpreter ran the program.
func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	logSpec := fs.String("log", "", "log spec, e.g. info,vm=debug")
	ctxPath := fs.String("ctx", "", "optional flat context file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("run: expected exactly one bytecode file argument")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		CLISpec:    *logSpec,
		ConfigSpec: cfg.Logging.Level,
		Output:     os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read bytecode file: %w", err)
	}
	insts, ok := isa.DecodeProgram(data)
	if !ok {
		return fmt.Errorf("%s: length %s is not a multiple of %d bytes", fs.Arg(0), humanize.Bytes(uint64(len(data))), isa.InstructionSize)
	}

	var ctx []byte
	if *ctxPath != "" {
		ctx, err = os.ReadFile(*ctxPath)
		if err != nil {
			return fmt.Errorf("read context file: %w", err)
		}
	}

	mgr := controlplane.New(cfg, logger, jit.Compile)

	handle, err := mgr.LoadProgram(controlplane.LoadProgramRequest{Type: program.Test, Insts: insts})
	if err != nil {
		return fmt.Errorf("load program: %w", err)
	}

	result, err := mgr.RunProgramTest(handle, ctx)
	if err != nil {
		return fmt.Errorf("run program: %w", err)
	}

	fmt.Printf("r0 = %d (0x%x)\n", result, result)
	logger.Info("program loaded and run", "handle", handle, "insts", humanize.Comma(int64(len(insts))), "result", result)
	return nil
}

// statsCmd exercises the block allocator directly and reports its
// sizing in human-readable units, the way an operator would check
// memory footprint before sizing a hash-table map.
func statsCmd(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	blockSize := fs.Uint("block-size", 64, "allocator block size in bytes")
	prealloc := fs.Uint("prealloc", 1024, "number of blocks to preallocate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := allocator.New(uint32(*blockSize), nil)
	if err != nil {
		return fmt.Errorf("create allocator: %w", err)
	}
	defer a.Deinit()

	if err := a.Prealloc(uint32(*prealloc)); err != nil {
		return fmt.Errorf("prealloc: %w", err)
	}

	st := a.Stats()
	color := isatty.IsTerminal(os.Stdout.Fd())
	label := func(s string) string {
		if !color {
			return s
		}
		return "\033[1m" + s + "\033[0m"
	}

	fmt.Printf("%s %s\n", label("block size:"), humanize.Bytes(uint64(st.BlockSize)))
	fmt.Printf("%s %d\n", label("segments:"), st.SegmentCount)
	fmt.Printf("%s %d\n", label("free blocks:"), st.FreeBlocks)
	fmt.Printf("%s %s\n", label("bytes carved:"), humanize.Bytes(st.BytesCarved))
	return nil
}

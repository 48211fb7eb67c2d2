// Command ebpfdump disassembles a flat binary bytecode file, one
// instruction per line, in the style of the interpreter's own
// decode-dispatch loop rather than a full ELF-aware objdump.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/frobware/ebpfcore/isa"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <bytecode-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string, out *os.File) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	insts, ok := isa.DecodeProgram(data)
	if !ok {
		return fmt.Errorf("%s: length %d is not a multiple of %d bytes", path, len(data), isa.InstructionSize)
	}

	color := isatty.IsTerminal(out.Fd())

	for pc := 0; pc < len(insts); {
		ins := insts[pc]
		printLine(out, pc, ins, color)
		pc = isa.NextPC(insts, pc)
	}
	return nil
}

func printLine(out *os.File, pc int, ins isa.Instruction, color bool) {
	if color {
		fmt.Fprintf(out, "\033[90m%4d:\033[0m %s\n", pc, ins)
		return
	}
	fmt.Fprintf(out, "%4d: %s\n", pc, ins)
}

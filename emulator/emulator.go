// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"iter"
	"log"
	"strings"

	"github.com/ezrec/esper/cpu"
)

// StopReason is why a run of the emulator stopped.
type StopReason int

//go:generate go tool stringer -linecomment -type=StopReason
const (
	STOP_END   = StopReason(0) // end
	STOP_HALT  = StopReason(1) // halt
	STOP_FAULT = StopReason(2) // fault
)

// Emulator state. CPU + assembled program listing.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Listing  *cpu.Program // Assembled instructions, at their program offsets.

	asm   cpu.Assembler
	lines int // Source lines assembled since the last Clear.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Listing: &cpu.Program{},
	}

	return
}

// Predefine defines an equate for all future assembly.
func (emu *Emulator) Predefine(equ string, value string) {
	emu.asm.Predefine(equ, value)
}

// Assemble parses a source text, and appends its encoding to the program.
// On any error the program is unchanged.
//
// Source lines are numbered across all calls since the last Clear, so
// each text continues the line count of the one before it.
func (emu *Emulator) Assemble(text string) (err error) {
	emu.asm.Verbose = emu.Verbose

	lineBase := emu.lines
	emu.lines += countLines(text)

	defer func() {
		var serr *cpu.ErrSyntax
		if errors.As(err, &serr) {
			serr.LineNo += lineBase
		}
	}()

	prog, err := emu.asm.Parse(strings.NewReader(text))
	if err != nil {
		return
	}

	if len(prog.Instructions) == 0 {
		err = &cpu.ErrSyntax{LineNo: 1, Line: text, Err: cpu.ErrProgramEmpty}
		return
	}

	code, err := prog.ToBytes()
	if err != nil {
		return
	}

	base := len(emu.Cpu.Program)
	prog = prog.Relocate(base)
	for n := range prog.Instructions {
		prog.Instructions[n].LineNo += lineBase
	}
	emu.Listing.Instructions = append(emu.Listing.Instructions, prog.Instructions...)
	emu.Cpu.Append(code...)

	if emu.Verbose {
		log.Printf("emulator: assembled %d bytes at %#04x, lines %d..%d", len(code), base, lineBase+1, emu.lines)
	}

	return
}

// countLines returns the number of lines the assembler scans in text.
func countLines(text string) (count int) {
	count = strings.Count(text, "\n")
	if len(text) > 0 && !strings.HasSuffix(text, "\n") {
		count++
	}

	return
}

// AppendBytes appends raw bytes to the program, without assembly.
func (emu *Emulator) AppendBytes(code ...byte) {
	emu.Cpu.Append(code...)
}

// Registers returns a snapshot of the register file.
func (emu *Emulator) Registers() [cpu.REGISTER_COUNT]int32 {
	return emu.Cpu.Registers()
}

// Program returns a snapshot of the program buffer.
func (emu *Emulator) Program() []byte {
	return emu.Cpu.Bytes()
}

// Disassembly returns an iterator over the disassembled program buffer.
func (emu *Emulator) Disassembly() iter.Seq2[int, string] {
	return cpu.Listing(emu.Cpu.Program)
}

// Reset the machine state, keeping the program.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
}

// Clear drops the program, restarts the source line count, and resets
// the machine state.
func (emu *Emulator) Clear() {
	emu.Cpu.Program = emu.Cpu.Program[:0]
	emu.Listing = &cpu.Program{}
	emu.lines = 0
	emu.Reset()
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Pc returns current program counter.
func (emu *Emulator) Pc() int {
	return emu.Cpu.Pc
}

// LineNo returns the source line number of the instruction at the
// program counter, or 0 if it was not assembled from source.
func (emu *Emulator) LineNo() int {
	return emu.lineAt(emu.Cpu.Pc)
}

func (emu *Emulator) lineAt(pc int) int {
	dbg := emu.Listing.Debug(pc)
	if dbg.Instruction == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	done, err = emu.Cpu.Tick()
	if err != nil {
		var eerr *cpu.ErrExecute
		lineno := 0
		if errors.As(err, &eerr) {
			lineno = emu.lineAt(eerr.Pc)
		}
		err = &ErrRuntime{LineNo: lineno, Err: err}
	}

	return
}

// Run executes from the current program counter until a stop condition.
func (emu *Emulator) Run() (reason StopReason, err error) {
	for done := false; !done; {
		done, err = emu.Tick()
	}

	switch {
	case err != nil:
		reason = STOP_FAULT
	case emu.Cpu.Halted:
		reason = STOP_HALT
	default:
		reason = STOP_END
	}

	if emu.Verbose {
		log.Printf("emulator: %v at %#04x after %d ticks", reason, emu.Cpu.Pc, emu.Cpu.Ticks)
	}

	return
}

// Package repl implements the interactive shell for the esper virtual machine.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/message"

	"github.com/ezrec/esper/cpu"
	"github.com/ezrec/esper/emulator"
	"github.com/ezrec/esper/translate"
)

// PROMPT is the default interactive prompt.
const PROMPT = "esper > "

var commands = []struct {
	name string
	help string
}{
	{".help", "show this list"},
	{".program", "list the program buffer"},
	{".registers", "list the registers"},
	{".history", "list every line entered"},
	{".hex", "toggle raw hex byte input"},
	{".reset", "reset the machine, keep the program"},
	{".clear", "drop the program and reset the machine"},
	{".quit", "leave"},
}

// Repl is the read-eval-print loop state.
type Repl struct {
	Emulator *emulator.Emulator // Machine under control.
	Prompt   string             // Prompt printed before each line.
	History  []string           // Every line entered.
	Hex      bool               // If set, lines are raw hex bytes.

	out     io.Writer
	printer *message.Printer
}

// NewRepl creates a shell around an emulator, writing to out.
func NewRepl(emu *emulator.Emulator, out io.Writer) (repl *Repl) {
	repl = &Repl{
		Emulator: emu,
		Prompt:   PROMPT,
		out:      out,
		printer:  translate.Printer(),
	}

	return
}

func (repl *Repl) printf(format string, args ...any) {
	repl.printer.Fprintf(repl.out, format, args...)
}

// Run reads lines from input until end of input or '.quit'.
// quit is set if the user asked to leave.
func (repl *Repl) Run(input io.Reader) (quit bool, err error) {
	scanner := bufio.NewScanner(input)

	repl.printf("esper: type .help for commands\n")
	for {
		fmt.Fprint(repl.out, repl.Prompt)
		if !scanner.Scan() {
			break
		}
		quit = repl.Execute(scanner.Text())
		if quit {
			return
		}
	}

	err = scanner.Err()
	return
}

// Execute handles a single input line. quit is set on '.quit'.
func (repl *Repl) Execute(line string) (quit bool) {
	line = strings.TrimSpace(line)
	repl.History = append(repl.History, line)

	emu := repl.Emulator

	switch line {
	case ".help":
		for _, cmd := range commands {
			repl.printf("%-10s %v\n", cmd.name, translate.From(cmd.help))
		}
	case ".program":
		repl.printf("Here are the instructions currently in the virtual machine:\n")
		fmt.Fprintln(repl.out, repl.programTable())
		repl.printf("--- End of listing ---\n")
	case ".registers":
		repl.printf("Here are the registers' contents:\n")
		fmt.Fprintln(repl.out, repl.registerTable())
		repl.printf("--- End of listing ---\n")
	case ".history":
		for _, cmd := range repl.History {
			fmt.Fprintln(repl.out, cmd)
		}
	case ".hex":
		repl.Hex = !repl.Hex
		if repl.Hex {
			repl.printf("Hex input on: enter bytes as hex pairs, separated by spaces.\n")
		} else {
			repl.printf("Hex input off.\n")
		}
	case ".reset":
		emu.Reset()
	case ".clear":
		emu.Clear()
	case ".quit":
		repl.printf("Farewell!\n")
		quit = true
	case "":
		// no-op
	default:
		if repl.Hex {
			code, err := ParseHex(line)
			if err != nil {
				repl.printf("Unable to decode hex string: %v\n", err)
				return
			}
			emu.AppendBytes(code...)
		} else {
			err := emu.Assemble(line)
			if err != nil {
				if errors.Is(err, cpu.ErrParse) {
					repl.printf("Sorry, what is it you wanted to say?\n")
				} else {
					repl.printf("Unable to assemble: %v\n", err)
				}
				return
			}
		}
		repl.run()
	}

	return
}

// run executes the machine, and reports how it stopped.
func (repl *Repl) run() {
	reason, err := repl.Emulator.Run()
	switch reason {
	case emulator.STOP_HALT:
		repl.printf("HLT encountered\n")
	case emulator.STOP_FAULT:
		repl.printf("Execution stopped: %v\n", err)
	}
}

// programTable renders the disassembled program buffer.
func (repl *Repl) programTable() string {
	emu := repl.Emulator
	program := emu.Program()

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"pc", "bytes", "instruction", "line"})
	for pc, text := range emu.Disassembly() {
		size := cpu.DecodeOpcode(program[pc]).Size()
		end := min(pc+size, len(program))
		line := ""
		if dbg := emu.Listing.Debug(pc); dbg.Instruction != nil {
			line = strconv.Itoa(dbg.LineNo)
		}
		marker := ""
		if pc == emu.Pc() {
			marker = ">"
		}
		tw.AppendRow(table.Row{
			fmt.Sprintf("%v%04x", marker, pc),
			fmt.Sprintf("% x", program[pc:end]),
			text,
			line,
		})
	}

	return tw.Render()
}

// registerTable renders the register file and flags.
func (repl *Repl) registerTable() string {
	emu := repl.Emulator

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"register", "value", "hex"})
	for n, val := range emu.Registers() {
		tw.AppendRow(table.Row{fmt.Sprintf("$%d", n), val, fmt.Sprintf("%08x", uint32(val))})
	}
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"pc", emu.Pc(), fmt.Sprintf("%08x", emu.Pc())})
	tw.AppendRow(table.Row{"remainder", emu.Cpu.Remainder, fmt.Sprintf("%08x", emu.Cpu.Remainder)})
	tw.AppendRow(table.Row{"cond", emu.Cpu.Cond, ""})

	return tw.Render()
}

// ParseHex decodes a line of whitespace separated hex byte pairs.
func ParseHex(line string) (code []byte, err error) {
	for _, word := range strings.Fields(line) {
		digits := strings.TrimPrefix(strings.ToLower(word), "0x")
		if len(digits) == 0 || len(digits) > 2 {
			err = cpu.ErrParseNumber(word)
			return
		}
		var value uint64
		value, err = strconv.ParseUint(digits, 16, 8)
		if err != nil {
			err = cpu.ErrParseNumber(word)
			return
		}
		code = append(code, byte(value))
	}

	return
}

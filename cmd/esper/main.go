// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tebeka/atexit"

	"github.com/ezrec/esper/cpu"
	"github.com/ezrec/esper/emulator"
	"github.com/ezrec/esper/repl"
)

// defines collects repeated -D NAME=VALUE flags.
type defines map[string]string

func (d defines) String() string {
	var list []string
	for name, value := range d {
		list = append(list, name+"="+value)
	}
	return strings.Join(list, ",")
}

func (d defines) Set(text string) error {
	name, value, ok := strings.Cut(text, "=")
	if !ok || len(name) == 0 {
		return fmt.Errorf("%q is not NAME=VALUE", text)
	}
	d[name] = value
	return nil
}

func main() {
	var compile string
	var hex string
	var save bool
	var verbose bool
	predefine := defines{}

	flag.StringVar(&compile, "c", "", "assembly file to compile and run")
	flag.StringVar(&hex, "x", "", "hex byte file to run")
	flag.BoolVar(&save, "s", false, "Print the program as hex, do not execute")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.Var(predefine, "D", "Predefine an assembler equate, as NAME=VALUE")

	flag.Parse()

	if flag.NArg() != 0 {
		atexit.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	for name, value := range predefine {
		emu.Predefine(name, value)
	}

	if len(compile) == 0 && len(hex) == 0 {
		shell := repl.NewRepl(emu, os.Stdout)
		if verbose {
			atexit.Register(func() {
				log.Printf("esper: %d lines entered, %d ticks", len(shell.History), emu.Ticks())
			})
		}
		_, err := shell.Run(os.Stdin)
		if err != nil {
			atexit.Fatalf("esper: %v", err)
		}
		atexit.Exit(0)
	}

	if len(compile) != 0 {
		text, err := os.ReadFile(compile)
		if err != nil {
			atexit.Fatalf("%v: %v", compile, err)
		}
		err = emu.Assemble(string(text))
		if err != nil {
			atexit.Fatalf("%v: %v", compile, err)
		}
	}

	if len(hex) != 0 {
		text, err := os.ReadFile(hex)
		if err != nil {
			atexit.Fatalf("%v: %v", hex, err)
		}
		code, err := repl.ParseHex(string(text))
		if err != nil {
			atexit.Fatalf("%v: %v", hex, err)
		}
		emu.AppendBytes(code...)
	}

	if save {
		fmt.Printf("% x\n", emu.Program())
		atexit.Exit(0)
	}

	reason, err := emu.Run()
	if err != nil {
		atexit.Fatalf("esper: %v", err)
	}

	fmt.Print(emu.Cpu.String())
	if reason == emulator.STOP_HALT {
		log.Printf("esper: halt after %d ticks", emu.Ticks())
	}

	if emu.Pc() < len(emu.Program()) {
		log.Printf("esper: stopped at %#04x, before %v", emu.Pc(), disassembleAt(emu))
	}

	atexit.Exit(0)
}

func disassembleAt(emu *emulator.Emulator) string {
	text, _, err := cpu.Disassemble(emu.Program(), emu.Pc())
	if err != nil {
		return err.Error()
	}
	return text
}

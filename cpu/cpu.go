package cpu

import (
	"encoding/binary"
	"fmt"
	"log"
	"slices"
)

// REGISTER_COUNT is the size of the register file.
const REGISTER_COUNT = 32

// Cpu is the execution engine for a byte encoded program.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Register  [REGISTER_COUNT]int32 // Register file.
	Pc        int                   // Byte offset of the next instruction.
	Program   []byte                // Program buffer.
	Remainder uint32                // Remainder of the last divide.
	Cond      bool                  // Result of the last comparison.
	Halted    bool                  // Set if the last stop was a halt opcode.

	Ticks int // Executed instruction counter.
}

// NewCpu creates a new CPU with an empty program.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Program: []byte{},
	}

	return
}

// Reset the CPU state.
// - Clears the registers, remainder and condition flag.
// - Rewinds the program counter.
// - Zeros statistics counters.
// The program buffer is retained.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Pc = 0
	cpu.Remainder = 0
	cpu.Cond = false
	cpu.Halted = false
	cpu.Ticks = 0
}

// Append adds raw bytes to the end of the program buffer.
func (cpu *Cpu) Append(code ...byte) {
	cpu.Program = append(cpu.Program, code...)
}

// Registers returns a snapshot of the register file.
func (cpu *Cpu) Registers() [REGISTER_COUNT]int32 {
	return cpu.Register
}

// Bytes returns a snapshot of the program buffer.
func (cpu *Cpu) Bytes() []byte {
	return slices.Clone(cpu.Program)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	cond := "false"
	if cpu.Cond {
		cond = "true"
	}
	text += fmt.Sprintf("% 5s: %04x\n", "pc", cpu.Pc)
	text += fmt.Sprintf("% 5s: %v\n", "cond", cond)
	text += fmt.Sprintf("% 5s: %04X_%04X\n", "rem", cpu.Remainder>>16, cpu.Remainder&0xffff)
	for n, val := range cpu.Register {
		uval := uint32(val)
		text += fmt.Sprintf("% 5s: %04X_%04X\n", fmt.Sprintf("$%d", n), uval>>16, uval&0xffff)
	}

	return
}

// nextByte consumes one byte of the program.
func (cpu *Cpu) nextByte() (b uint8, err error) {
	if cpu.Pc >= len(cpu.Program) {
		err = ErrProgramTruncated
		return
	}

	b = cpu.Program[cpu.Pc]
	cpu.Pc++
	return
}

// next2Bytes consumes a big-endian 16-bit value from the program.
func (cpu *Cpu) next2Bytes() (value uint16, err error) {
	if cpu.Pc+2 > len(cpu.Program) {
		cpu.Pc = len(cpu.Program)
		err = ErrProgramTruncated
		return
	}

	value = binary.BigEndian.Uint16(cpu.Program[cpu.Pc:])
	cpu.Pc += 2
	return
}

// nextRegister consumes a register index, and checks its range.
func (cpu *Cpu) nextRegister() (index int, err error) {
	b, err := cpu.nextByte()
	if err != nil {
		return
	}

	index = int(b)
	if index >= len(cpu.Register) {
		err = ErrRegisterInvalid
		return
	}

	return
}

// nextRegisters consumes count register indexes. All operand bytes are
// consumed before any index is checked.
func (cpu *Cpu) nextRegisters(count int) (index []int, err error) {
	index = make([]int, count)
	var bad error
	for n := range count {
		var b uint8
		b, err = cpu.nextByte()
		if err != nil {
			return
		}
		index[n] = int(b)
		if index[n] >= len(cpu.Register) && bad == nil {
			bad = ErrRegisterInvalid
		}
	}

	err = bad
	return
}

// Tick executes a single instruction.
// done is set when execution must stop: at the end of the program,
// after a halt, or on any execution fault.
func (cpu *Cpu) Tick() (done bool, err error) {
	cpu.Halted = false

	if cpu.Pc >= len(cpu.Program) {
		done = true
		return
	}

	pc := cpu.Pc
	b := cpu.Program[pc]
	op := DecodeOpcode(b)
	cpu.Pc++

	if cpu.Verbose {
		text, _, _ := Disassemble(cpu.Program, pc)
		log.Printf("%04x: %v", pc, text)
	}

	done, err = cpu.Execute(op)
	if err != nil {
		done = true
		err = &ErrExecute{Pc: pc, Opcode: op, Byte: b, Err: err}
		return
	}

	cpu.Ticks += 1

	return
}

// Run executes instructions until execution stops.
func (cpu *Cpu) Run() (err error) {
	for done := false; !done; {
		done, err = cpu.Tick()
	}

	return
}

// Execute executes a decoded opcode, consuming its operands from the
// program buffer.
func (cpu *Cpu) Execute(op Opcode) (done bool, err error) {
	switch op {
	case OP_HALT:
		if cpu.Verbose {
			log.Printf("cpu: halt")
		}
		cpu.Halted = true
		done = true
	case OP_LOAD:
		var reg int
		var value uint16
		reg, err = cpu.nextRegister()
		if err != nil {
			// Consume the immediate regardless.
			_, _ = cpu.next2Bytes()
			return
		}
		value, err = cpu.next2Bytes()
		if err != nil {
			return
		}
		cpu.Register[reg] = int32(value)
	case OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE:
		var regs []int
		regs, err = cpu.nextRegisters(3)
		if err != nil {
			return
		}
		a := cpu.Register[regs[0]]
		b := cpu.Register[regs[1]]
		switch op {
		case OP_ADD:
			cpu.Register[regs[2]] = a + b
		case OP_SUBTRACT:
			cpu.Register[regs[2]] = a - b
		case OP_MULTIPLY:
			cpu.Register[regs[2]] = a * b
		case OP_DIVIDE:
			if b == 0 {
				err = ErrDivideByZero
				return
			}
			cpu.Register[regs[2]] = a / b
			cpu.Remainder = uint32(a % b)
		}
	case OP_JUMP:
		var reg int
		reg, err = cpu.nextRegister()
		if err != nil {
			return
		}
		target := cpu.Register[reg]
		if target < 0 {
			err = ErrJumpInvalid
			return
		}
		cpu.Pc = int(target)
	case OP_JUMPFORWARD, OP_JUMPBACKWARD:
		var reg int
		reg, err = cpu.nextRegister()
		if err != nil {
			return
		}
		offset := int(cpu.Register[reg])
		if op == OP_JUMPBACKWARD {
			offset = -offset
		}
		if cpu.Pc+offset < 0 {
			err = ErrJumpUnderflow
			return
		}
		cpu.Pc += offset
	case OP_EQUAL, OP_NOTEQUAL, OP_GREATER, OP_LESS, OP_GREATEREQUAL, OP_LESSEQUAL:
		var regs []int
		regs, err = cpu.nextRegisters(2)
		if err != nil {
			return
		}
		a := cpu.Register[regs[0]]
		b := cpu.Register[regs[1]]
		switch op {
		case OP_EQUAL:
			cpu.Cond = a == b
		case OP_NOTEQUAL:
			cpu.Cond = a != b
		case OP_GREATER:
			cpu.Cond = a > b
		case OP_LESS:
			cpu.Cond = a < b
		case OP_GREATEREQUAL:
			cpu.Cond = a >= b
		case OP_LESSEQUAL:
			cpu.Cond = a <= b
		}
	case OP_JUMPIF:
		var reg int
		reg, err = cpu.nextRegister()
		if err != nil {
			return
		}
		if !cpu.Cond {
			break
		}
		target := cpu.Register[reg]
		if target < 0 {
			err = ErrJumpInvalid
			return
		}
		cpu.Pc = int(target)
	default:
		err = ErrOpcodeIllegal
	}

	return
}

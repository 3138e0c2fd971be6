package cpu

import (
	"encoding/binary"
	"fmt"
	"iter"
)

// Disassemble renders the instruction at pc in canonical assembly form,
// and returns its encoded size.
//
// A byte that is not a defined opcode renders as '.byte 0xNN', with a size of 1.
func Disassemble(program []byte, pc int) (text string, size int, err error) {
	if pc < 0 || pc >= len(program) {
		err = ErrProgramTruncated
		return
	}

	op := DecodeOpcode(program[pc])
	if !op.Valid() {
		text = fmt.Sprintf(".byte %#02x", program[pc])
		size = 1
		return
	}

	size = op.Size()
	if pc+size > len(program) {
		err = ErrProgramTruncated
		size = 0
		return
	}

	inst := MakeInstruction(op)
	at := pc + 1
	for _, kind := range op.Layout() {
		switch kind {
		case OPERAND_REGISTER:
			inst.Operands = append(inst.Operands, MakeRegister(program[at]))
		case OPERAND_IMM16:
			value := binary.BigEndian.Uint16(program[at:])
			inst.Operands = append(inst.Operands, MakeInteger(int32(value)))
		}
		at += kind.Size()
	}

	text = inst.String()
	return
}

// Listing returns an iterator over the disassembled program, indexed by
// byte offset. A truncated final instruction is rendered as raw bytes.
func Listing(program []byte) iter.Seq2[int, string] {
	return func(yield func(pc int, text string) bool) {
		for pc := 0; pc < len(program); {
			text, size, err := Disassemble(program, pc)
			if err != nil {
				text = fmt.Sprintf(".byte % x", program[pc:])
				size = len(program) - pc
			}
			if !yield(pc, text) {
				return
			}
			pc += size
		}
	}
}

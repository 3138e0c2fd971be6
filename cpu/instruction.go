package cpu

import (
	"encoding/binary"
	"errors"
	"strings"
)

// MAX_OPERANDS is the most operands an instruction can carry.
const MAX_OPERANDS = 3

// Instruction is a single parsed assembler instruction.
type Instruction struct {
	LineNo   int     // Source line number, if known.
	Pc       int     // Byte offset of the instruction in its program.
	Opcode   Token   // Opcode token.
	Operands []Token // Operand tokens, in written order.
}

// MakeInstruction creates an instruction from an opcode and its operands.
func MakeInstruction(code Opcode, operands ...Token) Instruction {
	return Instruction{
		Opcode:   MakeOp(code),
		Operands: operands,
	}
}

// Size returns the encoded size of the instruction, in bytes.
func (inst Instruction) Size() (size int) {
	size = 1
	for _, tok := range inst.Operands {
		switch tok.Kind {
		case TOKEN_REGISTER:
			size += OPERAND_REGISTER.Size()
		case TOKEN_INTEGER:
			size += OPERAND_IMM16.Size()
		}
	}

	return
}

// ToBytes encodes the instruction.
//
// The opcode byte is followed by each operand in order: one byte for a
// register index, and two big-endian bytes for the low 16 bits of an
// integer operand.
func (inst Instruction) ToBytes() (out []byte, err error) {
	if inst.Opcode.Kind != TOKEN_OP {
		err = errors.Join(ErrEncode, ErrOpcodeMissing)
		return
	}

	code, err := inst.Opcode.Code.Encode()
	if err != nil {
		err = errors.Join(ErrEncode, err)
		return
	}

	if len(inst.Operands) > MAX_OPERANDS {
		err = errors.Join(ErrEncode, ErrOperandExtra)
		return
	}

	out = make([]byte, 0, inst.Size())
	out = append(out, code)

	for n, tok := range inst.Operands {
		switch tok.Kind {
		case TOKEN_REGISTER:
			out = append(out, tok.Index)
		case TOKEN_INTEGER:
			out = binary.BigEndian.AppendUint16(out, uint16(tok.Value))
		default:
			out = nil
			err = errors.Join(ErrEncode, ErrOperandInvalid, errOperand[n])
			return
		}
	}

	return
}

// String returns the canonical assembly text of the instruction.
func (inst Instruction) String() string {
	words := make([]string, 0, 1+len(inst.Operands))
	words = append(words, inst.Opcode.String())
	for _, tok := range inst.Operands {
		words = append(words, tok.String())
	}

	return strings.Join(words, " ")
}

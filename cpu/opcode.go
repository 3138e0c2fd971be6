package cpu

import (
	"fmt"
)

// Opcode is an instruction operation selector.
//
// Opcode values are symbolic. The byte encoding and the mnemonic of each
// opcode are fixed by opcodeTable, and new opcodes must only ever be
// appended to it.
type Opcode int

const (
	OP_ILLEGAL      = Opcode(-1) // illegal
	OP_HALT         = Opcode(0)  // halt
	OP_LOAD         = Opcode(1)  // load
	OP_ADD          = Opcode(2)  // add
	OP_SUBTRACT     = Opcode(3)  // subtract
	OP_MULTIPLY     = Opcode(4)  // multiply
	OP_DIVIDE       = Opcode(5)  // divide
	OP_JUMP         = Opcode(6)  // jump
	OP_JUMPFORWARD  = Opcode(7)  // jumpforward
	OP_JUMPBACKWARD = Opcode(8)  // jumpbackward
	OP_EQUAL        = Opcode(9)  // equal
	OP_NOTEQUAL     = Opcode(10) // notequal
	OP_GREATER      = Opcode(11) // greater
	OP_LESS         = Opcode(12) // less
	OP_GREATEREQUAL = Opcode(13) // greaterequal
	OP_LESSEQUAL    = Opcode(14) // lessequal
	OP_JUMPIF       = Opcode(15) // jumpif
)

// OperandKind is the encoded form of a single instruction operand.
type OperandKind int

const (
	OPERAND_REGISTER = OperandKind(0) // One byte register index.
	OPERAND_IMM16    = OperandKind(1) // Two byte big-endian immediate.
)

// Size returns the number of encoded bytes for the operand kind.
func (kind OperandKind) Size() int {
	switch kind {
	case OPERAND_REGISTER:
		return 1
	case OPERAND_IMM16:
		return 2
	}

	return 0
}

var (
	layoutNone = []OperandKind{}
	layoutR    = []OperandKind{OPERAND_REGISTER}
	layoutRR   = []OperandKind{OPERAND_REGISTER, OPERAND_REGISTER}
	layoutRRR  = []OperandKind{OPERAND_REGISTER, OPERAND_REGISTER, OPERAND_REGISTER}
	layoutRI   = []OperandKind{OPERAND_REGISTER, OPERAND_IMM16}
)

// opcodeInfo describes the encoding of a single opcode.
type opcodeInfo struct {
	Opcode   Opcode
	Byte     uint8
	Mnemonic string
	Layout   []OperandKind
}

// opcodeTable is the instruction set. Append only!
var opcodeTable = []opcodeInfo{
	{OP_HALT, 0, "halt", layoutNone},
	{OP_LOAD, 1, "load", layoutRI},
	{OP_ADD, 2, "add", layoutRRR},
	{OP_SUBTRACT, 3, "subtract", layoutRRR},
	{OP_MULTIPLY, 4, "multiply", layoutRRR},
	{OP_DIVIDE, 5, "divide", layoutRRR},
	{OP_JUMP, 6, "jump", layoutR},
	{OP_JUMPFORWARD, 7, "jumpforward", layoutR},
	{OP_JUMPBACKWARD, 8, "jumpbackward", layoutR},
	{OP_EQUAL, 9, "equal", layoutRR},
	{OP_NOTEQUAL, 10, "notequal", layoutRR},
	{OP_GREATER, 11, "greater", layoutRR},
	{OP_LESS, 12, "less", layoutRR},
	{OP_GREATEREQUAL, 13, "greaterequal", layoutRR},
	{OP_LESSEQUAL, 14, "lessequal", layoutRR},
	{OP_JUMPIF, 15, "jumpif", layoutR},
}

var (
	byOpcode   = map[Opcode]*opcodeInfo{}
	byByte     = [256]Opcode{}
	byMnemonic = map[string]Opcode{}
)

func init() {
	for n := range byByte {
		byByte[n] = OP_ILLEGAL
	}

	for n := range opcodeTable {
		info := &opcodeTable[n]
		if _, ok := byOpcode[info.Opcode]; ok {
			panic(fmt.Sprintf("opcode %d duplicated", info.Opcode))
		}
		if byByte[info.Byte] != OP_ILLEGAL {
			panic(fmt.Sprintf("opcode byte %#02x duplicated", info.Byte))
		}
		byOpcode[info.Opcode] = info
		byByte[info.Byte] = info.Opcode
		byMnemonic[info.Mnemonic] = info.Opcode
	}
}

// Opcodes returns all of the defined opcodes, in encoding order.
func Opcodes() (ops []Opcode) {
	for _, info := range opcodeTable {
		ops = append(ops, info.Opcode)
	}

	return
}

// DecodeOpcode returns the opcode for an encoded byte.
// Any byte that is not a defined opcode decodes to OP_ILLEGAL.
func DecodeOpcode(b uint8) Opcode {
	return byByte[b]
}

// ParseMnemonic returns the opcode for an exact, lowercase mnemonic.
// Any other word parses to OP_ILLEGAL.
func ParseMnemonic(word string) Opcode {
	op, ok := byMnemonic[word]
	if !ok {
		return OP_ILLEGAL
	}

	return op
}

// Encode returns the byte encoding of the opcode.
func (op Opcode) Encode() (b uint8, err error) {
	info, ok := byOpcode[op]
	if !ok {
		err = ErrOpcodeIllegal
		return
	}

	b = info.Byte
	return
}

// Mnemonic returns the assembly mnemonic of the opcode.
func (op Opcode) Mnemonic() (word string, ok bool) {
	info, ok := byOpcode[op]
	if !ok {
		return
	}

	word = info.Mnemonic
	return
}

// Layout returns the operand layout of the opcode.
func (op Opcode) Layout() []OperandKind {
	info, ok := byOpcode[op]
	if !ok {
		return nil
	}

	return info.Layout
}

// Size returns the encoded size of an instruction using this opcode.
func (op Opcode) Size() (size int) {
	size = 1
	for _, kind := range op.Layout() {
		size += kind.Size()
	}

	return
}

// Valid returns true for all defined opcodes.
func (op Opcode) Valid() bool {
	_, ok := byOpcode[op]
	return ok
}

func (op Opcode) String() string {
	word, ok := op.Mnemonic()
	if !ok {
		return fmt.Sprintf("Opcode(%d)", int(op))
	}

	return word
}

package cpu

import (
	"slices"

	"github.com/ezrec/esper/internal"
)

// Program is an ordered list of assembled instructions.
type Program struct {
	Instructions []Instruction
}

// Debug locates the instruction covering a program offset.
type Debug struct {
	*Instruction
	Index int // Byte index into the instruction.
}

// Debug returns the instruction that encodes the byte at pc.
func (prog *Program) Debug(pc int) (dbg Debug) {
	for n, inst := range prog.Instructions {
		if pc >= inst.Pc && pc < inst.Pc+inst.Size() {
			dbg = Debug{
				Instruction: &prog.Instructions[n],
				Index:       pc - inst.Pc,
			}
			break
		}
	}

	return
}

// Size returns the encoded size of the program, in bytes.
func (prog *Program) Size() (size int) {
	for _, inst := range prog.Instructions {
		size += inst.Size()
	}

	return
}

// Append adds instructions to the program, placing each at the next
// free byte offset.
func (prog *Program) Append(insts ...Instruction) {
	pc := prog.Size()
	for _, inst := range insts {
		inst.Pc = pc
		pc += inst.Size()
		prog.Instructions = append(prog.Instructions, inst)
	}
}

// ToBytes encodes the whole program as one byte buffer, with no
// separators or padding between instructions.
func (prog *Program) ToBytes() (out []byte, err error) {
	codes := make([][]byte, 0, len(prog.Instructions))
	for _, inst := range prog.Instructions {
		var code []byte
		code, err = inst.ToBytes()
		if err != nil {
			return
		}
		codes = append(codes, code)
	}

	out = slices.Collect(internal.IterSliceConcat(codes...))
	if out == nil {
		out = []byte{}
	}

	return
}

// Relocate returns a copy of the program with every instruction offset
// moved by base bytes.
func (prog *Program) Relocate(base int) *Program {
	insts := slices.Clone(prog.Instructions)
	for n := range insts {
		insts[n].Pc += base
	}

	return &Program{Instructions: insts}
}

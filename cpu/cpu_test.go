package cpu

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func runCode(code []byte) (cpu *Cpu, err error) {
	cpu = NewCpu()
	cpu.Append(code...)
	err = cpu.Run()
	return
}

func TestCpu(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	for n := range REGISTER_COUNT {
		assert.Equal(int32(0), cpu.Register[n])
	}
	assert.Equal(0, cpu.Pc)
	assert.Equal(0, len(cpu.Program))
	assert.False(cpu.Cond)
	assert.Equal(uint32(0), cpu.Remainder)

	// Empty programs stop immediately.
	done, err := cpu.Tick()
	assert.NoError(err)
	assert.True(done)
	assert.False(cpu.Halted)
}

func TestCpu_Load(t *testing.T) {
	assert := assert.New(t)

	cpu, err := runCode([]byte{1, 0, 1, 58, 0})
	assert.NoError(err)
	assert.Equal(int32(314), cpu.Register[0])
	assert.Equal(5, cpu.Pc)
	assert.True(cpu.Halted)
	assert.Equal(2, cpu.Ticks)

	// Zero extended.
	cpu, err = runCode([]byte{1, 3, 0xff, 0xff})
	assert.NoError(err)
	assert.Equal(int32(65535), cpu.Register[3])
	assert.Equal(4, cpu.Pc)
	assert.False(cpu.Halted)
}

func TestCpu_Arithmetic(t *testing.T) {
	assert := assert.New(t)

	loads := []byte{1, 0, 20, 22, 1, 1, 12, 34}

	table := [](struct {
		name      string
		op        Opcode
		result    int32
		remainder uint32
	}){
		{"add", OP_ADD, 8248, 0},
		{"subtract", OP_SUBTRACT, 2036, 0},
		{"multiply", OP_MULTIPLY, 5142 * 3106, 0},
		{"divide", OP_DIVIDE, 1, 2036},
	}

	for _, entry := range table {
		code, err := entry.op.Encode()
		assert.NoError(err)
		cpu, err := runCode(append(append([]byte{}, loads...), code, 0, 1, 2))
		assert.NoError(err, entry.name)
		assert.Equal(entry.result, cpu.Register[2], entry.name)
		assert.Equal(entry.remainder, cpu.Remainder, entry.name)
		assert.Equal(int32(5142), cpu.Register[0], entry.name)
		assert.Equal(int32(3106), cpu.Register[1], entry.name)
	}
}

func TestCpu_Divide_Signed(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Register[0] = -7
	cpu.Register[1] = 2
	cpu.Append(5, 0, 1, 2)
	assert.NoError(cpu.Run())
	assert.Equal(int32(-3), cpu.Register[2])
	assert.Equal(uint32(math.MaxUint32), cpu.Remainder)

	// Wraps, like the hardware would.
	cpu = NewCpu()
	cpu.Register[0] = math.MinInt32
	cpu.Register[1] = -1
	cpu.Append(5, 0, 1, 2, 4, 0, 1, 3)
	assert.NoError(cpu.Run())
	assert.Equal(int32(math.MinInt32), cpu.Register[2])
	assert.Equal(int32(math.MinInt32), cpu.Register[3])
}

func TestCpu_Divide_Zero(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Register[0] = 10
	cpu.Register[2] = 99
	cpu.Remainder = 7
	cpu.Append(5, 0, 1, 2, 0)

	err := cpu.Run()
	assert.ErrorIs(err, ErrDivideByZero)
	assert.ErrorIs(err, ErrRuntime)
	assert.Equal(int32(99), cpu.Register[2])
	assert.Equal(uint32(7), cpu.Remainder)
	assert.False(cpu.Halted)

	var eerr *ErrExecute
	assert.True(errors.As(err, &eerr))
	assert.Equal(0, eerr.Pc)
	assert.Equal(OP_DIVIDE, eerr.Opcode)
}

func TestCpu_Illegal(t *testing.T) {
	assert := assert.New(t)

	cpu, err := runCode([]byte{123, 0, 0, 0})
	assert.ErrorIs(err, ErrOpcodeIllegal)
	assert.Equal(1, cpu.Pc)
	assert.Equal([REGISTER_COUNT]int32{}, cpu.Register)
	assert.Equal(0, cpu.Ticks)

	var eerr *ErrExecute
	assert.True(errors.As(err, &eerr))
	assert.Equal(OP_ILLEGAL, eerr.Opcode)
	assert.Equal(uint8(0x7b), eerr.Byte)
	assert.Equal("pc 0x0000 .byte 0x7b: illegal opcode", err.Error())

	// Defined opcodes name their mnemonic.
	_, err = runCode([]byte{1, 0, 0, 1, 1, 1, 0, 0, 5, 0, 1, 2})
	assert.ErrorIs(err, ErrDivideByZero)
	assert.Equal("pc 0x0008 divide: divide by zero", err.Error())
}

func TestCpu_Register_Invalid(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		code []byte
		pc   int
	}){
		{"load", []byte{1, 32, 0, 1}, 4},
		{"add_src", []byte{2, 0, 40, 1}, 4},
		{"add_dst", []byte{2, 0, 1, 255}, 4},
		{"jump", []byte{6, 32}, 2},
		{"equal", []byte{9, 1, 32}, 3},
	}

	for _, entry := range table {
		cpu, err := runCode(entry.code)
		assert.ErrorIs(err, ErrRegisterInvalid, entry.name)
		assert.Equal(entry.pc, cpu.Pc, entry.name)
		assert.Equal([REGISTER_COUNT]int32{}, cpu.Register, entry.name)
	}
}

func TestCpu_Truncated(t *testing.T) {
	assert := assert.New(t)

	for _, code := range [][]byte{
		{1},
		{1, 0},
		{1, 0, 1},
		{2, 0, 1},
		{9, 0},
		{15},
	} {
		_, err := runCode(code)
		assert.ErrorIs(err, ErrProgramTruncated, code)
	}
}

func TestCpu_Jump(t *testing.T) {
	assert := assert.New(t)

	// load $0 #11 ; jump $0 ; load $1 #1 ; halt ; load $2 #2
	code := []byte{1, 0, 0, 11, 6, 0, 1, 1, 0, 1, 0, 1, 2, 0, 2}
	cpu, err := runCode(code)
	assert.NoError(err)
	assert.Equal(int32(0), cpu.Register[1])
	assert.Equal(int32(2), cpu.Register[2])
	assert.Equal(len(code), cpu.Pc)

	// Past the end of the program is an implicit halt.
	cpu, err = runCode([]byte{1, 0, 0, 100, 6, 0})
	assert.NoError(err)
	assert.Equal(100, cpu.Pc)
	assert.False(cpu.Halted)

	cpu = NewCpu()
	cpu.Register[0] = -1
	cpu.Append(6, 0)
	assert.ErrorIs(cpu.Run(), ErrJumpInvalid)
}

func TestCpu_JumpRelative(t *testing.T) {
	assert := assert.New(t)

	// load $0 #4 ; jumpforward $0 ; load $1 #1 ; load $2 #2
	cpu, err := runCode([]byte{1, 0, 0, 4, 7, 0, 1, 1, 0, 1, 1, 2, 0, 2})
	assert.NoError(err)
	assert.Equal(int32(0), cpu.Register[1])
	assert.Equal(int32(2), cpu.Register[2])

	// Count down loop.
	loop := []byte{
		1, 0, 0, 3,  //  0: load $0 #3 (counter)
		1, 1, 0, 1,  //  4: load $1 #1 (step)
		1, 2, 0, 0,  //  8: load $2 #0 (zero)
		1, 3, 0, 15, // 12: load $3 #15 (loop length)
		1, 5, 0, 35, // 16: load $5 #35 (exit)
		3, 0, 1, 0,  // 20: subtract $0 $1 $0
		2, 4, 1, 4,  // 24: add $4 $1 $4
		9, 0, 2,     // 28: equal $0 $2
		15, 5,       // 31: jumpif $5
		8, 3,        // 33: jumpbackward $3
		0,           // 35: halt
	}
	cpu, err = runCode(loop)
	assert.NoError(err)
	assert.Equal(int32(0), cpu.Register[0])
	assert.Equal(int32(3), cpu.Register[4])
	assert.True(cpu.Halted)
	assert.Equal(36, cpu.Pc)
}

func TestCpu_JumpRelative_Underflow(t *testing.T) {
	assert := assert.New(t)

	cpu, err := runCode([]byte{1, 0, 0, 10, 8, 0})
	assert.ErrorIs(err, ErrJumpUnderflow)
	assert.Equal(6, cpu.Pc)

	cpu = NewCpu()
	cpu.Register[0] = -3
	cpu.Append(7, 0)
	assert.ErrorIs(cpu.Run(), ErrJumpUnderflow)

	// Back to the very start is fine.
	cpu = NewCpu()
	cpu.Register[0] = 2
	cpu.Append(8, 0)
	done, err := cpu.Tick()
	assert.NoError(err)
	assert.False(done)
	assert.Equal(0, cpu.Pc)
}

func TestCpu_Compare(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		op     Opcode
		a, b   int32
		result bool
	}){
		{OP_EQUAL, 1, 1, true},
		{OP_EQUAL, 1, 2, false},
		{OP_NOTEQUAL, 1, 2, true},
		{OP_NOTEQUAL, 2, 2, false},
		{OP_GREATER, 2, 1, true},
		{OP_GREATER, 1, 1, false},
		{OP_GREATER, -1, 1, false},
		{OP_LESS, -1, 1, true},
		{OP_LESS, 1, 1, false},
		{OP_GREATEREQUAL, 1, 1, true},
		{OP_GREATEREQUAL, 0, 1, false},
		{OP_LESSEQUAL, 1, 1, true},
		{OP_LESSEQUAL, 2, 1, false},
	}

	for _, entry := range table {
		code, err := entry.op.Encode()
		assert.NoError(err)
		for _, prior := range []bool{false, true} {
			cpu := NewCpu()
			cpu.Cond = prior
			cpu.Register[4] = entry.a
			cpu.Register[5] = entry.b
			cpu.Append(code, 4, 5)
			assert.NoError(cpu.Run())
			assert.Equal(entry.result, cpu.Cond, "%v %v %v", entry.op, entry.a, entry.b)
			assert.Equal(3, cpu.Pc)
		}
	}
}

func TestCpu_JumpIf(t *testing.T) {
	assert := assert.New(t)

	for _, cond := range []bool{false, true} {
		cpu := NewCpu()
		cpu.Cond = cond
		cpu.Register[0] = 6
		// jumpif $0 ; load $1 #1 ; load $2 #2
		cpu.Append(15, 0, 1, 1, 0, 1, 1, 2, 0, 2)
		assert.NoError(cpu.Run())
		if cond {
			assert.Equal(int32(0), cpu.Register[1])
		} else {
			assert.Equal(int32(1), cpu.Register[1])
		}
		assert.Equal(int32(2), cpu.Register[2])
		assert.Equal(cond, cpu.Cond)
	}
}

func TestCpu_Append_Resume(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Append(1, 0, 0, 5)
	assert.NoError(cpu.Run())
	assert.Equal(4, cpu.Pc)

	// Resumes from the current counter.
	cpu.Append(2, 0, 0, 1)
	assert.NoError(cpu.Run())
	assert.Equal(int32(5), cpu.Register[0])
	assert.Equal(int32(10), cpu.Register[1])
	assert.Equal(8, cpu.Pc)

	cpu.Reset()
	assert.Equal(0, cpu.Pc)
	assert.Equal(int32(0), cpu.Register[1])
	assert.Equal(8, len(cpu.Program))
}

func TestCpu_String(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Register[31] = -1
	cpu.Cond = true
	text := cpu.String()
	assert.Contains(text, "   pc: 0000\n")
	assert.Contains(text, " cond: true\n")
	assert.Contains(text, "  $31: FFFF_FFFF\n")
}

package cpu

import (
	"errors"

	"github.com/ezrec/esper/translate"
)

var f = translate.From

var (
	// Error categories
	ErrParse   = errors.New(f("could not understand input"))
	ErrEncode  = errors.New(f("encode"))
	ErrRuntime = errors.New(f("runtime"))

	// Assembler errors
	ErrInstructionMissing = errors.New(f("instruction missing"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrProgramEmpty       = errors.New(f("program empty"))

	// Encoder errors
	ErrOpcodeMissing  = errors.New(f("non-opcode in opcode field"))
	ErrOperandInvalid = errors.New(f("opcode in operand field"))
	ErrOperandExtra   = errors.New(f("excessive operands"))
	ErrOperand1       = errors.New(f("operand 1"))
	ErrOperand2       = errors.New(f("operand 2"))
	ErrOperand3       = errors.New(f("operand 3"))

	// Execution errors
	ErrOpcodeIllegal    = errors.New(f("illegal opcode"))
	ErrDivideByZero     = errors.New(f("divide by zero"))
	ErrJumpUnderflow    = errors.New(f("jump underflow"))
	ErrJumpInvalid      = errors.New(f("jump target invalid"))
	ErrRegisterInvalid  = errors.New(f("register invalid"))
	ErrProgramTruncated = errors.New(f("program truncated"))
)

var errOperand = [...]error{ErrOperand1, ErrOperand2, ErrOperand3}

type ErrParseRegister string

func (err ErrParseRegister) Error() string {
	return f("'%v' is not a register", string(err))
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrParseExpression holds the expression text as written, including
// its leading '$('.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("'%v' is not a valid expression", string(err))
}

type ErrParseTrailing string

func (err ErrParseTrailing) Error() string {
	return f("unexpected '%v'", string(err))
}

// ErrSyntax is the location of an assembler failure.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

// Is matches ErrParse, as all syntax errors are recoverable parse errors.
func (err *ErrSyntax) Is(target error) bool {
	return target == ErrParse
}

// ErrExecute is the location of an execution fault.
type ErrExecute struct {
	Pc     int
	Opcode Opcode
	Byte   uint8 // Opcode byte as fetched.
	Err    error
}

func (err *ErrExecute) Error() string {
	if !err.Opcode.Valid() {
		return f("pc %#04x .byte %#02x: %v", err.Pc, err.Byte, err.Err)
	}
	return f("pc %#04x %v: %v", err.Pc, err.Opcode, err.Err)
}

func (err *ErrExecute) Unwrap() error {
	return err.Err
}

// Is matches ErrRuntime.
func (err *ErrExecute) Is(target error) bool {
	return target == ErrRuntime
}

// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"math"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":         "0",
	"REGISTER_COUNT": fmt.Sprintf("%v", REGISTER_COUNT),
}

// shapes are the instruction forms, in match priority order.
// Longer forms come first, so that a shorter form never matches
// just the prefix of a longer instruction. The bare opcode is last.
var shapes = [][]OperandKind{
	layoutRI,
	layoutRRR,
	layoutRR,
	layoutR,
	layoutNone,
}

// Assembler is a single pass assembler for the esper virtual machine.
//
// Each line holds one or more instructions of the form:
//
//	<opcode> [<operand> ...]
//
// where <opcode> is a lowercase mnemonic, a register operand is '$'
// followed by decimal digits, and an integer operand is '#' followed by
// either decimal digits or a $(...) compile time expression.
type Assembler struct {
	Verbose bool              // If set, verbosely logs the assembler actions.
	Equate  map[string]string // Map of equates visible to $(...) expressions.

	predefine map[string]string // Predefines
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// reset restores the equates to the system and predefined values.
func (asm *Assembler) reset() {
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)
}

// cursor is a read position within a line of text.
type cursor struct {
	text string
	pos  int
}

func (c *cursor) rest() string {
	return c.text[c.pos:]
}

func (c *cursor) done() bool {
	return c.pos >= len(c.text)
}

func (c *cursor) peek() byte {
	if c.done() {
		return 0
	}
	return c.text[c.pos]
}

// space skips horizontal whitespace.
func (c *cursor) space() {
	for !c.done() && (c.text[c.pos] == ' ' || c.text[c.pos] == '\t') {
		c.pos++
	}
}

// span consumes the run of bytes matching the class, and returns it.
func (c *cursor) span(class func(ch byte) bool) string {
	start := c.pos
	for !c.done() && class(c.text[c.pos]) {
		c.pos++
	}
	return c.text[start:c.pos]
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// opcode lexes an opcode word. Unknown words lex as OP_ILLEGAL.
func (asm *Assembler) opcode(c *cursor) (tok Token, ok bool) {
	c.space()
	word := c.span(isAlpha)
	if len(word) == 0 {
		return
	}
	c.space()

	tok = MakeOp(ParseMnemonic(word))
	ok = true
	return
}

// register lexes a '$' register operand.
func (asm *Assembler) register(c *cursor) (tok Token, ok bool, err error) {
	c.space()
	if c.peek() != '$' {
		return
	}
	c.pos++
	digits := c.span(isDigit)
	if len(digits) == 0 {
		return
	}

	index, err := strconv.ParseUint(digits, 10, 8)
	if err != nil {
		err = ErrParseRegister("$" + digits)
		return
	}
	c.space()

	tok = MakeRegister(uint8(index))
	ok = true
	return
}

// integer lexes a '#' integer operand.
func (asm *Assembler) integer(c *cursor) (tok Token, ok bool, err error) {
	c.space()
	if c.peek() != '#' {
		return
	}
	c.pos++

	var value int32
	if strings.HasPrefix(c.rest(), "$(") {
		var expr string
		expr, err = c.expression()
		if err != nil {
			return
		}
		value, err = asm.parenEval(expr)
		if err != nil {
			return
		}
	} else {
		digits := c.span(isDigit)
		if len(digits) == 0 {
			return
		}
		var v64 int64
		v64, err = strconv.ParseInt(digits, 10, 32)
		if err != nil {
			err = ErrParseNumber(digits)
			return
		}
		value = int32(v64)
	}
	c.space()

	tok = MakeInteger(value)
	ok = true
	return
}

// expression consumes a balanced $(...) expression, and returns its body.
func (c *cursor) expression() (expr string, err error) {
	start := c.pos + 2
	depth := 0
	for n := c.pos + 1; n < len(c.text); n++ {
		switch c.text[n] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				expr = c.text[start:n]
				c.pos = n + 1
				return
			}
		}
	}

	err = ErrParseExpression(c.text[c.pos:])
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int32, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, perr := strconv.ParseInt(str, 0, 64)
		if perr != nil {
			// Ignore non-integer equates.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	bad := ErrParseExpression("$(" + expr + ")")
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = bad
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = bad
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok || st_int64 > math.MaxInt32 || st_int64 < math.MinInt32 {
		err = bad
		return
	}
	value = int32(st_int64)
	return
}

// operand lexes a single operand of the requested kind.
func (asm *Assembler) operand(c *cursor, kind OperandKind) (tok Token, ok bool, err error) {
	switch kind {
	case OPERAND_REGISTER:
		return asm.register(c)
	case OPERAND_IMM16:
		return asm.integer(c)
	}

	return
}

// instruction matches the first instruction shape at the cursor.
// On a mismatch of all shapes, ok is false and the cursor is unchanged.
func (asm *Assembler) instruction(c *cursor) (inst Instruction, ok bool, err error) {
	start := *c

	for _, shape := range shapes {
		*c = start

		var op Token
		op, ok = asm.opcode(c)
		if !ok {
			// No opcode word, so no shape can match.
			break
		}

		inst = Instruction{Opcode: op}
		for _, kind := range shape {
			var tok Token
			tok, ok, err = asm.operand(c, kind)
			if err != nil {
				*c = start
				return
			}
			if !ok {
				break
			}
			inst.Operands = append(inst.Operands, tok)
		}

		if ok {
			return
		}
	}

	*c = start
	inst = Instruction{}
	ok = false
	return
}

// ParseInstruction parses a single instruction from the start of the text,
// and returns the unconsumed remainder.
func (asm *Assembler) ParseInstruction(text string) (inst Instruction, rest string, err error) {
	if asm.Equate == nil {
		asm.reset()
	}

	c := &cursor{text: text}
	inst, ok, err := asm.instruction(c)
	if err != nil {
		return
	}
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	rest = c.rest()
	return
}

// ParseLine parses a line holding one or more instructions.
// The whole line must be consumed by whole instructions.
func (asm *Assembler) ParseLine(line string) (insts []Instruction, err error) {
	if asm.Equate == nil {
		asm.reset()
	}

	c := &cursor{text: line}
	for {
		var inst Instruction
		var ok bool
		inst, ok, err = asm.instruction(c)
		if err != nil {
			return
		}
		if !ok {
			break
		}
		insts = append(insts, inst)
	}

	if len(insts) == 0 {
		c.space()
		if c.done() {
			err = ErrInstructionMissing
		} else {
			err = ErrInstructionInvalid
		}
		return
	}

	if !c.done() {
		insts = nil
		err = ErrParseTrailing(c.rest())
		return
	}

	return
}

// Parse parses an input stream into a Program.
// Blank lines are ignored.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.reset()
	prog = &Program{}

	for scanner.Scan() {
		line = strings.TrimRight(scanner.Text(), "\r")
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, line)
		}

		if len(strings.TrimSpace(line)) == 0 {
			continue
		}

		asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

		var insts []Instruction
		insts, err = asm.ParseLine(line)
		if err != nil {
			prog = nil
			return
		}

		for n := range insts {
			insts[n].LineNo = lineno
		}
		prog.Append(insts...)
	}

	err = scanner.Err()
	if err != nil {
		prog = nil
		return
	}

	return
}

// Assemble parses and encodes a source text.
// An empty source is a parse failure.
func (asm *Assembler) Assemble(text string) (code []byte, err error) {
	prog, err := asm.Parse(strings.NewReader(text))
	if err != nil {
		return
	}

	if len(prog.Instructions) == 0 {
		err = &ErrSyntax{LineNo: 1, Line: text, Err: ErrProgramEmpty}
		return
	}

	code, err = prog.ToBytes()
	return
}

// Assemble parses and encodes a source text with a default Assembler.
func Assemble(text string) (code []byte, err error) {
	asm := &Assembler{}
	return asm.Assemble(text)
}

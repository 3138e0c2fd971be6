package cpu

import (
	"fmt"
)

// TokenKind is the lexical class of an assembler token.
type TokenKind int

//go:generate go tool stringer -linecomment -type=TokenKind
const (
	TOKEN_OP       = TokenKind(0) // op
	TOKEN_REGISTER = TokenKind(1) // register
	TOKEN_INTEGER  = TokenKind(2) // integer
)

// Token is a single lexed element of an assembler line.
// Only the field matching Kind is meaningful.
type Token struct {
	Kind  TokenKind
	Code  Opcode // TOKEN_OP
	Index uint8  // TOKEN_REGISTER
	Value int32  // TOKEN_INTEGER
}

// MakeOp creates an opcode token.
func MakeOp(code Opcode) Token {
	return Token{Kind: TOKEN_OP, Code: code}
}

// MakeRegister creates a register token.
func MakeRegister(index uint8) Token {
	return Token{Kind: TOKEN_REGISTER, Index: index}
}

// MakeInteger creates an integer operand token.
func MakeInteger(value int32) Token {
	return Token{Kind: TOKEN_INTEGER, Value: value}
}

// String returns the assembly text of the token.
func (tok Token) String() string {
	switch tok.Kind {
	case TOKEN_OP:
		return tok.Code.String()
	case TOKEN_REGISTER:
		return fmt.Sprintf("$%d", tok.Index)
	case TOKEN_INTEGER:
		return fmt.Sprintf("#%d", tok.Value)
	}

	return tok.Kind.String()
}

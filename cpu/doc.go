// Package cpu implements the virtual machine and assembler for the esper system.
//
// The CPU consists of a byte offset program counter (PC), thirty-two signed
// 32-bit general-purpose registers ($0-$31), a remainder register holding the
// result of the last divide, and a comparison flag set by the compare opcodes
// and consumed by conditional jumps. Programs are flat byte buffers: one opcode
// byte, followed by one byte per register operand and two big-endian bytes per
// immediate operand.
//
// The assembler provides a one-pass mnemonic-to-bytes translation, supporting
// compile-time immediate expression evaluation.
package cpu

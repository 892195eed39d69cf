// Package cpu implements the execution core and assembler for the ux86
// emulator.
//
// The CPU consists of an instruction pointer (EIP), eight 32-bit general
// purpose registers (EAX-EDI), and a flags register. Instructions are
// fetched from a flat memory bus, decoded through a table of opcode
// handlers, and executed one at a time until the instruction pointer
// returns to zero or leaves memory.
//
// The assembler provides a small assembly language for the supported
// instruction set, with macros, labels, equates, and compile-time
// expression evaluation.
package cpu

package cpu

import (
	"fmt"
)

// Exec executes one instruction whose opcode byte is at cpu.Ip.
//
// It consumes any operand bytes that follow the opcode, updates registers
// and memory, and returns the address of the next instruction: either
// cpu.Ip advanced by the length of the instruction, or a jump target.
// The CPU commits next only when err is nil.
type Exec func(cpu *Cpu, opcode uint8) (next uint32, err error)

// Instruction is one row of the opcode table. It covers the opcodes
// First through Last, inclusive.
type Instruction struct {
	First    uint8  // First opcode byte.
	Last     uint8  // Last opcode byte.
	Mnemonic string // Assembly form.
	Exec     Exec   // Handler.
}

// String returns the opcode range and mnemonic.
func (inst *Instruction) String() string {
	if inst.First == inst.Last {
		return fmt.Sprintf("%02X %v", inst.First, inst.Mnemonic)
	}
	return fmt.Sprintf("%02X-%02X %v", inst.First, inst.Last, inst.Mnemonic)
}

// Instruction set. New instructions are added as rows.
var _instructions = []Instruction{
	{0xB8, 0xBF, "mov r32, imm32", (*Cpu).movR32Imm32},
	{0xC7, 0xC7, "mov r/m32, imm32", (*Cpu).movRm32Imm32},
	{0xE9, 0xE9, "jmp rel32", (*Cpu).jmpRel32},
	{0xEB, 0xEB, "jmp rel8", (*Cpu).jmpRel8},
}

// Instructions returns the default instruction set.
func Instructions() []Instruction {
	return _instructions
}

// Opcodes is an opcode dispatch table.
type Opcodes [256]*Instruction

// Install adds an instruction to the table. No opcode in its range may
// already be installed.
func (table *Opcodes) Install(inst Instruction) (err error) {
	if inst.First > inst.Last || inst.Exec == nil {
		err = fmt.Errorf("%w: %v", ErrInstructionInvalid, inst.String())
		return
	}

	for op := int(inst.First); op <= int(inst.Last); op++ {
		if table[op] != nil {
			err = fmt.Errorf("%w: %02X %v", ErrOpcodeDuplicate, op, table[op].Mnemonic)
			return
		}
	}

	row := &inst
	for op := int(inst.First); op <= int(inst.Last); op++ {
		table[op] = row
	}

	return
}

// Lookup returns the instruction for an opcode, or nil.
func (table *Opcodes) Lookup(opcode uint8) *Instruction {
	return table[opcode]
}

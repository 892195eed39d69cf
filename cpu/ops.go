package cpu

import (
	"errors"

	"github.com/ezrec/ux86/modrm"
)

// movR32Imm32 is B8+r id: MOV r32, imm32.
func (cpu *Cpu) movR32Imm32(opcode uint8) (next uint32, err error) {
	imm, err := cpu.Bus.ReadU32(cpu.Ip, 1)
	if err != nil {
		err = errors.Join(ErrOpcodeImm, err)
		return
	}

	cpu.Register[RegOf(opcode-0xB8)] = imm

	next = cpu.Ip + 5
	return
}

// movRm32Imm32 is C7 /0 id: MOV r/m32, imm32.
func (cpu *Cpu) movRm32Imm32(opcode uint8) (next uint32, err error) {
	m, consumed, err := modrm.Decode(cpu.Bus, cpu.Ip+1, cpu.Compat)
	if err != nil {
		err = errors.Join(ErrOpcodeOperand, err)
		return
	}

	if m.Reg != 0 {
		err = errors.Join(ErrNotImplemented, ErrOpcodeExtension)
		return
	}

	imm, err := cpu.Bus.ReadU32(cpu.Ip, 1+consumed)
	if err != nil {
		err = errors.Join(ErrOpcodeImm, err)
		return
	}

	if m.IsRegister() {
		cpu.Register[RegOf(m.Rm)] = imm
	} else {
		var addr uint32
		addr, err = m.EffectiveAddress(&cpu.Register)
		if err != nil {
			err = errors.Join(ErrNotImplemented, ErrOpcodeOperand, err)
			return
		}
		if cpu.Verbose {
			cpu.logf("write [%08X] = %08X (%v)", addr, imm, m)
		}
		err = cpu.Bus.WriteU32(addr, imm)
		if err != nil {
			err = errors.Join(ErrOpcodeOperand, err)
			return
		}
	}

	next = cpu.Ip + 1 + consumed + 4
	return
}

// jmpRel32 is E9 cd: JMP rel32.
func (cpu *Cpu) jmpRel32(opcode uint8) (next uint32, err error) {
	disp, err := cpu.Bus.ReadI32(cpu.Ip, 1)
	if err != nil {
		err = errors.Join(ErrOpcodeImm, err)
		return
	}

	return cpu.jump(int64(disp), 5)
}

// jmpRel8 is EB cb: JMP rel8.
func (cpu *Cpu) jmpRel8(opcode uint8) (next uint32, err error) {
	disp, err := cpu.Bus.ReadI8(cpu.Ip, 1)
	if err != nil {
		err = errors.Join(ErrOpcodeImm, err)
		return
	}

	return cpu.jump(int64(disp), 2)
}

// jump computes a target relative to the end of an instruction of length
// bytes at cpu.Ip. The target must lie inside memory.
func (cpu *Cpu) jump(disp int64, length int64) (next uint32, err error) {
	target := int64(cpu.Ip) + length + disp
	if target < 0 || target >= int64(cpu.Bus.Size()) {
		err = ErrJump{Ip: cpu.Ip, Target: target, Size: cpu.Bus.Size()}
		return
	}

	next = uint32(target)
	return
}

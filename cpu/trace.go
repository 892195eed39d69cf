package cpu

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// MAX_INSTRUCTION_LEN is the longest encoding of any x86 instruction.
const MAX_INSTRUCTION_LEN = 15

// decode a single 32-bit instruction. Truncated and unknown encodings
// decode as bare prefixes, which are reported as x86asm.ErrTruncated.
func decode(code []byte) (inst x86asm.Inst, err error) {
	inst, err = x86asm.Decode(code, 32)
	if err == nil && inst.Op == 0 {
		err = x86asm.ErrTruncated
	}
	return
}

// Disassemble decodes the instruction at ip, in Intel syntax.
func (cpu *Cpu) Disassemble(ip uint32) (text string, length int, err error) {
	inst, err := decode(cpu.Bus.Slice(ip, MAX_INSTRUCTION_LEN))
	if err != nil {
		return
	}

	text = x86asm.IntelSyntax(inst, uint64(ip), nil)
	length = inst.Len
	return
}

// trace logs the instruction about to execute at ip.
func (cpu *Cpu) trace(ip uint32) {
	text, length, err := cpu.Disassemble(ip)
	if err != nil {
		cpu.logf("%08X: %v", ip, err)
		return
	}

	cpu.logf("%08X: %-16s %v", ip, hexBytes(cpu.Bus.Slice(ip, length)), text)
}

// Disassemble returns a listing of code, as if it was loaded at origin.
// Bytes that do not decode are listed as data.
func Disassemble(code []byte, origin uint32) string {
	var sb strings.Builder

	for offset := 0; offset < len(code); {
		pc := origin + uint32(offset)
		inst, err := decode(code[offset:])
		if err != nil {
			sb.WriteString(fmt.Sprintf("%08X: %-16s db 0x%02x\n", pc, hexBytes(code[offset:offset+1]), code[offset]))
			offset++
			continue
		}

		sb.WriteString(fmt.Sprintf("%08X: %-16s %s\n",
			pc,
			hexBytes(code[offset:offset+inst.Len]),
			x86asm.IntelSyntax(inst, uint64(pc), nil),
		))

		offset += inst.Len
	}

	return sb.String()
}

func hexBytes(data []byte) string {
	words := make([]string, len(data))
	for n, b := range data {
		words[n] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(words, " ")
}

package cpu

import (
	"strings"
)

// Reg is a general purpose register index, in encoding order.
type Reg uint8

//go:generate go tool stringer -linecomment -type=Reg
const (
	EAX = Reg(0) // EAX
	ECX = Reg(1) // ECX
	EDX = Reg(2) // EDX
	EBX = Reg(3) // EBX
	ESP = Reg(4) // ESP
	EBP = Reg(5) // EBP
	ESI = Reg(6) // ESI
	EDI = Reg(7) // EDI
)

const (
	REGISTER_COUNT = 8 // Number of general purpose registers.
)

// RegOf masks a 3-bit register field out of an encoded byte.
func RegOf(bits uint8) Reg {
	return Reg(bits & 7)
}

// ParseReg returns the register with the given name, in any case.
func ParseReg(name string) (reg Reg, ok bool) {
	for reg = EAX; reg <= EDI; reg++ {
		if strings.EqualFold(reg.String(), name) {
			ok = true
			return
		}
	}

	reg = EAX
	return
}

// Package modrm decodes the addressing-mode descriptor (ModRM) byte that
// follows many opcodes, along with its optional SIB byte and displacement.
//
//	 7 6   5 4 3   2 1 0
//	+---+ +-----+ +-----+
//	|mod| | reg | | r/m |
//	+---+ +-----+ +-----+
//
// The decoder only needs byte access to memory and the position of the
// descriptor, and reports how many bytes it consumed. Advancing the
// instruction pointer is left to the caller.
package modrm

import (
	"fmt"
)

// Mode is the addressing mode, the top two bits of the descriptor.
type Mode uint8

//go:generate go tool stringer -linecomment -type=Mode
const (
	MODE_INDIRECT = Mode(0b00) // indirect
	MODE_DISP8    = Mode(0b01) // disp8
	MODE_DISP32   = Mode(0b10) // disp32
	MODE_REGISTER = Mode(0b11) // register
)

// Compat selects how displacements are read for forms that carry none.
type Compat int

//go:generate go tool stringer -linecomment -type=Compat
const (
	COMPAT_STANDARD = Compat(0) // standard
	COMPAT_LEGACY   = Compat(1) // legacy
)

// ParseCompat returns the Compat with the given name.
func ParseCompat(name string) (compat Compat, err error) {
	for _, compat = range []Compat{COMPAT_STANDARD, COMPAT_LEGACY} {
		if compat.String() == name {
			return
		}
	}

	compat = COMPAT_STANDARD
	err = ErrCompatUnknown(name)
	return
}

// Set parses a named compat mode into compat.
func (compat *Compat) Set(name string) (err error) {
	*compat, err = ParseCompat(name)
	return
}

// Type is the value type name used in command line help.
func (compat *Compat) Type() string {
	return "compat"
}

func (compat Compat) MarshalText() (text []byte, err error) {
	text = []byte(compat.String())
	return
}

func (compat *Compat) UnmarshalText(text []byte) (err error) {
	return compat.Set(string(text))
}

// Special r/m encodings for the memory modes.
const (
	RM_SIB    = 0b100 // A SIB byte follows the descriptor.
	RM_DISP32 = 0b101 // With MODE_INDIRECT, an absolute 32-bit address.
)

// Disp is a decoded displacement: Disp8, Disp32, or nil when the form has none.
type Disp interface {
	// Extend returns the displacement sign extended to 32 bits.
	Extend() uint32
	isDisp()
}

// Disp8 is a signed 8-bit displacement.
type Disp8 int8

// Disp32 is a 32-bit displacement.
type Disp32 uint32

func (d Disp8) Extend() uint32  { return uint32(int32(d)) }
func (d Disp32) Extend() uint32 { return uint32(d) }

func (Disp8) isDisp()  {}
func (Disp32) isDisp() {}

// Fetcher is the memory access needed by the decoder.
type Fetcher interface {
	ReadU8(base, offset uint32) (uint8, error)
	ReadI8(base, offset uint32) (int8, error)
	ReadU32(base, offset uint32) (uint32, error)
}

// ModRM is a decoded addressing-mode descriptor.
type ModRM struct {
	Mode   Mode  // Addressing mode.
	Reg    uint8 // Register, or opcode extension.
	Rm     uint8 // Base register, or special encoding.
	Sib    uint8 // SIB byte, valid when HasSib is set.
	HasSib bool  // Set when a SIB byte followed the descriptor.
	Disp   Disp  // Displacement, if any.
}

// Make builds a descriptor byte.
func Make(mode Mode, reg, rm uint8) byte {
	return (byte(mode&3) << 6) | ((reg & 7) << 3) | (rm & 7)
}

// Decode reads the descriptor at ip, and any SIB byte and displacement
// that follow it.
func Decode(mem Fetcher, ip uint32, compat Compat) (m ModRM, consumed uint32, err error) {
	code, err := mem.ReadU8(ip, 0)
	if err != nil {
		return
	}
	consumed = 1

	m.Mode = Mode((code >> 6) & 3)
	m.Reg = (code >> 3) & 7
	m.Rm = code & 7

	if m.Mode != MODE_REGISTER && m.Rm == RM_SIB {
		m.Sib, err = mem.ReadU8(ip, consumed)
		if err != nil {
			return
		}
		m.HasSib = true
		consumed += 1
	}

	switch {
	case m.Mode == MODE_DISP32, m.Mode == MODE_INDIRECT && m.Rm == RM_DISP32:
		var disp uint32
		disp, err = mem.ReadU32(ip, consumed)
		if err != nil {
			return
		}
		m.Disp = Disp32(disp)
		consumed += 4
	case m.Mode == MODE_DISP8, compat == COMPAT_LEGACY:
		// Legacy images always carry a byte of displacement here, even
		// for register-direct and plain indirect forms.
		var disp int8
		disp, err = mem.ReadI8(ip, consumed)
		if err != nil {
			return
		}
		m.Disp = Disp8(disp)
		consumed += 1
	}

	return
}

// IsRegister returns true if the descriptor names a register, not memory.
func (m ModRM) IsRegister() bool {
	return m.Mode == MODE_REGISTER
}

// EffectiveAddress resolves a memory descriptor to an absolute address,
// using regs for the base register. Arithmetic is modulo 2^32; range
// checking is done by the bus when the address is accessed.
func (m ModRM) EffectiveAddress(regs *[8]uint32) (addr uint32, err error) {
	if m.Mode == MODE_REGISTER {
		err = ErrRegisterOperand
		return
	}

	if m.HasSib {
		err = fmt.Errorf("%w: %w 0x%02x", ErrNotImplemented, ErrSib, m.Sib)
		return
	}

	switch m.Mode {
	case MODE_INDIRECT:
		if m.Rm == RM_DISP32 {
			disp, ok := m.Disp.(Disp32)
			if !ok {
				err = ErrDisplacement
				return
			}
			addr = uint32(disp)
		} else {
			addr = regs[m.Rm&7]
		}
	case MODE_DISP8:
		disp, ok := m.Disp.(Disp8)
		if !ok {
			err = ErrDisplacement
			return
		}
		addr = regs[m.Rm&7] + disp.Extend()
	case MODE_DISP32:
		disp, ok := m.Disp.(Disp32)
		if !ok {
			err = ErrDisplacement
			return
		}
		addr = regs[m.Rm&7] + disp.Extend()
	}

	return
}

// Bytes encodes the descriptor, SIB byte and displacement.
func (m ModRM) Bytes() (data []byte) {
	data = append(data, Make(m.Mode, m.Reg, m.Rm))
	if m.HasSib {
		data = append(data, m.Sib)
	}

	switch disp := m.Disp.(type) {
	case Disp8:
		data = append(data, uint8(disp))
	case Disp32:
		data = append(data, uint8(disp), uint8(disp>>8), uint8(disp>>16), uint8(disp>>24))
	}

	return
}

// String returns the fields of the descriptor.
func (m ModRM) String() (text string) {
	text = fmt.Sprintf("%v reg=%d rm=%d", m.Mode, m.Reg, m.Rm)
	if m.HasSib {
		text += fmt.Sprintf(" sib=0x%02x", m.Sib)
	}

	switch disp := m.Disp.(type) {
	case Disp8:
		text += fmt.Sprintf(" disp8=%d", int8(disp))
	case Disp32:
		text += fmt.Sprintf(" disp32=0x%08x", uint32(disp))
	}

	return
}

package cpu

import (
	"iter"
	"strings"
)

// Opcode represents a line of assembled code with its source location and
// generated bytes.
type Opcode struct {
	LineNo    int      // Source line.
	Ip        int      // Address of the first byte.
	Words     []string // Source words.
	Bytes     []byte   // Encoded instruction or data.
	LinkLabel string   // Label the trailing displacement is linked to.
}

// Program is an assembled listing.
type Program struct {
	Origin  int // Load address of the first byte.
	Opcodes []Opcode
}

// Debug locates an address inside the listing.
type Debug struct {
	*Opcode
	Index int // Byte offset of the address inside the opcode.
}

// Debug returns the opcode covering ip. The Opcode is nil if there is none.
func (prog *Program) Debug(ip uint32) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int64(ip) >= int64(op.Ip) && int64(ip) < int64(op.Ip+len(op.Bytes)) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(int64(ip) - int64(op.Ip)),
			}
			break
		}
	}

	return
}

// Binary returns the raw image, to be loaded at Origin.
func (prog *Program) Binary() (bins []byte) {
	for _, op := range prog.Opcodes {
		bins = append(bins, op.Bytes...)
	}

	return
}

// Instructions iterates over the address and bytes of each opcode.
func (prog *Program) Instructions() iter.Seq2[uint32, []byte] {
	return func(yield func(ip uint32, code []byte) bool) {
		for _, op := range prog.Opcodes {
			if !yield(uint32(op.Ip), op.Bytes) {
				return
			}
		}
	}
}

// Listing disassembles each opcode on its own, so data never merges into
// the instruction after it.
func (prog *Program) Listing() string {
	var sb strings.Builder

	for ip, code := range prog.Instructions() {
		sb.WriteString(Disassemble(code, ip))
	}

	return sb.String()
}

// Package bus implements the flat memory image of the emulator.
//
// All multi-byte accesses are little-endian and are assembled or decomposed
// one byte at a time, independent of the host byte order. Any access that
// leaves the image fails with an ErrRange; addresses never wrap.
package bus

import (
	"errors"
	"io"
)

const (
	MEMORY_SIZE = 1024 * 1024 // Default size of the memory image.
)

// Bus owns the emulated address space.
type Bus struct {
	Memory []byte // Memory image, addressed from 0.
}

// New creates a zero filled memory image of size bytes.
func New(size int) (mem *Bus) {
	mem = &Bus{
		Memory: make([]byte, size),
	}

	return
}

// Size returns the number of addressable bytes.
func (mem *Bus) Size() int {
	return len(mem.Memory)
}

// Reset zero fills the memory image.
func (mem *Bus) Reset() {
	clear(mem.Memory)
}

// index validates a width byte access at base+offset, and returns the
// index of its first byte.
func (mem *Bus) index(base, offset uint32, width int) (index int, err error) {
	addr := uint64(base) + uint64(offset)
	if addr+uint64(width) > uint64(len(mem.Memory)) {
		err = ErrRange{Address: addr, Width: width, Size: len(mem.Memory)}
		return
	}

	index = int(addr)
	return
}

// ReadU8 reads the byte at base+offset.
func (mem *Bus) ReadU8(base, offset uint32) (value uint8, err error) {
	n, err := mem.index(base, offset, 1)
	if err != nil {
		return
	}

	value = mem.Memory[n]
	return
}

// ReadI8 reads the byte at base+offset as a two's complement value.
func (mem *Bus) ReadI8(base, offset uint32) (value int8, err error) {
	u8, err := mem.ReadU8(base, offset)
	value = int8(u8)
	return
}

// ReadU32 reads the little-endian word at base+offset.
func (mem *Bus) ReadU32(base, offset uint32) (value uint32, err error) {
	n, err := mem.index(base, offset, 4)
	if err != nil {
		return
	}

	value = uint32(mem.Memory[n+0]) |
		(uint32(mem.Memory[n+1]) << 8) |
		(uint32(mem.Memory[n+2]) << 16) |
		(uint32(mem.Memory[n+3]) << 24)
	return
}

// ReadI32 reads the little-endian word at base+offset as a two's
// complement value.
func (mem *Bus) ReadI32(base, offset uint32) (value int32, err error) {
	u32, err := mem.ReadU32(base, offset)
	value = int32(u32)
	return
}

// WriteU8 stores a byte at an absolute address.
func (mem *Bus) WriteU8(address uint32, value uint8) (err error) {
	n, err := mem.index(address, 0, 1)
	if err != nil {
		return
	}

	mem.Memory[n] = value
	return
}

// WriteU32 stores a little-endian word at an absolute address.
//
// The range of the whole word is checked first, so a failed write leaves
// memory untouched.
func (mem *Bus) WriteU32(address uint32, value uint32) (err error) {
	_, err = mem.index(address, 0, 4)
	if err != nil {
		return
	}

	for n := range uint32(4) {
		err = mem.WriteU8(address+n, uint8(value>>(n*8)))
		if err != nil {
			return
		}
	}

	return
}

// Slice returns up to count bytes of memory starting at address, clipped
// to the end of the image. The result aliases the image.
func (mem *Bus) Slice(address uint32, count int) (data []byte) {
	if uint64(address) >= uint64(len(mem.Memory)) {
		return
	}

	end := min(int(address)+count, len(mem.Memory))
	data = mem.Memory[address:end]
	return
}

// Load copies a raw image into memory at offset.
//
// A short image leaves the remainder of memory as it was. An image that
// does not fit fails with ErrImageTooLarge after filling all available
// space.
func (mem *Bus) Load(image io.Reader, offset uint32) (count int, err error) {
	if uint64(offset) > uint64(len(mem.Memory)) {
		err = ErrRange{Address: uint64(offset), Width: 0, Size: len(mem.Memory)}
		return
	}

	count, err = io.ReadFull(image, mem.Memory[offset:])
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		err = nil
		return
	case err != nil:
		return
	}

	// Memory is full; anything left over does not fit.
	var extra [1]byte
	n, _ := image.Read(extra[:])
	if n != 0 {
		err = ErrImageTooLarge
	}

	return
}

package bus

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus(t *testing.T) {
	assert := assert.New(t)

	mem := New(MEMORY_SIZE)
	assert.Equal(MEMORY_SIZE, mem.Size())
	assert.Equal(make([]byte, MEMORY_SIZE), mem.Memory)
}

func TestBusReadU32(t *testing.T) {
	assert := assert.New(t)

	mem := New(16)
	copy(mem.Memory[4:], []byte{0x78, 0x56, 0x34, 0x12})

	value, err := mem.ReadU32(4, 0)
	assert.NoError(err)
	assert.Equal(uint32(0x12345678), value)

	value, err = mem.ReadU32(2, 2)
	assert.NoError(err)
	assert.Equal(uint32(0x12345678), value)

	signed, err := mem.ReadI32(4, 0)
	assert.NoError(err)
	assert.Equal(int32(0x12345678), signed)
}

func TestBusReadSigned(t *testing.T) {
	assert := assert.New(t)

	mem := New(8)
	copy(mem.Memory, []byte{0xfe, 0x7f, 0x80, 0xff, 0xff, 0xff, 0xff})

	table := []struct {
		offset uint32
		value  int8
	}{
		{0, -2},
		{1, 127},
		{2, -128},
		{3, -1},
	}

	for _, entry := range table {
		value, err := mem.ReadI8(0, entry.offset)
		assert.NoError(err)
		assert.Equal(entry.value, value, entry.offset)
	}

	value, err := mem.ReadI32(3, 0)
	assert.NoError(err)
	assert.Equal(int32(-1), value)

	u32, err := mem.ReadU32(0, 0)
	assert.NoError(err)
	assert.Equal(uint32(0xff807ffe), u32)
}

func TestBusWrite(t *testing.T) {
	assert := assert.New(t)

	mem := New(8)

	assert.NoError(mem.WriteU32(2, 0xcafef00d))
	assert.Equal([]byte{0, 0, 0x0d, 0xf0, 0xfe, 0xca, 0, 0}, mem.Memory)

	assert.NoError(mem.WriteU8(7, 0xa5))
	value, err := mem.ReadU8(7, 0)
	assert.NoError(err)
	assert.Equal(uint8(0xa5), value)

	mem.Reset()
	assert.Equal(make([]byte, 8), mem.Memory)
}

func TestBusRange(t *testing.T) {
	assert := assert.New(t)

	mem := New(8)

	_, err := mem.ReadU8(8, 0)
	assert.ErrorIs(err, ErrOutOfRange)

	_, err = mem.ReadU8(4, 4)
	assert.ErrorIs(err, ErrOutOfRange)

	_, err = mem.ReadU32(5, 0)
	assert.ErrorIs(err, ErrOutOfRange)

	var rerr ErrRange
	assert.True(errors.As(err, &rerr))
	assert.Equal(uint64(5), rerr.Address)
	assert.Equal(4, rerr.Width)
	assert.Equal(8, rerr.Size)

	// base+offset must not wrap around the 32-bit address space.
	_, err = mem.ReadU8(0xffffffff, 2)
	assert.ErrorIs(err, ErrOutOfRange)

	_, err = mem.ReadI8(0, 100)
	assert.ErrorIs(err, ErrOutOfRange)

	_, err = mem.ReadI32(6, 0)
	assert.ErrorIs(err, ErrOutOfRange)

	assert.ErrorIs(mem.WriteU8(8, 0), ErrOutOfRange)

	// Partial writes do not happen.
	assert.ErrorIs(mem.WriteU32(6, 0xffffffff), ErrOutOfRange)
	assert.Equal(make([]byte, 8), mem.Memory)
}

func TestBusSlice(t *testing.T) {
	assert := assert.New(t)

	mem := New(8)
	copy(mem.Memory, []byte{0, 1, 2, 3, 4, 5, 6, 7})

	assert.Equal([]byte{2, 3, 4}, mem.Slice(2, 3))
	assert.Equal([]byte{6, 7}, mem.Slice(6, 15))
	assert.Empty(mem.Slice(8, 1))
	assert.Empty(mem.Slice(0xffffffff, 1))
}

func TestBusLoad(t *testing.T) {
	assert := assert.New(t)

	mem := New(8)

	count, err := mem.Load(bytes.NewReader([]byte{0xb8, 0x01}), 4)
	assert.NoError(err)
	assert.Equal(2, count)
	assert.Equal([]byte{0, 0, 0, 0, 0xb8, 0x01, 0, 0}, mem.Memory)

	mem.Reset()
	count, err = mem.Load(bytes.NewReader([]byte{1, 2, 3, 4}), 4)
	assert.NoError(err)
	assert.Equal(4, count)
	assert.Equal([]byte{0, 0, 0, 0, 1, 2, 3, 4}, mem.Memory)

	mem.Reset()
	count, err = mem.Load(bytes.NewReader([]byte{1, 2, 3, 4, 5}), 4)
	assert.ErrorIs(err, ErrImageTooLarge)
	assert.Equal(4, count)

	_, err = mem.Load(bytes.NewReader(nil), 9)
	assert.ErrorIs(err, ErrOutOfRange)

	count, err = mem.Load(bytes.NewReader(nil), 8)
	assert.NoError(err)
	assert.Equal(0, count)
}

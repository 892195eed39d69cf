package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Origin: 0x100,
		Opcodes: []Opcode{
			{LineNo: 1, Ip: 0x100, Words: []string{"mov", "eax", "1"},
				Bytes: []byte{0xB8, 1, 0, 0, 0}},
			{LineNo: 2, Ip: 0x105, Words: []string{"jmp", "short", "0x105"},
				Bytes: []byte{0xEB, 0xFE}},
			{LineNo: 4, Ip: 0x107, Words: []string{"db", "0xff"},
				Bytes: []byte{0xFF}},
		},
	}

	dbg := prog.Debug(0x100)
	assert.NotNil(dbg.Opcode)
	assert.Equal(1, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(0x103)
	assert.NotNil(dbg.Opcode)
	assert.Equal(1, dbg.Opcode.LineNo)
	assert.Equal(3, dbg.Index)

	dbg = prog.Debug(0x106)
	assert.NotNil(dbg.Opcode)
	assert.Equal(2, dbg.Opcode.LineNo)
	assert.Equal(1, dbg.Index)

	dbg = prog.Debug(0x107)
	assert.NotNil(dbg.Opcode)
	assert.Equal(4, dbg.Opcode.LineNo)
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Ip: 0x10, Bytes: []byte{0xEB, 0xFE}},
		},
	}

	assert.Nil(prog.Debug(0x0f).Opcode)
	assert.Nil(prog.Debug(0x12).Opcode)
	assert.Nil((&Program{}).Debug(0).Opcode)
}

func TestProgram_Binary(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, []string{
		".org 0x7c00",
		"mov eax 1",
		"exit",
	})

	assert.Equal([]byte{0xB8, 1, 0, 0, 0, 0xE9, 0xF6, 0x83, 0xFF, 0xFF}, prog.Binary())
	assert.Nil((&Program{}).Binary())

	var ips []uint32
	var lens []int
	for ip, code := range prog.Instructions() {
		ips = append(ips, ip)
		lens = append(lens, len(code))
	}
	assert.Equal([]uint32{0x7c00, 0x7c05}, ips)
	assert.Equal([]int{5, 5}, lens)

	for ip := range prog.Instructions() {
		assert.Equal(uint32(0x7c00), ip)
		break
	}
}

func TestProgram_Listing(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Origin: 0x10,
		Opcodes: []Opcode{
			{LineNo: 1, Ip: 0x10, Words: []string{"db", "0xb8"}, Bytes: []byte{0xB8}},
			{LineNo: 2, Ip: 0x11, Words: []string{"mov", "eax", "1"},
				Bytes: []byte{0xB8, 1, 0, 0, 0}},
		},
	}

	// Disassembled as one image, the data byte swallows the mov.
	merged := strings.Split(strings.TrimSpace(Disassemble(prog.Binary(), 0x10)), "\n")
	assert.Contains(merged[0], "mov eax, 0x1b8")

	lines := strings.Split(strings.TrimSpace(prog.Listing()), "\n")
	if assert.Equal(2, len(lines)) {
		assert.Equal([]string{"00000010:", "b8", "db", "0xb8"}, strings.Fields(lines[0]))
		assert.Equal([]string{"00000011:", "b8", "01", "00", "00", "00", "mov", "eax,", "0x1"}, strings.Fields(lines[1]))
	}

	assert.Equal("", (&Program{}).Listing())
}

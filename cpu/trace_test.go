package cpu

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/arch/x86/x86asm"
)

func TestDisassemble(t *testing.T) {
	assert := assert.New(t)

	code := []byte{
		0xB8, 0x01, 0x00, 0x00, 0x00,
		0xC7, 0x43, 0x04, 0xFE, 0xCA, 0x00, 0x00,
		0xEB, 0xFE,
	}

	cpu := newTestCpu(t, 0x100, 0x10, code)

	text, length, err := cpu.Disassemble(0x10)
	assert.NoError(err)
	assert.Equal(5, length)
	assert.Equal("mov eax, 0x1", text)

	_, length, err = cpu.Disassemble(0x15)
	assert.NoError(err)
	assert.Equal(7, length)

	text, length, err = cpu.Disassemble(0x1c)
	assert.NoError(err)
	assert.Equal(2, length)
	assert.Contains(text, "jmp")
}

func TestDisassemble_Truncated(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 2, 0, []byte{0xB8, 0x01})

	text, length, err := cpu.Disassemble(0)
	assert.ErrorIs(err, x86asm.ErrTruncated)
	assert.Equal("", text)
	assert.Equal(0, length)

	_, _, err = cpu.Disassemble(2)
	assert.Error(err)
}

func TestDisassembleListing(t *testing.T) {
	assert := assert.New(t)

	listing := Disassemble([]byte{0xB8, 0x01, 0x00, 0x00, 0x00, 0xEB, 0xFE}, 0x7c00)

	lines := bytes.Split(bytes.TrimSpace([]byte(listing)), []byte("\n"))
	if assert.Equal(2, len(lines)) {
		assert.True(bytes.HasPrefix(lines[0], []byte("00007C00: b8 01 00 00 00   mov eax, 0x1")))
		assert.True(bytes.HasPrefix(lines[1], []byte("00007C05: eb fe")))
	}

	// A truncated instruction is listed as data.
	listing = Disassemble([]byte{0xB8, 0x01}, 0)
	assert.Equal("00000000: b8               db 0xb8\n00000001: 01               db 0x01\n", listing)
}

func TestTrace(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	}()

	cpu := newTestCpu(t, 5, 0, []byte{0xB8, 0x01, 0x00, 0x00, 0x00})
	cpu.Verbose = true
	assert.NoError(cpu.Run())

	out := buf.String()
	assert.Contains(out, "cpu: 00000000: b8 01 00 00 00   mov eax, 0x1")
	assert.Contains(out, "cpu: halt at 00000005")
}

package emulator

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/ux86/cpu"
)

func newMonitor(t *testing.T, program ...string) (mon *Monitor, out *bytes.Buffer) {
	emu := newEmulator(t)

	_, err := emu.Assemble(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	out = &bytes.Buffer{}
	mon = &Monitor{Emulator: emu, Output: out}
	return
}

func TestMonitorStep(t *testing.T) {
	assert := assert.New(t)

	mon, out := newMonitor(t, "mov eax 1", "mov ebx 2", "exit")

	quit, err := mon.Execute("where")
	assert.NoError(err)
	assert.False(quit)
	assert.Equal("00007C00: mov eax, 0x1 (line 1)\n", out.String())

	out.Reset()
	_, err = mon.Execute("step")
	assert.NoError(err)
	assert.Equal("00007C05: mov ebx, 0x2 (line 2)\n", out.String())
	assert.Equal(uint32(1), mon.Emulator.Cpu.Register[cpu.EAX])

	// Stepping stops at the halt.
	out.Reset()
	_, err = mon.Execute("s 5")
	assert.NoError(err)
	assert.Equal("halted at 00000000\n", out.String())
	assert.Equal(uint32(2), mon.Emulator.Cpu.Register[cpu.EBX])
	assert.Equal(3, mon.Emulator.Cpu.Ticks)
}

func TestMonitorRunReset(t *testing.T) {
	assert := assert.New(t)

	mon, out := newMonitor(t, "mov eax 1", "exit")

	_, err := mon.Execute("run")
	assert.NoError(err)
	assert.Equal("halted at 00000000\n", out.String())

	out.Reset()
	_, err = mon.Execute("reset")
	assert.NoError(err)
	assert.Equal("00007C00: mov eax, 0x1 (line 1)\n", out.String())
	assert.Equal(uint32(0), mon.Emulator.Cpu.Register[cpu.EAX])
	assert.False(mon.Emulator.Cpu.Halted())
}

func TestMonitorInspect(t *testing.T) {
	assert := assert.New(t)

	mon, out := newMonitor(t, "mov eax 1", "mov ebx 2", "exit")

	_, err := mon.Execute("step")
	assert.NoError(err)

	out.Reset()
	_, err = mon.Execute("regs")
	assert.NoError(err)
	assert.Contains(out.String(), "EAX = 00000001\n")
	assert.Contains(out.String(), "EIP = 00007C05\n")

	out.Reset()
	_, err = mon.Execute("mem 0x7c00 4")
	assert.NoError(err)
	assert.Equal("00007C00: b8 01 00 00\n", out.String())

	out.Reset()
	_, err = mon.Execute("m 0x7c00 20")
	assert.NoError(err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if assert.Equal(2, len(lines)) {
		assert.Equal("00007C10: 00 00 00 00", lines[1])
	}

	out.Reset()
	_, err = mon.Execute("disasm 0x7c00 2")
	assert.NoError(err)
	assert.Equal("00007C00: mov eax, 0x1\n00007C05: mov ebx, 0x2\n", out.String())

	// Disassembly defaults to EIP.
	out.Reset()
	_, err = mon.Execute("d")
	assert.NoError(err)
	lines = strings.Split(strings.TrimSpace(out.String()), "\n")
	if assert.Equal(MONITOR_DISASM_COUNT, len(lines)) {
		assert.Equal("00007C05: mov ebx, 0x2", lines[0])
	}

	// Listing stops at the end of memory.
	out.Reset()
	size := uint32(mon.Emulator.Cpu.Bus.Size())
	_, err = mon.Execute(fmt.Sprintf("disasm %#x", size))
	assert.NoError(err)
	assert.Equal("", out.String())
}

func TestMonitorErrors(t *testing.T) {
	assert := assert.New(t)

	mon, _ := newMonitor(t, "mov eax 1", "db 0xff")

	quit, err := mon.Execute("")
	assert.NoError(err)
	assert.False(quit)

	_, err = mon.Execute("bogus")
	var unknown ErrMonitorCommand
	if assert.True(errors.As(err, &unknown)) {
		assert.Equal("bogus", string(unknown))
	}

	for _, line := range []string{
		"step x",
		"step 1 2",
		"mem",
		"regs 1",
		"run 1",
		"disasm 1 2 3",
		"reset 0",
		"where 0",
		"mem 0x100000000",
	} {
		_, err = mon.Execute(line)
		assert.ErrorIs(err, ErrMonitorArgument, line)
	}

	_, err = mon.Execute("step 2")
	assert.ErrorIs(err, cpu.ErrNotImplemented)
	var runtime *ErrRuntime
	if assert.True(errors.As(err, &runtime)) {
		assert.Equal(2, runtime.LineNo)
	}

	quit, err = mon.Execute("quit")
	assert.NoError(err)
	assert.True(quit)
}

func TestMonitorTruncated(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.MemorySize = LOAD_OFFSET + 2

	emu, err := NewEmulator(cfg)
	assert.NoError(err)

	_, err = emu.Load(bytes.NewReader([]byte{0xB8, 0x01}))
	assert.NoError(err)

	out := &bytes.Buffer{}
	mon := &Monitor{Emulator: emu, Output: out}

	_, err = mon.Execute("disasm")
	assert.NoError(err)
	assert.Equal("00007C00: db 0xb8\n00007C01: db 0x01\n", out.String())

	out.Reset()
	_, err = mon.Execute("where")
	assert.NoError(err)
	assert.Equal("00007C00: truncated instruction\n", out.String())
}

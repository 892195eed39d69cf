package cpu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/ux86/bus"
	"github.com/ezrec/ux86/modrm"
)

func FuzzCpu(f *testing.F) {
	f.Add([]byte{0xB8, 0x01, 0x00, 0x00, 0x00}, uint32(0), false)
	f.Add([]byte{0xEB, 0xFE}, uint32(0x40), false)
	f.Add([]byte{0xE9, 0xEB, 0xFF, 0xFF, 0xFF}, uint32(0), true)
	f.Add([]byte{0xC7, 0x45, 0x10, 0x01, 0x02, 0x03, 0x04}, uint32(0x20), false)
	f.Add([]byte{0xC7, 0x04, 0x24, 0x01, 0x02, 0x03, 0x04}, uint32(0x20), true)
	f.Add([]byte{0xFF}, uint32(0xdeadbeef), false)

	f.Fuzz(func(t *testing.T, code []byte, base uint32, legacy bool) {
		assert := assert.New(t)

		const size = 0x100
		const entry = 0x10

		if len(code) > size-entry {
			code = code[:size-entry]
		}

		mem := bus.New(size)
		_, err := mem.Load(bytes.NewReader(code), entry)
		if !assert.NoError(err) {
			return
		}

		cpu := NewCpu(mem, entry, size)
		if legacy {
			cpu.Compat = modrm.COMPAT_LEGACY
		}
		for reg := EAX; reg <= EDI; reg++ {
			cpu.Register[reg] = base + uint32(reg)*4
		}

		ip := cpu.Ip
		var tickErr error
		for steps := 0; steps < 64 && !cpu.Halted(); steps++ {
			ip = cpu.Ip
			tickErr = cpu.Tick()
			if tickErr != nil {
				break
			}
			if !cpu.Halted() {
				assert.Less(int(cpu.Ip), size)
			}
		}

		if tickErr == nil {
			return
		}

		var opErr *ErrOpcode
		if assert.True(errors.As(tickErr, &opErr), tickErr.Error()) {
			assert.Equal(ip, opErr.Ip)
			assert.Equal(ip, cpu.Ip)
		}
		assert.False(cpu.Halted())

		switch {
		case errors.Is(tickErr, ErrNotImplemented):
		case errors.Is(tickErr, ErrJumpRange):
		case errors.Is(tickErr, bus.ErrOutOfRange):
		default:
			assert.NoError(tickErr)
		}
	})
}

package emulator

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ezrec/ux86/cpu"
	"github.com/ezrec/ux86/translate"
)

const (
	MONITOR_DISASM_COUNT = 8  // Default instructions listed by 'disasm'.
	MONITOR_MEM_COUNT    = 64 // Default bytes shown by 'mem'.
	MONITOR_MEM_ROW      = 16 // Bytes per 'mem' row.
)

// Monitor is a line oriented debugger for an emulator.
//
//	step [N]              execute N instructions (default 1)
//	run                   execute until halt or the step limit
//	regs                  show the register file
//	mem ADDR [N]          show N bytes of memory
//	disasm [ADDR] [N]     list N instructions (default at EIP)
//	where                 show the next instruction
//	reset                 return to the configured entry state
//	quit                  leave the monitor
type Monitor struct {
	Emulator *Emulator
	Output   io.Writer
}

type monitorCommand func(mon *Monitor, args []uint32) (quit bool, err error)

var monitorCommands = map[string]monitorCommand{
	"step":   (*Monitor).step,
	"s":      (*Monitor).step,
	"run":    (*Monitor).run,
	"c":      (*Monitor).run,
	"regs":   (*Monitor).regs,
	"r":      (*Monitor).regs,
	"mem":    (*Monitor).mem,
	"m":      (*Monitor).mem,
	"disasm": (*Monitor).disasm,
	"d":      (*Monitor).disasm,
	"where":  (*Monitor).whereCommand,
	"w":      (*Monitor).whereCommand,
	"reset":  (*Monitor).reset,
	"quit":   (*Monitor).quit,
	"q":      (*Monitor).quit,
}

// Execute runs one monitor command line. Empty lines do nothing.
func (mon *Monitor) Execute(line string) (quit bool, err error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}

	command, ok := monitorCommands[words[0]]
	if !ok {
		err = ErrMonitorCommand(words[0])
		return
	}

	args := make([]uint32, len(words)-1)
	for n, word := range words[1:] {
		var value uint64
		value, err = strconv.ParseUint(word, 0, 32)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrMonitorArgument, word)
			return
		}
		args[n] = uint32(value)
	}

	return command(mon, args)
}

// where prints the location of the next instruction.
func (mon *Monitor) where() (err error) {
	emu := mon.Emulator
	if emu.Cpu.Halted() {
		_, err = translate.To(mon.Output, "halted at %08X\n", emu.Cpu.Ip)
		return
	}

	text, _, disErr := emu.Cpu.Disassemble(emu.Cpu.Ip)
	if disErr != nil {
		text = disErr.Error()
	}

	if lineno := emu.LineNo(); lineno != 0 {
		_, err = translate.To(mon.Output, "%08X: %v (line %d)\n", emu.Cpu.Ip, text, lineno)
	} else {
		_, err = translate.To(mon.Output, "%08X: %v\n", emu.Cpu.Ip, text)
	}
	return
}

func (mon *Monitor) whereCommand(args []uint32) (quit bool, err error) {
	if len(args) != 0 {
		err = ErrMonitorArgument
		return
	}

	err = mon.where()
	return
}

func (mon *Monitor) step(args []uint32) (quit bool, err error) {
	count := uint32(1)
	if len(args) > 0 {
		count = args[0]
	}
	if len(args) > 1 {
		err = ErrMonitorArgument
		return
	}

	for range count {
		var done bool
		done, err = mon.Emulator.Tick()
		if err != nil || done {
			break
		}
	}
	if err != nil {
		return
	}

	err = mon.where()
	return
}

func (mon *Monitor) run(args []uint32) (quit bool, err error) {
	if len(args) != 0 {
		err = ErrMonitorArgument
		return
	}

	err = mon.Emulator.Run()
	if err != nil {
		return
	}

	err = mon.where()
	return
}

func (mon *Monitor) regs(args []uint32) (quit bool, err error) {
	if len(args) != 0 {
		err = ErrMonitorArgument
		return
	}

	err = mon.Emulator.Dump(mon.Output)
	return
}

func (mon *Monitor) mem(args []uint32) (quit bool, err error) {
	if len(args) < 1 || len(args) > 2 {
		err = ErrMonitorArgument
		return
	}

	addr := args[0]
	count := MONITOR_MEM_COUNT
	if len(args) > 1 {
		count = int(args[1])
	}

	data := mon.Emulator.Cpu.Bus.Slice(addr, count)
	for offset := 0; offset < len(data); offset += MONITOR_MEM_ROW {
		row := data[offset:min(offset+MONITOR_MEM_ROW, len(data))]
		words := make([]string, len(row))
		for n, b := range row {
			words[n] = fmt.Sprintf("%02x", b)
		}
		_, err = translate.To(mon.Output, "%08X: %v\n", addr+uint32(offset), strings.Join(words, " "))
		if err != nil {
			return
		}
	}

	return
}

func (mon *Monitor) disasm(args []uint32) (quit bool, err error) {
	if len(args) > 2 {
		err = ErrMonitorArgument
		return
	}

	ip := mon.Emulator.Cpu.Ip
	if len(args) > 0 {
		ip = args[0]
	}
	count := uint32(MONITOR_DISASM_COUNT)
	if len(args) > 1 {
		count = args[1]
	}

	for range count {
		code := mon.Emulator.Cpu.Bus.Slice(ip, cpu.MAX_INSTRUCTION_LEN)
		if len(code) == 0 {
			break
		}

		text, length, disErr := mon.Emulator.Cpu.Disassemble(ip)
		if disErr != nil {
			text = fmt.Sprintf("db 0x%02x", code[0])
			length = 1
		}

		_, err = translate.To(mon.Output, "%08X: %v\n", ip, text)
		if err != nil {
			return
		}
		ip += uint32(length)
	}

	return
}

func (mon *Monitor) reset(args []uint32) (quit bool, err error) {
	if len(args) != 0 {
		err = ErrMonitorArgument
		return
	}

	mon.Emulator.Reset()
	err = mon.where()
	return
}

func (mon *Monitor) quit(args []uint32) (quit bool, err error) {
	quit = true
	return
}

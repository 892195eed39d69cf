// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/ux86/bus"
	"github.com/ezrec/ux86/cpu"
	"github.com/ezrec/ux86/internal"
	"github.com/ezrec/ux86/translate"
)

// Emulator state. CPU + memory + the listing of the loaded program.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Listing of the loaded program, if assembled.
	Config   Config       // Machine configuration.
}

// NewEmulator creates a new emulator.
func NewEmulator(cfg Config) (emu *Emulator, err error) {
	err = cfg.Validate()
	if err != nil {
		return
	}

	emu = &Emulator{
		Verbose: cfg.Verbose,
		Cpu:     cpu.NewCpu(bus.New(cfg.MemorySize), cfg.Entry, cfg.Stack),
		Program: &cpu.Program{},
		Config:  cfg,
	}
	emu.Cpu.Compat = cfg.Compat

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	defines := map[string]string{
		"MEMORY_SIZE": fmt.Sprintf("%#x", emu.Config.MemorySize),
		"LOAD_OFFSET": fmt.Sprintf("%#x", emu.Config.LoadOffset),
		"STACK":       fmt.Sprintf("%#x", emu.Config.Stack),
	}

	return internal.Concat2(maps.All(defines), emu.Cpu.Defines())
}

// Reset the machine to the configured entry state. Memory is kept.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset(emu.Config.Entry, emu.Config.Stack)
}

// Load clears memory and loads a raw image at the configured load offset.
// The machine is reset even if the image does not fit.
func (emu *Emulator) Load(image io.Reader) (count int, err error) {
	emu.Cpu.Bus.Reset()
	emu.Program = &cpu.Program{}

	count, err = emu.Cpu.Bus.Load(image, emu.Config.LoadOffset)
	emu.Reset()
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: loaded %d bytes at %08X", count, emu.Config.LoadOffset)
	}

	return
}

// LoadProgram clears memory and loads an assembled program at its origin.
func (emu *Emulator) LoadProgram(prog *cpu.Program) (err error) {
	emu.Cpu.Bus.Reset()
	emu.Program = &cpu.Program{}

	origin := uint32(prog.Origin)
	count, err := emu.Cpu.Bus.Load(bytes.NewReader(prog.Binary()), origin)
	emu.Reset()
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: loaded %d bytes at %08X", count, origin)
	}

	emu.Program = prog

	return
}

// Assemble parses source text, with the emulator's defines predefined,
// and loads the program. Code without an .org starts at the load offset.
func (emu *Emulator) Assemble(source io.Reader) (prog *cpu.Program, err error) {
	asm := &cpu.Assembler{
		Verbose: emu.Verbose,
		Origin:  int(emu.Config.LoadOffset),
	}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err = asm.Parse(source)
	if err != nil {
		return
	}

	err = emu.LoadProgram(prog)
	return
}

// LineNo returns the current line number for the executing opcode, or 0
// if the program has no listing for it.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Ip)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	ip := emu.Cpu.Ip
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Ip: ip, LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrHalted) {
		err = nil
		done = true
		return
	}
	if err != nil {
		return
	}

	done = emu.Cpu.Halted()
	return
}

// Run executes until the machine halts, or the configured step limit is
// reached.
func (emu *Emulator) Run() (err error) {
	for steps := 0; ; steps++ {
		if emu.Config.StepLimit > 0 && steps == emu.Config.StepLimit {
			err = &ErrRuntime{Ip: emu.Cpu.Ip, LineNo: emu.LineNo(), Err: cpu.ErrStepLimit}
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}

// Dump writes the register file and instruction pointer, one per line.
func (emu *Emulator) Dump(w io.Writer) (err error) {
	for reg := cpu.EAX; reg <= cpu.EDI; reg++ {
		_, err = translate.To(w, "%v = %08X\n", reg, emu.Cpu.Register[reg])
		if err != nil {
			return
		}
	}

	_, err = translate.To(w, "EIP = %08X\n", emu.Cpu.Ip)
	return
}

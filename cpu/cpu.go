package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/ux86/bus"
	"github.com/ezrec/ux86/modrm"
)

// HALT_IP is the instruction pointer value that ends a run.
const HALT_IP = uint32(0)

// State is the execution state of the CPU.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING = State(0) // running
	STATE_HALTED  = State(1) // halted
)

var _cpu_defines = map[string]string{
	"HALT_IP": fmt.Sprintf("%#x", HALT_IP),
	"REG_EAX": fmt.Sprintf("%d", EAX),
	"REG_ECX": fmt.Sprintf("%d", ECX),
	"REG_EDX": fmt.Sprintf("%d", EDX),
	"REG_EBX": fmt.Sprintf("%d", EBX),
	"REG_ESP": fmt.Sprintf("%d", ESP),
	"REG_EBP": fmt.Sprintf("%d", EBP),
	"REG_ESI": fmt.Sprintf("%d", ESI),
	"REG_EDI": fmt.Sprintf("%d", EDI),
}

// Cpu is the simulation context for a 32-bit x86 style processor.
type Cpu struct {
	Verbose bool         // Set to enable verbose logging.
	Compat  modrm.Compat // ModRM displacement compatibility.

	Bus *bus.Bus // Memory, exclusively owned by the CPU.

	Ip       uint32                 // Current instruction pointer.
	Register [REGISTER_COUNT]uint32 // Register bank, indexed by Reg.
	Flags    uint32                 // Flags. No instruction defines a bit yet.
	State    State                  // Execution state.

	Ticks int // Instructions retired since reset.

	opcodes Opcodes // Opcode dispatch table.
}

// NewCpu creates a CPU on a memory bus, running from entry with ESP set
// to esp, using the default instruction set.
func NewCpu(mem *bus.Bus, entry, esp uint32) (cpu *Cpu) {
	cpu = &Cpu{
		Bus: mem,
	}

	for _, inst := range Instructions() {
		err := cpu.opcodes.Install(inst)
		if err != nil {
			panic(err)
		}
	}

	cpu.Reset(entry, esp)

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Install adds an instruction to this CPU's opcode table.
func (cpu *Cpu) Install(inst Instruction) (err error) {
	return cpu.opcodes.Install(inst)
}

// Instruction returns the installed instruction for an opcode, or nil.
func (cpu *Cpu) Instruction(opcode uint8) *Instruction {
	return cpu.opcodes.Lookup(opcode)
}

// Reset the CPU state.
// - Clears the registers and flags.
// - Sets ESP to esp.
// - Sets the instruction pointer to entry.
// - Zeros the tick counter.
func (cpu *Cpu) Reset(entry, esp uint32) {
	if cpu.Verbose {
		cpu.logf("reset, entry %08X, esp %08X", entry, esp)
	}

	clear(cpu.Register[:])
	cpu.Register[ESP] = esp
	cpu.Flags = 0
	cpu.Ip = entry
	cpu.State = STATE_RUNNING
	cpu.Ticks = 0
}

// Halted returns true once the CPU has stopped.
func (cpu *Cpu) Halted() bool {
	return cpu.State == STATE_HALTED
}

// inMemory returns true if ip addresses a byte of memory.
func (cpu *Cpu) inMemory(ip uint32) bool {
	return uint64(ip) < uint64(cpu.Bus.Size())
}

// halt stops the CPU.
func (cpu *Cpu) halt(why string) {
	cpu.State = STATE_HALTED
	if cpu.Verbose {
		cpu.logf("halt at %08X: %v", cpu.Ip, why)
	}
}

// Tick executes a single instruction.
//
// On error no instruction pointer change is committed, and the CPU
// remains running at the failed instruction.
func (cpu *Cpu) Tick() (err error) {
	if cpu.State == STATE_HALTED {
		err = ErrHalted
		return
	}

	if !cpu.inMemory(cpu.Ip) {
		cpu.halt("outside memory")
		return
	}

	ip := cpu.Ip
	opcode, err := cpu.Bus.ReadU8(ip, 0)
	if err != nil {
		return
	}

	inst := cpu.opcodes.Lookup(opcode)
	if inst == nil {
		err = &ErrOpcode{Ip: ip, Opcode: opcode, Err: ErrNotImplemented}
		return
	}

	if cpu.Verbose {
		cpu.trace(ip)
	}

	next, err := inst.Exec(cpu, opcode)
	if err != nil {
		err = &ErrOpcode{Ip: ip, Opcode: opcode, Err: err}
		return
	}

	cpu.Ip = next
	cpu.Ticks++

	switch {
	case cpu.Ip == HALT_IP:
		cpu.halt("returned to zero")
	case !cpu.inMemory(cpu.Ip):
		cpu.halt("outside memory")
	}

	return
}

// Run executes instructions until the CPU halts.
func (cpu *Cpu) Run() (err error) {
	return cpu.RunLimit(0)
}

// RunLimit executes at most limit instructions, or without bound if limit
// is zero, until the CPU halts. It returns ErrStepLimit if the CPU is still
// running when the limit is reached.
func (cpu *Cpu) RunLimit(limit int) (err error) {
	for steps := 0; !cpu.Halted(); steps++ {
		if limit > 0 && steps == limit {
			err = ErrStepLimit
			return
		}

		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// String returns the register state as a string.
func (cpu *Cpu) String() (text string) {
	for reg := EAX; reg <= EDI; reg++ {
		text += fmt.Sprintf("%v = %08X\n", reg, cpu.Register[reg])
	}
	text += fmt.Sprintf("EIP = %08X\n", cpu.Ip)

	return
}

func (cpu *Cpu) logf(format string, args ...any) {
	log.Printf("cpu: "+format, args...)
}

package emulator

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/ux86/bus"
	"github.com/ezrec/ux86/modrm"
)

const (
	LOAD_OFFSET     = 0x7c00  // Default image load address, and entry point.
	MAX_MEMORY_SIZE = 1 << 30 // Largest supported memory.
)

// Config is the initial state of an emulated machine.
type Config struct {
	MemorySize int          `toml:"memory_size"` // Bytes of memory.
	LoadOffset uint32       `toml:"load_offset"` // Address the image is loaded at.
	Entry      uint32       `toml:"entry"`       // Initial EIP.
	Stack      uint32       `toml:"stack"`       // Initial ESP.
	StepLimit  int          `toml:"step_limit"`  // Instructions per run, or 0 for no limit.
	Compat     modrm.Compat `toml:"compat"`      // ModRM displacement compatibility.
	Verbose    bool         `toml:"verbose"`     // Trace execution.
}

// DefaultConfig returns the configuration of a classic boot sector machine.
func DefaultConfig() Config {
	return Config{
		MemorySize: bus.MEMORY_SIZE,
		LoadOffset: LOAD_OFFSET,
		Entry:      LOAD_OFFSET,
		Stack:      LOAD_OFFSET,
		Compat:     modrm.COMPAT_STANDARD,
	}
}

// LoadConfig reads a TOML configuration file over the defaults.
func LoadConfig(path string) (cfg Config, err error) {
	cfg = DefaultConfig()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		err = errors.Join(ErrConfig, err)
		return
	}

	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		err = fmt.Errorf("%w: %w: %v", ErrConfig, ErrConfigKey, undecoded[0])
		return
	}

	err = cfg.Validate()
	return
}

// Validate checks that the configuration describes a machine that can run.
func (cfg Config) Validate() (err error) {
	switch {
	case cfg.MemorySize <= 0 || cfg.MemorySize > MAX_MEMORY_SIZE:
		err = fmt.Errorf("%w: %w: %d", ErrConfig, ErrConfigMemorySize, cfg.MemorySize)
	case uint64(cfg.LoadOffset) >= uint64(cfg.MemorySize):
		err = fmt.Errorf("%w: %w: 0x%X", ErrConfig, ErrConfigLoadOffset, cfg.LoadOffset)
	case cfg.StepLimit < 0:
		err = fmt.Errorf("%w: %w: %d", ErrConfig, ErrConfigStepLimit, cfg.StepLimit)
	}

	return
}

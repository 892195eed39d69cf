// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ezrec/ux86/cpu"
	"github.com/ezrec/ux86/emulator"
)

// open returns a reader for a path, where "-" is stdin.
func open(path string) (rd io.ReadCloser, err error) {
	if path == "-" {
		rd = io.NopCloser(os.Stdin)
		return
	}

	return os.Open(path)
}

// assemble parses a source file into a program that starts at origin,
// unless the source sets its own.
func assemble(path string, origin uint32, verbose bool) (prog *cpu.Program) {
	inf, err := open(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	defer inf.Close()

	asm := &cpu.Assembler{Verbose: verbose, Origin: int(origin)}
	prog, err = asm.Parse(inf)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	return
}

// machine holds the flags that describe an emulated machine and its image.
type machine struct {
	configPath string
	compile    string
	cfg        emulator.Config
}

func (m *machine) addFlags(flags *pflag.FlagSet) {
	defaults := emulator.DefaultConfig()
	flags.StringVar(&m.configPath, "config", "", "TOML machine configuration")
	flags.StringVarP(&m.compile, "compile", "c", "", "assembly source to compile and run")
	flags.IntVar(&m.cfg.MemorySize, "memory", defaults.MemorySize, "memory size in bytes")
	flags.Uint32Var(&m.cfg.LoadOffset, "load", defaults.LoadOffset, "image load offset")
	flags.Uint32Var(&m.cfg.Entry, "entry", defaults.Entry, "initial EIP")
	flags.Uint32Var(&m.cfg.Stack, "stack", defaults.Stack, "initial ESP")
	flags.IntVar(&m.cfg.StepLimit, "steps", defaults.StepLimit, "instruction limit, 0 for none")
	flags.Var(&m.cfg.Compat, "compat", "ModRM displacement compatibility (standard, legacy)")
	flags.BoolVarP(&m.cfg.Verbose, "verbose", "v", false, "trace execution")
}

// emulator builds the configured machine, and loads its image or source.
func (m *machine) emulator(cmd *cobra.Command, args []string) (emu *emulator.Emulator) {
	flags := cmd.Flags()

	base := emulator.DefaultConfig()
	if len(m.configPath) != 0 {
		var err error
		base, err = emulator.LoadConfig(m.configPath)
		if err != nil {
			log.Fatalf("%v: %v", m.configPath, err)
		}
	}

	// Flags given on the command line override the file.
	if flags.Changed("memory") {
		base.MemorySize = m.cfg.MemorySize
	}
	if flags.Changed("load") {
		base.LoadOffset = m.cfg.LoadOffset
	}
	if flags.Changed("entry") {
		base.Entry = m.cfg.Entry
	}
	if flags.Changed("stack") {
		base.Stack = m.cfg.Stack
	}
	if flags.Changed("steps") {
		base.StepLimit = m.cfg.StepLimit
	}
	if flags.Changed("compat") {
		base.Compat = m.cfg.Compat
	}
	if flags.Changed("verbose") {
		base.Verbose = m.cfg.Verbose
	}

	emu, err := emulator.NewEmulator(base)
	if err != nil {
		log.Fatalf("%v", err)
	}

	switch {
	case len(m.compile) != 0 && len(args) != 0:
		log.Fatalf("%v: image and -c are exclusive", cmd.Name())
	case len(m.compile) != 0:
		prog := assemble(m.compile, base.LoadOffset, base.Verbose)
		err = emu.LoadProgram(prog)
		if err != nil {
			log.Fatalf("%v: %v", m.compile, err)
		}
	case len(args) != 0:
		inf, err := open(args[0])
		if err != nil {
			log.Fatalf("%v: %v", args[0], err)
		}
		_, err = emu.Load(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", args[0], err)
		}
	default:
		log.Fatalf("%v: no image or source given", cmd.Name())
	}

	return
}

func runCommand() *cobra.Command {
	var m machine

	cmd := &cobra.Command{
		Use:   "run [image]",
		Short: "Load a raw image, or assemble a source file, and run it",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			emu := m.emulator(cmd, args)

			err := emu.Run()

			dumpErr := emu.Dump(os.Stdout)
			if dumpErr != nil {
				log.Fatal(dumpErr)
			}

			if err != nil {
				log.Fatal(err)
			}
		},
	}

	m.addFlags(cmd.Flags())

	return cmd
}

func debugCommand() *cobra.Command {
	var m machine
	var history string

	cmd := &cobra.Command{
		Use:   "debug [image]",
		Short: "Step through a raw image, or an assembled source file, interactively",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			emu := m.emulator(cmd, args)
			mon := &emulator.Monitor{Emulator: emu, Output: os.Stdout}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:      "ux86> ",
				HistoryFile: history,
			})
			if err != nil {
				log.Fatal(err)
			}
			defer rl.Close()

			_, err = mon.Execute("where")
			if err != nil {
				log.Printf("%v", err)
			}

			for {
				line, err := rl.Readline()
				if err != nil {
					// EOF or interrupt
					break
				}

				quit, err := mon.Execute(line)
				if err != nil {
					fmt.Fprintf(rl.Stderr(), "%v\n", err)
				}
				if quit {
					break
				}
			}
		},
	}

	m.addFlags(cmd.Flags())
	cmd.Flags().StringVar(&history, "history", "", "file to keep command history in")

	return cmd
}

func asmCommand() *cobra.Command {
	var output string
	var origin uint32
	var listing bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "asm source",
		Short: "Assemble a source file into a raw image",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			prog := assemble(args[0], origin, verbose)
			binary := prog.Binary()

			if listing {
				_, err := io.WriteString(os.Stdout, prog.Listing())
				if err != nil {
					log.Fatal(err)
				}
			}

			if len(output) == 0 {
				return
			}

			err := os.WriteFile(output, binary, 0o644)
			if err != nil {
				log.Fatalf("%v: %v", output, err)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "raw image to write")
	cmd.Flags().Uint32Var(&origin, "origin", emulator.LOAD_OFFSET, "origin, unless set by .org")
	cmd.Flags().BoolVarP(&listing, "listing", "l", false, "print a disassembly listing")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each source line")

	return cmd
}

func disasmCommand() *cobra.Command {
	var origin uint32

	cmd := &cobra.Command{
		Use:   "disasm image",
		Short: "Disassemble a raw image",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			inf, err := open(args[0])
			if err != nil {
				log.Fatalf("%v: %v", args[0], err)
			}
			defer inf.Close()

			binary, err := io.ReadAll(inf)
			if err != nil {
				log.Fatalf("%v: %v", args[0], err)
			}

			_, err = io.WriteString(os.Stdout, cpu.Disassemble(binary, origin))
			if err != nil {
				log.Fatal(err)
			}
		},
	}

	cmd.Flags().Uint32Var(&origin, "origin", emulator.LOAD_OFFSET, "address of the first byte")

	return cmd
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "ux86",
		Short: "A small 32-bit x86 emulator",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(runCommand(), debugCommand(), asmCommand(), disasmCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

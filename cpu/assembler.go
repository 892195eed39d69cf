// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/ux86/modrm"
)

// Macro is a named block of source lines, expanded in place with its
// arguments bound as equates.
type Macro struct {
	LineNo int      // Line number of the first line of the body.
	Args   []string // Argument names.
	Lines  []string // Body text.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":  "0",
	"HALT_IP": fmt.Sprintf("%#x", HALT_IP),
}

var (
	labelRe      = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.@]*$`)
	characterRe  = regexp.MustCompile(`'\\?[^']'`)
	expressionRe = regexp.MustCompile(`\$\([^\$]*\)`)
)

// Backslash escapes allowed in character constants.
var escapes = map[byte]byte{
	'\\': '\\',
	'0':  0,
	'e':  0x1b,
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
}

// Assembler is a single pass macro assembler for the supported x86 subset.
//
// Words on a line are separated by spaces, not commas:
//
//	.org 0x7c00
//	start:  mov eax 1
//	        movrm [ebx+8] $(2 * 0x10)
//	        jmp short start
//	        exit
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.
	Origin  int      // Address of the first generated byte, unless set by .org.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	origin     int // Origin of the current parse.
	expansions int // Count of macro expansions, for unique @ labels.
}

// encoder assembles the arguments of one mnemonic or directive. A label
// is returned when the trailing displacement must be linked later.
type encoder func(asm *Assembler, args []string) (code []byte, label string, err error)

var encoders = map[string]encoder{
	".org":  (*Assembler).encodeOrg,
	"db":    (*Assembler).encodeDb,
	"dd":    (*Assembler).encodeDd,
	"mov":   (*Assembler).encodeMov,
	"movrm": (*Assembler).encodeMovRm,
	"jmp":   (*Assembler).encodeJmp,
	"exit":  (*Assembler).encodeExit,
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{}
	}
	asm.predefine[equ] = value
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	if len(word) == 0 {
		err = ErrOpcodeValueMissing
		return
	}

	invert := word[0] == '~'
	if invert {
		word = word[1:]
	}
	if strings.HasPrefix(word, "'") {
		// Valid character constants were replaced by expand().
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}

	v64, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}
	if v64 > math.MaxUint32 || v64 < math.MinInt32 {
		err = fmt.Errorf("%w: %v", ErrValueRange, word)
		return
	}

	value = uint32(v64)
	if invert {
		value = ^value
	}

	return
}

// resolve replaces a word with its equate, if any.
func (asm *Assembler) resolve(word string) string {
	equate, ok := asm.Equate[word]
	if ok {
		return equate
	}
	return word
}

// operandOf decodes a register or memory operand into a ModRM:
// REG, [ADDR], [REG], [REG+DISP] or [REG-DISP].
func (asm *Assembler) operandOf(word string) (m modrm.ModRM, err error) {
	if reg, ok := ParseReg(word); ok {
		m = modrm.ModRM{Mode: modrm.MODE_REGISTER, Rm: uint8(reg)}
		return
	}

	if len(word) < 3 || word[0] != '[' || word[len(word)-1] != ']' {
		err = ErrParseOperand(word)
		return
	}
	inner := word[1 : len(word)-1]

	base := inner
	offset := ""
	if split := strings.IndexAny(inner[1:], "+-"); split >= 0 {
		base = inner[:split+1]
		offset = inner[split+1:]
	}

	reg, ok := ParseReg(asm.resolve(base))
	if !ok {
		if len(offset) != 0 {
			err = ErrParseOperand(word)
			return
		}
		var addr uint32
		addr, err = asm.valueOf(asm.resolve(inner))
		if err != nil {
			return
		}
		m = modrm.ModRM{Mode: modrm.MODE_INDIRECT, Rm: modrm.RM_DISP32, Disp: modrm.Disp32(addr)}
		return
	}

	if reg == ESP {
		// Would need a SIB byte.
		err = fmt.Errorf("%w: %v", ErrRegisterInvalid, word)
		return
	}

	var disp int64
	if len(offset) != 0 {
		var value uint32
		value, err = asm.valueOf(asm.resolve(offset[1:]))
		if err != nil {
			return
		}
		disp = int64(value)
		if offset[0] == '-' {
			disp = -disp
		}
	}

	switch {
	case disp == 0 && reg != EBP:
		m = modrm.ModRM{Mode: modrm.MODE_INDIRECT, Rm: uint8(reg)}
	case disp >= math.MinInt8 && disp <= math.MaxInt8:
		m = modrm.ModRM{Mode: modrm.MODE_DISP8, Rm: uint8(reg), Disp: modrm.Disp8(disp)}
	default:
		m = modrm.ModRM{Mode: modrm.MODE_DISP32, Rm: uint8(reg), Disp: modrm.Disp32(uint32(disp))}
	}

	return
}

// evaluate computes a $(...) expression with starlark. Integer equates
// are in scope.
func (asm *Assembler) evaluate(expr string) (value uint32, err error) {
	env := starlark.StringDict{}
	for name, text := range asm.Equate {
		number, numErr := asm.valueOf(text)
		if numErr != nil {
			// Registers, and other non-numeric equates.
			continue
		}
		env[name] = starlark.MakeUint64(uint64(number))
	}

	thread := &starlark.Thread{Name: "expr"}
	result, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, "expr", expr, env)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrParseExpression(expr), err)
		return
	}

	number, ok := result.(starlark.Int)
	var v64 int64
	if ok {
		v64, ok = number.Int64()
	}
	if !ok || v64 > math.MaxUint32 || v64 < math.MinInt32 {
		err = ErrParseExpression(expr)
		return
	}

	value = uint32(v64)
	return
}

// expand replaces character constants and $(...) expressions with their
// numeric values.
func (asm *Assembler) expand(line string) (text string, err error) {
	text = characterRe.ReplaceAllStringFunc(line, func(quoted string) string {
		char := quoted[1 : len(quoted)-1]
		switch {
		case len(char) == 1 && char[0] != '\\':
			return strconv.Itoa(int(char[0]))
		case len(char) == 2 && char[0] == '\\':
			if c, ok := escapes[char[1]]; ok {
				return strconv.Itoa(int(c))
			}
		}
		return quoted
	})

	text = expressionRe.ReplaceAllStringFunc(text, func(call string) string {
		if err != nil {
			return call
		}
		var value uint32
		value, err = asm.evaluate(call[2 : len(call)-1])
		return fmt.Sprintf("%#x", value)
	})

	return
}

// equate handles `.equ NAME VALUE`.
func (asm *Assembler) equate(args []string) (err error) {
	if len(args) != 2 {
		err = ErrEquateSyntax
		return
	}
	if _, ok := asm.Equate[args[0]]; ok {
		err = ErrEquateDuplicate
		return
	}

	asm.Equate[args[0]] = args[1]
	return
}

// label binds name to the next generated address.
func (asm *Assembler) label(name string) (err error) {
	if !labelRe.MatchString(name) {
		err = fmt.Errorf("%w: %v", ErrTargetInvalid, name)
		return
	}
	if _, ok := asm.Label[name]; ok {
		err = fmt.Errorf("%w: %v", ErrLabelDuplicate, name)
		return
	}

	asm.Label[name] = asm.currentIp()
	return
}

// define handles `.macro NAME ARG...`. The body follows on the next line.
func (asm *Assembler) define(args []string, lineno int) (macro *Macro, err error) {
	if len(args) == 0 {
		err = ErrMacroSyntax
		return
	}
	if _, ok := asm.Macro[args[0]]; ok {
		err = ErrMacroDuplicate
		return
	}

	macro = &Macro{LineNo: lineno + 1, Args: args[1:]}
	asm.Macro[args[0]] = macro
	return
}

// expandMacro assembles the body of a macro. '@' in the body is replaced
// by a prefix unique to this expansion.
func (asm *Assembler) expandMacro(name string, macro *Macro, args []string) (err error) {
	if len(args) != len(macro.Args) {
		err = ErrMacroSyntax
		return
	}

	saved := maps.Clone(asm.Equate)
	defer func() { asm.Equate = saved }()
	for n, arg := range macro.Args {
		asm.Equate[arg] = args[n]
	}

	asm.expansions++
	local := fmt.Sprintf("%v_%v_", name, asm.expansions)

	for n, text := range macro.Lines {
		lineno := macro.LineNo + n
		text = strings.ReplaceAll(text, "@", local)

		var words []string
		words, err = asm.parseLine(text, lineno)
		if err == nil {
			err = asm.parseWords(words, lineno)
		}
		if err != nil {
			err = &ErrMacro{Macro: name, Line: lineno, Err: err}
			err = &ErrSyntax{LineNo: lineno, Line: text, Err: err}
			return
		}
	}

	return
}

// parseLine expands a line, records its labels and equates, and expands
// macros. The remaining words, if any, are an instruction or data.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	asm.Equate["LINENO"] = strconv.Itoa(lineno)

	line, err = asm.expand(line)
	if err != nil {
		return
	}

	words = strings.Fields(line)
	if len(words) == 0 {
		return
	}

	if words[0] == ".equ" {
		err = asm.equate(words[1:])
		words = nil
		return
	}

	for n, word := range words {
		words[n] = asm.resolve(word)
	}

	for len(words) != 0 && strings.HasSuffix(words[0], ":") {
		err = asm.label(strings.TrimSuffix(words[0], ":"))
		if err != nil {
			return
		}
		words = words[1:]
	}

	if len(words) == 0 {
		return
	}

	if macro, ok := asm.Macro[words[0]]; ok {
		err = asm.expandMacro(words[0], macro, words[1:])
		words = nil
	}

	return
}

// parseWords encodes an instruction or data directive, and appends it to
// the listing.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	if len(words) == 0 {
		return
	}

	encode, ok := encoders[words[0]]
	if !ok {
		err = fmt.Errorf("%w: %v", ErrInstructionInvalid, words[0])
		return
	}

	ip := asm.currentIp()
	code, label, err := encode(asm, words[1:])
	if err != nil || len(code) == 0 {
		return
	}

	asm.Opcode = append(asm.Opcode, Opcode{
		LineNo:    lineno,
		Ip:        ip,
		Words:     words,
		Bytes:     code,
		LinkLabel: label,
	})

	return
}

// currentIp gets the address of the next generated byte.
func (asm *Assembler) currentIp() int {
	if len(asm.Opcode) == 0 {
		return asm.origin
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Ip + len(last.Bytes)
}

// reset clears the state of any previous parse.
func (asm *Assembler) reset() {
	asm.Opcode = asm.Opcode[:0]
	asm.origin = asm.Origin
	asm.expansions = 0
	asm.Label = map[string]int{}
	asm.Macro = map[string]*Macro{}
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	asm.reset()

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		lineno++
		text := scanner.Text()

		if asm.Verbose {
			log.Printf("asm: %v: %v", lineno, text)
		}

		line, _, _ = strings.Cut(text, ";")
		line = strings.TrimSpace(line)
		words := strings.Fields(line)

		directive := ""
		if len(words) != 0 {
			directive = words[0]
		}

		switch {
		case directive == ".macro":
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			macro, err = asm.define(words[1:], lineno)
		case directive == ".endm":
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
		case macro != nil:
			macro.Lines = append(macro.Lines, line)
		default:
			words, err = asm.parseLine(line, lineno)
			if err == nil {
				err = asm.parseWords(words, lineno)
			}
		}
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Forward references are resolved once every label is known.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]
		if len(op.LinkLabel) == 0 {
			continue
		}

		lineno, line = op.LineNo, strings.Join(op.Words, " ")
		target, ok := asm.Label[op.LinkLabel]
		if !ok {
			err = ErrLabelMissing(op.LinkLabel)
			return
		}
		err = relocate(op.Bytes, op.Ip, target)
		if err != nil {
			return
		}
	}

	prog = &Program{
		Origin:  asm.origin,
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// relocate sets the displacement of the jump in code at ip to reach target.
func relocate(code []byte, ip int, target int) (err error) {
	rel := int64(target) - int64(ip+len(code))

	switch code[0] {
	case 0xEB:
		if rel < math.MinInt8 || rel > math.MaxInt8 {
			err = fmt.Errorf("%w: %+d", ErrTargetRange, rel)
			return
		}
		code[1] = uint8(int8(rel))
	case 0xE9:
		if rel < math.MinInt32 || rel > math.MaxInt32 {
			err = fmt.Errorf("%w: %+d", ErrTargetRange, rel)
			return
		}
		binary.LittleEndian.PutUint32(code[1:], uint32(int32(rel)))
	default:
		err = ErrTargetInvalid
	}

	return
}

// operands checks for a destination and a value, and evaluates the value.
func (asm *Assembler) operands(args []string) (value uint32, err error) {
	switch {
	case len(args) < 2:
		err = ErrOpcodeValueMissing
	case len(args) > 2:
		err = ErrOpcodeExtraArgs
	default:
		value, err = asm.valueOf(args[1])
	}

	return
}

// .org ADDR
func (asm *Assembler) encodeOrg(args []string) (code []byte, label string, err error) {
	if len(args) != 1 {
		err = ErrOrgSyntax
		return
	}
	if len(asm.Opcode) != 0 {
		err = ErrOrgAfterCode
		return
	}

	origin, err := asm.valueOf(args[0])
	if err == nil {
		asm.origin = int(origin)
	}
	return
}

// db BYTE...
func (asm *Assembler) encodeDb(args []string) (code []byte, label string, err error) {
	if len(args) == 0 {
		err = ErrOpcodeValueMissing
		return
	}

	for _, arg := range args {
		var value uint32
		value, err = asm.valueOf(arg)
		if err != nil {
			return
		}
		// Either unsigned, or sign extended.
		if value > math.MaxUint8 && value < 0xffffff80 {
			err = fmt.Errorf("%w: %v", ErrValueRange, arg)
			return
		}
		code = append(code, uint8(value))
	}

	return
}

// dd WORD...
func (asm *Assembler) encodeDd(args []string) (code []byte, label string, err error) {
	if len(args) == 0 {
		err = ErrOpcodeValueMissing
		return
	}

	for _, arg := range args {
		var value uint32
		value, err = asm.valueOf(arg)
		if err != nil {
			return
		}
		code = binary.LittleEndian.AppendUint32(code, value)
	}

	return
}

// mov REG VALUE => B8+r id
func (asm *Assembler) encodeMov(args []string) (code []byte, label string, err error) {
	value, err := asm.operands(args)
	if err != nil {
		return
	}

	reg, ok := ParseReg(args[0])
	if !ok {
		err = fmt.Errorf("%w: %v", ErrRegisterInvalid, args[0])
		return
	}

	code = binary.LittleEndian.AppendUint32([]byte{0xB8 + uint8(reg)}, value)
	return
}

// movrm DST VALUE => C7 /0 id
func (asm *Assembler) encodeMovRm(args []string) (code []byte, label string, err error) {
	value, err := asm.operands(args)
	if err != nil {
		return
	}

	m, err := asm.operandOf(args[0])
	if err != nil {
		return
	}

	code = append([]byte{0xC7}, m.Bytes()...)
	code = binary.LittleEndian.AppendUint32(code, value)
	return
}

// jmp [short] TARGET => E9 cd, or EB cb
func (asm *Assembler) encodeJmp(args []string) (code []byte, label string, err error) {
	code = []byte{0xE9, 0, 0, 0, 0}
	if len(args) != 0 && args[0] == "short" {
		code = []byte{0xEB, 0}
		args = args[1:]
	}

	switch {
	case len(args) == 0:
		err = ErrTargetMissing
		return
	case len(args) > 1:
		err = ErrOpcodeExtraArgs
		return
	}

	target, numErr := asm.valueOf(args[0])
	switch {
	case numErr == nil:
		err = relocate(code, asm.currentIp(), int(target))
	case labelRe.MatchString(args[0]):
		label = args[0]
	default:
		err = numErr
	}

	return
}

// exit => jmp HALT_IP
func (asm *Assembler) encodeExit(args []string) (code []byte, label string, err error) {
	if len(args) != 0 {
		err = ErrOpcodeExtraArgs
		return
	}

	return asm.encodeJmp([]string{strconv.Itoa(int(HALT_IP))})
}

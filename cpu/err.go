package cpu

import (
	"errors"

	"github.com/ezrec/ux86/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalted          = errors.New(f("cpu halted"))
	ErrStepLimit       = errors.New(f("step limit reached"))
	ErrNotImplemented  = errors.New(f("not implemented"))
	ErrJumpRange       = errors.New(f("jump out of range"))
	ErrOpcodeDuplicate = errors.New(f("opcode already installed"))

	// Instruction decode errors
	ErrOpcodeExtension = errors.New(f("opcode extension"))
	ErrOpcodeOperand   = errors.New(f("operand"))
	ErrOpcodeImm       = errors.New(f("imm"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrOrgSyntax          = errors.New(f(".org syntax"))
	ErrOrgAfterCode       = errors.New(f(".org after code"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro wihtout .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("opcode missing"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrTargetMissing      = errors.New(f("target missing"))
	ErrTargetInvalid      = errors.New(f("target invalid"))
	ErrTargetRange        = errors.New(f("target out of range"))
	ErrValueRange         = errors.New(f("value out of range"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrOpcode is a failure to execute the instruction at Ip.
type ErrOpcode struct {
	Ip     uint32 // Address of the opcode byte.
	Opcode uint8  // Opcode byte.
	Err    error  // Cause.
}

func (err *ErrOpcode) Error() string {
	return f("opcode 0x%02X at EIP=%08X: %v", err.Opcode, err.Ip, err.Err)
}

func (err *ErrOpcode) Unwrap() error {
	return err.Err
}

// ErrJump is a jump whose target is outside of memory.
type ErrJump struct {
	Ip     uint32 // Address of the jump.
	Target int64  // Computed target.
	Size   int    // Size of memory.
}

func (err ErrJump) Error() string {
	return f("jump from %08X to %d outside memory of 0x%X bytes", err.Ip, err.Target, err.Size)
}

func (err ErrJump) Is(target error) bool {
	return target == ErrJumpRange
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseOperand string

func (err ErrParseOperand) Error() string {
	return f("'%v' is not a register or memory operand", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}

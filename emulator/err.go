package emulator

import (
	"errors"

	"github.com/ezrec/ux86/translate"
)

var f = translate.From

var (
	ErrConfig           = errors.New(f("configuration"))
	ErrConfigKey        = errors.New(f("unknown configuration key"))
	ErrConfigMemorySize = errors.New(f("memory size out of range"))
	ErrConfigLoadOffset = errors.New(f("load offset outside memory"))
	ErrConfigStepLimit  = errors.New(f("step limit negative"))
	ErrMonitorArgument  = errors.New(f("monitor argument invalid"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Ip     uint32
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("EIP=%08X %v", err.Ip, err.Err)
	}
	return f("line %d EIP=%08X %v", err.LineNo, err.Ip, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

type ErrMonitorCommand string

func (err ErrMonitorCommand) Error() string {
	return f("monitor command '%v' unknown", string(err))
}

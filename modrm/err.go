package modrm

import (
	"errors"

	"github.com/ezrec/ux86/translate"
)

var f = translate.From

var (
	ErrNotImplemented  = errors.New(f("addressing form not implemented"))
	ErrSib             = errors.New(f("sib"))
	ErrRegisterOperand = errors.New(f("register operand has no address"))
	ErrDisplacement    = errors.New(f("displacement does not match mode"))
)

type ErrCompatUnknown string

func (err ErrCompatUnknown) Error() string {
	return f("compat mode '%v' unknown", string(err))
}

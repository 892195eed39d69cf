package bus

import (
	"errors"

	"github.com/ezrec/ux86/translate"
)

var f = translate.From

var (
	ErrOutOfRange    = errors.New(f("address out of range"))
	ErrImageTooLarge = errors.New(f("image too large"))
)

// ErrRange is an access that does not fit inside the memory image.
type ErrRange struct {
	Address uint64 // First byte of the access.
	Width   int    // Bytes in the access.
	Size    int    // Size of the memory image.
}

func (err ErrRange) Error() string {
	return f("%d byte access at 0x%08X out of range (memory is 0x%X bytes)", err.Width, err.Address, err.Size)
}

func (err ErrRange) Is(target error) bool {
	return target == ErrOutOfRange
}

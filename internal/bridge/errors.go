package bridge

import (
	"errors"
	"fmt"

	"github.com/woxQAQ/native-bridge/pkg/abi"
)

var (
	// ErrOutOfMemory is returned when the heap cannot satisfy a request.
	ErrOutOfMemory = errors.New("allocator exhausted")

	// ErrNullPointer is returned when a checked deallocation receives nil.
	ErrNullPointer = errors.New("null pointer")

	// ErrUnknownBlock is returned when a checked deallocation receives an
	// address that was not handed out by the same allocator, or was already freed.
	ErrUnknownBlock = errors.New("address does not belong to a live block")

	// ErrSizeMismatch is the sentinel wrapped by SizeMismatchError.
	ErrSizeMismatch = errors.New("size mismatch")
)

// LayoutError occurs when a byte count exceeds the maximum layout size.
type LayoutError struct {
	Size uintptr
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout overflow: %d bytes exceeds maximum of %d", e.Size, MaxLayoutSize)
}

// SizeMismatchError occurs when a checked deallocation is given a byte count
// different from the one used at allocation.
type SizeMismatchError struct {
	Allocated uint64
	Requested uintptr
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: block has %d bytes, deallocation requested %d",
		e.Allocated, e.Requested)
}

func (e *SizeMismatchError) Unwrap() error {
	return ErrSizeMismatch
}

// StatusOf maps an allocation error to the status code returned across the
// C boundary by the checked entry points.
func StatusOf(err error) abi.Status {
	var layoutErr *LayoutError
	switch {
	case err == nil:
		return abi.StatusOK
	case errors.As(err, &layoutErr):
		return abi.StatusLayoutOverflow
	case errors.Is(err, ErrNullPointer):
		return abi.StatusNullPointer
	case errors.Is(err, ErrSizeMismatch):
		return abi.StatusSizeMismatch
	default:
		return abi.StatusUnknownBlock
	}
}

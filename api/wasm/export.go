//go:build wasip1

package wasm

import "unsafe"

var guest = NewGuest(logMessage)

//go:wasmexport constant
func constant() int32 {
	return guest.Constant()
}

//go:wasmexport sum
func sum(a, b int32) int32 {
	return guest.Sum(a, b)
}

//go:wasmexport increment_array
func incrementArray(ptr, count uint32) {
	guest.IncrementArray(uintptr(ptr), uintptr(count))
}

//go:wasmexport increment_point
func incrementPoint(ptr uint32) {
	guest.IncrementPoint(uintptr(ptr))
}

//go:wasmexport allocate
func allocate(size uint32) uint32 {
	return uint32(guest.Allocate(uintptr(size)))
}

//go:wasmexport deallocate
func deallocate(ptr, size uint32) {
	guest.Deallocate(uintptr(ptr), uintptr(size))
}

//go:wasmimport host log_message
func hostLogMessage(level, ptr, length uint32)

// logMessage hands msg to the host logger. The bytes only need to stay
// valid for the duration of the import call.
func logMessage(level uint32, msg string) {
	if msg == "" {
		return
	}
	b := []byte(msg)
	hostLogMessage(level, uint32(uintptr(unsafe.Pointer(unsafe.SliceData(b)))), uint32(len(b)))
}

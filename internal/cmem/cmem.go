// Package cmem exposes the C allocator as a bridge.Heap.
// It is the only package besides cmd/nativebridge that imports "C".
package cmem

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

// Heap allocates from the C heap with malloc and free.
// Blocks are invisible to the Go garbage collector and may be handed to
// foreign callers.
type Heap struct{}

// Malloc returns size uninitialized bytes or nil.
func (Heap) Malloc(size uintptr) unsafe.Pointer {
	return C.malloc(C.size_t(size))
}

// Free releases a block from Malloc.
func (Heap) Free(p unsafe.Pointer) {
	C.free(p)
}

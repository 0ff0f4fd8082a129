package bridge

import (
	"math"
	"sync"
	"unsafe"
)

// MaxLayoutSize is the largest byte count accepted by Allocate and Deallocate.
const MaxLayoutSize = uintptr(math.MaxInt)

// Heap is a raw byte allocator. Malloc returns nil when it cannot satisfy
// the request. Free must accept any non-nil pointer previously returned by
// Malloc on the same heap.
type Heap interface {
	Malloc(size uintptr) unsafe.Pointer
	Free(p unsafe.Pointer)
}

// Allocate requests size bytes from h, 1-byte aligned and uninitialized.
//
// Ownership of the block passes to the caller, who must release it with
// Deallocate and the same size. A zero-byte request reserves one byte so
// that every successful allocation has a unique non-nil address.
func Allocate(h Heap, size uintptr) (unsafe.Pointer, error) {
	if size > MaxLayoutSize {
		return nil, &LayoutError{Size: size}
	}
	if size == 0 {
		size = 1
	}
	p := h.Malloc(size)
	if p == nil {
		return nil, ErrOutOfMemory
	}
	return p, nil
}

// MustAllocate is Allocate for the C boundary: a layout overflow panics,
// exhaustion returns nil.
func MustAllocate(h Heap, size uintptr) unsafe.Pointer {
	p, err := Allocate(h, size)
	if err != nil {
		if _, ok := err.(*LayoutError); ok {
			panic(err)
		}
		return nil
	}
	return p
}

// Deallocate releases a block obtained from Allocate on the same heap.
// The size must match the allocation; a mismatch is not detected here
// (see Tracked). A nil address is a no-op.
func Deallocate(h Heap, p unsafe.Pointer, size uintptr) error {
	if size > MaxLayoutSize {
		return &LayoutError{Size: size}
	}
	if p == nil {
		return nil
	}
	h.Free(p)
	return nil
}

// MustDeallocate is Deallocate for the C boundary: a layout overflow panics.
func MustDeallocate(h Heap, p unsafe.Pointer, size uintptr) {
	if err := Deallocate(h, p, size); err != nil {
		panic(err)
	}
}

// GoHeap is a Heap backed by Go byte slices. Blocks stay pinned in a table
// until freed so the garbage collector does not reclaim memory owned by a
// foreign caller. Used by the wasm guest, where there is no C allocator.
type GoHeap struct {
	mu     sync.Mutex
	blocks map[uintptr][]byte
}

// NewGoHeap creates an empty Go-backed heap.
func NewGoHeap() *GoHeap {
	return &GoHeap{blocks: make(map[uintptr][]byte)}
}

// Malloc allocates and pins a block of size bytes.
func (h *GoHeap) Malloc(size uintptr) unsafe.Pointer {
	if size == 0 {
		size = 1
	}
	buf := make([]byte, size)
	p := unsafe.Pointer(unsafe.SliceData(buf))

	h.mu.Lock()
	h.blocks[uintptr(p)] = buf
	h.mu.Unlock()
	return p
}

// Free unpins a block. Unknown addresses are ignored.
func (h *GoHeap) Free(p unsafe.Pointer) {
	h.mu.Lock()
	delete(h.blocks, uintptr(p))
	h.mu.Unlock()
}

// Size returns the size of the live block starting at p.
func (h *GoHeap) Size(p unsafe.Pointer) (uintptr, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf, ok := h.blocks[uintptr(p)]
	if !ok {
		return 0, false
	}
	return uintptr(len(buf)), true
}

// Live returns the number of blocks currently pinned.
func (h *GoHeap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blocks)
}
